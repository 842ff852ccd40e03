package redis

import "fmt"

const (
	// KeyPrefix namespaces every key written by the services.
	KeyPrefix = "runstream"
)

// EventLogKey returns the stream key holding the events of one run.
func EventLogKey(tenantID, runID string) string {
	return fmt.Sprintf("%s:events:%s:%s", KeyPrefix, tenantID, runID)
}

// RunClaimKey returns the key a runtime sets before processing a run.
func RunClaimKey(tenantID, runID string) string {
	return fmt.Sprintf("%s:claims:%s:%s", KeyPrefix, tenantID, runID)
}

// SessionSnapshotKey returns the key holding the latest runtime state of a session.
func SessionSnapshotKey(tenantID, sessionID string) string {
	return fmt.Sprintf("%s:sessions:%s:%s", KeyPrefix, tenantID, sessionID)
}
