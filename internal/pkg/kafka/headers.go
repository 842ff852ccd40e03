package kafka

import "github.com/twmb/franz-go/pkg/kgo"

const (
	// HeaderEventType tags the kind of record.
	HeaderEventType = "event_type"
	// HeaderRunID carries the run id.
	HeaderRunID = "run_id"
	// HeaderWorkspaceID carries the workspace id.
	HeaderWorkspaceID = "workspace_id"
	// HeaderEngine carries the optional engine correlation.
	HeaderEngine = "engine"
	// HeaderChangesetID carries the optional changeset correlation.
	HeaderChangesetID = "changeset_id"
	// HeaderTenantID carries the tenant id.
	HeaderTenantID = "tenant_id"
)

// Header returns a record header, skipping empty values.
func Header(key, value string) (kgo.RecordHeader, bool) {
	if value == "" {
		return kgo.RecordHeader{}, false
	}
	return kgo.RecordHeader{Key: key, Value: []byte(value)}, true
}

// HeaderValue returns the first value of the named header, or "" when absent.
func HeaderValue(record *kgo.Record, key string) string {
	for _, h := range record.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
