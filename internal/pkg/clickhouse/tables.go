package clickhouse

const (
	// TableWorkflowEvents is the archive of every event appended to a run log.
	TableWorkflowEvents = "workflow_events"
)
