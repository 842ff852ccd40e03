package postgres

const (
	// TableWorkflowRuns is the name of the workflow runs table.
	TableWorkflowRuns = "workflow_runs"
	// TableSessions is the name of the sessions table.
	TableSessions = "sessions"
	// TablePayloads is the name of the payloads table.
	TablePayloads = "payloads"
)
