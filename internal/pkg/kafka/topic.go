package kafka

const (
	// TopicWorkflowRuns carries one record per dispatched run.
	TopicWorkflowRuns = "workflow-runs"
	// TopicWorkflowEvents carries a copy of every appended run event for archiving.
	TopicWorkflowEvents = "workflow-events"
)
