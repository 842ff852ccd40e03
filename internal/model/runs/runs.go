package runs

import (
	"slices"
	"time"
)

// Status represents the lifecycle state of a workflow run.
type Status string

// Statuses of a workflow run, in lifecycle order.
const (
	StatusQueued     Status = "queued"
	StatusDispatched Status = "dispatched"
	StatusRunning    Status = "running"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var statusRank = map[Status]int{
	StatusQueued:     0,
	StatusDispatched: 1,
	StatusRunning:    2,
	StatusCompleted:  3,
	StatusFailed:     3,
}

// ToString converts the Status to its string representation.
func (s Status) ToString() string {
	return string(s)
}

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	_, ok := statusRank[s]
	return ok
}

// IsTerminal reports whether the status never changes again.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransitionTo reports whether moving from s to next goes strictly forward.
func (s Status) CanTransitionTo(next Status) bool {
	if !s.IsValid() || !next.IsValid() || s.IsTerminal() {
		return false
	}
	return statusRank[next] > statusRank[s]
}

// Predecessors returns every status that may transition into next, in lifecycle order.
func Predecessors(next Status) []Status {
	var out []Status
	for _, s := range []Status{StatusQueued, StatusDispatched, StatusRunning, StatusCompleted, StatusFailed} {
		if s.CanTransitionTo(next) {
			out = append(out, s)
		}
	}
	return out
}

// ToStrings converts statuses to plain strings for query parameters.
func ToStrings(statuses []Status) []string {
	out := make([]string, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, s.ToString())
	}
	return out
}

// Backend identifies how a run was handed to the runtime.
type Backend string

// Dispatch backends.
const (
	BackendQueue Backend = "queue"
	BackendJob   Backend = "job"
)

// IsValid reports whether b is a known backend.
func (b Backend) IsValid() bool {
	return slices.Contains([]Backend{BackendQueue, BackendJob}, b)
}

// WorkflowRun is one execution attempt of a workflow.
type WorkflowRun struct {
	ID            string         `json:"run_id"`
	TenantID      string         `json:"tenant_id"`
	WorkspaceID   string         `json:"workspace_id"`
	ScenarioID    string         `json:"scenario_id,omitempty"`
	WorkflowID    string         `json:"workflow_id"`
	SessionID     string         `json:"session_id,omitempty"`
	Engine        string         `json:"engine,omitempty"`
	ChangesetID   string         `json:"changeset_id,omitempty"`
	Backend       Backend        `json:"backend,omitempty"`
	Status        Status         `json:"status"`
	Inputs        map[string]any `json:"inputs"`
	FailureReason string         `json:"failure_reason,omitempty"`
	RequestedAt   time.Time      `json:"requested_at"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// DispatchPayload is the logical input a runtime receives, whichever backend delivered it.
type DispatchPayload struct {
	TenantID    string         `json:"tenant_id"`
	WorkspaceID string         `json:"workspace_id"`
	ScenarioID  string         `json:"scenario_id,omitempty"`
	RunID       string         `json:"run_id"`
	WorkflowID  string         `json:"workflow_id"`
	SessionID   string         `json:"session_id,omitempty"`
	Engine      string         `json:"engine,omitempty"`
	ChangesetID string         `json:"changeset_id,omitempty"`
	Inputs      map[string]any `json:"inputs"`
	Status      Status         `json:"status"`
	RequestedAt time.Time      `json:"requested_at"`
}

// Payload returns the dispatch payload of the run.
func (r *WorkflowRun) Payload() *DispatchPayload {
	inputs := r.Inputs
	if inputs == nil {
		inputs = map[string]any{}
	}

	return &DispatchPayload{
		TenantID:    r.TenantID,
		WorkspaceID: r.WorkspaceID,
		ScenarioID:  r.ScenarioID,
		RunID:       r.ID,
		WorkflowID:  r.WorkflowID,
		SessionID:   r.SessionID,
		Engine:      r.Engine,
		ChangesetID: r.ChangesetID,
		Inputs:      inputs,
		Status:      r.Status,
		RequestedAt: r.RequestedAt,
	}
}

// TriggerRequest asks for a new run.
type TriggerRequest struct {
	TenantID    string `validate:"required,max=128"`
	UserID      string
	WorkflowID  string `validate:"required,max=128"`
	WorkspaceID string `validate:"required,max=128"`
	ScenarioID  string `validate:"omitempty,max=128"`
	RunID       string `validate:"omitempty,max=128,printascii,excludesall=/:?#"`
	SessionID   string `validate:"omitempty,max=128,printascii,excludesall=/:?#"`
	Engine      string `validate:"omitempty,max=64"`
	ChangesetID string `validate:"omitempty,max=128"`
	Inputs      map[string]any
	RequestedAt time.Time
}

// SessionKeyInput is the inputs field that names the session when no session id is given.
const SessionKeyInput = "ontology_id"

// SessionIDFromInputs returns the session id carried in the inputs, if any.
func SessionIDFromInputs(inputs map[string]any) string {
	if inputs == nil {
		return ""
	}
	id, _ := inputs[SessionKeyInput].(string)
	return id
}
