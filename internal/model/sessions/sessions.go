package sessions

import "time"

// Status represents the state of a conversational session.
type Status string

// Session statuses.
const (
	StatusCreated   Status = "created"
	StatusActive    Status = "active"
	StatusFinalized Status = "finalized"
)

// ToString converts the Status to its string representation.
func (s Status) ToString() string {
	return string(s)
}

// Session is a conversational task that outlives individual runs.
type Session struct {
	ID          string     `json:"session_id"`
	TenantID    string     `json:"tenant_id"`
	Status      Status     `json:"status"`
	ActiveRunID string     `json:"active_run_id,omitempty"`
	LastRunID   string     `json:"last_run_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	FinalizedAt *time.Time `json:"finalized_at,omitempty"`
}
