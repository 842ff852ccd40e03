package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/hitesh22rana/runstream/internal/model/runs"
	"github.com/hitesh22rana/runstream/internal/pkg/auth"
)

type triggerRunRequest struct {
	WorkflowID  string         `json:"workflow_id"`
	WorkspaceID string         `json:"workspace_id"`
	ScenarioID  string         `json:"scenario_id"`
	RunID       string         `json:"run_id"`
	SessionID   string         `json:"session_id"`
	Engine      string         `json:"engine"`
	ChangesetID string         `json:"changeset_id"`
	Inputs      map[string]any `json:"inputs"`
	RequestedAt *time.Time     `json:"requested_at"`
}

type triggerRunResponse struct {
	RunID     string       `json:"run_id"`
	Status    runs.Status  `json:"status"`
	Backend   runs.Backend `json:"backend"`
	StreamURL string       `json:"stream_url"`
}

// handleTriggerRun creates a run and hands it to a dispatch backend.
func (s *Server) handleTriggerRun(w http.ResponseWriter, r *http.Request) {
	principal, err := auth.PrincipalFromContext(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}

	var req triggerRunRequest
	if err = json.NewDecoder(r.Body).Decode(&req); err != nil {
		handleDecodeError(w, err)
		return
	}

	trigger := &runs.TriggerRequest{
		TenantID:    principal.TenantID,
		UserID:      principal.UserID,
		WorkflowID:  req.WorkflowID,
		WorkspaceID: req.WorkspaceID,
		ScenarioID:  req.ScenarioID,
		RunID:       req.RunID,
		SessionID:   req.SessionID,
		Engine:      req.Engine,
		ChangesetID: req.ChangesetID,
		Inputs:      req.Inputs,
	}
	if req.RequestedAt != nil {
		trigger.RequestedAt = *req.RequestedAt
	}

	run, err := s.svcs.Runs.Trigger(r.Context(), trigger)
	if err != nil {
		handleError(w, err, "failed to trigger run")
		return
	}

	writeJSON(w, http.StatusCreated, &triggerRunResponse{
		RunID:     run.ID,
		Status:    run.Status,
		Backend:   run.Backend,
		StreamURL: "/runs/" + run.ID + "/events",
	})
}

// handleGetRun returns the current state of a run.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	principal, err := auth.PrincipalFromContext(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}

	run, err := s.svcs.Runs.GetRun(r.Context(), principal.TenantID, r.PathValue("run_id"))
	if err != nil {
		handleError(w, err, "failed to get run")
		return
	}

	writeJSON(w, http.StatusOK, run)
}
