package runs_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hitesh22rana/runstream/internal/model/runs"
)

func TestStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from runs.Status
		to   runs.Status
		want bool
	}{
		{from: runs.StatusQueued, to: runs.StatusDispatched, want: true},
		{from: runs.StatusQueued, to: runs.StatusFailed, want: true},
		{from: runs.StatusDispatched, to: runs.StatusRunning, want: true},
		{from: runs.StatusDispatched, to: runs.StatusCompleted, want: true},
		{from: runs.StatusRunning, to: runs.StatusCompleted, want: true},
		{from: runs.StatusRunning, to: runs.StatusFailed, want: true},
		{from: runs.StatusRunning, to: runs.StatusRunning, want: false},
		{from: runs.StatusRunning, to: runs.StatusDispatched, want: false},
		{from: runs.StatusCompleted, to: runs.StatusFailed, want: false},
		{from: runs.StatusFailed, to: runs.StatusCompleted, want: false},
		{from: runs.StatusFailed, to: runs.StatusRunning, want: false},
		{from: runs.Status("bogus"), to: runs.StatusRunning, want: false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestPredecessors(t *testing.T) {
	assert.Equal(t, []runs.Status{runs.StatusQueued}, runs.Predecessors(runs.StatusDispatched))
	assert.Equal(t, []runs.Status{runs.StatusQueued, runs.StatusDispatched}, runs.Predecessors(runs.StatusRunning))
	assert.Equal(t, []runs.Status{runs.StatusQueued, runs.StatusDispatched, runs.StatusRunning}, runs.Predecessors(runs.StatusFailed))
	assert.Empty(t, runs.Predecessors(runs.StatusQueued))
}

func TestWorkflowRun_Payload(t *testing.T) {
	requestedAt := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	run := &runs.WorkflowRun{
		ID:          "run1",
		TenantID:    "tenant1",
		WorkspaceID: "ws1",
		WorkflowID:  "ontology",
		Engine:      "v2",
		Status:      runs.StatusQueued,
		RequestedAt: requestedAt,
	}

	got := run.Payload()
	assert.Equal(t, "run1", got.RunID)
	assert.Equal(t, "v2", got.Engine)
	assert.Equal(t, map[string]any{}, got.Inputs)
	assert.Equal(t, requestedAt, got.RequestedAt)
}

func TestSessionIDFromInputs(t *testing.T) {
	assert.Equal(t, "onto1", runs.SessionIDFromInputs(map[string]any{"ontology_id": "onto1"}))
	assert.Empty(t, runs.SessionIDFromInputs(map[string]any{"ontology_id": 1}))
	assert.Empty(t, runs.SessionIDFromInputs(nil))
}
