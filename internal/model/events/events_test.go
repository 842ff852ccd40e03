package events_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hitesh22rana/runstream/internal/model/events"
)

func TestValidateInbound(t *testing.T) {
	tests := []struct {
		name     string
		typ      events.Type
		message  string
		metadata map[string]any
		isErr    bool
	}{
		{name: "user_message with message", typ: events.TypeUserMessage, message: "add a Patient entity"},
		{name: "user_message with metadata content", typ: events.TypeUserMessage, metadata: map[string]any{"content": "hi"}},
		{
			name:     "user_message with package",
			typ:      events.TypeUserMessage,
			message:  "update",
			metadata: map[string]any{"current_ontology_package": map[string]any{"entities": []any{}}},
		},
		{
			name:     "user_message with only a package",
			typ:      events.TypeUserMessage,
			metadata: map[string]any{"current_ontology_package": map[string]any{"entities": []any{map[string]any{"name": "Patient"}}}},
		},
		{name: "user_message with nil package and no content", typ: events.TypeUserMessage, metadata: map[string]any{"current_ontology_package": nil}, isErr: true},
		{name: "user_message without content", typ: events.TypeUserMessage, message: "  ", isErr: true},
		{name: "user_message with non string content", typ: events.TypeUserMessage, metadata: map[string]any{"content": 1}, isErr: true},
		{
			name:     "user_message with non object package",
			typ:      events.TypeUserMessage,
			message:  "update",
			metadata: map[string]any{"current_ontology_package": "nope"},
			isErr:    true,
		},
		{name: "finalize_ontology without metadata", typ: events.TypeFinalizeOntology},
		{name: "finalize_ontology with ontology id", typ: events.TypeFinalizeOntology, metadata: map[string]any{"ontology_id": "o1"}},
		{name: "finalize_ontology with bad ontology id", typ: events.TypeFinalizeOntology, metadata: map[string]any{"ontology_id": 7}, isErr: true},
		{name: "cancel_run", typ: events.TypeCancelRun, metadata: map[string]any{"reason": "user aborted"}},
		{name: "outbound type", typ: events.TypeAgentMessage, message: "x", isErr: true},
		{name: "unknown type", typ: events.Type("delete_everything"), message: "x", isErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := events.ValidateInbound(tt.typ, tt.message, tt.metadata)
			if tt.isErr {
				require.Error(t, err)
				assert.Equal(t, codes.InvalidArgument, status.Code(err))
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestCompareIDs(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{a: "1-0", b: "1-0", want: 0},
		{a: "1-0", b: "1-1", want: -1},
		{a: "2-0", b: "1-9", want: 1},
		{a: "10-0", b: "9-0", want: 1},
		{a: "5", b: "5-0", want: 0},
		{a: "junk", b: "0-0", want: -1},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, events.CompareIDs(tt.a, tt.b))
		})
	}
}

func TestNormalizeResumeID(t *testing.T) {
	tests := []struct {
		raw   string
		want  string
		isErr bool
	}{
		{raw: "", want: "0-0"},
		{raw: "1700000000000-3", want: "1700000000000-3"},
		{raw: "1700000000000", want: "1700000000000-0"},
		{raw: "$", isErr: true},
		{raw: "1-x", isErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := events.NormalizeResumeID(tt.raw)
			if tt.isErr {
				require.Error(t, err)
				assert.Equal(t, codes.InvalidArgument, status.Code(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestType_Classification(t *testing.T) {
	assert.True(t, events.TypeWorkflowComplete.IsTerminal())
	assert.True(t, events.TypeWorkflowError.IsTerminal())
	assert.False(t, events.TypeOntologyFinalized.IsTerminal())
	assert.True(t, events.TypeCancelRun.IsInbound())
	assert.False(t, events.TypeWorkflowStarted.IsInbound())
}
