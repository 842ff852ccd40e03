package events_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hitesh22rana/runstream/internal/model/events"
)

func agentFrame(id, messageID, content string, completed bool) *events.Event {
	return &events.Event{
		ID:      id,
		Type:    events.TypeAgentMessage,
		Message: content,
		Metadata: map[string]any{
			"message_id": messageID,
			"completed":  completed,
		},
	}
}

func TestMessageAccumulator(t *testing.T) {
	tests := []struct {
		name   string
		frames []*events.Event
		want   *events.Message
	}{
		{
			name: "partials then final with full text",
			frames: []*events.Event{
				agentFrame("1-0", "m1", "Hel", false),
				agentFrame("2-0", "m1", "lo", false),
				agentFrame("3-0", "m1", "Hello!", true),
			},
			want: &events.Message{ID: "m1", Content: "Hello!", Complete: true, LastEventID: "3-0"},
		},
		{
			name: "final without text keeps accumulation",
			frames: []*events.Event{
				agentFrame("1-0", "m1", "Hel", false),
				agentFrame("2-0", "m1", "lo", false),
				agentFrame("3-0", "m1", "", true),
			},
			want: &events.Message{ID: "m1", Content: "Hello", Complete: true, LastEventID: "3-0"},
		},
		{
			name: "replayed partials are ignored",
			frames: []*events.Event{
				agentFrame("1-0", "m1", "Hel", false),
				agentFrame("2-0", "m1", "lo", false),
				agentFrame("1-0", "m1", "Hel", false),
				agentFrame("2-0", "m1", "lo", false),
			},
			want: &events.Message{ID: "m1", Content: "Hello", Complete: false, LastEventID: "2-0"},
		},
		{
			name: "frames after completion are ignored",
			frames: []*events.Event{
				agentFrame("1-0", "m1", "done", true),
				agentFrame("2-0", "m1", " more", false),
			},
			want: &events.Message{ID: "m1", Content: "done", Complete: true, LastEventID: "1-0"},
		},
		{
			name: "frame without flag is complete",
			frames: []*events.Event{
				{ID: "1-0", Type: events.TypeAgentMessage, Message: "standalone", Metadata: map[string]any{}},
			},
			want: &events.Message{ID: "1-0", Content: "standalone", Complete: true, LastEventID: "1-0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc := events.NewMessageAccumulator()

			var got *events.Message
			for _, f := range tt.frames {
				got = acc.Add(f)
			}

			require.NotNil(t, got)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMessageAccumulator_IgnoresOtherEvents(t *testing.T) {
	acc := events.NewMessageAccumulator()
	assert.Nil(t, acc.Add(&events.Event{ID: "1-0", Type: events.TypeWorkflowStarted}))
}

func TestMessageAccumulator_InterleavedMessages(t *testing.T) {
	acc := events.NewMessageAccumulator()

	acc.Add(agentFrame("1-0", "a", "A1", false))
	acc.Add(agentFrame("2-0", "b", "B1", false))
	acc.Add(agentFrame("3-0", "a", "A2", false))
	b := acc.Add(agentFrame("4-0", "b", "", true))
	a := acc.Add(agentFrame("5-0", "a", "", true))

	assert.Equal(t, "A1A2", a.Content)
	assert.Equal(t, "B1", b.Content)
}
