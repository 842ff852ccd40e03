package events

import "strings"

// Message is an agent message assembled from its partial frames.
type Message struct {
	ID       string
	Content  string
	Complete bool
	// LastEventID is the id of the last frame applied to the message.
	LastEventID string
}

// MessageAccumulator assembles streamed agent_message frames on the consumer side.
// Partial frames (completed=false) append their content; the final frame (completed=true)
// replaces the accumulated text when it carries a non-empty one. Frames at or before the
// last applied event id of a message are ignored, so replays after a reconnect are harmless.
// It is not safe for concurrent use.
type MessageAccumulator struct {
	messages map[string]*accumulated
}

type accumulated struct {
	b           strings.Builder
	complete    bool
	lastEventID string
}

// NewMessageAccumulator creates an empty accumulator.
func NewMessageAccumulator() *MessageAccumulator {
	return &MessageAccumulator{messages: make(map[string]*accumulated)}
}

// Add applies an event. It returns the current state of the message the event belongs to,
// or nil for events that are not agent messages.
func (a *MessageAccumulator) Add(e *Event) *Message {
	if e.Type != TypeAgentMessage {
		return nil
	}

	messageID, _ := e.Metadata[MetaMessageID].(string)
	if messageID == "" {
		// A frame without a message id is a complete message on its own.
		messageID = e.ID
		if messageID == "" {
			messageID = "anonymous"
		}
	}

	completed, hasFlag := e.Metadata[MetaCompleted].(bool)
	if !hasFlag {
		completed = true
	}

	content := e.Message
	if content == "" {
		content, _ = e.Metadata[MetaContent].(string)
	}

	m, ok := a.messages[messageID]
	if !ok {
		m = &accumulated{}
		a.messages[messageID] = m
	}

	duplicate := m.complete || (e.ID != "" && m.lastEventID != "" && CompareIDs(e.ID, m.lastEventID) <= 0)
	if !duplicate {
		if completed {
			if content != "" {
				m.b.Reset()
				m.b.WriteString(content)
			}
			m.complete = true
		} else {
			m.b.WriteString(content)
		}
		if e.ID != "" {
			m.lastEventID = e.ID
		}
	}

	return &Message{
		ID:          messageID,
		Content:     m.b.String(),
		Complete:    m.complete,
		LastEventID: m.lastEventID,
	}
}
