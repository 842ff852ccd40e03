package events

import (
	"strconv"
	"strings"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Type is the open tag of an event.
type Type string

// Events emitted by a workflow runtime.
const (
	TypeWorkflowStarted   Type = "workflow_started"
	TypeAgentMessage      Type = "agent_message"
	TypeOntologyProposed  Type = "ontology_proposed"
	TypeOntologyUpdated   Type = "ontology_updated"
	TypeOntologyFinalized Type = "ontology_finalized"
	TypeWorkflowComplete  Type = "workflow_complete"
	TypeWorkflowError     Type = "workflow_error"
)

// Events submitted by clients.
const (
	TypeUserMessage      Type = "user_message"
	TypeFinalizeOntology Type = "finalize_ontology"
	TypeCancelRun        Type = "cancel_run"
)

// ToString converts the Type to its string representation.
func (t Type) ToString() string {
	return string(t)
}

// IsTerminal reports whether the event ends the run.
func (t Type) IsTerminal() bool {
	return t == TypeWorkflowComplete || t == TypeWorkflowError
}

// IsInbound reports whether clients may submit the event type.
func (t Type) IsInbound() bool {
	switch t {
	case TypeUserMessage, TypeFinalizeOntology, TypeCancelRun:
		return true
	default:
		return false
	}
}

// Role identifies who appended an event.
type Role string

// Event producers.
const (
	RoleRuntime Role = "runtime"
	RoleClient  Role = "client"
	RoleSystem  Role = "system"
)

// Metadata keys with a defined meaning.
const (
	MetaMessageID              = "message_id"
	MetaCompleted              = "completed"
	MetaContent                = "content"
	MetaCurrentOntologyPackage = "current_ontology_package"
	MetaOntologyID             = "ontology_id"
	MetaOntologyPackage        = "ontology_package"
	MetaSemanticVersion        = "semantic_version"
	MetaUpdateSummary          = "update_summary"
	MetaReason                 = "reason"
	MetaCode                   = "code"
)

// Error codes carried by workflow_error events.
const (
	ErrorCodeCancelled      = "cancelled"
	ErrorCodeTimeout        = "timeout"
	ErrorCodeInput          = "input_error"
	ErrorCodeRuntime        = "runtime_error"
	ErrorCodeLogUnavailable = "log_unavailable"
)

// Event is the atomic unit of a run's stream. It is never changed after append.
type Event struct {
	ID        string         `json:"event_id,omitempty"`
	RunID     string         `json:"run_id"`
	TenantID  string         `json:"tenant_id"`
	Type      Type           `json:"event_type"`
	Role      Role           `json:"role,omitempty"`
	Message   string         `json:"message"`
	Metadata  map[string]any `json:"metadata"`
	CreatedAt time.Time      `json:"created_at"`
}

// Record is one event as submitted to the persistence sink, before it gets an id.
type Record struct {
	Type     Type           `json:"event_type"`
	Message  string         `json:"message"`
	Metadata map[string]any `json:"metadata"`
}

// ValidateInbound checks a client submission against the shape of its type.
func ValidateInbound(t Type, message string, metadata map[string]any) error {
	if !t.IsInbound() {
		return status.Errorf(codes.InvalidArgument, "unsupported event type: %q", t)
	}

	//nolint:exhaustive // only inbound types reach here
	switch t {
	case TypeUserMessage:
		content, err := optionalString(metadata, MetaContent)
		if err != nil {
			return err
		}
		hasPackage := false
		if v, ok := metadata[MetaCurrentOntologyPackage]; ok && v != nil {
			if _, ok := v.(map[string]any); !ok {
				return status.Error(codes.InvalidArgument, "metadata.current_ontology_package must be an object")
			}
			hasPackage = true
		}
		if !hasPackage && strings.TrimSpace(message) == "" && strings.TrimSpace(content) == "" {
			return status.Error(codes.InvalidArgument, "user_message requires a message, metadata.content or metadata.current_ontology_package")
		}
	case TypeFinalizeOntology:
		if _, err := optionalString(metadata, MetaOntologyID); err != nil {
			return err
		}
	case TypeCancelRun:
		if _, err := optionalString(metadata, MetaReason); err != nil {
			return err
		}
	}

	return nil
}

func optionalString(metadata map[string]any, key string) (string, error) {
	v, ok := metadata[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", status.Errorf(codes.InvalidArgument, "metadata.%s must be a string", key)
	}
	return s, nil
}

// ID is a parsed event id of the form <ms>-<seq>.
type ID struct {
	Ms  uint64
	Seq uint64
}

// String formats the id.
func (id ID) String() string {
	return strconv.FormatUint(id.Ms, 10) + "-" + strconv.FormatUint(id.Seq, 10)
}

// Less reports whether id sorts before other.
func (id ID) Less(other ID) bool {
	if id.Ms != other.Ms {
		return id.Ms < other.Ms
	}
	return id.Seq < other.Seq
}

// ZeroID is the position before the first event of any run.
const ZeroID = "0-0"

// ParseID parses an event id. A bare millisecond value means sequence 0.
func ParseID(raw string) (ID, error) {
	msPart, seqPart, hasSeq := strings.Cut(raw, "-")

	ms, err := strconv.ParseUint(msPart, 10, 64)
	if err != nil {
		return ID{}, status.Errorf(codes.InvalidArgument, "invalid event id: %q", raw)
	}

	var seq uint64
	if hasSeq {
		seq, err = strconv.ParseUint(seqPart, 10, 64)
		if err != nil {
			return ID{}, status.Errorf(codes.InvalidArgument, "invalid event id: %q", raw)
		}
	}

	return ID{Ms: ms, Seq: seq}, nil
}

// NormalizeResumeID validates a resumption token and returns the position to read after.
// An empty token starts from the beginning of the run.
func NormalizeResumeID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ZeroID, nil
	}

	id, err := ParseID(raw)
	if err != nil {
		return "", err
	}

	return id.String(), nil
}

// CompareIDs orders two event ids. Unparsable ids sort first.
func CompareIDs(a, b string) int {
	ida, erra := ParseID(a)
	idb, errb := ParseID(b)

	switch {
	case erra != nil && errb != nil:
		return strings.Compare(a, b)
	case erra != nil:
		return -1
	case errb != nil:
		return 1
	case ida.Less(idb):
		return -1
	case idb.Less(ida):
		return 1
	default:
		return 0
	}
}
