package eventlog

import (
	"context"
	"encoding/json"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	eventsmodel "github.com/hitesh22rana/runstream/internal/model/events"
	redispkg "github.com/hitesh22rana/runstream/internal/pkg/redis"
	svcpkg "github.com/hitesh22rana/runstream/internal/pkg/svc"
)

// Stream record fields.
const (
	fieldType      = "type"
	fieldRole      = "role"
	fieldMessage   = "message"
	fieldMetadata  = "metadata"
	fieldCreatedAt = "created_at"
)

// Store is the subset of the Redis store the event log needs.
type Store interface {
	AppendStream(ctx context.Context, key string, records [][]string, ttl time.Duration) ([]string, error)
	AppendStreamIf(ctx context.Context, key string, accept func(last *redispkg.StreamEntry) error, records [][]string, ttl time.Duration) ([]string, error)
	ReadStream(ctx context.Context, key, afterID string, count int64, block time.Duration) ([]redispkg.StreamEntry, error)
}

// Repository is the Redis Streams backed event log. Every run has its own stream.
type Repository struct {
	tp        trace.Tracer
	store     Store
	retention time.Duration
}

// New creates a new Redis event log. A positive retention is refreshed on every append.
func New(store Store, retention time.Duration) *Repository {
	return &Repository{
		tp:        otel.Tracer(svcpkg.Info().GetName()),
		store:     store,
		retention: retention,
	}
}

// Append writes the events as one contiguous block and sets their ids.
func (r *Repository) Append(ctx context.Context, tenantID, runID string, evs []*eventsmodel.Event) (ids []string, err error) {
	ctx, span := r.tp.Start(
		ctx,
		"Repository.Append",
		trace.WithAttributes(
			attribute.String("run_id", runID),
			attribute.Int("events", len(evs)),
		),
	)
	defer func() {
		if err != nil {
			span.SetStatus(otelcodes.Error, err.Error())
			span.RecordError(err)
		}
		span.End()
	}()

	if len(evs) == 0 {
		return nil, nil
	}

	records := make([][]string, 0, len(evs))
	for _, ev := range evs {
		record, _err := encode(ev)
		if _err != nil {
			err = _err
			return nil, err
		}
		records = append(records, record)
	}

	ids, err = r.store.AppendStream(ctx, redispkg.EventLogKey(tenantID, runID), records, r.retention)
	if err != nil {
		return nil, err
	}

	for i, ev := range evs {
		ev.ID = ids[i]
		ev.RunID = runID
		ev.TenantID = tenantID
	}

	return ids, nil
}

// AppendInbound writes a client event unless the run's log already ends with a terminal event.
func (r *Repository) AppendInbound(ctx context.Context, tenantID, runID string, ev *eventsmodel.Event) (id string, err error) {
	ctx, span := r.tp.Start(
		ctx,
		"Repository.AppendInbound",
		trace.WithAttributes(
			attribute.String("run_id", runID),
			attribute.String("event_type", ev.Type.ToString()),
		),
	)
	defer func() {
		if err != nil {
			span.SetStatus(otelcodes.Error, err.Error())
			span.RecordError(err)
		}
		span.End()
	}()

	record, err := encode(ev)
	if err != nil {
		return "", err
	}

	ids, err := r.store.AppendStreamIf(ctx, redispkg.EventLogKey(tenantID, runID), func(last *redispkg.StreamEntry) error {
		if last == nil {
			return nil
		}
		typ, _ := last.Values[fieldType].(string)
		return rejectAfterTerminal(eventsmodel.Type(typ))
	}, [][]string{record}, r.retention)
	if err != nil {
		return "", err
	}

	ev.ID = ids[0]
	ev.RunID = runID
	ev.TenantID = tenantID

	return ev.ID, nil
}

// rejectAfterTerminal fails when last ends the run.
func rejectAfterTerminal(last eventsmodel.Type) error {
	if last.IsTerminal() {
		return status.Errorf(codes.FailedPrecondition, "run already ended with %s", last)
	}
	return nil
}

// Read returns up to count events with ids strictly greater than afterID. A positive block waits
// that long for new events when none are available yet.
func (r *Repository) Read(ctx context.Context, tenantID, runID, afterID string, count int64, block time.Duration) (evs []*eventsmodel.Event, err error) {
	ctx, span := r.tp.Start(
		ctx,
		"Repository.Read",
		trace.WithAttributes(
			attribute.String("run_id", runID),
			attribute.String("after_id", afterID),
		),
	)
	defer func() {
		if err != nil {
			span.SetStatus(otelcodes.Error, err.Error())
			span.RecordError(err)
		}
		span.End()
	}()

	switch {
	case block <= 0:
		// Redis treats a zero block as forever.
		block = -1
	case block < time.Millisecond:
		// Sub-millisecond blocks would be truncated to BLOCK 0.
		block = time.Millisecond
	}

	entries, err := r.store.ReadStream(ctx, redispkg.EventLogKey(tenantID, runID), afterID, count, block)
	if err != nil {
		return nil, err
	}

	evs = make([]*eventsmodel.Event, 0, len(entries))
	for _, entry := range entries {
		ev, _err := decode(entry)
		if _err != nil {
			err = _err
			return nil, err
		}
		ev.RunID = runID
		ev.TenantID = tenantID
		evs = append(evs, ev)
	}

	return evs, nil
}

func encode(ev *eventsmodel.Event) ([]string, error) {
	metadata := ev.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}

	data, err := json.Marshal(metadata)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "failed to marshal metadata: %v", err)
	}

	createdAt := ev.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	return []string{
		fieldType, ev.Type.ToString(),
		fieldRole, string(ev.Role),
		fieldMessage, ev.Message,
		fieldMetadata, string(data),
		fieldCreatedAt, createdAt.UTC().Format(time.RFC3339Nano),
	}, nil
}

func decode(entry redispkg.StreamEntry) (*eventsmodel.Event, error) {
	field := func(name string) string {
		v, _ := entry.Values[name].(string)
		return v
	}

	ev := &eventsmodel.Event{
		ID:       entry.ID,
		Type:     eventsmodel.Type(field(fieldType)),
		Role:     eventsmodel.Role(field(fieldRole)),
		Message:  field(fieldMessage),
		Metadata: map[string]any{},
	}

	if raw := field(fieldMetadata); raw != "" {
		if err := json.Unmarshal([]byte(raw), &ev.Metadata); err != nil {
			return nil, status.Errorf(codes.Internal, "failed to decode event %s: %v", entry.ID, err)
		}
	}

	if raw := field(fieldCreatedAt); raw != "" {
		createdAt, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, status.Errorf(codes.Internal, "failed to decode event %s: %v", entry.ID, err)
		}
		ev.CreatedAt = createdAt
	}

	return ev, nil
}
