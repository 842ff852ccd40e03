//go:generate mockgen -source=$GOFILE -package=$GOPACKAGE -destination=./mock/$GOFILE

package events

import (
	"context"
	"time"

	"github.com/eapache/go-resiliency/retrier"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	eventsmodel "github.com/hitesh22rana/runstream/internal/model/events"
	runsmodel "github.com/hitesh22rana/runstream/internal/model/runs"
	loggerpkg "github.com/hitesh22rana/runstream/internal/pkg/logger"
	svcpkg "github.com/hitesh22rana/runstream/internal/pkg/svc"
)

const maxRetryBackoff = 5 * time.Second

// Runs provides the run state the event service reads and advances.
type Runs interface {
	GetRun(ctx context.Context, tenantID, runID string) (*runsmodel.WorkflowRun, error)
	TransitionRun(ctx context.Context, tenantID, runID string, to runsmodel.Status, reason string) (bool, error)
	FinalizeSession(ctx context.Context, tenantID, sessionID string) (bool, error)
	ReleaseSession(ctx context.Context, tenantID, sessionID, runID string) error
}

// Log is the per run event log.
type Log interface {
	Append(ctx context.Context, tenantID, runID string, evs []*eventsmodel.Event) ([]string, error)
	AppendInbound(ctx context.Context, tenantID, runID string, ev *eventsmodel.Event) (string, error)
	Read(ctx context.Context, tenantID, runID, afterID string, count int64, block time.Duration) ([]*eventsmodel.Event, error)
}

// Archiver copies appended events to the analytics archive.
type Archiver interface {
	Publish(ctx context.Context, evs []*eventsmodel.Event)
}

// Emitter receives the frames of a subscription.
type Emitter interface {
	// Event delivers one event.
	Event(ev *eventsmodel.Event) error
	// Idle is called when a live read returned nothing.
	Idle() error
}

// Config holds the stream reader configuration.
type Config struct {
	BlockTimeout  time.Duration
	BatchSize     int64
	RetryWindow   time.Duration
	RetryInterval time.Duration
}

// Service appends and streams the events of a run.
type Service struct {
	cfg       *Config
	validator *validator.Validate
	tp        trace.Tracer
	appended  metric.Int64Counter
	runs      Runs
	log       Log
	archiver  Archiver
	retrier   *retrier.Retrier
}

// New creates a new events service. archiver may be nil.
func New(cfg *Config, validator *validator.Validate, runs Runs, log Log, archiver Archiver) *Service {
	appended, _ := otel.Meter(svcpkg.Info().GetName()).Int64Counter(
		"runstream.events.appended",
		metric.WithDescription("Number of events appended to run logs, by role."),
	)

	return &Service{
		cfg:       cfg,
		validator: validator,
		tp:        otel.Tracer(svcpkg.Info().GetName()),
		appended:  appended,
		runs:      runs,
		log:       log,
		archiver:  archiver,
		retrier:   retrier.New(backoffWithin(cfg.RetryWindow, cfg.RetryInterval), unavailableClassifier{}),
	}
}

// unavailableClassifier retries only when the log backend is unreachable.
type unavailableClassifier struct{}

func (unavailableClassifier) Classify(err error) retrier.Action {
	switch {
	case err == nil:
		return retrier.Succeed
	case status.Code(err) == codes.Unavailable:
		return retrier.Retry
	default:
		return retrier.Fail
	}
}

// backoffWithin returns exponential backoff steps that add up to window.
func backoffWithin(window, interval time.Duration) []time.Duration {
	if window <= 0 || interval <= 0 {
		return nil
	}

	var (
		steps []time.Duration
		total time.Duration
	)
	for d := interval; total < window; d *= 2 {
		d = min(d, maxRetryBackoff, window-total)
		steps = append(steps, d)
		total += d
	}

	return steps
}

// SubmitRequest is an inbound client event.
type SubmitRequest struct {
	TenantID string           `validate:"required"`
	RunID    string           `validate:"required"`
	Type     eventsmodel.Type `validate:"required"`
	Message  string
	Metadata map[string]any
}

// Submit validates a client event and appends it to the run's log. It never waits for the runtime.
func (s *Service) Submit(ctx context.Context, req *SubmitRequest) (eventID string, err error) {
	ctx, span := s.tp.Start(
		ctx,
		"Service.Submit",
		trace.WithAttributes(
			attribute.String("run_id", req.RunID),
			attribute.String("event_type", req.Type.ToString()),
		),
	)
	defer func() {
		if err != nil {
			span.SetStatus(otelcodes.Error, err.Error())
			span.RecordError(err)
		}
		span.End()
	}()

	if err = s.validator.Struct(req); err != nil {
		err = status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
		return "", err
	}

	if err = eventsmodel.ValidateInbound(req.Type, req.Message, req.Metadata); err != nil {
		return "", err
	}

	run, err := s.runs.GetRun(ctx, req.TenantID, req.RunID)
	if err != nil {
		return "", err
	}
	if run.Status.IsTerminal() {
		err = status.Errorf(codes.FailedPrecondition, "run is %s", run.Status)
		return "", err
	}

	metadata := req.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}

	ev := &eventsmodel.Event{
		Type:      req.Type,
		Role:      eventsmodel.RoleClient,
		Message:   req.Message,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}

	// The log rejects the event when a terminal event landed after the status check above
	eventID, err = s.log.AppendInbound(ctx, req.TenantID, req.RunID, ev)
	if err != nil {
		if status.Code(err) != codes.FailedPrecondition {
			loggerpkg.FromContext(ctx).Error(
				"failed to append events",
				zap.String("run_id", req.RunID),
				zap.String("tenant_id", req.TenantID),
				zap.Error(err),
			)
		}
		return "", err
	}
	s.appendedEvents(ctx, []*eventsmodel.Event{ev})

	return eventID, nil
}

// AppendRuntime appends the records a runtime produced and advances the run and session state.
func (s *Service) AppendRuntime(ctx context.Context, tenantID, runID string, recs []*eventsmodel.Record) (ids []string, err error) {
	ctx, span := s.tp.Start(
		ctx,
		"Service.AppendRuntime",
		trace.WithAttributes(
			attribute.String("run_id", runID),
			attribute.Int("records", len(recs)),
		),
	)
	defer func() {
		if err != nil {
			span.SetStatus(otelcodes.Error, err.Error())
			span.RecordError(err)
		}
		span.End()
	}()

	if len(recs) == 0 {
		err = status.Error(codes.InvalidArgument, "no records")
		return nil, err
	}

	now := time.Now().UTC()
	evs := make([]*eventsmodel.Event, 0, len(recs))
	for i, rec := range recs {
		switch {
		case rec == nil || rec.Type == "":
			err = status.Errorf(codes.InvalidArgument, "record %d has no event type", i)
			return nil, err
		case rec.Type.IsInbound():
			err = status.Errorf(codes.InvalidArgument, "record %d: %q is a client event type", i, rec.Type)
			return nil, err
		case i > 0 && recs[i-1].Type.IsTerminal():
			err = status.Errorf(codes.InvalidArgument, "record %d follows a terminal event", i)
			return nil, err
		}

		metadata := rec.Metadata
		if metadata == nil {
			metadata = map[string]any{}
		}
		evs = append(evs, &eventsmodel.Event{
			Type:      rec.Type,
			Role:      eventsmodel.RoleRuntime,
			Message:   rec.Message,
			Metadata:  metadata,
			CreatedAt: now,
		})
	}

	run, err := s.runs.GetRun(ctx, tenantID, runID)
	if err != nil {
		return nil, err
	}
	if run.Status.IsTerminal() {
		err = status.Errorf(codes.FailedPrecondition, "run is %s", run.Status)
		return nil, err
	}

	ids, err = s.append(ctx, tenantID, runID, evs)
	if err != nil {
		return nil, err
	}

	s.advance(ctx, run, evs)
	return ids, nil
}

func (s *Service) append(ctx context.Context, tenantID, runID string, evs []*eventsmodel.Event) ([]string, error) {
	ids, err := s.log.Append(ctx, tenantID, runID, evs)
	if err != nil {
		loggerpkg.FromContext(ctx).Error(
			"failed to append events",
			zap.String("run_id", runID),
			zap.String("tenant_id", tenantID),
			zap.Error(err),
		)
		return nil, err
	}
	s.appendedEvents(ctx, evs)

	return ids, nil
}

// appendedEvents counts and archives events that are durable in the log.
func (s *Service) appendedEvents(ctx context.Context, evs []*eventsmodel.Event) {
	if s.appended != nil {
		s.appended.Add(ctx, int64(len(evs)), metric.WithAttributes(attribute.String("role", string(evs[0].Role))))
	}
	if s.archiver != nil {
		s.archiver.Publish(ctx, evs)
	}
}

// advance applies the run and session effects of appended runtime events.
// The events are already durable, so failures here are logged and not returned.
func (s *Service) advance(ctx context.Context, run *runsmodel.WorkflowRun, evs []*eventsmodel.Event) {
	ctx = context.WithoutCancel(ctx)
	logger := loggerpkg.FromContext(ctx).With(
		zap.String("run_id", run.ID),
		zap.String("tenant_id", run.TenantID),
	)

	if run.Status == runsmodel.StatusQueued || run.Status == runsmodel.StatusDispatched {
		if _, err := s.runs.TransitionRun(ctx, run.TenantID, run.ID, runsmodel.StatusRunning, ""); err != nil {
			logger.Error("failed to mark run running", zap.Error(err))
		}
	}

	for _, ev := range evs {
		//nolint:exhaustive // other events carry no state change
		switch ev.Type {
		case eventsmodel.TypeOntologyFinalized:
			if run.SessionID == "" {
				continue
			}
			if _, err := s.runs.FinalizeSession(ctx, run.TenantID, run.SessionID); err != nil {
				logger.Error("failed to finalize session", zap.String("session_id", run.SessionID), zap.Error(err))
			}
		case eventsmodel.TypeWorkflowComplete:
			s.finish(ctx, logger, run, runsmodel.StatusCompleted, "")
		case eventsmodel.TypeWorkflowError:
			reason, _ := ev.Metadata[eventsmodel.MetaReason].(string)
			if reason == "" {
				reason = ev.Message
			}
			s.finish(ctx, logger, run, runsmodel.StatusFailed, reason)
		}
	}
}

func (s *Service) finish(ctx context.Context, logger *zap.Logger, run *runsmodel.WorkflowRun, to runsmodel.Status, reason string) {
	if _, err := s.runs.TransitionRun(ctx, run.TenantID, run.ID, to, reason); err != nil {
		logger.Error("failed to finish run", zap.String("status", to.ToString()), zap.Error(err))
	}

	if run.SessionID == "" {
		return
	}
	if err := s.runs.ReleaseSession(ctx, run.TenantID, run.SessionID, run.ID); err != nil {
		logger.Error("failed to release session", zap.String("session_id", run.SessionID), zap.Error(err))
	}
}

// Stream replays the events after lastEventID and then follows the log live. It returns after a
// terminal event, once a terminal run is caught up, or when ctx is done.
func (s *Service) Stream(ctx context.Context, tenantID, runID, lastEventID string, emitter Emitter) (err error) {
	ctx, span := s.tp.Start(
		ctx,
		"Service.Stream",
		trace.WithAttributes(attribute.String("run_id", runID)),
	)
	defer func() {
		if err != nil {
			span.SetStatus(otelcodes.Error, err.Error())
			span.RecordError(err)
		}
		span.End()
	}()

	after, err := eventsmodel.NormalizeResumeID(lastEventID)
	if err != nil {
		return err
	}

	run, err := s.runs.GetRun(ctx, tenantID, runID)
	if err != nil {
		return err
	}

	logger := loggerpkg.FromContext(ctx).With(zap.String("run_id", runID), zap.String("tenant_id", tenantID))
	terminal := run.Status.IsTerminal()

	for {
		block := s.cfg.BlockTimeout
		if terminal {
			block = 0
		}

		evs, _err := s.read(ctx, tenantID, runID, after, block)
		if _err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if status.Code(_err) == codes.Unavailable {
				logger.Error("event log unavailable, closing stream", zap.Error(_err))
				return emitter.Event(logUnavailable(tenantID, runID))
			}
			err = _err
			return err
		}

		for _, ev := range evs {
			if err = emitter.Event(ev); err != nil {
				return err
			}
			after = ev.ID
			if ev.Type.IsTerminal() {
				return nil
			}
		}

		if len(evs) > 0 {
			continue
		}
		if terminal {
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}

		if err = emitter.Idle(); err != nil {
			return err
		}

		current, _err := s.runs.GetRun(ctx, tenantID, runID)
		if _err != nil {
			logger.Warn("failed to refresh run status", zap.Error(_err))
			continue
		}
		terminal = current.Status.IsTerminal()
	}
}

func (s *Service) read(ctx context.Context, tenantID, runID, after string, block time.Duration) ([]*eventsmodel.Event, error) {
	var evs []*eventsmodel.Event
	err := s.retrier.RunCtx(ctx, func(ctx context.Context) error {
		var err error
		evs, err = s.log.Read(ctx, tenantID, runID, after, s.cfg.BatchSize, block)
		return err
	})
	return evs, err
}

// logUnavailable is the synthetic terminal frame sent when the log cannot be read. It has no id,
// so a client resuming after it starts from its last real event.
func logUnavailable(tenantID, runID string) *eventsmodel.Event {
	return &eventsmodel.Event{
		RunID:    runID,
		TenantID: tenantID,
		Type:     eventsmodel.TypeWorkflowError,
		Role:     eventsmodel.RoleSystem,
		Message:  "event log unavailable",
		Metadata: map[string]any{
			eventsmodel.MetaCode:   eventsmodel.ErrorCodeLogUnavailable,
			eventsmodel.MetaReason: "event log unavailable",
		},
		CreatedAt: time.Now().UTC(),
	}
}
