//go:generate mockgen -source=$GOFILE -package=$GOPACKAGE -destination=./mock/$GOFILE

package runs

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	runsmodel "github.com/hitesh22rana/runstream/internal/model/runs"
	loggerpkg "github.com/hitesh22rana/runstream/internal/pkg/logger"
	svcpkg "github.com/hitesh22rana/runstream/internal/pkg/svc"
)

// Repository provides run and session persistence.
type Repository interface {
	CreateRun(ctx context.Context, run *runsmodel.WorkflowRun) error
	GetRun(ctx context.Context, tenantID, runID string) (*runsmodel.WorkflowRun, error)
	MarkDispatched(ctx context.Context, tenantID, runID string, backend runsmodel.Backend) (bool, error)
	TransitionRun(ctx context.Context, tenantID, runID string, to runsmodel.Status, reason string) (bool, error)
	ActivateSession(ctx context.Context, tenantID, sessionID, runID string) error
	ReleaseSession(ctx context.Context, tenantID, sessionID, runID string) error
}

// Dispatcher hands a run to an execution backend.
type Dispatcher interface {
	Dispatch(ctx context.Context, run *runsmodel.WorkflowRun) (runsmodel.Backend, bool, error)
}

// Service triggers and tracks workflow runs.
type Service struct {
	validator  *validator.Validate
	tp         trace.Tracer
	repo       Repository
	dispatcher Dispatcher
}

// New creates a new runs service.
func New(validator *validator.Validate, repo Repository, dispatcher Dispatcher) *Service {
	return &Service{
		validator:  validator,
		tp:         otel.Tracer(svcpkg.Info().GetName()),
		repo:       repo,
		dispatcher: dispatcher,
	}
}

// Trigger records a new run and dispatches it. A run that cannot be dispatched is marked failed
// and the error is returned, the caller retries with a new run id.
func (s *Service) Trigger(ctx context.Context, req *runsmodel.TriggerRequest) (run *runsmodel.WorkflowRun, err error) {
	ctx, span := s.tp.Start(ctx, "Service.Trigger")
	defer func() {
		if err != nil {
			span.SetStatus(otelcodes.Error, err.Error())
			span.RecordError(err)
		}
		span.End()
	}()

	if err = s.validator.Struct(req); err != nil {
		err = status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
		return nil, err
	}

	run = &runsmodel.WorkflowRun{
		ID:          req.RunID,
		TenantID:    req.TenantID,
		WorkspaceID: req.WorkspaceID,
		ScenarioID:  req.ScenarioID,
		WorkflowID:  req.WorkflowID,
		SessionID:   req.SessionID,
		Engine:      req.Engine,
		ChangesetID: req.ChangesetID,
		Status:      runsmodel.StatusQueued,
		Inputs:      req.Inputs,
		RequestedAt: req.RequestedAt,
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.SessionID == "" {
		run.SessionID = runsmodel.SessionIDFromInputs(req.Inputs)
	}
	if run.Inputs == nil {
		run.Inputs = map[string]any{}
	}
	if run.RequestedAt.IsZero() {
		run.RequestedAt = time.Now().UTC()
	}

	span.SetAttributes(attribute.String("run_id", run.ID))
	ctx = loggerpkg.With(ctx, zap.String("run_id", run.ID), zap.String("tenant_id", run.TenantID))
	logger := loggerpkg.FromContext(ctx)

	if err = s.repo.CreateRun(ctx, run); err != nil {
		return nil, err
	}

	backend, dispatched, err := s.dispatcher.Dispatch(ctx, run)
	if err != nil {
		logger.Error("failed to dispatch run", zap.Error(err))
		s.fail(ctx, run, "dispatch failed: "+status.Convert(err).Message())
		return nil, err
	}
	if !dispatched {
		logger.Warn("no dispatch backend is configured")
		s.fail(ctx, run, "dispatch backend not configured")
		err = status.Error(codes.FailedPrecondition, "dispatch backend not configured")
		return nil, err
	}

	if _, err = s.repo.MarkDispatched(ctx, run.TenantID, run.ID, backend); err != nil {
		// The run is already with the runtime, so it is not failed here.
		logger.Error("failed to record dispatch", zap.Error(err))
		return nil, err
	}
	run.Backend = backend
	run.Status = runsmodel.StatusDispatched

	if run.SessionID != "" {
		if _err := s.repo.ActivateSession(ctx, run.TenantID, run.SessionID, run.ID); _err != nil {
			logger.Warn("failed to activate session", zap.String("session_id", run.SessionID), zap.Error(_err))
		}
	}

	logger.Info("run dispatched", zap.String("backend", string(backend)))
	return run, nil
}

// fail marks the run failed and frees its session.
func (s *Service) fail(ctx context.Context, run *runsmodel.WorkflowRun, reason string) {
	ctx = context.WithoutCancel(ctx)
	logger := loggerpkg.FromContext(ctx)

	if _, err := s.repo.TransitionRun(ctx, run.TenantID, run.ID, runsmodel.StatusFailed, reason); err != nil {
		logger.Error("failed to mark run failed", zap.Error(err))
	}
	run.Status = runsmodel.StatusFailed
	run.FailureReason = reason

	if run.SessionID != "" {
		if err := s.repo.ReleaseSession(ctx, run.TenantID, run.SessionID, run.ID); err != nil {
			logger.Error("failed to release session", zap.Error(err))
		}
	}
}

// GetRun returns the run owned by the tenant.
func (s *Service) GetRun(ctx context.Context, tenantID, runID string) (run *runsmodel.WorkflowRun, err error) {
	ctx, span := s.tp.Start(ctx, "Service.GetRun")
	defer func() {
		if err != nil {
			span.SetStatus(otelcodes.Error, err.Error())
			span.RecordError(err)
		}
		span.End()
	}()

	if tenantID == "" || runID == "" {
		err = status.Error(codes.InvalidArgument, "tenant id and run id are required")
		return nil, err
	}

	return s.repo.GetRun(ctx, tenantID, runID)
}
