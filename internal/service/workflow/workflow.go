//go:generate mockgen -source=$GOFILE -package=$GOPACKAGE -destination=./mock/$GOFILE

package workflow

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	svcpkg "github.com/hitesh22rana/runstream/internal/pkg/svc"
)

// Repository executes workflow runs.
type Repository interface {
	Run(ctx context.Context) error
	RunJob(ctx context.Context, payloadURL, tenantID, runID string) error
}

// Service provides workflow runtime operations.
type Service struct {
	tp   trace.Tracer
	repo Repository
}

// New creates a new workflow service.
func New(repo Repository) *Service {
	return &Service{
		tp:   otel.Tracer(svcpkg.Info().GetName()),
		repo: repo,
	}
}

// Run consumes dispatched runs from the queue until ctx is done.
func (s *Service) Run(ctx context.Context) (err error) {
	err = s.repo.Run(ctx)
	if err != nil {
		return err
	}

	return nil
}

// RunJob executes the single run whose payload the signed URL points to.
func (s *Service) RunJob(ctx context.Context, payloadURL, tenantID, runID string) (err error) {
	ctx, span := s.tp.Start(
		ctx,
		"Service.RunJob",
		trace.WithAttributes(attribute.String("run_id", runID)),
	)
	defer func() {
		if err != nil {
			span.SetStatus(otelcodes.Error, err.Error())
			span.RecordError(err)
		}
		span.End()
	}()

	if payloadURL == "" {
		err = status.Error(codes.InvalidArgument, "payload url is required")
		return err
	}

	return s.repo.RunJob(ctx, payloadURL, tenantID, runID)
}
