//go:generate mockgen -source=$GOFILE -package=$GOPACKAGE -destination=./mock/$GOFILE

package dispatch

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	runsmodel "github.com/hitesh22rana/runstream/internal/model/runs"
	loggerpkg "github.com/hitesh22rana/runstream/internal/pkg/logger"
	svcpkg "github.com/hitesh22rana/runstream/internal/pkg/svc"
)

// Dispatcher hands a run to one execution backend.
// It returns (false, nil) when the backend is not configured.
type Dispatcher interface {
	Backend() runsmodel.Backend
	Dispatch(ctx context.Context, run *runsmodel.WorkflowRun) (bool, error)
}

// Outcomes recorded on the dispatch counter.
const (
	outcomeDispatched    = "dispatched"
	outcomeNotConfigured = "not_configured"
	outcomeError         = "error"
)

// Selector dispatches through the primary backend and falls back to the secondary one only when
// the primary is not configured. Transient failures are returned as-is so a run is never started
// on two backends.
type Selector struct {
	tp       trace.Tracer
	primary  Dispatcher
	fallback Dispatcher
	outcomes metric.Int64Counter
}

// New creates a new dispatch selector. fallback may be nil.
func New(primary, fallback Dispatcher) *Selector {
	outcomes, err := otel.Meter(svcpkg.Info().GetName()).Int64Counter(
		"runstream.dispatch.outcomes",
		metric.WithDescription("Dispatch attempts by backend and outcome"),
	)
	if err != nil {
		otel.Handle(err)
	}

	return &Selector{
		tp:       otel.Tracer(svcpkg.Info().GetName()),
		primary:  primary,
		fallback: fallback,
		outcomes: outcomes,
	}
}

// Dispatch returns the backend that accepted the run.
func (s *Selector) Dispatch(ctx context.Context, run *runsmodel.WorkflowRun) (backend runsmodel.Backend, dispatched bool, err error) {
	ctx, span := s.tp.Start(ctx, "Selector.Dispatch", trace.WithAttributes(attribute.String("run_id", run.ID)))
	defer func() {
		if err != nil {
			span.SetStatus(otelcodes.Error, err.Error())
			span.RecordError(err)
		}
		span.End()
	}()

	for _, d := range []Dispatcher{s.primary, s.fallback} {
		if d == nil {
			continue
		}

		dispatched, err = d.Dispatch(ctx, run)
		s.record(ctx, d.Backend(), dispatched, err)
		if err != nil {
			return d.Backend(), false, err
		}
		if dispatched {
			return d.Backend(), true, nil
		}

		loggerpkg.FromContext(ctx).Warn(
			"dispatch backend not configured, trying the next one",
			zap.String("run_id", run.ID),
			zap.String("backend", string(d.Backend())),
		)
	}

	return "", false, nil
}

func (s *Selector) record(ctx context.Context, backend runsmodel.Backend, dispatched bool, err error) {
	if s.outcomes == nil {
		return
	}

	outcome := outcomeNotConfigured
	switch {
	case err != nil:
		outcome = outcomeError
	case dispatched:
		outcome = outcomeDispatched
	}

	s.outcomes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("backend", string(backend)),
		attribute.String("outcome", outcome),
	))
}
