package dispatch

import (
	"context"
	"encoding/json"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	runsmodel "github.com/hitesh22rana/runstream/internal/model/runs"
	kafkapkg "github.com/hitesh22rana/runstream/internal/pkg/kafka"
	loggerpkg "github.com/hitesh22rana/runstream/internal/pkg/logger"
	svcpkg "github.com/hitesh22rana/runstream/internal/pkg/svc"
)

// QueueDispatcher hands runs to long-lived workers through a broker topic.
type QueueDispatcher struct {
	tp       trace.Tracer
	producer Producer
	topic    string
}

// NewQueue creates a queue dispatcher. A nil producer or empty topic leaves it unconfigured.
func NewQueue(producer Producer, topic string) *QueueDispatcher {
	return &QueueDispatcher{
		tp:       otel.Tracer(svcpkg.Info().GetName()),
		producer: producer,
		topic:    topic,
	}
}

// Backend returns the backend tag recorded on dispatched runs.
func (d *QueueDispatcher) Backend() runsmodel.Backend {
	return runsmodel.BackendQueue
}

// Dispatch publishes one run request record keyed by the run id.
func (d *QueueDispatcher) Dispatch(ctx context.Context, run *runsmodel.WorkflowRun) (dispatched bool, err error) {
	ctx, span := d.tp.Start(
		ctx,
		"QueueDispatcher.Dispatch",
		trace.WithAttributes(attribute.String("run_id", run.ID)),
	)
	defer func() {
		if err != nil {
			span.SetStatus(otelcodes.Error, err.Error())
			span.RecordError(err)
		}
		span.End()
	}()

	if d.producer == nil || d.topic == "" {
		loggerpkg.FromContext(ctx).Warn(
			"queue dispatch backend is not configured",
			zap.String("run_id", run.ID),
		)
		return false, nil
	}

	value, err := json.Marshal(run.Payload())
	if err != nil {
		err = status.Errorf(codes.Internal, "failed to marshal dispatch payload: %v", err)
		return false, err
	}

	headers := []kgo.RecordHeader{{Key: kafkapkg.HeaderEventType, Value: []byte(EventTypeRunRequested)}}
	for _, h := range [][2]string{
		{kafkapkg.HeaderRunID, run.ID},
		{kafkapkg.HeaderTenantID, run.TenantID},
		{kafkapkg.HeaderWorkspaceID, run.WorkspaceID},
		{kafkapkg.HeaderEngine, run.Engine},
		{kafkapkg.HeaderChangesetID, run.ChangesetID},
	} {
		if header, ok := kafkapkg.Header(h[0], h[1]); ok {
			headers = append(headers, header)
		}
	}

	record := &kgo.Record{
		Topic:   d.topic,
		Key:     []byte(run.ID),
		Value:   value,
		Headers: headers,
	}

	if err = d.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		err = status.Errorf(codes.Unavailable, "failed to enqueue run: %v", err)
		return false, err
	}

	return true, nil
}
