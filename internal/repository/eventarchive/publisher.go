package eventarchive

import (
	"context"
	"encoding/json"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"

	eventsmodel "github.com/hitesh22rana/runstream/internal/model/events"
	kafkapkg "github.com/hitesh22rana/runstream/internal/pkg/kafka"
	loggerpkg "github.com/hitesh22rana/runstream/internal/pkg/logger"
)

// AsyncProducer publishes records without waiting for the broker.
type AsyncProducer interface {
	Produce(ctx context.Context, r *kgo.Record, promise func(*kgo.Record, error))
}

// Publisher forwards appended events to the archive topic. The event log stays the source of
// truth, so publishing is best effort.
type Publisher struct {
	producer AsyncProducer
	topic    string
}

// NewPublisher creates a publisher. A nil producer or empty topic disables it.
func NewPublisher(producer AsyncProducer, topic string) *Publisher {
	return &Publisher{
		producer: producer,
		topic:    topic,
	}
}

// Publish enqueues one record per event, keyed by run id.
func (p *Publisher) Publish(ctx context.Context, evs []*eventsmodel.Event) {
	if p == nil || p.producer == nil || p.topic == "" {
		return
	}

	logger := loggerpkg.FromContext(ctx)
	for _, ev := range evs {
		value, err := json.Marshal(ev)
		if err != nil {
			logger.Warn("failed to marshal archive event", zap.String("event_id", ev.ID), zap.Error(err))
			continue
		}

		headers := []kgo.RecordHeader{{Key: kafkapkg.HeaderEventType, Value: []byte(ev.Type)}}
		if h, ok := kafkapkg.Header(kafkapkg.HeaderTenantID, ev.TenantID); ok {
			headers = append(headers, h)
		}

		p.producer.Produce(
			context.WithoutCancel(ctx),
			&kgo.Record{
				Topic:   p.topic,
				Key:     []byte(ev.RunID),
				Value:   value,
				Headers: headers,
			},
			func(r *kgo.Record, err error) {
				if err != nil {
					logger.Warn("failed to archive event",
						zap.String("run_id", string(r.Key)),
						zap.Error(err),
					)
				}
			},
		)
	}
}
