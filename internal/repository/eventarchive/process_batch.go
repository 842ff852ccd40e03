package eventarchive

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"

	eventsmodel "github.com/hitesh22rana/runstream/internal/model/events"
	"github.com/hitesh22rana/runstream/internal/pkg/clickhouse"
	loggerpkg "github.com/hitesh22rana/runstream/internal/pkg/logger"
)

// processBatch stores a batch of events and commits their offsets.
func (r *Repository) processBatch(ctx context.Context, batch []*queueData) error {
	if len(batch) == 0 {
		return nil
	}

	logger := loggerpkg.FromContext(ctx)

	ctx, span := r.tp.Start(ctx, "eventarchive.Run.processBatch")
	defer span.End()

	evs := make([]*eventsmodel.Event, 0, len(batch))
	records := make([]*kgo.Record, 0, len(batch))
	for _, item := range batch {
		evs = append(evs, item.event)
		records = append(records, item.record)
	}

	if err := r.insertEvents(ctx, evs); err != nil {
		logger.Error("failed to insert events batch", zap.Error(err))
		return err
	}

	if err := r.kfk.CommitRecords(ctx, records...); err != nil {
		logger.Error("failed to commit records batch", zap.Error(err))
		return err
	}

	logger.Info("archived events batch", zap.Int("records", len(records)))

	return nil
}

// insertEvents writes events into the archive table. Replayed records collapse on
// (tenant_id, run_id, event_id).
func (r *Repository) insertEvents(ctx context.Context, evs []*eventsmodel.Event) error {
	stmt := fmt.Sprintf(`
		INSERT INTO %s
		(tenant_id, run_id, event_id, event_type, role, message, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?);
	`, clickhouse.TableWorkflowEvents)

	return r.ch.BatchInsert(
		ctx,
		stmt,
		func(batch driver.Batch) error {
			for _, ev := range evs {
				metadata, err := json.Marshal(ev.Metadata)
				if err != nil {
					return err
				}

				if err := batch.Append(
					ev.TenantID,
					ev.RunID,
					ev.ID,
					ev.Type.ToString(),
					string(ev.Role),
					ev.Message,
					string(metadata),
					ev.CreatedAt,
				); err != nil {
					return err
				}
			}
			return nil
		},
	)
}
