//go:generate mockgen -source=$GOFILE -package=$GOPACKAGE -destination=./mock/$GOFILE

package eventarchive

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	eventsmodel "github.com/hitesh22rana/runstream/internal/model/events"
	loggerpkg "github.com/hitesh22rana/runstream/internal/pkg/logger"
	svcpkg "github.com/hitesh22rana/runstream/internal/pkg/svc"
)

// retryBackoff is the duration to wait before retrying an operation.
var retryBackoff = time.Second

// Consumer reads archived events from the broker.
type Consumer interface {
	PollFetches(ctx context.Context) kgo.Fetches
	CommitRecords(ctx context.Context, rs ...*kgo.Record) error
}

// Inserter writes rows in batches.
type Inserter interface {
	BatchInsert(ctx context.Context, query string, prepareFn func(batch driver.Batch) error) error
}

// Config represents the repository constants configuration.
type Config struct {
	BatchSizeLimit    int
	BatchTimeInterval time.Duration
}

// Repository copies every appended event from the archive topic into ClickHouse.
type Repository struct {
	tp  trace.Tracer
	cfg *Config
	ch  Inserter
	kfk Consumer
}

// New creates a new event archive repository.
func New(cfg *Config, ch Inserter, kfk Consumer) *Repository {
	return &Repository{
		tp:  otel.Tracer(svcpkg.Info().GetName()),
		cfg: cfg,
		ch:  ch,
		kfk: kfk,
	}
}

// queueData is a decoded record waiting for the next batch.
type queueData struct {
	record *kgo.Record
	event  *eventsmodel.Event
}

// Run consumes the archive topic until ctx is cancelled. Offsets are committed only after the
// batch holding the records is stored.
func (r *Repository) Run(ctx context.Context) error {
	logger := loggerpkg.FromContext(ctx)

	var (
		exitCh = make(chan error, 1)

		queue   = make([]*queueData, 0, r.cfg.BatchSizeLimit)
		queueMu sync.Mutex
	)

	drain := func() []*queueData {
		queueMu.Lock()
		defer queueMu.Unlock()

		data := queue
		queue = make([]*queueData, 0, r.cfg.BatchSizeLimit)
		return data
	}

	processingCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		ticker := time.NewTicker(r.cfg.BatchTimeInterval)
		defer ticker.Stop()

		for {
			select {
			case <-processingCtx.Done():
				data := drain()

				//nolint:errcheck // Ignore error as we are exiting
				withRetry(func() error {
					return r.processBatch(context.WithoutCancel(ctx), data)
				})

				exitCh <- nil
				return

			case <-ticker.C:
				data := drain()
				if err := withRetry(func() error {
					return r.processBatch(ctx, data)
				}); err != nil {
					logger.Error("error processing batch", zap.Error(err))
				}
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			// Wait for the processor to flush the final batch
			cancel()
			if err := <-exitCh; err != nil {
				return err
			}
			return ctx.Err()
		default:
		}

		fetches := r.kfk.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return status.Error(codes.Canceled, "client closed")
		}

		if fetches.Empty() {
			continue
		}

		for _, fetchErr := range fetches.Errors() {
			logger.Error("error while fetching records",
				zap.String("topic", fetchErr.Topic),
				zap.Int32("partition", fetchErr.Partition),
				zap.Error(fetchErr.Err),
			)
		}

		iter := fetches.RecordIter()
		for !iter.Done() {
			record := iter.Next()

			var event eventsmodel.Event
			if err := json.Unmarshal(record.Value, &event); err != nil || event.ID == "" || event.RunID == "" {
				logger.Error("skipping malformed archive record",
					zap.String("topic", record.Topic),
					zap.Int64("offset", record.Offset),
					zap.Int32("partition", record.Partition),
					zap.Error(err),
				)

				// Commit it to avoid reprocessing
				if err := r.kfk.CommitRecords(ctx, record); err != nil {
					logger.Error("failed to commit record", zap.Int64("offset", record.Offset), zap.Error(err))
				}
				continue
			}

			queueMu.Lock()
			if len(queue) >= r.cfg.BatchSizeLimit {
				data := queue
				queue = make([]*queueData, 0, r.cfg.BatchSizeLimit)

				go func() {
					if err := withRetry(func() error {
						return r.processBatch(context.WithoutCancel(ctx), data)
					}); err != nil {
						logger.Error("error processing batch", zap.Error(err))
					}
				}()
			}
			queue = append(queue, &queueData{record: record, event: &event})
			queueMu.Unlock()
		}
	}
}

// withRetry executes the given function and retries once if it fails with an error
// other than codes.FailedPrecondition or codes.InvalidArgument.
func withRetry(fn func() error) error {
	err := fn()
	if err == nil {
		return nil
	}

	if status.Code(err) == codes.FailedPrecondition || status.Code(err) == codes.InvalidArgument {
		return err
	}

	time.Sleep(retryBackoff)

	return fn()
}
