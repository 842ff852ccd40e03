//go:generate mockgen -source=$GOFILE -package=$GOPACKAGE -destination=./mock/$GOFILE

package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	eventsmodel "github.com/hitesh22rana/runstream/internal/model/events"
	runsmodel "github.com/hitesh22rana/runstream/internal/model/runs"
	loggerpkg "github.com/hitesh22rana/runstream/internal/pkg/logger"
	svcpkg "github.com/hitesh22rana/runstream/internal/pkg/svc"
)

const retryBackoff = time.Second

// Sink appends runtime events to the log of a run.
type Sink interface {
	AppendRuntime(ctx context.Context, tenantID, runID string, recs []*eventsmodel.Record) ([]string, error)
}

// Log reads the events of a run.
type Log interface {
	Read(ctx context.Context, tenantID, runID, afterID string, count int64, block time.Duration) ([]*eventsmodel.Event, error)
}

// StateStore keeps run claims and session snapshots.
type StateStore interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Get(ctx context.Context, key string, dest any) error
}

// Consumer reads run requests from the broker.
type Consumer interface {
	PollFetches(ctx context.Context) kgo.Fetches
	CommitRecords(ctx context.Context, rs ...*kgo.Record) error
}

// PayloadFetcher downloads a dispatch payload through its signed URL.
type PayloadFetcher interface {
	Fetch(ctx context.Context, url string) (*runsmodel.DispatchPayload, error)
}

// Config represents the repository constants configuration.
type Config struct {
	ParallelismLimit int
	MaxRunDuration   time.Duration
	IdleTimeout      time.Duration
	PollTimeout      time.Duration
	ClaimTTL         time.Duration
	SnapshotTTL      time.Duration
	// ChunkSize is the number of words per partial agent message.
	ChunkSize int
}

// Repository is the workflow runtime. It executes ontology building sessions.
type Repository struct {
	tp      trace.Tracer
	cfg     *Config
	sink    Sink
	log     Log
	state   StateStore
	kfk     Consumer
	fetcher PayloadFetcher
}

// New creates a new workflow repository. The consumer is only needed by Run and the fetcher
// only by RunJob.
func New(cfg *Config, sink Sink, log Log, state StateStore, kfk Consumer, fetcher PayloadFetcher) *Repository {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 4
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 5 * time.Second
	}
	if cfg.ParallelismLimit <= 0 {
		cfg.ParallelismLimit = 1
	}

	return &Repository{
		tp:      otel.Tracer(svcpkg.Info().GetName()),
		cfg:     cfg,
		sink:    sink,
		log:     log,
		state:   state,
		kfk:     kfk,
		fetcher: fetcher,
	}
}

// Run consumes run requests from the queue until ctx is cancelled. Every run holds one of
// ParallelismLimit slots for as long as its session lasts, and polling continues while slots
// are free.
func (r *Repository) Run(ctx context.Context) error {
	logger := loggerpkg.FromContext(ctx)

	if r.kfk == nil {
		return status.Error(codes.FailedPrecondition, "queue consumer is not configured")
	}

	eg, groupCtx := errgroup.WithContext(ctx)
	eg.SetLimit(r.cfg.ParallelismLimit)
	defer func() {
		if err := eg.Wait(); err != nil {
			logger.Error("error while running goroutines", zap.Error(err))
		}
	}()

	for {
		// Check context cancellation before processing
		select {
		case <-ctx.Done():
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
			// Blocks only while every slot is busy
			eg.Go(func(record *kgo.Record) func() error {
				return func() error {
					r.processRecord(groupCtx, record)
					return nil
				}
			}(iter.Next()))
		}
	}
}

// processRecord executes the run carried by record and commits the record once the run is over.
func (r *Repository) processRecord(ctx context.Context, record *kgo.Record) {
	logger := loggerpkg.FromContext(ctx)

	var payload runsmodel.DispatchPayload
	if err := json.Unmarshal(record.Value, &payload); err != nil || payload.RunID == "" || payload.TenantID == "" {
		logger.Error("skipping malformed run request",
			zap.String("topic", record.Topic),
			zap.Int64("offset", record.Offset),
			zap.Int32("partition", record.Partition),
			zap.Error(err),
		)
	} else if err := r.ExecuteRun(ctx, &payload); err != nil {
		logger.Error("run execution failed",
			zap.String("run_id", payload.RunID),
			zap.Error(err),
		)

		// An unclaimed run was never started, leave the record for redelivery
		var claimErr *ClaimError
		if errors.As(err, &claimErr) {
			return
		}
	}

	// A claimed run already ended with a terminal event, redelivery is covered by the run claim
	if err := r.kfk.CommitRecords(context.WithoutCancel(ctx), record); err != nil {
		logger.Error("failed to commit record",
			zap.String("topic", record.Topic),
			zap.Int64("offset", record.Offset),
			zap.Int32("partition", record.Partition),
			zap.Error(err),
		)
	}
}

// RunJob executes the single run whose payload is behind payloadURL. Payload errors such as
// an expired URL are reported on the run's stream as input errors and are not retried.
func (r *Repository) RunJob(ctx context.Context, payloadURL, tenantID, runID string) error {
	ctx, span := r.tp.Start(ctx, "workflow.RunJob", trace.WithAttributes(attribute.String("run_id", runID)))
	defer span.End()

	if r.fetcher == nil {
		return status.Error(codes.FailedPrecondition, "payload fetcher is not configured")
	}

	payload, err := r.fetcher.Fetch(ctx, payloadURL)
	if err != nil {
		if tenantID == "" || runID == "" {
			return err
		}

		loggerpkg.FromContext(ctx).Error("failed to fetch dispatch payload",
			zap.String("run_id", runID),
			zap.Error(err),
		)

		if _, emitErr := r.sink.AppendRuntime(ctx, tenantID, runID, []*eventsmodel.Record{
			workflowError(eventsmodel.ErrorCodeInput, "failed to load run input: "+status.Convert(err).Message()),
		}); emitErr != nil {
			return emitErr
		}
		return err
	}

	if (runID != "" && payload.RunID != runID) || (tenantID != "" && payload.TenantID != tenantID) {
		return status.Error(codes.InvalidArgument, "payload does not belong to this run")
	}

	return r.ExecuteRun(ctx, payload)
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
