package dispatch

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	runsmodel "github.com/hitesh22rana/runstream/internal/model/runs"
	"github.com/hitesh22rana/runstream/internal/pkg/jobs"
	loggerpkg "github.com/hitesh22rana/runstream/internal/pkg/logger"
	svcpkg "github.com/hitesh22rana/runstream/internal/pkg/svc"
	"github.com/hitesh22rana/runstream/internal/repository/payloads"
)

// JobConfig describes the runtime container started for each run.
type JobConfig struct {
	Image     string
	Command   []string
	Args      []string
	MountPath string
}

// JobDispatcher uploads the payload, signs a URL for it and starts one job per run.
// The job only receives the URL, never the inputs themselves.
type JobDispatcher struct {
	tp      trace.Tracer
	store   PayloadStore
	signer  URLSigner
	starter JobStarter
	cfg     *JobConfig
}

// NewJob creates a job dispatcher.
func NewJob(store PayloadStore, signer URLSigner, starter JobStarter, cfg *JobConfig) *JobDispatcher {
	if cfg == nil {
		cfg = &JobConfig{}
	}

	return &JobDispatcher{
		tp:      otel.Tracer(svcpkg.Info().GetName()),
		store:   store,
		signer:  signer,
		starter: starter,
		cfg:     cfg,
	}
}

// Backend returns the backend tag recorded on dispatched runs.
func (d *JobDispatcher) Backend() runsmodel.Backend {
	return runsmodel.BackendJob
}

func (d *JobDispatcher) configured() bool {
	return d.store != nil &&
		d.signer != nil && d.signer.Configured() &&
		d.starter != nil && d.starter.Configured() &&
		d.cfg.Image != ""
}

// Dispatch starts a runtime job for the run. Starts are not deduplicated.
func (d *JobDispatcher) Dispatch(ctx context.Context, run *runsmodel.WorkflowRun) (dispatched bool, err error) {
	ctx, span := d.tp.Start(
		ctx,
		"JobDispatcher.Dispatch",
		trace.WithAttributes(attribute.String("run_id", run.ID)),
	)
	defer func() {
		if err != nil {
			span.SetStatus(otelcodes.Error, err.Error())
			span.RecordError(err)
		}
		span.End()
	}()

	logger := loggerpkg.FromContext(ctx).With(zap.String("run_id", run.ID))

	if !d.configured() {
		logger.Warn("job dispatch backend is not configured")
		return false, nil
	}

	data, err := json.Marshal(run.Payload())
	if err != nil {
		err = status.Errorf(codes.Internal, "failed to marshal dispatch payload: %v", err)
		return false, err
	}

	key := payloads.Key(run.TenantID, run.ID)
	if err = d.store.Put(ctx, &payloads.Object{
		Key:         key,
		TenantID:    run.TenantID,
		RunID:       run.ID,
		ContentType: "application/json",
		Data:        data,
	}); err != nil {
		return false, err
	}

	payloadURL, expiresAt, err := d.signer.Sign(run.TenantID, run.ID, key)
	if err != nil {
		return false, err
	}

	spec := &jobs.Spec{
		Name:    jobs.Name(run.ID),
		Image:   d.cfg.Image,
		Command: d.cfg.Command,
		Args:    d.cfg.Args,
		Env: []jobs.EnvVar{
			{Name: jobs.EnvPayloadURL, Value: payloadURL},
			{Name: jobs.EnvRunID, Value: run.ID},
			{Name: jobs.EnvTenantID, Value: run.TenantID},
			{Name: jobs.EnvWorkflowID, Value: run.WorkflowID},
			{Name: jobs.EnvWorkdir, Value: d.cfg.MountPath},
		},
		MountPath: d.cfg.MountPath,
	}

	ref, err := d.starter.Start(ctx, spec)
	if err != nil {
		return false, err
	}

	logger.Info(
		"started runtime job",
		zap.String("job", ref),
		zap.Time("payload_url_expires_at", expiresAt),
	)

	return true, nil
}
