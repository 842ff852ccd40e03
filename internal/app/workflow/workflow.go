//go:generate mockgen -source=$GOFILE -package=$GOPACKAGE -destination=./mock/$GOFILE

package workflow

import (
	"context"

	"go.uber.org/zap"

	loggerpkg "github.com/hitesh22rana/runstream/internal/pkg/logger"
)

// Service provides workflow runtime operations.
type Service interface {
	Run(ctx context.Context) error
	RunJob(ctx context.Context, payloadURL, tenantID, runID string) error
}

// Workflow is the workflow worker application.
type Workflow struct {
	logger *zap.Logger
	svc    Service
}

// New creates a new workflow worker.
func New(ctx context.Context, svc Service) *Workflow {
	return &Workflow{
		logger: loggerpkg.FromContext(ctx),
		svc:    svc,
	}
}

// Run consumes dispatched runs until ctx is done.
func (w *Workflow) Run(ctx context.Context) error {
	err := w.svc.Run(ctx)
	if err != nil {
		w.logger.Error("error occurred while running the workflow worker", zap.Error(err))
	} else {
		w.logger.Info("successfully exited the workflow worker")
	}

	return err
}

// RunJob executes exactly one run in job mode. The error decides the exit status of the job.
func (w *Workflow) RunJob(ctx context.Context, payloadURL, tenantID, runID string) error {
	logger := w.logger.With(zap.String("run_id", runID), zap.String("tenant_id", tenantID))

	err := w.svc.RunJob(ctx, payloadURL, tenantID, runID)
	if err != nil {
		logger.Error("workflow job failed", zap.Error(err))
	} else {
		logger.Info("workflow job finished")
	}

	return err
}
