//go:generate mockgen -source=$GOFILE -package=$GOPACKAGE -destination=./mock/$GOFILE

package eventarchive

import (
	"context"

	"go.uber.org/zap"

	loggerpkg "github.com/hitesh22rana/runstream/internal/pkg/logger"
)

// Service provides event archive related operations.
type Service interface {
	Run(ctx context.Context) error
}

// EventArchive is the event archive processor application.
type EventArchive struct {
	logger *zap.Logger
	svc    Service
}

// New creates a new event archive processor.
func New(ctx context.Context, svc Service) *EventArchive {
	return &EventArchive{
		logger: loggerpkg.FromContext(ctx),
		svc:    svc,
	}
}

// Run archives events until ctx is done. Failures are logged and the processor exits cleanly,
// the consumer group resumes from the last committed offset.
func (e *EventArchive) Run(ctx context.Context) error {
	err := e.svc.Run(ctx)
	if err != nil {
		e.logger.Error("error occurred while running the event archive processor", zap.Error(err))
	} else {
		e.logger.Info("successfully exited the event archive processor")
	}

	return nil
}
