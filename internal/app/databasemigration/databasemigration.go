//go:generate mockgen -source=$GOFILE -package=$GOPACKAGE -destination=./mock/$GOFILE

package databasemigration

import (
	"context"

	"go.uber.org/zap"

	loggerpkg "github.com/hitesh22rana/runstream/internal/pkg/logger"
)

// Service provides database migration related operations.
type Service interface {
	Run(ctx context.Context) error
}

// DatabaseMigration is the one-shot schema migration application.
type DatabaseMigration struct {
	logger *zap.Logger
	svc    Service
}

// New creates a new database migration.
func New(ctx context.Context, svc Service) *DatabaseMigration {
	return &DatabaseMigration{
		logger: loggerpkg.FromContext(ctx),
		svc:    svc,
	}
}

// Run applies every pending migration and reports the outcome.
func (dm *DatabaseMigration) Run(ctx context.Context) error {
	if err := dm.svc.Run(ctx); err != nil {
		dm.logger.Error("database migration failed", zap.Error(err))
		return err
	}

	dm.logger.Info("database migration completed")
	return nil
}
