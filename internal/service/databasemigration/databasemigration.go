//go:generate mockgen -source=$GOFILE -package=$GOPACKAGE -destination=./mock/$GOFILE

package databasemigration

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	loggerpkg "github.com/hitesh22rana/runstream/internal/pkg/logger"
	svcpkg "github.com/hitesh22rana/runstream/internal/pkg/svc"
)

// Repository provides database migration related operations.
type Repository interface {
	MigratePostgres(ctx context.Context) error
	MigrateClickHouse(ctx context.Context) error
}

// Service applies the schema of every store runstream owns.
type Service struct {
	tp   trace.Tracer
	repo Repository
}

// New creates a new database migration service.
func New(repo Repository) *Service {
	return &Service{
		tp:   otel.Tracer(svcpkg.Info().GetName()),
		repo: repo,
	}
}

// Run migrates the run store first and the event archive second. It stops at the first failure.
func (s *Service) Run(ctx context.Context) (err error) {
	ctx, span := s.tp.Start(ctx, "Service.Run")
	defer func() {
		if err != nil {
			span.SetStatus(otelcodes.Error, err.Error())
			span.RecordError(err)
		}
		span.End()
	}()

	logger := loggerpkg.FromContext(ctx)

	steps := []struct {
		name    string
		migrate func(context.Context) error
	}{
		{name: "postgres", migrate: s.repo.MigratePostgres},
		{name: "clickhouse", migrate: s.repo.MigrateClickHouse},
	}

	for _, step := range steps {
		start := time.Now()
		if err = step.migrate(ctx); err != nil {
			return err
		}
		logger.Info("database migrated", zap.String("database", step.name), zap.Duration("took", time.Since(start)))
	}

	return nil
}
