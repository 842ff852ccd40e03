//go:generate mockgen -source=$GOFILE -package=$GOPACKAGE -destination=./mock/$GOFILE

package databasemigration

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/eapache/go-resiliency/retrier"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.opentelemetry.io/otel"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	clickhousepkg "github.com/hitesh22rana/runstream/internal/pkg/clickhouse"
	loggerpkg "github.com/hitesh22rana/runstream/internal/pkg/logger"
	postgrespkg "github.com/hitesh22rana/runstream/internal/pkg/postgres"
	svcpkg "github.com/hitesh22rana/runstream/internal/pkg/svc"
)

const (
	migrationsDir = "migrations"

	defaultAttempts     = 5
	defaultInitialDelay = time.Second
)

// errInvalidMigration marks failures a retry cannot fix.
var errInvalidMigration = errors.New("invalid migration")

// ClickHouse is the subset of the ClickHouse client the migrator needs.
type ClickHouse interface {
	Exec(ctx context.Context, query string, args ...any) error
	Query(ctx context.Context, query string, args ...any) (driver.Rows, error)
}

// Config holds the database migration configuration.
type Config struct {
	PostgresDSN string
	ClickHouse  ClickHouse
	// Backoff overrides the delays between attempts.
	Backoff []time.Duration
}

// Repository applies the embedded schema migrations.
type Repository struct {
	tp      trace.Tracer
	cfg     *Config
	retrier *retrier.Retrier
}

// New creates a new database migration repository.
func New(cfg *Config) *Repository {
	backoff := cfg.Backoff
	if backoff == nil {
		backoff = retrier.ExponentialBackoff(defaultAttempts-1, defaultInitialDelay)
	}

	return &Repository{
		tp:      otel.Tracer(svcpkg.Info().GetName()),
		cfg:     cfg,
		retrier: retrier.New(backoff, migrationClassifier{}),
	}
}

type migrationClassifier struct{}

func (migrationClassifier) Classify(err error) retrier.Action {
	switch {
	case err == nil:
		return retrier.Succeed
	case errors.Is(err, errInvalidMigration), errors.Is(err, context.Canceled):
		return retrier.Fail
	default:
		return retrier.Retry
	}
}

// run executes op until it succeeds, fails permanently or runs out of attempts.
func (r *Repository) run(ctx context.Context, database string, op func(ctx context.Context) error) error {
	logger := loggerpkg.FromContext(ctx).With(zap.String("database", database))

	attempt := 0
	err := r.retrier.RunCtx(ctx, func(ctx context.Context) error {
		attempt++
		err := op(ctx)
		if err != nil {
			logger.Warn("migration attempt failed", zap.Int("attempt", attempt), zap.Error(err))
		}
		return err
	})
	if err != nil {
		logger.Error("migration failed", zap.Int("attempts", attempt), zap.Error(err))
		return err
	}

	return nil
}

// MigratePostgres migrates the PostgreSQL database.
func (r *Repository) MigratePostgres(ctx context.Context) (err error) {
	ctx, span := r.tp.Start(ctx, "Repository.MigratePostgres")
	defer func() {
		if err != nil {
			span.SetStatus(otelcodes.Error, err.Error())
			span.RecordError(err)
		}
		span.End()
	}()

	if err = r.run(ctx, "postgres", r.migratePostgres); err != nil {
		err = status.Errorf(codes.Internal, "postgres migration failed: %v", err)
		return err
	}

	return nil
}

func (r *Repository) migratePostgres(ctx context.Context) error {
	source, err := iofs.New(postgrespkg.MigrationsFS, migrationsDir)
	if err != nil {
		return fmt.Errorf("%w: %w", errInvalidMigration, err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, r.cfg.PostgresDSN)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer func() {
		if sourceErr, dbErr := m.Close(); sourceErr != nil || dbErr != nil {
			loggerpkg.FromContext(ctx).Error(
				"failed to close postgres migrate instance",
				zap.NamedError("source_error", sourceErr),
				zap.NamedError("database_error", dbErr),
			)
		}
	}()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run postgres migration: %w", err)
	}

	return nil
}

// MigrateClickHouse migrates the ClickHouse database.
func (r *Repository) MigrateClickHouse(ctx context.Context) (err error) {
	ctx, span := r.tp.Start(ctx, "Repository.MigrateClickHouse")
	defer func() {
		if err != nil {
			span.SetStatus(otelcodes.Error, err.Error())
			span.RecordError(err)
		}
		span.End()
	}()

	if r.cfg.ClickHouse == nil {
		err = status.Error(codes.FailedPrecondition, "clickhouse client is not configured")
		return err
	}

	if err = r.run(ctx, "clickhouse", r.migrateClickHouse); err != nil {
		err = status.Errorf(codes.Internal, "clickhouse migration failed: %v", err)
		return err
	}

	return nil
}

// Migration is one versioned schema change.
type Migration struct {
	Version uint32
	Name    string
	Content string
}

func (r *Repository) migrateClickHouse(ctx context.Context) error {
	logger := loggerpkg.FromContext(ctx)

	if err := r.cfg.ClickHouse.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version UInt32 NOT NULL,
			dirty UInt8 NOT NULL DEFAULT 0,
			applied_at DateTime DEFAULT now()
		) ENGINE = MergeTree()
		ORDER BY version
	`); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	applied, err := r.appliedVersions(ctx)
	if err != nil {
		return err
	}

	pending, err := PendingMigrations(clickhousepkg.MigrationsFS, applied)
	if err != nil {
		return err
	}

	for _, m := range pending {
		if err := r.cfg.ClickHouse.Exec(ctx, "INSERT INTO schema_migrations (version, dirty) VALUES (?, 1)", m.Version); err != nil {
			return fmt.Errorf("failed to mark migration %s dirty: %w", m.Name, err)
		}
		if err := r.cfg.ClickHouse.Exec(ctx, m.Content); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", m.Name, err)
		}
		if err := r.cfg.ClickHouse.Exec(ctx, "ALTER TABLE schema_migrations UPDATE dirty = 0 WHERE version = ?", m.Version); err != nil {
			return fmt.Errorf("failed to mark migration %s clean: %w", m.Name, err)
		}

		logger.Info("applied clickhouse migration", zap.String("file", m.Name))
	}

	return nil
}

func (r *Repository) appliedVersions(ctx context.Context) (map[uint32]bool, error) {
	rows, err := r.cfg.ClickHouse.Query(ctx, "SELECT version FROM schema_migrations WHERE dirty = 0")
	if err != nil {
		return nil, fmt.Errorf("failed to read applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[uint32]bool)
	for rows.Next() {
		var version uint32
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}

	return applied, rows.Err()
}

// PendingMigrations returns the up migrations of fsys that are not applied yet, in version order.
func PendingMigrations(fsys fs.FS, applied map[uint32]bool) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errInvalidMigration, err)
	}

	var pending []Migration
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".up.sql") {
			continue
		}

		prefix, _, ok := strings.Cut(name, "_")
		if !ok {
			return nil, fmt.Errorf("%w: bad file name %s", errInvalidMigration, name)
		}
		version, err := strconv.ParseUint(prefix, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: bad version in %s", errInvalidMigration, name)
		}
		if applied[uint32(version)] {
			continue
		}

		content, err := fs.ReadFile(fsys, path.Join(migrationsDir, name))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errInvalidMigration, err)
		}

		pending = append(pending, Migration{
			Version: uint32(version),
			Name:    name,
			Content: string(content),
		})
	}

	slices.SortFunc(pending, func(a, b Migration) int {
		return int(a.Version) - int(b.Version)
	})

	return pending, nil
}
