package main

import (
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	_ "go.uber.org/automaxprocs"
	"go.uber.org/zap"

	"github.com/hitesh22rana/runstream/internal/app/databasemigration"
	"github.com/hitesh22rana/runstream/internal/config"
	"github.com/hitesh22rana/runstream/internal/pkg/clickhouse"
	loggerpkg "github.com/hitesh22rana/runstream/internal/pkg/logger"
	"github.com/hitesh22rana/runstream/internal/pkg/postgres"
	svcpkg "github.com/hitesh22rana/runstream/internal/pkg/svc"
	databasemigrationrepo "github.com/hitesh22rana/runstream/internal/repository/databasemigration"
	databasemigrationsvc "github.com/hitesh22rana/runstream/internal/service/databasemigration"
)

const (
	// ExitOk and ExitError are the exit codes.
	ExitOk = iota
	// ExitError is the exit code for errors.
	ExitError
)

var (
	// version is the service version.
	version string

	// name is the name of the service.
	name = "database-migration"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Initialize the service information
	initSvcInfo()

	// Initialize the service with, all necessary components
	ctx, cancel := svcpkg.Init()
	defer cancel()

	// Handle OS signals for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	// Load the database migration service configuration
	cfg, err := config.InitDatabaseMigrationConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return ExitError
	}

	// Initialize the ClickHouse database client
	clickhouseClient, err := clickhouse.New(ctx, &clickhouse.Config{
		Hosts:           cfg.ClickHouse.Hosts,
		Database:        cfg.ClickHouse.Database,
		Username:        cfg.ClickHouse.Username,
		Password:        cfg.ClickHouse.Password,
		MaxOpenConns:    cfg.ClickHouse.MaxOpenConns,
		MaxIdleConns:    cfg.ClickHouse.MaxIdleConns,
		ConnMaxLifetime: cfg.ClickHouse.ConnMaxLifetime,
		DialTimeout:     cfg.ClickHouse.DialTimeout,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return ExitError
	}
	defer clickhouseClient.Close()

	// Initialize the database migration components
	repo := databasemigrationrepo.New(&databasemigrationrepo.Config{
		PostgresDSN: postgres.DSN(&postgres.Config{
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			Database: cfg.Postgres.Database,
			SSLMode:  cfg.Postgres.SSLMode,
		}),
		ClickHouse: clickhouseClient,
	})
	svc := databasemigrationsvc.New(repo)
	app := databasemigration.New(ctx, svc)

	// Log the job information
	loggerpkg.FromContext(ctx).Info(
		"starting job",
		zap.String("name", svcpkg.Info().GetName()),
		zap.String("version", svcpkg.Info().GetVersion()),
		zap.String("environment", cfg.Environment.Env),
		zap.Int("gomaxprocs", runtime.GOMAXPROCS(0)),
	)

	// Run the database migration job
	if err := app.Run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return ExitError
	}

	return ExitOk
}

// initSvcInfo initializes the service information.
func initSvcInfo() {
	svcpkg.SetVersion(version)
	svcpkg.SetName(name)
}
