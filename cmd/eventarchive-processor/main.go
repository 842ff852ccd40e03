package main

import (
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	_ "go.uber.org/automaxprocs"
	"go.uber.org/zap"

	"github.com/hitesh22rana/runstream/internal/app/eventarchive"
	"github.com/hitesh22rana/runstream/internal/config"
	"github.com/hitesh22rana/runstream/internal/pkg/clickhouse"
	"github.com/hitesh22rana/runstream/internal/pkg/kafka"
	loggerpkg "github.com/hitesh22rana/runstream/internal/pkg/logger"
	svcpkg "github.com/hitesh22rana/runstream/internal/pkg/svc"
	eventarchiverepo "github.com/hitesh22rana/runstream/internal/repository/eventarchive"
	eventarchivesvc "github.com/hitesh22rana/runstream/internal/service/eventarchive"
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
	name = "eventarchive-processor"
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

	// Load the event archive processor configuration
	cfg, err := config.InitEventArchiveProcessorConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return ExitError
	}

	// Initialize the ClickHouse database
	cdb, err := clickhouse.New(ctx, &clickhouse.Config{
		Hosts:           cfg.ClickHouse.Hosts,
		Database:        cfg.ClickHouse.Database,
		Username:        cfg.ClickHouse.Username,
		Password:        cfg.ClickHouse.Password,
		MaxOpenConns:    cfg.ClickHouse.MaxOpenConns,
		MaxIdleConns:    cfg.ClickHouse.MaxIdleConns,
		ConnMaxLifetime: cfg.ClickHouse.ConnMaxLifetime,
		DialTimeout:     cfg.ClickHouse.DialTimeout,
		AsyncInsert:     cfg.ClickHouse.AsyncInsert,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return ExitError
	}
	defer cdb.Close()

	// Initialize the kafka client
	kfk, err := kafka.New(ctx,
		kafka.WithBrokers(cfg.Kafka.Brokers...),
		kafka.WithConsumerGroup(cfg.Kafka.ConsumerGroup),
		kafka.WithConsumeTopics(cfg.EventArchive.Topic),
		kafka.WithFetchIsolationLevel(kafka.ReadCommitted),
		kafka.WithDisableAutoCommit(),
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return ExitError
	}
	defer kfk.Close()

	// Initialize the event archive job components
	repo := eventarchiverepo.New(&eventarchiverepo.Config{
		BatchSizeLimit:    cfg.EventArchiveProcessorConfig.BatchSizeLimit,
		BatchTimeInterval: cfg.EventArchiveProcessorConfig.BatchTimeLimit,
	}, cdb, kfk)
	svc := eventarchivesvc.New(repo)
	app := eventarchive.New(ctx, svc)

	// Log the job information
	loggerpkg.FromContext(ctx).Info(
		"starting job",
		zap.String("name", svcpkg.Info().GetName()),
		zap.String("version", svcpkg.Info().GetVersion()),
		zap.String("environment", cfg.Environment.Env),
		zap.String("topic", cfg.EventArchive.Topic),
		zap.Int("gomaxprocs", runtime.GOMAXPROCS(0)),
	)

	// Run the event archive job
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
