package main

import (
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/go-playground/validator/v10"
	_ "go.uber.org/automaxprocs"
	"go.uber.org/zap"

	"github.com/hitesh22rana/runstream/internal/app/workflow"
	"github.com/hitesh22rana/runstream/internal/config"
	"github.com/hitesh22rana/runstream/internal/pkg/kafka"
	loggerpkg "github.com/hitesh22rana/runstream/internal/pkg/logger"
	"github.com/hitesh22rana/runstream/internal/pkg/postgres"
	"github.com/hitesh22rana/runstream/internal/pkg/redis"
	svcpkg "github.com/hitesh22rana/runstream/internal/pkg/svc"
	eventarchiverepo "github.com/hitesh22rana/runstream/internal/repository/eventarchive"
	eventlogrepo "github.com/hitesh22rana/runstream/internal/repository/eventlog"
	runsrepo "github.com/hitesh22rana/runstream/internal/repository/runs"
	workflowrepo "github.com/hitesh22rana/runstream/internal/repository/workflow"
	eventssvc "github.com/hitesh22rana/runstream/internal/service/events"
	workflowsvc "github.com/hitesh22rana/runstream/internal/service/workflow"
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
	name = "workflow-worker"
)

func main() {
	os.Exit(run())
}

//nolint:gocyclo // run wires every component of the worker.
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

	// Load the workflow worker configuration
	cfg, err := config.InitWorkflowWorkerConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return ExitError
	}

	// A payload URL switches the worker into job mode: it executes one run and exits
	jobMode := cfg.WorkflowWorkerConfig.PayloadURL != ""

	// Initialize the PostgreSQL database
	pdb, err := postgres.New(ctx, &postgres.Config{
		Host:        cfg.Postgres.Host,
		Port:        cfg.Postgres.Port,
		User:        cfg.Postgres.User,
		Password:    cfg.Postgres.Password,
		Database:    cfg.Postgres.Database,
		MaxConns:    cfg.Postgres.MaxConns,
		MinConns:    cfg.Postgres.MinConns,
		MaxConnLife: cfg.Postgres.MaxConnLife,
		MaxConnIdle: cfg.Postgres.MaxConnIdle,
		DialTimeout: cfg.Postgres.DialTimeout,
		SSLMode:     cfg.Postgres.SSLMode,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return ExitError
	}
	defer pdb.Close()

	// Initialize the redis store, used for the event log, run claims and session snapshots
	rdb, err := redis.New(ctx, &redis.Config{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return ExitError
	}
	defer rdb.Close()

	// Initialize the event log, shared with the server through redis
	eventLog := eventlogrepo.New(rdb, cfg.EventLog.Retention)

	// Initialize the kafka client. Job mode only produces to the archive topic.
	var (
		consumer        workflowrepo.Consumer
		archiveProducer eventarchiverepo.AsyncProducer
	)
	if len(cfg.Kafka.Brokers) > 0 {
		opts := []kafka.Option{
			kafka.WithBrokers(cfg.Kafka.Brokers...),
			kafka.WithClientID(svcpkg.Info().GetName()),
		}
		if !jobMode {
			opts = append(opts,
				kafka.WithConsumerGroup(cfg.Kafka.ConsumerGroup),
				kafka.WithConsumeTopics(cfg.Dispatch.RunsTopic),
				kafka.WithFetchIsolationLevel(kafka.ReadCommitted),
				kafka.WithDisableAutoCommit(),
			)
		}

		kfk, kErr := kafka.New(ctx, opts...)
		if kErr != nil {
			fmt.Fprintln(os.Stderr, kErr)
			return ExitError
		}
		defer kfk.Close()

		if !jobMode {
			consumer = kfk
		}
		if cfg.EventArchive.Enabled {
			archiveProducer = kfk
		}
	}

	// The runtime writes through the same persistence sink the HTTP API exposes
	sink := eventssvc.New(
		&eventssvc.Config{},
		validator.New(),
		runsrepo.New(pdb),
		eventLog,
		eventarchiverepo.NewPublisher(archiveProducer, cfg.EventArchive.Topic),
	)

	// Initialize the workflow job components
	repo := workflowrepo.New(&workflowrepo.Config{
		ParallelismLimit: cfg.WorkflowWorkerConfig.ParallelismLimit,
		MaxRunDuration:   cfg.WorkflowWorkerConfig.MaxRunDuration,
		IdleTimeout:      cfg.WorkflowWorkerConfig.IdleTimeout,
		PollTimeout:      cfg.WorkflowWorkerConfig.PollTimeout,
		ClaimTTL:         cfg.WorkflowWorkerConfig.ClaimTTL,
		SnapshotTTL:      cfg.EventLog.Retention,
	}, sink, eventLog, rdb, consumer, workflowrepo.NewHTTPFetcher(cfg.WorkflowWorkerConfig.FetchTimeout))
	svc := workflowsvc.New(repo)
	app := workflow.New(ctx, svc)

	// Log the job information
	loggerpkg.FromContext(ctx).Info(
		"starting job",
		zap.String("name", svcpkg.Info().GetName()),
		zap.String("version", svcpkg.Info().GetVersion()),
		zap.String("environment", cfg.Environment.Env),
		zap.Bool("job_mode", jobMode),
		zap.Int("gomaxprocs", runtime.GOMAXPROCS(0)),
	)

	// Run the workflow job
	if jobMode {
		err = app.RunJob(ctx, cfg.WorkflowWorkerConfig.PayloadURL, cfg.WorkflowWorkerConfig.TenantID, cfg.WorkflowWorkerConfig.RunID)
	} else {
		err = app.Run(ctx)
	}
	if err != nil && ctx.Err() == nil {
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
