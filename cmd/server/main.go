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

	"github.com/hitesh22rana/runstream/internal/config"
	"github.com/hitesh22rana/runstream/internal/pkg/auth"
	"github.com/hitesh22rana/runstream/internal/pkg/jobs"
	"github.com/hitesh22rana/runstream/internal/pkg/kafka"
	loggerpkg "github.com/hitesh22rana/runstream/internal/pkg/logger"
	"github.com/hitesh22rana/runstream/internal/pkg/postgres"
	"github.com/hitesh22rana/runstream/internal/pkg/redis"
	"github.com/hitesh22rana/runstream/internal/pkg/signedurl"
	svcpkg "github.com/hitesh22rana/runstream/internal/pkg/svc"
	dispatchrepo "github.com/hitesh22rana/runstream/internal/repository/dispatch"
	eventarchiverepo "github.com/hitesh22rana/runstream/internal/repository/eventarchive"
	eventlogrepo "github.com/hitesh22rana/runstream/internal/repository/eventlog"
	payloadsrepo "github.com/hitesh22rana/runstream/internal/repository/payloads"
	runsrepo "github.com/hitesh22rana/runstream/internal/repository/runs"
	"github.com/hitesh22rana/runstream/internal/server"
	dispatchsvc "github.com/hitesh22rana/runstream/internal/service/dispatch"
	eventssvc "github.com/hitesh22rana/runstream/internal/service/events"
	payloadssvc "github.com/hitesh22rana/runstream/internal/service/payloads"
	runssvc "github.com/hitesh22rana/runstream/internal/service/runs"
)

const (
	// ExitOk and ExitError are the exit codes.
	ExitOk = iota
	// ExitError is the exit code for errors.
	ExitError
)

const (
	eventLogBackendMemory = "memory"
	jobRunnerKindDocker   = "docker"
)

var (
	// version is the service version.
	version string

	// name is the name of the service.
	name = "server"
)

func main() {
	os.Exit(run())
}

//nolint:gocyclo // run wires every component of the server.
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

	// Load the server configuration
	cfg, err := config.InitServerConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return ExitError
	}

	// Initialize the token validator
	authz, err := auth.New(cfg.Auth.PrivateKeyPath, cfg.Auth.PublicKeyPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return ExitError
	}

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

	// Initialize the event log
	var eventLog eventssvc.Log
	if cfg.EventLog.Backend == eventLogBackendMemory {
		eventLog = eventlogrepo.NewMemory()
	} else {
		rdb, rErr := redis.New(ctx, &redis.Config{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if rErr != nil {
			fmt.Fprintln(os.Stderr, rErr)
			return ExitError
		}
		defer rdb.Close()
		eventLog = eventlogrepo.New(rdb, cfg.EventLog.Retention)
	}

	// Initialize the kafka client, used for queue dispatch and the event archive
	var (
		producer        dispatchrepo.Producer
		archiveProducer eventarchiverepo.AsyncProducer
	)
	if len(cfg.Kafka.Brokers) > 0 {
		kfk, kErr := kafka.New(ctx,
			kafka.WithBrokers(cfg.Kafka.Brokers...),
			kafka.WithClientID(svcpkg.Info().GetName()),
			kafka.WithRecordRetries(3),
		)
		if kErr != nil {
			fmt.Fprintln(os.Stderr, kErr)
			return ExitError
		}
		defer kfk.Close()

		producer = kfk
		if cfg.EventArchive.Enabled {
			archiveProducer = kfk
		}
	}

	// Initialize the job starter
	var starter dispatchrepo.JobStarter
	if cfg.JobRunner.Kind == jobRunnerKindDocker {
		if cfg.JobRunner.DockerEnable {
			docker, dErr := jobs.NewDockerStarter(ctx, &jobs.DockerConfig{
				StopTimeout: cfg.JobRunner.StopTimeout,
			})
			if dErr != nil {
				fmt.Fprintln(os.Stderr, dErr)
				return ExitError
			}
			defer docker.Close()
			starter = docker
		}
	} else {
		starter = jobs.NewHTTPStarter(&jobs.HTTPConfig{
			StartURL: cfg.JobRunner.StartURL,
			APIToken: cfg.JobRunner.APIToken,
			Timeout:  cfg.JobRunner.Timeout,
		})
	}

	// Initialize the repositories
	runs := runsrepo.New(pdb)
	payloads := payloadsrepo.New(pdb)
	signer := signedurl.New(cfg.PayloadStore.SigningSecret, cfg.PayloadStore.PublicBaseURL, cfg.PayloadStore.URLExpiry)

	dispatchers := map[string]dispatchsvc.Dispatcher{
		"queue": dispatchrepo.NewQueue(producer, cfg.Dispatch.RunsTopic),
		"job": dispatchrepo.NewJob(payloads, signer, starter, &dispatchrepo.JobConfig{
			Image:     cfg.JobRunner.Image,
			Command:   cfg.JobRunner.Command,
			Args:      cfg.JobRunner.Args,
			MountPath: cfg.JobRunner.MountPath,
		}),
	}
	primary, ok := dispatchers[cfg.Dispatch.Backend]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown dispatch backend: %q\n", cfg.Dispatch.Backend)
		return ExitError
	}
	fallback := dispatchers[cfg.Dispatch.FallbackBackend]

	// Initialize the services
	validate := validator.New()
	events := eventssvc.New(&eventssvc.Config{
		BlockTimeout:  cfg.Stream.BlockTimeout,
		BatchSize:     cfg.Stream.BatchSize,
		RetryWindow:   cfg.Stream.RetryWindow,
		RetryInterval: cfg.Stream.RetryInterval,
	}, validate, runs, eventLog, eventarchiverepo.NewPublisher(archiveProducer, cfg.EventArchive.Topic))

	srv := server.New(ctx, &server.Config{
		Host:              cfg.Server.Host,
		Port:              cfg.Server.Port,
		RequestTimeout:    cfg.Server.RequestTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		KeepAlive:         cfg.Server.KeepAlive,
		RequestBodyLimit:  cfg.Server.RequestBodyLimit,
		AllowedOrigin:     cfg.Server.AllowedOrigin,
	}, &server.Services{
		Auth:     authz,
		Runs:     runssvc.New(validate, runs, dispatchsvc.New(primary, fallback)),
		Events:   events,
		Payloads: payloadssvc.New(signer, payloads),
	})

	// Log the service information
	loggerpkg.FromContext(ctx).Info(
		"starting service",
		zap.String("name", svcpkg.Info().GetName()),
		zap.String("version", svcpkg.Info().GetVersion()),
		zap.String("environment", cfg.Environment.Env),
		zap.String("event_log", cfg.EventLog.Backend),
		zap.String("dispatch_backend", cfg.Dispatch.Backend),
		zap.String("dispatch_fallback_backend", cfg.Dispatch.FallbackBackend),
		zap.Int("gomaxprocs", runtime.GOMAXPROCS(0)),
	)

	if err := srv.Start(ctx); err != nil && ctx.Err() == nil {
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
