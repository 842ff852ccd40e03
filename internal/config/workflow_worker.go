package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// WorkflowWorker holds the workflow worker configuration.
type WorkflowWorker struct {
	Environment

	Redis
	Postgres
	Kafka
	EventLog
	Dispatch
	EventArchive
	WorkflowWorkerConfig
}

// WorkflowWorkerConfig holds the configuration for the workflow worker.
type WorkflowWorkerConfig struct {
	ParallelismLimit int           `envconfig:"WORKFLOW_WORKER_PARALLELISM_LIMIT" default:"5"`
	MaxRunDuration   time.Duration `envconfig:"WORKFLOW_WORKER_MAX_RUN_DURATION" default:"2h"`
	IdleTimeout      time.Duration `envconfig:"WORKFLOW_WORKER_IDLE_TIMEOUT" default:"30m"`
	PollTimeout      time.Duration `envconfig:"WORKFLOW_WORKER_POLL_TIMEOUT" default:"5s"`
	ClaimTTL         time.Duration `envconfig:"WORKFLOW_WORKER_CLAIM_TTL" default:"24h"`
	FetchTimeout     time.Duration `envconfig:"WORKFLOW_WORKER_FETCH_TIMEOUT" default:"10s"`

	// Job mode: set by the job backends when a worker is started for exactly one run.
	PayloadURL string `envconfig:"PAYLOAD_URL"`
	RunID      string `envconfig:"RUN_ID"`
	TenantID   string `envconfig:"TENANT_ID"`
}

// InitWorkflowWorkerConfig initializes the workflow worker configuration.
func InitWorkflowWorkerConfig() (*WorkflowWorker, error) {
	var cfg WorkflowWorker
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
