package config

import (
	"time"
)

const envPrefix = ""

// Environment holds the environment configuration.
type Environment struct {
	Env string `envconfig:"ENV" default:"development"`
}

// Redis holds the Redis configuration.
type Redis struct {
	Host         string        `envconfig:"REDIS_HOST" default:"localhost"`
	Port         int           `envconfig:"REDIS_PORT" default:"6379"`
	Password     string        `envconfig:"REDIS_PASSWORD" default:""`
	DB           int           `envconfig:"REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"REDIS_POOL_SIZE" default:"20"`
	MinIdleConns int           `envconfig:"REDIS_MIN_IDLE_CONNS" default:"5"`
	ReadTimeout  time.Duration `envconfig:"REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Postgres holds the PostgreSQL configuration.
type Postgres struct {
	Host        string        `envconfig:"POSTGRES_HOST" default:"localhost"`
	Port        int           `envconfig:"POSTGRES_PORT" default:"5432"`
	User        string        `envconfig:"POSTGRES_USER" default:"postgres"`
	Password    string        `envconfig:"POSTGRES_PASSWORD" default:"postgres"`
	Database    string        `envconfig:"POSTGRES_DB" default:"runstream"`
	MaxConns    int32         `envconfig:"POSTGRES_MAX_CONNS" default:"10"`
	MinConns    int32         `envconfig:"POSTGRES_MIN_CONNS" default:"2"`
	MaxConnLife time.Duration `envconfig:"POSTGRES_MAX_CONN_LIFE" default:"1h"`
	MaxConnIdle time.Duration `envconfig:"POSTGRES_MAX_CONN_IDLE" default:"30m"`
	DialTimeout time.Duration `envconfig:"POSTGRES_DIAL_TIMEOUT" default:"5s"`
	SSLMode     string        `envconfig:"POSTGRES_SSL_MODE" default:"disable"`
}

// ClickHouse holds the ClickHouse configuration.
type ClickHouse struct {
	Hosts           []string      `envconfig:"CLICKHOUSE_HOSTS" default:"localhost:9000"`
	Database        string        `envconfig:"CLICKHOUSE_DATABASE" default:"default"`
	Username        string        `envconfig:"CLICKHOUSE_USERNAME" default:"default"`
	Password        string        `envconfig:"CLICKHOUSE_PASSWORD" default:""`
	MaxOpenConns    int           `envconfig:"CLICKHOUSE_MAX_OPEN_CONNS" default:"5"`
	MaxIdleConns    int           `envconfig:"CLICKHOUSE_MAX_IDLE_CONNS" default:"2"`
	ConnMaxLifetime time.Duration `envconfig:"CLICKHOUSE_CONN_MAX_LIFETIME" default:"1h"`
	DialTimeout     time.Duration `envconfig:"CLICKHOUSE_DIAL_TIMEOUT" default:"5s"`
	AsyncInsert     bool          `envconfig:"CLICKHOUSE_ASYNC_INSERT" default:"false"`
}

// Kafka holds the configuration for Kafka.
type Kafka struct {
	Brokers       []string `envconfig:"KAFKA_BROKERS"`
	ConsumerGroup string   `envconfig:"KAFKA_CONSUMER_GROUP"`
}

// Auth holds the bearer token verification configuration.
type Auth struct {
	PrivateKeyPath string `envconfig:"AUTH_PRIVATE_KEY_PATH"`
	PublicKeyPath  string `envconfig:"AUTH_PUBLIC_KEY_PATH" default:"certs/auth.ed.pub"`
}

// EventLog holds the event log configuration.
type EventLog struct {
	// Backend is either "redis" or "memory". The memory backend is only suitable for a single process.
	Backend   string        `envconfig:"EVENT_LOG_BACKEND" default:"redis"`
	Retention time.Duration `envconfig:"EVENT_LOG_RETENTION" default:"168h"`
}

// Stream holds the event stream reader configuration.
type Stream struct {
	BlockTimeout  time.Duration `envconfig:"STREAM_BLOCK_TIMEOUT" default:"15s"`
	BatchSize     int64         `envconfig:"STREAM_BATCH_SIZE" default:"100"`
	RetryWindow   time.Duration `envconfig:"STREAM_RETRY_WINDOW" default:"30s"`
	RetryInterval time.Duration `envconfig:"STREAM_RETRY_INTERVAL" default:"250ms"`
}

// Dispatch holds the dispatcher selection configuration.
type Dispatch struct {
	// Backend is the primary backend, "queue" or "job".
	Backend string `envconfig:"DISPATCH_BACKEND" default:"queue"`
	// FallbackBackend is used only when the primary backend reports that it is not configured.
	FallbackBackend string `envconfig:"DISPATCH_FALLBACK_BACKEND"`
	RunsTopic       string `envconfig:"DISPATCH_RUNS_TOPIC" default:"workflow-runs"`
}

// PayloadStore holds the payload store and signed URL configuration.
type PayloadStore struct {
	PublicBaseURL string        `envconfig:"PAYLOAD_STORE_PUBLIC_BASE_URL" default:"http://localhost:8080"`
	SigningSecret string        `envconfig:"PAYLOAD_STORE_SIGNING_SECRET"`
	URLExpiry     time.Duration `envconfig:"PAYLOAD_STORE_URL_EXPIRY" default:"1h"`
}

// JobRunner holds the on-demand job backend configuration.
type JobRunner struct {
	// Kind is either "http" or "docker".
	Kind         string        `envconfig:"JOB_RUNNER_KIND" default:"http"`
	StartURL     string        `envconfig:"JOB_RUNNER_START_URL"`
	APIToken     string        `envconfig:"JOB_RUNNER_API_TOKEN"`
	Image        string        `envconfig:"JOB_RUNNER_IMAGE"`
	Command      []string      `envconfig:"JOB_RUNNER_COMMAND"`
	Args         []string      `envconfig:"JOB_RUNNER_ARGS"`
	MountPath    string        `envconfig:"JOB_RUNNER_MOUNT_PATH" default:"/workspace"`
	Timeout      time.Duration `envconfig:"JOB_RUNNER_TIMEOUT" default:"10s"`
	StopTimeout  time.Duration `envconfig:"JOB_RUNNER_STOP_TIMEOUT" default:"2h"`
	DockerEnable bool          `envconfig:"JOB_RUNNER_DOCKER_ENABLE" default:"false"`
}

// EventArchive holds the configuration for the archive topic.
type EventArchive struct {
	Topic   string `envconfig:"EVENT_ARCHIVE_TOPIC" default:"workflow-events"`
	Enabled bool   `envconfig:"EVENT_ARCHIVE_ENABLED" default:"true"`
}
