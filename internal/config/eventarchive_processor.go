package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EventArchiveProcessor holds the event archive processor configuration.
type EventArchiveProcessor struct {
	Environment

	ClickHouse
	Kafka
	EventArchive
	EventArchiveProcessorConfig
}

// EventArchiveProcessorConfig holds the batching configuration for the event archive processor.
type EventArchiveProcessorConfig struct {
	BatchSizeLimit int           `envconfig:"EVENT_ARCHIVE_PROCESSOR_BATCH_SIZE" default:"1000"`
	BatchTimeLimit time.Duration `envconfig:"EVENT_ARCHIVE_PROCESSOR_BATCH_TIME_LIMIT" default:"2s"`
}

// InitEventArchiveProcessorConfig initializes the event archive processor configuration.
func InitEventArchiveProcessorConfig() (*EventArchiveProcessor, error) {
	var cfg EventArchiveProcessor
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
