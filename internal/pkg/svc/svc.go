package svc

import (
	"context"
	"fmt"
	"os"
	"time"

	loggerpkg "github.com/hitesh22rana/runstream/internal/pkg/logger"
	otelpkg "github.com/hitesh22rana/runstream/internal/pkg/otel"
)

const shutdownTimeout = 5 * time.Second

// Svc contains the service information.
type Svc struct {
	// Version is the service version.
	Version string

	// Name is the name of the service.
	Name string
}

var svc Svc

// GetVersion returns the service version.
func (s Svc) GetVersion() string {
	return s.Version
}

// GetName returns the service name.
func (s Svc) GetName() string {
	return s.Name
}

// SetVersion sets the service version.
func SetVersion(version string) {
	if svc.Version != "" {
		return
	}
	svc.Version = version
}

// SetName sets the service name.
func SetName(name string) {
	if svc.Name != "" {
		return
	}
	svc.Name = name
}

// Info returns the service information.
func Info() Svc {
	return svc
}

// Init wires the telemetry providers and the logger into a cancellable context.
// Telemetry failures are reported on stderr and the service continues with stdout logging only.
func Init() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	providers, err := otelpkg.InitProviders(ctx, svc.Name, svc.Version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "telemetry disabled: %v\n", err)
		ctx, logger := loggerpkg.Init(ctx, svc.Name, nil)
		return ctx, func() {
			//nolint:errcheck // stdout sync errors are not actionable
			_ = logger.Sync()
			cancel()
		}
	}

	ctx, logger := loggerpkg.Init(ctx, svc.Name, providers.LoggerProvider)
	return ctx, func() {
		//nolint:errcheck // stdout sync errors are not actionable
		_ = logger.Sync()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintf(os.Stderr, "failed to shutdown telemetry: %v\n", err)
		}
		cancel()
	}
}
