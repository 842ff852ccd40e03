package jobs

import (
	"context"
	"io"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	svcpkg "github.com/hitesh22rana/runstream/internal/pkg/svc"
)

// DockerConfig configures the Docker job starter.
type DockerConfig struct {
	// StopTimeout bounds how long the container may run.
	StopTimeout time.Duration
}

// DockerStarter starts jobs as detached, auto-removed local containers.
type DockerStarter struct {
	tp          trace.Tracer
	cli         *client.Client
	stopTimeout time.Duration
}

// NewDockerStarter creates a new DockerStarter using the environment's Docker daemon.
func NewDockerStarter(ctx context.Context, cfg *DockerConfig) (*DockerStarter, error) {
	cli, err := client.NewClientWithOpts(
		client.FromEnv,
		client.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to initialize docker client: %v", err)
	}

	if _, err := cli.Ping(ctx); err != nil {
		//nolint:errcheck // already failing
		_ = cli.Close()
		return nil, status.Errorf(codes.Unavailable, "failed to ping docker client: %v", err)
	}

	return &DockerStarter{
		tp:          otel.Tracer(svcpkg.Info().GetName()),
		cli:         cli,
		stopTimeout: cfg.StopTimeout,
	}, nil
}

// Close closes the Docker client.
func (d *DockerStarter) Close() error {
	return d.cli.Close()
}

// Configured reports whether the starter has a Docker client.
func (d *DockerStarter) Configured() bool {
	return d != nil && d.cli != nil
}

// Start pulls the image, then creates and starts the container without waiting for it.
func (d *DockerStarter) Start(ctx context.Context, spec *Spec) (ref string, err error) {
	ctx, span := d.tp.Start(ctx, "DockerStarter.Start", trace.WithAttributes(attribute.String("job.name", spec.Name)))
	defer func() {
		if err != nil {
			span.SetStatus(otelcodes.Error, err.Error())
			span.RecordError(err)
		}
		span.End()
	}()

	if err = d.pull(ctx, spec.Image); err != nil {
		return "", err
	}

	cfg := &container.Config{
		Image: spec.Image,
		Env:   spec.EnvList(),
		Cmd:   append(append([]string{}, spec.Command...), spec.Args...),
		Labels: map[string]string{
			"runstream.job": spec.Name,
		},
	}
	if d.stopTimeout > 0 {
		stopTimeout := int(d.stopTimeout.Seconds())
		cfg.StopTimeout = &stopTimeout
	}

	hostCfg := &container.HostConfig{
		AutoRemove: true,
	}
	if spec.MountPath != "" {
		hostCfg.Tmpfs = map[string]string{spec.MountPath: "rw"}
	}

	resp, err := d.cli.ContainerCreate(ctx, cfg, hostCfg, nil, nil, spec.Name)
	if err != nil {
		if client.IsErrConnectionFailed(err) {
			err = status.Errorf(codes.Unavailable, "docker daemon unavailable: %v", err)
			return "", err
		}
		err = status.Errorf(codes.FailedPrecondition, "failed to create container: %v", err)
		return "", err
	}

	if err = d.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		err = status.Errorf(codes.FailedPrecondition, "failed to start container: %v", err)
		return "", err
	}

	return resp.ID, nil
}

func (d *DockerStarter) pull(ctx context.Context, imageName string) error {
	out, err := d.cli.ImagePull(ctx, imageName, image.PullOptions{})
	if err != nil {
		return status.Errorf(codes.Unavailable, "failed to pull image: %v", err)
	}
	defer out.Close()

	// The pull only completes once the progress output is drained.
	if _, err = io.Copy(io.Discard, out); err != nil {
		return status.Errorf(codes.Unavailable, "failed to read image pull output: %v", err)
	}

	return nil
}
