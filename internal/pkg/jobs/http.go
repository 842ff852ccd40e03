package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/eapache/go-resiliency/breaker"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	svcpkg "github.com/hitesh22rana/runstream/internal/pkg/svc"
)

const (
	defaultTimeout = 10 * time.Second

	// maxErrorBodyBytes bounds the response body captured in start errors.
	maxErrorBodyBytes = 512

	breakerErrorThreshold   = 5
	breakerSuccessThreshold = 1
	breakerTimeout          = 30 * time.Second
)

// HTTPConfig configures the HTTP job starter.
type HTTPConfig struct {
	StartURL string
	APIToken string
	Timeout  time.Duration
}

// HTTPStarter starts jobs through a compute start API.
type HTTPStarter struct {
	tp       trace.Tracer
	startURL string
	apiToken string
	client   *http.Client
	cb       *breaker.Breaker
}

type startRequest struct {
	Name      string         `json:"name"`
	Container startContainer `json:"container"`
}

type startContainer struct {
	Image        string        `json:"image"`
	Command      []string      `json:"command,omitempty"`
	Args         []string      `json:"args,omitempty"`
	Env          []EnvVar      `json:"env"`
	VolumeMounts []volumeMount `json:"volumeMounts,omitempty"`
}

type volumeMount struct {
	Name      string `json:"name"`
	MountPath string `json:"mountPath"`
}

type startResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// NewHTTPStarter creates a new HTTPStarter.
func NewHTTPStarter(cfg *HTTPConfig) *HTTPStarter {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &HTTPStarter{
		tp:       otel.Tracer(svcpkg.Info().GetName()),
		startURL: cfg.StartURL,
		apiToken: cfg.APIToken,
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		cb: breaker.New(breakerErrorThreshold, breakerSuccessThreshold, breakerTimeout),
	}
}

// Configured reports whether a start URL is set.
func (s *HTTPStarter) Configured() bool {
	return s.startURL != ""
}

// Start posts the job spec and returns the job reference reported by the API.
// Only 2xx responses are successful; other responses carry the truncated body in the error.
func (s *HTTPStarter) Start(ctx context.Context, spec *Spec) (ref string, err error) {
	ctx, span := s.tp.Start(ctx, "HTTPStarter.Start", trace.WithAttributes(attribute.String("job.name", spec.Name)))
	defer func() {
		if err != nil {
			span.SetStatus(otelcodes.Error, err.Error())
			span.RecordError(err)
		}
		span.End()
	}()

	body := startRequest{
		Name: spec.Name,
		Container: startContainer{
			Image:   spec.Image,
			Command: spec.Command,
			Args:    spec.Args,
			Env:     spec.Env,
		},
	}
	if spec.MountPath != "" {
		body.Container.VolumeMounts = []volumeMount{{Name: workdirVolumeName, MountPath: spec.MountPath}}
	}

	data, err := json.Marshal(body)
	if err != nil {
		err = status.Errorf(codes.Internal, "failed to marshal job start request: %v", err)
		return "", err
	}

	var startErr error
	cbErr := s.cb.Run(func() error {
		ref, startErr = s.do(ctx, data)
		if isCircuitBreakerError(startErr) {
			return startErr
		}
		return nil
	})

	if cbErr != nil {
		if startErr != nil {
			err = startErr
			return "", err
		}
		err = status.Errorf(codes.Unavailable, "job start api unavailable: %v", cbErr)
		return "", err
	}

	if startErr != nil {
		err = startErr
		return "", err
	}

	return ref, nil
}

func (s *HTTPStarter) do(ctx context.Context, data []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.startURL, bytes.NewReader(data))
	if err != nil {
		return "", status.Errorf(codes.Internal, "failed to build job start request: %v", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if s.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiToken)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", status.Errorf(codes.Unavailable, "failed to call job start api: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return "", status.Errorf(codes.Unavailable, "failed to read job start response: %v", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		code := codes.FailedPrecondition
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			code = codes.Unavailable
		}
		return "", status.Errorf(code, "job start api returned %d: %s", resp.StatusCode, truncate(respBody, maxErrorBodyBytes))
	}

	var out startResponse
	if len(respBody) > 0 && json.Unmarshal(respBody, &out) == nil {
		if out.ID != "" {
			return out.ID, nil
		}
		return out.Name, nil
	}

	return "", nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return fmt.Sprintf("%s...(truncated)", b[:n])
}

// isCircuitBreakerError reports whether err should count against the breaker.
// Only unavailability, deadlines and network timeouts count.
func isCircuitBreakerError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	//nolint:exhaustive // Only treating some codes as circuit-breaker errors
	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.Unavailable, codes.DeadlineExceeded, codes.Internal:
			return true
		default:
			return false
		}
	}

	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
