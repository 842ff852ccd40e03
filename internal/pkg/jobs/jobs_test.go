package jobs_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hitesh22rana/runstream/internal/pkg/jobs"
)

func testSpec() *jobs.Spec {
	return &jobs.Spec{
		Name:    jobs.Name("Run_1"),
		Image:   "runtime:latest",
		Command: []string{"workflow-worker"},
		Args:    []string{"--once"},
		Env: []jobs.EnvVar{
			{Name: jobs.EnvPayloadURL, Value: "https://api/payloads?token=abc"},
			{Name: jobs.EnvRunID, Value: "run_1"},
		},
		MountPath: "/workspace",
	}
}

func TestHTTPStarter_Start(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		respBody   string
		want       string
		code       codes.Code
	}{
		{
			name:       "success: accepted with id",
			statusCode: http.StatusAccepted,
			respBody:   `{"id":"job-123"}`,
			want:       "job-123",
		},
		{
			name:       "success: created without body",
			statusCode: http.StatusCreated,
			want:       "",
		},
		{
			name:       "error: bad request",
			statusCode: http.StatusBadRequest,
			respBody:   `{"error":"image missing"}`,
			code:       codes.FailedPrecondition,
		},
		{
			name:       "error: server error",
			statusCode: http.StatusInternalServerError,
			respBody:   strings.Repeat("x", 2048),
			code:       codes.Unavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got map[string]any
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

				w.WriteHeader(tt.statusCode)
				//nolint:errcheck // test server
				w.Write([]byte(tt.respBody))
			}))
			defer srv.Close()

			starter := jobs.NewHTTPStarter(&jobs.HTTPConfig{StartURL: srv.URL, APIToken: "token"})
			require.True(t, starter.Configured())

			ref, err := starter.Start(context.Background(), testSpec())

			assert.Equal(t, "run-run-1", got["name"])
			container, ok := got["container"].(map[string]any)
			require.True(t, ok)
			assert.Equal(t, "runtime:latest", container["image"])
			assert.Equal(t, []any{
				map[string]any{"name": "PAYLOAD_URL", "value": "https://api/payloads?token=abc"},
				map[string]any{"name": "RUN_ID", "value": "run_1"},
			}, container["env"])
			assert.Equal(t, []any{
				map[string]any{"name": "workdir", "mountPath": "/workspace"},
			}, container["volumeMounts"])

			if tt.code != codes.OK {
				require.Error(t, err)
				assert.Equal(t, tt.code, status.Code(err))
				assert.LessOrEqual(t, len(err.Error()), 700)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, ref)
		})
	}
}

func TestHTTPStarter_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := jobs.NewHTTPStarter(&jobs.HTTPConfig{StartURL: url}).Start(context.Background(), testSpec())
	require.Error(t, err)
	assert.Equal(t, codes.Unavailable, status.Code(err))
}

func TestHTTPStarter_PropagatesTrace(t *testing.T) {
	prevProvider, prevPropagator := otel.GetTracerProvider(), otel.GetTextMapPropagator()
	otel.SetTracerProvider(sdktrace.NewTracerProvider())
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() {
		otel.SetTracerProvider(prevProvider)
		otel.SetTextMapPropagator(prevPropagator)
	})

	traceparent := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceparent <- r.Header.Get("traceparent")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	ctx, span := otel.Tracer("jobs_test").Start(context.Background(), "dispatch")
	defer span.End()

	_, err := jobs.NewHTTPStarter(&jobs.HTTPConfig{StartURL: srv.URL}).Start(ctx, testSpec())
	require.NoError(t, err)

	got := <-traceparent
	require.NotEmpty(t, got)
	assert.Contains(t, got, span.SpanContext().TraceID().String())
}

func TestSpec_EnvList(t *testing.T) {
	assert.Equal(t, []string{
		"PAYLOAD_URL=https://api/payloads?token=abc",
		"RUN_ID=run_1",
	}, testSpec().EnvList())
}

func TestName(t *testing.T) {
	tests := []struct {
		runID string
		want  string
	}{
		{runID: "abc", want: "run-abc"},
		{runID: "ABC_def.1", want: "run-abc-def-1"},
		{runID: strings.Repeat("a", 100), want: "run-" + strings.Repeat("a", 59)},
	}

	for _, tt := range tests {
		t.Run(tt.runID, func(t *testing.T) {
			assert.Equal(t, tt.want, jobs.Name(tt.runID))
		})
	}
}
