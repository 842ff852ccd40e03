package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	runsmodel "github.com/hitesh22rana/runstream/internal/model/runs"
)

const maxPayloadSize = 8 << 20

// HTTPFetcher downloads dispatch payloads from signed URLs.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher creates a fetcher with the given request timeout.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// Fetch downloads and decodes the payload. Rejected URLs (expired or tampered) are
// InvalidArgument, since retrying cannot fix them.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*runsmodel.DispatchPayload, error) {
	if url == "" {
		return nil, status.Error(codes.InvalidArgument, "payload url is empty")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid payload url: %v", err)
	}

	res, err := f.client.Do(req)
	if err != nil {
		return nil, status.Errorf(codes.Unavailable, "failed to fetch payload: %v", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxPayloadSize))
	if err != nil {
		return nil, status.Errorf(codes.Unavailable, "failed to read payload: %v", err)
	}

	switch {
	case res.StatusCode == http.StatusForbidden || res.StatusCode == http.StatusUnauthorized:
		return nil, status.Error(codes.InvalidArgument, "payload url is expired or invalid")
	case res.StatusCode == http.StatusNotFound:
		return nil, status.Error(codes.InvalidArgument, "payload not found")
	case res.StatusCode < 200 || res.StatusCode > 299:
		return nil, status.Errorf(codes.Unavailable, "payload store returned %d", res.StatusCode)
	}

	var payload runsmodel.DispatchPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "failed to decode payload: %v", err)
	}
	if payload.RunID == "" || payload.TenantID == "" {
		return nil, status.Error(codes.InvalidArgument, fmt.Sprintf("payload is missing identifiers: run_id=%q tenant_id=%q", payload.RunID, payload.TenantID))
	}

	return &payload, nil
}
