package payloads

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hitesh22rana/runstream/internal/pkg/postgres"
	svcpkg "github.com/hitesh22rana/runstream/internal/pkg/svc"
)

// Key returns the object key of the dispatch payload of a run.
func Key(tenantID, runID string) string {
	return fmt.Sprintf("tenants/%s/runs/%s/payload.json", tenantID, runID)
}

// Object is a stored blob.
type Object struct {
	Key         string
	TenantID    string
	RunID       string
	ContentType string
	Data        []byte
}

// Repository stores dispatch payloads as opaque blobs.
type Repository struct {
	tp trace.Tracer
	pg postgres.Store
}

// New creates a new payloads repository.
func New(pg postgres.Store) *Repository {
	return &Repository{
		tp: otel.Tracer(svcpkg.Info().GetName()),
		pg: pg,
	}
}

// Put writes the blob under key, replacing any previous content.
func (r *Repository) Put(ctx context.Context, obj *Object) (err error) {
	ctx, span := r.tp.Start(ctx, "Repository.Put")
	defer func() {
		if err != nil {
			span.SetStatus(otelcodes.Error, err.Error())
			span.RecordError(err)
		}
		span.End()
	}()

	contentType := obj.ContentType
	if contentType == "" {
		contentType = "application/json"
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (key, tenant_id, run_id, content_type, data)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (key) DO UPDATE
		SET content_type = EXCLUDED.content_type, data = EXCLUDED.data, created_at = now()
	`, postgres.TablePayloads)

	if _, err = r.pg.Exec(ctx, query, obj.Key, obj.TenantID, obj.RunID, contentType, obj.Data); err != nil {
		err = status.Errorf(codes.Unavailable, "failed to upload payload: %v", err)
		return err
	}

	return nil
}

// Get reads the blob stored under key.
func (r *Repository) Get(ctx context.Context, key string) (obj *Object, err error) {
	ctx, span := r.tp.Start(ctx, "Repository.Get")
	defer func() {
		if err != nil {
			span.SetStatus(otelcodes.Error, err.Error())
			span.RecordError(err)
		}
		span.End()
	}()

	query := fmt.Sprintf(`
		SELECT key, tenant_id, run_id, content_type, data
		FROM %s
		WHERE key = $1
	`, postgres.TablePayloads)

	obj = &Object{}
	row := r.pg.QueryRow(ctx, query, key)
	if err = row.Scan(&obj.Key, &obj.TenantID, &obj.RunID, &obj.ContentType, &obj.Data); err != nil {
		if r.pg.IsNoRows(err) {
			err = status.Errorf(codes.NotFound, "payload not found: %s", key)
			return nil, err
		}
		err = status.Errorf(codes.Internal, "failed to get payload: %v", err)
		return nil, err
	}

	return obj, nil
}
