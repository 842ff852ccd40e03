//go:generate mockgen -source=$GOFILE -package=$GOPACKAGE -destination=./mock/$GOFILE

package payloads

import (
	"context"

	"go.opentelemetry.io/otel"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	loggerpkg "github.com/hitesh22rana/runstream/internal/pkg/logger"
	"github.com/hitesh22rana/runstream/internal/pkg/signedurl"
	svcpkg "github.com/hitesh22rana/runstream/internal/pkg/svc"
	"github.com/hitesh22rana/runstream/internal/repository/payloads"
)

// Verifier checks signed URL tokens.
type Verifier interface {
	Verify(token string) (*signedurl.Grant, error)
}

// Store reads stored payloads.
type Store interface {
	Get(ctx context.Context, key string) (*payloads.Object, error)
}

// Service serves the targets of signed payload URLs.
type Service struct {
	tp       trace.Tracer
	verifier Verifier
	store    Store
}

// New creates a new payloads service.
func New(verifier Verifier, store Store) *Service {
	return &Service{
		tp:       otel.Tracer(svcpkg.Info().GetName()),
		verifier: verifier,
		store:    store,
	}
}

// Fetch returns the payload a signed URL token grants read access to.
func (s *Service) Fetch(ctx context.Context, token string) (obj *payloads.Object, err error) {
	ctx, span := s.tp.Start(ctx, "Service.Fetch")
	defer func() {
		if err != nil {
			span.SetStatus(otelcodes.Error, err.Error())
			span.RecordError(err)
		}
		span.End()
	}()

	if token == "" {
		err = status.Error(codes.PermissionDenied, "missing payload url token")
		return nil, err
	}

	grant, err := s.verifier.Verify(token)
	if err != nil {
		loggerpkg.FromContext(ctx).Warn("rejected payload url", zap.Error(err))
		return nil, err
	}

	obj, err = s.store.Get(ctx, grant.Key)
	if err != nil {
		return nil, err
	}

	if obj.TenantID != grant.TenantID || obj.RunID != grant.RunID {
		err = status.Error(codes.PermissionDenied, "payload url does not match the stored payload")
		return nil, err
	}

	return obj, nil
}
