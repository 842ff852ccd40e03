package server

import (
	"compress/gzip"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hitesh22rana/runstream/internal/pkg/auth"
	loggerpkg "github.com/hitesh22rana/runstream/internal/pkg/logger"
)

// withOtelMiddleware adds OpenTelemetry tracing and request logging to the HTTP handler.
func (s *Server) withOtelMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		log := s.logger.With(
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote_addr", r.RemoteAddr),
			zap.String("user_agent", r.UserAgent()),
		)

		ctx, span := s.tp.Start(
			r.Context(),
			fmt.Sprintf("%s %s", r.Method, r.URL.Path),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.url", r.URL.Path),
				attribute.String("http.remote_addr", r.RemoteAddr),
			),
		)
		defer span.End()

		wrw := &customResponseWriter{
			ResponseWriter: w,
			status:         http.StatusOK,
		}

		next.ServeHTTP(wrw, r.WithContext(loggerpkg.WithLogger(ctx, log)))

		duration := time.Since(startTime)
		span.SetAttributes(attribute.Int("http.status_code", wrw.status))

		logFields := []zap.Field{
			zap.Int("status", wrw.status),
			zap.Duration("duration", duration),
		}

		msg := fmt.Sprintf("%s %s", r.Method, r.URL.Path)
		switch {
		case wrw.status >= 500:
			log.Error(msg, logFields...)
			span.RecordError(fmt.Errorf("server error: %s", http.StatusText(wrw.status)))
		case wrw.status >= 400:
			log.Warn(msg, logFields...)
		default:
			log.Info(msg, logFields...)
		}
	})
}

// withCORSMiddleware adds CORS headers to all responses.
func (s *Server) withCORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.cfg.AllowedOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Tenant-ID, Last-Event-ID")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withCompressionMiddleware adds HTTP gzip compression for JSON responses.
func (s *Server) withCompressionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isEventStream(r) || !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			next.ServeHTTP(w, r)
			return
		}

		gz, err := gzip.NewWriterLevel(w, gzip.BestSpeed)
		if err != nil {
			s.logger.Error("failed to create gzip writer", zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}
		defer gz.Close()

		w.Header().Set("Vary", "Accept-Encoding")
		next.ServeHTTP(&gzipResponseWriter{ResponseWriter: w, gzipWriter: gz}, r)
	})
}

// withRequestBodyLimitMiddleware limits the request body size.
func (s *Server) withRequestBodyLimitMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.RequestBodyLimit > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, s.cfg.RequestBodyLimit)
		}
		next.ServeHTTP(w, r)
	}
}

// withRequestTimeoutMiddleware bounds the handling time of non-streaming requests.
func (s *Server) withRequestTimeoutMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.RequestTimeout <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// withVerifyTokenMiddleware verifies the bearer token and attaches the principal to the context.
// An X-Tenant-ID header that disagrees with the token's tenant is rejected.
func (s *Server) withVerifyTokenMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := auth.ExtractBearerToken(r.Header.Get("Authorization"))
		if err != nil {
			handleError(w, err)
			return
		}

		principal, err := s.svcs.Auth.ValidateToken(r.Context(), token)
		if err != nil {
			handleError(w, err)
			return
		}

		if tenantID := r.Header.Get(headerTenantID); tenantID != "" && tenantID != principal.TenantID {
			handleError(w, status.Error(codes.PermissionDenied, "tenant does not match the token"))
			return
		}

		ctx := auth.WithPrincipal(r.Context(), principal)
		ctx = loggerpkg.With(ctx, zap.String("tenant_id", principal.TenantID))
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// withRoleMiddleware only lets principals with the given role through.
// This middleware should only be called after the withVerifyTokenMiddleware middleware.
func withRoleMiddleware(role auth.Role, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, err := auth.PrincipalFromContext(r.Context())
		if err != nil {
			handleError(w, err)
			return
		}

		if principal.Role != role {
			handleError(w, status.Errorf(codes.PermissionDenied, "role %q is required", role))
			return
		}

		next.ServeHTTP(w, r)
	}
}
