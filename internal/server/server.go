//go:generate mockgen -source=$GOFILE -package=$GOPACKAGE -destination=./mock/$GOFILE

package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	eventsmodel "github.com/hitesh22rana/runstream/internal/model/events"
	runsmodel "github.com/hitesh22rana/runstream/internal/model/runs"
	"github.com/hitesh22rana/runstream/internal/pkg/auth"
	loggerpkg "github.com/hitesh22rana/runstream/internal/pkg/logger"
	svcpkg "github.com/hitesh22rana/runstream/internal/pkg/svc"
	payloadsrepo "github.com/hitesh22rana/runstream/internal/repository/payloads"
	eventssvc "github.com/hitesh22rana/runstream/internal/service/events"
)

// TokenValidator verifies bearer tokens.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*auth.Principal, error)
}

// RunsService triggers and looks up runs.
type RunsService interface {
	Trigger(ctx context.Context, req *runsmodel.TriggerRequest) (*runsmodel.WorkflowRun, error)
	GetRun(ctx context.Context, tenantID, runID string) (*runsmodel.WorkflowRun, error)
}

// EventsService appends and streams run events.
type EventsService interface {
	Submit(ctx context.Context, req *eventssvc.SubmitRequest) (string, error)
	AppendRuntime(ctx context.Context, tenantID, runID string, recs []*eventsmodel.Record) ([]string, error)
	Stream(ctx context.Context, tenantID, runID, lastEventID string, emitter eventssvc.Emitter) error
}

// PayloadsService serves signed payload URLs.
type PayloadsService interface {
	Fetch(ctx context.Context, token string) (*payloadsrepo.Object, error)
}

// Services holds the services the HTTP API is served from.
type Services struct {
	Auth     TokenValidator
	Runs     RunsService
	Events   EventsService
	Payloads PayloadsService
}

// Config represents the configuration of the HTTP server.
type Config struct {
	Host              string
	Port              int
	RequestTimeout    time.Duration
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	IdleTimeout       time.Duration
	KeepAlive         time.Duration
	RequestBodyLimit  int64
	AllowedOrigin     string
}

// Server implements the HTTP server.
type Server struct {
	tp         trace.Tracer
	logger     *zap.Logger
	cfg        *Config
	svcs       *Services
	httpServer *http.Server
}

// New creates a new HTTP server.
func New(ctx context.Context, cfg *Config, svcs *Services) *Server {
	srv := &Server{
		tp:     otel.Tracer(svcpkg.Info().GetName()),
		logger: loggerpkg.FromContext(ctx),
		cfg:    cfg,
		svcs:   svcs,
		httpServer: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: cfg.ReadHeaderTimeout,
			// Event streams stay open, so there is no write timeout.
			IdleTimeout: cfg.IdleTimeout,
		},
	}

	router := http.NewServeMux()
	srv.registerRoutes(router)
	srv.httpServer.Handler = srv.withCORSMiddleware(
		srv.withOtelMiddleware(
			srv.withCompressionMiddleware(router),
		),
	)
	return srv
}

// Handler returns the root handler of the server.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// registerRoutes registers the HTTP routes.
func (s *Server) registerRoutes(router *http.ServeMux) {
	router.HandleFunc("GET /healthz", s.handleHealthz)

	router.HandleFunc(
		"POST /runs",
		s.withRequestBodyLimitMiddleware(
			s.withRequestTimeoutMiddleware(
				s.withVerifyTokenMiddleware(
					s.handleTriggerRun,
				),
			),
		),
	)
	router.HandleFunc(
		"GET /runs/{run_id}",
		s.withRequestTimeoutMiddleware(
			s.withVerifyTokenMiddleware(
				s.handleGetRun,
			),
		),
	)
	router.HandleFunc(
		"GET /runs/{run_id}/events",
		s.withVerifyTokenMiddleware(
			s.handleStreamEvents,
		),
	)
	router.HandleFunc(
		"POST /runs/{run_id}/events",
		s.withRequestBodyLimitMiddleware(
			s.withRequestTimeoutMiddleware(
				s.withVerifyTokenMiddleware(
					s.handleSubmitEvent,
				),
			),
		),
	)
	router.HandleFunc(
		"POST /internal/runs/{run_id}/log",
		s.withRequestBodyLimitMiddleware(
			s.withRequestTimeoutMiddleware(
				s.withVerifyTokenMiddleware(
					withRoleMiddleware(
						auth.RoleService,
						s.handleAppendLog,
					),
				),
			),
		),
	)
	router.HandleFunc(
		"GET /payloads",
		s.withRequestTimeoutMiddleware(
			s.handleGetPayload,
		),
	)
}

// Start serves HTTP until ctx is done and then shuts the server down gracefully.
func (s *Server) Start(ctx context.Context) error {
	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	eg.Go(func() error {
		<-egCtx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), serverShutdownTimeout)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("server shutdown failed", zap.Error(err))
			return err
		}

		s.logger.Info("server gracefully stopped")
		return nil
	})

	return eg.Wait()
}
