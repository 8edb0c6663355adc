package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/weldtech/sparky/pkg/intent"
	"github.com/weldtech/sparky/pkg/orchestrator"
)

// UserContextStore resolves a caller's stored profile/session history and
// records new queries. Implemented by the relational adapter; nil means
// the service runs stateless.
type UserContextStore interface {
	Load(ctx context.Context, userID, sessionID string) (intent.UserContext, error)
	RecordQuery(ctx context.Context, userID, sessionID, query string) error
}

// HealthChecker is the readiness dependency: the graph store (required)
// and the relational store (reported but not gating).
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Server owns the chi router and the HTTP listener for the API surface.
type Server struct {
	orch       *orchestrator.Orchestrator
	users      UserContextStore
	graph      HealthChecker
	relational HealthChecker
	window     *RollingWindow
	validate   *validator.Validate
	log        *logrus.Logger
	server     *http.Server
	startedAt  time.Time
}

// Config tunes the HTTP listener.
type Config struct {
	Port           string
	RequestTimeout time.Duration
}

// New wires the router. graph must be non-nil (readiness gates on it);
// users and relational may be nil.
func New(cfg Config, orch *orchestrator.Orchestrator, users UserContextStore, graph, relational HealthChecker, log *logrus.Logger) *Server {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	addr := cfg.Port
	if len(addr) > 0 && addr[0] != ':' {
		addr = ":" + addr
	}

	s := &Server{
		orch:       orch,
		users:      users,
		graph:      graph,
		relational: relational,
		window:     NewRollingWindow(),
		validate:   validator.New(),
		log:        log,
		startedAt:  time.Now(),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/health/detailed", s.handleHealthDetailed)
	r.Get("/health/readiness", s.handleReadiness)
	r.Get("/health/liveness", s.handleLiveness)

	r.Route("/api/v1", func(api chi.Router) {
		api.Post("/sparky/message", s.handleSparkyMessage)
		api.Post("/enterprise/recommendations", s.handleEnterpriseRecommendations)
		api.Get("/enterprise/metrics", s.handleEnterpriseMetrics)
	})

	s.server = &http.Server{Addr: addr, Handler: r}
	return s
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start blocks serving until Shutdown or a listener error.
func (s *Server) Start() error {
	s.log.WithField("addr", s.server.Addr).Info("http server listening")
	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
