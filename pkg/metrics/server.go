package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Server serves the /metrics scrape endpoint on its own port, independent
// of the main API surface.
type Server struct {
	server *http.Server
	log    *logrus.Logger
}

// NewServer builds a metrics server bound to addr (a bare port string,
// e.g. "8080", is prefixed with ":").
func NewServer(addr string, log *logrus.Logger) *Server {
	if len(addr) > 0 && addr[0] != ':' {
		addr = ":" + addr
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	return &Server{
		server: &http.Server{Addr: addr, Handler: mux},
		log:    log,
	}
}

// StartAsync begins serving in a background goroutine; a listen error is
// logged rather than panicking, since the metrics endpoint is not on the
// request-serving critical path.
func (s *Server) StartAsync() {
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.WithError(err).Error("metrics server stopped unexpectedly")
		}
	}()
}

// Stop gracefully shuts the metrics server down.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
