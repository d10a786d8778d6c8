package http

import (
	"context"
	"net/http"
	"time"
)

// Server owns the HTTP listener so the app can drain in-flight requests on
// shutdown instead of dropping them mid-handler.
type Server struct {
	Engine *http.Server
	router http.Handler
}

func NewServer(cfg RouterConfig) *Server {
	return &Server{router: NewRouter(cfg)}
}

func (s *Server) Run(address string) error {
	s.Engine = &http.Server{
		Addr:              address,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	err := s.Engine.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops accepting new connections and waits for active requests to
// finish, bounded by ctx. Safe to call before Run.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.Engine == nil {
		return nil
	}
	return s.Engine.Shutdown(ctx)
}

// Handler exposes the routing tree for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }
