package httpserver

import (
	"context"
	"errors"
	"net/http"

	"log/slog"

	"tiendacore/internal/config"
)

// Server wraps http.Server with the storefront's timeouts and shutdown
// handling. Timeouts come from config so deployments can stretch them for
// slow clients without a rebuild.
type Server struct {
	server *http.Server
	logger *slog.Logger
}

func New(cfg config.Config, handler http.Handler, logger *slog.Logger) *Server {
	return &Server{
		server: &http.Server{
			Addr:         cfg.HTTPAddr,
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		logger: logger,
	}
}

func (s *Server) Start() error {
	s.logger.Info("storefront api listening", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("storefront api draining connections")
	return s.server.Shutdown(ctx)
}
