// Package api serves the lane configuration over HTTP for dashboards and
// other services.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ironsheep/lionsgate-lanes/internal/api/handlers"
	"github.com/ironsheep/lionsgate-lanes/internal/monitor"
)

type Server struct {
	port   int
	router *gin.Engine
	server *http.Server
	logger zerolog.Logger

	healthHandler *handlers.HealthHandler
	lanesHandler  *handlers.LanesHandler
}

func NewServer(port int, version string, mon *monitor.Monitor) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	return &Server{
		port:          port,
		router:        router,
		logger:        log.With().Str("component", "api").Logger(),
		healthHandler: handlers.NewHealthHandler(version, mon.Engine()),
		lanesHandler:  handlers.NewLanesHandler(mon),
	}
}

func (s *Server) Setup() {
	s.setupMiddleware()

	s.setupRoutes()

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// Handler returns the configured router. Setup must have been called.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start blocks serving HTTP until Stop is called.
func (s *Server) Start() error {
	s.logger.Info().Int("port", s.port).Msg("Starting lane status API")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info().Msg("Stopping lane status API")
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}
