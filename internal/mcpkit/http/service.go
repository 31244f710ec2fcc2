package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/sjzar/mcpkit/internal/errors"
	"github.com/sjzar/mcpkit/internal/mcp"
)

const ShutdownTimeout = 2 * time.Second

type Service struct {
	conf Config
	mcp  *mcp.MCP

	router *gin.Engine
	server *http.Server
}

type Config interface {
	GetHTTPAddr() string
}

func NewService(conf Config, m *mcp.MCP) *Service {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	if err := router.SetTrustedProxies(nil); err != nil {
		log.Err(err).Msg("Failed to set trusted proxies")
	}

	router.Use(
		errors.RecoveryMiddleware(),
		errors.ErrorHandlerMiddleware(),
		gin.LoggerWithWriter(log.Logger, "/health"),
		corsMiddleware(),
	)

	s := &Service{
		conf:   conf,
		mcp:    m,
		router: router,
	}

	s.initRouter()
	return s
}

// Start serves in the background. Listen errors other than a clean
// shutdown are logged.
func (s *Service) Start() error {
	s.mcp.Start()
	s.server = s.newServer()

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Err(err).Msg("Failed to start HTTP server")
		}
	}()

	log.Info().Msg("Starting HTTP server on " + s.conf.GetHTTPAddr())
	return nil
}

// ListenAndServe serves until the server is stopped.
func (s *Service) ListenAndServe() error {
	s.mcp.Start()
	s.server = s.newServer()

	log.Info().Msg("Starting HTTP server on " + s.conf.GetHTTPAddr())
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.HTTPShutDown(err)
	}
	return nil
}

func (s *Service) newServer() *http.Server {
	return &http.Server{
		Addr:              s.conf.GetHTTPAddr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func (s *Service) Stop() error {

	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	// open SSE streams never finish on their own
	if err := s.server.Shutdown(ctx); err != nil {
		log.Debug().Err(err).Msg("Failed to shutdown HTTP server, closing")
		_ = s.server.Close()
	}
	s.mcp.Close()

	log.Info().Msg("HTTP server stopped")
	return nil
}

func (s *Service) GetRouter() *gin.Engine {
	return s.router
}
