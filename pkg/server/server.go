// Package server exposes the connector's inbound HTTP surface.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/venkytv/riverside-connector/internal/models"
	"github.com/venkytv/riverside-connector/pkg/video"
)

// MeetingsService is what the HTTP layer needs from the meetings service
type MeetingsService interface {
	Install(ctx context.Context, userID int64, teamID *int64, apiKey string) (string, error)
	ListShows(ctx context.Context, userID int64, teamID *int64) ([]video.Show, error)
	CreateMeeting(ctx context.Context, userID int64, teamID *int64, booking *models.Booking) (*models.VideoMeeting, error)
	UpdateMeeting(ctx context.Context, userID int64, teamID *int64, ref *models.BookingReference, booking *models.Booking) (*models.VideoMeeting, error)
	DeleteMeeting(ctx context.Context, userID int64, teamID *int64, meetingID string) error
}

// HealthChecker reports the health of a downstream dependency
type HealthChecker interface {
	IsHealthy() error
}

// Config holds HTTP server configuration
type Config struct {
	ListenAddr string `yaml:"listen_addr"`
}

// Server wires the meetings service into gin routes
type Server struct {
	config  Config
	engine  *gin.Engine
	httpSrv *http.Server
	service MeetingsService
	health  HealthChecker
	logger  *slog.Logger
}

// New creates the HTTP server. health may be nil when no dependency needs
// surfacing on /healthz.
func New(config Config, service MeetingsService, health HealthChecker, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(RequestLogger(logger))

	s := &Server{
		config:  config,
		engine:  engine,
		service: service,
		health:  health,
		logger:  logger,
	}
	s.registerRoutes()

	s.httpSrv = &http.Server{
		Addr:              config.ListenAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

func (s *Server) registerRoutes() {
	api := s.engine.Group("/api/v1")
	{
		api.POST("/install", s.handleInstall)
		api.GET("/shows", s.handleListShows)
		api.POST("/meetings", s.handleCreateMeeting)
		api.PUT("/meetings/:id", s.handleUpdateMeeting)
		api.DELETE("/meetings/:id", s.handleDeleteMeeting)
	}

	s.engine.GET("/healthz", s.handleHealthz)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// Handler returns the underlying HTTP handler, for tests
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start begins serving in a background goroutine
func (s *Server) Start() {
	go func() {
		s.logger.Info("HTTP server listening", "addr", s.config.ListenAddr)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server failed", "error", err)
		}
	}()
}

// Shutdown stops the server, waiting for in-flight requests up to the
// context deadline
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}
