package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/smartsite/sitehealth/api/handlers"
	"github.com/smartsite/sitehealth/api/middleware"
	"github.com/smartsite/sitehealth/api/websocket"
	_ "github.com/smartsite/sitehealth/docs"
	"github.com/smartsite/sitehealth/internal/auth"
	"github.com/smartsite/sitehealth/internal/events"
	"github.com/smartsite/sitehealth/internal/monitor"
	"github.com/smartsite/sitehealth/internal/ratelimit"
	"github.com/smartsite/sitehealth/pkg/config"
	"github.com/smartsite/sitehealth/pkg/database"
	"github.com/smartsite/sitehealth/pkg/database/queries"
)

const maxTrackingBodyBytes = 64 * 1024

type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	config     *config.Config
	db         *database.DB
	monitor    *monitor.Service
	authSvc    *auth.Service
	wsHub      *websocket.Hub
	wsBridge   *websocket.EventBridge
	limiters   []*ratelimit.RateLimiter
}

func NewServer(cfg *config.Config, db *database.DB, mon *monitor.Service, bus *events.EventBus) *Server {
	if cfg.App.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	authSvc := auth.NewService(cfg.API.JWTSecret, cfg.API.JWTDuration, cfg.API.JWTIssuer)
	wsHub := websocket.NewHub(&cfg.WebSocket)

	s := &Server{
		router:  router,
		config:  cfg,
		db:      db,
		monitor: mon,
		authSvc: authSvc,
		wsHub:   wsHub,
	}

	s.setupMiddleware()
	s.setupRoutes()

	go wsHub.Run()

	if bus != nil {
		s.wsBridge = websocket.NewEventBridge(wsHub, bus.SubscribeAll())
		s.wsBridge.Start()
	}

	return s
}

func (s *Server) newLimiter(cfg ratelimit.Config) *ratelimit.RateLimiter {
	cfg.CleanupInterval = s.config.Ingestion.CleanupInterval
	limiter := ratelimit.New(cfg)
	s.limiters = append(s.limiters, limiter)
	return limiter
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(middleware.SecurityHeaders())
	s.router.Use(middleware.CORS(s.config.API.CORS))
	s.router.Use(middleware.RequestLogger())
	s.router.Use(middleware.TraceID())
}

func (s *Server) setupRoutes() {
	ing := s.config.Ingestion

	statusLimiter := s.newLimiter(ratelimit.Config{
		MaxRequestsPerInterval: ing.StatusLimit,
		Interval:               ing.StatusWindow,
	})
	// Batch ingestion fails open: over-limit batches are still processed,
	// they just stop counting against the window.
	batchLimiter := s.newLimiter(ratelimit.Config{
		MaxRequestsPerInterval: ing.BatchLimit,
		Interval:               ing.BatchWindow,
		AllowAllRequests:       true,
	})
	apiErrorLimiter := s.newLimiter(ratelimit.Config{
		MaxRequestsPerInterval: 10,
		Interval:               time.Minute,
	})
	pageLoadLimiter := s.newLimiter(ratelimit.Config{
		MaxRequestsPerInterval: ing.PageLoadLimit,
		Interval:               ing.PageLoadWindow,
		SamplingRate:           ing.SamplingRate,
	})
	loginLimiter := s.newLimiter(ratelimit.Config{
		MaxRequestsPerInterval: 5,
		Interval:               time.Minute,
	})
	adminLimiter := s.newLimiter(ratelimit.Config{
		MaxRequestsPerInterval: s.config.API.RateLimit,
		Interval:               time.Minute,
	})

	// Repositories
	userRepo := queries.NewUserRepository(s.db.DB)
	metricRepo := queries.NewHealthMetricRepository(s.db.DB)
	logRepo := queries.NewMetricLogRepository(s.db.DB)
	incidentRepo := queries.NewIncidentRepository(s.db.DB)
	notificationRepo := queries.NewNotificationRepository(s.db.DB)

	// Handlers
	healthHandler := handlers.NewHealthHandler(s.db, s.monitor, statusLimiter)
	authHandler := handlers.NewAuthHandler(userRepo, s.authSvc)
	trackHandler := handlers.NewTrackHandler(s.monitor, batchLimiter, apiErrorLimiter, pageLoadLimiter, ing.MaxBatchEntries)
	adminHandler := handlers.NewAdminHandler(
		metricRepo, logRepo, incidentRepo, notificationRepo,
		s.monitor.Dispatcher(),
		s.config.API.DefaultLimit, s.config.API.MaxLimit,
	)

	// Public health surface
	s.router.GET("/api/health", healthHandler.Health)
	s.router.GET("/health/ready", healthHandler.Ready)
	s.router.GET("/health/live", healthHandler.Live)

	// Auth
	s.router.POST("/api/auth/login", middleware.RateLimit(loginLimiter, 60), authHandler.Login)

	// Client telemetry. Small bodies, always 200.
	track := s.router.Group("/api/health")
	track.Use(middleware.RequestSizeLimit(maxTrackingBodyBytes))
	{
		track.POST("/metrics/batch", trackHandler.Batch)
		track.POST("/metrics/track", trackHandler.TrackSingle)
		track.POST("/track/api-error", trackHandler.APIError)
		track.POST("/track/page-load", trackHandler.PageLoad)
		track.POST("/track/session-failure", trackHandler.SessionFailure)
		track.POST("/track/media-upload", trackHandler.MediaUpload)
	}

	// Live event stream for dashboards
	s.router.GET("/ws", websocket.ServeWebSocket(s.wsHub))

	// Admin surface
	admin := s.router.Group("/api/admin/health")
	admin.Use(middleware.RateLimit(adminLimiter, 60))
	admin.Use(middleware.JWTAuth(s.authSvc))
	admin.Use(middleware.RequireRole("admin", "super_admin"))
	{
		admin.GET("/incidents", adminHandler.ListIncidents)
		admin.GET("/incidents/:id", adminHandler.GetIncident)
		admin.POST("/incidents/:id/resolve", adminHandler.ResolveIncident)

		admin.GET("/notifications", adminHandler.ListPendingNotifications)
		admin.POST("/notifications/:id/deliver", adminHandler.DeliverNotification)

		admin.GET("/metrics", adminHandler.ListMetrics)
		admin.POST("/metrics", adminHandler.CreateMetric)
		admin.GET("/metrics/:id", adminHandler.GetMetric)
		admin.PUT("/metrics/:id", adminHandler.UpdateMetric)
		admin.GET("/metrics/:id/history", adminHandler.MetricHistory)
	}

	s.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.API.Port)

	idleTimeout := s.config.API.IdleTimeout
	if idleTimeout <= 0 {
		idleTimeout = 60 * time.Second
	}

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.API.ReadTimeout,
		WriteTimeout: s.config.API.WriteTimeout,
		IdleTimeout:  idleTimeout,
	}

	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.wsBridge != nil {
		s.wsBridge.Stop()
	}

	for _, limiter := range s.limiters {
		limiter.Stop()
	}

	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Router() *gin.Engine {
	return s.router
}
