package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/gettogather-api/api/swagger"
	"github.com/noah-isme/gettogather-api/internal/backend"
	"github.com/noah-isme/gettogather-api/internal/handler"
	internalmiddleware "github.com/noah-isme/gettogather-api/internal/middleware"
	"github.com/noah-isme/gettogather-api/internal/models"
	"github.com/noah-isme/gettogather-api/internal/repository"
	"github.com/noah-isme/gettogather-api/internal/search"
	"github.com/noah-isme/gettogather-api/internal/service"
	"github.com/noah-isme/gettogather-api/internal/session"
	"github.com/noah-isme/gettogather-api/pkg/cache"
	"github.com/noah-isme/gettogather-api/pkg/config"
	"github.com/noah-isme/gettogather-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/gettogather-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/gettogather-api/pkg/middleware/requestid"
)

const (
	sessionCookieMaxAge = 30 * 24 * time.Hour
	shutdownTimeout     = 10 * time.Second
)

// @title Gettogather API
// @version 1.0.0
// @description Campus event discovery: sessions, natural-language search, events and admin reporting.
// @BasePath /api/v1
// @schemes http https

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	handle := backend.Open(cfg, backend.WithLogger(logr))
	defer handle.Close() //nolint:errcheck
	if !handle.Configured() {
		logr.Warn("serving mock data", zap.String("reason", handle.Reason()))
	}

	metricsSvc := service.NewMetricsService()

	var (
		cacheRepo service.CacheRepository
		pingCache func(context.Context) error
	)
	redisCtx, cancelRedis := context.WithTimeout(context.Background(), 5*time.Second)
	redisClient, err := cache.NewRedis(redisCtx, cfg.Redis)
	cancelRedis()
	switch {
	case errors.Is(err, cache.ErrDisabled):
	case err != nil:
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
	default:
		repo := repository.NewCacheRepository(redisClient, repository.DefaultCacheNamespace, logr)
		defer repo.Close() //nolint:errcheck
		cacheRepo = repo
		pingCache = func(ctx context.Context) error { return cache.Ping(ctx, redisClient) }
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Events.CacheTTL, logr, cfg.Events.CacheEnabled && cacheRepo != nil)

	params := service.EventServiceParams{
		Cache:     cacheSvc,
		Validator: validator.New(),
		Logger:    logr,
		Config: service.EventServiceConfig{
			Bucket:        cfg.Storage.Bucket,
			MaxImageBytes: cfg.Storage.MaxImageBytes,
			CacheTTL:      cfg.Events.CacheTTL,
			Location:      cfg.Search.Location(),
			EventURLBase:  cfg.PublicBaseURL + cfg.APIPrefix + "/events",
		},
	}
	var (
		profiles   session.ProfileStore
		statsStore *repository.StatsRepository
	)
	if handle.Configured() {
		client := handle.Client()
		params.Events = repository.NewEventRepository(client.DB)
		params.Attendance = repository.NewAttendanceRepository(client.DB)
		if client.Storage != nil {
			params.Images = client.Storage
		}
		profiles = repository.NewProfileRepository(client.DB)
		statsStore = repository.NewStatsRepository(client.DB)
	}
	eventSvc := service.NewEventService(params)

	var adminSvc *service.AdminService
	if statsStore != nil {
		adminSvc = service.NewAdminService(statsStore, eventSvc, cacheSvc, metricsSvc, cfg.Events.StatsCacheTTL, logr)
	} else {
		adminSvc = service.NewAdminService(nil, eventSvc, cacheSvc, metricsSvc, cfg.Events.StatsCacheTTL, logr)
	}

	extractor := search.NewLLMExtractor(cfg.LLM)
	if !extractor.Configured() {
		logr.Warn("language model not configured, search falls back to raw text")
	}
	resolver := search.NewResolver(extractor, logr, metricsSvc)

	sessionCfg := session.Config{MockDelay: cfg.Session.MockDelay, LoginMockDelay: cfg.Session.LoginMockDelay}
	registry := session.NewRegistry(func() *session.Controller {
		if !handle.Configured() {
			return session.NewController(nil, nil, sessionCfg, logr, metricsSvc)
		}
		return session.NewController(handle.Client().Auth.NewSession(), profiles, sessionCfg, logr, metricsSvc)
	}, cfg.Session.IdleTTL, logr)
	registry.SetLimit(cfg.Session.MaxActive)
	defer registry.Close()

	sweeper, err := registry.Schedule(cfg.Session.SweepSchedule)
	if err != nil {
		logr.Fatal("invalid session sweep schedule", zap.String("schedule", cfg.Session.SweepSchedule), zap.Error(err))
	}
	defer sweeper.Stop()

	corsPolicy := corsmiddleware.NewPolicy(cfg.CORS.AllowedOrigins)
	upgrader := handler.NewUpgrader(corsmiddleware.CheckOrigin(corsPolicy))

	healthHandler := handler.NewHealthHandler(metricsSvc, handle.Configured, pingCache)
	sessionHandler := handler.NewSessionHandler(upgrader, cfg.Session.RedirectURL, cfg.Session.LoadTimeout, logr)
	eventHandler := handler.NewEventHandler(eventSvc, resolver, cfg.Storage.MaxImageBytes)
	searchHandler := handler.NewSearchHandler(resolver, eventSvc, cfg.Search.Debounce, upgrader, logr)
	adminHandler := handler.NewAdminHandler(adminSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.Middleware(corsPolicy))
	r.Use(internalmiddleware.Metrics(metricsSvc, "/metrics"))
	r.Use(internalmiddleware.WithResponseMeta())

	r.GET("/health", healthHandler.Health)
	r.GET("/ready", healthHandler.Ready)
	r.GET("/metrics", healthHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	if handle.Configured() {
		if local, ok := handle.Client().Storage.(*backend.LocalObjectStorage); ok {
			r.Static(backend.MediaPrefix, local.Root())
		}
	}

	sessionOpts := internalmiddleware.SessionOptions{
		CookieName: cfg.Session.CookieName,
		Secure:     cfg.Session.CookieSecure,
		MaxAge:     sessionCookieMaxAge,
		Metrics:    metricsSvc,
	}
	api := r.Group(cfg.APIPrefix)

	establish := api.Group("")
	establish.Use(internalmiddleware.Session(registry, sessionOpts))
	establish.GET("/session", sessionHandler.Get)
	establish.GET("/session/stream", sessionHandler.Stream)

	auth := establish.Group("/auth")
	auth.POST("/login", sessionHandler.Login)
	auth.POST("/oauth", sessionHandler.OAuth)
	auth.POST("/callback", sessionHandler.Callback)
	auth.POST("/logout", sessionHandler.Logout)

	secured := api.Group("")
	secured.Use(internalmiddleware.ResumeSession(registry, sessionOpts))
	secured.Use(internalmiddleware.RequireAuthenticated(cfg.Session.LoadTimeout))

	events := secured.Group("/events")
	events.GET("", eventHandler.List)
	events.GET("/search/stream", searchHandler.Stream)
	events.GET("/calendar.ics", eventHandler.Calendar)
	events.GET("/:id", eventHandler.Get)
	events.POST("", internalmiddleware.Audit(logr, "CREATE", "event"), eventHandler.Create)
	events.PATCH("/:id", internalmiddleware.Audit(logr, "UPDATE", "event"), eventHandler.Update)
	events.DELETE("/:id", internalmiddleware.Audit(logr, "DELETE", "event"), eventHandler.Delete)
	events.POST("/:id/image", internalmiddleware.Audit(logr, "UPLOAD_IMAGE", "event"), eventHandler.UploadImage)
	events.POST("/:id/attendees", internalmiddleware.Audit(logr, "JOIN", "event"), eventHandler.Join)
	events.DELETE("/:id/attendees", internalmiddleware.Audit(logr, "LEAVE", "event"), eventHandler.Leave)

	admin := secured.Group("/admin")
	admin.Use(internalmiddleware.RequireRoles(models.RoleAdmin))
	admin.GET("/stats", adminHandler.Stats)
	admin.GET("/events/export", internalmiddleware.Audit(logr, "EXPORT", "event"), adminHandler.Export)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "backend_configured", handle.Configured())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
