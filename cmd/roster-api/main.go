package main

import (
	"context"
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

	_ "github.com/hakplan/roster-api/api/swagger"
	"github.com/hakplan/roster-api/internal/handler"
	"github.com/hakplan/roster-api/internal/middleware"
	"github.com/hakplan/roster-api/internal/repository"
	"github.com/hakplan/roster-api/internal/service"
	"github.com/hakplan/roster-api/pkg/cache"
	"github.com/hakplan/roster-api/pkg/config"
	"github.com/hakplan/roster-api/pkg/database"
	"github.com/hakplan/roster-api/pkg/logger"
	corsmiddleware "github.com/hakplan/roster-api/pkg/middleware/cors"
	reqidmiddleware "github.com/hakplan/roster-api/pkg/middleware/requestid"
)

// @title Academy Roster API
// @version 1.0.0
// @description Roster and schedule consistency engine for group teaching sessions
// @BasePath /api/v1
// @schemes http

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// The engine runs without redis, rosters just skip the profile
		// cache.
		logr.Sugar().Warnw("redis unavailable, roster cache disabled", "error", err)
		redisClient = nil
	}

	sessionRepo := repository.NewSessionRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	validate := validator.New()
	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(cfg.JWT.Secret, logr)
	conflictSvc := service.NewConflictService(sessionRepo, logr)
	sessionSvc := service.NewSessionService(sessionRepo, enrollmentRepo, conflictSvc, cacheRepo, metricsSvc, validate, logr, service.SessionServiceConfig{
		FanOutConcurrency: cfg.FanOut.Concurrency,
		RetryWorkers:      cfg.FanOut.RetryWorkers,
		RetryDelay:        cfg.FanOut.RetryDelay,
		MaxRetries:        cfg.FanOut.MaxRetries,
	})
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, sessionRepo, studentRepo, cacheRepo, validate, logr)
	rosterSvc := service.NewRosterService(enrollmentRepo, sessionRepo, studentRepo, cacheRepo, metricsSvc, logr, service.RosterServiceConfig{
		CacheEnabled: cfg.Roster.CacheEnabled && redisClient != nil,
		CacheTTL:     cfg.Roster.CacheTTL,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sessionSvc.Start(ctx)
	defer sessionSvc.Stop()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.Register(r, cfg.APIPrefix, authSvc,
		handler.NewSessionHandler(sessionSvc),
		handler.NewEnrollmentHandler(enrollmentSvc),
		handler.NewRosterHandler(rosterSvc),
	)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
