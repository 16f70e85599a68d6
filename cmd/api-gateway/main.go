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
	"go.uber.org/zap"

	_ "github.com/noah-isme/college-cbcs-api/api/swagger"
	"github.com/noah-isme/college-cbcs-api/internal/handler"
	"github.com/noah-isme/college-cbcs-api/internal/middleware"
	"github.com/noah-isme/college-cbcs-api/internal/models"
	"github.com/noah-isme/college-cbcs-api/internal/repository"
	"github.com/noah-isme/college-cbcs-api/internal/service"
	"github.com/noah-isme/college-cbcs-api/pkg/cache"
	"github.com/noah-isme/college-cbcs-api/pkg/config"
	"github.com/noah-isme/college-cbcs-api/pkg/database"
	"github.com/noah-isme/college-cbcs-api/pkg/export"
	"github.com/noah-isme/college-cbcs-api/pkg/jobs"
	"github.com/noah-isme/college-cbcs-api/pkg/locks"
	"github.com/noah-isme/college-cbcs-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/college-cbcs-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/college-cbcs-api/pkg/middleware/requestid"
)

// @title College CBCS API
// @version 1.0.0
// @description Capacity-constrained elective allocation for CBCS cycles
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// The selection view falls back to the database when redis is absent.
		logr.Sugar().Warnw("redis unavailable, selection caching disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()
	lockRegistry := locks.NewRegistry()

	userRepo := repository.NewUserRepository(db)
	cycleRepo := repository.NewCycleRepository(db)
	prefRepo := repository.NewPreferenceRepository(db)
	allocationRepo := repository.NewAllocationRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	metricsService := service.NewMetricsService()

	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		Secret: cfg.JWT.Secret,
		Expiry: cfg.JWT.Expiration,
		Issuer: cfg.JWT.Issuer,
	})

	cycleService := service.NewCycleService(cycleRepo, prefRepo, cacheRepo, metricsService, validate, logr, cfg.CBCS.SelectionCacheTTL)

	finalizationService := service.NewFinalizationService(allocationRepo, cycleRepo, lockRegistry, cacheRepo, metricsService, logr, service.FinalizationConfig{
		LockWait:             cfg.CBCS.FinalizeLockWait,
		StatementLockTimeout: cfg.CBCS.StatementLockTimeout,
	})

	finalizeQueue := jobs.NewQueue("finalize", finalizationService.HandleJob, jobs.QueueConfig{
		Workers:    cfg.Jobs.Workers,
		BufferSize: cfg.Jobs.BufferSize,
		MaxRetries: cfg.Jobs.MaxRetries,
		RetryDelay: cfg.Jobs.RetryDelay,
		Logger:     logr,
	})
	finalizeQueue.Start(context.Background())
	defer finalizeQueue.Stop()

	submissionService := service.NewSubmissionService(cycleRepo, prefRepo, lockRegistry, finalizeQueue, metricsService, validate, logr, service.SubmissionConfig{
		LockWait: cfg.CBCS.SubmissionLockWait,
	})

	rosterService := service.NewRosterService(cycleRepo, allocationRepo, export.NewCSVExporter(), export.NewPDFExporter(), logr)

	authHandler := handler.NewAuthHandler(authService)
	cycleHandler := handler.NewCycleHandler(cycleService)
	preferenceHandler := handler.NewPreferenceHandler(submissionService)
	allocationHandler := handler.NewAllocationHandler(finalizationService, rosterService)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		auth := api.Group("/auth")
		auth.POST("/login", authHandler.Login)
		auth.GET("/me", middleware.JWT(authService), authHandler.Me)

		cbcs := api.Group("/cbcs", middleware.JWT(authService))
		{
			cbcs.GET("/cycles", cycleHandler.List)
			cbcs.POST("/cycles", middleware.RequireRoles(models.RoleAdmin), cycleHandler.Create)
			cbcs.GET("/cycles/active", cycleHandler.ActiveSelection)
			cbcs.GET("/cycles/:id", cycleHandler.Get)
			cbcs.GET("/cycles/:id/progress", cycleHandler.Progress)
			cbcs.POST("/cycles/:id/finalize", middleware.RequireRoles(models.RoleAdmin), allocationHandler.Finalize)
			cbcs.GET("/cycles/:id/allocations", middleware.RequireRoles(models.RoleAdmin, models.RoleStaff), allocationHandler.Allocations)
			cbcs.GET("/cycles/:id/allocations/export", middleware.RequireRoles(models.RoleAdmin, models.RoleStaff), allocationHandler.Export)

			cbcs.POST("/preferences", preferenceHandler.Submit)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
}
