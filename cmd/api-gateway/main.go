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

	_ "github.com/noah-isme/wfm-time-api/api/swagger"
	"github.com/noah-isme/wfm-time-api/internal/handler"
	internalmw "github.com/noah-isme/wfm-time-api/internal/middleware"
	"github.com/noah-isme/wfm-time-api/internal/repository"
	"github.com/noah-isme/wfm-time-api/internal/service"
	"github.com/noah-isme/wfm-time-api/internal/worktime"
	"github.com/noah-isme/wfm-time-api/pkg/cache"
	"github.com/noah-isme/wfm-time-api/pkg/config"
	"github.com/noah-isme/wfm-time-api/pkg/database"
	"github.com/noah-isme/wfm-time-api/pkg/export"
	"github.com/noah-isme/wfm-time-api/pkg/jobs"
	"github.com/noah-isme/wfm-time-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/wfm-time-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/wfm-time-api/pkg/middleware/requestid"
)

// @title WFM Time API
// @version 0.1.0
// @description Workforce time tracking with schedule-constraint validation
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	validate := validator.New()
	rules := worktime.Rules{
		MaxDailyHours:     cfg.WorkRules.MaxDailyHours,
		MaxWeeklyHours:    cfg.WorkRules.MaxWeeklyHours,
		MinWeeklyHours:    cfg.WorkRules.MinWeeklyHours,
		TargetWeeklyHours: cfg.WorkRules.TargetWeeklyHours,
		MinRestHours:      cfg.WorkRules.MinRestHours,
		VarianceThreshold: cfg.WorkRules.VarianceThreshold,
	}
	detector := worktime.NewDetector(rules, logr)

	intervalRepo := repository.NewIntervalRepository(db)
	employeeRepo := repository.NewEmployeeRepository(db)
	userRepo := repository.NewUserRepository(db)
	conflictRepo := repository.NewConflictRepository(db)

	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if redisClient != nil {
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Conflicts.CacheTTL, logr, true)
	} else {
		cacheSvc = service.NewCacheService(nil, metricsSvc, cfg.Conflicts.CacheTTL, logr, false)
	}

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "wfm-time-api",
	})
	employeeSvc := service.NewEmployeeService(employeeRepo, validate, logr)
	timeEntrySvc := service.NewTimeEntryService(intervalRepo, userRepo, cacheSvc, rules, validate, logr)
	planningSvc := service.NewPlanningService(intervalRepo, detector, userRepo, cacheSvc, validate, logr)
	conflictSvc := service.NewConflictService(intervalRepo, employeeRepo, conflictRepo, cacheSvc, metricsSvc, detector, cfg.Conflicts.CacheTTL, validate, logr)
	reportSvc := service.NewReportService(intervalRepo, employeeRepo, export.NewCSVExporter(), export.NewPDFExporter(), rules, validate, logr)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmw.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handlers := handler.Handlers{
		Auth:      handler.NewAuthHandler(authSvc),
		Employee:  handler.NewEmployeeHandler(employeeSvc),
		TimeEntry: handler.NewTimeEntryHandler(timeEntrySvc),
		Planning:  handler.NewPlanningHandler(planningSvc, timeEntrySvc),
		Conflict:  handler.NewConflictHandler(conflictSvc),
		Report:    handler.NewReportHandler(reportSvc),
	}
	handler.Register(r, cfg.APIPrefix, handlers, authSvc, handler.RouterOptions{
		ReportsEnabled: cfg.Reports.Enabled,
		ScanEnabled:    cfg.Conflicts.ScanEnabled,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var scanQueue *jobs.Queue
	if cfg.Conflicts.ScanEnabled {
		scanQueue = jobs.NewQueue("conflict-scan", conflictSvc.HandleScanJob, jobs.QueueConfig{
			Workers:    cfg.Conflicts.WorkerConcurrency,
			MaxRetries: cfg.Conflicts.WorkerRetries,
			Logger:     logr,
		})
		scanQueue.Start(ctx)
		defer scanQueue.Stop()
		conflictSvc.SetQueue(scanQueue)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
