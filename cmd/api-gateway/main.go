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
	"go.uber.org/zap"

	_ "github.com/noah-isme/facility-maintenance-api/api/swagger"
	"github.com/noah-isme/facility-maintenance-api/internal/handler"
	"github.com/noah-isme/facility-maintenance-api/internal/repository"
	"github.com/noah-isme/facility-maintenance-api/internal/service"
	"github.com/noah-isme/facility-maintenance-api/migrations"
	"github.com/noah-isme/facility-maintenance-api/pkg/cache"
	"github.com/noah-isme/facility-maintenance-api/pkg/config"
	"github.com/noah-isme/facility-maintenance-api/pkg/database"
	"github.com/noah-isme/facility-maintenance-api/pkg/logger"
)

// @title Facility Maintenance API
// @version 1.0.0
// @description Maintenance request lifecycle: drafts, submission, assignment and status transitions
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	if cfg.MigrateOnStart {
		if err := database.Migrate(db, migrations.FS); err != nil {
			logr.Fatal("failed to apply migrations", zap.Error(err))
		}
		logr.Info("migrations applied")
	}

	metrics := service.NewMetricsService()
	pingers := map[string]handler.Pinger{"postgres": db}

	var cacheRepo service.CacheRepository
	if cfg.Redis.Enabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		} else {
			defer client.Close() //nolint:errcheck
			cacheRepo = repository.NewCacheRepository(client, "facility", logr)
			pingers["redis"] = cache.Pinger{Client: client}
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Maintenance.CacheTTL, logr, cfg.Maintenance.CacheEnabled)

	maintenanceRepo := repository.NewMaintenanceRepository(db)
	historyRepo := repository.NewHistoryRepository(db)
	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	validate := validator.New()

	notifications := service.NewNotificationService(auditRepo, metrics, service.NotificationConfig{
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.BufferSize,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
	}, logr)
	// Workers outlive the signal so Stop can drain pending audit writes.
	workerCtx := context.WithoutCancel(ctx)
	notifications.Start(workerCtx)
	defer notifications.Stop()

	maintenanceSvc := service.NewMaintenanceService(maintenanceRepo, historyRepo, userRepo, notifications, cacheSvc, metrics, validate, logr,
		service.WithSummaryTTL(cfg.Maintenance.CacheTTL))
	draftSvc := service.NewDraftService(maintenanceRepo, historyRepo, notifications, cacheSvc, metrics, nil, validate, logr)
	technicianSvc := service.NewTechnicianService(userRepo, cacheSvc, cfg.Maintenance.CacheTTL, logr)
	exportSvc := service.NewExportService(maintenanceRepo, service.ExportConfig{MaxRows: cfg.Export.MaxRows}, logr)
	tokens := service.NewTokenVerifier(service.TokenConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer})

	if cfg.Overdue.Enabled {
		overdue := service.NewOverdueService(maintenanceRepo, notifications, metrics, cfg.Overdue.Interval, logr)
		if err := overdue.Start(workerCtx); err != nil {
			logr.Fatal("failed to schedule overdue sweep", zap.Error(err))
		}
		defer overdue.Stop()
	}

	router := newRouter(routerDeps{
		Logger:         logr,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		APIPrefix:      cfg.APIPrefix,
		ServeDocs:      cfg.Env != config.EnvProduction,
		Tokens:         tokens,
		Audit:          auditRepo,
		Metrics:        metrics,
		Maintenance:    handler.NewMaintenanceHandler(maintenanceSvc, exportSvc),
		Drafts:         handler.NewDraftHandler(draftSvc),
		Technicians:    handler.NewTechnicianHandler(technicianSvc),
		Ops:            handler.NewMetricsHandler(metrics, pingers),
	})

	if err := serve(ctx, router, cfg.Port, logr); err != nil {
		logr.Error("server failed", zap.Error(err))
	}
}

func serve(ctx context.Context, h http.Handler, port int, logr *zap.Logger) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
