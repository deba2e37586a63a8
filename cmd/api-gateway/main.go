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
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/grievance-api/api/swagger"
	"github.com/noah-isme/grievance-api/internal/handler"
	internalmiddleware "github.com/noah-isme/grievance-api/internal/middleware"
	"github.com/noah-isme/grievance-api/internal/repository"
	"github.com/noah-isme/grievance-api/internal/service"
	"github.com/noah-isme/grievance-api/pkg/cache"
	"github.com/noah-isme/grievance-api/pkg/catalog"
	"github.com/noah-isme/grievance-api/pkg/config"
	"github.com/noah-isme/grievance-api/pkg/database"
	"github.com/noah-isme/grievance-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/grievance-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/grievance-api/pkg/middleware/requestid"
	"github.com/noah-isme/grievance-api/pkg/notify"
	"github.com/noah-isme/grievance-api/pkg/queue"
	"github.com/noah-isme/grievance-api/pkg/storage"
	"github.com/noah-isme/grievance-api/pkg/trackingid"
)

// @title Grievance Redressal API
// @version 1.0.0
// @description Citizen intake, tracking and officer escalation workflow for welfare scheme grievances.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

type stores struct {
	grievances repository.GrievanceStore
	officers   repository.OfficerStore
	db         *sqlx.DB
}

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

	st, err := openStores(ctx, cfg, logr)
	if err != nil {
		logr.Fatal("failed to open record store", zap.Error(err))
	}
	if st.db != nil {
		defer st.db.Close()
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	metrics := service.NewMetricsService()
	validate := service.NewValidator()

	var cacheSvc *service.CacheService
	if redisClient != nil {
		cacheSvc = service.NewCacheService(repository.NewCacheRepository(redisClient, logr), metrics, cfg.Dashboard.CacheTTL, logr, cfg.Dashboard.CacheEnabled)
	}

	var source catalog.Source = catalog.Pilot()
	if cfg.Catalog.BaseURL != "" {
		source = catalog.NewClient(cfg.Catalog.BaseURL, cfg.Catalog.Timeout, logr)
	}
	catalogSvc := service.NewCatalogService(source, cacheSvc, cfg.Catalog.CacheTTL, logr)

	var publisher queue.Publisher
	if cfg.Queue.Enabled {
		publisher, err = queue.NewRabbitPublisher(cfg.Queue.URL, cfg.Queue.EventsQueue)
		if err != nil {
			logr.Warn("rabbitmq unavailable, lifecycle events disabled", zap.Error(err))
			publisher = nil
		} else {
			defer publisher.Close()
		}
	}
	var mailer notify.Mailer
	if cfg.Notifications.EmailEnabled && cfg.Notifications.ResendAPIKey != "" {
		mailer = notify.NewResendMailer(cfg.Notifications.ResendAPIKey, cfg.Notifications.FromEmail)
	}
	notifier := service.NewNotificationService(publisher, mailer, service.NotificationConfig{
		EventsQueue: cfg.Queue.EventsQueue,
		PortalURL:   cfg.Notifications.PortalURL,
		Workers:     cfg.Queue.Workers,
		Retries:     cfg.Queue.Retries,
	}, metrics, logr)
	notifier.Start(ctx)
	defer notifier.Stop()

	grievanceSvc := service.NewGrievanceService(st.grievances, st.officers, trackingid.NewGenerator(), validate, logr, cfg.Grievance,
		service.WithGrievanceNotifier(notifier),
		service.WithGrievanceCatalog(catalogSvc),
		service.WithGrievanceMetrics(metrics),
	)
	actionSvc := service.NewActionService(st.grievances, st.officers, validate, logr,
		service.WithActionNotifier(notifier),
		service.WithActionMetrics(metrics),
		service.WithActionCache(cacheSvc),
	)
	trackingSvc := service.NewTrackingService(st.grievances, logr)
	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		Grievances: st.grievances,
		Officers:   st.officers,
		Cache:      cacheSvc,
		Logger:     logr,
		Config:     service.DashboardServiceConfig{CacheTTL: cfg.Dashboard.CacheTTL},
	})
	authSvc := service.NewAuthService(st.officers, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})

	exportStore, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare export storage", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	exportSvc := service.NewExportService(st.grievances, st.officers, exportStore, signer, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Exports.SignedURLTTL,
	}, logr, nil)
	go exportSvc.RunCleanup(ctx, cfg.Exports.CleanupInterval)
	go service.NewPriorityService(st.grievances, cacheSvc, logr).Run(ctx, cfg.Grievance.PriorityAgingEvery)

	attachmentSvc := service.NewAttachmentService(nil, st.grievances, st.officers, logr)
	if cfg.Storage.Enabled {
		objects, err := storage.NewObjectStore(ctx, cfg.Storage)
		if err != nil {
			logr.Warn("object storage unavailable, attachments disabled", zap.Error(err))
		} else {
			attachmentSvc = service.NewAttachmentService(objects, st.grievances, st.officers, logr)
		}
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))
	r.Use(internalmiddleware.WithResponseMeta())

	ops := handler.NewOpsHandler(metrics, readinessChecks(st.db, redisClient))
	r.GET("/health", ops.Health)
	r.GET("/ready", ops.Ready)
	r.GET("/metrics", ops.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	var lookupLimit gin.HandlerFunc
	if cfg.RateLimit.Enabled {
		limiter := internalmiddleware.NewRateLimiter(cfg.RateLimit.MaxRequests, cfg.RateLimit.Window)
		go limiter.Sweep(ctx)
		lookupLimit = limiter.Middleware()
	}

	handler.Routes{
		Citizen:      handler.NewCitizenHandler(grievanceSvc, trackingSvc, attachmentSvc),
		Officer:      handler.NewOfficerHandler(grievanceSvc, actionSvc, exportSvc, attachmentSvc),
		Auth:         handler.NewAuthHandler(authSvc),
		Dashboard:    handler.NewDashboardHandler(dashboardSvc),
		Download:     handler.NewDownloadHandler(exportSvc),
		Catalog:      handler.NewCatalogHandler(catalogSvc),
		Authenticate: internalmiddleware.JWT(authSvc),
		LookupLimit:  lookupLimit,
	}.Register(r.Group(cfg.APIPrefix))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "in_memory", cfg.Database.InMemory)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

func openStores(ctx context.Context, cfg *config.Config, logr *zap.Logger) (*stores, error) {
	if cfg.Database.InMemory {
		officers := repository.NewMemoryOfficerRepository()
		hash, err := service.HashPassword(cfg.Database.SeedPassword)
		if err != nil {
			return nil, err
		}
		if err := repository.SeedPilot(ctx, officers, hash); err != nil {
			return nil, err
		}
		logr.Warn("using in-memory record store; data is lost on restart")
		return &stores{grievances: repository.NewMemoryGrievanceRepository(), officers: officers}, nil
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	return &stores{
		grievances: repository.NewGrievanceRepository(db),
		officers:   repository.NewOfficerRepository(db),
		db:         db,
	}, nil
}

func readinessChecks(db *sqlx.DB, rdb *redis.Client) map[string]handler.ReadinessCheck {
	checks := map[string]handler.ReadinessCheck{}
	if db != nil {
		checks["postgres"] = db.PingContext
	}
	if rdb != nil {
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	return checks
}
