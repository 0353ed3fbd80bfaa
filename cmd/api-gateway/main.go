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

	_ "github.com/noah-isme/infodoc-api/api/swagger"
	"github.com/noah-isme/infodoc-api/internal/handler"
	internalmiddleware "github.com/noah-isme/infodoc-api/internal/middleware"
	"github.com/noah-isme/infodoc-api/internal/repository"
	"github.com/noah-isme/infodoc-api/internal/service"
	"github.com/noah-isme/infodoc-api/internal/viewer"
	"github.com/noah-isme/infodoc-api/pkg/cache"
	"github.com/noah-isme/infodoc-api/pkg/config"
	"github.com/noah-isme/infodoc-api/pkg/database"
	"github.com/noah-isme/infodoc-api/pkg/jobs"
	"github.com/noah-isme/infodoc-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/infodoc-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/infodoc-api/pkg/middleware/requestid"
	"github.com/noah-isme/infodoc-api/pkg/pdfrender"
	"github.com/noah-isme/infodoc-api/pkg/secret"
	"github.com/noah-isme/infodoc-api/pkg/storage"
)

// @title Infodoc API
// @version 1.0.0
// @description Document portal: categorized uploads, listings and a server-side PDF flipbook.
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logr.Warn("unknown timezone, using UTC", zap.String("timezone", cfg.Timezone), zap.Error(err))
		location = time.UTC
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck
	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db, cfg.Database.Name, logr); err != nil {
			logr.Fatal("failed to migrate database", zap.Error(err))
		}
	}

	metricsSvc := service.NewMetricsService()

	var cacheRepo *repository.CacheRepository
	if cfg.Cache.Enabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, listing cache disabled", zap.Error(err))
		} else {
			cacheRepo = repository.NewCacheRepository(client, "infodoc", logr)
			defer cacheRepo.Close() //nolint:errcheck
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.TTL, logr, cacheRepo != nil)

	store, closeStore, err := newObjectStore(ctx, cfg.Storage)
	if err != nil {
		logr.Fatal("failed to init object store", zap.Error(err))
	}
	defer closeStore()

	verifier, err := secret.NewVerifier(cfg.Upload.SecretKey, cfg.Upload.SecretHash)
	if err != nil {
		if !errors.Is(err, secret.ErrNotConfigured) {
			logr.Fatal("invalid upload secret", zap.Error(err))
		}
		logr.Warn("upload secret not configured, uploads and deletes are disabled")
	}

	documentRepo := repository.NewDocumentRepository(db, metricsSvc)

	cleanupSvc := service.NewCleanupService(store, documentRepo, logr)
	cleanupQueue := jobs.NewQueue("cleanup", cleanupSvc.Handle, jobs.QueueConfig{
		Workers:    cfg.Cleanup.Workers,
		MaxRetries: cfg.Cleanup.Retries,
		RetryDelay: cfg.Cleanup.RetryDelay,
		OnDrop:     cleanupSvc.Dropped(metricsSvc),
		Logger:     logr,
	})
	cleanupSvc.Bind(cleanupQueue)
	cleanupQueue.Start(ctx)
	defer cleanupQueue.Stop()

	documentSvc := service.NewDocumentService(service.DocumentServiceDeps{
		Repo:      documentRepo,
		Objects:   store,
		Verifier:  verifier,
		Inspector: pdfrender.NewInspector(),
		Signer:    storage.NewSignedURLSigner(cfg.Download.SignedURLSecret, cfg.Download.SignedURLTTL),
		Cleanup:   cleanupSvc,
		Cache:     cacheSvc,
		Metrics:   metricsSvc,
		Validator: validator.New(),
		Logger:    logr,
	}, service.DocumentServiceConfig{
		MaxFileSize:     cfg.Upload.MaxFileSizeBytes,
		AllowedMIMEs:    cfg.Upload.AllowedMIMEs,
		APIPrefix:       cfg.APIPrefix,
		OfficeViewerURL: cfg.Viewer.OfficeViewerURL,
		Location:        location,
	})

	fetcher := pdfrender.NewStoreFetcher(store,
		pdfrender.NewHTTPFetcher(cfg.Viewer.FetchTimeout, cfg.Viewer.FetchMaxBytes),
		cfg.Viewer.FetchMaxBytes)
	raster := viewer.NewRasterizer(fetcher, pdfrender.NewFitzEngine(), viewer.RasterizerConfig{
		Scale:    cfg.Viewer.RenderScale,
		MaxWidth: cfg.Viewer.MaxPageWidth,
	})
	viewerSvc := service.NewViewerService(documentSvc, raster, metricsSvc, logr, service.ViewerServiceConfig{
		MaxSessions:        cfg.Viewer.MaxSessions,
		SessionTTL:         cfg.Viewer.SessionTTL,
		MaxConcurrentLoads: cfg.Viewer.MaxConcurrentLoads,
	})
	defer viewerSvc.Shutdown()

	documentHandler := handler.NewDocumentHandler(documentSvc, viewerSvc)
	viewerHandler := handler.NewViewerHandler(viewerSvc, 0)
	objectHandler := handler.NewObjectHandler(store)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, map[string]handler.ReadinessCheck{
		"postgres": database.NewReadinessChecker(db).CheckReady,
	})

	r := gin.New()
	r.MaxMultipartMemory = 8 << 20
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))
	r.Use(internalmiddleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	r.GET("/view/:id", documentHandler.View)
	r.GET(storage.SupabasePublicPrefix(cfg.Storage.Bucket)+"*path", objectHandler.Serve)

	api := r.Group(cfg.APIPrefix)
	api.GET("/home", documentHandler.Home)
	api.GET("/categories", documentHandler.Categories)
	api.GET("/categories/:slug/documents", documentHandler.CategoryDocuments)
	api.GET("/categories/:slug/export", documentHandler.Export)
	api.GET("/documents/:id", documentHandler.Get)
	api.GET("/documents/:id/download", documentHandler.Download)
	api.POST("/documents",
		internalmiddleware.LimitBody(cfg.Upload.MaxFileSizeBytes+1<<20),
		internalmiddleware.Audit(logr, "upload", "document"),
		documentHandler.Upload)
	api.DELETE("/documents/:id", internalmiddleware.Audit(logr, "delete", "document"), documentHandler.Delete)
	api.GET("/system/metrics", metricsHandler.Summary)

	sessions := api.Group("/viewer/sessions/:sid")
	sessions.GET("", viewerHandler.State)
	sessions.DELETE("", viewerHandler.Close)
	sessions.GET("/pages/:n", viewerHandler.Page)
	sessions.POST("/next", viewerHandler.Next)
	sessions.POST("/prev", viewerHandler.Prev)
	sessions.POST("/retry", viewerHandler.Retry)
	sessions.POST("/jump", viewerHandler.Jump)
	sessions.POST("/flip", viewerHandler.Flip)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "storage", cfg.Storage.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

func newObjectStore(ctx context.Context, cfg config.StorageConfig) (storage.ObjectStore, func(), error) {
	layout := storage.NewURLLayout(cfg.PublicBaseURL, storage.SupabasePublicPrefix(cfg.Bucket))
	switch cfg.Driver {
	case config.StorageDriverGCS:
		gcs, err := storage.NewGCSStorage(ctx, storage.GCSConfig{
			Bucket:          cfg.Bucket,
			CredentialsFile: cfg.CredentialsFile,
			Endpoint:        cfg.Endpoint,
		}, layout)
		if err != nil {
			return nil, nil, err
		}
		return gcs, func() { _ = gcs.Close() }, nil
	case config.StorageDriverLocal, "":
		local, err := storage.NewLocalStorage(cfg.LocalDir, layout)
		if err != nil {
			return nil, nil, err
		}
		return local, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
