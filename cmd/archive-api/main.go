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

	"github.com/noor-edu/archive-api/internal/handler"
	"github.com/noor-edu/archive-api/internal/middleware"
	"github.com/noor-edu/archive-api/internal/parser"
	"github.com/noor-edu/archive-api/internal/repository"
	"github.com/noor-edu/archive-api/internal/service"
	"github.com/noor-edu/archive-api/pkg/cache"
	"github.com/noor-edu/archive-api/pkg/config"
	"github.com/noor-edu/archive-api/pkg/database"
	pkgexport "github.com/noor-edu/archive-api/pkg/export"
	"github.com/noor-edu/archive-api/pkg/logger"
	corsmiddleware "github.com/noor-edu/archive-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noor-edu/archive-api/pkg/middleware/requestid"
)

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
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}

	admins := repository.NewAdminRepository(db)
	subjects := repository.NewSubjectRepository(db)
	taxonomy := repository.NewTaxonomyRepository(db)
	hashtags := repository.NewHashtagRepository(db)
	materials := repository.NewMaterialRepository(db)
	termResources := repository.NewTermResourceRepository(db)
	ingestions := repository.NewIngestionRepository(db)
	cacheStore := repository.NewCacheRepository(redisClient, logr)
	defer cacheStore.Close() //nolint:errcheck

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	resolver := service.NewResolverService(hashtags, taxonomy, logr)
	captionParser := parser.New(resolver, logr)

	navCache := service.NewNavCacheService(cacheStore, cfg.Nav, metricsSvc, logr)
	navStack := service.NewNavStackService(cfg.Nav.SessionIdle, logr)
	navigation := service.NewNavigationService(subjects, taxonomy, materials, termResources, navStack, navCache, metricsSvc, cfg.Nav, logr)

	copier := service.NewLocalArchiveCopier(cfg.Ingest.ArchiveChatID, logr)
	perms := service.NewPermissionService(admins, logr)
	ingestion := service.NewIngestionService(
		subjects, materials, termResources, ingestions, taxonomy,
		captionParser, resolver, copier, navCache, perms, metricsSvc, cfg.Ingest, logr)

	auth := service.NewAuthService(admins, validate, cfg.JWT, logr)
	taxonomySvc := service.NewTaxonomyService(taxonomy, hashtags, subjects, navCache, validate, logr)
	transfer := service.NewImportExportService(taxonomy, hashtags, subjects, navCache, logr)
	exporter := service.NewExportService(materials, cfg.Export, logr, pkgexport.NewCSVExporter(), pkgexport.NewPDFExporter())
	review := service.NewReviewService(ingestions, metricsSvc, logr)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	handlers := &handler.Handlers{
		Auth:        handler.NewAuthHandler(auth),
		Ingest:      handler.NewIngestHandler(ingestion),
		Navigation:  handler.NewNavigationHandler(navigation),
		Taxonomy:    handler.NewTaxonomyHandler(taxonomySvc),
		Transfer:    handler.NewTransferHandler(transfer),
		Export:      handler.NewExportHandler(exporter),
		Review:      handler.NewReviewHandler(review),
		AuthService: auth,
		Permissions: perms,
	}
	handlers.RegisterRoutes(r, cfg.APIPrefix)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go sweepSessions(ctx, navStack, logr)
	go refreshPendingGauge(ctx, review)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("shutdown failed", "error", err)
	}
}

// sweepSessions drops idle navigation sessions so the in-memory stack
// does not grow without bound.
func sweepSessions(ctx context.Context, stack *service.NavStackService, logr *zap.Logger) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if dropped := stack.Sweep(); dropped > 0 {
				logr.Sugar().Debugw("swept idle navigation sessions", "count", dropped)
			}
		}
	}
}

// refreshPendingGauge keeps the review queue gauge current even when no
// review traffic flows through the API.
func refreshPendingGauge(ctx context.Context, review *service.ReviewService) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			review.RefreshPendingGauge(ctx)
		}
	}
}
