package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/statuscore/incident-registry/api/swagger"
	"github.com/statuscore/incident-registry/internal/choices"
	"github.com/statuscore/incident-registry/internal/handler"
	"github.com/statuscore/incident-registry/internal/middleware"
	"github.com/statuscore/incident-registry/internal/repository"
	"github.com/statuscore/incident-registry/internal/service"
	"github.com/statuscore/incident-registry/pkg/cache"
	"github.com/statuscore/incident-registry/pkg/config"
	"github.com/statuscore/incident-registry/pkg/database"
	"github.com/statuscore/incident-registry/pkg/logger"
	corsmiddleware "github.com/statuscore/incident-registry/pkg/middleware/cors"
	reqidmiddleware "github.com/statuscore/incident-registry/pkg/middleware/requestid"
)

// @title Incident Registry API
// @version 1.0.0
// @description Record keeper for production incidents, their documents and update logs
// @BasePath /api
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

	registry, err := choices.Load(cfg.Choices.File)
	if err != nil {
		log.Fatalf("failed to load shared choices config: %v", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer db.Close()

	metrics := service.NewMetricsService()
	validate := validator.New()

	incidentRepo := repository.NewIncidentRepository(db)
	documentRepo := repository.NewDocumentRepository(db)
	updateRepo := repository.NewUpdateRepository(db)

	var incidentSvc *service.IncidentService
	if cfg.Stats.CacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, statistics caching disabled", zap.Error(err))
			incidentSvc = service.NewIncidentService(incidentRepo, documentRepo, updateRepo, registry, nil, validate, logr)
		} else {
			statsCache := service.NewRedisStatsCache(redisClient, cfg.Stats.CacheTTL, metrics, logr)
			incidentSvc = service.NewIncidentService(incidentRepo, documentRepo, updateRepo, registry, statsCache, validate, logr)
		}
	} else {
		incidentSvc = service.NewIncidentService(incidentRepo, documentRepo, updateRepo, registry, nil, validate, logr)
	}

	updateSvc := service.NewUpdateService(incidentRepo, updateRepo, registry, validate, logr)
	documentSvc := service.NewDocumentService(incidentRepo, documentRepo, validate, logr)

	var exportSvc *service.ExportService
	if cfg.Exports.Enabled {
		exportSvc = service.NewExportService(incidentRepo, logr)
	}

	incidentHandler := handler.NewIncidentHandler(incidentSvc, updateSvc, exportSvc)
	documentHandler := handler.NewDocumentHandler(documentSvc)
	choicesHandler := handler.NewChoicesHandler(registry)
	metricsHandler := handler.NewMetricsHandler(metrics)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.OptionalJWT(cfg.Auth.TokenSecret))

	incidents := api.Group("/incidents")
	{
		incidents.GET("", incidentHandler.List)
		incidents.POST("", incidentHandler.Create)
		incidents.GET("/statistics", incidentHandler.Statistics)
		incidents.GET("/critical", incidentHandler.Critical)
		incidents.GET("/export", incidentHandler.Export)
		incidents.GET("/:id", incidentHandler.Get)
		incidents.PUT("/:id", incidentHandler.Replace)
		incidents.PATCH("/:id", incidentHandler.Patch)
		incidents.DELETE("/:id", incidentHandler.Delete)
		incidents.POST("/:id/update_status", incidentHandler.UpdateStatus)
		incidents.GET("/:id/timeline", incidentHandler.Timeline)
		incidents.GET("/:id/updates", incidentHandler.ListUpdates)
		incidents.POST("/:id/updates", incidentHandler.CreateUpdate)
	}

	documents := api.Group("/incident-documents")
	{
		documents.GET("", documentHandler.List)
		documents.POST("", documentHandler.Create)
		documents.GET("/:id", documentHandler.Get)
		documents.PUT("/:id", documentHandler.Update)
		documents.PATCH("/:id", documentHandler.Patch)
		documents.DELETE("/:id", documentHandler.Delete)
	}

	api.GET("/config/choices", choicesHandler.List)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
