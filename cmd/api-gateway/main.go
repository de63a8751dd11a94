package main

import (
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/sis-rollover-api/api/swagger"
	"github.com/noah-isme/sis-rollover-api/internal/handler"
	"github.com/noah-isme/sis-rollover-api/internal/middleware"
	"github.com/noah-isme/sis-rollover-api/internal/models"
	"github.com/noah-isme/sis-rollover-api/internal/repository"
	"github.com/noah-isme/sis-rollover-api/internal/service"
	"github.com/noah-isme/sis-rollover-api/pkg/cache"
	"github.com/noah-isme/sis-rollover-api/pkg/config"
	"github.com/noah-isme/sis-rollover-api/pkg/database"
	"github.com/noah-isme/sis-rollover-api/pkg/export"
	"github.com/noah-isme/sis-rollover-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sis-rollover-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sis-rollover-api/pkg/middleware/requestid"
)

// @title SIS Rollover API
// @version 0.1.0
// @description Academic-year rollover and enrollment lifecycle engine
// @BasePath /
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

	metrics := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if cfg.Rollover.CacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		} else {
			repo := repository.NewCacheRepository(redisClient, logr)
			defer repo.Close() //nolint:errcheck
			cacheRepo = repo
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Rollover.CacheTTL, logr, cfg.Rollover.CacheEnabled)

	enrollmentRepo := repository.NewEnrollmentRepository(db)
	yearRepo := repository.NewAcademicYearRepository(db)
	gradeRepo := repository.NewGradeLevelRepository(db)
	periodRepo := repository.NewMarkingPeriodRepository(db)
	assignmentRepo := repository.NewTeacherAssignmentRepository(db)
	rolloverRepo := repository.NewRolloverRepository(db, cfg.Rollover.BatchChunkSize)

	progressionSvc := service.NewProgressionService(gradeRepo, logr)
	rolloverSvc := service.NewRolloverService(
		enrollmentRepo, yearRepo, periodRepo, assignmentRepo,
		progressionSvc, rolloverRepo, cacheSvc, metrics,
		nil, logr, cfg.Rollover.DuplicateWarnFraction, cfg.Rollover.CacheTTL)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, yearRepo, cacheSvc, nil, logr, cfg.Rollover.CacheTTL)
	yearSvc := service.NewAcademicYearService(yearRepo, cacheSvc, nil, logr)
	exportSvc := service.NewExportService(enrollmentSvc, export.NewCSVExporter(), export.NewPDFExporter(), logr)

	rolloverHandler := handler.NewRolloverHandler(rolloverSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc)
	gradeHandler := handler.NewGradeHandler(progressionSvc)
	yearHandler := handler.NewAcademicYearHandler(yearSvc)
	exportHandler := handler.NewExportHandler(exportSvc)
	metricsHandler := handler.NewMetricsHandler(metrics, db)

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
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(cfg.JWT.Secret))

	adminOnly := middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin)

	rollover := api.Group("/rollover")
	{
		rollover.POST("/preview", rolloverHandler.Preview)
		rollover.POST("/check", rolloverHandler.Check)
		rollover.POST("/execute", adminOnly, rolloverHandler.Execute)
	}

	enrollment := api.Group("/enrollment")
	{
		enrollment.GET("/student/:id/current", enrollmentHandler.Current)
		enrollment.GET("/student/:id/history", enrollmentHandler.History)
		enrollment.POST("", adminOnly, enrollmentHandler.Create)
		enrollment.PATCH("/:id", adminOnly, enrollmentHandler.Update)
		enrollment.PATCH("/student/:id/rollover-status", enrollmentHandler.SetRolloverStatus)
		enrollment.PATCH("/bulk-rollover-status", adminOnly, enrollmentHandler.BulkSetRolloverStatus)
		enrollment.GET("/statistics", enrollmentHandler.Statistics)
		enrollment.GET("/by-status", enrollmentHandler.ByStatus)
		if cfg.Exports.Enabled {
			enrollment.GET("/statistics/export", exportHandler.Statistics)
		}
	}

	api.GET("/grades/progression", gradeHandler.Progression)

	years := api.Group("/academic-years")
	{
		years.GET("", yearHandler.List)
		years.POST("", adminOnly, yearHandler.Create)
		years.PUT("/:id/set-current", adminOnly, yearHandler.SetCurrent)
		years.PUT("/:id/set-next", adminOnly, yearHandler.SetNext)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
