package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/aec-internal/requisitions-api/api/swagger"
	"github.com/aec-internal/requisitions-api/internal/handler"
	"github.com/aec-internal/requisitions-api/internal/middleware"
	"github.com/aec-internal/requisitions-api/internal/models"
	"github.com/aec-internal/requisitions-api/internal/repository"
	"github.com/aec-internal/requisitions-api/internal/service"
	"github.com/aec-internal/requisitions-api/pkg/cache"
	"github.com/aec-internal/requisitions-api/pkg/config"
	"github.com/aec-internal/requisitions-api/pkg/database"
	"github.com/aec-internal/requisitions-api/pkg/logger"
	corsmiddleware "github.com/aec-internal/requisitions-api/pkg/middleware/cors"
	reqidmiddleware "github.com/aec-internal/requisitions-api/pkg/middleware/requestid"
	"github.com/aec-internal/requisitions-api/pkg/sheets"
)

// @title Requisitions API
// @version 1.0.0
// @description Purchase requisition dashboard backend
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

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, running without cache", "error", err)
	}

	tokens, err := sheets.NewTokenSource(cfg.Sheet, nil)
	if err != nil {
		logr.Sugar().Fatalw("failed to build sheet token source", "error", err)
	}
	sheetClient := sheets.NewClient(cfg.Sheet, tokens, nil)

	metricsSvc := service.NewMetricsService()

	sheetRepo := repository.NewSheetRepository(sheetClient, cfg.Sheet.SheetName, logr)
	sheetRepo.UseMetrics(metricsSvc)
	userRepo := repository.NewUserRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	cacheRepo.UseMetrics(metricsSvc)

	validate := validator.New()

	snapshotSvc := service.NewSnapshotService(sheetRepo, cacheRepo, cfg.Dashboard.CacheTTL, logr)
	snapshotSvc.UseMetrics(metricsSvc)
	requisitionSvc := service.NewRequisitionService(sheetRepo, snapshotSvc, logr)
	dashboardSvc := service.NewDashboardService(snapshotSvc, cacheRepo, cfg.Dashboard.StatsCacheTTL, logr)
	exportSvc := service.NewExportService(snapshotSvc, service.ExportConfig{
		Enabled: cfg.Export.Enabled,
		Title:   cfg.Export.Title,
	}, logr, nil, nil)
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "requisitions-api",
	})
	userSvc := service.NewUserService(userRepo, validate, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	requisitionHandler := handler.NewRequisitionHandler(requisitionSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
	exportHandler := handler.NewExportHandler(exportSvc)
	userHandler := handler.NewUserHandler(userSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

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

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
		auth.POST("/change-password", middleware.JWT(authSvc), authHandler.ChangePassword)
		auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
	}

	requisitions := api.Group("/requisitions", middleware.JWT(authSvc))
	{
		requisitions.GET("/groups", requisitionHandler.ListGroups)
		requisitions.GET("/status-options", requisitionHandler.StatusOptions)
		requisitions.POST("/items", requisitionHandler.CreateItem)
		requisitions.PATCH("/items/:position/field", requisitionHandler.UpdateField)
		requisitions.DELETE("/items/:position", requisitionHandler.DeleteItem)
		requisitions.POST("/batches", requisitionHandler.CreateBatch)
		requisitions.GET("/batches/:code", requisitionHandler.GetBatch)
		requisitions.PUT("/batches/:code", requisitionHandler.ReplaceBatch)
		requisitions.POST("/batches/:code/seen", requisitionHandler.MarkBatchSeen)
		requisitions.PATCH("/batches/:code/shared", requisitionHandler.UpdateSharedFields)
		requisitions.POST("/batches/:code/products", requisitionHandler.AddProduct)
		requisitions.GET("/export", exportHandler.Download)
	}

	api.GET("/dashboard/stats", middleware.JWT(authSvc), dashboardHandler.Stats)

	users := api.Group("/users", middleware.JWT(authSvc), middleware.RequireDepartments(models.DeptAdmin))
	{
		users.GET("", userHandler.List)
		users.POST("", userHandler.Create)
		users.GET("/:id", userHandler.Get)
		users.PUT("/:id", userHandler.Update)
		users.DELETE("/:id", userHandler.Delete)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	snapshotSvc.StartPolling(ctx, cfg.Dashboard.RefreshInterval)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
