package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/edufam/gradebook-api/api/swagger"
	"github.com/edufam/gradebook-api/internal/handler"
	"github.com/edufam/gradebook-api/internal/middleware"
	"github.com/edufam/gradebook-api/internal/models"
	"github.com/edufam/gradebook-api/internal/repository"
	"github.com/edufam/gradebook-api/internal/service"
	"github.com/edufam/gradebook-api/pkg/cache"
	"github.com/edufam/gradebook-api/pkg/config"
	"github.com/edufam/gradebook-api/pkg/database"
	"github.com/edufam/gradebook-api/pkg/logger"
	corsmiddleware "github.com/edufam/gradebook-api/pkg/middleware/cors"
	reqidmiddleware "github.com/edufam/gradebook-api/pkg/middleware/requestid"
)

// @title Gradebook API
// @version 1.0.0
// @description Multi-curriculum grade capture and approval workflow
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	// Repositories.
	classes := repository.NewClassRepository(db)
	students := repository.NewStudentRepository(db)
	subjects := repository.NewSubjectRepository(db)
	grades := repository.NewGradeRepository(db)
	strands := repository.NewStrandAssessmentRepository(db)
	users := repository.NewUserRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Services.
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Grading.CacheTTL, logr, cfg.Grading.CacheEnabled && redisClient != nil)
	authSvc := service.NewAuthService(users, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	curriculumSvc := service.NewCurriculumService(classes, logr)
	rosterSvc := service.NewRosterService(students, subjects, cacheSvc, cfg.Grading, logr)
	gradebookSvc := service.NewGradebookService(curriculumSvc, rosterSvc, grades, strands, metrics, cfg.Grading, validate, logr)
	approvalSvc := service.NewApprovalService(curriculumSvc, rosterSvc, grades, strands, metrics, logr)

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	sheetHandler := handler.NewSheetHandler(gradebookSvc, curriculumSvc)
	approvalHandler := handler.NewApprovalHandler(approvalSvc)
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

	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Docs.Enabled {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	audit := func(action string) gin.HandlerFunc {
		if !cfg.Grading.AuditMutation {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.Audit(users, action, "gradebook")
	}

	api := r.Group(cfg.APIPrefix)
	{
		auth := api.Group("/auth")
		auth.POST("/login", authHandler.Login)
		auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)

		gradebook := api.Group("/gradebook", middleware.JWT(authSvc))
		gradebook.GET("/sheet", middleware.RequireGrading(), sheetHandler.Load)
		gradebook.GET("/curriculum", sheetHandler.Curriculum)
		gradebook.POST("/draft", middleware.RequireGrading(),
			audit(models.AuditActionSaveDraft), sheetHandler.SaveDraft)
		gradebook.POST("/submit", middleware.RequireGrading(),
			audit(models.AuditActionSubmit), sheetHandler.Submit)
		gradebook.POST("/approve", middleware.RequireAdministrative(),
			audit(models.AuditActionApprove), approvalHandler.Approve)
		gradebook.POST("/reject", middleware.RequireAdministrative(),
			audit(models.AuditActionReject), approvalHandler.Reject)
		gradebook.POST("/release", middleware.RequireAdministrative(),
			audit(models.AuditActionRelease), approvalHandler.Release)

		ops := api.Group("/ops", middleware.JWT(authSvc), middleware.RequireAdministrative())
		ops.GET("/metrics", metricsHandler.Snapshot)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
