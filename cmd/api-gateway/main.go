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

	_ "github.com/noah-isme/stp-api/api/swagger"
	"github.com/noah-isme/stp-api/internal/handler"
	"github.com/noah-isme/stp-api/internal/middleware"
	"github.com/noah-isme/stp-api/internal/models"
	"github.com/noah-isme/stp-api/internal/repository"
	"github.com/noah-isme/stp-api/internal/service"
	"github.com/noah-isme/stp-api/pkg/cache"
	"github.com/noah-isme/stp-api/pkg/config"
	"github.com/noah-isme/stp-api/pkg/database"
	"github.com/noah-isme/stp-api/pkg/export"
	"github.com/noah-isme/stp-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/stp-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/stp-api/pkg/middleware/requestid"
)

// @title Student Transfer Pickup API
// @version 1.0.0
// @description Airport pickup and delivery coordination for student arrivals
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

	ctx := context.Background()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, dashboard cache disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	schoolRepo := repository.NewSchoolRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	waitingRepo := repository.NewWaitingTimeRepository(db)
	feedbackRepo := repository.NewAbsentFeedbackRepository(db)
	statusRepo := repository.NewStatusRepository(db)

	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if redisClient != nil {
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, cfg.Dashboard.CacheEnabled)
	} else {
		cacheSvc = service.NewCacheService(nil, metricsSvc, cfg.Dashboard.CacheTTL, logr, false)
	}

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "stp-api",
	})
	userSvc := service.NewUserService(userRepo, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, validate, logr)
	schoolSvc := service.NewSchoolService(schoolRepo, logr)
	assignmentSvc := service.NewAssignmentService(assignmentRepo, studentRepo, userRepo, validate, logr)
	waitingSvc := service.NewWaitingTimeService(waitingRepo, studentRepo, validate, logr)
	feedbackSvc := service.NewAbsentFeedbackService(feedbackRepo, studentRepo, validate, logr)
	statusSvc := service.NewStatusService(statusRepo, cacheSvc, metricsSvc, logr)
	importSvc := service.NewImportService(studentSvc, schoolRepo, cfg.Import.MaxRows, logr)
	exportSvc := service.NewExportService(assignmentRepo, statusRepo, export.NewCSVExporter(), export.NewPDFExporter(), logr)

	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc)
	studentHandler := handler.NewStudentHandler(studentSvc, importSvc, cfg.Import.MaxFileSizeBytes)
	schoolHandler := handler.NewSchoolHandler(schoolSvc)
	assignmentHandler := handler.NewAssignmentHandler(assignmentSvc, exportSvc, statusSvc)
	waitingHandler := handler.NewWaitingTimeHandler(waitingSvc, statusSvc)
	feedbackHandler := handler.NewAbsentFeedbackHandler(feedbackSvc)
	statusHandler := handler.NewStatusHandler(statusSvc, exportSvc)
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
	r.Use(middleware.WithResponseMeta())

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
		auth.POST("/forgot-password", authHandler.ForgotPassword)
		auth.POST("/reset-password", authHandler.ResetPassword)

		authed := auth.Group("", middleware.JWT(authSvc))
		authed.POST("/logout", authHandler.Logout)
		authed.POST("/change-password", authHandler.ChangePassword)
		authed.GET("/me", authHandler.Me)
	}

	protected := api.Group("", middleware.JWT(authSvc))

	users := protected.Group("/users")
	{
		users.GET("", middleware.RequireRoles(models.RoleAdmin), userHandler.List)
		users.GET("/:id", middleware.RequireRolesOrSelf(models.RoleAdmin), userHandler.Get)
		users.POST("", middleware.RequireRoles(models.RoleAdmin), userHandler.Create)
		users.PUT("/:id", middleware.RequireRoles(models.RoleAdmin), userHandler.Update)
		users.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), userHandler.Delete)
	}

	students := protected.Group("/students")
	{
		staff := students.Group("", middleware.RequireRoles(models.RoleAdmin, models.RoleGreeter))
		staff.GET("", studentHandler.List)
		staff.GET("/:id", studentHandler.Get)

		admin := students.Group("", middleware.RequireRoles(models.RoleAdmin))
		admin.POST("", middleware.Audit(userRepo, models.AuditActionStudentCreate, "students"), studentHandler.Create)
		admin.PUT("/:id", studentHandler.Update)
		admin.DELETE("/:id", studentHandler.Delete)
		admin.POST("/import", middleware.Audit(userRepo, models.AuditActionStudentImport, "students"), studentHandler.Import)
	}

	schools := protected.Group("/schools", middleware.RequireRoles(models.RoleAdmin, models.RoleGreeter))
	{
		schools.GET("", schoolHandler.List)
		schools.GET("/:id", schoolHandler.Get)
	}
	protected.GET("/clients", middleware.RequireRoles(models.RoleAdmin, models.RoleGreeter), schoolHandler.ListClients)

	assignments := protected.Group("/assignments", middleware.RequireRoles(models.RoleAdmin, models.RoleGreeter))
	{
		assignments.POST("", assignmentHandler.Create)
		assignments.GET("", assignmentHandler.List)
		assignments.GET("/export", assignmentHandler.ManifestFor)
		assignments.GET("/:id", assignmentHandler.Get)
		assignments.PUT("/:id", assignmentHandler.Update)
		assignments.DELETE("/:id", assignmentHandler.Cancel)
	}

	driver := protected.Group("/driver", middleware.RequireRoles(models.RoleDriver, models.RoleSubdriver))
	{
		driver.GET("/assignments", assignmentHandler.Mine)
		driver.GET("/assignments/export", assignmentHandler.Manifest)
		driver.PUT("/assignments/:id/pickup", assignmentHandler.CompletePickup)
		driver.PUT("/assignments/:id/delivery", assignmentHandler.CompleteDelivery)
	}

	waiting := protected.Group("/waiting-times", middleware.RequireRoles(models.RoleAdmin, models.RoleGreeter))
	{
		waiting.POST("", waitingHandler.Record)
		waiting.POST("/pickup", waitingHandler.MarkPickedUp)
		waiting.GET("", waitingHandler.ListByDate)
		waiting.GET("/:id", waitingHandler.Get)
	}

	feedback := protected.Group("/absent-feedback")
	{
		feedback.POST("", middleware.RequireRoles(models.RoleAdmin, models.RoleGreeter), feedbackHandler.Submit)
		feedback.GET("", middleware.RequireRoles(models.RoleAdmin, models.RoleGreeter), feedbackHandler.List)
		feedback.GET("/:id", middleware.RequireRoles(models.RoleAdmin, models.RoleGreeter), feedbackHandler.Get)
		feedback.PUT("/:id/review", middleware.RequireRoles(models.RoleAdmin), feedbackHandler.Review)
	}

	status := protected.Group("/status", middleware.RequireRoles(models.RoleAdmin, models.RoleGreeter))
	{
		status.GET("", statusHandler.List)
		status.GET("/stats", statusHandler.Stats)
		status.GET("/export", statusHandler.Export)
	}

	school := protected.Group("/school", middleware.RequireRoles(models.RoleSchool))
	{
		school.GET("/students-status", statusHandler.List)
		school.GET("/status-stats", statusHandler.Stats)
	}

	protected.GET("/ops/metrics-summary", middleware.RequireRoles(models.RoleAdmin), metricsHandler.Summary)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
