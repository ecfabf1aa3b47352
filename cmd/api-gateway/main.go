package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/campus-collab-api/api/swagger"
	"github.com/noah-isme/campus-collab-api/internal/handler"
	"github.com/noah-isme/campus-collab-api/internal/middleware"
	"github.com/noah-isme/campus-collab-api/internal/models"
	"github.com/noah-isme/campus-collab-api/internal/repository"
	"github.com/noah-isme/campus-collab-api/internal/service"
	"github.com/noah-isme/campus-collab-api/pkg/cache"
	"github.com/noah-isme/campus-collab-api/pkg/config"
	"github.com/noah-isme/campus-collab-api/pkg/database"
	"github.com/noah-isme/campus-collab-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/campus-collab-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/campus-collab-api/pkg/middleware/requestid"
)

// @title Campus Collaboration API
// @version 1.0.0
// @description College-scoped peer connections, project join requests and mentorship session booking
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	validate := validator.New()

	metricsService := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	requestRepo := repository.NewRequestRepository(db).WithObserver(metricsService)
	projectRepo := repository.NewProjectRepository(db)
	mentorRepo := repository.NewMentorRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "campus-collab-api",
	})

	visibilityService := service.NewVisibilityService(userRepo, logr)
	availabilityService := service.NewAvailabilityService(mentorRepo, requestRepo, logr)

	ledgerService := service.NewLedgerService(requestRepo, cacheRepo, validate, logr,
		service.NewConnectionPolicy(visibilityService, requestRepo),
		service.NewProjectJoinPolicy(projectRepo, requestRepo),
		service.NewMentorshipPolicy(visibilityService, availabilityService, requestRepo),
	)

	connectionService := service.NewConnectionService(ledgerService, requestRepo, logr)
	projectService := service.NewProjectService(ledgerService, projectRepo, requestRepo, logr)
	mentorshipService := service.NewMentorshipService(ledgerService, requestRepo, availabilityService, logr)
	suggestionService := service.NewSuggestionService(visibilityService, requestRepo, mentorRepo, cacheRepo, metricsService, cfg.Suggestions, logr)
	userService := service.NewUserService(userRepo, logr)
	exportService := service.NewExportService(requestRepo, nil, nil, logr)

	authHandler := handler.NewAuthHandler(authService)
	connectionHandler := handler.NewConnectionHandler(connectionService, suggestionService)
	projectHandler := handler.NewProjectHandler(projectService)
	mentorshipHandler := handler.NewMentorshipHandler(mentorshipService, suggestionService)
	exportHandler := handler.NewExportHandler(exportService)
	userHandler := handler.NewUserHandler(userService)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
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

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)

	authProtected := auth.Group("")
	authProtected.Use(middleware.JWT(authService))
	authProtected.POST("/logout", authHandler.Logout)
	authProtected.PUT("/password", authHandler.ChangePassword)
	authProtected.GET("/me", authHandler.Me)

	protected := api.Group("")
	protected.Use(middleware.JWT(authService))

	protected.GET("/users", userHandler.List)

	connections := protected.Group("/connections")
	connections.GET("", connectionHandler.List)
	connections.GET("/suggestions", connectionHandler.Suggestions)
	connections.POST("/requests", middleware.Audit(userRepo, models.AuditActionRequestCreate, "connection"), connectionHandler.Send)
	connections.GET("/requests/incoming", connectionHandler.Incoming)
	connections.GET("/requests/outgoing", connectionHandler.Outgoing)
	connections.PUT("/requests/:id/accept", middleware.Audit(userRepo, models.AuditActionRequestRespond, "connection"), connectionHandler.Accept)
	connections.PUT("/requests/:id/reject", middleware.Audit(userRepo, models.AuditActionRequestRespond, "connection"), connectionHandler.Reject)
	connections.DELETE("/requests/:id", middleware.Audit(userRepo, models.AuditActionRequestWithdraw, "connection"), connectionHandler.Withdraw)
	connections.DELETE("/:id", middleware.Audit(userRepo, models.AuditActionConnectionDrop, "connection"), connectionHandler.Remove)

	projects := protected.Group("/projects")
	projects.POST("/:id/join-requests", middleware.RequireRoles(models.RoleStudent), middleware.Audit(userRepo, models.AuditActionRequestCreate, "project_join"), projectHandler.Apply)
	projects.GET("/:id/members", projectHandler.Members)

	joinRequests := protected.Group("/join-requests")
	joinRequests.GET("/incoming", projectHandler.Incoming)
	joinRequests.GET("/outgoing", projectHandler.Outgoing)
	joinRequests.PUT("/:id/approve", middleware.Audit(userRepo, models.AuditActionRequestRespond, "project_join"), projectHandler.Approve)
	joinRequests.PUT("/:id/reject", middleware.Audit(userRepo, models.AuditActionRequestRespond, "project_join"), projectHandler.Reject)
	joinRequests.DELETE("/:id", middleware.Audit(userRepo, models.AuditActionRequestWithdraw, "project_join"), projectHandler.Withdraw)

	mentors := protected.Group("/mentors")
	mentors.GET("", mentorshipHandler.ListMentors)
	mentors.GET("/:id/slots", mentorshipHandler.Slots)
	mentors.POST("/:id/sessions", middleware.Audit(userRepo, models.AuditActionRequestCreate, "mentorship_session"), mentorshipHandler.Book)

	sessions := protected.Group("/sessions")
	sessions.GET("/incoming", middleware.RequireRoles(models.RoleMentor, models.RoleAdmin), mentorshipHandler.Incoming)
	sessions.GET("/outgoing", mentorshipHandler.Outgoing)
	sessions.PUT("/:id/accept", middleware.Audit(userRepo, models.AuditActionRequestRespond, "mentorship_session"), mentorshipHandler.Accept)
	sessions.PUT("/:id/reject", middleware.Audit(userRepo, models.AuditActionRequestRespond, "mentorship_session"), mentorshipHandler.Reject)
	sessions.DELETE("/:id", middleware.Audit(userRepo, models.AuditActionRequestWithdraw, "mentorship_session"), mentorshipHandler.Withdraw)

	admin := protected.Group("/admin")
	admin.Use(middleware.RequireRoles(models.RoleAdmin))
	admin.GET("/metrics", metricsHandler.System)
	if cfg.Exports.Enabled {
		admin.GET("/requests/export", exportHandler.RequestHistory)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
