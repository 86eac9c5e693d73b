package main

import (
	"net/http"
	"time"

	"github.com/alphasafe/alphasafe-api/config"
	"github.com/alphasafe/alphasafe-api/controllers"
	"github.com/alphasafe/alphasafe-api/middleware"
	"github.com/alphasafe/alphasafe-api/notifications"
	"github.com/alphasafe/alphasafe-api/services"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// application holds the wired services and controllers behind the router
type application struct {
	logger         *zap.Logger
	allowedOrigins []string
	tokens         *validator.Validator
	users          *services.UserService

	auth          *controllers.AuthController
	clients       *controllers.ClientController
	interventions *controllers.InterventionController
	technicians   *controllers.TechnicianController
	userAdmin     *controllers.UserController
}

// newApplication wires every service on top of db. storage may be nil when
// no bucket is configured; photo uploads then fail with an internal error.
func newApplication(cfg *config.Config, db *gorm.DB, logger *zap.Logger, notifier notifications.Notifier, storage services.ObjectStorage) (*application, error) {
	tokens, err := middleware.NewTokenValidator(cfg.SessionSecret, cfg.TokenIssuer, cfg.TokenAudience)
	if err != nil {
		return nil, err
	}

	var images *services.ImageService
	if storage != nil {
		images = services.NewImageService(storage)
	}

	users := services.NewUserService(db, logger, services.RegistrationPolicy{Whitelist: cfg.RegistrationWhitelist})
	sessions := services.NewSessionIssuer(cfg.SessionSecret, cfg.TokenIssuer, cfg.TokenAudience, cfg.SessionTTL)
	clients := services.NewClientService(db, logger)
	technicians := services.NewTechnicianService(db, logger)
	interventions := services.NewInterventionService(db, logger, notifier,
		notifications.PolicyConfig{AdminBillingEmail: cfg.AdminBillingEmail}, images)
	exports := services.NewExportService(interventions)

	return &application{
		logger:         logger,
		allowedOrigins: cfg.AllowedOrigins,
		tokens:         tokens,
		users:          users,
		auth:           controllers.NewAuthController(users, sessions, cfg.IsProduction(), logger),
		clients:        controllers.NewClientController(clients, logger),
		interventions:  controllers.NewInterventionController(interventions, exports, logger),
		technicians:    controllers.NewTechnicianController(technicians, logger),
		userAdmin:      controllers.NewUserController(users, logger),
	}, nil
}

// setupRouter registers every route of the API
func setupRouter(app *application) *gin.Engine {
	router := gin.New()
	router.Use(middleware.Recovery(app.logger))
	router.Use(middleware.RequestLogger(app.logger))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     app.allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	authenticate := middleware.Authenticate(app.tokens, app.users, app.logger)
	read := middleware.Authorize(services.OpReadEntities)
	write := middleware.Authorize(services.OpWriteEntities)
	manageTechnicians := middleware.Authorize(services.OpManageTechnician)
	listUsers := middleware.Authorize(services.OpListUsers)
	manageUsers := middleware.Authorize(services.OpManageUsers)
	export := middleware.Authorize(services.OpExport)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)
		v1.GET("/database/status", databaseStatus)

		auth := v1.Group("/auth")
		{
			auth.POST("/register", app.auth.Register)
			auth.POST("/login", app.auth.Login)
			auth.POST("/logout", app.auth.Logout)
			auth.GET("/user", authenticate, app.auth.CurrentUser)
		}

		protected := v1.Group("")
		protected.Use(authenticate)
		{
			protected.GET("/clients", read, app.clients.List)
			protected.POST("/clients", write, app.clients.Create)
			protected.GET("/clients/:id", read, app.clients.Get)
			protected.PUT("/clients/:id", write, app.clients.Update)
			protected.PATCH("/clients/:id", write, app.clients.Update)
			protected.DELETE("/clients/:id", write, app.clients.Delete)

			protected.GET("/interventions", read, app.interventions.List)
			protected.POST("/interventions", write, app.interventions.Create)
			protected.GET("/interventions/export", export, app.interventions.Export)
			protected.GET("/interventions/:id", read, app.interventions.Get)
			protected.PUT("/interventions/:id", write, app.interventions.Update)
			protected.PATCH("/interventions/:id", write, app.interventions.Update)
			protected.DELETE("/interventions/:id", write, app.interventions.Delete)
			protected.POST("/interventions/:id/photos", write, app.interventions.AddPhoto)
			protected.POST("/interventions/:id/photos/upload", write, app.interventions.UploadPhoto)
			protected.DELETE("/photos/:id", write, app.interventions.DeletePhoto)

			protected.GET("/technicians", read, app.technicians.List)
			protected.GET("/technicians/available", read, app.technicians.Available)
			protected.GET("/technicians/:id", read, app.technicians.Get)
			protected.POST("/technicians", manageTechnicians, app.technicians.Create)
			protected.PUT("/technicians/:id", manageTechnicians, app.technicians.Update)
			protected.PATCH("/technicians/:id", manageTechnicians, app.technicians.Update)
			protected.DELETE("/technicians/:id", manageTechnicians, app.technicians.Delete)

			protected.GET("/users", listUsers, app.userAdmin.List)
			protected.POST("/users", manageUsers, app.userAdmin.Create)
			protected.PUT("/users/:id", manageUsers, app.userAdmin.Update)
			protected.PATCH("/users/:id", manageUsers, app.userAdmin.Update)
			protected.DELETE("/users/:id", manageUsers, app.userAdmin.Delete)
		}
	}

	return router
}

// healthCheck handles the health check endpoint
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "AlphaSafe API is running",
	})
}

// databaseStatus checks database connectivity and returns table information
func databaseStatus(c *gin.Context) {
	db := config.GetDB()

	sqlDB, err := db.DB()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to get database instance",
			},
		})
		return
	}

	if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_CONNECTION_ERROR",
				"message": "Database connection failed",
			},
		})
		return
	}

	tables, err := db.Migrator().GetTables()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_QUERY_ERROR",
				"message": "Failed to query tables",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Database connected",
		"tables":  tables,
	})
}
