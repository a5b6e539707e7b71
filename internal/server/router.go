// Package server assembles the gin engine from configuration and a database handle.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/franciscosanchezn/gin-user-manager/internal/auth"
	"github.com/franciscosanchezn/gin-user-manager/internal/config"
	"github.com/franciscosanchezn/gin-user-manager/internal/controllers"
	"github.com/franciscosanchezn/gin-user-manager/internal/middleware"
	"github.com/franciscosanchezn/gin-user-manager/internal/models"
	"github.com/franciscosanchezn/gin-user-manager/internal/services"
	"github.com/franciscosanchezn/gin-user-manager/internal/web"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

const serviceName = "gin-user-manager"

// Server holds the wired router and the long-lived collaborators behind it
type Server struct {
	Router *gin.Engine
	OAuth  *auth.OAuthService
}

// New wires services, controllers and routes. db is the only shared resource.
func New(cfg *config.Config, db *gorm.DB) *Server {
	userService := services.NewUserService(db, services.DeletePolicy(cfg.DeletePolicy))
	clientService := services.NewClientService(db)

	// Login only hands out tokens when tokens are what the middleware reads
	var tokens *auth.TokenIssuer
	if cfg.AuthScheme == config.AuthSchemeToken {
		tokens = auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	}
	oauthService := auth.NewOAuthService(db, userService, cfg.JWTSecret, cfg.TokenTTL)

	authController := controllers.NewAuthController(userService, tokens)
	userController := controllers.NewUserController(userService)
	clientController := controllers.NewClientController(clientService)

	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(), middleware.CORS(cfg.CORSOrigin))

	authenticate := middleware.Authenticate(userService, cfg.AuthScheme, []byte(cfg.JWTSecret))
	deleteGuards := []gin.HandlerFunc{authenticate}
	if userService.DeletePolicy() == services.DeleteAdminOnly {
		deleteGuards = append(deleteGuards, middleware.RequireRole(models.RoleAdmin))
	}

	router.GET("/health", healthCheckHandler)
	router.POST("/oauth/token", oauthService.HandleToken)

	api := router.Group("/api")
	{
		authApi := api.Group("/auth")
		{
			authApi.POST("/register", authController.Register)
			authApi.POST("/login", authController.Login)
		}

		users := api.Group("/users")
		{
			users.GET("", userController.ListUsers)
			users.POST("", userController.CreateUser)
			users.GET("/me", authenticate, userController.GetProfile)
			users.GET("/:id", userController.GetUser)
			users.PUT("/:id", userController.UpdateUser)
			users.DELETE("/:id", append(deleteGuards, userController.DeleteUser)...)
		}

		clients := api.Group("/clients", authenticate)
		{
			clients.POST("", clientController.CreateClient)
			clients.GET("", clientController.ListClients)
			clients.DELETE("/:id", clientController.DeleteClient)
		}
	}

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	web.Register(router, userService, cfg.SessionSecret, cfg.Environment == "production")

	return &Server{Router: router, OAuth: oauthService}
}

// PurgeExpiredTokens removes expired OAuth tokens every interval until ctx is done
func (s *Server) PurgeExpiredTokens(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			removed, err := s.OAuth.Tokens().PurgeExpired(ctx, now)
			if err != nil {
				log.WithError(err).Warn("Failed to purge expired tokens")
				continue
			}
			if removed > 0 {
				log.WithField("removed", removed).Debug("Purged expired tokens")
			}
		}
	}
}

// healthCheckHandler handles the health check endpoint
// @Summary Health check
// @Description Check if the service is running
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthCheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   serviceName,
	})
}
