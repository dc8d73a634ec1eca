package router

import (
	"github.com/gin-gonic/gin"

	"github.com/davidmcguire/audio-app/internal/config"
	"github.com/davidmcguire/audio-app/internal/http/handlers"
	"github.com/davidmcguire/audio-app/internal/http/middleware"
	"github.com/davidmcguire/audio-app/internal/models"
	"github.com/davidmcguire/audio-app/internal/service"
)

func SetupRouter(
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	profileHandler *handlers.ProfileHandler,
	pricingHandler *handlers.PricingHandler,
	requestHandler *handlers.RequestHandler,
	notificationHandler *handlers.NotificationHandler,
	adminHandler *handlers.AdminHandler,
	wsHandler *handlers.WSHandler,
	healthHandler *handlers.HealthHandler,
	tokenManager *service.TokenManager,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", healthHandler.Health)

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authRateLimit := middleware.RateLimitMiddleware(cfg.AuthRateLimitLimit, cfg.RateLimitPeriod)
	authGroup.Use(authRateLimit)
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
		authGroup.POST("/logout", authHandler.Logout)
	}

	// Публичные маршруты
	api.GET("/ws", wsHandler.Handle)
	api.GET("/creators", profileHandler.ListCreators)
	api.GET("/creators/:id", middleware.UUIDValidator("id"), profileHandler.GetCreator)
	api.GET("/creators/:id/pricing-options", middleware.UUIDValidator("id"), pricingHandler.ListByCreator)
	api.GET("/pricing-options/:id", middleware.UUIDValidator("id"), pricingHandler.GetOne)

	// Создание заявки доступно гостям: токен разбирается, если есть.
	createRateLimit := middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod)
	api.POST("/requests", createRateLimit, middleware.OptionalAuth(tokenManager), requestHandler.Create)

	// Защищённые маршруты
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokenManager))
	{
		protected.GET("/profile", profileHandler.GetMe)
		protected.PUT("/profile", profileHandler.UpdateMe)

		protected.GET("/notifications", notificationHandler.ListNotifications)
		protected.GET("/notifications/unread/count", notificationHandler.CountUnread)
		protected.PUT("/notifications/:id/read", middleware.UUIDValidator("id"), notificationHandler.MarkAsRead)

		protected.GET("/pricing-options", pricingHandler.ListMine)
		protected.POST("/pricing-options", pricingHandler.Create)
		protected.PUT("/pricing-options/:id", middleware.UUIDValidator("id"), pricingHandler.Update)
		protected.DELETE("/pricing-options/:id", middleware.UUIDValidator("id"), pricingHandler.Delete)

		protected.GET("/requests", requestHandler.ListMine)
		protected.GET("/requests/incoming", requestHandler.ListIncoming)
		protected.GET("/requests/:id", middleware.UUIDValidator("id"), requestHandler.Get)
		protected.POST("/requests/:id/accept", middleware.UUIDValidator("id"), requestHandler.Accept)
		protected.POST("/requests/:id/start", middleware.UUIDValidator("id"), requestHandler.Start)
		protected.POST("/requests/:id/deliver", middleware.UUIDValidator("id"), requestHandler.Deliver)
		protected.POST("/requests/:id/approve", middleware.UUIDValidator("id"), requestHandler.Approve)
		protected.POST("/requests/:id/reject", middleware.UUIDValidator("id"), requestHandler.Reject)
		protected.POST("/requests/:id/dispute", middleware.UUIDValidator("id"), requestHandler.Dispute)
		protected.POST("/requests/:id/cancel", middleware.UUIDValidator("id"), requestHandler.Cancel)

		// Исторические маршруты смены статуса, остались от старого фронтенда.
		protected.PUT("/requests/:id/:action", middleware.UUIDValidator("id"), requestHandler.UpdateAction)
		protected.POST("/shoutouts/requests/:id/status", middleware.UUIDValidator("id"), requestHandler.UpdateStatus)
	}

	// Административные маршруты
	admin := api.Group("/admin")
	admin.Use(middleware.AuthMiddleware(tokenManager))
	admin.Use(middleware.RequireRole(models.RoleAdmin))
	{
		admin.GET("/disputes", adminHandler.ListDisputes)
		admin.POST("/disputes/:id/resolve", middleware.UUIDValidator("id"), adminHandler.ResolveDispute)
		admin.POST("/disputes/:id/reject", middleware.UUIDValidator("id"), adminHandler.RejectDispute)
		admin.GET("/stats", adminHandler.Stats)
		admin.GET("/revenue", adminHandler.Revenue)
	}

	return r
}
