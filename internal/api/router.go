package api

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"firext-backend/config"
	"firext-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(cfg config.ServerConfig, handler *Handler) *gin.Engine {
	r := gin.Default()

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)
	requireSession := mw.RequireSession(handler.auth, cfg.CookieSecure)
	caching := handler.cache.Middleware()

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.POST("/login", handler.Login)
		api.POST("/logout", handler.Logout)
		api.GET("/session", handler.GetSession)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)

		private := api.Group("")
		private.Use(requireSession)
		{
			private.GET("/docks", handler.ListDocks)
			private.POST("/docks", handler.CreateDock)
			private.DELETE("/docks", handler.DeleteAllDocks)
			private.GET("/docks/:id", handler.GetDock)
			private.PUT("/docks/:id", handler.ReplaceDock)
			private.PATCH("/docks/:id", handler.PatchDock)
			private.DELETE("/docks/:id", handler.DeleteDock)

			private.GET("/projections", caching, handler.GetProjections)
			private.GET("/notifications", handler.GetNotifications)

			private.GET("/subscriptions", handler.GetSubscription)
			private.PUT("/subscriptions", handler.PutSubscription)
			private.DELETE("/subscriptions", handler.DeleteSubscription)
		}
	}

	ws := r.Group("/ws")
	ws.Use(requireSession)
	{
		ws.GET("", handler.DashboardSocket)
		ws.GET("/docks/:id", handler.DockSocket)
	}

	return r
}
