package api

import (
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"gympulse-backend/config"
	"gympulse-backend/internal/auth"
	"gympulse-backend/internal/expiry"
	"gympulse-backend/internal/mw"
	"gympulse-backend/internal/store"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(cfg *config.Config, s store.Store, monitor *expiry.Monitor, webpushOptions *webpush.Options, now expiry.Clock) *gin.Engine {
	r := gin.Default()
	r.Use(mw.Metrics())

	handler := NewHandler(s, monitor, webpushOptions, now)

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst)

	cacheTTL := time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(cacheTTL, 2*cacheTTL)
	caching := mw.Cache(cacheStore, cacheTTL)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API group
	api := r.Group("/api")
	api.Use(rateLimiter, auth.Middleware(cfg.Auth.JWTSecret))
	{
		api.GET("/visitors", handler.ListVisitors)
		api.POST("/visitors", handler.CreateVisitor)
		api.PUT("/visitors/:id", handler.UpdateVisitor)
		api.POST("/visitors/:id/renew", handler.RenewVisitor)
		api.DELETE("/visitors/:id", handler.DeleteVisitor)

		api.GET("/stats", caching, handler.GetStats)

		api.GET("/alerts/expiring", handler.GetExpiring)
		api.POST("/alerts/dismiss", handler.DismissAlerts)
		api.POST("/alerts/refresh", handler.RefreshAlerts)

		api.GET("/push_subscriptions", handler.GetSubscription)
		api.PUT("/push_subscriptions", handler.PutSubscription)
		api.DELETE("/push_subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	return r
}
