package api

import (
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"asm-inventory/config"
	"asm-inventory/internal/mw"
	"asm-inventory/internal/store"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(cfg *config.Config, s store.Store, inv Inventory, webpushOptions *webpush.Options) *gin.Engine {
	r := gin.Default()

	handler := NewHandler(s, inv, webpushOptions, cfg.Alerts.Lead)

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst)

	ttl := time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(ttl, 2*ttl)
	caching := mw.Cache(cacheStore, ttl)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/devices/:serial", caching, handler.GetDevice)
		api.GET("/servers", caching, handler.GetServers)
		api.GET("/servers/:id/devices", caching, handler.GetServerDevices)
		api.GET("/warranties/expiring", caching, handler.GetExpiringWarranties)

		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/subscriptions/config", handler.GetPushConfig)
	}

	return r
}
