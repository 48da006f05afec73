package api

import (
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"dcim-inventory-backend/config"
	"dcim-inventory-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler, cfg config.ServerConfig, log zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), mw.RequestLogger(log))

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)

	// Exported label files never change once a task exists.
	cacheStore := cache.New(cfg.CacheTTL, 2*cfg.CacheTTL)
	caching := mw.Cache(cacheStore, cfg.CacheTTL)

	r.GET("/healthz", h.Healthz)

	pool := r.Group("/shortid-pool")
	pool.Use(rateLimiter)
	{
		pool.POST("/generate", h.Generate)
		pool.POST("/print-task/create", h.CreatePrintTask)
		pool.GET("/print-task/:id/export", caching, h.ExportPrintTask)
		pool.POST("/print-task/:id/start", h.StartPrintTask)
		pool.POST("/print-task/:id/complete", h.CompletePrintTask)
		pool.POST("/print-task/:id/fail", h.FailPrintTask)
		pool.GET("/print-task/:id", h.GetPrintTask)
		pool.GET("/print-tasks", h.ListPrintTasks)
		pool.POST("/check", h.Check)
		pool.POST("/bind", h.Bind)
		pool.POST("/cancel", h.Cancel)
		pool.POST("/retire", h.Retire)
		pool.GET("/stats", h.Stats)
		pool.POST("/records", h.Records)
	}

	cables := r.Group("/cables")
	cables.Use(rateLimiter)
	{
		cables.POST("/connect-single-port", h.ConnectSinglePort)
		cables.POST("/create", h.CreateCable)
		cables.POST("/endpoints-by-shortid", h.EndpointsByShortID)
		cables.POST("/resolve", h.ResolveCableLabel)
		cables.POST("/endpoints/:id/disconnect", h.DisconnectEndpoint)
		cables.DELETE("/:id", h.DeleteCable)
	}

	inv := r.Group("/inventory")
	inv.Use(rateLimiter)
	{
		inv.POST("/:kind", h.CreateEntity)
		inv.GET("/ports/:id/location", h.PortLocation)
	}

	return r
}
