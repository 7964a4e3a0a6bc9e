package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/scrubber/api/handler"
	"github.com/use-agent/scrubber/config"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
func NewRouter(sc handler.Scraper, cfg *config.Config, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")

	v1.GET("/health", handler.Health(cfg.Cache.Dir, startTime))

	// Scrape
	v1.POST("/scrape", handler.Scrape(sc))

	// Teardown
	v1.DELETE("/cache", handler.ClearCache(sc))

	return r
}
