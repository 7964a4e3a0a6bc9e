package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/scrubber/models"
)

// ClearCache returns a handler for DELETE /api/v1/cache. It removes every
// cached document and record, not just one key.
func ClearCache(sc Scraper) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := sc.Cleanup(); err != nil {
			var scrapeErr *models.ScrapeError
			if !errors.As(err, &scrapeErr) {
				scrapeErr = models.NewScrapeError(models.ErrCodeCache, err.Error(), err)
			}
			c.JSON(http.StatusInternalServerError, models.ClearCacheResponse{
				Success: false,
				Error:   scrapeErr.ToDetail(),
			})
			return
		}
		c.JSON(http.StatusOK, models.ClearCacheResponse{Success: true})
	}
}
