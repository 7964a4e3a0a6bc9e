package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/scrubber/models"
	"github.com/use-agent/scrubber/scrubber"
)

// Scraper is the orchestrator surface the handlers need.
type Scraper interface {
	Scrape(ctx context.Context, path string) (*models.RestaurantRecord, scrubber.Status, error)
	Cleanup() error
}

// Scrape returns a handler for POST /api/v1/scrape.
//
// Flow:
//  1. Parse & validate the request.
//  2. Scraper.Scrape → record + cache status.
//  3. Fill Timing, return 200.
func Scrape(sc Scraper) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		// ── 1. Parse request ────────────────────────────────────────
		var req models.ScrapeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ScrapeResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}
		if err := req.Validate(); err != nil {
			respondError(c, req.Path, err, start)
			return
		}

		// ── 2. Scrape ───────────────────────────────────────────────
		rec, status, err := sc.Scrape(c.Request.Context(), req.Path)
		if err != nil {
			respondError(c, req.Path, err, start)
			return
		}

		// ── 3. Respond ──────────────────────────────────────────────
		c.JSON(http.StatusOK, models.ScrapeResponse{
			Success:     true,
			Path:        req.Path,
			Record:      rec,
			CacheStatus: string(status),
			Timing:      models.TimingInfo{TotalMs: time.Since(start).Milliseconds()},
		})
	}
}

// respondError maps a ScrapeError to the correct HTTP status code and writes
// a structured JSON error response.
func respondError(c *gin.Context, path string, err error, start time.Time) {
	var scrapeErr *models.ScrapeError
	if !errors.As(err, &scrapeErr) {
		scrapeErr = models.NewScrapeError(models.ErrCodeInternal, err.Error(), err)
	}

	c.JSON(mapErrorToStatus(scrapeErr), models.ScrapeResponse{
		Success: false,
		Path:    path,
		Error:   scrapeErr.ToDetail(),
		Timing:  models.TimingInfo{TotalMs: time.Since(start).Milliseconds()},
	})
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.ScrapeError) int {
	switch e.Code {
	case models.ErrCodeTransportTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeTransport, models.ErrCodeParse:
		return http.StatusBadGateway // 502
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	default:
		return http.StatusInternalServerError // 500
	}
}
