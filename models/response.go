package models

// Cache outcomes reported by a scrape.
const (
	CacheStatusDerivedHit = "derived-hit"
	CacheStatusRawHit     = "raw-hit"
	CacheStatusFetched    = "fetched"
)

// ScrapeResponse is the response for POST /api/v1/scrape.
type ScrapeResponse struct {
	// Success indicates whether the scrape completed without errors.
	Success bool `json:"success"`

	// Path echoes the requested resource path.
	Path string `json:"path,omitempty"`

	// Record is the extracted listing. Nil when Success is false.
	Record *RestaurantRecord `json:"record,omitempty"`

	// CacheStatus reports which cache slot, if any, served the request.
	CacheStatus string `json:"cache_status,omitempty"`

	// Timing provides duration breakdowns for the operation.
	Timing TimingInfo `json:"timing"`

	// Error is populated only when Success is false.
	Error *ErrorDetail `json:"error,omitempty"`
}

// TimingInfo breaks down the time spent in each phase.
type TimingInfo struct {
	// TotalMs is the end-to-end duration in milliseconds.
	TotalMs int64 `json:"total_ms"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status   string `json:"status"`
	Uptime   string `json:"uptime"`
	CacheDir string `json:"cache_dir"`
	Version  string `json:"version"`
}

// ClearCacheResponse is the response for DELETE /api/v1/cache.
type ClearCacheResponse struct {
	Success bool         `json:"success"`
	Error   *ErrorDetail `json:"error,omitempty"`
}
