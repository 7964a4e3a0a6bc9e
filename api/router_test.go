package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/use-agent/scrubber/config"
	"github.com/use-agent/scrubber/models"
	"github.com/use-agent/scrubber/scrubber"
)

type nopScraper struct{}

func (nopScraper) Scrape(context.Context, string) (*models.RestaurantRecord, scrubber.Status, error) {
	return models.NonexistentRecord(), scrubber.StatusFetched, nil
}

func (nopScraper) Cleanup() error { return nil }

func TestRouterRoutes(t *testing.T) {
	cfg := &config.Config{
		Server: config.ServerConfig{Mode: "test"},
		Cache:  config.CacheConfig{Dir: "scrubber_cache"},
	}
	r := NewRouter(nopScraper{}, cfg, time.Now())

	tests := []struct {
		method, path, body string
		want               int
	}{
		{http.MethodGet, "/api/v1/health", "", http.StatusOK},
		{http.MethodPost, "/api/v1/scrape", `{"path":"/a"}`, http.StatusOK},
		{http.MethodDelete, "/api/v1/cache", "", http.StatusOK},
		{http.MethodPost, "/api/v1/batch/scrape", `{}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		require.Equal(t, tt.want, w.Code, tt.method+" "+tt.path)
	}
}
