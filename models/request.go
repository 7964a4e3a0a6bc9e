package models

import "strings"

// ScrapeRequest is the payload for POST /api/v1/scrape.
type ScrapeRequest struct {
	// Path is the site-relative resource path of the listing, e.g.
	// "/Restaurant_Review-g189180-d12503536-Reviews-Dick_s_Bar-Porto.html".
	// Required.
	Path string `json:"path" binding:"required"`
}

// Validate checks that the path is site-relative.
func (r *ScrapeRequest) Validate() error {
	r.Path = strings.TrimSpace(r.Path)
	if !strings.HasPrefix(r.Path, "/") {
		return NewScrapeError(ErrCodeInvalidInput, "path must begin with '/'", nil)
	}
	return nil
}
