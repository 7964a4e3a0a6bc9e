package engine

import (
	"context"
	"errors"
)

// ErrUnexpectedStatus indicates a response outside the 2xx range. Its body
// must be neither cached nor parsed.
var ErrUnexpectedStatus = errors.New("unexpected status code")

// Engine is the interface that all fetch engines must implement.
type Engine interface {
	// Name returns the engine identifier (e.g. "http").
	Name() string

	// Fetch GETs url carrying sess's referer and returns the session to use
	// for the next call. The returned session only advances on success; on
	// error it is sess unchanged.
	Fetch(ctx context.Context, sess Session, url string) (*FetchResult, Session, error)
}

// Session is the referer chain threaded through successive fetches. The zero
// value is a fresh chain with no referer.
type Session struct {
	// Referer is the URL of the last successful fetch, sent as the Referer
	// header of the next one.
	Referer string
}

// Next returns the session that follows a successful fetch of url.
func (s Session) Next(url string) Session {
	return Session{Referer: url}
}

// FetchResult is the output of a successful engine fetch.
type FetchResult struct {
	HTML       string
	Title      string
	StatusCode int
	FinalURL   string
	EngineName string
}
