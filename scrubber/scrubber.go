// Package scrubber drives a single listing scrape through the cache, the
// transport and the extractor.
//
// A scrape moves through these states:
//
//	INIT ──derived slot present──▶ DERIVED_HIT
//	  │
//	  ▼
//	NEEDS_FETCH ──raw slot or fetch──▶ FETCHED ──heading present──▶ NONEXISTENT
//	                                      │
//	                                      ▼
//	                                  EXTRACTED ──▶ NORMALIZED
//
// Every terminal state except DERIVED_HIT writes the derived slot and then
// drops the raw documents the record was built from.
package scrubber

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/use-agent/scrubber/cache"
	"github.com/use-agent/scrubber/engine"
	"github.com/use-agent/scrubber/extract"
	"github.com/use-agent/scrubber/htmldoc"
	"github.com/use-agent/scrubber/models"
	"github.com/use-agent/scrubber/webhook"
)

// Status reports which cache slot, if any, served a scrape.
type Status string

const (
	StatusDerivedHit Status = models.CacheStatusDerivedHit
	StatusRawHit     Status = models.CacheStatusRawHit
	StatusFetched    Status = models.CacheStatusFetched
)

// ErrTranslationBudget is returned to the extractor when a scrape has used
// all the translation fetches it may issue.
var ErrTranslationBudget = errors.New("translation fetch budget exhausted")

// Store is the cache capability the orchestrator relies on.
type Store interface {
	Key(path string) string
	CheckKey(key string) error
	Exists(key string) bool
	ExistsDerived(key string) bool
	ReadRaw(key string) (string, error)
	WriteRaw(key, text string) error
	DeleteRaw(key string) error
	ReadDerived(key string) (*models.RestaurantRecord, error)
	WriteDerived(key string, rec *models.RestaurantRecord) error
	DeleteDerived(key string) error
	Clear() error
}

var _ Store = (*cache.Store)(nil)

// Notifier receives every record a scrape returns.
type Notifier interface {
	Deliver(ctx context.Context, event *webhook.Event) error
}

// Options configures a Scrubber.
type Options struct {
	// BaseURL is the scheme and host every path is fetched from.
	BaseURL string

	Store     Store
	Engine    engine.Engine
	Extractor *extract.Extractor

	// ConsumeDerived deletes the derived slot when it serves a scrape.
	ConsumeDerived bool

	// MaxTranslationFetches caps translation documents fetched over the
	// network per scrape. Zero disables the network fallback; translations
	// already in the raw cache are still used.
	MaxTranslationFetches int

	// Webhook is optional.
	Webhook Notifier

	Logger *slog.Logger
}

// Scrubber runs scrapes. It is safe to use from several goroutines as long
// as they scrape distinct paths.
type Scrubber struct {
	baseURL        string
	store          Store
	engine         engine.Engine
	extractor      *extract.Extractor
	consumeDerived bool
	maxTranslation int
	webhook        Notifier
	logger         *slog.Logger
}

// New validates opts and returns a Scrubber.
func New(opts Options) (*Scrubber, error) {
	if opts.Store == nil {
		return nil, errors.New("scrubber: store is required")
	}
	if opts.Engine == nil {
		return nil, errors.New("scrubber: engine is required")
	}
	if opts.BaseURL == "" {
		return nil, errors.New("scrubber: base URL is required")
	}

	x := opts.Extractor
	if x == nil {
		var err error
		if x, err = extract.New(extract.Options{Logger: opts.Logger}); err != nil {
			return nil, err
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Scrubber{
		baseURL:        strings.TrimRight(opts.BaseURL, "/"),
		store:          opts.Store,
		engine:         opts.Engine,
		extractor:      x,
		consumeDerived: opts.ConsumeDerived,
		maxTranslation: opts.MaxTranslationFetches,
		webhook:        opts.Webhook,
		logger:         logger,
	}, nil
}

// run holds the state of one scrape.
type run struct {
	path string
	sess engine.Session

	// translationKeys are raw slots read or written for translations.
	translationKeys []string
	fetched         int
}

// Scrape returns the record of the listing at path, a site-relative path
// starting with "/".
//
// A failed primary fetch aborts the scrape and leaves the cache untouched.
// A failed translation fetch only empties the affected review text.
func (s *Scrubber) Scrape(ctx context.Context, path string) (*models.RestaurantRecord, Status, error) {
	req := models.ScrapeRequest{Path: path}
	if err := req.Validate(); err != nil {
		return nil, "", err
	}
	path = req.Path
	key := s.store.Key(path)
	if err := s.store.CheckKey(key); err != nil {
		return nil, "", models.NewScrapeError(models.ErrCodeInvalidInput,
			fmt.Sprintf("path %q has no usable cache key", path), err)
	}
	log := s.logger.With("path", path, "key", key)

	if s.store.ExistsDerived(key) {
		rec, err := s.derived(key)
		if err != nil {
			return nil, "", err
		}
		log.Debug("derived cache hit", "consumed", s.consumeDerived)
		s.notify(ctx, path, StatusDerivedHit, rec)
		return rec, StatusDerivedHit, nil
	}

	r := &run{path: path}
	html, status, err := s.document(ctx, r, key)
	if err != nil {
		return nil, "", err
	}
	log.Debug("document ready", "status", status)

	doc, err := htmldoc.Parse(html)
	if err != nil {
		return nil, "", models.NewScrapeError(models.ErrCodeParse, "failed to parse document", err)
	}

	rec := s.extractor.Extract(ctx, doc, func(ctx context.Context, link string) (string, error) {
		return s.translation(ctx, r, link)
	})
	if !rec.Exists {
		log.Info("listing does not exist")
	}

	if err := s.store.WriteDerived(key, rec); err != nil {
		return nil, "", cacheError("write derived record", err)
	}
	for _, k := range append(r.translationKeys, key) {
		if err := s.store.DeleteRaw(k); err != nil {
			return nil, "", cacheError("delete raw document", err)
		}
	}
	log.Debug("record stored", "exists", rec.Exists, "translations", len(r.translationKeys))

	s.notify(ctx, path, status, rec)
	return rec, status, nil
}

// Cleanup removes the whole cache root. Later scrapes recreate it.
func (s *Scrubber) Cleanup() error {
	if err := s.store.Clear(); err != nil {
		return cacheError("clear cache", err)
	}
	return nil
}

func (s *Scrubber) derived(key string) (*models.RestaurantRecord, error) {
	rec, err := s.store.ReadDerived(key)
	if err != nil {
		return nil, cacheError("read derived record", err)
	}
	if !rec.Valid() {
		return nil, models.NewScrapeError(models.ErrCodeCache, "derived record is inconsistent", nil)
	}
	if s.consumeDerived {
		if err := s.store.DeleteDerived(key); err != nil {
			return nil, cacheError("consume derived record", err)
		}
	}
	return rec, nil
}

// document returns the raw HTML of the run's path, from the raw slot when
// present and from the network otherwise. Either way the session advances,
// so the referer chain follows logical calls rather than network requests.
func (s *Scrubber) document(ctx context.Context, r *run, key string) (string, Status, error) {
	if s.store.Exists(key) {
		html, err := s.store.ReadRaw(key)
		if err != nil {
			return "", "", cacheError("read raw document", err)
		}
		r.sess = r.sess.Next(s.baseURL + r.path)
		return html, StatusRawHit, nil
	}

	html, err := s.fetch(ctx, r, r.path)
	if err != nil {
		return "", "", err
	}
	if err := s.store.WriteRaw(key, html); err != nil {
		return "", "", cacheError("write raw document", err)
	}
	return html, StatusFetched, nil
}

// translation backs the extractor's fallback. Cached translations are free;
// network fetches count against the run's budget.
func (s *Scrubber) translation(ctx context.Context, r *run, link string) (string, error) {
	if !strings.HasPrefix(link, "/") {
		return "", models.NewScrapeError(models.ErrCodeInvalidInput,
			fmt.Sprintf("translation link %q is not site-relative", link), nil)
	}
	key := s.store.Key(link)
	if err := s.store.CheckKey(key); err != nil {
		return "", models.NewScrapeError(models.ErrCodeInvalidInput,
			fmt.Sprintf("translation link %q has no usable cache key", link), err)
	}
	if key == s.store.Key(r.path) {
		return "", models.NewScrapeError(models.ErrCodeInvalidInput, "translation link points at the listing", nil)
	}

	if s.store.Exists(key) {
		html, err := s.store.ReadRaw(key)
		if err != nil {
			return "", cacheError("read raw translation", err)
		}
		r.sess = r.sess.Next(s.baseURL + link)
		r.translationKeys = append(r.translationKeys, key)
		return html, nil
	}

	if r.fetched >= s.maxTranslation {
		return "", ErrTranslationBudget
	}
	r.fetched++

	html, err := s.fetch(ctx, r, link)
	if err != nil {
		return "", err
	}
	if err := s.store.WriteRaw(key, html); err != nil {
		return "", cacheError("write raw translation", err)
	}
	r.translationKeys = append(r.translationKeys, key)
	return html, nil
}

func (s *Scrubber) fetch(ctx context.Context, r *run, path string) (string, error) {
	url := s.baseURL + path
	start := time.Now()

	res, sess, err := s.engine.Fetch(ctx, r.sess, url)
	if err != nil {
		s.logger.Warn("fetch failed", "url", url, "engine", s.engine.Name(), "error", err)
		return "", err
	}
	r.sess = sess

	s.logger.Info("fetched",
		"url", url,
		"engine", res.EngineName,
		"status", res.StatusCode,
		"title", res.Title,
		"bytes", len(res.HTML),
		"ms", time.Since(start).Milliseconds(),
	)
	return res.HTML, nil
}

func (s *Scrubber) notify(ctx context.Context, path string, status Status, rec *models.RestaurantRecord) {
	if s.webhook == nil {
		return
	}
	if err := s.webhook.Deliver(ctx, webhook.NewRecordEvent(path, string(status), rec)); err != nil {
		s.logger.Warn("webhook delivery failed", "path", path, "error", err)
	}
}

func cacheError(msg string, err error) error {
	return models.NewScrapeError(models.ErrCodeCache, msg, err)
}
