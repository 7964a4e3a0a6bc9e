package scrubber

import (
	"log/slog"

	"github.com/use-agent/scrubber/cache"
	"github.com/use-agent/scrubber/config"
	"github.com/use-agent/scrubber/engine"
	"github.com/use-agent/scrubber/extract"
	"github.com/use-agent/scrubber/normalize"
	"github.com/use-agent/scrubber/webhook"
)

// NewFromConfig wires the cache, the HTTP engine, the extractor and the
// optional webhook described by cfg.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) (*Scrubber, error) {
	if logger == nil {
		logger = slog.Default()
	}

	store, err := cache.NewStore(cfg.Cache.Dir, cfg.Cache.KeyMode)
	if err != nil {
		return nil, cacheError("open cache", err)
	}

	x, err := extract.New(extract.Options{
		Selectors:        cfg.Extractor.Selectors,
		CurrencyPrefixes: cfg.Extractor.CurrencyPrefixes,
		DateParser:       normalize.HumanDateParser{Location: cfg.Extractor.Location},
		Logger:           logger,
	})
	if err != nil {
		return nil, err
	}

	opts := Options{
		BaseURL: cfg.Scraper.BaseURL,
		Store:   store,
		Engine: engine.NewHTTPEngine(engine.HTTPOptions{
			Timeout:            cfg.Scraper.Timeout,
			InsecureSkipVerify: cfg.Scraper.InsecureSkipVerify,
		}),
		Extractor:             x,
		ConsumeDerived:        cfg.Cache.ConsumeDerived,
		MaxTranslationFetches: cfg.Scraper.MaxTranslationFetches,
		Logger:                logger,
	}
	if cfg.Webhook.URL != "" {
		opts.Webhook = webhook.NewNotifier(cfg.Webhook.URL, cfg.Webhook.Secret)
	}
	return New(opts)
}
