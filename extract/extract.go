// Package extract derives a RestaurantRecord from a parsed listing page.
//
// Each field is extracted independently. A selector matching nothing yields
// an absent field, and so does a match whose content does not look like the
// field (a price token under the cuisines selector, a non-numeric review
// count). Neither is an error.
package extract

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/use-agent/scrubber/htmldoc"
	"github.com/use-agent/scrubber/models"
	"github.com/use-agent/scrubber/normalize"
)

// reviewedPrefix precedes the human date of every review.
const reviewedPrefix = "Reviewed "

// DefaultCurrencyPrefixes are currency codes that, leading the cuisines
// text, reveal that price text was selected instead.
var DefaultCurrencyPrefixes = []string{"UAH", "USD", "EUR", "GBP", "RUB"}

// Document is the query capability the extractor needs from a parsed page.
type Document interface {
	Query(sel htmldoc.Selector) []htmldoc.Element
}

// FetchFunc retrieves the HTML of a site-relative path. It backs the
// translation fallback; a nil FetchFunc disables it.
type FetchFunc func(ctx context.Context, path string) (string, error)

// Options configures an Extractor.
type Options struct {
	// Selectors overrides DefaultSelectors field by field.
	Selectors Selectors

	// CurrencyPrefixes overrides DefaultCurrencyPrefixes.
	CurrencyPrefixes []string

	// DateParser parses review dates. Nil means normalize.HumanDateParser.
	DateParser normalize.DateParser

	// Now anchors relative review dates. Nil means time.Now.
	Now func() time.Time

	Logger *slog.Logger
}

// Extractor applies selector-and-policy pairs to listing pages.
type Extractor struct {
	sel              compiled
	translateAttr    string
	currencyPrefixes []string
	dates            normalize.DateParser
	now              func() time.Time
	logger           *slog.Logger
}

// New compiles the configured selectors. A malformed selector is an error.
func New(opts Options) (*Extractor, error) {
	sels := opts.Selectors.Merge(DefaultSelectors())
	c, err := sels.compile()
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeInvalidInput, "compile selectors", err)
	}

	x := &Extractor{
		sel:              c,
		translateAttr:    sels.TranslateAttr,
		currencyPrefixes: opts.CurrencyPrefixes,
		dates:            opts.DateParser,
		now:              opts.Now,
		logger:           opts.Logger,
	}
	if x.currencyPrefixes == nil {
		x.currencyPrefixes = DefaultCurrencyPrefixes
	}
	if x.dates == nil {
		x.dates = normalize.HumanDateParser{}
	}
	if x.now == nil {
		x.now = time.Now
	}
	if x.logger == nil {
		x.logger = slog.Default()
	}
	return x, nil
}

// Extract builds the record of doc. A missing listing short-circuits to a
// record whose only field is Exists=false.
func (x *Extractor) Extract(ctx context.Context, doc Document, fetch FetchFunc) *models.RestaurantRecord {
	if !x.PageExists(doc) {
		return models.NonexistentRecord()
	}
	return &models.RestaurantRecord{
		Exists:        true,
		ReviewCount:   x.ReviewCount(doc),
		RecentReviews: x.RecentReviews(ctx, doc, fetch),
		Price:         x.Price(doc),
		Cuisines:      x.Cuisines(doc),
	}
}

// PageExists reports whether the listing exists: the site renders the
// not-found heading only for missing listings.
func (x *Extractor) PageExists(doc Document) bool {
	return len(doc.Query(x.sel.notFoundHeading)) == 0
}

// ReviewCount parses the leading number of the review count element,
// e.g. "1,234 reviews" -> 1234.
func (x *Extractor) ReviewCount(doc Document) *int {
	els := doc.Query(x.sel.reviewCount)
	if len(els) == 0 {
		return nil
	}

	fields := strings.Fields(els[0].Text())
	if len(fields) == 0 {
		return nil
	}
	n, err := strconv.Atoi(strings.ReplaceAll(fields[0], ",", ""))
	if err != nil {
		x.logger.Debug("review count is not numeric", "text", fields[0])
		return nil
	}
	return &n
}

// RecentReviews reads up to models.MaxRecentReviews review blocks. A review
// with an empty body falls back to its machine translation when the block
// links one; any failure there leaves the text empty.
func (x *Extractor) RecentReviews(ctx context.Context, doc Document, fetch FetchFunc) *models.RecentReviews {
	blocks := doc.Query(x.sel.review)
	if len(blocks) > models.MaxRecentReviews {
		blocks = blocks[:models.MaxRecentReviews]
	}

	texts := make([]string, 0, len(blocks))
	dates := make([]string, 0, len(blocks))
	for _, b := range blocks {
		dates = append(dates, x.reviewDate(b))

		text := ""
		if els := b.Query(x.sel.reviewText); len(els) > 0 {
			text = normalize.CleanText(els[0].Text())
		}
		if text == "" {
			text = x.translation(ctx, b, fetch)
		}
		texts = append(texts, text)
	}

	rr, err := models.NewRecentReviews(texts, dates)
	if err != nil {
		x.logger.Error("recent reviews misaligned", "error", err)
		return &models.RecentReviews{Texts: []string{}, Dates: []string{}}
	}
	return rr
}

func (x *Extractor) reviewDate(b htmldoc.Element) string {
	els := b.Query(x.sel.reviewDate)
	if len(els) == 0 {
		return ""
	}
	human := normalize.StripPrefix(els[0].Text(), reviewedPrefix)
	d, err := normalize.Date(x.dates, human, x.now())
	if err != nil {
		x.logger.Warn("review date not understood", "date", human, "error", err)
		return ""
	}
	return d
}

func (x *Extractor) translation(ctx context.Context, b htmldoc.Element, fetch FetchFunc) string {
	if fetch == nil {
		return ""
	}
	buttons := b.Query(x.sel.translateButton)
	if len(buttons) == 0 {
		return ""
	}
	link, ok := buttons[0].Attr(x.translateAttr)
	if !ok || strings.TrimSpace(link) == "" {
		return ""
	}

	body, err := fetch(ctx, strings.TrimSpace(link))
	if err != nil {
		if models.IsTransport(err) {
			x.logger.Warn("translation fetch failed", "link", link, "error", err)
		} else {
			x.logger.Info("translation skipped", "link", link, "reason", err)
		}
		return ""
	}
	tdoc, err := htmldoc.Parse(body)
	if err != nil {
		x.logger.Warn("translation parse failed", "link", link, "error", err)
		return ""
	}
	quotes := tdoc.Query(x.sel.translationQuote)
	if len(quotes) == 0 {
		return ""
	}
	return normalize.CleanText(normalize.StripQuote(strings.TrimSpace(quotes[0].Text())))
}

// Price returns the advertised price tier, or nil when the element is
// missing or holds anything other than a known tier.
func (x *Extractor) Price(doc Document) *models.Price {
	els := doc.Query(x.sel.price)
	if len(els) == 0 {
		return nil
	}
	p, ok := models.ParsePrice(strings.TrimSpace(els[0].Text()))
	if !ok {
		return nil
	}
	return &p
}

// Cuisines splits the cuisine element on commas. Text starting with a
// currency code is price text picked up by the selector and is discarded.
func (x *Extractor) Cuisines(doc Document) []string {
	els := doc.Query(x.sel.cuisines)
	if len(els) == 0 {
		return nil
	}

	raw := strings.Split(els[0].Text(), ",")
	first := strings.TrimSpace(raw[0])
	for _, prefix := range x.currencyPrefixes {
		if strings.HasPrefix(first, prefix) {
			return nil
		}
	}

	var out []string
	for _, c := range raw {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}
