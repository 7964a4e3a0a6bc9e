package extract

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/use-agent/scrubber/htmldoc"
	"github.com/use-agent/scrubber/models"
)

var fixedNow = time.Date(2022, time.February, 10, 12, 0, 0, 0, time.UTC)

func newExtractor(t *testing.T) *Extractor {
	t.Helper()
	x, err := New(Options{
		Now:    func() time.Time { return fixedNow },
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	return x
}

func parse(t *testing.T, body string) *htmldoc.Document {
	t.Helper()
	doc, err := htmldoc.Parse(body)
	require.NoError(t, err)
	return doc
}

const listing = `<html><body>
<h1 class="fHibz">Dick's Bar</h1>
<div id="taplc_top_info_0">
  <span class="eBTWs">1,234 reviews</span>
  <div class="info"><a class="drUyy">$$ - $$$</a><a class="drUyy">Seafood, Bar</a></div>
  <span class="cfvAV">Seafood, Bar , Portuguese</span>
</div>
<div class="reviewSelector">
  <span class="ratingDate">Reviewed 2 days ago</span>
  <p class="partial_entry"><span class="noQuotes">Lovely  spot</span></p>
</div>
<div class="reviewSelector">
  <span class="ratingDate">Reviewed March 3, 2020</span>
  <span class="noQuotes">Great wine</span>
</div>
<div class="reviewSelector">
  <span class="ratingDate">Reviewed March 1, 2020</span>
  <span class="noQuotes">Third review is never read</span>
</div>
</body></html>`

func TestNewRejectsMalformedSelector(t *testing.T) {
	_, err := New(Options{Selectors: Selectors{Price: "a[href"}})
	require.Error(t, err)
	require.Equal(t, models.ErrCodeInvalidInput, models.CodeOf(err))
}

func TestExtractListing(t *testing.T) {
	x := newExtractor(t)
	rec := x.Extract(context.Background(), parse(t, listing), nil)

	require.True(t, rec.Exists)
	require.NotNil(t, rec.ReviewCount)
	require.Equal(t, 1234, *rec.ReviewCount)
	require.NotNil(t, rec.Price)
	require.Equal(t, models.PriceMid, *rec.Price)
	require.Equal(t, []string{"Seafood", "Bar", "Portuguese"}, rec.Cuisines)

	require.Equal(t, []string{"Lovely spot", "Great wine"}, rec.RecentReviews.Texts)
	require.Equal(t, []string{"02/08/22", "03/03/20"}, rec.RecentReviews.Dates)
	require.True(t, rec.Valid())
}

func TestPageExists(t *testing.T) {
	x := newExtractor(t)

	require.True(t, x.PageExists(parse(t, `<h1 class="title">Listing</h1>`)))
	require.False(t, x.PageExists(parse(t, `<h1 id="HEADING">This page is on vacation</h1>`)))
}

func TestExtractMissingListing(t *testing.T) {
	x := newExtractor(t)
	fetch := func(context.Context, string) (string, error) {
		t.Fatal("missing listing must not trigger a fetch")
		return "", nil
	}

	page := `<h1 id="HEADING">Not found</h1><span class="eBTWs">12 reviews</span>
<div class="reviewSelector"><span class="noQuotes"></span>
<button class="ui_button secondary small" data-url="/tr">t</button></div>`
	rec := x.Extract(context.Background(), parse(t, page), fetch)

	require.Equal(t, models.NonexistentRecord(), rec)
	require.Nil(t, rec.ReviewCount)
	require.Nil(t, rec.RecentReviews)
	require.Nil(t, rec.Price)
	require.Nil(t, rec.Cuisines)
}

func TestReviewCount(t *testing.T) {
	x := newExtractor(t)

	tests := []struct {
		page string
		want *int
	}{
		{`<span class="eBTWs">50 reviews</span>`, intPtr(50)},
		{`<span class="eBTWs"> 12,345,678 reviews</span>`, intPtr(12345678)},
		{`<span class="eBTWs">Write a review</span>`, nil},
		{`<span class="eBTWs">   </span>`, nil},
		{`<span class="other">50 reviews</span>`, nil},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, x.ReviewCount(parse(t, tt.page)), tt.page)
	}
}

func TestRecentReviewsBounds(t *testing.T) {
	x := newExtractor(t)

	none := x.RecentReviews(context.Background(), parse(t, `<p>no reviews</p>`), nil)
	require.NotNil(t, none)
	require.NotNil(t, none.Texts)
	require.Equal(t, 0, none.Len())
	require.Len(t, none.Dates, 0)

	one := x.RecentReviews(context.Background(), parse(t,
		`<div class="reviewSelector"><span class="ratingDate">Reviewed yesterday</span><span class="noQuotes">ok</span></div>`), nil)
	require.Equal(t, []string{"ok"}, one.Texts)
	require.Equal(t, []string{"02/09/22"}, one.Dates)

	many := x.RecentReviews(context.Background(), parse(t, listing), nil)
	require.Equal(t, models.MaxRecentReviews, many.Len())
	require.Len(t, many.Dates, len(many.Texts))
}

func TestRecentReviewsMissingParts(t *testing.T) {
	x := newExtractor(t)
	page := `<div class="reviewSelector"><span class="noQuotes">no date</span></div>
<div class="reviewSelector"><span class="ratingDate">Reviewed sometime soonish</span></div>`

	rr := x.RecentReviews(context.Background(), parse(t, page), nil)
	require.Equal(t, []string{"no date", ""}, rr.Texts)
	require.Equal(t, []string{"", ""}, rr.Dates)
}

const untranslated = `<div class="reviewSelector">
  <span class="ratingDate">Reviewed March 3, 2020</span>
  <span class="noQuotes"></span>
  <div class="ui_button secondary small" data-url="/MachineTranslation?review=42&amp;lang=en">Google Translation</div>
</div>`

func TestTranslationFallback(t *testing.T) {
	x := newExtractor(t)

	var fetched []string
	fetch := func(_ context.Context, path string) (string, error) {
		fetched = append(fetched, path)
		return "<div class=\"quote\">\n\"Best octopus in Porto\"\n</div><div class=\"quote\">second</div>", nil
	}

	rr := x.RecentReviews(context.Background(), parse(t, untranslated), fetch)
	require.Equal(t, []string{"/MachineTranslation?review=42&lang=en"}, fetched)
	require.Equal(t, []string{"Best octopus in Porto"}, rr.Texts)
	require.Equal(t, []string{"03/03/20"}, rr.Dates)
}

func TestTranslationFallbackDegrades(t *testing.T) {
	x := newExtractor(t)

	failing := func(context.Context, string) (string, error) {
		return "", models.NewScrapeError(models.ErrCodeTransport, "fetch", errors.New("502"))
	}
	rr := x.RecentReviews(context.Background(), parse(t, untranslated), failing)
	require.Equal(t, []string{""}, rr.Texts)

	noQuote := func(context.Context, string) (string, error) {
		return "<p>translation unavailable</p>", nil
	}
	rr = x.RecentReviews(context.Background(), parse(t, untranslated), noQuote)
	require.Equal(t, []string{""}, rr.Texts)

	rr = x.RecentReviews(context.Background(), parse(t, untranslated), nil)
	require.Equal(t, []string{""}, rr.Texts)
}

func TestTranslationFailureLogging(t *testing.T) {
	var buf bytes.Buffer
	x, err := New(Options{Logger: slog.New(slog.NewTextHandler(&buf, nil))})
	require.NoError(t, err)

	transport := func(context.Context, string) (string, error) {
		return "", models.NewScrapeError(models.ErrCodeTransportTimeout, "timed out", context.DeadlineExceeded)
	}
	x.RecentReviews(context.Background(), parse(t, untranslated), transport)
	require.Contains(t, buf.String(), "level=WARN msg=\"translation fetch failed\"")

	buf.Reset()
	exhausted := func(context.Context, string) (string, error) {
		return "", errors.New("translation fetch budget exhausted")
	}
	x.RecentReviews(context.Background(), parse(t, untranslated), exhausted)
	require.Contains(t, buf.String(), "level=INFO msg=\"translation skipped\"")
	require.NotContains(t, buf.String(), "WARN")
}

func TestTranslationNeedsButton(t *testing.T) {
	x := newExtractor(t)
	fetch := func(context.Context, string) (string, error) {
		t.Fatal("no translate button, no fetch")
		return "", nil
	}

	page := `<div class="reviewSelector"><span class="noQuotes"> </span>
<div class="ui_button secondary small">no link</div></div>`
	rr := x.RecentReviews(context.Background(), parse(t, page), fetch)
	require.Equal(t, []string{""}, rr.Texts)
}

func TestPrice(t *testing.T) {
	x := newExtractor(t)
	wrap := func(s string) string {
		return `<div id="taplc_top_info_0"><a class="drUyy">` + s + `</a><a class="drUyy">Seafood</a></div>`
	}

	for _, p := range []models.Price{models.PriceCheap, models.PriceMid, models.PriceFine} {
		got := x.Price(parse(t, wrap(" "+string(p)+"\n")))
		require.NotNil(t, got)
		require.Equal(t, p, *got)
	}

	for _, bad := range []string{"$$", "Seafood", "", "$$$$$"} {
		require.Nil(t, x.Price(parse(t, wrap(bad))), bad)
	}
	require.Nil(t, x.Price(parse(t, `<a class="drUyy">$</a>`)))
}

func TestCuisines(t *testing.T) {
	x := newExtractor(t)

	require.Equal(t, []string{"Seafood", "Bar"},
		x.Cuisines(parse(t, `<span class="cfvAV">Seafood,  Bar</span>`)))
	require.Nil(t, x.Cuisines(parse(t, `<span class="cfvAV">UAH 10, Seafood</span>`)))
	require.Nil(t, x.Cuisines(parse(t, `<span class="cfvAV"> USD 5 - USD 20</span>`)))
	require.Nil(t, x.Cuisines(parse(t, `<span class="cfvAV"> , </span>`)))
	require.Nil(t, x.Cuisines(parse(t, `<span>Seafood</span>`)))
}

func TestCuisinesCustomPrefixes(t *testing.T) {
	x, err := New(Options{CurrencyPrefixes: []string{"PLN"}})
	require.NoError(t, err)

	require.Nil(t, x.Cuisines(parse(t, `<span class="cfvAV">PLN 40, Polish</span>`)))
	require.Equal(t, []string{"UAH 10", "Seafood"},
		x.Cuisines(parse(t, `<span class="cfvAV">UAH 10, Seafood</span>`)))
}

func TestSelectorOverride(t *testing.T) {
	x, err := New(Options{Selectors: Selectors{Cuisines: "ul.cuisines"}})
	require.NoError(t, err)

	require.Equal(t, []string{"Thai"}, x.Cuisines(parse(t, `<ul class="cuisines">Thai</ul>`)))
	// untouched fields keep their defaults
	require.False(t, x.PageExists(parse(t, `<h1 id="HEADING"></h1>`)))
}

func intPtr(n int) *int { return &n }
