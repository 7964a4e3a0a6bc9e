package extract

import "github.com/use-agent/scrubber/htmldoc"

// Selectors names the CSS selectors used to locate each field on a listing
// page. They track the site's markup and are expected to drift.
type Selectors struct {
	NotFoundHeading  string `yaml:"not_found_heading"`
	ReviewCount      string `yaml:"review_count"`
	Review           string `yaml:"review"`
	ReviewDate       string `yaml:"review_date"`
	ReviewText       string `yaml:"review_text"`
	TranslateButton  string `yaml:"translate_button"`
	TranslateAttr    string `yaml:"translate_attr"`
	TranslationQuote string `yaml:"translation_quote"`
	Price            string `yaml:"price"`
	Cuisines         string `yaml:"cuisines"`
}

// DefaultSelectors returns the selectors matching the listing markup.
func DefaultSelectors() Selectors {
	return Selectors{
		NotFoundHeading:  "h1#HEADING",
		ReviewCount:      ".eBTWs",
		Review:           ".reviewSelector",
		ReviewDate:       ".ratingDate",
		ReviewText:       ".noQuotes",
		TranslateButton:  ".ui_button.secondary.small",
		TranslateAttr:    "data-url",
		TranslationQuote: ".quote",
		Price:            "#taplc_top_info_0 a.drUyy:nth-child(1)",
		Cuisines:         ".cfvAV",
	}
}

// Merge returns s with every empty field taken from base.
func (s Selectors) Merge(base Selectors) Selectors {
	pick := func(v, def string) string {
		if v == "" {
			return def
		}
		return v
	}
	return Selectors{
		NotFoundHeading:  pick(s.NotFoundHeading, base.NotFoundHeading),
		ReviewCount:      pick(s.ReviewCount, base.ReviewCount),
		Review:           pick(s.Review, base.Review),
		ReviewDate:       pick(s.ReviewDate, base.ReviewDate),
		ReviewText:       pick(s.ReviewText, base.ReviewText),
		TranslateButton:  pick(s.TranslateButton, base.TranslateButton),
		TranslateAttr:    pick(s.TranslateAttr, base.TranslateAttr),
		TranslationQuote: pick(s.TranslationQuote, base.TranslationQuote),
		Price:            pick(s.Price, base.Price),
		Cuisines:         pick(s.Cuisines, base.Cuisines),
	}
}

type compiled struct {
	notFoundHeading  htmldoc.Selector
	reviewCount      htmldoc.Selector
	review           htmldoc.Selector
	reviewDate       htmldoc.Selector
	reviewText       htmldoc.Selector
	translateButton  htmldoc.Selector
	translationQuote htmldoc.Selector
	price            htmldoc.Selector
	cuisines         htmldoc.Selector
}

func (s Selectors) compile() (compiled, error) {
	var c compiled
	targets := []struct {
		src string
		dst *htmldoc.Selector
	}{
		{s.NotFoundHeading, &c.notFoundHeading},
		{s.ReviewCount, &c.reviewCount},
		{s.Review, &c.review},
		{s.ReviewDate, &c.reviewDate},
		{s.ReviewText, &c.reviewText},
		{s.TranslateButton, &c.translateButton},
		{s.TranslationQuote, &c.translationQuote},
		{s.Price, &c.price},
		{s.Cuisines, &c.cuisines},
	}
	for _, t := range targets {
		sel, err := htmldoc.Compile(t.src)
		if err != nil {
			return compiled{}, err
		}
		*t.dst = sel
	}
	return c, nil
}
