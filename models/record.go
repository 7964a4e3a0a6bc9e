package models

import (
	"fmt"
	"strings"
)

// Price is one of the price tiers the listing page can advertise.
type Price string

const (
	PriceCheap Price = "$"
	PriceMid   Price = "$$ - $$$"
	PriceFine  Price = "$$$$"
)

// ParsePrice returns the tier matching s exactly. Any other token, including
// text picked up by a drifted selector, is not a price.
func ParsePrice(s string) (Price, bool) {
	switch p := Price(s); p {
	case PriceCheap, PriceMid, PriceFine:
		return p, true
	}
	return "", false
}

// MaxRecentReviews bounds how many review blocks are read from a listing.
const MaxRecentReviews = 2

// RecentReviews holds index-aligned review texts and MM/DD/YY dates.
type RecentReviews struct {
	Texts []string `yaml:"texts" json:"texts"`
	Dates []string `yaml:"dates" json:"dates"`
}

// NewRecentReviews pairs texts with dates. Both slices must have the same
// length and at most MaxRecentReviews entries.
func NewRecentReviews(texts, dates []string) (*RecentReviews, error) {
	if len(texts) != len(dates) {
		return nil, fmt.Errorf("recent reviews: %d texts but %d dates", len(texts), len(dates))
	}
	if len(texts) > MaxRecentReviews {
		return nil, fmt.Errorf("recent reviews: %d entries exceeds %d", len(texts), MaxRecentReviews)
	}
	if texts == nil {
		texts = []string{}
	}
	if dates == nil {
		dates = []string{}
	}
	return &RecentReviews{Texts: texts, Dates: dates}, nil
}

// Len returns the number of reviews.
func (r *RecentReviews) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Texts)
}

// RestaurantRecord is the structured result of scraping one listing.
// Nil pointers and a nil Cuisines slice mean the field is absent.
type RestaurantRecord struct {
	Exists        bool           `yaml:"exists" json:"exists"`
	ReviewCount   *int           `yaml:"review_count,omitempty" json:"review_count,omitempty"`
	RecentReviews *RecentReviews `yaml:"recent_reviews,omitempty" json:"recent_reviews,omitempty"`
	Price         *Price         `yaml:"price,omitempty" json:"price,omitempty"`
	Cuisines      []string       `yaml:"cuisines,omitempty" json:"cuisines,omitempty"`
}

// NonexistentRecord is the record of a listing the site does not have.
// Every field other than Exists is absent.
func NonexistentRecord() *RestaurantRecord {
	return &RestaurantRecord{Exists: false}
}

// Valid reports whether the record honors its invariants: a missing listing
// carries no other fields, prices are known tiers and reviews are aligned.
func (r *RestaurantRecord) Valid() bool {
	if r == nil {
		return false
	}
	if !r.Exists {
		return r.ReviewCount == nil && r.RecentReviews == nil && r.Price == nil && r.Cuisines == nil
	}
	if r.Price != nil {
		if _, ok := ParsePrice(string(*r.Price)); !ok {
			return false
		}
	}
	if rr := r.RecentReviews; rr != nil {
		if len(rr.Texts) != len(rr.Dates) || len(rr.Texts) > MaxRecentReviews {
			return false
		}
	}
	return true
}

// String renders a one-line summary: existence flag, cuisines, review count,
// price and recent reviews.
func (r *RestaurantRecord) String() string {
	if r == nil {
		return "<nil>"
	}
	flag := " "
	if r.Exists {
		flag = "+"
	}

	field := func(present bool, v any) string {
		if !present {
			return "None"
		}
		return fmt.Sprint(v)
	}

	var price any
	if r.Price != nil {
		price = *r.Price
	}
	var count any
	if r.ReviewCount != nil {
		count = *r.ReviewCount
	}
	reviews := "None"
	if r.RecentReviews != nil {
		reviews = fmt.Sprintf("[%s] [%s]",
			strings.Join(r.RecentReviews.Texts, " | "),
			strings.Join(r.RecentReviews.Dates, " | "))
	}

	return fmt.Sprintf("[%s] %s %s %s %s",
		flag,
		field(r.Cuisines != nil, r.Cuisines),
		field(r.ReviewCount != nil, count),
		field(r.Price != nil, price),
		reviews,
	)
}
