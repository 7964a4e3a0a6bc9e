// Package webhook delivers produced records to an external endpoint.
package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/use-agent/scrubber/models"
)

// EventRecordScraped is sent once per record produced by a scrape.
const EventRecordScraped = "record.scraped"

// SignatureHeader carries "sha256=<hex>" of the body when a secret is set.
const SignatureHeader = "X-Scrubber-Signature"

// Event is the payload sent to webhook endpoints.
type Event struct {
	Type        string                   `json:"type"`
	Path        string                   `json:"path"`
	CacheStatus string                   `json:"cache_status"`
	Timestamp   int64                    `json:"timestamp"`
	Record      *models.RestaurantRecord `json:"record"`
}

// NewRecordEvent builds the event announcing rec for path.
func NewRecordEvent(path, cacheStatus string, rec *models.RestaurantRecord) *Event {
	return &Event{
		Type:        EventRecordScraped,
		Path:        path,
		CacheStatus: cacheStatus,
		Timestamp:   time.Now().Unix(),
		Record:      rec,
	}
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// DefaultTimeout bounds a single delivery.
const DefaultTimeout = 10 * time.Second

// Notifier posts events to a single endpoint.
type Notifier struct {
	url    string
	secret string
	client *resty.Client
}

// NewNotifier returns a Notifier posting to url. A non-empty secret signs
// every body.
func NewNotifier(url, secret string) *Notifier {
	client := resty.New()
	client.SetTimeout(DefaultTimeout)
	client.SetHeader("Content-Type", "application/json")
	client.SetHeader("User-Agent", "Scrubber-Webhook/1.0")
	return &Notifier{url: url, secret: secret, client: client}
}

// Deliver sends an event synchronously. It is attempted once; a failed
// delivery is reported to the caller and not retried.
func (n *Notifier) Deliver(ctx context.Context, event *Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook: marshal event: %w", err)
	}

	req := n.client.R().SetContext(ctx).SetBody(body)
	if n.secret != "" {
		req.SetHeader(SignatureHeader, "sha256="+Sign(n.secret, body))
	}

	resp, err := req.Post(n.url)
	if err != nil {
		return fmt.Errorf("webhook: deliver: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook: endpoint returned status %d", resp.StatusCode())
	}
	return nil
}
