package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	tls "github.com/refraction-networking/utls"

	"github.com/use-agent/scrubber/models"
)

// DefaultTimeout bounds a single fetch, connection and body read included.
const DefaultTimeout = 200 * time.Second

// DefaultMaxBodyBytes caps a decoded response body.
const DefaultMaxBodyBytes = 10 << 20

// ErrBodyTooLarge indicates a response body over the configured cap. The
// truncated document is discarded.
var ErrBodyTooLarge = errors.New("response body too large")

// DefaultHeaders is the static header bundle sent with every request. It
// mirrors a desktop Firefox navigation.
var DefaultHeaders = map[string]string{
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
	"Accept-Encoding":           "gzip, deflate",
	"Accept-Language":           "en-US,en;q=0.5",
	"Connection":                "keep-alive",
	"Upgrade-Insecure-Requests": "1",
	"DNT":                       "1",
	"Sec-Fetch-Dest":            "document",
	"Sec-Fetch-Mode":            "navigate",
	"Sec-Fetch-Site":            "cross-site",
	"User-Agent":                "Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:96.0) Gecko/20100101 Firefox/96.0",
	"TE":                        "trailers",
}

// chromeH1Spec is a Chrome-like TLS ClientHello with ALPN forced to http/1.1
// only. Computed once at init time and reused for every connection.
var chromeH1Spec tls.ClientHelloSpec

func init() {
	spec, err := tls.UTLSIdToSpec(tls.HelloChrome_Auto)
	if err != nil {
		return
	}
	// Go's http.Transport cannot speak h2 over a utls connection.
	for i, ext := range spec.Extensions {
		if alpn, ok := ext.(*tls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
			spec.Extensions[i] = alpn
			break
		}
	}
	chromeH1Spec = spec
}

// HTTPOptions configures an HTTPEngine.
type HTTPOptions struct {
	// Timeout bounds each fetch. Zero means DefaultTimeout.
	Timeout time.Duration

	// InsecureSkipVerify disables certificate verification. The target
	// host's chain is accepted without validation when set.
	InsecureSkipVerify bool

	// Headers overrides or extends DefaultHeaders.
	Headers map[string]string

	// MaxBodyBytes caps the decoded body. Zero means DefaultMaxBodyBytes.
	MaxBodyBytes int64
}

// HTTPEngine fetches pages over plain HTTP with a Chrome TLS fingerprint,
// a fixed browser header set and a chained Referer.
type HTTPEngine struct {
	client  *http.Client
	headers map[string]string
	maxBody int64
}

// NewHTTPEngine creates an HTTPEngine. The utls dialer applies the Chrome
// ClientHello with ALPN locked to http/1.1.
func NewHTTPEngine(opts HTTPOptions) *HTTPEngine {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}

	insecure := opts.InsecureSkipVerify
	transport := &http.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			dialer := &net.Dialer{Timeout: 10 * time.Second}
			conn, err := dialer.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			host, _, _ := net.SplitHostPort(addr)
			tlsConn := tls.UClient(conn, &tls.Config{
				ServerName:         host,
				InsecureSkipVerify: insecure,
			}, tls.HelloCustom)
			if err := tlsConn.ApplyPreset(&chromeH1Spec); err != nil {
				conn.Close()
				return nil, fmt.Errorf("http_engine: apply tls spec: %w", err)
			}
			if err := tlsConn.HandshakeContext(ctx); err != nil {
				conn.Close()
				return nil, err
			}
			return tlsConn, nil
		},
		ForceAttemptHTTP2: false,
	}

	headers := make(map[string]string, len(DefaultHeaders)+len(opts.Headers))
	for k, v := range DefaultHeaders {
		headers[k] = v
	}
	for k, v := range opts.Headers {
		headers[k] = v
	}

	return &HTTPEngine{
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		headers: headers,
		maxBody: maxBody,
	}
}

func (e *HTTPEngine) Name() string { return "http" }

func (e *HTTPEngine) Fetch(ctx context.Context, sess Session, url string) (*FetchResult, Session, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, sess, models.NewScrapeError(models.ErrCodeTransport, "build request", err)
	}
	for k, v := range e.headers {
		httpReq.Header.Set(k, v)
	}
	if sess.Referer != "" {
		httpReq.Header.Set("Referer", sess.Referer)
	}

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, sess, transportError("request "+url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, sess, models.NewScrapeError(
			models.ErrCodeTransport,
			"fetch "+url,
			fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode),
		)
	}

	body, err := readBody(resp, e.maxBody)
	if err != nil {
		return nil, sess, transportError("read body of "+url, err)
	}

	return &FetchResult{
		HTML:       body,
		Title:      PageTitle(body),
		StatusCode: resp.StatusCode,
		FinalURL:   resp.Request.URL.String(),
		EngineName: e.Name(),
	}, sess.Next(url), nil
}

// readBody decodes the response according to its Content-Encoding. The
// header set asks for compression explicitly, so net/http leaves it to us.
func readBody(resp *http.Response, limit int64) (string, error) {
	var r io.Reader = resp.Body
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return "", fmt.Errorf("gzip: %w", err)
		}
		defer gz.Close()
		r = gz
	case "deflate":
		zr, err := zlib.NewReader(resp.Body)
		if err != nil {
			return "", fmt.Errorf("deflate: %w", err)
		}
		defer zr.Close()
		r = zr
	}

	body, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return "", err
	}
	if int64(len(body)) > limit {
		return "", fmt.Errorf("%w: over %d bytes", ErrBodyTooLarge, limit)
	}
	return string(body), nil
}

// transportError classifies a failed round trip as a timeout or a plain
// transport failure.
func transportError(msg string, err error) *models.ScrapeError {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return models.NewScrapeError(models.ErrCodeTransportTimeout, msg, err)
	}
	return models.NewScrapeError(models.ErrCodeTransport, msg, err)
}
