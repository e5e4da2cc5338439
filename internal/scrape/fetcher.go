// Package scrape fetches job detail pages and flattens them to text the
// extractor can work with.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jchau/jobmatch/internal/utils"
)

// ErrorKind classifies a fetch failure. Every kind is recoverable at the
// caller's discretion; none aborts the batch.
type ErrorKind int

const (
	// KindTimeout means the request exceeded the configured timeout.
	KindTimeout ErrorKind = iota + 1
	// KindTransport covers connection refusal, DNS failure, TLS errors and
	// any other non-timeout network-layer failure.
	KindTransport
	// KindHTTPStatus means the server answered with a non-2xx status.
	KindHTTPStatus
	// KindUnsupportedContentType means the response was not HTML/XHTML.
	KindUnsupportedContentType
)

func (k ErrorKind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindTransport:
		return "transport"
	case KindHTTPStatus:
		return "http_status"
	case KindUnsupportedContentType:
		return "unsupported_content_type"
	default:
		return "unknown"
	}
}

// FetchError is the typed failure returned by the Fetcher.
type FetchError struct {
	Kind        ErrorKind
	URL         string
	Status      int
	ContentType string
	Err         error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case KindTimeout:
		return fmt.Sprintf("fetching %s: timeout", e.URL)
	case KindHTTPStatus:
		return fmt.Sprintf("fetching %s: bad status: %d", e.URL, e.Status)
	case KindUnsupportedContentType:
		return fmt.Sprintf("fetching %s: non-HTML content type %q", e.URL, e.ContentType)
	default:
		return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// RawPage is the unmodified response of a single fetch. It lives only until
// the normalizer consumes it.
type RawPage struct {
	Body        []byte
	Status      int
	ContentType string
}

// Browser-identifying headers observed to keep job boards from serving
// block pages to plain Go clients.
var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/134.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_7_2) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4.1 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:134.0) Gecko/20100101 Firefox/134.0",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/135.0.0.0 Safari/537.36",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 18_4 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/18.4 Mobile/15E148 Safari/605.1",
}

var defaultHeaders = map[string]string{
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
	"Accept-Language":           "en-US,en;q=0.9,en-GB;q=0.8",
	"Referer":                   "https://www.google.com/",
	"Connection":                "keep-alive",
	"Upgrade-Insecure-Requests": "1",
}

const (
	defaultTimeout  = 25 * time.Second
	defaultMinDelay = 1 * time.Second
	defaultMaxDelay = 2 * time.Second
)

// Config holds the recognized fetch options.
type Config struct {
	// UserAgents is the pool a browser identity is drawn from, uniformly at
	// random per call.
	UserAgents []string
	// ExtraHeaders are sent verbatim on every request.
	ExtraHeaders map[string]string
	// MinDelay/MaxDelay bound the politeness delay sampled before each
	// request.
	MinDelay time.Duration
	MaxDelay time.Duration
	// Timeout bounds the whole request.
	Timeout time.Duration
	// RequireHTML rejects non-HTML responses with KindUnsupportedContentType.
	RequireHTML bool
}

// Fetcher issues single, blocking GET requests with a randomized browser
// header set and a politeness delay. It never retries.
type Fetcher struct {
	client *http.Client
	cfg    Config
	logger *zap.Logger

	pickUserAgent func([]string) string
}

func NewFetcher(cfg Config, logger *zap.Logger) *Fetcher {
	if len(cfg.UserAgents) == 0 {
		cfg.UserAgents = defaultUserAgents
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MinDelay == 0 && cfg.MaxDelay == 0 {
		cfg.MinDelay = defaultMinDelay
		cfg.MaxDelay = defaultMaxDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Fetcher{
		client: &http.Client{Timeout: cfg.Timeout},
		cfg:    cfg,
		logger: logger,
		pickUserAgent: func(pool []string) string {
			return pool[rand.Intn(len(pool))]
		},
	}
}

// Fetch performs exactly one GET against the url after the politeness delay
// and returns the raw body and declared content type unmodified.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*RawPage, error) {
	delay := utils.RandomDelay(f.cfg.MinDelay, f.cfg.MaxDelay)

	f.logger.Debug("fetching page",
		zap.String("url", url),
		zap.Duration("delay", delay),
	)

	if err := utils.WaitFor(ctx, delay); err != nil {
		return nil, &FetchError{Kind: classifyTransport(err), URL: url, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{Kind: KindTransport, URL: url, Err: err}
	}

	req.Header.Set("User-Agent", f.pickUserAgent(f.cfg.UserAgents))
	for key, value := range defaultHeaders {
		req.Header.Set(key, value)
	}
	for key, value := range f.cfg.ExtraHeaders {
		req.Header.Set(key, value)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{Kind: classifyTransport(err), URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{Kind: KindHTTPStatus, URL: url, Status: resp.StatusCode}
	}

	contentType := resp.Header.Get("Content-Type")
	if f.cfg.RequireHTML && !strings.Contains(strings.ToLower(contentType), "html") {
		return nil, &FetchError{Kind: KindUnsupportedContentType, URL: url, ContentType: contentType}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{Kind: classifyTransport(err), URL: url, Err: err}
	}

	f.logger.Debug("fetched page",
		zap.String("url", url),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(body)),
	)

	return &RawPage{
		Body:        body,
		Status:      resp.StatusCode,
		ContentType: contentType,
	}, nil
}

func classifyTransport(err error) ErrorKind {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindTransport
}
