package scraper

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cockroachdb/errors"

	"github.com/mukeshyadav-sketch/cricbuzz-webscraping/internal/logger"
)

const (
	UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	Timeout   = 30 * time.Second
)

// ErrFetch marks a page that could not be retrieved: transport error, timeout
// or non-2xx status.
var ErrFetch = errors.New("fetch failed")

// Client fetches and parses cricbuzz pages
type Client struct {
	client    *http.Client
	userAgent string
	metrics   *logger.Metrics
}

// Option configures a Client
type Option func(*Client)

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.client.Timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithMetrics records fetch timings and failures
func WithMetrics(m *logger.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// New creates a new Client instance
func New(opts ...Option) *Client {
	c := &Client{
		client: &http.Client{
			Timeout: Timeout,
		},
		userAgent: UserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch downloads url and parses it. Failures are marked with ErrFetch.
func (c *Client) Fetch(ctx context.Context, url string) (*goquery.Document, error) {
	start := time.Now()
	doc, err := c.fetch(ctx, url)
	if c.metrics != nil {
		c.metrics.RecordTiming("fetch", time.Since(start))
		if err != nil {
			c.metrics.IncrCounter("fetch.failed")
		} else {
			c.metrics.IncrCounter("fetch.ok")
		}
	}
	if err != nil {
		return nil, errors.Mark(err, ErrFetch)
	}
	return doc, nil
}

func (c *Client) fetch(ctx context.Context, url string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "creating request")
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "fetching %s", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Newf("unexpected status code %d for %s", resp.StatusCode, url)
	}

	logger.Debug("Page fetched", logger.Fields{"url": url, "status": resp.StatusCode})
	return Parse(resp.Body)
}

// Parse reads an HTML document
func Parse(r io.Reader) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "parsing HTML")
	}
	return doc, nil
}
