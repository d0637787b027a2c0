package adapters

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/feedwatch/feedwatch/internal/feed"
)

// ClientConfig controls the shared HTTP client used by all adapters.
type ClientConfig struct {
	UserAgent string
	Timeout   time.Duration
}

// Client executes single HTTP GETs through a Colly collector with a pooled
// transport. Feed endpoints are public documents, so robots handling is
// skipped.
type Client struct {
	cfg           ClientConfig
	transport     *http.Transport
	baseCollector *colly.Collector
}

// NewClient builds a Client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.UserAgent == "" {
		cfg.UserAgent = "feedwatch/1.0"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	tr := newHTTPTransport()
	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = true
	c.WithTransport(tr)
	return &Client{cfg: cfg, transport: tr, baseCollector: c}
}

// ctxTransport binds an outer context to every request a collector clone
// issues, so cancelling the fetch context aborts the in-flight transfer.
type ctxTransport struct {
	ctx  context.Context
	base http.RoundTripper
}

func (t *ctxTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.base.RoundTrip(req.WithContext(t.ctx))
}

// Get fetches one URL and returns the response body. Errors are classified:
// network trouble and 5xx responses are transient, 4xx responses permanent.
func (c *Client) Get(ctx context.Context, rawURL string, headers map[string]string) ([]byte, error) {
	collector := c.baseCollector.Clone()
	collector.UserAgent = c.cfg.UserAgent
	collector.IgnoreRobotsTxt = true
	collector.SetRequestTimeout(c.cfg.Timeout)
	collector.WithTransport(&ctxTransport{ctx: ctx, base: c.transport})

	var (
		body     []byte
		status   int
		fetchErr error
	)
	collector.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "application/json, text/xml, application/xml, text/html, */*")
		for k, v := range headers {
			r.Headers.Set(k, v)
		}
	})
	collector.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = append([]byte(nil), r.Body...)
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(rawURL)
	}()
	select {
	case err := <-done:
		if err != nil && fetchErr == nil {
			fetchErr = err
		}
	case <-ctx.Done():
		return nil, fmt.Errorf("fetch %s: %w", rawURL, ctx.Err())
	}

	if fetchErr != nil {
		if status >= 400 && status < 500 {
			return nil, feed.Permanent(rawURL, fmt.Errorf("status %d: %w", status, fetchErr))
		}
		return nil, feed.Transient(rawURL, fetchErr)
	}
	return body, nil
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}
