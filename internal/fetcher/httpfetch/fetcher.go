// Package httpfetch implements monitor.Fetcher using gocolly.
package httpfetch

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/JakeFAU/sitewatch/internal/monitor"
)

// Config controls fetch behavior.
type Config struct {
	UserAgent  string
	Timeout    time.Duration
	MaxRetries int
	// Backoff is the base retry delay; attempt n waits n*Backoff.
	Backoff time.Duration
	// Headers are sent on every request in addition to the defaults.
	Headers map[string]string
	// MaxBodyBytes bounds how much of a response body is read. It is set
	// one byte past the extractor's raw cap so oversized pages are still
	// detectable downstream.
	MaxBodyBytes int
}

// defaultHeaders mimic a regular browser; sites the watcher cares about
// tend to serve stripped-down pages to obvious bots.
var defaultHeaders = map[string]string{
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
	"Accept-Language":           "en-US,en;q=0.5",
	"Upgrade-Insecure-Requests": "1",
}

// Fetcher implements monitor.Fetcher with per-request retries and a
// private-network guard.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
	logger        *zap.Logger

	// validate guards fetch targets; overridden in tests so loopback
	// servers are reachable.
	validate func(string) error
}

// New builds a Fetcher.
func New(cfg Config, logger *zap.Logger) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 5 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = monitor.DefaultMaxContentBytes + 1
	}

	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = true
	c.MaxBodySize = cfg.MaxBodyBytes
	c.WithTransport(newHTTPTransport())

	return &Fetcher{cfg: cfg, baseCollector: c, logger: logger, validate: ValidateURL}
}

// Fetch retrieves a single page, retrying transient failures with linear
// backoff. Client (4xx) errors are returned immediately; the URL is
// validated against private networks before any request is made.
func (f *Fetcher) Fetch(ctx context.Context, request monitor.FetchRequest) (monitor.FetchResponse, error) {
	if err := f.validate(request.URL); err != nil {
		return monitor.FetchResponse{}, fmt.Errorf("invalid fetch target: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= f.cfg.MaxRetries; attempt++ {
		resp, retryable, err := f.fetchOnce(ctx, request)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !retryable || attempt == f.cfg.MaxRetries {
			break
		}
		wait := time.Duration(attempt) * f.cfg.Backoff
		f.logger.Warn("fetch attempt failed, retrying",
			zap.String("url", request.URL),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", wait),
			zap.Error(err))
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return monitor.FetchResponse{}, fmt.Errorf("fetch canceled: %w", ctx.Err())
		case <-timer.C:
		}
	}
	return monitor.FetchResponse{}, fmt.Errorf("fetch %s: %w", request.URL, lastErr)
}

// fetchOnce runs a single collector visit. The bool reports whether the
// failure is worth retrying (network errors and 5xx yes, other HTTP
// statuses no).
func (f *Fetcher) fetchOnce(ctx context.Context, request monitor.FetchRequest) (monitor.FetchResponse, bool, error) {
	collector := f.baseCollector.Clone()
	collector.UserAgent = f.cfg.UserAgent
	collector.IgnoreRobotsTxt = true
	collector.SetRequestTimeout(f.cfg.Timeout)

	var (
		result     monitor.FetchResponse
		fetchErr   error
		statusCode int
	)
	start := time.Now()

	collector.OnRequest(func(r *colly.Request) {
		for key, value := range defaultHeaders {
			r.Headers.Set(key, value)
		}
		for key, value := range f.cfg.Headers {
			r.Headers.Set(key, value)
		}
		for key, values := range request.Headers {
			for _, v := range values {
				r.Headers.Add(key, v)
			}
		}
	})
	collector.OnResponse(func(r *colly.Response) {
		result = monitor.FetchResponse{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Body:       append([]byte(nil), r.Body...),
			Duration:   time.Since(start),
		}
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil {
			statusCode = r.StatusCode
		}
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(request.URL)
	}()

	select {
	case <-ctx.Done():
		return monitor.FetchResponse{}, false, fmt.Errorf("fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err == nil && fetchErr == nil {
			return result, false, nil
		}
		if fetchErr == nil {
			fetchErr = err
		}
		if statusCode >= 400 && statusCode < 500 {
			return monitor.FetchResponse{}, false, fmt.Errorf("http status %d: %w", statusCode, fetchErr)
		}
		return monitor.FetchResponse{}, true, fetchErr
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
