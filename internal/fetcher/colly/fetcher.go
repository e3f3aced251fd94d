// Package collyfetcher implements crawler.Fetcher using gocolly.
package collyfetcher

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/JakeFAU/company-list-crawler/internal/crawler"
)

// Config controls collector behavior.
type Config struct {
	UserAgent     string
	RespectRobots bool
	// Timeout of zero keeps the collector's default.
	Timeout time.Duration
}

// Fetcher implements crawler.Fetcher using the Colly collector.
type Fetcher struct {
	cfg           Config
	transport     http.RoundTripper
	baseCollector *colly.Collector
}

type collectorHooks interface {
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// visitOutcome collects what the collector callbacks saw for one visit.
type visitOutcome struct {
	status int
	body   []byte
	err    error
}

// New builds a Fetcher.
func New(cfg Config) *Fetcher {
	c := colly.NewCollector(colly.Async(false), colly.AllowURLRevisit())
	transport := newHTTPTransport()
	c.WithTransport(transport)

	return &Fetcher{
		cfg:           cfg,
		transport:     transport,
		baseCollector: c,
	}
}

// Fetch executes a single HTTP GET. Anything but a 200 is a failed result.
func (f *Fetcher) Fetch(ctx context.Context, url string) crawler.FetchResult {
	var outcome visitOutcome
	collector := f.buildCollector(&outcome)

	if err := f.runCollector(ctx, collector, url, &outcome); err != nil {
		if ctx.Err() != nil {
			// The visit goroutine may still be writing outcome.
			return crawler.FetchFailed(url, 0, err)
		}
		return crawler.FetchFailed(url, outcome.status, err)
	}
	if outcome.status != http.StatusOK {
		return crawler.FetchFailed(url, outcome.status, fmt.Errorf("%w: %d", crawler.ErrUnexpectedStatus, outcome.status))
	}
	return crawler.Fetched(url, outcome.status, outcome.body)
}

func (f *Fetcher) buildCollector(outcome *visitOutcome) *colly.Collector {
	collector := f.baseCollector.Clone()
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.IgnoreRobotsTxt = !f.cfg.RespectRobots
	collector.AllowURLRevisit = true
	// Non-2xx bodies still reach OnResponse so the status can be reported.
	collector.ParseHTTPErrorResponse = true
	if f.cfg.Timeout > 0 {
		collector.SetRequestTimeout(f.cfg.Timeout)
	}
	collector.WithTransport(f.transport)

	f.configureCollectorHooks(collector, outcome)
	return collector
}

func (f *Fetcher) configureCollectorHooks(hooks collectorHooks, outcome *visitOutcome) {
	hooks.OnResponse(func(r *colly.Response) {
		outcome.status = r.StatusCode
		outcome.body = append([]byte(nil), r.Body...)
	})

	hooks.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			outcome.status = r.StatusCode
		}
		outcome.err = err
	})
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, url string, outcome *visitOutcome) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("colly visit failed: %w", err)
		}
		if outcome.err != nil {
			return fmt.Errorf("colly response failed: %w", outcome.err)
		}
		return nil
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
