package headless

import (
	"net/http"
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
)

func TestNewChromedpValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewChromedp(Config{NavigationTimeout: -time.Second}); err == nil {
		t.Fatal("expected error for negative navigation timeout")
	}
	fetcher, err := NewChromedp(Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer fetcher.Close()
	if fetcher.cfg.ReadySelector != "body" {
		t.Fatalf("expected default ready selector, got %q", fetcher.cfg.ReadySelector)
	}
}

func TestFetcherNavTimeoutDefault(t *testing.T) {
	t.Parallel()

	fetcher := &Fetcher{}
	if got := fetcher.navTimeout(); got != defaultNavTimeout {
		t.Fatalf("expected default nav timeout, got %v", got)
	}
	fetcher.cfg.NavigationTimeout = time.Second
	if got := fetcher.navTimeout(); got != time.Second {
		t.Fatalf("expected override to be used, got %v", got)
	}
}

func TestResponseMetaCaptureAndFallback(t *testing.T) {
	t.Parallel()

	meta := newResponseMeta()
	if got := meta.statusWithFallback(); got != http.StatusOK {
		t.Fatalf("expected fallback status 200, got %d", got)
	}

	meta.captureEvent(&network.EventResponseReceived{
		Type:     network.ResourceTypeStylesheet,
		Response: &network.Response{Status: 500},
	})
	if got := meta.statusWithFallback(); got != http.StatusOK {
		t.Fatalf("non-document responses must be ignored, got %d", got)
	}

	meta.captureEvent(&network.EventResponseReceived{
		Type:     network.ResourceTypeDocument,
		Response: &network.Response{Status: 404, URL: "https://example.com/company-list/p-9-company.html"},
	})
	if got := meta.statusWithFallback(); got != http.StatusNotFound {
		t.Fatalf("expected captured document status, got %d", got)
	}
}
