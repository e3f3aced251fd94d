package gcs

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/JakeFAU/company-list-crawler/internal/crawler"
)

func TestNewOpenerRequiresBucket(t *testing.T) {
	t.Parallel()

	_, err := NewOpener(Config{})
	require.ErrorContains(t, err, "storage.gcs.bucket")

	opener, err := NewOpener(Config{Bucket: "b", Prefix: "/companies/"})
	require.NoError(t, err)
	require.Equal(t, "companies", opener.cfg.Prefix)
}

func TestObjectName(t *testing.T) {
	t.Parallel()

	require.Equal(t, "companies-r1.jsonl", (&Store{}).ObjectName("r1"))
	require.Equal(t, "out/companies-r1.jsonl", (&Store{prefix: "out"}).ObjectName("r1"))
}

func TestBulkInsertUploadsObject(t *testing.T) {
	t.Parallel()

	var (
		mu       sync.Mutex
		uploaded string
	)
	// Simulates the GCS JSON API multipart upload.
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/b/test-bucket/o")
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		mu.Lock()
		uploaded = string(body)
		mu.Unlock()
		fmt.Fprintln(w, `{"name":"companies/companies-run-7.jsonl","bucket":"test-bucket"}`)
	})
	server := httptest.NewServer(handler)
	defer server.Close()

	opener, err := NewOpener(Config{
		Bucket:        "test-bucket",
		Prefix:        "companies",
		ClientOptions: []option.ClientOption{option.WithEndpoint(server.URL), option.WithoutAuthentication()},
	})
	require.NoError(t, err)

	sink, err := opener.Open(context.Background())
	require.NoError(t, err)
	defer sink.Close() //nolint:errcheck

	err = sink.BulkInsert(context.Background(), crawler.Batch{
		RunID:   "run-7",
		Records: []crawler.Record{{Name: "CIN-1", Company: "ACME LTD", ROC: "RoC-Delhi", Status: "Active"}},
	})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, uploaded, `{"name":"CIN-1","company":"ACME LTD","roc":"RoC-Delhi","status":"Active"}`)
	assert.Contains(t, uploaded, "companies/companies-run-7.jsonl")
}
