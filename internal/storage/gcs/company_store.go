// Package gcs writes company batches as JSON-lines objects in Google Cloud Storage.
package gcs

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/JakeFAU/company-list-crawler/internal/crawler"
)

const contentType = "application/x-ndjson"

// Config captures the parameters required to connect to GCS.
type Config struct {
	Bucket string
	Prefix string
	// ClientOptions are passed to storage.NewClient (endpoint, credentials).
	ClientOptions []option.ClientOption
}

// Opener creates a storage client for a single run.
type Opener struct {
	cfg Config
}

// NewOpener validates cfg and returns an Opener.
func NewOpener(cfg Config) (*Opener, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage.gcs.bucket is required")
	}
	cfg.Prefix = strings.Trim(cfg.Prefix, "/")
	return &Opener{cfg: cfg}, nil
}

// Open creates the client the returned Store closes.
func (o *Opener) Open(ctx context.Context) (crawler.Sink, error) {
	client, err := storage.NewClient(ctx, o.cfg.ClientOptions...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &Store{client: client, bucket: o.cfg.Bucket, prefix: o.cfg.Prefix}, nil
}

// Store uploads one object per batch.
type Store struct {
	client *storage.Client
	bucket string
	prefix string
}

// ObjectName returns the object a batch with runID is written to.
func (s *Store) ObjectName(runID string) string {
	name := fmt.Sprintf("companies-%s.jsonl", runID)
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

// BulkInsert uploads the batch as newline-delimited JSON.
func (s *Store) BulkInsert(ctx context.Context, batch crawler.Batch) error {
	if batch.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	writer := s.client.Bucket(s.bucket).Object(s.ObjectName(batch.RunID)).NewWriter(ctx)
	writer.ContentType = contentType
	writer.Metadata = map[string]string{"run_id": batch.RunID}

	enc := json.NewEncoder(writer)
	for _, record := range batch.Records {
		if err := enc.Encode(record); err != nil {
			closeErr := writer.Close()
			if closeErr != nil {
				return fmt.Errorf("encode record: %w (close writer: %v)", err, closeErr)
			}
			return fmt.Errorf("encode record: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close writer: %w", err)
	}
	return nil
}

// Close releases the storage client.
func (s *Store) Close() error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("close storage client: %w", err)
	}
	return nil
}
