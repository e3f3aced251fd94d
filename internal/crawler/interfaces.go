package crawler

import (
	"context"
	"time"
)

// Fetcher issues a single GET for a URL. It never retries.
type Fetcher interface {
	Fetch(ctx context.Context, url string) FetchResult
}

// Extractor turns a page body into company records. A page without the
// records table yields an empty Table, not an error.
type Extractor interface {
	Extract(body []byte) (Table, error)
}

// PaginationResolver reads the total page count from the listing page body.
type PaginationResolver interface {
	ResolveTotalPages(body []byte) (int, error)
}

// Sink bulk-inserts one batch of records. Close releases the connection
// acquired by the Opener that produced it.
type Sink interface {
	BulkInsert(ctx context.Context, batch Batch) error
	Close() error
}

// SinkOpener acquires a storage connection for a single run.
type SinkOpener interface {
	Open(ctx context.Context) (Sink, error)
}

// Publisher pushes run notifications to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewID() (string, error)
}
