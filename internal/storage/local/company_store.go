// Package local writes company batches as JSON-lines files on the local filesystem.
package local

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/JakeFAU/company-list-crawler/internal/crawler"
)

// Config captures the parameters for the local filesystem store.
type Config struct {
	// Dir is the directory that receives one file per run.
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// Opener prepares the output directory for a run.
type Opener struct {
	dir string
}

// NewOpener validates cfg and returns an Opener.
func NewOpener(cfg Config) (*Opener, error) {
	if strings.TrimSpace(cfg.Dir) == "" {
		return nil, fmt.Errorf("storage.local.dir is required")
	}
	return &Opener{dir: cfg.Dir}, nil
}

// Open makes sure the directory exists and is writable.
func (o *Opener) Open(_ context.Context) (crawler.Sink, error) {
	info, err := os.Stat(o.dir)
	switch {
	case os.IsNotExist(err):
		if mkErr := os.MkdirAll(o.dir, 0o750); mkErr != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", mkErr)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to stat output directory: %w", err)
	case !info.IsDir():
		return nil, fmt.Errorf("output path %s is not a directory", o.dir)
	}

	testFile := filepath.Join(o.dir, ".writable_test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		return nil, fmt.Errorf("output directory is not writable: %w", err)
	}
	if err := os.Remove(testFile); err != nil {
		return nil, fmt.Errorf("failed to clean up test file: %w", err)
	}
	return &Store{dir: o.dir}, nil
}

// Store writes each batch to <dir>/companies-<run_id>.jsonl.
type Store struct {
	dir  string
	file *os.File
}

// Path returns the file a batch with runID is written to.
func (s *Store) Path(runID string) string {
	return filepath.Join(s.dir, fmt.Sprintf("companies-%s.jsonl", runID))
}

// BulkInsert writes one JSON document per record. The file is synced and
// closed before BulkInsert returns, so a nil error means the batch is on disk.
func (s *Store) BulkInsert(_ context.Context, batch crawler.Batch) error {
	if strings.ContainsAny(batch.RunID, `/\`) || batch.RunID == "" {
		return fmt.Errorf("invalid run id %q", batch.RunID)
	}
	f, err := os.OpenFile(s.Path(batch.RunID), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open output file: %w", err)
	}
	s.file = f

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, record := range batch.Records {
		if err := enc.Encode(record); err != nil {
			return fmt.Errorf("failed to encode record: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to sync output file: %w", err)
	}
	s.file = nil
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close output file: %w", err)
	}
	return nil
}

// Close closes a file left open by a failed BulkInsert, if any.
func (s *Store) Close() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	if err != nil {
		return fmt.Errorf("failed to close output file: %w", err)
	}
	return nil
}
