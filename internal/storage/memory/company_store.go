// Package memory keeps company batches in-memory for dry runs and tests.
package memory

import (
	"context"
	"sync"

	"github.com/JakeFAU/company-list-crawler/internal/crawler"
)

// Store records every batch it receives. It is its own opener.
type Store struct {
	mu      sync.RWMutex
	batches []crawler.Batch
	opens   int
	closes  int
	err     error
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{}
}

// FailWith makes subsequent BulkInsert calls return err.
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Open counts the acquisition and returns the store itself.
func (s *Store) Open(_ context.Context) (crawler.Sink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opens++
	return s, nil
}

// BulkInsert stores a copy of the batch.
func (s *Store) BulkInsert(_ context.Context, batch crawler.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	batch.Records = append([]crawler.Record(nil), batch.Records...)
	s.batches = append(s.batches, batch)
	return nil
}

// Close counts the release.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return nil
}

// Batches returns the stored batches.
func (s *Store) Batches() []crawler.Batch {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]crawler.Batch, len(s.batches))
	copy(out, s.batches)
	return out
}

// Records returns every stored record across batches, in insertion order.
func (s *Store) Records() []crawler.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []crawler.Record
	for _, b := range s.batches {
		out = append(out, b.Records...)
	}
	return out
}

// Connections reports how many times the store was opened and closed.
func (s *Store) Connections() (opens, closes int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.opens, s.closes
}
