package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/company-list-crawler/internal/crawler"
)

func TestStoreCopiesBatch(t *testing.T) {
	t.Parallel()

	store := NewStore()
	sink, err := store.Open(context.Background())
	require.NoError(t, err)

	records := []crawler.Record{{Name: "CIN-1", Company: "ACME LTD"}}
	require.NoError(t, sink.BulkInsert(context.Background(), crawler.Batch{RunID: "r1", Records: records}))
	require.NoError(t, sink.Close())

	records[0].Company = "MUTATED"
	require.Equal(t, "ACME LTD", store.Records()[0].Company)
	require.Len(t, store.Batches(), 1)

	opens, closes := store.Connections()
	require.Equal(t, 1, opens)
	require.Equal(t, 1, closes)
}

func TestStoreFailWith(t *testing.T) {
	t.Parallel()

	store := NewStore()
	store.FailWith(errors.New("store down"))
	err := store.BulkInsert(context.Background(), crawler.Batch{RunID: "r1"})
	require.EqualError(t, err, "store down")
	require.Empty(t, store.Batches())
}
