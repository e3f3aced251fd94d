package memory

import (
	"context"
	"testing"
)

func TestPublisherRecordsMessages(t *testing.T) {
	t.Parallel()

	pub := New()
	id, err := pub.Publish(context.Background(), "company-crawl-runs", map[string]int{"records": 4})
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if id != "memory-1" {
		t.Fatalf("unexpected id %q", id)
	}
	msgs := pub.Messages()
	if len(msgs) != 1 || msgs[0].Topic != "company-crawl-runs" {
		t.Fatalf("unexpected messages %+v", msgs)
	}
}
