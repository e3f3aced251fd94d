package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInitIsIdempotent(t *testing.T) {
	Init()
	first := pagesTotal
	Init()
	if pagesTotal == nil || pagesTotal != first {
		t.Fatal("Init() must build the collectors exactly once")
	}
}

func TestObservers(t *testing.T) {
	Init()

	okBefore := testutil.ToFloat64(pagesTotal.WithLabelValues(PageOK))
	ObservePage(PageOK)
	if got := testutil.ToFloat64(pagesTotal.WithLabelValues(PageOK)) - okBefore; got != 1 {
		t.Errorf("expected one ok page, got %f", got)
	}

	storedBefore := testutil.ToFloat64(recordsTotal.WithLabelValues(StageStored))
	ObserveRecords(StageStored, 4)
	ObserveRecords(StageStored, 0)
	if got := testutil.ToFloat64(recordsTotal.WithLabelValues(StageStored)) - storedBefore; got != 4 {
		t.Errorf("expected 4 stored records, got %f", got)
	}

	runsBefore := testutil.ToFloat64(runsTotal.WithLabelValues("done"))
	ObserveRun("done", 2*time.Second)
	if got := testutil.ToFloat64(runsTotal.WithLabelValues("done")) - runsBefore; got != 1 {
		t.Errorf("expected one done run, got %f", got)
	}

	failuresBefore := testutil.ToFloat64(storageFailuresTotal)
	ObserveStorageFailure()
	if got := testutil.ToFloat64(storageFailuresTotal) - failuresBefore; got != 1 {
		t.Errorf("expected one storage failure, got %f", got)
	}
}
