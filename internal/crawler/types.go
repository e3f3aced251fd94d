package crawler

import "time"

// Record is one company row scraped from a listing page.
type Record struct {
	Name    string `json:"name"`
	Company string `json:"company"`
	ROC     string `json:"roc"`
	Status  string `json:"status"`
}

// Table is the outcome of extracting a single page body.
type Table struct {
	Records []Record
	// SkippedRows counts rows dropped because name or company was missing.
	SkippedRows int
}

// FetchResult is either a fetched body or a failure reason. Fetchers report
// per-page failures through it rather than through Go errors.
type FetchResult struct {
	URL        string
	StatusCode int
	Body       []byte
	Err        error
}

// Fetched builds a successful FetchResult.
func Fetched(url string, status int, body []byte) FetchResult {
	return FetchResult{URL: url, StatusCode: status, Body: body}
}

// FetchFailed builds a failed FetchResult. A nil reason is replaced with
// ErrUnexpectedStatus so the result never reads as OK.
func FetchFailed(url string, status int, reason error) FetchResult {
	if reason == nil {
		reason = ErrUnexpectedStatus
	}
	return FetchResult{URL: url, StatusCode: status, Err: reason}
}

// OK reports whether the fetch produced a usable body.
func (r FetchResult) OK() bool {
	return r.Err == nil
}

// RunState is the terminal state of a crawl run.
type RunState string

// Terminal run states.
const (
	RunStateDone    RunState = "done"
	RunStateAborted RunState = "aborted"
)

// Batch is the payload handed to a Sink once per run.
type Batch struct {
	RunID     string
	ScrapedAt time.Time
	Records   []Record
}

// RunSummary describes what a crawl run did.
type RunSummary struct {
	RunID          string    `json:"run_id"`
	State          RunState  `json:"state"`
	TotalPages     int       `json:"total_pages"`
	EffectivePages int       `json:"effective_pages"`
	PagesFetched   int       `json:"pages_fetched"`
	PagesFailed    int       `json:"pages_failed"`
	Records        int       `json:"records"`
	SkippedRows    int       `json:"skipped_rows"`
	Stored         bool      `json:"stored"`
	StorageError   string    `json:"storage_error,omitempty"`
	Error          string    `json:"error,omitempty"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
}
