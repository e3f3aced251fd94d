// Package orchestrator drives a crawl run: it resolves the page count from
// the listing page, scrapes a bounded range of pages one after another, and
// hands everything collected to storage in a single bulk insert.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/JakeFAU/company-list-crawler/internal/crawler"
	"github.com/JakeFAU/company-list-crawler/internal/metrics"
)

const tracerName = "github.com/JakeFAU/company-list-crawler/internal/orchestrator"

// DefaultPageLimit is used when a run is started without a positive limit.
const DefaultPageLimit = 10

// Log messages emitted by a run.
const (
	MsgRunStarted       = "crawl run started"
	MsgRunFinished      = "crawl run finished"
	MsgPaginationFailed = "pagination resolution failed"
	MsgPageFetchFailed  = "page fetch failed"
	MsgPageScraped      = "page scraped"
	MsgNothingToStore   = "no records collected; skipping storage"
	MsgStorageSucceeded = "records stored"
	MsgStorageFailed    = "storing records failed"
	MsgNotifyFailed     = "run notification failed"
)

// Config controls URLs and range semantics of a run.
type Config struct {
	ListingURL string
	// PageURLTemplate holds a single %d for the page number.
	PageURLTemplate string
	// IncludeLastPage scrapes [1, effective] instead of [1, effective).
	IncludeLastPage bool
	// NotifyTopic receives the RunSummary when a Publisher is configured.
	NotifyTopic string
}

// Orchestrator runs crawls. It is not safe for concurrent Run calls sharing
// one Sink; callers serialize runs.
type Orchestrator struct {
	fetcher   crawler.Fetcher
	extractor crawler.Extractor
	resolver  crawler.PaginationResolver
	sinks     crawler.SinkOpener
	publisher crawler.Publisher
	clock     crawler.Clock
	idGen     crawler.IDGenerator
	cfg       Config
	logger    *zap.Logger
	tracer    trace.Tracer
}

// New constructs an Orchestrator. publisher may be nil.
func New(
	fetcher crawler.Fetcher,
	extractor crawler.Extractor,
	resolver crawler.PaginationResolver,
	sinks crawler.SinkOpener,
	publisher crawler.Publisher,
	clock crawler.Clock,
	idGen crawler.IDGenerator,
	cfg Config,
	logger *zap.Logger,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	return &Orchestrator{
		fetcher:   fetcher,
		extractor: extractor,
		resolver:  resolver,
		sinks:     sinks,
		publisher: publisher,
		clock:     clock,
		idGen:     idGen,
		cfg:       cfg,
		logger:    logger,
		tracer:    otel.Tracer(tracerName),
	}
}

// WithTracerProvider replaces the global tracer provider for this Orchestrator.
func (o *Orchestrator) WithTracerProvider(tp trace.TracerProvider) *Orchestrator {
	o.tracer = tp.Tracer(tracerName)
	return o
}

// run holds the mutable state of one crawl.
type run struct {
	summary crawler.RunSummary
	records []crawler.Record
	logger  *zap.Logger
	span    trace.Span
}

// Run executes one crawl with the given page limit. The returned error is
// non-nil only when the run aborted; storage failures are reported in the
// summary and the log.
func (o *Orchestrator) Run(ctx context.Context, pageLimit int) (crawler.RunSummary, error) {
	if pageLimit <= 0 {
		pageLimit = DefaultPageLimit
	}
	runID, err := o.idGen.NewID()
	if err != nil {
		return crawler.RunSummary{State: crawler.RunStateAborted, Error: err.Error()}, fmt.Errorf("start run: %w", err)
	}
	ctx, span := o.tracer.Start(ctx, "crawl.run", trace.WithAttributes(
		attribute.String("crawl.run_id", runID),
		attribute.Int("crawl.page_limit", pageLimit),
	))
	defer span.End()
	r := &run{
		summary: crawler.RunSummary{RunID: runID, StartedAt: o.clock.Now()},
		logger:  o.logger.With(zap.String("run_id", runID)),
		span:    span,
	}
	r.logger.Info(MsgRunStarted, zap.Int("page_limit", pageLimit), zap.String("listing_url", o.cfg.ListingURL))

	total, err := o.resolveTotalPages(ctx, r)
	if err != nil {
		return o.finish(ctx, r, err)
	}
	r.summary.TotalPages = total
	r.summary.EffectivePages = min(pageLimit, total)

	last := o.lastPage(r.summary.EffectivePages)
	for page := 1; page <= last; page++ {
		if err := ctx.Err(); err != nil {
			return o.finish(ctx, r, fmt.Errorf("crawl interrupted before page %d: %w", page, err))
		}
		o.handlePage(ctx, r, page)
	}

	o.store(ctx, r)
	return o.finish(ctx, r, nil)
}

// lastPage is the highest page number a run visits. By default the last
// effective page is not visited.
func (o *Orchestrator) lastPage(effective int) int {
	if o.cfg.IncludeLastPage {
		return max(effective, 0)
	}
	return max(effective-1, 0)
}

func (o *Orchestrator) resolveTotalPages(ctx context.Context, r *run) (int, error) {
	url := o.cfg.ListingURL
	result := o.fetcher.Fetch(ctx, url)
	if !result.OK() {
		err := &crawler.TransportError{URL: url, StatusCode: result.StatusCode, Err: result.Err}
		r.logger.Error(MsgPaginationFailed, zap.String("url", url), zap.Error(err))
		return 0, err
	}
	total, err := o.resolver.ResolveTotalPages(result.Body)
	if err != nil {
		r.logger.Error(MsgPaginationFailed, zap.String("url", url), zap.Error(err))
		return 0, fmt.Errorf("resolve total pages: %w", err)
	}
	return total, nil
}

// pageOutcome is what the per-page handler decided for one page.
type pageOutcome struct {
	table  crawler.Table
	status int
	err    error
}

// handlePage fetches and extracts one page. Failures are logged and the page
// is skipped; they never stop the run.
func (o *Orchestrator) handlePage(ctx context.Context, r *run, page int) {
	url := o.pageURL(page)
	ctx, span := o.tracer.Start(ctx, "crawl.page", trace.WithAttributes(
		attribute.Int("crawl.page", page),
		attribute.String("url.full", url),
	))
	defer span.End()

	outcome := o.scrapePage(ctx, url)
	if outcome.err != nil {
		span.RecordError(outcome.err)
		span.SetStatus(codes.Error, "page failed")
		r.summary.PagesFailed++
		metrics.ObservePage(metrics.PageFailed)
		r.logger.Error(MsgPageFetchFailed,
			zap.Int("page", page),
			zap.String("url", url),
			zap.Int("status", outcome.status),
			zap.Error(outcome.err),
		)
		return
	}

	span.SetAttributes(
		attribute.Int("crawl.records", len(outcome.table.Records)),
		attribute.Int("crawl.skipped_rows", outcome.table.SkippedRows),
	)
	r.summary.PagesFetched++
	r.summary.SkippedRows += outcome.table.SkippedRows
	r.records = append(r.records, outcome.table.Records...)
	metrics.ObservePage(metrics.PageOK)
	metrics.ObserveRecords(metrics.StageExtracted, len(outcome.table.Records))
	metrics.ObserveRecords(metrics.StageSkipped, outcome.table.SkippedRows)
	r.logger.Info(MsgPageScraped,
		zap.Int("page", page),
		zap.Int("total_pages", r.summary.TotalPages),
		zap.Int("records", len(outcome.table.Records)),
		zap.Int("skipped_rows", outcome.table.SkippedRows),
	)
}

func (o *Orchestrator) scrapePage(ctx context.Context, url string) (outcome pageOutcome) {
	defer func() {
		if rec := recover(); rec != nil {
			outcome = pageOutcome{err: fmt.Errorf("scrape panicked: %v", rec)}
		}
	}()

	result := o.fetcher.Fetch(ctx, url)
	if !result.OK() {
		if result.StatusCode > 0 {
			return pageOutcome{status: result.StatusCode, err: fmt.Errorf("status %d: %w", result.StatusCode, result.Err)}
		}
		return pageOutcome{err: result.Err}
	}
	table, err := o.extractor.Extract(result.Body)
	if err != nil {
		return pageOutcome{status: result.StatusCode, err: fmt.Errorf("extract: %w", err)}
	}
	return pageOutcome{table: table, status: result.StatusCode}
}

func (o *Orchestrator) pageURL(page int) string {
	return fmt.Sprintf(o.cfg.PageURLTemplate, page)
}

// store writes the accumulated records once. The sink is released on every
// path out of this function.
func (o *Orchestrator) store(ctx context.Context, r *run) {
	r.summary.Records = len(r.records)
	if len(r.records) == 0 {
		r.logger.Info(MsgNothingToStore)
		return
	}

	ctx, span := o.tracer.Start(ctx, "crawl.store", trace.WithAttributes(
		attribute.Int("crawl.records", len(r.records)),
	))
	defer span.End()

	err := o.bulkInsert(ctx, r)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "storage failed")
		r.summary.StorageError = err.Error()
		metrics.ObserveStorageFailure()
		r.logger.Error(MsgStorageFailed, zap.Int("records", len(r.records)), zap.Error(err))
		return
	}
	r.summary.Stored = true
	metrics.ObserveRecords(metrics.StageStored, len(r.records))
	r.logger.Info(MsgStorageSucceeded, zap.Int("records", len(r.records)))
}

func (o *Orchestrator) bulkInsert(ctx context.Context, r *run) (err error) {
	sink, err := o.sinks.Open(ctx)
	if err != nil {
		return fmt.Errorf("open sink: %w", err)
	}
	defer func() {
		if cerr := sink.Close(); cerr != nil {
			r.logger.Warn("failed to release sink", zap.Error(cerr))
		}
	}()

	batch := crawler.Batch{
		RunID:     r.summary.RunID,
		ScrapedAt: o.clock.Now(),
		Records:   r.records,
	}
	if err := sink.BulkInsert(ctx, batch); err != nil {
		return fmt.Errorf("bulk insert: %w", err)
	}
	return nil
}

func (o *Orchestrator) finish(ctx context.Context, r *run, runErr error) (crawler.RunSummary, error) {
	r.summary.FinishedAt = o.clock.Now()
	r.summary.State = crawler.RunStateDone
	if runErr != nil {
		r.summary.State = crawler.RunStateAborted
		r.summary.Error = runErr.Error()
		r.span.RecordError(runErr)
		r.span.SetStatus(codes.Error, "run aborted")
	}
	r.span.SetAttributes(
		attribute.String("crawl.state", string(r.summary.State)),
		attribute.Int("crawl.total_pages", r.summary.TotalPages),
		attribute.Int("crawl.records", r.summary.Records),
	)
	metrics.ObserveRun(string(r.summary.State), r.summary.FinishedAt.Sub(r.summary.StartedAt))

	r.logger.Info(MsgRunFinished,
		zap.String("state", string(r.summary.State)),
		zap.Int("pages_fetched", r.summary.PagesFetched),
		zap.Int("pages_failed", r.summary.PagesFailed),
		zap.Int("records", r.summary.Records),
		zap.Bool("stored", r.summary.Stored),
		zap.Duration("duration", r.summary.FinishedAt.Sub(r.summary.StartedAt)),
	)
	o.notify(ctx, r)
	return r.summary, runErr
}

func (o *Orchestrator) notify(ctx context.Context, r *run) {
	if o.publisher == nil || strings.TrimSpace(o.cfg.NotifyTopic) == "" {
		return
	}
	// A cancelled run still reports how it ended.
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
	}
	if _, err := o.publisher.Publish(ctx, o.cfg.NotifyTopic, r.summary); err != nil {
		r.logger.Warn(MsgNotifyFailed, zap.String("topic", o.cfg.NotifyTopic), zap.Error(err))
	}
}
