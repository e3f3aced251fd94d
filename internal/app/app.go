// Package app builds the crawler's long-lived services from configuration and
// owns their shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/company-list-crawler/internal/api"
	"github.com/JakeFAU/company-list-crawler/internal/clock/system"
	"github.com/JakeFAU/company-list-crawler/internal/config"
	"github.com/JakeFAU/company-list-crawler/internal/crawler"
	"github.com/JakeFAU/company-list-crawler/internal/extract"
	collyfetcher "github.com/JakeFAU/company-list-crawler/internal/fetcher/colly"
	headlessfetcher "github.com/JakeFAU/company-list-crawler/internal/fetcher/headless"
	"github.com/JakeFAU/company-list-crawler/internal/id/uuid"
	"github.com/JakeFAU/company-list-crawler/internal/logging"
	"github.com/JakeFAU/company-list-crawler/internal/orchestrator"
	gcppublisher "github.com/JakeFAU/company-list-crawler/internal/publisher/pubsub"
	gcsstorage "github.com/JakeFAU/company-list-crawler/internal/storage/gcs"
	localstorage "github.com/JakeFAU/company-list-crawler/internal/storage/local"
	memorystorage "github.com/JakeFAU/company-list-crawler/internal/storage/memory"
	pgstore "github.com/JakeFAU/company-list-crawler/internal/storage/postgres"
	"github.com/JakeFAU/company-list-crawler/internal/telemetry"
)

// App holds the wired crawl pipeline and the clients it must release.
type App struct {
	cfg          config.Config
	logger       *zap.Logger
	orchestrator *orchestrator.Orchestrator
	closers      []namedCloser
}

type namedCloser struct {
	name  string
	close func() error
}

// New wires the pipeline described by cfg. Clients created along the way are
// released if a later step fails.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{cfg: cfg, logger: logger}
	if err := a.build(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context) error {
	if err := a.setupTracing(ctx); err != nil {
		return err
	}
	fetcher, err := a.setupFetcher()
	if err != nil {
		return err
	}
	sinks, err := a.setupSinks()
	if err != nil {
		return err
	}
	publisher, err := a.setupPublisher(ctx)
	if err != nil {
		return err
	}

	a.orchestrator = orchestrator.New(
		fetcher,
		extract.NewTableExtractor(a.cfg.Extract.TableSelector),
		extract.NewPaginationResolver(a.cfg.Extract.PaginationXPath),
		sinks,
		publisher,
		system.New(),
		uuid.New(),
		orchestrator.Config{
			ListingURL:      a.cfg.ListingURL(),
			PageURLTemplate: a.cfg.PageURLTemplate(),
			IncludeLastPage: a.cfg.Crawler.IncludeLastPage,
			NotifyTopic:     a.cfg.Notify.Topic,
		},
		a.logger.Named("orchestrator"),
	)
	return nil
}

func (a *App) setupTracing(ctx context.Context) error {
	if !a.cfg.Telemetry.TracingEnabled {
		a.logger.Debug("tracing disabled")
		return nil
	}
	tp, err := telemetry.InitTracerProvider(ctx, telemetry.Config{
		ServiceName: logging.ServiceName,
		SampleRatio: a.cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		return fmt.Errorf("tracer init failed: %w", err)
	}
	a.track("tracer provider", func() error {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return tp.Shutdown(shutdownCtx)
	})
	return nil
}

func (a *App) setupFetcher() (crawler.Fetcher, error) {
	switch a.cfg.Fetcher.Mode {
	case config.FetcherHeadless:
		f, err := headlessfetcher.NewChromedp(headlessfetcher.Config{
			UserAgent:         a.cfg.Crawler.UserAgent,
			NavigationTimeout: a.cfg.NavTimeout(),
		})
		if err != nil {
			return nil, fmt.Errorf("headless fetcher init failed: %w", err)
		}
		a.track("headless fetcher", func() error {
			f.Close()
			return nil
		})
		a.logger.Info("using headless fetcher", zap.Duration("nav_timeout", a.cfg.NavTimeout()))
		return f, nil
	default:
		a.logger.Info("using colly fetcher",
			zap.String("user_agent", a.cfg.Crawler.UserAgent),
			zap.Bool("respect_robots", a.cfg.Crawler.RespectRobots),
		)
		return collyfetcher.New(collyfetcher.Config{
			UserAgent:     a.cfg.Crawler.UserAgent,
			RespectRobots: a.cfg.Crawler.RespectRobots,
			Timeout:       a.cfg.HTTPTimeout(),
		}), nil
	}
}

func (a *App) setupSinks() (crawler.SinkOpener, error) {
	storageCfg := a.cfg.Storage
	switch storageCfg.Backend {
	case config.BackendPostgres:
		opener, err := pgstore.NewOpener(pgstore.Config{
			DSN:         storageCfg.Postgres.DSN,
			Table:       storageCfg.Postgres.Table,
			MaxConns:    storageCfg.Postgres.MaxConns,
			CreateTable: storageCfg.Postgres.CreateTable,
		})
		if err != nil {
			return nil, fmt.Errorf("postgres store init failed: %w", err)
		}
		a.logger.Info("using postgres storage backend", zap.String("table", storageCfg.Postgres.Table))
		return opener, nil
	case config.BackendLocal:
		opener, err := localstorage.NewOpener(localstorage.Config{Dir: storageCfg.Local.Dir})
		if err != nil {
			return nil, fmt.Errorf("local store init failed: %w", err)
		}
		a.logger.Info("using local storage backend", zap.String("dir", storageCfg.Local.Dir))
		return opener, nil
	case config.BackendGCS:
		opener, err := gcsstorage.NewOpener(gcsstorage.Config{
			Bucket: storageCfg.GCS.Bucket,
			Prefix: storageCfg.GCS.Prefix,
		})
		if err != nil {
			return nil, fmt.Errorf("gcs store init failed: %w", err)
		}
		a.logger.Info("using GCS storage backend", zap.String("bucket", storageCfg.GCS.Bucket))
		return opener, nil
	case config.BackendMemory:
		a.logger.Warn("using in-memory storage backend; records are discarded on exit")
		return memorystorage.NewStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", storageCfg.Backend)
	}
}

func (a *App) setupPublisher(ctx context.Context) (crawler.Publisher, error) {
	if !a.cfg.Notify.Enabled {
		a.logger.Debug("run notifications disabled")
		return nil, nil
	}
	p, err := gcppublisher.New(ctx, a.cfg.Notify.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub publisher init failed: %w", err)
	}
	a.track("pubsub publisher", p.Close)
	a.logger.Info("Pub/Sub publisher initialized",
		zap.String("project", a.cfg.Notify.ProjectID),
		zap.String("topic", a.cfg.Notify.Topic),
	)
	return p, nil
}

func (a *App) track(name string, fn func() error) {
	a.closers = append(a.closers, namedCloser{name: name, close: fn})
}

// Logger returns the shared logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Config returns the configuration the App was built from.
func (a *App) Config() config.Config {
	return a.cfg
}

// Crawl runs one crawl with the given page limit; zero uses the configured limit.
func (a *App) Crawl(ctx context.Context, pageLimit int) (crawler.RunSummary, error) {
	if pageLimit <= 0 {
		pageLimit = a.cfg.Crawler.PageLimit
	}
	summary, err := a.orchestrator.Run(ctx, pageLimit)
	if err != nil {
		return summary, fmt.Errorf("crawl run %s aborted: %w", summary.RunID, err)
	}
	return summary, nil
}

// Run implements api.Runner.
func (a *App) Run(ctx context.Context, pageLimit int) (crawler.RunSummary, error) {
	return a.Crawl(ctx, pageLimit)
}

// Serve exposes the HTTP API until ctx is canceled.
func (a *App) Serve(ctx context.Context) error {
	apiServer := api.NewServer(a, a.cfg, a.logger.Named("api"))
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	a.logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

// Close releases clients in reverse creation order and flushes the logger.
func (a *App) Close() {
	if a == nil {
		return
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.close(); err != nil {
			a.logger.Warn("close failed", zap.String("component", c.name), zap.Error(err))
		}
	}
	a.closers = nil
	if err := a.logger.Sync(); err != nil {
		a.logger.Warn("logger sync failed", zap.Error(err))
	}
}
