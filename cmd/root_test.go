package cmd

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/company-list-crawler/internal/crawler"
)

type mockApp struct {
	mock.Mock
}

func (m *mockApp) Crawl(ctx context.Context, pageLimit int) (crawler.RunSummary, error) {
	args := m.Called(ctx, pageLimit)
	return args.Get(0).(crawler.RunSummary), args.Error(1)
}

func (m *mockApp) Serve(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockApp) Logger() *zap.Logger {
	return zap.NewNop()
}

func (m *mockApp) Close() {
	m.Called()
}

func withApp(t *testing.T, a App, factoryErr error) *string {
	t.Helper()
	var gotPath string
	orig := newApp
	newApp = func(_ context.Context, cfgPath string) (App, error) {
		gotPath = cfgPath
		if factoryErr != nil {
			return nil, factoryErr
		}
		return a, nil
	}
	t.Cleanup(func() { newApp = orig })
	return &gotPath
}

func TestCrawlCommandPassesLimit(t *testing.T) {
	a := &mockApp{}
	a.On("Crawl", mock.Anything, 7).Return(crawler.RunSummary{RunID: "r1", Records: 12}, nil)
	a.On("Close").Return()
	cfgPath := withApp(t, a, nil)

	root := newRootCmd()
	root.SetArgs([]string{"crawl", "--limit", "7", "--config", "crawler.yaml"})
	require.NoError(t, root.ExecuteContext(context.Background()))

	require.Equal(t, "crawler.yaml", *cfgPath)
	a.AssertExpectations(t)
}

func TestCrawlCommandFailsOnAbort(t *testing.T) {
	a := &mockApp{}
	a.On("Crawl", mock.Anything, 0).Return(crawler.RunSummary{State: crawler.RunStateAborted}, crawler.ErrPaginationNotFound)
	a.On("Close").Return().Once()
	withApp(t, a, nil)

	root := newRootCmd()
	root.SetArgs([]string{"crawl"})
	err := root.ExecuteContext(context.Background())
	require.ErrorIs(t, err, crawler.ErrPaginationNotFound)
	a.AssertExpectations(t)
}

func TestServeCommandClosesAppOnError(t *testing.T) {
	a := &mockApp{}
	a.On("Serve", mock.Anything).Return(errors.New("address in use"))
	a.On("Close").Return().Once()
	withApp(t, a, nil)

	root := newRootCmd()
	root.SetArgs([]string{"serve"})
	require.Error(t, root.ExecuteContext(context.Background()))
	a.AssertExpectations(t)
}

func TestServeCommand(t *testing.T) {
	a := &mockApp{}
	a.On("Serve", mock.Anything).Return(nil)
	a.On("Close").Return()
	withApp(t, a, nil)

	root := newRootCmd()
	root.SetArgs([]string{"serve"})
	require.NoError(t, root.ExecuteContext(context.Background()))
	a.AssertExpectations(t)
}

func TestRootFailsWhenAppCannotStart(t *testing.T) {
	withApp(t, nil, errors.New("bad config"))

	root := newRootCmd()
	root.SetArgs([]string{"crawl"})
	err := root.ExecuteContext(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "bad config")
}

func TestResolveAppMissing(t *testing.T) {
	_, err := resolveApp(context.Background())
	require.Error(t, err)
}
