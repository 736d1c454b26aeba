package timeline

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhartman/chirpwidget/internal/cache"
	"github.com/mhartman/chirpwidget/internal/config"
)

type stubFetcher struct {
	posts []Post
	err   error

	calls          int
	gotHandle      string
	gotCount       int
	gotExcludeReps bool
}

func (f *stubFetcher) Fetch(handle string, count int, excludeReplies bool) ([]Post, error) {
	f.calls++
	f.gotHandle = handle
	f.gotCount = count
	f.gotExcludeReps = excludeReplies
	if f.err != nil {
		return nil, f.err
	}
	return f.posts, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Account: config.AccountConfig{Handle: "golang"},
		Cache: config.CacheConfig{
			Path:     filepath.Join(t.TempDir(), "feed.json"),
			Lifespan: 180 * time.Second,
		},
		Feed: config.FeedConfig{
			Count:          5,
			ExcludeReplies: true,
			RelativeTime:   true,
			DateLayout:     "Jan 2{th} 2006",
			Timezone:       "UTC",
			Source:         config.SourceAPI,
		},
		Links: config.LinkConfig{
			ProfileURL: "https://twitter.com/{handle}",
			SearchURL:  "https://twitter.com/search?q=%23{tag}",
		},
	}
}

func newTestService(t *testing.T, cfg *config.Config, fetcher Fetcher) *Service {
	t.Helper()
	svc, err := NewService(cfg, cache.NewStore(cfg.Cache.Path), fetcher)
	require.NoError(t, err)
	return svc
}

func TestService_FetchesWhenCacheAbsent(t *testing.T) {
	cfg := testConfig(t)
	now := time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)

	fetcher := &stubFetcher{posts: []Post{
		{Text: "check http://x.co out @bob #fun", CreatedAt: now.Add(-5 * time.Minute)},
	}}

	svc := newTestService(t, cfg, fetcher)
	svc.now = func() time.Time { return now }

	result := svc.Feed()

	assert.Equal(t, 1, fetcher.calls, "absent cache must always trigger a fetch")
	assert.Equal(t, "golang", fetcher.gotHandle)
	assert.Equal(t, 5, fetcher.gotCount)
	assert.True(t, fetcher.gotExcludeReps)

	assert.Equal(t, "golang", result.Handle)
	assert.Equal(t, "https://twitter.com/golang", result.Link)
	assert.False(t, result.Err.IsSet())
	require.Len(t, result.Posts, 1)
	assert.Equal(t,
		`check <a href="http://x.co">http://x.co</a> out <a href="https://twitter.com/bob">@bob</a> <a href="https://twitter.com/search?q=%23fun">#fun</a>`,
		result.Posts[0].Description)
	assert.Equal(t, "5 minutes ago", result.Posts[0].DisplayTime)

	_, err := os.Stat(cfg.Cache.Path)
	assert.NoError(t, err, "successful result must be persisted")
}

func TestService_ReusesFreshCache(t *testing.T) {
	cfg := testConfig(t)
	fetcher := &stubFetcher{posts: []Post{{Text: "hello", CreatedAt: time.Now()}}}

	svc := newTestService(t, cfg, fetcher)

	first := svc.Feed()
	second := svc.Feed()

	assert.Equal(t, 1, fetcher.calls, "second call must be served from cache")
	assert.Equal(t, first, second, "cache hit must reproduce the persisted result")
}

func TestService_RefetchesWhenCacheStale(t *testing.T) {
	cfg := testConfig(t)
	fetcher := &stubFetcher{posts: []Post{{Text: "hello", CreatedAt: time.Now()}}}

	svc := newTestService(t, cfg, fetcher)

	svc.Feed()

	// Move the clock past the lifespan; the file's mtime stays put.
	svc.now = func() time.Time { return time.Now().Add(cfg.Cache.Lifespan) }
	svc.Feed()

	assert.Equal(t, 2, fetcher.calls)
}

func TestService_ForceRefreshBypassesCache(t *testing.T) {
	cfg := testConfig(t)
	fetcher := &stubFetcher{posts: []Post{{Text: "hello", CreatedAt: time.Now()}}}

	svc := newTestService(t, cfg, fetcher)

	svc.Feed()
	svc.SetForceRefresh(true)
	svc.Feed()

	assert.Equal(t, 2, fetcher.calls)
}

func TestService_EmptyFeed(t *testing.T) {
	cfg := testConfig(t)
	fetcher := &stubFetcher{posts: nil}

	svc := newTestService(t, cfg, fetcher)
	result := svc.Feed()

	assert.Equal(t, FeedError("No tweets to display."), result.Err)
	require.NotNil(t, result.Posts)
	assert.Empty(t, result.Posts)

	_, err := os.Stat(cfg.Cache.Path)
	assert.True(t, os.IsNotExist(err), "error results must not be cached")
}

func TestService_NoConnection(t *testing.T) {
	cfg := testConfig(t)
	fetcher := &stubFetcher{err: ErrNoConnection}

	svc := newTestService(t, cfg, fetcher)
	result := svc.Feed()

	assert.Equal(t, FeedError("No connection to the feed service."), result.Err)
	require.NotNil(t, result.Posts)
	assert.Empty(t, result.Posts)
	assert.Equal(t, "golang", result.Handle)
	assert.Equal(t, "https://twitter.com/golang", result.Link)

	_, err := os.Stat(cfg.Cache.Path)
	assert.True(t, os.IsNotExist(err), "error results must not be cached")
}

func TestService_ErrorResultNotServedFromStaleLogic(t *testing.T) {
	cfg := testConfig(t)
	fetcher := &stubFetcher{err: ErrNoConnection}

	svc := newTestService(t, cfg, fetcher)

	svc.Feed()
	svc.Feed()

	assert.Equal(t, 2, fetcher.calls, "failed fetches leave no cache to reuse")
}

func TestService_TrimsToConfiguredCount(t *testing.T) {
	cfg := testConfig(t)
	cfg.Feed.Count = 2

	fetcher := &stubFetcher{posts: []Post{
		{Text: "one", CreatedAt: time.Now()},
		{Text: "two", CreatedAt: time.Now()},
		{Text: "three", CreatedAt: time.Now()},
	}}

	svc := newTestService(t, cfg, fetcher)
	result := svc.Feed()

	assert.Len(t, result.Posts, 2)
}

func TestService_RelativeTimesFollowServiceClock(t *testing.T) {
	cfg := testConfig(t)
	created := time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)
	fetcher := &stubFetcher{posts: []Post{{Text: "hello", CreatedAt: created}}}

	svc := newTestService(t, cfg, fetcher)
	svc.SetForceRefresh(true)

	svc.now = func() time.Time { return created.Add(30 * time.Second) }
	result := svc.Feed()
	require.Len(t, result.Posts, 1)
	assert.Equal(t, "30 seconds ago", result.Posts[0].DisplayTime)

	svc.now = func() time.Time { return created.Add(2 * time.Hour) }
	result = svc.Feed()
	require.Len(t, result.Posts, 1)
	assert.Equal(t, "2 hrs ago", result.Posts[0].DisplayTime)
}

func TestService_AbsoluteDatesWhenRelativeDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Feed.RelativeTime = false

	created := time.Date(2025, time.March, 3, 8, 0, 0, 0, time.UTC)
	fetcher := &stubFetcher{posts: []Post{{Text: "hello", CreatedAt: created}}}

	svc := newTestService(t, cfg, fetcher)
	result := svc.Feed()

	require.Len(t, result.Posts, 1)
	assert.Equal(t, "Mar 3rd 2025", result.Posts[0].DisplayTime)
}

func TestService_CacheWriteFailureStillReturnsResult(t *testing.T) {
	cfg := testConfig(t)
	// Point the cache at a path whose parent is a file, so MkdirAll fails.
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	cfg.Cache.Path = filepath.Join(blocker, "feed.json")

	fetcher := &stubFetcher{posts: []Post{{Text: "hello", CreatedAt: time.Now()}}}

	svc := newTestService(t, cfg, fetcher)
	result := svc.Feed()

	assert.False(t, result.Err.IsSet())
	assert.Len(t, result.Posts, 1)
}
