package timeline

import (
	"errors"
	"time"

	"github.com/mhartman/chirpwidget/internal/cache"
	"github.com/mhartman/chirpwidget/internal/config"
	"github.com/mhartman/chirpwidget/internal/debuglog"
	"github.com/mhartman/chirpwidget/internal/format"
)

// Service runs the fetch pipeline: consult the cache, fetch on a miss,
// format each post, persist, return. Failures from the upstream are
// reported on the FeedResult, never as a Go error to the caller.
type Service struct {
	cfg     *config.Config
	store   *cache.Store
	fetcher Fetcher
	linker  *format.Linker
	times   *format.Formatter
	force   bool
	now     func() time.Time
}

func NewService(cfg *config.Config, store *cache.Store, fetcher Fetcher) (*Service, error) {
	loc, err := cfg.Feed.Location()
	if err != nil {
		return nil, err
	}

	s := &Service{
		cfg:     cfg,
		store:   store,
		fetcher: fetcher,
		linker:  format.NewLinker(cfg.Links.ProfileURL, cfg.Links.SearchURL),
		times:   format.NewFormatter(cfg.Feed.DateLayout, loc, cfg.Feed.RelativeTime),
		now:     time.Now,
	}
	// The formatter shares the service clock so relative phrases follow it.
	s.times.Now = func() time.Time { return s.now() }
	return s, nil
}

// SetForceRefresh makes the next Feed call bypass the cache gate.
func (s *Service) SetForceRefresh(force bool) {
	s.force = force
}

func (s *Service) Feed() *FeedResult {
	if !s.force {
		if mod, ok := s.store.ModTime(); ok && cache.IsFresh(mod, s.now(), s.cfg.Cache.Lifespan) {
			var cached FeedResult
			err := s.store.Load(&cached)
			if err == nil {
				debuglog.Debugf("cache hit for @%s (age %v)", s.cfg.Account.Handle, s.now().Sub(mod))
				return &cached
			}
			// Unreadable cache falls through to a refetch.
			debuglog.Warnf("reading cache: %v", err)
		}
	}

	return s.refresh()
}

func (s *Service) refresh() *FeedResult {
	handle := s.cfg.Account.Handle

	result := &FeedResult{
		Handle: handle,
		Link:   s.linker.Profile(handle),
		Posts:  []DisplayPost{},
	}

	posts, err := s.fetcher.Fetch(handle, s.cfg.Feed.Count, s.cfg.Feed.ExcludeReplies)
	if err != nil {
		debuglog.Errorf("fetching @%s: %v", handle, err)
		if errors.Is(err, ErrNoConnection) {
			result.Err = msgNoConnection
		} else {
			result.Err = FeedError(err.Error())
		}
		return result
	}

	if len(posts) == 0 {
		debuglog.Infof("@%s returned no posts", handle)
		result.Err = msgNoItems
		return result
	}

	if len(posts) > s.cfg.Feed.Count {
		posts = posts[:s.cfg.Feed.Count]
	}

	for _, post := range posts {
		result.Posts = append(result.Posts, DisplayPost{
			Description: s.linker.Render(post.Text),
			DisplayTime: s.times.Format(post.CreatedAt),
		})
	}

	if err := s.store.Save(result); err != nil {
		// A broken cache path degrades to fetch-every-time.
		debuglog.Warnf("writing cache: %v", err)
	}

	return result
}
