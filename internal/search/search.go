// Package search serves paginated place searches through the page cache,
// relaying upstream continuation tokens between pages.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mohammed-shakir/favplaces/internal/cache"
	"github.com/mohammed-shakir/favplaces/internal/cache/keys"
	"github.com/mohammed-shakir/favplaces/internal/core/model"
	"github.com/mohammed-shakir/favplaces/internal/core/observability"
	"github.com/mohammed-shakir/favplaces/internal/events"
	"github.com/mohammed-shakir/favplaces/internal/logger"
	"github.com/mohammed-shakir/favplaces/internal/places"
)

type Upstream interface {
	FetchPage(ctx context.Context, p places.Params) (places.Page, error)
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

type Service struct {
	pages     *cache.Pages
	upstream  Upstream
	logger    *slog.Logger
	events    events.Sink
	sleep     Sleeper
	pageDelay time.Duration
}

type Option func(*Service)

func WithEvents(s events.Sink) Option {
	return func(svc *Service) {
		if s != nil {
			svc.events = s
		}
	}
}

func WithSleeper(fn Sleeper) Option {
	return func(svc *Service) {
		if fn != nil {
			svc.sleep = fn
		}
	}
}

// WithPageDelay sets the wait between prefetched pages; the provider rejects
// tokens used too soon after issue.
func WithPageDelay(d time.Duration) Option {
	return func(svc *Service) { svc.pageDelay = d }
}

func New(pages *cache.Pages, upstream Upstream, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		pages:     pages,
		upstream:  upstream,
		logger:    logger,
		events:    events.Nop{},
		sleep:     sleepCtx,
		pageDelay: 2 * time.Second,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Search resolves one page: cached page first, then a stored continuation
// token, then a fresh upstream query.
func (s *Service) Search(ctx context.Context, q model.Query) (model.SearchResult, error) {
	fp := keys.Fingerprint(q)
	n := q.PageNumber()
	ctx = logger.WithComponent(ctx, "search")

	cached, hit, err := s.pages.GetPage(ctx, fp, n)
	if err != nil {
		s.logger.WarnContext(ctx, "page cache read failed; treating as miss", "fingerprint", fp, "page", n, "err", err)
		hit = false
	}
	if hit {
		observability.AddCacheHits(1)
		return s.respond(ctx, fp, n, model.StateCacheHit, cached.Places, cached.NextPageToken != ""), nil
	}
	observability.AddCacheMisses(1)

	state := model.StateFreshFetch
	params := places.Params{Origin: q.Origin, Text: q.Text, Sort: q.Sort}
	token, found, err := s.pages.GetToken(ctx, fp, n)
	if err != nil {
		s.logger.WarnContext(ctx, "token cache read failed; treating as miss", "fingerprint", fp, "page", n, "err", err)
		found = false
	}
	if found {
		state = model.StateTokenRelay
		params = places.Params{PageToken: token}
	}
	ctx = logger.WithSearchState(ctx, string(state))

	page, err := s.upstream.FetchPage(ctx, params)
	if err != nil {
		s.logger.ErrorContext(ctx, "upstream search failed", "fingerprint", fp, "page", n, "err", err)
		return model.SearchResult{}, fmt.Errorf("search page %d: %w", n, err)
	}
	results := places.Normalize(q.Origin, page.Results)

	// successor token is written before the page
	if page.NextPageToken != "" {
		if err := s.pages.SetToken(ctx, fp, n+1, page.NextPageToken); err != nil {
			s.logger.WarnContext(ctx, "token cache write failed", "fingerprint", fp, "page", n+1, "err", err)
		}
	}
	if err := s.pages.SetPage(ctx, fp, n, model.CachedPage{Places: results, NextPageToken: page.NextPageToken}); err != nil {
		s.logger.WarnContext(ctx, "page cache write failed", "fingerprint", fp, "page", n, "err", err)
	}

	return s.respond(ctx, fp, n, state, results, page.NextPageToken != ""), nil
}

func (s *Service) respond(ctx context.Context, fp string, n int, state model.SearchState, results []model.Place, hasNext bool) model.SearchResult {
	if results == nil {
		results = []model.Place{}
	}
	observability.IncSearch(string(state))
	s.logger.DebugContext(logger.WithSearchState(ctx, string(state)), "search served",
		"fingerprint", fp, "page", n, "results", len(results), "has_next", hasNext)
	s.events.Publish(ctx, events.Event{
		Type:        events.TypeSearch,
		Fingerprint: fp,
		Page:        n,
		State:       string(state),
		Results:     len(results),
	})
	return model.SearchResult{
		Results:     results,
		HasNext:     hasNext,
		HasPrevious: n > 1,
		State:       state,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
