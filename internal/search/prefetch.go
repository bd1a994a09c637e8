package search

import (
	"context"
	"fmt"

	"github.com/mohammed-shakir/favplaces/internal/core/model"
)

// PrefetchResult summarizes a Prefetch run.
type PrefetchResult struct {
	Pages   int
	Places  int
	HasMore bool
}

// Prefetch walks pages 1..maxPages of q through Search so that every page and
// token lands in the cache. It waits the page delay before relaying a freshly
// issued token and stops at the last page, on error, or when ctx is done.
func (s *Service) Prefetch(ctx context.Context, q model.Query, maxPages int) (PrefetchResult, error) {
	var out PrefetchResult
	if maxPages <= 0 {
		return out, nil
	}
	for n := 1; n <= maxPages; n++ {
		if err := ctx.Err(); err != nil {
			return out, fmt.Errorf("prefetch page %d: %w", n, err)
		}
		q.Page = n
		res, err := s.Search(ctx, q)
		if err != nil {
			return out, fmt.Errorf("prefetch: %w", err)
		}
		out.Pages++
		out.Places += len(res.Results)
		out.HasMore = res.HasNext
		if !res.HasNext || n == maxPages {
			break
		}
		if res.State != model.StateCacheHit {
			if err := s.sleep(ctx, s.pageDelay); err != nil {
				return out, fmt.Errorf("prefetch wait: %w", err)
			}
		}
	}
	s.logger.InfoContext(ctx, "prefetch done", "pages", out.Pages, "places", out.Places, "has_more", out.HasMore)
	return out, nil
}
