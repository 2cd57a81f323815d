package library

import (
	"context"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/mmcdole/showsync/internal/domain"
	"github.com/mmcdole/showsync/internal/fetch"
)

func (s *Service) searcher() *fetch.Fallback[string, []domain.RemoteShow] {
	// The secondary provider has the better search index, so the roles swap.
	primary, secondary := s.providers.Secondary, s.providers.Primary
	if primary == nil {
		primary, secondary = s.providers.Primary, nil
	}

	first := fetch.Source[string, []domain.RemoteShow]{Name: primary.Name(), Fetch: primary.Search}
	var fallback *fetch.Source[string, []domain.RemoteShow]
	if secondary != nil {
		fallback = &fetch.Source[string, []domain.RemoteShow]{Name: secondary.Name(), Fetch: secondary.Search}
	}
	return fetch.NewFallback(EntitySearch, first, fallback, s.opts.Retry, s.logger)
}

// Search looks query up remotely and tracks every hit locally. When every
// provider fails, matching cached shows are returned together with the
// primary provider's error.
func (s *Service) Search(ctx context.Context, query string) ([]*domain.Show, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	s.logger.Debug("searching", "query", query)

	results, err := s.search.Fetch(ctx, query)
	if err != nil {
		s.logger.Warn("remote search failed, falling back to local", "error", err)
		local, localErr := s.SearchLocal(ctx, query)
		if localErr != nil {
			s.logger.Error("local search failed", "error", localErr)
		}
		return local, err
	}

	shows := make([]*domain.Show, 0, len(results))
	for i := range results {
		show, err := s.reconciler.EnsureShow(ctx, &results[i])
		if err != nil {
			return nil, err
		}
		shows = append(shows, show)
	}

	s.logger.Debug("search complete", "query", query, "results", len(shows))
	return shows, nil
}

// SearchLocal fuzzy matches query against cached show titles, best match first.
func (s *Service) SearchLocal(ctx context.Context, query string) ([]*domain.Show, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	shows, err := s.store.ListShows(ctx)
	if err != nil {
		return nil, err
	}

	titles := make([]string, len(shows))
	for i, show := range shows {
		titles[i] = show.Title
	}

	matches := fuzzy.RankFindFold(query, titles)
	sort.Stable(matches)

	results := make([]*domain.Show, 0, len(matches))
	for _, match := range matches {
		results = append(results, shows[match.OriginalIndex])
	}
	return results, nil
}
