package library

import (
	"context"
	"fmt"

	"github.com/mmcdole/showsync/internal/domain"
	"github.com/mmcdole/showsync/internal/retry"
	"github.com/mmcdole/showsync/internal/staleness"
)

// DefaultPageSize is the list page size used when none is given.
const DefaultPageSize = 20

// pageKey identifies a (page, page size) pair in the last-request table.
// A page fetched with one size says nothing about the same page at another.
func pageKey(page, pageSize int) int64 {
	return int64(page)<<32 | int64(pageSize)
}

// pagedList is a remote list fetched one page at a time.
type pagedList struct {
	entity string
	list   domain.ListName
	policy *staleness.Policy
	fetch  func(ctx context.Context, page, pageSize int) ([]domain.TrendingShow, error)
}

// UpdateTrending fetches one 0-based page of trending shows, tracks them
// and replaces the page's list entries. A page fetched within the trending
// window is not fetched again unless force is set.
func (s *Service) UpdateTrending(ctx context.Context, page, pageSize int, force bool) error {
	return s.updatePage(ctx, pagedList{
		entity: EntityTrending,
		list:   domain.ListTrending,
		policy: s.trending,
		fetch:  s.providers.Lists.Trending,
	}, page, pageSize, force)
}

// UpdateRecommended is UpdateTrending for the shows recommended to the
// logged-in user.
func (s *Service) UpdateRecommended(ctx context.Context, page, pageSize int, force bool) error {
	lists := s.providers.Lists
	return s.updatePage(ctx, pagedList{
		entity: EntityRecommended,
		list:   domain.ListRecommended,
		policy: s.recommended,
		fetch: func(ctx context.Context, page, pageSize int) ([]domain.TrendingShow, error) {
			shows, err := lists.Recommended(ctx, page, pageSize)
			if err != nil {
				return nil, err
			}
			items := make([]domain.TrendingShow, len(shows))
			for i := range shows {
				items[i].Show = shows[i]
			}
			return items, nil
		},
	}, page, pageSize, force)
}

func (s *Service) updatePage(ctx context.Context, l pagedList, page, pageSize int, force bool) error {
	if page < 0 {
		return fmt.Errorf("invalid page %d", page)
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	key := pageKey(page, pageSize)
	if !force && !l.policy.IsExpired(key) {
		s.logger.Debug("list page fresh", "list", l.list, "page", page, "pageSize", pageSize)
		return nil
	}

	items, err := retry.Do(ctx, s.opts.Retry, l.entity, s.logger,
		func(ctx context.Context) ([]domain.TrendingShow, error) {
			return l.fetch(ctx, page, pageSize)
		})
	if err != nil {
		s.logger.Error("failed to fetch list page", "error", err, "list", l.list, "page", page)
		return err
	}

	now := s.opts.Clock.Now()
	entries := make([]domain.ListEntry, 0, len(items))
	for i := range items {
		show, err := s.reconciler.UpsertShow(ctx, &items[i].Show)
		if err != nil {
			return err
		}
		entries = append(entries, domain.ListEntry{
			List:      l.list,
			ShowID:    show.ID,
			Position:  page*pageSize + i,
			Watchers:  items[i].Watchers,
			UpdatedAt: now,
		})
	}

	if err := s.store.ReplaceListPage(ctx, l.list, page, entries); err != nil {
		return err
	}
	if err := l.policy.Touch(key); err != nil {
		s.logger.Warn("failed to record list request", "error", err, "list", l.list, "page", page)
	}

	s.logger.Debug("updated list page", "list", l.list, "page", page, "count", len(entries))
	return nil
}

// Entries joins a list's entries with their shows and images.
func (s *Service) Entries(ctx context.Context, list domain.ListName) ([]domain.EntryWithShow, error) {
	return s.store.EntriesWithShow(ctx, list)
}

// WatchList emits a list's joined entries now and after every change.
func (s *Service) WatchList(ctx context.Context, list domain.ListName) <-chan *[]domain.EntryWithShow {
	return s.store.WatchList(ctx, list)
}

// ReplaceList records shows, in order, as the whole of list.
func (s *Service) ReplaceList(ctx context.Context, list domain.ListName, shows []*domain.Show) error {
	now := s.opts.Clock.Now()
	entries := make([]domain.ListEntry, 0, len(shows))
	for i, show := range shows {
		entries = append(entries, domain.ListEntry{
			List:      list,
			ShowID:    show.ID,
			Position:  i,
			UpdatedAt: now,
		})
	}
	return s.store.ReplaceList(ctx, list, entries)
}
