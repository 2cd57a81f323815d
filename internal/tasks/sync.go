// Package tasks holds the bulk re-sync jobs started after a login and the
// up-next episode refresh.
package tasks

import (
	"context"
	"log/slog"

	"github.com/mmcdole/showsync/internal/domain"
	"github.com/mmcdole/showsync/internal/retry"
)

// Library is what the sync jobs need from the show library.
type Library interface {
	Upsert(ctx context.Context, remote *domain.RemoteShow) (*domain.Show, error)
	RefreshShow(ctx context.Context, id int64, force bool) (*domain.Show, error)
	ReplaceList(ctx context.Context, list domain.ListName, shows []*domain.Show) error

	RefreshSeasons(ctx context.Context, showID int64, force bool) (*domain.ShowSeasons, error)
	SyncProgress(ctx context.Context, showID int64) (*domain.ShowSeasons, error)
	NextEpisodeToWatch(ctx context.Context, showID int64) (*domain.Episode, error)
	RefreshEpisode(ctx context.Context, id int64, force bool) (*domain.Episode, error)
}

// Result summarizes one sync run.
type Result struct {
	List   domain.ListName
	Count  int // Shows listed remotely
	Failed int // Shows whose refresh failed
}

// ShowTasks re-syncs the user's show lists from the primary provider.
type ShowTasks struct {
	lists   domain.ListProvider
	library Library
	retry   retry.Policy
	logger  *slog.Logger
}

// NewShowTasks creates the sync jobs.
func NewShowTasks(lists domain.ListProvider, library Library, policy retry.Policy, logger *slog.Logger) *ShowTasks {
	if logger == nil {
		logger = slog.Default()
	}
	return &ShowTasks{lists: lists, library: library, retry: policy, logger: logger}
}

// SyncWatchedShows re-syncs every show the user has watched.
func (t *ShowTasks) SyncWatchedShows(ctx context.Context) (Result, error) {
	result, _, err := t.sync(ctx, domain.ListWatched, t.lists.WatchedShows)
	return result, err
}

// SyncFollowedShows re-syncs the user's followed shows.
func (t *ShowTasks) SyncFollowedShows(ctx context.Context) (Result, error) {
	result, _, err := t.sync(ctx, domain.ListFollowed, t.lists.FollowedShows)
	return result, err
}

// sync lists shows remotely, tracks them, records the list and refreshes
// each stale show. Per-show failures are logged and skipped.
func (t *ShowTasks) sync(ctx context.Context, list domain.ListName, fetch func(context.Context) ([]domain.RemoteShow, error)) (Result, []*domain.Show, error) {
	result := Result{List: list}

	remote, err := retry.Do(ctx, t.retry, "sync/"+string(list), t.logger, fetch)
	if err != nil {
		t.logger.Error("failed to list shows", "error", err, "list", list)
		return result, nil, err
	}
	result.Count = len(remote)

	shows := make([]*domain.Show, 0, len(remote))
	for i := range remote {
		show, err := t.library.Upsert(ctx, &remote[i])
		if err != nil {
			return result, nil, err
		}
		shows = append(shows, show)
	}

	if err := t.library.ReplaceList(ctx, list, shows); err != nil {
		return result, nil, err
	}

	for _, show := range shows {
		if ctx.Err() != nil {
			return result, nil, ctx.Err()
		}
		if _, err := t.library.RefreshShow(ctx, show.ID, false); err != nil {
			result.Failed++
			t.logger.Warn("failed to refresh show", "error", err, "showID", show.ID, "list", list)
		}
	}

	t.logger.Info("synced shows", "list", list, "count", result.Count, "failed", result.Failed)
	return result, shows, nil
}
