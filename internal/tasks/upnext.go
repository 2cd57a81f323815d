package tasks

import (
	"context"

	"github.com/mmcdole/showsync/internal/domain"
)

// UpNextResult summarizes one up-next run.
type UpNextResult struct {
	Followed Result
	UpNext   int // Followed shows with an episode to watch next
	Failed   int // Shows whose seasons, progress or next episode failed to refresh
}

// UpdateUpNextEpisodes re-syncs the followed shows, then brings each one's
// seasons and watch progress up to date and refreshes the episode to watch
// next. Episodes are only fetched when stale unless force is set.
func (t *ShowTasks) UpdateUpNextEpisodes(ctx context.Context, force bool) (UpNextResult, error) {
	followed, shows, err := t.sync(ctx, domain.ListFollowed, t.lists.FollowedShows)
	result := UpNextResult{Followed: followed}
	if err != nil {
		return result, err
	}

	for _, show := range shows {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		log := t.logger.With("showID", show.ID)

		if _, err := t.library.RefreshSeasons(ctx, show.ID, false); err != nil {
			result.Failed++
			log.Warn("failed to refresh seasons", "error", err)
			continue
		}
		if _, err := t.library.SyncProgress(ctx, show.ID); err != nil {
			// Stored progress still gives a usable next episode.
			log.Warn("failed to sync watch progress", "error", err)
		}

		next, err := t.library.NextEpisodeToWatch(ctx, show.ID)
		if err != nil {
			result.Failed++
			log.Warn("failed to find next episode", "error", err)
			continue
		}
		if next == nil {
			continue
		}
		result.UpNext++

		if _, err := t.library.RefreshEpisode(ctx, next.ID, force); err != nil {
			result.Failed++
			log.Warn("failed to refresh next episode", "error", err, "episodeID", next.ID)
		}
	}

	t.logger.Info("updated up next", "followed", followed.Count, "upNext", result.UpNext, "failed", result.Failed)
	return result, nil
}
