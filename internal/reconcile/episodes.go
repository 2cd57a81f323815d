package reconcile

import (
	"context"
	"time"

	"github.com/mmcdole/showsync/internal/domain"
)

// MergeSeasons combines a show's stored seasons with a fresh remote
// listing. Episodes are matched by season and number: a match keeps its
// local id and watch state, anything else is new. Stored episodes the
// remote no longer lists are dropped.
func MergeSeasons(showID int64, local *domain.ShowSeasons, remote []domain.RemoteSeason) *domain.ShowSeasons {
	type slot struct{ season, number int }
	known := make(map[slot]domain.Episode)
	if local != nil {
		for _, ep := range local.Episodes() {
			known[slot{ep.Season, ep.Number}] = ep
		}
	}

	merged := &domain.ShowSeasons{ShowID: showID, Seasons: make([]domain.Season, 0, len(remote))}
	for _, rs := range remote {
		season := domain.Season{Number: rs.Number, Episodes: make([]domain.Episode, 0, len(rs.Episodes))}
		for _, re := range rs.Episodes {
			ep := MergeEpisode(nil, re)
			if prev, ok := known[slot{rs.Number, re.Number}]; ok {
				ep = MergeEpisode(&prev, re)
			}
			ep.ShowID = showID
			ep.Season = rs.Number
			season.Episodes = append(season.Episodes, *ep)
		}
		merged.Seasons = append(merged.Seasons, season)
	}
	return merged
}

// MergeEpisode takes details from remote and identity and watch state from
// local. External ids keep the local value if set.
func MergeEpisode(local *domain.Episode, remote domain.RemoteEpisode) *domain.Episode {
	merged := &domain.Episode{
		TraktID:        remote.TraktID,
		TmdbID:         remote.TmdbID,
		Season:         remote.Season,
		Number:         remote.Number,
		EpisodeDetails: remote.Details,
	}
	if local == nil {
		return merged
	}
	merged.ID = local.ID
	merged.ShowID = local.ShowID
	merged.Season = local.Season
	merged.Number = local.Number
	merged.WatchedAt = local.WatchedAt
	if local.TraktID != 0 {
		merged.TraktID = local.TraktID
	}
	if local.TmdbID != 0 {
		merged.TmdbID = local.TmdbID
	}
	return merged
}

// WriteSeasons merges a remote season listing into the show's stored seasons.
func (r *Reconciler) WriteSeasons(ctx context.Context, showID int64, remote []domain.RemoteSeason) (*domain.ShowSeasons, error) {
	seasons, err := r.store.UpdateSeasons(ctx, showID, func(local *domain.ShowSeasons) (*domain.ShowSeasons, error) {
		return MergeSeasons(showID, local, remote), nil
	})
	if err != nil {
		r.logger.Error("failed to write seasons", "error", err, "showID", showID)
		return nil, err
	}
	return seasons, nil
}

// WriteEpisode merges remote into the stored episode with local id id.
func (r *Reconciler) WriteEpisode(ctx context.Context, id int64, remote *domain.RemoteEpisode) (*domain.Episode, error) {
	ep, err := r.store.UpdateEpisode(ctx, id, func(local *domain.Episode) (*domain.Episode, error) {
		return MergeEpisode(local, *remote), nil
	})
	if err != nil {
		r.logger.Error("failed to write episode", "error", err, "episodeID", id)
		return nil, err
	}
	return ep, nil
}

// ApplyProgress records the user's remote watch history on the show's
// stored episodes. A later watch time wins; local watches are never
// cleared. Watches of episodes not stored locally are ignored.
func (r *Reconciler) ApplyProgress(ctx context.Context, showID int64, watches []domain.EpisodeWatch) (*domain.ShowSeasons, error) {
	type slot struct{ season, number int }
	latest := make(map[slot]time.Time, len(watches))
	for _, w := range watches {
		key := slot{w.Season, w.Number}
		if w.WatchedAt.After(latest[key]) {
			latest[key] = w.WatchedAt
		}
	}

	return r.store.UpdateSeasons(ctx, showID, func(local *domain.ShowSeasons) (*domain.ShowSeasons, error) {
		if local == nil {
			return nil, domain.ErrNotFoundLocally
		}
		next := &domain.ShowSeasons{ShowID: showID, Seasons: make([]domain.Season, len(local.Seasons))}
		for i, season := range local.Seasons {
			next.Seasons[i] = domain.Season{Number: season.Number, Episodes: append([]domain.Episode(nil), season.Episodes...)}
			for j := range next.Seasons[i].Episodes {
				ep := &next.Seasons[i].Episodes[j]
				if at := latest[slot{ep.Season, ep.Number}]; at.After(ep.WatchedAt) {
					ep.WatchedAt = at
				}
			}
		}
		return next, nil
	})
}

// MarkEpisodeWatched records a local watch of one episode. An earlier time
// than the one stored is ignored.
func (r *Reconciler) MarkEpisodeWatched(ctx context.Context, id int64, at time.Time) (*domain.Episode, error) {
	return r.store.UpdateEpisode(ctx, id, func(local *domain.Episode) (*domain.Episode, error) {
		next := *local
		if at.After(next.WatchedAt) {
			next.WatchedAt = at
		}
		return &next, nil
	})
}
