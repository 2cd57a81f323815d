package library

import (
	"context"
	"time"

	"github.com/mmcdole/showsync/internal/domain"
	"github.com/mmcdole/showsync/internal/entity"
	"github.com/mmcdole/showsync/internal/fetch"
	"github.com/mmcdole/showsync/internal/staleness"
	"github.com/mmcdole/showsync/internal/store"
)

// seasonsSource adapts the library store to entity.Source for show seasons
type seasonsSource struct{ store *store.LibraryStore }

func (s seasonsSource) Get(ctx context.Context, showID int64) (*domain.ShowSeasons, error) {
	return s.store.GetSeasons(ctx, showID)
}

func (s seasonsSource) Watch(ctx context.Context, showID int64) <-chan *domain.ShowSeasons {
	return s.store.WatchSeasons(ctx, showID)
}

func (s seasonsSource) Delete(ctx context.Context, showID int64) error {
	return s.store.DeleteSeasons(ctx, showID)
}

func (s seasonsSource) DeleteAll(ctx context.Context) error {
	return s.store.DeleteAllEpisodes(ctx)
}

// episodeSource adapts the library store to entity.Source for episodes
type episodeSource struct{ store *store.LibraryStore }

func (s episodeSource) Get(ctx context.Context, id int64) (*domain.Episode, error) {
	return s.store.GetEpisode(ctx, id)
}

func (s episodeSource) Watch(ctx context.Context, id int64) <-chan *domain.Episode {
	return s.store.WatchEpisode(ctx, id)
}

func (s episodeSource) Delete(ctx context.Context, id int64) error {
	return s.store.DeleteEpisode(ctx, id)
}

func (s episodeSource) DeleteAll(ctx context.Context) error {
	return s.store.DeleteAllEpisodes(ctx)
}

// episodeLookup is the key the episode provider is addressed by
type episodeLookup struct {
	show   domain.ShowIDs
	season int
	number int
}

func (s *Service) newSeasonsStore() *entity.Store[domain.ShowSeasons, []domain.RemoteSeason] {
	provider := s.providers.Episodes
	primary := providerSource(provider.Name(), provider.GetSeasons)
	fetcher := fetch.NewFallback[domain.ShowIDs, []domain.RemoteSeason](EntitySeasons, primary, nil, s.opts.Retry, s.logger)

	return entity.New(entity.Config[domain.ShowSeasons, []domain.RemoteSeason]{
		Name:   EntitySeasons,
		Source: seasonsSource{s.store},
		Fetch: func(ctx context.Context, showID int64, _ *domain.ShowSeasons) ([]domain.RemoteSeason, error) {
			show, err := s.store.GetShow(ctx, showID)
			if err != nil {
				return nil, err
			}
			return fetcher.Fetch(ctx, show.ShowIDs)
		},
		Write:  s.reconciler.WriteSeasons,
		Policy: staleness.NewPolicy(s.store.LastRequests(EntitySeasons), s.opts.SeasonsWindow, s.opts.Clock),
		Logger: s.logger,
	})
}

func (s *Service) newEpisodeStore() *entity.Store[domain.Episode, *domain.RemoteEpisode] {
	provider := s.providers.Episodes
	primary := fetch.Source[episodeLookup, *domain.RemoteEpisode]{
		Name: provider.Name(),
		Fetch: func(ctx context.Context, l episodeLookup) (*domain.RemoteEpisode, error) {
			return provider.GetEpisode(ctx, l.show, l.season, l.number)
		},
	}
	fetcher := fetch.NewFallback[episodeLookup, *domain.RemoteEpisode](EntityEpisode, primary, nil, s.opts.Retry, s.logger)

	return entity.New(entity.Config[domain.Episode, *domain.RemoteEpisode]{
		Name:   EntityEpisode,
		Source: episodeSource{s.store},
		Fetch: func(ctx context.Context, id int64, local *domain.Episode) (*domain.RemoteEpisode, error) {
			// Episodes only exist once their show's seasons were stored.
			if local == nil {
				return nil, domain.ErrNotFoundLocally
			}
			show, err := s.store.GetShow(ctx, local.ShowID)
			if err != nil {
				return nil, err
			}
			return fetcher.Fetch(ctx, episodeLookup{show: show.ShowIDs, season: local.Season, number: local.Number})
		},
		Write:  s.reconciler.WriteEpisode,
		Policy: staleness.NewPolicy(s.store.LastRequests(EntityEpisode), s.opts.EpisodeWindow, s.opts.Clock),
		Logger: s.logger,
	})
}

func (s *Service) progressFetcher() *fetch.Fallback[domain.ShowIDs, []domain.EpisodeWatch] {
	provider := s.providers.Episodes
	primary := providerSource(provider.Name(), provider.WatchedProgress)
	return fetch.NewFallback[domain.ShowIDs, []domain.EpisodeWatch](EntityProgress, primary, nil, s.opts.Retry, s.logger)
}

// RefreshSeasons returns a show's seasons, fetching them first if they are
// stale or force is set.
func (s *Service) RefreshSeasons(ctx context.Context, showID int64, force bool) (*domain.ShowSeasons, error) {
	return s.Seasons.Refresh(ctx, showID, force)
}

// RefreshEpisode returns an episode, fetching its details first if they
// are stale or force is set.
func (s *Service) RefreshEpisode(ctx context.Context, id int64, force bool) (*domain.Episode, error) {
	return s.Episodes.Refresh(ctx, id, force)
}

// SyncProgress pulls the user's watch history for a show onto its stored
// episodes.
func (s *Service) SyncProgress(ctx context.Context, showID int64) (*domain.ShowSeasons, error) {
	show, err := s.store.GetShow(ctx, showID)
	if err != nil {
		return nil, err
	}
	watches, err := s.progress.Fetch(ctx, show.ShowIDs)
	if err != nil {
		return nil, err
	}
	return s.reconciler.ApplyProgress(ctx, showID, watches)
}

// NextEpisodeToWatch returns the next aired episode the user has not
// watched, from the stored seasons. It returns nil if there is none.
func (s *Service) NextEpisodeToWatch(ctx context.Context, showID int64) (*domain.Episode, error) {
	seasons, err := s.store.GetSeasons(ctx, showID)
	if err != nil {
		return nil, err
	}
	return seasons.NextToWatch(s.opts.Clock.Now()), nil
}

// ObserveNextEpisodeToWatch emits the next episode to watch now and after
// every change to the show's seasons, until ctx is cancelled. nil is
// emitted while there is none.
func (s *Service) ObserveNextEpisodeToWatch(ctx context.Context, showID int64) <-chan *domain.Episode {
	out := make(chan *domain.Episode)
	seasons := s.store.WatchSeasons(ctx, showID)
	go func() {
		defer close(out)
		for set := range seasons {
			var next *domain.Episode
			if set != nil {
				next = set.NextToWatch(s.opts.Clock.Now())
			}
			select {
			case out <- next:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// MarkEpisodeWatched records a local watch of an episode and moves the
// show's last-watched time forward.
func (s *Service) MarkEpisodeWatched(ctx context.Context, id int64, at time.Time) (*domain.Episode, error) {
	ep, err := s.reconciler.MarkEpisodeWatched(ctx, id, at)
	if err != nil {
		return nil, err
	}
	if _, err := s.MarkWatched(ctx, ep.ShowID, at); err != nil {
		return nil, err
	}
	return ep, nil
}
