// Package library is the show-typed composition of the sync engine: the
// show, image, season and episode entity stores, search, paged lists and
// local user actions.
package library

import (
	"context"
	"log/slog"
	"time"

	"github.com/mmcdole/showsync/internal/domain"
	"github.com/mmcdole/showsync/internal/entity"
	"github.com/mmcdole/showsync/internal/fetch"
	"github.com/mmcdole/showsync/internal/reconcile"
	"github.com/mmcdole/showsync/internal/retry"
	"github.com/mmcdole/showsync/internal/staleness"
	"github.com/mmcdole/showsync/internal/store"
)

// Entity type names, used for last-request records, logs and metrics
const (
	EntityShow        = "show"
	EntityImages      = "images"
	EntitySeasons     = "seasons"
	EntityEpisode     = "episode"
	EntityProgress    = "progress"
	EntityTrending    = "trending"
	EntityRecommended = "recommended"
	EntitySearch      = "search"
)

// Default staleness windows
const (
	DefaultShowWindow        = 14 * 24 * time.Hour
	DefaultImageWindow       = 30 * 24 * time.Hour
	DefaultSeasonsWindow     = 7 * 24 * time.Hour
	DefaultEpisodeWindow     = 24 * time.Hour
	DefaultTrendingWindow    = 6 * time.Hour
	DefaultRecommendedWindow = 6 * time.Hour
)

// Providers are the remote collaborators of the library.
type Providers struct {
	Primary   domain.ShowProvider // Show details, search fallback
	Secondary domain.ShowProvider // Show details fallback, search
	Images    domain.ImageProvider
	Episodes  domain.EpisodeProvider
	Lists     domain.ListProvider
}

// Options tune windows and retries. Zero values take the defaults.
type Options struct {
	ShowWindow        time.Duration
	ImageWindow       time.Duration
	SeasonsWindow     time.Duration
	EpisodeWindow     time.Duration
	TrendingWindow    time.Duration
	RecommendedWindow time.Duration
	Retry             retry.Policy
	Clock             staleness.Clock
}

func (o Options) withDefaults() Options {
	if o.ShowWindow <= 0 {
		o.ShowWindow = DefaultShowWindow
	}
	if o.ImageWindow <= 0 {
		o.ImageWindow = DefaultImageWindow
	}
	if o.SeasonsWindow <= 0 {
		o.SeasonsWindow = DefaultSeasonsWindow
	}
	if o.EpisodeWindow <= 0 {
		o.EpisodeWindow = DefaultEpisodeWindow
	}
	if o.TrendingWindow <= 0 {
		o.TrendingWindow = DefaultTrendingWindow
	}
	if o.RecommendedWindow <= 0 {
		o.RecommendedWindow = DefaultRecommendedWindow
	}
	if o.Retry.MaxAttempts <= 0 {
		o.Retry = retry.DefaultPolicy()
	}
	if o.Clock == nil {
		o.Clock = staleness.SystemClock
	}
	return o
}

// Service orchestrates providers, reconciler and store for shows.
type Service struct {
	store      *store.LibraryStore
	reconciler *reconcile.Reconciler
	providers  Providers
	opts       Options
	logger     *slog.Logger

	// Shows keeps show records fresh
	Shows *entity.Store[domain.Show, *domain.RemoteShow]

	// Images keeps show artwork fresh
	Images *entity.Store[domain.ShowImages, []domain.ShowImage]

	// Seasons keeps each show's season and episode listing fresh
	Seasons *entity.Store[domain.ShowSeasons, []domain.RemoteSeason]

	// Episodes keeps single episode details fresh
	Episodes *entity.Store[domain.Episode, *domain.RemoteEpisode]

	search      *fetch.Fallback[string, []domain.RemoteShow]
	progress    *fetch.Fallback[domain.ShowIDs, []domain.EpisodeWatch]
	trending    *staleness.Policy
	recommended *staleness.Policy
}

// NewService creates a new library service.
func NewService(st *store.LibraryStore, providers Providers, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	opts = opts.withDefaults()

	s := &Service{
		store:       st,
		reconciler:  reconcile.NewReconciler(st, logger),
		providers:   providers,
		opts:        opts,
		logger:      logger,
		trending:    staleness.NewPolicy(st.LastRequests(EntityTrending), opts.TrendingWindow, opts.Clock),
		recommended: staleness.NewPolicy(st.LastRequests(EntityRecommended), opts.RecommendedWindow, opts.Clock),
	}
	s.Shows = s.newShowStore()
	s.Images = s.newImageStore()
	s.Seasons = s.newSeasonsStore()
	s.Episodes = s.newEpisodeStore()
	s.search = s.searcher()
	s.progress = s.progressFetcher()
	return s
}

// Close waits for background refreshes to finish.
func (s *Service) Close() {
	s.Shows.Close()
	s.Images.Close()
	s.Seasons.Close()
	s.Episodes.Close()
}

// GetShow returns the cached record regardless of freshness.
func (s *Service) GetShow(ctx context.Context, id int64) (*domain.Show, error) {
	return s.store.GetShow(ctx, id)
}

// ListShows returns every cached show.
func (s *Service) ListShows(ctx context.Context) ([]*domain.Show, error) {
	return s.store.ListShows(ctx)
}
