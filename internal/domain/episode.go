package domain

import (
	"context"
	"time"
)

// EpisodeDetails are the descriptive fields of an episode. A remote fetch
// replaces all of them.
type EpisodeDetails struct {
	Title      string    `json:"title"`
	Summary    string    `json:"summary"`
	FirstAired time.Time `json:"first_aired"`
	Runtime    int       `json:"runtime"` // Minutes
	Rating     float64   `json:"rating"`  // 0-10 scale
	Votes      int       `json:"votes"`
}

// Episode is the local record of one episode of a show.
type Episode struct {
	ID      int64 `json:"id"` // Local id, assigned once by the store
	ShowID  int64 `json:"show_id"`
	TraktID int   `json:"trakt_id"`
	TmdbID  int   `json:"tmdb_id"`
	Season  int   `json:"season"`
	Number  int   `json:"number"`
	EpisodeDetails

	// WatchedAt is user state; zero means not watched
	WatchedAt time.Time `json:"watched_at"`
}

// GetID returns the local id.
func (e *Episode) GetID() int64 { return e.ID }

// Watched reports whether the user has watched the episode.
func (e *Episode) Watched() bool { return !e.WatchedAt.IsZero() }

// HasAired reports whether the episode was first aired at or before now.
// Episodes without an air date have not aired.
func (e *Episode) HasAired(now time.Time) bool {
	return !e.FirstAired.IsZero() && !e.FirstAired.After(now)
}

// Season groups a show's episodes by season number. Season 0 holds specials.
type Season struct {
	Number   int       `json:"number"`
	Episodes []Episode `json:"episodes"`
}

// ShowSeasons is every season of one show, ordered by number.
type ShowSeasons struct {
	ShowID  int64    `json:"show_id"`
	Seasons []Season `json:"seasons"`
}

// GetID returns the show's local id.
func (s *ShowSeasons) GetID() int64 { return s.ShowID }

// Episodes returns every episode in season then episode order.
func (s *ShowSeasons) Episodes() []Episode {
	var all []Episode
	for _, season := range s.Seasons {
		all = append(all, season.Episodes...)
	}
	return all
}

// NextToWatch returns the episode after the last one watched, skipping
// specials. It returns nil when that episode has not aired by now or the
// user is caught up.
func (s *ShowSeasons) NextToWatch(now time.Time) *Episode {
	var regular []Episode
	for _, season := range s.Seasons {
		if season.Number == 0 {
			continue
		}
		regular = append(regular, season.Episodes...)
	}

	next := 0
	for i := range regular {
		if regular[i].Watched() {
			next = i + 1
		}
	}
	if next >= len(regular) || !regular[next].HasAired(now) {
		return nil
	}
	ep := regular[next]
	return &ep
}

// RemoteEpisode is what a provider returns for an episode.
type RemoteEpisode struct {
	TraktID int
	TmdbID  int
	Season  int
	Number  int
	Details EpisodeDetails
}

// RemoteSeason is a provider's season with its episodes.
type RemoteSeason struct {
	Number   int
	Episodes []RemoteEpisode
}

// EpisodeWatch is one watched episode from the user's remote history.
type EpisodeWatch struct {
	Season    int
	Number    int
	WatchedAt time.Time
}

// EpisodeProvider is a remote source of seasons, episodes and the user's
// watch progress.
type EpisodeProvider interface {
	Name() string

	// GetSeasons returns every season of a show with its episodes
	GetSeasons(ctx context.Context, hints ShowIDs) ([]RemoteSeason, error)

	// GetEpisode returns one episode by season and number
	GetEpisode(ctx context.Context, hints ShowIDs, season, number int) (*RemoteEpisode, error)

	// WatchedProgress returns the authenticated user's watched episodes of a show
	WatchedProgress(ctx context.Context, hints ShowIDs) ([]EpisodeWatch, error)
}
