package trakt

import (
	"time"

	"github.com/mmcdole/showsync/internal/domain"
	"golang.org/x/oauth2"
)

// MapShow converts a trakt show to a provider-neutral result
func MapShow(s Show) domain.RemoteShow {
	details := domain.ShowDetails{
		Title:         s.Title,
		Summary:       s.Overview,
		Homepage:      s.Homepage,
		Network:       s.Network,
		Certification: s.Certification,
		Status:        s.Status,
		Country:       s.Country,
		Runtime:       s.Runtime,
		Genres:        append([]string(nil), s.Genres...),
		Rating:        s.Rating,
		Votes:         s.Votes,
	}
	if s.FirstAired != nil {
		details.FirstAired = s.FirstAired.UTC()
	}

	return domain.RemoteShow{
		IDs: domain.ShowIDs{
			TraktID: s.IDs.Trakt,
			TmdbID:  s.IDs.TMDB,
			ImdbID:  s.IDs.IMDB,
		},
		Details: details,
		Source:  ProviderName,
	}
}

// MapSearchResults keeps show hits, in rank order
func MapSearchResults(results []SearchResult) []domain.RemoteShow {
	shows := make([]domain.RemoteShow, 0, len(results))
	for _, r := range results {
		if r.Show == nil {
			continue
		}
		shows = append(shows, MapShow(*r.Show))
	}
	return shows
}

// MapTrending converts trending rows
func MapTrending(items []TrendingItem) []domain.TrendingShow {
	shows := make([]domain.TrendingShow, 0, len(items))
	for _, item := range items {
		shows = append(shows, domain.TrendingShow{
			Show:     MapShow(item.Show),
			Watchers: item.Watchers,
		})
	}
	return shows
}

// MapEpisode converts a trakt episode
func MapEpisode(e Episode) domain.RemoteEpisode {
	details := domain.EpisodeDetails{
		Title:   e.Title,
		Summary: e.Overview,
		Runtime: e.Runtime,
		Rating:  e.Rating,
		Votes:   e.Votes,
	}
	if e.FirstAired != nil {
		details.FirstAired = e.FirstAired.UTC()
	}
	return domain.RemoteEpisode{
		TraktID: e.IDs.Trakt,
		TmdbID:  e.IDs.TMDB,
		Season:  e.Season,
		Number:  e.Number,
		Details: details,
	}
}

// MapSeasons converts seasons with their episodes
func MapSeasons(seasons []Season) []domain.RemoteSeason {
	result := make([]domain.RemoteSeason, 0, len(seasons))
	for _, s := range seasons {
		season := domain.RemoteSeason{Number: s.Number, Episodes: make([]domain.RemoteEpisode, 0, len(s.Episodes))}
		for _, e := range s.Episodes {
			ep := MapEpisode(e)
			ep.Season = s.Number
			season.Episodes = append(season.Episodes, ep)
		}
		result = append(result, season)
	}
	return result
}

// MapProgress keeps the completed episodes that carry a watch time
func MapProgress(p WatchedProgress) []domain.EpisodeWatch {
	var watches []domain.EpisodeWatch
	for _, s := range p.Seasons {
		for _, e := range s.Episodes {
			if !e.Completed || e.LastWatchedAt == nil {
				continue
			}
			watches = append(watches, domain.EpisodeWatch{
				Season:    s.Number,
				Number:    e.Number,
				WatchedAt: e.LastWatchedAt.UTC(),
			})
		}
	}
	return watches
}

// MapToken converts a token response, computing the absolute expiry
func MapToken(t TokenResponse, now time.Time) *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  t.AccessToken,
		TokenType:    t.TokenType,
		RefreshToken: t.RefreshToken,
	}
	if t.ExpiresIn > 0 {
		issued := now
		if t.CreatedAt > 0 {
			issued = time.Unix(t.CreatedAt, 0)
		}
		tok.Expiry = issued.Add(time.Duration(t.ExpiresIn) * time.Second)
	}
	return tok
}
