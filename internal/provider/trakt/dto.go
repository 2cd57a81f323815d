package trakt

import "time"

// IDs is the ids object trakt attaches to every media item
type IDs struct {
	Trakt int    `json:"trakt"`
	Slug  string `json:"slug"`
	TVDB  int    `json:"tvdb"`
	IMDB  string `json:"imdb"`
	TMDB  int    `json:"tmdb"`
}

// Show is a show with extended=full
type Show struct {
	Title         string     `json:"title"`
	Year          int        `json:"year"`
	IDs           IDs        `json:"ids"`
	Overview      string     `json:"overview"`
	FirstAired    *time.Time `json:"first_aired"`
	Runtime       int        `json:"runtime"`
	Certification string     `json:"certification"`
	Network       string     `json:"network"`
	Country       string     `json:"country"`
	Status        string     `json:"status"`
	Rating        float64    `json:"rating"`
	Votes         int        `json:"votes"`
	Homepage      string     `json:"homepage"`
	Language      string     `json:"language"`
	Genres        []string   `json:"genres"`
}

// SearchResult is one hit from /search
type SearchResult struct {
	Type  string  `json:"type"`
	Score float64 `json:"score"`
	Show  *Show   `json:"show"`
}

// TrendingItem is one row of /shows/trending
type TrendingItem struct {
	Watchers int  `json:"watchers"`
	Show     Show `json:"show"`
}

// WatchedItem is one row of /sync/watched/shows
type WatchedItem struct {
	Plays         int        `json:"plays"`
	LastWatchedAt *time.Time `json:"last_watched_at"`
	Show          Show       `json:"show"`
}

// WatchlistItem is one row of /sync/watchlist/shows
type WatchlistItem struct {
	Rank     int        `json:"rank"`
	ListedAt *time.Time `json:"listed_at"`
	Type     string     `json:"type"`
	Show     *Show      `json:"show"`
}

// Episode is an episode with extended=full
type Episode struct {
	Season     int        `json:"season"`
	Number     int        `json:"number"`
	Title      string     `json:"title"`
	IDs        IDs        `json:"ids"`
	Overview   string     `json:"overview"`
	FirstAired *time.Time `json:"first_aired"`
	Runtime    int        `json:"runtime"`
	Rating     float64    `json:"rating"`
	Votes      int        `json:"votes"`
}

// Season is one row of /shows/{id}/seasons with extended=episodes
type Season struct {
	Number   int       `json:"number"`
	IDs      IDs       `json:"ids"`
	Episodes []Episode `json:"episodes"`
}

// WatchedProgress is the response of /shows/{id}/progress/watched
type WatchedProgress struct {
	Aired     int              `json:"aired"`
	Completed int              `json:"completed"`
	Seasons   []SeasonProgress `json:"seasons"`
}

// SeasonProgress is the user's progress through one season
type SeasonProgress struct {
	Number   int               `json:"number"`
	Episodes []EpisodeProgress `json:"episodes"`
}

// EpisodeProgress is the user's progress on one episode
type EpisodeProgress struct {
	Number        int        `json:"number"`
	Completed     bool       `json:"completed"`
	LastWatchedAt *time.Time `json:"last_watched_at"`
}

// DeviceCode is the response to a device code request
type DeviceCode struct {
	DeviceCode      string `json:"device_code"`
	UserCode        string `json:"user_code"`
	VerificationURL string `json:"verification_url"`
	ExpiresIn       int    `json:"expires_in"` // Seconds
	Interval        int    `json:"interval"`   // Seconds between polls
}

// TokenResponse is an OAuth token as trakt returns it
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	Scope        string `json:"scope"`
	CreatedAt    int64  `json:"created_at"`
}
