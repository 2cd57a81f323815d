package domain

import (
	"strconv"
	"time"
)

// ShowIDs holds the identity of a show: the local id plus the ids the
// remote providers know it by. Zero values mean "not known yet".
type ShowIDs struct {
	ID      int64  `json:"id"`       // Local id, assigned once by the store
	TraktID int    `json:"trakt_id"` // Primary provider id
	TmdbID  int    `json:"tmdb_id"`  // Secondary provider id
	ImdbID  string `json:"imdb_id"`  // Third-party id, optional
}

// HasRemoteID reports whether at least one external id is known.
func (ids ShowIDs) HasRemoteID() bool {
	return ids.TraktID != 0 || ids.TmdbID != 0 || ids.ImdbID != ""
}

// ExternalKeys returns the index keys ("trakt:1", "tmdb:2", "imdb:tt3")
// for every external id that is set.
func (ids ShowIDs) ExternalKeys() []string {
	keys := make([]string, 0, 3)
	if ids.TraktID != 0 {
		keys = append(keys, "trakt:"+strconv.Itoa(ids.TraktID))
	}
	if ids.TmdbID != 0 {
		keys = append(keys, "tmdb:"+strconv.Itoa(ids.TmdbID))
	}
	if ids.ImdbID != "" {
		keys = append(keys, "imdb:"+ids.ImdbID)
	}
	return keys
}

// ShowDetails are the descriptive fields supplied by the remote providers.
// A remote fetch replaces all of them.
type ShowDetails struct {
	Title           string    `json:"title"`
	OriginalTitle   string    `json:"original_title"`
	Summary         string    `json:"summary"`
	Homepage        string    `json:"homepage"`
	Network         string    `json:"network"`
	NetworkLogoPath string    `json:"network_logo_path"`
	Certification   string    `json:"certification"` // e.g. "TV-MA"
	Status          string    `json:"status"`        // e.g. "returning series", "ended"
	Country         string    `json:"country"`
	Runtime         int       `json:"runtime"` // Minutes per episode
	FirstAired      time.Time `json:"first_aired"`
	Genres          []string  `json:"genres"`
	Rating          float64   `json:"rating"` // 0-10 scale
	Votes           int       `json:"votes"`
}

// ShowUserState holds fields written only by local user actions.
// Remote synchronization never touches them.
type ShowUserState struct {
	Followed      bool      `json:"followed"`
	FollowedAt    time.Time `json:"followed_at"`
	LastWatchedAt time.Time `json:"last_watched_at"`
	Hidden        bool      `json:"hidden"`
}

// Show is the local record of a TV show.
type Show struct {
	ShowIDs
	ShowDetails
	ShowUserState
}

// GetID returns the local id.
func (s *Show) GetID() int64 { return s.ID }

// RemoteShow is what a provider returns for a show: identity hints and
// descriptive fields. Images are included when the provider supplies them.
type RemoteShow struct {
	IDs     ShowIDs
	Details ShowDetails
	Images  []ShowImage
	Source  string // Name of the provider that produced this result
}
