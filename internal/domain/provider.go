package domain

import "context"

// ShowProvider is a remote source of show metadata.
type ShowProvider interface {
	// Name identifies the provider in logs, errors and metrics
	Name() string

	// GetShow looks a show up by whichever of the identity hints it understands
	GetShow(ctx context.Context, hints ShowIDs) (*RemoteShow, error)

	// Search returns shows matching a free text query
	Search(ctx context.Context, query string) ([]RemoteShow, error)
}

// ImageProvider is a remote source of show artwork.
type ImageProvider interface {
	Name() string
	GetShowImages(ctx context.Context, hints ShowIDs) ([]ShowImage, error)
}

// ListProvider exposes the primary provider's show lists.
type ListProvider interface {
	// Trending returns one 0-based page of trending shows
	Trending(ctx context.Context, page, pageSize int) ([]TrendingShow, error)

	// Recommended returns one 0-based page of shows recommended to the
	// authenticated user
	Recommended(ctx context.Context, page, pageSize int) ([]RemoteShow, error)

	// WatchedShows returns every show the authenticated user has watched
	WatchedShows(ctx context.Context) ([]RemoteShow, error)

	// FollowedShows returns the authenticated user's watchlist
	FollowedShows(ctx context.Context) ([]RemoteShow, error)
}

// TrendingShow is a remote show with its trending stats.
type TrendingShow struct {
	Show     RemoteShow
	Watchers int
}

// TokenSink receives credential changes from the session.
type TokenSink interface {
	SetAuth(state AuthState)
}
