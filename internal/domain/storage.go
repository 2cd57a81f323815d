package domain

import (
	"context"
	"time"
)

// AuthStore persists the session's auth state.
type AuthStore interface {
	// Load returns the stored state; ok is false when nothing is stored
	Load(ctx context.Context) (state AuthState, ok bool, err error)
	Save(ctx context.Context, state AuthState) error
	Clear(ctx context.Context) error
}

// LastRequestStore records when each entity was last fetched successfully.
type LastRequestStore interface {
	LastRequest(id int64) (time.Time, bool, error)
	UpdateLastRequest(id int64, at time.Time) error
	DeleteLastRequest(id int64) error
	DeleteAllLastRequests() error
}
