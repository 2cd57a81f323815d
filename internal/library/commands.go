package library

import (
	"context"
	"time"

	"github.com/mmcdole/showsync/internal/domain"
)

// Track makes sure a show with the given external ids is stored locally
// and fetches its details. The record is kept even if the fetch fails, so
// a later refresh can complete it.
func (s *Service) Track(ctx context.Context, ids domain.ShowIDs) (*domain.Show, error) {
	if !ids.HasRemoteID() {
		return nil, domain.ErrNoIdentity
	}
	ids.ID = 0

	show, err := s.reconciler.EnsureShow(ctx, &domain.RemoteShow{IDs: ids, Source: "local"})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("tracking show", "showID", show.ID)

	return s.Shows.Refresh(ctx, show.ID, false)
}

// Upsert tracks a show from a remote list and returns the stored record.
func (s *Service) Upsert(ctx context.Context, remote *domain.RemoteShow) (*domain.Show, error) {
	return s.reconciler.UpsertShow(ctx, remote)
}

// Follow marks a show as followed.
func (s *Service) Follow(ctx context.Context, id int64) (*domain.Show, error) {
	now := s.opts.Clock.Now()
	return s.reconciler.UpdateUserState(ctx, id, func(state *domain.ShowUserState) {
		if !state.Followed {
			state.Followed = true
			state.FollowedAt = now
		}
	})
}

// Unfollow clears the followed flag.
func (s *Service) Unfollow(ctx context.Context, id int64) (*domain.Show, error) {
	return s.reconciler.UpdateUserState(ctx, id, func(state *domain.ShowUserState) {
		state.Followed = false
		state.FollowedAt = time.Time{}
	})
}

// MarkWatched records when the user last watched a show. Older timestamps
// than the one stored are ignored.
func (s *Service) MarkWatched(ctx context.Context, id int64, at time.Time) (*domain.Show, error) {
	return s.reconciler.UpdateUserState(ctx, id, func(state *domain.ShowUserState) {
		if at.After(state.LastWatchedAt) {
			state.LastWatchedAt = at
		}
	})
}

// SetHidden hides or unhides a show from lists.
func (s *Service) SetHidden(ctx context.Context, id int64, hidden bool) (*domain.Show, error) {
	return s.reconciler.UpdateUserState(ctx, id, func(state *domain.ShowUserState) {
		state.Hidden = hidden
	})
}
