package reconcile

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/mmcdole/showsync/internal/domain"
	"github.com/mmcdole/showsync/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestMergeShow_NewRecord(t *testing.T) {
	remote := domain.RemoteShow{
		IDs:     domain.ShowIDs{ID: 99, TraktID: 1},
		Details: domain.ShowDetails{Title: "New", Genres: []string{"drama"}},
	}

	merged := MergeShow(nil, remote)

	assert.Equal(t, int64(0), merged.ID, "local id is assigned by the store")
	assert.Equal(t, "New", merged.Title)
	assert.Equal(t, 1, merged.TraktID)

	remote.Details.Genres[0] = "changed"
	assert.Equal(t, []string{"drama"}, merged.Genres)
}

func TestMergeShow_KeepsUserStateAndLocalIDs(t *testing.T) {
	followedAt := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	local := &domain.Show{
		ShowIDs:       domain.ShowIDs{ID: 7, TraktID: 1, ImdbID: "tt-local"},
		ShowDetails:   domain.ShowDetails{Title: "Old", OriginalTitle: "Original"},
		ShowUserState: domain.ShowUserState{Followed: true, FollowedAt: followedAt, Hidden: true},
	}
	remote := domain.RemoteShow{
		IDs:     domain.ShowIDs{TraktID: 2, TmdbID: 3, ImdbID: "tt-remote"},
		Details: domain.ShowDetails{Title: "New", Rating: 8.5},
	}

	merged := MergeShow(local, remote)

	assert.Equal(t, int64(7), merged.ID)
	assert.Equal(t, 1, merged.TraktID)
	assert.Equal(t, 3, merged.TmdbID)
	assert.Equal(t, "tt-local", merged.ImdbID)
	assert.Equal(t, "New", merged.Title)
	assert.Empty(t, merged.OriginalTitle, "descriptive fields come from the remote result")
	assert.Equal(t, 8.5, merged.Rating)
	assert.Equal(t, local.ShowUserState, merged.ShowUserState)
}

func newReconciler(t *testing.T) (*Reconciler, *store.LibraryStore) {
	t.Helper()
	st, err := store.Open(t.TempDir(), discard)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return NewReconciler(st, discard), st
}

func TestWriteShow_PreservesUserState(t *testing.T) {
	r, st := newReconciler(t)
	ctx := context.Background()

	_, err := st.UpdateShow(ctx, 7, func(*domain.Show) (*domain.Show, error) {
		return &domain.Show{
			ShowIDs:       domain.ShowIDs{TraktID: 70},
			ShowDetails:   domain.ShowDetails{Title: "Old"},
			ShowUserState: domain.ShowUserState{Followed: true},
		}, nil
	})
	require.NoError(t, err)

	got, err := r.WriteShow(ctx, 7, &domain.RemoteShow{
		IDs:     domain.ShowIDs{TraktID: 70},
		Details: domain.ShowDetails{Title: "New"},
		Images:  []domain.ShowImage{{Type: domain.ImageTypePoster, Path: "/p.jpg"}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.ID)
	assert.Equal(t, "New", got.Title)
	assert.True(t, got.Followed)

	images, err := st.GetImages(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, images.Images, 1)
}

func TestEnsureShow_DoesNotOverwriteDetails(t *testing.T) {
	r, st := newReconciler(t)
	ctx := context.Background()

	full, err := r.UpsertShow(ctx, &domain.RemoteShow{
		IDs:     domain.ShowIDs{TraktID: 1},
		Details: domain.ShowDetails{Title: "Full", Summary: "Long summary"},
	})
	require.NoError(t, err)

	hit, err := r.EnsureShow(ctx, &domain.RemoteShow{
		IDs:     domain.ShowIDs{TraktID: 1, TmdbID: 10},
		Details: domain.ShowDetails{Title: "Abbrev"},
	})
	require.NoError(t, err)
	assert.Equal(t, full.ID, hit.ID)
	assert.Equal(t, "Full", hit.Title)
	assert.Equal(t, "Long summary", hit.Summary)
	assert.Equal(t, 10, hit.TmdbID)

	inserted, err := r.EnsureShow(ctx, &domain.RemoteShow{
		IDs:     domain.ShowIDs{TmdbID: 20},
		Details: domain.ShowDetails{Title: "Fresh"},
	})
	require.NoError(t, err)
	assert.NotEqual(t, full.ID, inserted.ID)

	stored, err := st.GetShow(ctx, inserted.ID)
	require.NoError(t, err)
	assert.Equal(t, "Fresh", stored.Title)
}

func TestUpdateUserState(t *testing.T) {
	r, _ := newReconciler(t)
	ctx := context.Background()

	_, err := r.UpdateUserState(ctx, 1, func(s *domain.ShowUserState) { s.Hidden = true })
	assert.ErrorIs(t, err, domain.ErrNotFoundLocally)

	show, err := r.UpsertShow(ctx, &domain.RemoteShow{IDs: domain.ShowIDs{TraktID: 1}, Details: domain.ShowDetails{Title: "T"}})
	require.NoError(t, err)

	got, err := r.UpdateUserState(ctx, show.ID, func(s *domain.ShowUserState) { s.Hidden = true })
	require.NoError(t, err)
	assert.True(t, got.Hidden)
	assert.Equal(t, "T", got.Title)
}

func TestWriteShow_ConcurrentUserStateIsNotLost(t *testing.T) {
	r, st := newReconciler(t)
	ctx := context.Background()

	show, err := r.UpsertShow(ctx, &domain.RemoteShow{IDs: domain.ShowIDs{TraktID: 1}, Details: domain.ShowDetails{Title: "Old"}})
	require.NoError(t, err)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	const writers = 50
	var wg sync.WaitGroup
	for i := 1; i <= writers; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := r.WriteShow(ctx, show.ID, &domain.RemoteShow{Details: domain.ShowDetails{Title: "Remote"}})
			assert.NoError(t, err)
		}()
		go func(at time.Time) {
			defer wg.Done()
			_, err := r.UpdateUserState(ctx, show.ID, func(state *domain.ShowUserState) {
				state.Followed = true
				if at.After(state.LastWatchedAt) {
					state.LastWatchedAt = at
				}
			})
			assert.NoError(t, err)
		}(base.Add(time.Duration(i) * time.Hour))
	}
	wg.Wait()

	got, err := st.GetShow(ctx, show.ID)
	require.NoError(t, err)
	assert.Equal(t, "Remote", got.Title)
	assert.True(t, got.Followed)
	assert.True(t, base.Add(writers*time.Hour).Equal(got.LastWatchedAt))
	assert.Equal(t, 1, got.TraktID)
}
