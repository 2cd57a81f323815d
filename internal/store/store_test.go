package store

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/mmcdole/showsync/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *LibraryStore {
	t.Helper()
	s, err := Open(t.TempDir(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func insert(t *testing.T, s *LibraryStore, show domain.Show) *domain.Show {
	t.Helper()
	got, err := s.UpsertShow(context.Background(), show.ShowIDs, func(local *domain.Show) (*domain.Show, error) {
		next := show
		return &next, nil
	})
	require.NoError(t, err)
	return got
}

func put(t *testing.T, s *LibraryStore, show domain.Show) *domain.Show {
	t.Helper()
	got, err := s.UpdateShow(context.Background(), show.ID, func(local *domain.Show) (*domain.Show, error) {
		next := show
		return &next, nil
	})
	require.NoError(t, err)
	return got
}

func TestGetShow_Missing(t *testing.T) {
	s := openTestStore(t)

	_, err := s.GetShow(context.Background(), 42)
	assert.ErrorIs(t, err, domain.ErrNotFoundLocally)
	assert.NotErrorIs(t, err, domain.ErrStorage)
}

func TestUpsertShow_AssignsIDsAndMatchesByExternalID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a := insert(t, s, domain.Show{ShowIDs: domain.ShowIDs{TraktID: 1}, ShowDetails: domain.ShowDetails{Title: "A"}})
	b := insert(t, s, domain.Show{ShowIDs: domain.ShowIDs{TmdbID: 2}, ShowDetails: domain.ShowDetails{Title: "B"}})
	assert.Equal(t, int64(1), a.ID)
	assert.Equal(t, int64(2), b.ID)

	// A result carrying both ids matches the existing record through the index.
	var seen *domain.Show
	got, err := s.UpsertShow(ctx, domain.ShowIDs{TraktID: 1, ImdbID: "tt1"}, func(local *domain.Show) (*domain.Show, error) {
		seen = local
		next := *local
		next.ImdbID = "tt1"
		return &next, nil
	})
	require.NoError(t, err)
	require.NotNil(t, seen)
	assert.Equal(t, int64(1), got.ID)

	id, ok, err := s.FindShowID(ctx, domain.ShowIDs{ImdbID: "tt1"})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(1), id)

	shows, err := s.ListShows(ctx)
	require.NoError(t, err)
	assert.Len(t, shows, 2)
}

func TestUpsertShow_ExplicitIDKeepsSequenceAhead(t *testing.T) {
	s := openTestStore(t)

	put(t, s, domain.Show{ShowIDs: domain.ShowIDs{ID: 7, TraktID: 70}})
	next := insert(t, s, domain.Show{ShowIDs: domain.ShowIDs{TraktID: 80}})

	assert.Greater(t, next.ID, int64(7))
}

func TestUpdateShow_NilMutationLeavesRecord(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	show := insert(t, s, domain.Show{ShowIDs: domain.ShowIDs{TraktID: 1}, ShowDetails: domain.ShowDetails{Title: "Kept"}})

	got, err := s.UpdateShow(ctx, show.ID, func(local *domain.Show) (*domain.Show, error) { return nil, nil })
	require.NoError(t, err)
	assert.Equal(t, "Kept", got.Title)

	stored, err := s.GetShow(ctx, show.ID)
	require.NoError(t, err)
	assert.Equal(t, "Kept", stored.Title)
}

func TestDeleteShow_RemovesIndex(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	show := insert(t, s, domain.Show{ShowIDs: domain.ShowIDs{TraktID: 1, TmdbID: 2}})

	require.NoError(t, s.DeleteShow(ctx, show.ID))
	require.NoError(t, s.DeleteShow(ctx, show.ID), "deleting a missing show is not an error")

	_, ok, err := s.FindShowID(ctx, domain.ShowIDs{TmdbID: 2})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReplaceListPage_KeepsOtherPages(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.ReplaceListPage(ctx, domain.ListTrending, 0, []domain.ListEntry{
		{ShowID: 1, Position: 0}, {ShowID: 2, Position: 1},
	}))
	require.NoError(t, s.ReplaceListPage(ctx, domain.ListTrending, 1, []domain.ListEntry{
		{ShowID: 3, Position: 2},
	}))
	require.NoError(t, s.ReplaceListPage(ctx, domain.ListTrending, 0, []domain.ListEntry{
		{ShowID: 4, Position: 0},
	}))

	entries, err := s.ListEntries(ctx, domain.ListTrending)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(4), entries[0].ShowID)
	assert.Equal(t, int64(3), entries[1].ShowID)
	assert.Equal(t, 1, entries[1].Page)
	assert.Equal(t, domain.ListTrending, entries[0].List)
}

func TestReplaceListPage_OverlappingPositionsKeepBothPages(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first := make([]domain.ListEntry, 20)
	for i := range first {
		first[i] = domain.ListEntry{ShowID: int64(i + 1), Position: i}
	}
	second := make([]domain.ListEntry, 10)
	for i := range second {
		second[i] = domain.ListEntry{ShowID: int64(100 + i), Position: 10 + i}
	}
	require.NoError(t, s.ReplaceListPage(ctx, domain.ListTrending, 0, first))
	require.NoError(t, s.ReplaceListPage(ctx, domain.ListTrending, 1, second))

	entries, err := s.ListEntries(ctx, domain.ListTrending)
	require.NoError(t, err)
	require.Len(t, entries, 30)
	assert.Equal(t, int64(20), entries[19].ShowID)
	assert.Equal(t, int64(100), entries[20].ShowID)
	assert.Equal(t, 1, entries[20].Page)
}

func TestReplaceList_ReplacesEverything(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.ReplaceList(ctx, domain.ListWatched, []domain.ListEntry{{ShowID: 1, Position: 0}, {ShowID: 2, Position: 1}}))
	require.NoError(t, s.ReplaceList(ctx, domain.ListWatched, []domain.ListEntry{{ShowID: 3, Position: 0}}))

	entries, err := s.ListEntries(ctx, domain.ListWatched)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(3), entries[0].ShowID)
}

func TestEntriesWithShow_JoinsAndSkipsMissing(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	show := insert(t, s, domain.Show{ShowIDs: domain.ShowIDs{TraktID: 1}, ShowDetails: domain.ShowDetails{Title: "Joined"}})
	_, err := s.ReplaceImages(ctx, show.ID, []domain.ShowImage{{Type: domain.ImageTypePoster, Path: "/p.jpg"}})
	require.NoError(t, err)

	require.NoError(t, s.ReplaceList(ctx, domain.ListFollowed, []domain.ListEntry{
		{ShowID: show.ID, Position: 0},
		{ShowID: 999, Position: 1},
	}))

	joined, err := s.EntriesWithShow(ctx, domain.ListFollowed)
	require.NoError(t, err)
	require.Len(t, joined, 1)
	assert.Equal(t, "Joined", joined[0].Show.Title)
	require.NotNil(t, joined[0].Poster())
	assert.Equal(t, "/p.jpg", joined[0].Poster().Path)
	assert.Nil(t, joined[0].Backdrop())
}

func TestReplaceImages_SetsOwner(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.GetImages(ctx, 5)
	assert.ErrorIs(t, err, domain.ErrNotFoundLocally)

	_, err = s.ReplaceImages(ctx, 5, []domain.ShowImage{{Type: domain.ImageTypeBackdrop, ShowID: 99}})
	require.NoError(t, err)

	set, err := s.GetImages(ctx, 5)
	require.NoError(t, err)
	require.Len(t, set.Images, 1)
	assert.Equal(t, int64(5), set.Images[0].ShowID)
}

func TestWatchShow_EmitsNilThenValue(t *testing.T) {
	s := openTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := s.WatchShow(ctx, 1)
	assert.Nil(t, receive(t, ch))

	put(t, s, domain.Show{ShowIDs: domain.ShowIDs{ID: 1, TraktID: 1}, ShowDetails: domain.ShowDetails{Title: "Live"}})

	got := receive(t, ch)
	require.NotNil(t, got)
	assert.Equal(t, "Live", got.Title)

	cancel()
	for range ch {
	}
}

func TestWatchShow_DeleteAllWakes(t *testing.T) {
	s := openTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	put(t, s, domain.Show{ShowIDs: domain.ShowIDs{ID: 1, TraktID: 1}})

	ch := s.WatchShow(ctx, 1)
	require.NotNil(t, receive(t, ch))

	require.NoError(t, s.DeleteAllShows(context.Background()))
	assert.Nil(t, receive(t, ch))
}

func receive[T any](t *testing.T, ch <-chan *T) *T {
	t.Helper()
	select {
	case v, ok := <-ch:
		require.True(t, ok, "watch channel closed")
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for watch emission")
		return nil
	}
}

func TestLastRequests_PerEntity(t *testing.T) {
	s := openTestStore(t)
	shows := s.LastRequests("show")
	images := s.LastRequests("images")
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	_, ok, err := shows.LastRequest(1)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, shows.UpdateLastRequest(1, at))
	got, ok, err := shows.LastRequest(1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, at.Equal(got))

	_, ok, err = images.LastRequest(1)
	require.NoError(t, err)
	assert.False(t, ok, "entity types are kept apart")

	require.NoError(t, shows.DeleteLastRequest(1))
	_, ok, _ = shows.LastRequest(1)
	assert.False(t, ok)

	require.NoError(t, shows.UpdateLastRequest(2, at))
	require.NoError(t, shows.DeleteAllLastRequests())
	_, ok, _ = shows.LastRequest(2)
	assert.False(t, ok)
}

func TestAuthStore_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	auth := s.Auth()

	_, ok, err := auth.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	state := domain.AuthState{AccessToken: "a", RefreshToken: "r", Expiry: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, auth.Save(ctx, state))

	loaded, ok, err := auth.Load(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "a", loaded.AccessToken)
	assert.True(t, state.Expiry.Equal(loaded.Expiry))

	require.NoError(t, auth.Clear(ctx))
	_, ok, err = auth.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}
