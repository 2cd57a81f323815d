package store

import (
	"context"
	"testing"
	"time"

	"github.com/mmcdole/showsync/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func replaceSeasons(t *testing.T, s *LibraryStore, showID int64, seasons ...domain.Season) *domain.ShowSeasons {
	t.Helper()
	got, err := s.UpdateSeasons(context.Background(), showID, func(*domain.ShowSeasons) (*domain.ShowSeasons, error) {
		return &domain.ShowSeasons{Seasons: seasons}, nil
	})
	require.NoError(t, err)
	return got
}

func TestUpdateSeasons_AssignsIDsAndOrders(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.GetSeasons(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrNotFoundLocally)

	replaceSeasons(t, s, 1,
		domain.Season{Number: 1, Episodes: []domain.Episode{{Number: 2}, {Number: 1}}},
		domain.Season{Number: 2},
	)

	got, err := s.GetSeasons(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got.Seasons, 2)
	require.Len(t, got.Seasons[0].Episodes, 2)
	assert.Empty(t, got.Seasons[1].Episodes, "an empty season is kept")

	first := got.Seasons[0].Episodes[0]
	assert.Equal(t, 1, first.Number, "episodes are read in number order")
	assert.Equal(t, int64(1), first.ShowID)
	assert.Equal(t, 1, first.Season)
	assert.NotZero(t, first.ID)

	ep, err := s.GetEpisode(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first, *ep)
}

func TestUpdateSeasons_DropsMissingEpisodes(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	stored := replaceSeasons(t, s, 1, domain.Season{Number: 1, Episodes: []domain.Episode{{Number: 1}, {Number: 2}}})
	kept := stored.Seasons[0].Episodes[0]
	dropped := stored.Seasons[0].Episodes[1]

	replaceSeasons(t, s, 1, domain.Season{Number: 1, Episodes: []domain.Episode{kept}})

	got, err := s.GetSeasons(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got.Episodes(), 1)
	assert.Equal(t, kept.ID, got.Episodes()[0].ID)

	_, err = s.GetEpisode(ctx, dropped.ID)
	assert.ErrorIs(t, err, domain.ErrNotFoundLocally)
}

func TestUpdateEpisode_KeepsIdentity(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	stored := replaceSeasons(t, s, 4, domain.Season{Number: 3, Episodes: []domain.Episode{{Number: 7}}})
	id := stored.Seasons[0].Episodes[0].ID

	watched := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	ep, err := s.UpdateEpisode(ctx, id, func(local *domain.Episode) (*domain.Episode, error) {
		next := *local
		next.Season, next.Number, next.ShowID = 9, 9, 9
		next.WatchedAt = watched
		return &next, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, ep.Season)
	assert.Equal(t, 7, ep.Number)
	assert.Equal(t, int64(4), ep.ShowID)
	assert.True(t, watched.Equal(ep.WatchedAt))

	_, err = s.UpdateEpisode(ctx, 999, func(local *domain.Episode) (*domain.Episode, error) { return local, nil })
	assert.ErrorIs(t, err, domain.ErrNotFoundLocally)
}

func TestWatchSeasons_EpisodeWriteWakes(t *testing.T) {
	s := openTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stored := replaceSeasons(t, s, 1, domain.Season{Number: 1, Episodes: []domain.Episode{{Number: 1}}})
	id := stored.Seasons[0].Episodes[0].ID

	ch := s.WatchSeasons(ctx, 1)
	first := <-ch
	require.NotNil(t, first)
	assert.False(t, first.Episodes()[0].Watched())

	_, err := s.UpdateEpisode(ctx, id, func(local *domain.Episode) (*domain.Episode, error) {
		next := *local
		next.WatchedAt = time.Now()
		return &next, nil
	})
	require.NoError(t, err)

	select {
	case got := <-ch:
		require.NotNil(t, got)
		assert.True(t, got.Episodes()[0].Watched())
	case <-time.After(2 * time.Second):
		t.Fatal("no emission after episode write")
	}
}

func TestDeleteSeasons(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	stored := replaceSeasons(t, s, 1, domain.Season{Number: 1, Episodes: []domain.Episode{{Number: 1}}})
	replaceSeasons(t, s, 2, domain.Season{Number: 1, Episodes: []domain.Episode{{Number: 1}}})

	require.NoError(t, s.DeleteSeasons(ctx, 1))
	_, err := s.GetSeasons(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrNotFoundLocally)
	_, err = s.GetEpisode(ctx, stored.Seasons[0].Episodes[0].ID)
	assert.ErrorIs(t, err, domain.ErrNotFoundLocally)

	other, err := s.GetSeasons(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, other.Episodes(), 1)

	require.NoError(t, s.DeleteAllEpisodes(ctx))
	_, err = s.GetSeasons(ctx, 2)
	assert.ErrorIs(t, err, domain.ErrNotFoundLocally)
}
