package library

import (
	"context"
	"testing"
	"time"

	"github.com/mmcdole/showsync/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func remoteSeasons(aired time.Time) []domain.RemoteSeason {
	episode := func(season, number int) domain.RemoteEpisode {
		return domain.RemoteEpisode{
			TraktID: season*100 + number,
			Season:  season,
			Number:  number,
			Details: domain.EpisodeDetails{Title: "Episode", FirstAired: aired},
		}
	}
	return []domain.RemoteSeason{
		{Number: 0, Episodes: []domain.RemoteEpisode{episode(0, 1)}},
		{Number: 1, Episodes: []domain.RemoteEpisode{episode(1, 1), episode(1, 2)}},
		{Number: 2, Episodes: []domain.RemoteEpisode{episode(2, 1)}},
	}
}

func TestRefreshSeasons_FreshWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.episodes.seasons = remoteSeasons(f.now.Add(-48 * time.Hour))
	show, err := f.svc.Upsert(ctx, &domain.RemoteShow{IDs: domain.ShowIDs{TraktID: 1}})
	require.NoError(t, err)

	seasons, err := f.svc.RefreshSeasons(ctx, show.ID, false)
	require.NoError(t, err)
	require.Len(t, seasons.Seasons, 3)
	assert.Len(t, seasons.Episodes(), 4)

	_, err = f.svc.RefreshSeasons(ctx, show.ID, false)
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.episodes.seasonCalls.Load())

	_, err = f.svc.RefreshSeasons(ctx, 999, false)
	assert.ErrorIs(t, err, domain.ErrNotFoundLocally)
}

func TestNextEpisodeToWatch_FollowsProgress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.episodes.seasons = remoteSeasons(f.now.Add(-48 * time.Hour))
	show, err := f.svc.Upsert(ctx, &domain.RemoteShow{IDs: domain.ShowIDs{TraktID: 1}})
	require.NoError(t, err)
	_, err = f.svc.RefreshSeasons(ctx, show.ID, false)
	require.NoError(t, err)

	next, err := f.svc.NextEpisodeToWatch(ctx, show.ID)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, 1, next.Season)
	assert.Equal(t, 1, next.Number)

	f.episodes.watches = []domain.EpisodeWatch{
		{Season: 1, Number: 1, WatchedAt: f.now.Add(-2 * time.Hour)},
		{Season: 1, Number: 2, WatchedAt: f.now.Add(-time.Hour)},
	}
	_, err = f.svc.SyncProgress(ctx, show.ID)
	require.NoError(t, err)

	next, err = f.svc.NextEpisodeToWatch(ctx, show.ID)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, 2, next.Season)
	assert.Equal(t, 1, next.Number)

	_, err = f.svc.MarkEpisodeWatched(ctx, next.ID, f.now)
	require.NoError(t, err)
	next, err = f.svc.NextEpisodeToWatch(ctx, show.ID)
	require.NoError(t, err)
	assert.Nil(t, next, "caught up")

	stored, err := f.svc.GetShow(ctx, show.ID)
	require.NoError(t, err)
	assert.True(t, f.now.Equal(stored.LastWatchedAt))
}

func TestObserveNextEpisodeToWatch(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.episodes.seasons = remoteSeasons(f.now.Add(-48 * time.Hour))
	show, err := f.svc.Upsert(ctx, &domain.RemoteShow{IDs: domain.ShowIDs{TraktID: 1}})
	require.NoError(t, err)

	ch := f.svc.ObserveNextEpisodeToWatch(ctx, show.ID)
	select {
	case ep := <-ch:
		assert.Nil(t, ep)
	case <-time.After(2 * time.Second):
		t.Fatal("no initial emission")
	}

	_, err = f.svc.RefreshSeasons(ctx, show.ID, false)
	require.NoError(t, err)

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ep := <-ch:
			if ep == nil {
				continue
			}
			assert.Equal(t, 1, ep.Season)
			assert.Equal(t, 1, ep.Number)
			return
		case <-deadline:
			t.Fatal("next episode never emitted")
		}
	}
}

func TestRefreshEpisode_KeepsWatchState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.episodes.seasons = remoteSeasons(f.now.Add(-48 * time.Hour))
	show, err := f.svc.Upsert(ctx, &domain.RemoteShow{IDs: domain.ShowIDs{TraktID: 1}})
	require.NoError(t, err)
	seasons, err := f.svc.RefreshSeasons(ctx, show.ID, false)
	require.NoError(t, err)
	first := seasons.Seasons[1].Episodes[0]

	_, err = f.svc.MarkEpisodeWatched(ctx, first.ID, f.now)
	require.NoError(t, err)

	f.episodes.episode = &domain.RemoteEpisode{TraktID: 101, Season: 1, Number: 1, Details: domain.EpisodeDetails{Title: "Pilot"}}
	ep, err := f.svc.RefreshEpisode(ctx, first.ID, false)
	require.NoError(t, err)
	assert.Equal(t, "Pilot", ep.Title)
	assert.True(t, f.now.Equal(ep.WatchedAt))
	assert.Equal(t, show.ID, ep.ShowID)

	_, err = f.svc.RefreshEpisode(ctx, first.ID, false)
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.episodes.episodeCalls.Load())
}
