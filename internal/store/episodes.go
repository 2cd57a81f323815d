package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/mmcdole/showsync/internal/domain"
	bolt "go.etcd.io/bbolt"
)

// SeasonsMutation computes a show's new seasons from the current ones.
// local is nil when the seasons were never stored. Episodes with a zero id
// are inserted; stored episodes missing from the result are deleted.
type SeasonsMutation func(local *domain.ShowSeasons) (*domain.ShowSeasons, error)

// EpisodeMutation computes the new episode from the current one.
type EpisodeMutation func(local *domain.Episode) (*domain.Episode, error)

func seasonsKey(showID int64) string { return "seasons:" + strconv.FormatInt(showID, 10) }

func episodeKey(id int64) string { return "episode:" + strconv.FormatInt(id, 10) }

func episodeIndexKey(showID int64, season, number int) []byte {
	key := make([]byte, 0, 24)
	key = append(key, itob(showID)...)
	key = append(key, itob(int64(season))...)
	return append(key, itob(int64(number))...)
}

// GetSeasons returns every season of a show, or ErrNotFoundLocally if they
// were never stored.
func (s *LibraryStore) GetSeasons(ctx context.Context, showID int64) (*domain.ShowSeasons, error) {
	var seasons *domain.ShowSeasons
	err := s.view("get seasons", func(tx *bolt.Tx) error {
		var err error
		seasons, err = readSeasons(tx, showID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if seasons == nil {
		return nil, fmt.Errorf("seasons of show %d: %w", showID, domain.ErrNotFoundLocally)
	}
	return seasons, nil
}

// UpdateSeasons applies fn to a show's seasons inside one write transaction.
func (s *LibraryStore) UpdateSeasons(ctx context.Context, showID int64, fn SeasonsMutation) (*domain.ShowSeasons, error) {
	var result *domain.ShowSeasons
	err := s.update("update seasons", func(tx *bolt.Tx, touched *[]string) error {
		local, err := readSeasons(tx, showID)
		if err != nil {
			return err
		}
		next, err := fn(local)
		if err != nil || next == nil {
			result = local
			return err
		}
		next.ShowID = showID
		if err := writeSeasons(tx, local, next, touched); err != nil {
			return err
		}
		result = next
		return nil
	})
	return result, err
}

// GetEpisode returns the episode with the given local id, or ErrNotFoundLocally.
func (s *LibraryStore) GetEpisode(ctx context.Context, id int64) (*domain.Episode, error) {
	var ep domain.Episode
	var ok bool
	err := s.view("get episode", func(tx *bolt.Tx) error {
		var err error
		ok, err = getJSON(tx.Bucket(bucketEpisodes), itob(id), &ep)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("episode %d: %w", id, domain.ErrNotFoundLocally)
	}
	return &ep, nil
}

// UpdateEpisode applies fn to a stored episode inside one write
// transaction. The id, show and position of an episode never change.
func (s *LibraryStore) UpdateEpisode(ctx context.Context, id int64, fn EpisodeMutation) (*domain.Episode, error) {
	var result *domain.Episode
	err := s.update("update episode", func(tx *bolt.Tx, touched *[]string) error {
		var local domain.Episode
		ok, err := getJSON(tx.Bucket(bucketEpisodes), itob(id), &local)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("episode %d: %w", id, domain.ErrNotFoundLocally)
		}
		current := local
		next, err := fn(&current)
		if err != nil || next == nil {
			result = &local
			return err
		}
		next.ID, next.ShowID, next.Season, next.Number = local.ID, local.ShowID, local.Season, local.Number
		if err := putJSON(tx.Bucket(bucketEpisodes), itob(id), next); err != nil {
			return err
		}
		*touched = append(*touched, episodeKey(id), seasonsKey(local.ShowID))
		result = next
		return nil
	})
	return result, err
}

// DeleteSeasons removes a show's seasons and all of its episodes.
func (s *LibraryStore) DeleteSeasons(ctx context.Context, showID int64) error {
	return s.update("delete seasons", func(tx *bolt.Tx, touched *[]string) error {
		local, err := readSeasons(tx, showID)
		if err != nil || local == nil {
			return err
		}
		for _, ep := range local.Episodes() {
			if err := deleteEpisode(tx, &ep, touched); err != nil {
				return err
			}
		}
		*touched = append(*touched, seasonsKey(showID))
		return tx.Bucket(bucketSeasons).Delete(itob(showID))
	})
}

// DeleteEpisode removes one episode. Deleting a missing episode is not an error.
func (s *LibraryStore) DeleteEpisode(ctx context.Context, id int64) error {
	return s.update("delete episode", func(tx *bolt.Tx, touched *[]string) error {
		var ep domain.Episode
		ok, err := getJSON(tx.Bucket(bucketEpisodes), itob(id), &ep)
		if err != nil || !ok {
			return err
		}
		*touched = append(*touched, seasonsKey(ep.ShowID))
		return deleteEpisode(tx, &ep, touched)
	})
}

// DeleteAllEpisodes removes every season and episode.
func (s *LibraryStore) DeleteAllEpisodes(ctx context.Context) error {
	err := s.update("delete all episodes", func(tx *bolt.Tx, _ *[]string) error {
		for _, name := range [][]byte{bucketSeasons, bucketEpisodes, bucketEpisodeIndex} {
			if err := clearBucket(tx.Bucket(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err == nil {
		s.watches.notifyPrefix("seasons:")
		s.watches.notifyPrefix("episode:")
	}
	return err
}

// WatchSeasons emits a show's seasons and re-emits after every write to
// them or to one of their episodes.
func (s *LibraryStore) WatchSeasons(ctx context.Context, showID int64) <-chan *domain.ShowSeasons {
	return watch(ctx, s, seasonsKey(showID), func(ctx context.Context) (*domain.ShowSeasons, error) {
		return s.GetSeasons(ctx, showID)
	})
}

// WatchEpisode emits an episode and re-emits after each write.
func (s *LibraryStore) WatchEpisode(ctx context.Context, id int64) <-chan *domain.Episode {
	return watch(ctx, s, episodeKey(id), func(ctx context.Context) (*domain.Episode, error) {
		return s.GetEpisode(ctx, id)
	})
}

// --- tx-level helpers ---

func readSeasons(tx *bolt.Tx, showID int64) (*domain.ShowSeasons, error) {
	var numbers []int
	ok, err := getJSON(tx.Bucket(bucketSeasons), itob(showID), &numbers)
	if err != nil || !ok {
		return nil, err
	}

	result := &domain.ShowSeasons{ShowID: showID, Seasons: make([]domain.Season, len(numbers))}
	bySeason := make(map[int]int, len(numbers))
	for i, n := range numbers {
		result.Seasons[i].Number = n
		bySeason[n] = i
	}

	episodes := tx.Bucket(bucketEpisodes)
	prefix := itob(showID)
	c := tx.Bucket(bucketEpisodeIndex).Cursor()
	for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
		var ep domain.Episode
		found, err := getJSON(episodes, v, &ep)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		i, ok := bySeason[ep.Season]
		if !ok {
			continue
		}
		result.Seasons[i].Episodes = append(result.Seasons[i].Episodes, ep)
	}
	return result, nil
}

func writeSeasons(tx *bolt.Tx, local, next *domain.ShowSeasons, touched *[]string) error {
	episodes := tx.Bucket(bucketEpisodes)
	index := tx.Bucket(bucketEpisodeIndex)

	kept := make(map[int64]bool)
	numbers := make([]int, 0, len(next.Seasons))
	for si := range next.Seasons {
		season := &next.Seasons[si]
		numbers = append(numbers, season.Number)
		for ei := range season.Episodes {
			ep := &season.Episodes[ei]
			ep.ShowID = next.ShowID
			ep.Season = season.Number
			if ep.ID == 0 {
				seq, err := episodes.NextSequence()
				if err != nil {
					return err
				}
				ep.ID = int64(seq)
			}
			kept[ep.ID] = true
			if err := putJSON(episodes, itob(ep.ID), ep); err != nil {
				return err
			}
			if err := index.Put(episodeIndexKey(next.ShowID, ep.Season, ep.Number), itob(ep.ID)); err != nil {
				return err
			}
			*touched = append(*touched, episodeKey(ep.ID))
		}
	}

	if local != nil {
		for _, ep := range local.Episodes() {
			if kept[ep.ID] {
				continue
			}
			if err := deleteEpisode(tx, &ep, touched); err != nil {
				return err
			}
		}
	}

	data, err := json.Marshal(numbers)
	if err != nil {
		return err
	}
	*touched = append(*touched, seasonsKey(next.ShowID))
	return tx.Bucket(bucketSeasons).Put(itob(next.ShowID), data)
}

func deleteEpisode(tx *bolt.Tx, ep *domain.Episode, touched *[]string) error {
	index := tx.Bucket(bucketEpisodeIndex)
	key := episodeIndexKey(ep.ShowID, ep.Season, ep.Number)
	if v := index.Get(key); v != nil && btoi(v) == ep.ID {
		if err := index.Delete(key); err != nil {
			return err
		}
	}
	*touched = append(*touched, episodeKey(ep.ID))
	return tx.Bucket(bucketEpisodes).Delete(itob(ep.ID))
}
