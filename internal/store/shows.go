package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/mmcdole/showsync/internal/domain"
	bolt "go.etcd.io/bbolt"
)

// ShowMutation computes the new record from the current one. local is nil
// when no record exists yet. Returning nil leaves the store unchanged.
type ShowMutation func(local *domain.Show) (*domain.Show, error)

func showKey(id int64) string { return "show:" + strconv.FormatInt(id, 10) }

// GetShow returns the show with the given local id, or ErrNotFoundLocally.
func (s *LibraryStore) GetShow(ctx context.Context, id int64) (*domain.Show, error) {
	var show *domain.Show
	err := s.view("get show", func(tx *bolt.Tx) error {
		var err error
		show, err = readShow(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if show == nil {
		return nil, fmt.Errorf("show %d: %w", id, domain.ErrNotFoundLocally)
	}
	return show, nil
}

// FindShowID resolves a local id from any of the external ids in ids.
func (s *LibraryStore) FindShowID(ctx context.Context, ids domain.ShowIDs) (int64, bool, error) {
	var id int64
	err := s.view("find show", func(tx *bolt.Tx) error {
		id = lookupIndex(tx, ids)
		return nil
	})
	return id, id != 0, err
}

// ListShows returns every show ordered by local id.
func (s *LibraryStore) ListShows(ctx context.Context) ([]*domain.Show, error) {
	var shows []*domain.Show
	err := s.view("list shows", func(tx *bolt.Tx) error {
		return tx.Bucket(bucketShows).ForEach(func(k, v []byte) error {
			var show domain.Show
			if err := json.Unmarshal(v, &show); err != nil {
				return fmt.Errorf("decode show %d: %w", btoi(k), err)
			}
			shows = append(shows, &show)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(shows, func(i, j int) bool { return shows[i].ID < shows[j].ID })
	return shows, nil
}

// UpdateShow applies fn to the record with the given id inside a single
// write transaction. Concurrent updates of the same id are serialized, so
// each one sees the result of the previous.
func (s *LibraryStore) UpdateShow(ctx context.Context, id int64, fn ShowMutation) (*domain.Show, error) {
	var result *domain.Show
	err := s.update("update show", func(tx *bolt.Tx, touched *[]string) error {
		local, err := readShow(tx, id)
		if err != nil {
			return err
		}
		result, err = applyMutation(tx, id, local, fn, touched)
		return err
	})
	return result, err
}

// UpsertShow finds the record matching any external id in ids and applies
// fn to it. When nothing matches, fn receives nil and its result is inserted
// under a newly assigned local id.
func (s *LibraryStore) UpsertShow(ctx context.Context, ids domain.ShowIDs, fn ShowMutation) (*domain.Show, error) {
	var result *domain.Show
	err := s.update("upsert show", func(tx *bolt.Tx, touched *[]string) error {
		var local *domain.Show
		for _, id := range []int64{ids.ID, lookupIndex(tx, ids)} {
			if id == 0 {
				continue
			}
			found, err := readShow(tx, id)
			if err != nil {
				return err
			}
			if found != nil {
				local = found
				break
			}
		}

		var id int64
		if local != nil {
			id = local.ID
		} else {
			seq, err := tx.Bucket(bucketShows).NextSequence()
			if err != nil {
				return err
			}
			id = int64(seq)
		}

		var err error
		result, err = applyMutation(tx, id, local, fn, touched)
		return err
	})
	return result, err
}

// DeleteShow removes a show and its external id index entries. Deleting a
// missing show is not an error.
func (s *LibraryStore) DeleteShow(ctx context.Context, id int64) error {
	return s.update("delete show", func(tx *bolt.Tx, touched *[]string) error {
		show, err := readShow(tx, id)
		if err != nil || show == nil {
			return err
		}
		index := tx.Bucket(bucketShowIndex)
		for _, key := range show.ExternalKeys() {
			if v := index.Get([]byte(key)); v != nil && btoi(v) == id {
				if err := index.Delete([]byte(key)); err != nil {
					return err
				}
			}
		}
		*touched = append(*touched, showKey(id))
		return tx.Bucket(bucketShows).Delete(itob(id))
	})
}

// DeleteAllShows removes every show.
func (s *LibraryStore) DeleteAllShows(ctx context.Context) error {
	err := s.update("delete all shows", func(tx *bolt.Tx, _ *[]string) error {
		if err := clearBucket(tx.Bucket(bucketShows)); err != nil {
			return err
		}
		return clearBucket(tx.Bucket(bucketShowIndex))
	})
	if err == nil {
		s.watches.notifyPrefix("show:")
	}
	return err
}

// WatchShow emits the current record (nil if absent) and then the latest
// record after every write to it, until ctx is cancelled.
func (s *LibraryStore) WatchShow(ctx context.Context, id int64) <-chan *domain.Show {
	return watch(ctx, s, showKey(id), func(ctx context.Context) (*domain.Show, error) {
		return s.GetShow(ctx, id)
	})
}

// --- tx-level helpers ---

func readShow(tx *bolt.Tx, id int64) (*domain.Show, error) {
	var show domain.Show
	ok, err := getJSON(tx.Bucket(bucketShows), itob(id), &show)
	if err != nil || !ok {
		return nil, err
	}
	return &show, nil
}

func lookupIndex(tx *bolt.Tx, ids domain.ShowIDs) int64 {
	index := tx.Bucket(bucketShowIndex)
	for _, key := range ids.ExternalKeys() {
		if v := index.Get([]byte(key)); v != nil {
			return btoi(v)
		}
	}
	return 0
}

func applyMutation(tx *bolt.Tx, id int64, local *domain.Show, fn ShowMutation, touched *[]string) (*domain.Show, error) {
	next, err := fn(local)
	if err != nil || next == nil {
		return local, err
	}
	// The local id never changes once assigned.
	next.ID = id

	shows := tx.Bucket(bucketShows)
	if local == nil && uint64(id) > shows.Sequence() {
		// Keep the sequence ahead of ids inserted by explicit key.
		if err := shows.SetSequence(uint64(id)); err != nil {
			return nil, err
		}
	}
	if err := putJSON(shows, itob(id), next); err != nil {
		return nil, err
	}
	index := tx.Bucket(bucketShowIndex)
	for _, key := range next.ExternalKeys() {
		if index.Get([]byte(key)) != nil {
			continue // first write wins
		}
		if err := index.Put([]byte(key), itob(id)); err != nil {
			return nil, err
		}
	}
	*touched = append(*touched, showKey(id))
	return next, nil
}
