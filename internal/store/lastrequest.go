package store

import (
	"time"

	"github.com/mmcdole/showsync/internal/domain"
	bolt "go.etcd.io/bbolt"
)

// LastRequests stores the last successful fetch time per entity id for one
// entity type. Each entity type gets its own nested bucket.
type LastRequests struct {
	store  *LibraryStore
	entity []byte
}

var _ domain.LastRequestStore = (*LastRequests)(nil)

// LastRequests returns the last-request records for an entity type.
func (s *LibraryStore) LastRequests(entity string) *LastRequests {
	return &LastRequests{store: s, entity: []byte(entity)}
}

// LastRequest returns when id was last fetched successfully.
func (l *LastRequests) LastRequest(id int64) (time.Time, bool, error) {
	var at time.Time
	var ok bool
	err := l.store.view("get last request", func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketLastRequests).Bucket(l.entity)
		if b == nil {
			return nil
		}
		if v := b.Get(itob(id)); v != nil {
			at = time.Unix(0, btoi(v))
			ok = true
		}
		return nil
	})
	return at, ok, err
}

// UpdateLastRequest records a successful fetch of id at the given time.
func (l *LastRequests) UpdateLastRequest(id int64, at time.Time) error {
	return l.store.update("update last request", func(tx *bolt.Tx, _ *[]string) error {
		b, err := tx.Bucket(bucketLastRequests).CreateBucketIfNotExists(l.entity)
		if err != nil {
			return err
		}
		return b.Put(itob(id), itob(at.UnixNano()))
	})
}

// DeleteLastRequest forgets the record for id.
func (l *LastRequests) DeleteLastRequest(id int64) error {
	return l.store.update("delete last request", func(tx *bolt.Tx, _ *[]string) error {
		b := tx.Bucket(bucketLastRequests).Bucket(l.entity)
		if b == nil {
			return nil
		}
		return b.Delete(itob(id))
	})
}

// DeleteAllLastRequests forgets every record of this entity type.
func (l *LastRequests) DeleteAllLastRequests() error {
	return l.store.update("delete all last requests", func(tx *bolt.Tx, _ *[]string) error {
		if tx.Bucket(bucketLastRequests).Bucket(l.entity) == nil {
			return nil
		}
		return tx.Bucket(bucketLastRequests).DeleteBucket(l.entity)
	})
}
