package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/mmcdole/showsync/internal/domain"
	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	bucketShows        = []byte("shows")
	bucketShowIndex    = []byte("show_ids") // external key -> local id
	bucketImages       = []byte("images")
	bucketLists        = []byte("lists")         // one nested bucket per list
	bucketLastRequests = []byte("last_requests") // one nested bucket per entity type
	bucketAuth         = []byte("auth")
	bucketSeasons      = []byte("seasons")     // show id -> season numbers
	bucketEpisodes     = []byte("episodes")    // episode id -> episode
	bucketEpisodeIndex = []byte("episode_ids") // show id, season, number -> episode id
)

var allBuckets = [][]byte{
	bucketShows, bucketShowIndex, bucketImages, bucketLists, bucketLastRequests, bucketAuth,
	bucketSeasons, bucketEpisodes, bucketEpisodeIndex,
}

// LibraryStore is the local source of truth, backed by BoltDB.
// Bolt serializes write transactions, which makes every Update below an
// atomic read-modify-write.
type LibraryStore struct {
	db      *bolt.DB
	watches *broker
	logger  *slog.Logger
}

// Open opens (or creates) the database in dir.
func Open(dir string, logger *slog.Logger) (*LibraryStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dir, "showsync.db")
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &LibraryStore{db: db, watches: newBroker(), logger: logger}, nil
}

func (s *LibraryStore) Close() error {
	return s.db.Close()
}

// === Generic helpers ===

func itob(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}

func btoi(b []byte) int64 {
	return int64(binary.BigEndian.Uint64(b))
}

// getJSON decodes the value at key into dest. Returns false if absent.
func getJSON(b *bolt.Bucket, key []byte, dest interface{}) (bool, error) {
	v := b.Get(key)
	if v == nil {
		return false, nil
	}
	if err := json.Unmarshal(v, dest); err != nil {
		return false, fmt.Errorf("decode %q: %w", key, err)
	}
	return true, nil
}

func putJSON(b *bolt.Bucket, key []byte, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return b.Put(key, data)
}

// clearBucket deletes every key in b. Nested buckets are deleted too.
func clearBucket(b *bolt.Bucket) error {
	var keys, nested [][]byte
	err := b.ForEach(func(k, v []byte) error {
		key := append([]byte(nil), k...)
		if v == nil {
			nested = append(nested, key)
		} else {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := b.Delete(k); err != nil {
			return err
		}
	}
	for _, k := range nested {
		if err := b.DeleteBucket(k); err != nil {
			return err
		}
	}
	return nil
}

// view runs a read transaction, wrapping failures as storage errors.
func (s *LibraryStore) view(op string, fn func(tx *bolt.Tx) error) error {
	return domain.NewStorageError(op, s.db.View(fn))
}

// update runs a write transaction and, once committed, wakes the watchers
// of every key the transaction touched.
func (s *LibraryStore) update(op string, fn func(tx *bolt.Tx, touched *[]string) error) error {
	var touched []string
	err := s.db.Update(func(tx *bolt.Tx) error {
		return fn(tx, &touched)
	})
	if err != nil {
		return domain.NewStorageError(op, err)
	}
	s.watches.notify(touched...)
	return nil
}
