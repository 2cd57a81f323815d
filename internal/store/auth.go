package store

import (
	"context"

	"github.com/mmcdole/showsync/internal/domain"
	bolt "go.etcd.io/bbolt"
)

var authKey = []byte("state")

// AuthStore persists the session's auth state in the auth bucket.
type AuthStore struct {
	store *LibraryStore
}

var _ domain.AuthStore = (*AuthStore)(nil)

// Auth returns the auth state persistence for this store.
func (s *LibraryStore) Auth() *AuthStore {
	return &AuthStore{store: s}
}

func (a *AuthStore) Load(ctx context.Context) (domain.AuthState, bool, error) {
	var state domain.AuthState
	var ok bool
	err := a.store.view("load auth", func(tx *bolt.Tx) error {
		var err error
		ok, err = getJSON(tx.Bucket(bucketAuth), authKey, &state)
		return err
	})
	return state, ok, err
}

func (a *AuthStore) Save(ctx context.Context, state domain.AuthState) error {
	return a.store.update("save auth", func(tx *bolt.Tx, _ *[]string) error {
		return putJSON(tx.Bucket(bucketAuth), authKey, state)
	})
}

func (a *AuthStore) Clear(ctx context.Context) error {
	return a.store.update("clear auth", func(tx *bolt.Tx, _ *[]string) error {
		return tx.Bucket(bucketAuth).Delete(authKey)
	})
}
