package store

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/mmcdole/showsync/internal/domain"
	bolt "go.etcd.io/bbolt"
)

func listKey(list domain.ListName) string { return "list:" + string(list) }

// ReplaceListPage replaces the entries of one page of a list. Entries on
// other pages are kept.
func (s *LibraryStore) ReplaceListPage(ctx context.Context, list domain.ListName, page int, entries []domain.ListEntry) error {
	return s.update("replace list page", func(tx *bolt.Tx, touched *[]string) error {
		b, err := tx.Bucket(bucketLists).CreateBucketIfNotExists([]byte(list))
		if err != nil {
			return err
		}
		var stale [][]byte
		err = b.ForEach(func(k, v []byte) error {
			var e domain.ListEntry
			if err := json.Unmarshal(v, &e); err != nil {
				return err
			}
			if e.Page == page {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		for i := range entries {
			entries[i].Page = page
		}
		if err := putEntries(b, list, entries); err != nil {
			return err
		}
		*touched = append(*touched, listKey(list))
		return nil
	})
}

// ReplaceList replaces the whole list.
func (s *LibraryStore) ReplaceList(ctx context.Context, list domain.ListName, entries []domain.ListEntry) error {
	return s.update("replace list", func(tx *bolt.Tx, touched *[]string) error {
		lists := tx.Bucket(bucketLists)
		if lists.Bucket([]byte(list)) != nil {
			if err := lists.DeleteBucket([]byte(list)); err != nil {
				return err
			}
		}
		b, err := lists.CreateBucket([]byte(list))
		if err != nil {
			return err
		}
		if err := putEntries(b, list, entries); err != nil {
			return err
		}
		*touched = append(*touched, listKey(list))
		return nil
	})
}

// ListEntries returns the entries of a list ordered by page and position.
func (s *LibraryStore) ListEntries(ctx context.Context, list domain.ListName) ([]domain.ListEntry, error) {
	var entries []domain.ListEntry
	err := s.view("list entries", func(tx *bolt.Tx) error {
		var err error
		entries, err = readEntries(tx, list)
		return err
	})
	return entries, err
}

// EntriesWithShow joins every entry of a list with its show and images in
// one read transaction. Entries whose show is missing are skipped.
func (s *LibraryStore) EntriesWithShow(ctx context.Context, list domain.ListName) ([]domain.EntryWithShow, error) {
	var result []domain.EntryWithShow
	err := s.view("entries with show", func(tx *bolt.Tx) error {
		entries, err := readEntries(tx, list)
		if err != nil {
			return err
		}
		result = make([]domain.EntryWithShow, 0, len(entries))
		for _, e := range entries {
			show, err := readShow(tx, e.ShowID)
			if err != nil {
				return err
			}
			if show == nil {
				continue
			}
			var images domain.ShowImages
			if _, err := getJSON(tx.Bucket(bucketImages), itob(e.ShowID), &images); err != nil {
				return err
			}
			result = append(result, domain.EntryWithShow{Entry: e, Show: *show, Images: images.Images})
		}
		return nil
	})
	return result, err
}

// WatchList emits the joined entries of a list and re-emits after every
// write to the list.
func (s *LibraryStore) WatchList(ctx context.Context, list domain.ListName) <-chan *[]domain.EntryWithShow {
	return watch(ctx, s, listKey(list), func(ctx context.Context) (*[]domain.EntryWithShow, error) {
		entries, err := s.EntriesWithShow(ctx, list)
		if err != nil {
			return nil, err
		}
		return &entries, nil
	})
}

// putEntries keys each entry by its page and its index within the page, so
// pages fetched with different sizes never overwrite each other.
func putEntries(b *bolt.Bucket, list domain.ListName, entries []domain.ListEntry) error {
	for i, e := range entries {
		e.List = list
		if err := putJSON(b, entryKey(e.Page, i), e); err != nil {
			return err
		}
	}
	return nil
}

func entryKey(page, index int) []byte {
	return append(itob(int64(page)), itob(int64(index))...)
}

func readEntries(tx *bolt.Tx, list domain.ListName) ([]domain.ListEntry, error) {
	b := tx.Bucket(bucketLists).Bucket([]byte(list))
	if b == nil {
		return nil, nil
	}
	var entries []domain.ListEntry
	err := b.ForEach(func(k, v []byte) error {
		var e domain.ListEntry
		if err := json.Unmarshal(v, &e); err != nil {
			return err
		}
		entries = append(entries, e)
		return nil
	})
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Page != entries[j].Page {
			return entries[i].Page < entries[j].Page
		}
		return entries[i].Position < entries[j].Position
	})
	return entries, err
}
