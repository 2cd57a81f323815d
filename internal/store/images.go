package store

import (
	"context"
	"fmt"
	"strconv"

	"github.com/mmcdole/showsync/internal/domain"
	bolt "go.etcd.io/bbolt"
)

func imagesKey(showID int64) string { return "images:" + strconv.FormatInt(showID, 10) }

// GetImages returns the image set for a show, or ErrNotFoundLocally if the
// set was never written.
func (s *LibraryStore) GetImages(ctx context.Context, showID int64) (*domain.ShowImages, error) {
	var set domain.ShowImages
	var ok bool
	err := s.view("get images", func(tx *bolt.Tx) error {
		var err error
		ok, err = getJSON(tx.Bucket(bucketImages), itob(showID), &set)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("images for show %d: %w", showID, domain.ErrNotFoundLocally)
	}
	return &set, nil
}

// ReplaceImages overwrites the whole image set of a show.
func (s *LibraryStore) ReplaceImages(ctx context.Context, showID int64, images []domain.ShowImage) (*domain.ShowImages, error) {
	set := &domain.ShowImages{ShowID: showID, Images: make([]domain.ShowImage, len(images))}
	for i, img := range images {
		img.ShowID = showID
		set.Images[i] = img
	}
	err := s.update("replace images", func(tx *bolt.Tx, touched *[]string) error {
		*touched = append(*touched, imagesKey(showID))
		return putJSON(tx.Bucket(bucketImages), itob(showID), set)
	})
	if err != nil {
		return nil, err
	}
	return set, nil
}

// DeleteImages removes the image set of a show.
func (s *LibraryStore) DeleteImages(ctx context.Context, showID int64) error {
	return s.update("delete images", func(tx *bolt.Tx, touched *[]string) error {
		*touched = append(*touched, imagesKey(showID))
		return tx.Bucket(bucketImages).Delete(itob(showID))
	})
}

// DeleteAllImages removes every image set.
func (s *LibraryStore) DeleteAllImages(ctx context.Context) error {
	err := s.update("delete all images", func(tx *bolt.Tx, _ *[]string) error {
		return clearBucket(tx.Bucket(bucketImages))
	})
	if err == nil {
		s.watches.notifyPrefix("images:")
	}
	return err
}

// WatchImages emits the image set of a show and re-emits after each write.
func (s *LibraryStore) WatchImages(ctx context.Context, showID int64) <-chan *domain.ShowImages {
	return watch(ctx, s, imagesKey(showID), func(ctx context.Context) (*domain.ShowImages, error) {
		return s.GetImages(ctx, showID)
	})
}
