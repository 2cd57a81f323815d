package library

import (
	"context"

	"github.com/mmcdole/showsync/internal/domain"
	"github.com/mmcdole/showsync/internal/entity"
	"github.com/mmcdole/showsync/internal/fetch"
	"github.com/mmcdole/showsync/internal/staleness"
	"github.com/mmcdole/showsync/internal/store"
)

// showSource adapts the library store to entity.Source for shows
type showSource struct{ store *store.LibraryStore }

func (s showSource) Get(ctx context.Context, id int64) (*domain.Show, error) {
	return s.store.GetShow(ctx, id)
}

func (s showSource) Watch(ctx context.Context, id int64) <-chan *domain.Show {
	return s.store.WatchShow(ctx, id)
}

func (s showSource) Delete(ctx context.Context, id int64) error {
	return s.store.DeleteShow(ctx, id)
}

func (s showSource) DeleteAll(ctx context.Context) error {
	return s.store.DeleteAllShows(ctx)
}

// imageSource adapts the library store to entity.Source for image sets
type imageSource struct{ store *store.LibraryStore }

func (s imageSource) Get(ctx context.Context, id int64) (*domain.ShowImages, error) {
	return s.store.GetImages(ctx, id)
}

func (s imageSource) Watch(ctx context.Context, id int64) <-chan *domain.ShowImages {
	return s.store.WatchImages(ctx, id)
}

func (s imageSource) Delete(ctx context.Context, id int64) error {
	return s.store.DeleteImages(ctx, id)
}

func (s imageSource) DeleteAll(ctx context.Context) error {
	return s.store.DeleteAllImages(ctx)
}

func providerSource[T any](name string, fn func(ctx context.Context, hints domain.ShowIDs) (T, error)) fetch.Source[domain.ShowIDs, T] {
	return fetch.Source[domain.ShowIDs, T]{Name: name, Fetch: fn}
}

func (s *Service) newShowStore() *entity.Store[domain.Show, *domain.RemoteShow] {
	primary := providerSource(s.providers.Primary.Name(), s.providers.Primary.GetShow)
	var secondary *fetch.Source[domain.ShowIDs, *domain.RemoteShow]
	if s.providers.Secondary != nil {
		src := providerSource(s.providers.Secondary.Name(), s.providers.Secondary.GetShow)
		secondary = &src
	}
	fetcher := fetch.NewFallback(EntityShow, primary, secondary, s.opts.Retry, s.logger)

	return entity.New(entity.Config[domain.Show, *domain.RemoteShow]{
		Name:   EntityShow,
		Source: showSource{s.store},
		Fetch: func(ctx context.Context, id int64, local *domain.Show) (*domain.RemoteShow, error) {
			// Providers are addressed by external id; a show must be
			// tracked before it can be refreshed.
			if local == nil {
				return nil, domain.ErrNotFoundLocally
			}
			return fetcher.Fetch(ctx, local.ShowIDs)
		},
		Write:  s.reconciler.WriteShow,
		Policy: staleness.NewPolicy(s.store.LastRequests(EntityShow), s.opts.ShowWindow, s.opts.Clock),
		Logger: s.logger,
	})
}

func (s *Service) newImageStore() *entity.Store[domain.ShowImages, []domain.ShowImage] {
	primary := providerSource(s.providers.Images.Name(), s.providers.Images.GetShowImages)
	fetcher := fetch.NewFallback[domain.ShowIDs, []domain.ShowImage](EntityImages, primary, nil, s.opts.Retry, s.logger)

	return entity.New(entity.Config[domain.ShowImages, []domain.ShowImage]{
		Name:   EntityImages,
		Source: imageSource{s.store},
		Fetch: func(ctx context.Context, id int64, _ *domain.ShowImages) ([]domain.ShowImage, error) {
			show, err := s.store.GetShow(ctx, id)
			if err != nil {
				return nil, err
			}
			return fetcher.Fetch(ctx, show.ShowIDs)
		},
		Write:  s.store.ReplaceImages,
		Policy: staleness.NewPolicy(s.store.LastRequests(EntityImages), s.opts.ImageWindow, s.opts.Clock),
		Logger: s.logger,
	})
}

// RefreshShow returns the show, fetching it first if it is stale or force is set.
func (s *Service) RefreshShow(ctx context.Context, id int64, force bool) (*domain.Show, error) {
	return s.Shows.Refresh(ctx, id, force)
}

// RefreshImages returns the show's images, fetching them first if they are
// stale or force is set.
func (s *Service) RefreshImages(ctx context.Context, id int64, force bool) (*domain.ShowImages, error) {
	return s.Images.Refresh(ctx, id, force)
}
