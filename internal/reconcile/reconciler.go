package reconcile

import (
	"context"
	"log/slog"

	"github.com/mmcdole/showsync/internal/domain"
	"github.com/mmcdole/showsync/internal/store"
)

// Writer is the transactional write contract the reconciler needs.
type Writer interface {
	UpdateShow(ctx context.Context, id int64, fn store.ShowMutation) (*domain.Show, error)
	UpsertShow(ctx context.Context, ids domain.ShowIDs, fn store.ShowMutation) (*domain.Show, error)
	ReplaceImages(ctx context.Context, showID int64, images []domain.ShowImage) (*domain.ShowImages, error)
	UpdateSeasons(ctx context.Context, showID int64, fn store.SeasonsMutation) (*domain.ShowSeasons, error)
	UpdateEpisode(ctx context.Context, id int64, fn store.EpisodeMutation) (*domain.Episode, error)
}

// Reconciler writes remote results into the local store. The merge reads
// the current record inside the same write transaction, so concurrent
// writers of one show never overwrite each other's user state.
type Reconciler struct {
	store  Writer
	logger *slog.Logger
}

// NewReconciler creates a reconciler over store.
func NewReconciler(store Writer, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{store: store, logger: logger}
}

// WriteShow merges remote into the record with local id id.
func (r *Reconciler) WriteShow(ctx context.Context, id int64, remote *domain.RemoteShow) (*domain.Show, error) {
	show, err := r.store.UpdateShow(ctx, id, func(local *domain.Show) (*domain.Show, error) {
		return MergeShow(local, *remote), nil
	})
	if err != nil {
		r.logger.Error("failed to write show", "error", err, "showID", id)
		return nil, err
	}
	r.writeImages(ctx, show.ID, remote)
	return show, nil
}

// UpsertShow merges remote into whichever record shares an external id
// with it, inserting a new record if none does.
func (r *Reconciler) UpsertShow(ctx context.Context, remote *domain.RemoteShow) (*domain.Show, error) {
	show, err := r.store.UpsertShow(ctx, remote.IDs, func(local *domain.Show) (*domain.Show, error) {
		return MergeShow(local, *remote), nil
	})
	if err != nil {
		r.logger.Error("failed to upsert show", "error", err, "source", remote.Source)
		return nil, err
	}
	r.writeImages(ctx, show.ID, remote)
	return show, nil
}

// EnsureShow returns the record matching remote's external ids, inserting
// remote as a new record if none exists. An existing record only gains the
// ids it was missing; abbreviated results such as search hits must not
// replace fully fetched details.
func (r *Reconciler) EnsureShow(ctx context.Context, remote *domain.RemoteShow) (*domain.Show, error) {
	show, err := r.store.UpsertShow(ctx, remote.IDs, func(local *domain.Show) (*domain.Show, error) {
		if local == nil {
			return MergeShow(nil, *remote), nil
		}
		next := *local
		next.ShowIDs = mergeIDs(local.ShowIDs, remote.IDs)
		return &next, nil
	})
	if err != nil {
		r.logger.Error("failed to ensure show", "error", err, "source", remote.Source)
		return nil, err
	}
	return show, nil
}

// UpdateUserState changes locally owned fields only.
func (r *Reconciler) UpdateUserState(ctx context.Context, id int64, fn func(*domain.ShowUserState)) (*domain.Show, error) {
	return r.store.UpdateShow(ctx, id, func(local *domain.Show) (*domain.Show, error) {
		if local == nil {
			return nil, domain.ErrNotFoundLocally
		}
		next := *local
		fn(&next.ShowUserState)
		return &next, nil
	})
}

// writeImages stores images that came along with a show. Failure here does
// not fail the show write; images have their own refresh cycle.
func (r *Reconciler) writeImages(ctx context.Context, showID int64, remote *domain.RemoteShow) {
	if len(remote.Images) == 0 {
		return
	}
	if _, err := r.store.ReplaceImages(ctx, showID, remote.Images); err != nil {
		r.logger.Warn("failed to write show images", "error", err, "showID", showID)
	}
}
