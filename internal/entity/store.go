// Package entity keeps locally stored entities fresh: it serves cached
// records while they are within their staleness window and refreshes them
// from the remote providers otherwise.
package entity

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"

	"github.com/mmcdole/showsync/internal/domain"
	"github.com/mmcdole/showsync/internal/metrics"
	"github.com/mmcdole/showsync/internal/staleness"
	"github.com/sourcegraph/conc"
	"golang.org/x/sync/singleflight"
)

// Source is the local source of truth for one entity type.
type Source[T any] interface {
	// Get returns the record, or an error matching ErrNotFoundLocally
	Get(ctx context.Context, id int64) (*T, error)

	// Watch emits the record (nil if absent) now and after every write
	Watch(ctx context.Context, id int64) <-chan *T

	Delete(ctx context.Context, id int64) error
	DeleteAll(ctx context.Context) error
}

// FetchFunc fetches the remote representation of id. local is nil when no
// record exists yet.
type FetchFunc[T, R any] func(ctx context.Context, id int64, local *T) (R, error)

// WriteFunc merges remote into the record for id and returns what was stored.
type WriteFunc[T, R any] func(ctx context.Context, id int64, remote R) (*T, error)

// Config wires an entity store.
type Config[T, R any] struct {
	Name   string // Entity type, used in logs and metrics
	Source Source[T]
	Fetch  FetchFunc[T, R]
	Write  WriteFunc[T, R]
	Policy *staleness.Policy
	Logger *slog.Logger
}

// Store orchestrates reads and refreshes for one entity type. At most one
// refresh per id is in flight; concurrent callers share its result.
type Store[T, R any] struct {
	name   string
	source Source[T]
	fetch  FetchFunc[T, R]
	write  WriteFunc[T, R]
	policy *staleness.Policy
	logger *slog.Logger

	flights singleflight.Group

	// freshness wake-ups for observers; the source only signals data writes
	mu       sync.Mutex
	watchers map[int64]map[chan struct{}]struct{}
	closed   bool

	// background refreshes started by Stream
	ctx        context.Context
	cancel     context.CancelFunc
	background conc.WaitGroup
}

// New creates an entity store.
func New[T, R any](cfg Config[T, R]) *Store[T, R] {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Store[T, R]{
		name:     cfg.Name,
		source:   cfg.Source,
		fetch:    cfg.Fetch,
		write:    cfg.Write,
		policy:   cfg.Policy,
		logger:   logger.With("entity", cfg.Name),
		watchers: make(map[int64]map[chan struct{}]struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Get returns the local record regardless of freshness.
func (s *Store[T, R]) Get(ctx context.Context, id int64) (*T, error) {
	return s.source.Get(ctx, id)
}

// IsExpired reports whether id is outside its staleness window.
func (s *Store[T, R]) IsExpired(id int64) bool {
	return s.policy.IsExpired(id)
}

// Observe emits the local record for id immediately and again after every
// write, until ctx is cancelled. While the record is stale (or absent) nil
// is emitted in its place.
func (s *Store[T, R]) Observe(ctx context.Context, id int64) <-chan *T {
	out := make(chan *T)
	wakeups, unsubscribe := s.subscribe(id)
	writes := s.source.Watch(ctx, id)

	go func() {
		defer close(out)
		defer unsubscribe()

		for {
			select {
			case _, ok := <-writes:
				if !ok {
					return
				}
			case <-wakeups:
			case <-ctx.Done():
				return
			}

			// Both signals only trigger a read. A refresh stores the row
			// before it touches the last-request record, so a row read
			// after a fresh check is never older than that check.
			emit, ok := s.current(ctx, id)
			if !ok {
				continue
			}
			select {
			case out <- emit:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

// current reads the record if id is fresh. ok is false when the read failed.
func (s *Store[T, R]) current(ctx context.Context, id int64) (*T, bool) {
	if s.policy.IsExpired(id) {
		return nil, true
	}
	v, err := s.source.Get(ctx, id)
	switch {
	case err == nil:
		return v, true
	case errors.Is(err, domain.ErrNotFoundLocally):
		return nil, true
	default:
		if ctx.Err() == nil {
			s.logger.Warn("observe read failed", "id", id, "error", err)
		}
		return nil, false
	}
}

// Stream is Observe plus one background refresh if id is stale. A failed
// refresh is logged; observers keep seeing the last good record. After
// Close no refresh is started.
func (s *Store[T, R]) Stream(ctx context.Context, id int64) <-chan *T {
	out := s.Observe(ctx, id)
	if !s.policy.IsExpired(id) {
		return out
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.background.Go(func() {
			if _, err := s.Refresh(s.ctx, id, false); err != nil {
				s.logger.Warn("background refresh failed", "id", id, "error", err)
			}
		})
	}
	return out
}

// Refresh returns the local record if it is fresh and force is false.
// Otherwise it fetches, merges and stores a remote result, and records the
// fetch time. The last-request record is only touched on success.
// Forced and unforced calls join separate flights, so a forced call never
// settles for a cached record.
func (s *Store[T, R]) Refresh(ctx context.Context, id int64, force bool) (*T, error) {
	if !force {
		if v, ok, err := s.cached(ctx, id); ok || err != nil {
			return v, err
		}
	}

	// The flight outlives any single caller: once started it completes and
	// persists even if every caller has gone away.
	flightCtx := context.WithoutCancel(ctx)
	key := strconv.FormatInt(id, 10)
	if force {
		key += "/force"
	}
	ch := s.flights.DoChan(key, func() (interface{}, error) {
		if !force {
			// A flight that finished just before this one started may
			// already have refreshed id.
			if v, ok, err := s.cached(flightCtx, id); ok || err != nil {
				return v, err
			}
		}
		return s.refresh(flightCtx, id)
	})

	select {
	case res := <-ch:
		if res.Shared {
			metrics.RefreshTotal.WithLabelValues(s.name, "shared").Inc()
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*T), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Delete removes the record and its last-request entry.
func (s *Store[T, R]) Delete(ctx context.Context, id int64) error {
	if err := s.source.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.policy.Forget(id); err != nil {
		return err
	}
	s.wake(id)
	return nil
}

// DeleteAll removes every record and last-request entry.
func (s *Store[T, R]) DeleteAll(ctx context.Context) error {
	if err := s.source.DeleteAll(ctx); err != nil {
		return err
	}
	if err := s.policy.ForgetAll(); err != nil {
		return err
	}
	s.wakeAll()
	return nil
}

// Close cancels background refreshes and waits for them to finish.
func (s *Store[T, R]) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.background.Wait()
}

// cached returns the local record when id is fresh. ok is false when a
// fetch is needed.
func (s *Store[T, R]) cached(ctx context.Context, id int64) (*T, bool, error) {
	if s.policy.IsExpired(id) {
		return nil, false, nil
	}
	v, err := s.source.Get(ctx, id)
	switch {
	case err == nil:
		metrics.RefreshTotal.WithLabelValues(s.name, "fresh").Inc()
		return v, true, nil
	case errors.Is(err, domain.ErrNotFoundLocally):
		// Fresh timestamp but the row is gone; fetch again.
		return nil, false, nil
	default:
		return nil, false, err
	}
}

func (s *Store[T, R]) refresh(ctx context.Context, id int64) (*T, error) {
	local, err := s.source.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFoundLocally) {
			return nil, err
		}
		local = nil
	}

	remote, err := s.fetch(ctx, id, local)
	if err != nil {
		metrics.RefreshTotal.WithLabelValues(s.name, "failed").Inc()
		s.logger.Error("refresh failed", "id", id, "error", err)
		return nil, err
	}

	stored, err := s.write(ctx, id, remote)
	if err != nil {
		metrics.RefreshTotal.WithLabelValues(s.name, "failed").Inc()
		s.logger.Error("failed to store refresh", "id", id, "error", err)
		return nil, err
	}

	if err := s.policy.Touch(id); err != nil {
		// The data is stored; the next call simply fetches again.
		s.logger.Warn("failed to record last request", "id", id, "error", err)
	}
	s.wake(id)

	metrics.RefreshTotal.WithLabelValues(s.name, "fetched").Inc()
	s.logger.Debug("refreshed", "id", id)
	return stored, nil
}

// --- freshness wake-ups ---

func (s *Store[T, R]) subscribe(id int64) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	s.mu.Lock()
	if s.watchers[id] == nil {
		s.watchers[id] = make(map[chan struct{}]struct{})
	}
	s.watchers[id][ch] = struct{}{}
	s.mu.Unlock()

	return ch, func() {
		s.mu.Lock()
		delete(s.watchers[id], ch)
		if len(s.watchers[id]) == 0 {
			delete(s.watchers, id)
		}
		s.mu.Unlock()
	}
}

func (s *Store[T, R]) wake(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.watchers[id] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (s *Store[T, R]) wakeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, chans := range s.watchers {
		for ch := range chans {
			select {
			case ch <- struct{}{}:
			default:
			}
		}
	}
}
