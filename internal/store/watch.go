package store

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/mmcdole/showsync/internal/domain"
)

// broker wakes watchers when a key they follow is written.
// Wake-ups coalesce: a watcher that is behind reloads once and sees the latest value.
type broker struct {
	mu   sync.Mutex
	subs map[string]map[chan struct{}]struct{}
}

func newBroker() *broker {
	return &broker{subs: make(map[string]map[chan struct{}]struct{})}
}

func (b *broker) subscribe(key string) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	b.mu.Lock()
	if b.subs[key] == nil {
		b.subs[key] = make(map[chan struct{}]struct{})
	}
	b.subs[key][ch] = struct{}{}
	b.mu.Unlock()

	return ch, func() {
		b.mu.Lock()
		delete(b.subs[key], ch)
		if len(b.subs[key]) == 0 {
			delete(b.subs, key)
		}
		b.mu.Unlock()
	}
}

func (b *broker) notify(keys ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, key := range keys {
		for ch := range b.subs[key] {
			wake(ch)
		}
	}
}

func (b *broker) notifyPrefix(prefix string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for key, chans := range b.subs {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		for ch := range chans {
			wake(ch)
		}
	}
}

func wake(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// watch emits load's result now and after every write to key. A missing
// record is emitted as nil. Read failures are logged and skipped. The
// channel is closed when ctx is done.
func watch[T any](ctx context.Context, s *LibraryStore, key string, load func(context.Context) (*T, error)) <-chan *T {
	out := make(chan *T)
	// Subscribe before the first load so no write can slip in between.
	wakeups, cancel := s.watches.subscribe(key)

	go func() {
		defer close(out)
		defer cancel()

		for {
			v, err := load(ctx)
			switch {
			case err == nil, errors.Is(err, domain.ErrNotFoundLocally):
				select {
				case out <- v:
				case <-ctx.Done():
					return
				}
			default:
				s.logger.Warn("watch read failed", "key", key, "error", err)
			}

			select {
			case <-wakeups:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}
