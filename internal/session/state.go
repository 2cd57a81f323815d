package session

import (
	"context"
	"sync"

	"github.com/mmcdole/showsync/internal/domain"
)

// State holds the current auth state and notifies subscribers of status
// changes. Subscribers always see the latest status; intermediate values
// may be skipped if they fall behind.
type State struct {
	mu     sync.RWMutex
	auth   domain.AuthState
	status domain.AuthStatus
	subs   map[chan domain.AuthStatus]struct{}
}

func newState() *State {
	return &State{subs: make(map[chan domain.AuthStatus]struct{})}
}

// Status returns the current status.
func (s *State) Status() domain.AuthStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Auth returns the current auth state.
func (s *State) Auth() domain.AuthState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.auth
}

// Subscribe emits the current status now and the latest status after every
// update, until ctx is done.
func (s *State) Subscribe(ctx context.Context) <-chan domain.AuthStatus {
	ch := make(chan domain.AuthStatus, 1)

	s.mu.Lock()
	ch <- s.status
	s.subs[ch] = struct{}{}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, ch)
		close(ch)
		s.mu.Unlock()
	}()

	return ch
}

func (s *State) set(auth domain.AuthState) domain.AuthStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.auth = auth
	s.status = domain.StatusOf(auth)
	for ch := range s.subs {
		// Replace an unread value with the latest one.
		select {
		case <-ch:
		default:
		}
		ch <- s.status
	}
	return s.status
}
