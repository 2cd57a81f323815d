package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/sourcegraph/conc"
)

// Supervisor owns background tasks. Close cancels them and waits for them
// to return.
type Supervisor struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
	wg     conc.WaitGroup
}

// NewSupervisor creates a supervisor.
func NewSupervisor(logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Supervisor{ctx: ctx, cancel: cancel, logger: logger}
}

// Go runs fn in the background. Errors are logged. It reports false if the
// supervisor is already closed.
func (s *Supervisor) Go(name string, fn func(ctx context.Context) error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}

	s.wg.Go(func() {
		s.logger.Debug("task started", "task", name)
		if err := fn(s.ctx); err != nil {
			s.logger.Error("task failed", "task", name, "error", err)
			return
		}
		s.logger.Debug("task finished", "task", name)
	})
	return true
}

// Wait blocks until every task started so far has returned.
func (s *Supervisor) Wait() {
	if r := s.wg.WaitAndRecover(); r != nil {
		s.logger.Error("task panicked", "panic", r.Value, "stack", string(r.Stack))
	}
}

// Close cancels all tasks and waits for them.
func (s *Supervisor) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.Wait()
}
