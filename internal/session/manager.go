// Package session owns the primary provider's authentication state. Every
// update goes through one serial loop; explicit logins fan out into the
// bulk re-sync tasks.
package session

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mmcdole/showsync/internal/domain"
)

// ErrClosed is returned by updates issued after Close.
var ErrClosed = errors.New("session closed")

// Task is a bulk re-sync job started after an auth state is set.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

type persistOp int

const (
	persistNone persistOp = iota
	persistSave
	persistClear
)

type update struct {
	auth    domain.AuthState
	persist persistOp
	resync  bool
	refresh bool // dropped unless logged in
	applied chan domain.AuthStatus
}

// Manager is the single owner of the auth state.
type Manager struct {
	store      domain.AuthStore
	sinks      []domain.TokenSink
	tasks      []Task
	logger     *slog.Logger
	state      *State
	supervisor *Supervisor

	updates chan update
	quit    chan struct{}
	done    chan struct{}
	loaded  chan struct{}
}

// NewManager creates a manager. Call Start to load the persisted state.
// sinks receive every new auth state; tasks run after each SetAuthState.
func NewManager(store domain.AuthStore, sinks []domain.TokenSink, tasks []Task, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:      store,
		sinks:      sinks,
		tasks:      tasks,
		logger:     logger,
		state:      newState(),
		supervisor: NewSupervisor(logger),
		updates:    make(chan update),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
		loaded:     make(chan struct{}),
	}
}

// Start runs the update loop. The persisted state is loaded first and
// published without starting the re-sync tasks.
func (m *Manager) Start() {
	go m.run()
}

// Loaded is closed once the persisted state has been published.
func (m *Manager) Loaded() <-chan struct{} { return m.loaded }

// State returns the observable state holder.
func (m *Manager) State() *State { return m.state }

// Status returns the current status.
func (m *Manager) Status() domain.AuthStatus { return m.state.Status() }

// SetAuthState publishes new credentials, persists them and starts every
// re-sync task, whether or not the status changed. It returns once the new
// state is visible; persistence continues in the background.
func (m *Manager) SetAuthState(ctx context.Context, auth domain.AuthState) (domain.AuthStatus, error) {
	return m.submit(ctx, update{auth: auth, persist: persistSave, resync: true})
}

// UpdateToken publishes and persists credentials refreshed by a provider.
// No re-sync tasks run. A refresh that lands after a logout is dropped.
func (m *Manager) UpdateToken(ctx context.Context, auth domain.AuthState) (domain.AuthStatus, error) {
	return m.submit(ctx, update{auth: auth, persist: persistSave, refresh: true})
}

// ClearAuth logs out and clears the persisted state.
func (m *Manager) ClearAuth(ctx context.Context) (domain.AuthStatus, error) {
	return m.submit(ctx, update{auth: domain.EmptyAuthState, persist: persistClear})
}

// Close stops the update loop, then cancels and waits for running tasks.
// Pending persistence finishes first.
func (m *Manager) Close() {
	select {
	case <-m.quit:
	default:
		close(m.quit)
	}
	<-m.done
	m.supervisor.Close()
}

// Wait blocks until every re-sync task started so far has returned.
func (m *Manager) Wait() {
	m.supervisor.Wait()
}

func (m *Manager) submit(ctx context.Context, u update) (domain.AuthStatus, error) {
	u.applied = make(chan domain.AuthStatus, 1)
	select {
	case m.updates <- u:
	case <-m.quit:
		return domain.LoggedOut, ErrClosed
	case <-ctx.Done():
		return domain.LoggedOut, ctx.Err()
	}

	select {
	case status := <-u.applied:
		return status, nil
	case <-ctx.Done():
		return domain.LoggedOut, ctx.Err()
	}
}

func (m *Manager) run() {
	defer close(m.done)

	m.load()
	close(m.loaded)

	for {
		select {
		case u := <-m.updates:
			m.apply(u)
		case <-m.quit:
			return
		}
	}
}

func (m *Manager) load() {
	auth, ok, err := m.store.Load(context.Background())
	if err != nil {
		m.logger.Error("failed to load auth state", "error", err)
	}
	if err != nil || !ok {
		auth = domain.EmptyAuthState
	}
	m.apply(update{auth: auth})
}

// apply runs on the update loop only.
func (m *Manager) apply(u update) {
	if u.refresh && m.state.Status() != domain.LoggedIn {
		m.logger.Info("dropping refreshed token after logout")
		if u.applied != nil {
			u.applied <- domain.LoggedOut
		}
		return
	}
	for _, sink := range m.sinks {
		sink.SetAuth(u.auth)
	}
	status := m.state.set(u.auth)
	m.logger.Info("auth state updated", "status", status.String())

	if u.resync {
		for _, task := range m.tasks {
			m.supervisor.Go(task.Name, task.Run)
		}
	}
	if u.applied != nil {
		u.applied <- status
	}

	// The in-memory state stays authoritative if the durable write fails.
	ctx := context.Background()
	switch u.persist {
	case persistSave:
		if err := m.store.Save(ctx, u.auth); err != nil {
			m.logger.Error("failed to persist auth state", "error", err)
		}
	case persistClear:
		if err := m.store.Clear(ctx); err != nil {
			m.logger.Error("failed to clear persisted auth state", "error", err)
		}
	}
}
