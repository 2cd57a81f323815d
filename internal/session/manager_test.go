package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mmcdole/showsync/internal/domain"
	"github.com/mmcdole/showsync/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

var loggedIn = domain.AuthState{AccessToken: "access", RefreshToken: "refresh", Expiry: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)}

type failingStore struct {
	saves atomic.Int32
}

func (f *failingStore) Load(ctx context.Context) (domain.AuthState, bool, error) {
	return domain.EmptyAuthState, false, nil
}

func (f *failingStore) Save(ctx context.Context, state domain.AuthState) error {
	f.saves.Add(1)
	return errors.New("disk full")
}

func (f *failingStore) Clear(ctx context.Context) error { return errors.New("disk full") }

type recordingSink struct {
	mu   sync.Mutex
	last domain.AuthState
	n    int
}

func (s *recordingSink) SetAuth(state domain.AuthState) {
	s.mu.Lock()
	s.last, s.n = state, s.n+1
	s.mu.Unlock()
}

func countingTasks(counts ...*atomic.Int32) []Task {
	tasks := make([]Task, len(counts))
	for i, c := range counts {
		c := c
		tasks[i] = Task{Name: "task", Run: func(ctx context.Context) error {
			c.Add(1)
			return nil
		}}
	}
	return tasks
}

func startManager(t *testing.T, st domain.AuthStore, sinks []domain.TokenSink, tasks []Task) *Manager {
	t.Helper()
	m := NewManager(st, sinks, tasks, discard)
	m.Start()
	select {
	case <-m.Loaded():
	case <-time.After(2 * time.Second):
		t.Fatal("manager never loaded")
	}
	return m
}

func openAuthStore(t *testing.T, dir string) (*store.LibraryStore, domain.AuthStore) {
	t.Helper()
	st, err := store.Open(dir, discard)
	require.NoError(t, err)
	return st, st.Auth()
}

func TestSetAuthState_LogsInAndRunsEveryTask(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	st, auth := openAuthStore(t, t.TempDir())
	defer st.Close()

	var watched, followed atomic.Int32
	sink := &recordingSink{}
	m := startManager(t, auth, []domain.TokenSink{sink}, countingTasks(&watched, &followed))
	defer m.Close()

	assert.Equal(t, domain.LoggedOut, m.Status())
	assert.Equal(t, int32(0), watched.Load(), "loading persisted state starts no tasks")

	status, err := m.SetAuthState(context.Background(), loggedIn)
	require.NoError(t, err)
	assert.Equal(t, domain.LoggedIn, status)
	assert.Equal(t, domain.LoggedIn, m.Status())
	assert.Equal(t, "access", m.State().Auth().AccessToken)

	m.Wait()
	assert.Equal(t, int32(1), watched.Load())
	assert.Equal(t, int32(1), followed.Load())

	sink.mu.Lock()
	assert.Equal(t, "access", sink.last.AccessToken)
	sink.mu.Unlock()
}

func TestSetAuthState_SameStateStillResyncs(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	st, auth := openAuthStore(t, t.TempDir())
	defer st.Close()

	var runs atomic.Int32
	m := startManager(t, auth, nil, countingTasks(&runs))
	defer m.Close()

	for i := 0; i < 2; i++ {
		_, err := m.SetAuthState(context.Background(), loggedIn)
		require.NoError(t, err)
	}
	m.Wait()
	assert.Equal(t, int32(2), runs.Load())
}

func TestClearAuth_PersistsAcrossRestart(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	dir := t.TempDir()
	ctx := context.Background()

	st, auth := openAuthStore(t, dir)
	var runs atomic.Int32
	m := startManager(t, auth, nil, countingTasks(&runs))
	_, err := m.SetAuthState(ctx, loggedIn)
	require.NoError(t, err)
	status, err := m.ClearAuth(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.LoggedOut, status)
	m.Close()
	require.NoError(t, st.Close())
	assert.Equal(t, int32(1), runs.Load(), "logging out starts no tasks")

	st, auth = openAuthStore(t, dir)
	defer st.Close()
	var restarted atomic.Int32
	m = startManager(t, auth, nil, countingTasks(&restarted))
	defer m.Close()

	assert.Equal(t, domain.LoggedOut, m.Status())
	m.Wait()
	assert.Equal(t, int32(0), restarted.Load())
}

func TestLoad_RestoresPersistedLogin(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	dir := t.TempDir()

	st, auth := openAuthStore(t, dir)
	m := startManager(t, auth, nil, nil)
	_, err := m.SetAuthState(context.Background(), loggedIn)
	require.NoError(t, err)
	m.Close()
	require.NoError(t, st.Close())

	st, auth = openAuthStore(t, dir)
	defer st.Close()
	sink := &recordingSink{}
	var runs atomic.Int32
	m = startManager(t, auth, []domain.TokenSink{sink}, countingTasks(&runs))
	defer m.Close()

	assert.Equal(t, domain.LoggedIn, m.Status())
	m.Wait()
	assert.Equal(t, int32(0), runs.Load())
	sink.mu.Lock()
	assert.Equal(t, "refresh", sink.last.RefreshToken)
	sink.mu.Unlock()
}

func TestSetAuthState_PersistFailureKeepsMemoryState(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	fs := &failingStore{}
	m := startManager(t, fs, nil, nil)
	defer m.Close()

	status, err := m.SetAuthState(context.Background(), loggedIn)
	require.NoError(t, err)
	assert.Equal(t, domain.LoggedIn, status)

	require.Eventually(t, func() bool { return fs.saves.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, domain.LoggedIn, m.Status())
}

func TestSubmitAfterClose(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	m := startManager(t, &failingStore{}, nil, nil)
	m.Close()
	m.Close()

	_, err := m.SetAuthState(context.Background(), loggedIn)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestClose_CancelsRunningTasks(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	started := make(chan struct{})
	var cancelled atomic.Bool
	task := Task{Name: "blocking", Run: func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		cancelled.Store(true)
		return ctx.Err()
	}}
	m := startManager(t, &failingStore{}, nil, []Task{task})

	_, err := m.SetAuthState(context.Background(), loggedIn)
	require.NoError(t, err)
	<-started

	m.Close()
	assert.True(t, cancelled.Load())
}

func TestState_Subscribe(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	m := startManager(t, &failingStore{}, nil, nil)
	defer m.Close()

	ctx, cancel := context.WithCancel(context.Background())
	updates := m.State().Subscribe(ctx)
	assert.Equal(t, domain.LoggedOut, <-updates)

	_, err := m.SetAuthState(context.Background(), loggedIn)
	require.NoError(t, err)
	assert.Equal(t, domain.LoggedIn, <-updates)

	cancel()
	for range updates {
	}
}

func TestUpdateToken_PersistsWithoutResync(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	st, auth := openAuthStore(t, t.TempDir())
	defer st.Close()

	var runs atomic.Int32
	sink := &recordingSink{}
	m := startManager(t, auth, []domain.TokenSink{sink}, countingTasks(&runs))
	defer m.Close()

	_, err := m.SetAuthState(context.Background(), loggedIn)
	require.NoError(t, err)
	m.Wait()

	refreshed := domain.AuthState{AccessToken: "access-2", RefreshToken: "refresh-2", Expiry: loggedIn.Expiry.Add(time.Hour)}
	status, err := m.UpdateToken(context.Background(), refreshed)
	require.NoError(t, err)
	assert.Equal(t, domain.LoggedIn, status)
	m.Wait()

	assert.Equal(t, int32(1), runs.Load(), "a refresh starts no tasks")
	assert.Equal(t, "access-2", m.State().Auth().AccessToken)
	sink.mu.Lock()
	assert.Equal(t, "refresh-2", sink.last.RefreshToken)
	sink.mu.Unlock()

	require.Eventually(t, func() bool {
		saved, ok, err := auth.Load(context.Background())
		return err == nil && ok && saved.AccessToken == "access-2"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestUpdateToken_DroppedAfterLogout(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	st, auth := openAuthStore(t, t.TempDir())
	defer st.Close()

	sink := &recordingSink{}
	m := startManager(t, auth, []domain.TokenSink{sink}, nil)
	defer m.Close()

	status, err := m.UpdateToken(context.Background(), loggedIn)
	require.NoError(t, err)
	assert.Equal(t, domain.LoggedOut, status)
	assert.Equal(t, domain.LoggedOut, m.Status())

	_, ok, err := auth.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}
