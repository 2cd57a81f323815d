package retry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/mmcdole/showsync/internal/domain"
	"github.com/mmcdole/showsync/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func fastPolicy(attempts int) Policy {
	return Policy{
		MaxAttempts:     attempts,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
	}
}

func TestDo_RetriesTransient(t *testing.T) {
	before := testutil.ToFloat64(metrics.RetryAttemptsTotal.WithLabelValues("test/transient"))

	calls := 0
	v, err := Do(context.Background(), fastPolicy(3), "test/transient", discard, func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", domain.NewTransient("trakt", 503, errors.New("unavailable"))
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, 3, calls)
	assert.Equal(t, before+2, testutil.ToFloat64(metrics.RetryAttemptsTotal.WithLabelValues("test/transient")))
}

func TestDo_PermanentNotRetried(t *testing.T) {
	perm := domain.NewPermanent("trakt", 404, domain.ErrNotFound)

	calls := 0
	_, err := Do(context.Background(), fastPolicy(5), "test/permanent", discard, func(ctx context.Context) (int, error) {
		calls++
		return 0, perm
	})

	assert.Equal(t, 1, calls)
	assert.Same(t, perm, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, err, domain.ErrPermanent)
}

func TestDo_ExhaustedKeepsLastError(t *testing.T) {
	var last error
	calls := 0
	_, err := Do(context.Background(), fastPolicy(3), "test/exhausted", discard, func(ctx context.Context) (int, error) {
		calls++
		last = domain.NewTransient("tmdb", 500+calls, errors.New("boom"))
		return 0, last
	})

	assert.Equal(t, 3, calls)
	assert.Same(t, last, err)
	assert.True(t, domain.IsTransient(err))
}

func TestDo_UnclassifiedErrorIsPermanent(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastPolicy(3), "test/plain", discard, func(ctx context.Context) (int, error) {
		calls++
		return 0, errors.New("plain")
	})
	assert.Equal(t, 1, calls)
	assert.EqualError(t, err, "plain")
}

func TestDo_StorageErrorNotRetried(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastPolicy(3), "test/storage", discard, func(ctx context.Context) (int, error) {
		calls++
		return 0, domain.NewStorageError("get show", errors.New("disk full"))
	})
	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, domain.ErrStorage)
}

func TestDo_AttemptTimeoutRetried(t *testing.T) {
	p := fastPolicy(2)
	p.AttemptTimeout = 10 * time.Millisecond

	calls := 0
	v, err := Do(context.Background(), p, "test/timeout", discard, func(ctx context.Context) (string, error) {
		calls++
		if calls == 1 {
			<-ctx.Done()
			return "", ctx.Err()
		}
		return "second", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "second", v)
	assert.Equal(t, 2, calls)
}

func TestDo_CallerCancelStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	_, err := Do(ctx, fastPolicy(5), "test/cancel", discard, func(ctx context.Context) (int, error) {
		calls++
		cancel()
		return 0, ctx.Err()
	})

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, context.Canceled)
}
