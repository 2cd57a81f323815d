package staleness

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func TestIsExpired_NeverFetched(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for _, window := range []time.Duration{0, time.Second, 14 * 24 * time.Hour, 1<<63 - 1} {
		assert.True(t, IsExpired(time.Time{}, false, now, window), "window %s", window)
	}
}

func TestIsExpired_Window(t *testing.T) {
	last := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	window := 14 * 24 * time.Hour

	tests := []struct {
		name    string
		now     time.Time
		expired bool
	}{
		{"just fetched", last, false},
		{"inside window", last.Add(window - time.Nanosecond), false},
		{"exactly at window", last.Add(window), false},
		{"past window", last.Add(window + time.Nanosecond), true},
		{"clock went backwards", last.Add(-time.Hour), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expired, IsExpired(last, true, tt.now, window))
			assert.Equal(t, tt.now.Sub(last) > window, IsExpired(last, true, tt.now, window))
		})
	}
}

func TestPolicy_TouchForget(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)}
	p := NewPolicy(NewMemoryRecords(), time.Hour, clock)

	assert.True(t, p.IsExpired(7))

	require.NoError(t, p.Touch(7))
	assert.False(t, p.IsExpired(7))
	assert.True(t, p.IsExpired(8))

	clock.now = clock.now.Add(time.Hour + time.Second)
	assert.True(t, p.IsExpired(7))

	require.NoError(t, p.Touch(7))
	require.NoError(t, p.Forget(7))
	assert.True(t, p.IsExpired(7))

	require.NoError(t, p.Touch(1))
	require.NoError(t, p.Touch(2))
	require.NoError(t, p.ForgetAll())
	assert.True(t, p.IsExpired(1))
	assert.True(t, p.IsExpired(2))
}

func TestPolicy_WindowsPerEntityType(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)}
	shows := NewPolicy(NewMemoryRecords(), 14*24*time.Hour, clock)
	images := NewPolicy(NewMemoryRecords(), 30*24*time.Hour, clock)

	require.NoError(t, shows.Touch(1))
	require.NoError(t, images.Touch(1))

	clock.now = clock.now.Add(20 * 24 * time.Hour)
	assert.True(t, shows.IsExpired(1))
	assert.False(t, images.IsExpired(1))
}
