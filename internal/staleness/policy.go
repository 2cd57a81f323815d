// Package staleness decides whether cached data is still fresh.
package staleness

import (
	"time"

	"github.com/mmcdole/showsync/internal/domain"
)

// Clock abstracts time for tests.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// SystemClock is the wall clock.
var SystemClock Clock = realClock{}

// IsExpired reports whether data last fetched at lastRequest is stale at
// now. A key that was never fetched (ok == false) is always expired.
func IsExpired(lastRequest time.Time, ok bool, now time.Time, window time.Duration) bool {
	if !ok {
		return true
	}
	return now.Sub(lastRequest) > window
}

// Policy applies a fixed window to the last-request records of one entity type.
type Policy struct {
	records domain.LastRequestStore
	window  time.Duration
	clock   Clock
}

// NewPolicy creates a policy. A nil clock means the wall clock.
func NewPolicy(records domain.LastRequestStore, window time.Duration, clock Clock) *Policy {
	if clock == nil {
		clock = SystemClock
	}
	return &Policy{records: records, window: window, clock: clock}
}

// Window returns the staleness window.
func (p *Policy) Window() time.Duration { return p.window }

// Now returns the policy clock's time.
func (p *Policy) Now() time.Time { return p.clock.Now() }

// IsExpired reports whether id needs a refresh. A record that cannot be
// read counts as missing.
func (p *Policy) IsExpired(id int64) bool {
	at, ok, err := p.records.LastRequest(id)
	if err != nil {
		return true
	}
	return IsExpired(at, ok, p.clock.Now(), p.window)
}

// Touch records a successful fetch of id at the current time.
func (p *Policy) Touch(id int64) error {
	return p.records.UpdateLastRequest(id, p.clock.Now())
}

// Forget removes the record for id.
func (p *Policy) Forget(id int64) error {
	return p.records.DeleteLastRequest(id)
}

// ForgetAll removes every record.
func (p *Policy) ForgetAll() error {
	return p.records.DeleteAllLastRequests()
}
