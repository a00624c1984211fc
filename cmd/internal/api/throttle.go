package api

import (
	"sync"
	"time"
)

// loginThrottle tracks failed login attempts per identifier inside a sliding
// window. It protects the deliberately slow password hash from being used as
// a brute-force oracle; successful logins clear the identifier.
type loginThrottle struct {
	max    int
	window time.Duration

	mu    sync.Mutex
	fails map[string][]time.Time
}

func newLoginThrottle(max int, window time.Duration) *loginThrottle {
	return &loginThrottle{
		max:    max,
		window: window,
		fails:  make(map[string][]time.Time),
	}
}

// blocked reports whether identifier is currently throttled and, if so, for
// roughly how long.
func (t *loginThrottle) blocked(identifier string, now time.Time) (bool, time.Duration) {
	if t.max <= 0 || identifier == "" {
		return false, 0
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	recent := t.prune(identifier, now)
	if len(recent) < t.max {
		return false, 0
	}
	retry := recent[0].Add(t.window).Sub(now)
	if retry < 0 {
		retry = 0
	}
	return true, retry
}

// fail records one failed attempt.
func (t *loginThrottle) fail(identifier string, now time.Time) {
	if identifier == "" {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	recent := t.prune(identifier, now)
	t.fails[identifier] = append(recent, now)
}

// reset clears the identifier after a successful login.
func (t *loginThrottle) reset(identifier string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.fails, identifier)
}

// prune drops attempts older than the window. Caller holds mu.
func (t *loginThrottle) prune(identifier string, now time.Time) []time.Time {
	cut := now.Add(-t.window)
	old := t.fails[identifier]

	recent := old[:0]
	for _, ts := range old {
		if ts.After(cut) {
			recent = append(recent, ts)
		}
	}
	if len(recent) == 0 {
		delete(t.fails, identifier)
		return nil
	}
	t.fails[identifier] = recent
	return recent
}
