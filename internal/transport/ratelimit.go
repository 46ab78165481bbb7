package transport

import (
	"errors"
	"sync"
	"time"
)

var (
	errTooManyConns    = errors.New("too many open connections from this address")
	errTooManyAttempts = errors.New("too many connection attempts; slow down")
)

// ipLimiter bounds resource usage from one source address: a cap on
// concurrent connections plus a sliding-window cap on attempts. It runs
// before any room logic, so a rejected connection never touches room
// state.
type ipLimiter struct {
	mu            sync.Mutex
	maxConcurrent int
	window        time.Duration
	windowLimit   int
	entries       map[string]*ipEntry
}

type ipEntry struct {
	active   int
	attempts []time.Time
}

func newIPLimiter(maxConcurrent int, window time.Duration, windowLimit int) *ipLimiter {
	return &ipLimiter{
		maxConcurrent: maxConcurrent,
		window:        window,
		windowLimit:   windowLimit,
		entries:       make(map[string]*ipEntry),
	}
}

// allow admits or rejects a new connection attempt from ip. On success the
// caller must pair it with release.
func (l *ipLimiter) allow(ip string, now time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	e := l.entries[ip]
	if e == nil {
		e = &ipEntry{}
		l.entries[ip] = e
	}

	cutoff := now.Add(-l.window)
	kept := e.attempts[:0]
	for _, t := range e.attempts {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	e.attempts = kept

	if len(e.attempts) >= l.windowLimit {
		return errTooManyAttempts
	}
	if e.active >= l.maxConcurrent {
		return errTooManyConns
	}
	e.attempts = append(e.attempts, now)
	e.active++
	return nil
}

func (l *ipLimiter) release(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e := l.entries[ip]
	if e == nil {
		return
	}
	if e.active > 0 {
		e.active--
	}
	if e.active == 0 && len(e.attempts) == 0 {
		delete(l.entries, ip)
	}
}
