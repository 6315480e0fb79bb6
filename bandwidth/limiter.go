// Package bandwidth implements a shared per-window byte budget for transfer governance.
package bandwidth

import (
	"sync"
	"time"
)

// Limiter tracks bytes transferred during a fixed accounting window.
// The window reset is the sole synchronization point; no lock is ever held
// across actual I/O.
type Limiter struct {
	mu          sync.Mutex
	limitBytes  int64
	window      time.Duration
	windowStart time.Time
	windowUsed  int64
	perConn     map[uint64]int64
}

// New constructs a Limiter. A non-positive limit disables throttling.
func New(limitBytes int64, window time.Duration) *Limiter {
	if window <= 0 {
		window = time.Second
	}
	return &Limiter{
		limitBytes:  limitBytes,
		window:      window,
		windowStart: time.Now(),
		perConn:     make(map[uint64]int64),
	}
}

// CanTransfer reports whether n more bytes may go out in the current
// window. A window that still has unconsumed budget admits the transfer
// even when n overshoots it; the overshoot is repaid through the delay
// before the next one. Otherwise a transfer larger than the whole budget
// could never be admitted at all.
func (l *Limiter) CanTransfer(n int64) bool {
	if l.limitBytes <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.rollLocked()
	return l.windowUsed < l.limitBytes
}

// RecordTransfer adds n bytes to the global counter and the per-connection counter.
func (l *Limiter) RecordTransfer(connID uint64, n int64) {
	if l.limitBytes <= 0 {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.rollLocked()
	l.windowUsed += n
	l.perConn[connID] += n
}

// CalculateDelay returns how long the caller should wait before n bytes fit
// into the budget, proportional to the excess over the current window.
func (l *Limiter) CalculateDelay(n int64) time.Duration {
	if l.limitBytes <= 0 {
		return 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.rollLocked()
	excess := l.windowUsed + n - l.limitBytes
	if excess <= 0 {
		return 0
	}

	return time.Duration(float64(l.window) * float64(excess) / float64(l.limitBytes))
}

// ConnectionBytes returns the bytes attributed to a connection during the
// current window. Reporting only; the shared counters govern throttling.
func (l *Limiter) ConnectionBytes(connID uint64) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.rollLocked()
	return l.perConn[connID]
}

// Forget drops per-connection tracking once a connection closes.
func (l *Limiter) Forget(connID uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.perConn, connID)
}

// rollLocked resets both the global counter and per-connection tracking at
// the window boundary.
func (l *Limiter) rollLocked() {
	now := time.Now()
	if now.Sub(l.windowStart) < l.window {
		return
	}

	l.windowStart = now
	l.windowUsed = 0
	l.perConn = make(map[uint64]int64)
}
