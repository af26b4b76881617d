// Package rate throttles manual catalog refresh triggers per caller.
package rate

import (
	"sync"
	"time"
)

// Config allows one event per Every, with up to Burst events at once.
type Config struct {
	Every time.Duration
	Burst int
}

// Limiter implements a token bucket rate limiter.
type Limiter struct {
	mu     sync.Mutex
	tokens float64
	last   time.Time
	every  time.Duration
	burst  float64
	now    func() time.Time
}

// New creates a full limiter. A non-positive Every disables limiting.
func New(cfg Config) *Limiter {
	return newWithClock(cfg, time.Now)
}

func newWithClock(cfg Config, now func() time.Time) *Limiter {
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		tokens: float64(burst),
		last:   now(),
		every:  cfg.Every,
		burst:  float64(burst),
		now:    now,
	}
}

// refill must be called with mu held.
func (l *Limiter) refill() {
	now := l.now()
	l.tokens += float64(now.Sub(l.last)) / float64(l.every)
	if l.tokens > l.burst {
		l.tokens = l.burst
	}
	l.last = now
}

// Allow takes a token if one is available.
func (l *Limiter) Allow() bool {
	if l.every <= 0 {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refill()
	if l.tokens >= 1 {
		l.tokens--
		return true
	}
	return false
}

// RetryAfter is how long until the next token is available.
func (l *Limiter) RetryAfter() time.Duration {
	if l.every <= 0 {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refill()
	if l.tokens >= 1 {
		return 0
	}
	return time.Duration((1 - l.tokens) * float64(l.every))
}

// Manager holds one limiter per caller key.
type Manager struct {
	mu       sync.RWMutex
	limiters map[string]*Limiter
	defaults Config
	now      func() time.Time
}

func NewManager(defaults Config) *Manager {
	return &Manager{
		limiters: make(map[string]*Limiter),
		defaults: defaults,
		now:      time.Now,
	}
}

func (m *Manager) GetLimiter(key string) *Limiter {
	m.mu.RLock()
	if lim, ok := m.limiters[key]; ok {
		m.mu.RUnlock()
		return lim
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if lim, ok := m.limiters[key]; ok {
		return lim
	}
	lim := newWithClock(m.defaults, m.now)
	m.limiters[key] = lim
	return lim
}

// Allow reports whether key may trigger now, and if not, when it may retry.
func (m *Manager) Allow(key string) (bool, time.Duration) {
	lim := m.GetLimiter(key)
	if lim.Allow() {
		return true, 0
	}
	return false, lim.RetryAfter()
}
