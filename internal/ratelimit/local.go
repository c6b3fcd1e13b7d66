package ratelimit

import (
	"fmt"
	"sync"
	"time"

	"starpress/config"
)

type localWindow struct {
	count   int
	resetAt time.Time
}

// LocalLimiter is the in-process backup for the shared limiter: a fixed-window
// counter per key. It is an injected component with its own sweep lifecycle so
// tests can run independent instances side by side.
type LocalLimiter struct {
	mu      sync.Mutex
	windows map[string]*localWindow
	stop    chan struct{}
	once    sync.Once
	now     func() time.Time
}

// NewLocalLimiter builds the counter map and starts a sweep loop that evicts
// expired windows at the given interval.
func NewLocalLimiter(sweepInterval time.Duration) *LocalLimiter {
	l := &LocalLimiter{
		windows: make(map[string]*localWindow),
		stop:    make(chan struct{}),
		now:     time.Now,
	}

	if sweepInterval > 0 {
		go l.sweepLoop(sweepInterval)
	}

	return l
}

// Admit applies fixed-window admission for the key. The attempt is counted
// even when rejected.
func (l *LocalLimiter) Admit(namespace, identity string, rule config.RateLimitRule) Result {
	key := fmt.Sprintf("%s:%s", namespace, identity)
	now := l.now()
	window := time.Duration(rule.Window) * time.Second

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || now.After(w.resetAt) || now.Equal(w.resetAt) {
		w = &localWindow{resetAt: now.Add(window)}
		l.windows[key] = w
	}
	w.count++

	remaining := rule.Max - w.count
	if remaining < 0 {
		remaining = 0
	}

	return Result{
		Allowed:   w.count <= rule.Max,
		Limit:     rule.Max,
		Remaining: remaining,
		ResetAt:   w.resetAt.Unix(),
	}
}

func (l *LocalLimiter) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.sweep()
		case <-l.stop:
			return
		}
	}
}

func (l *LocalLimiter) sweep() {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, w := range l.windows {
		if now.After(w.resetAt) {
			delete(l.windows, key)
		}
	}
}

// Close stops the sweep loop.
func (l *LocalLimiter) Close() {
	l.once.Do(func() { close(l.stop) })
}
