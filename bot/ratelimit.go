package bot

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// RateLimiter is a sliding window limiter keyed by transport and user.
type RateLimiter struct {
	mu     sync.Mutex
	users  map[string]*caller
	limit  int
	window time.Duration
	now    func() time.Time
}

type caller struct {
	hits     []time.Time
	lastSeen time.Time
	warned   time.Time
}

// NewRateLimiter allows limit commands per user per window.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = 10
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{users: make(map[string]*caller), limit: limit, window: window, now: time.Now}
}

// Run drops idle callers once per window until ctx ends.
func (rl *RateLimiter) Run(ctx context.Context) error {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-ctx.Done():
			return nil
		}
	}
}

func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	for key, c := range rl.users {
		// idle for two windows
		if now.Sub(c.lastSeen) > rl.window*2 {
			delete(rl.users, key)
		}
	}
}

// Allow records a hit for key and reports whether it is within the limit.
func (rl *RateLimiter) Allow(key string) bool {
	ok, _ := rl.Check(key)
	return ok
}

// Check is Allow that also reports whether a denied caller should be told
// about it. notify is true for the first denial in each window, so a caller
// who keeps going is answered once rather than on every command.
func (rl *RateLimiter) Check(key string) (ok, notify bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	c, found := rl.users[key]
	if !found {
		rl.users[key] = &caller{hits: []time.Time{now}, lastSeen: now}
		return true, false
	}

	cutoff := now.Add(-rl.window)
	kept := c.hits[:0]
	for _, t := range c.hits {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	c.hits = kept
	c.lastSeen = now

	if len(c.hits) >= rl.limit {
		if c.warned.After(cutoff) {
			return false, false
		}
		c.warned = now
		return false, true
	}
	c.hits = append(c.hits, now)
	return true, false
}

// Describe renders the limit for users, e.g. "5 commands every minute".
func (rl *RateLimiter) Describe() string {
	noun := "commands"
	if rl.limit == 1 {
		noun = "command"
	}
	return fmt.Sprintf("%d %s every %s", rl.limit, noun, humanWindow(rl.window))
}

func humanWindow(d time.Duration) string {
	unit := func(n int64, name string) string {
		if n == 1 {
			return name
		}
		return fmt.Sprintf("%d %ss", n, name)
	}
	switch {
	case d%time.Hour == 0:
		return unit(int64(d/time.Hour), "hour")
	case d%time.Minute == 0:
		return unit(int64(d/time.Minute), "minute")
	case d%time.Second == 0:
		return unit(int64(d/time.Second), "second")
	}
	return d.String()
}

func (rl *RateLimiter) size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.users)
}
