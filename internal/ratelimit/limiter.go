// Package ratelimit provides per-key token buckets guarding expensive
// session commands (graph generation, uploads, initialization) on both the
// HTTP and MCP boundaries.
package ratelimit

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrRateLimited is returned by Check when a bucket is empty.
var ErrRateLimited = errors.New("rate limit exceeded")

// Command names shared by every boundary.
const (
	CmdGenerate = "generate"
	CmdUpload   = "upload"
	CmdInit     = "init"
	CmdStart    = "start"
	CmdStep     = "step"
)

// Limiter is a token bucket per key. Every key starts with a full burst and
// refills at rate tokens per second. Safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    float64
	burst   int
	nowFunc func() time.Time
}

type bucket struct {
	tokens float64
	last   time.Time
}

// NewLimiter creates a limiter with rate tokens/sec and the given burst.
func NewLimiter(rate float64, burst int) *Limiter {
	return &Limiter{
		buckets: make(map[string]*bucket),
		rate:    rate,
		burst:   burst,
		nowFunc: time.Now,
	}
}

// Allow takes one token from key's bucket, reporting false when none is
// left.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(l.burst), last: now}
		l.buckets[key] = b
	}

	if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens = min(float64(l.burst), b.tokens+l.rate*elapsed)
		b.last = now
	}
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// Limits maps command names to their limiter.
type Limits map[string]*Limiter

// DefaultLimits returns the limits applied when none are configured.
// Stepping is cheap and only bounded to stop runaway clients.
func DefaultLimits() Limits {
	return Limits{
		CmdGenerate: NewLimiter(30.0/60.0, 5), // 30/minute
		CmdUpload:   NewLimiter(10.0/60.0, 3), // 10/minute
		CmdInit:     NewLimiter(30.0/60.0, 5),
		CmdStart:    NewLimiter(1.0, 10),
		CmdStep:     NewLimiter(20.0, 50),
	}
}

// Check consumes a token for command on behalf of key (a client address,
// or the command itself for single-client transports). Commands without
// a limiter are always allowed.
func (ls Limits) Check(command, key string) error {
	l, ok := ls[command]
	if !ok {
		return nil
	}
	if key == "" {
		key = command
	}
	if !l.Allow(key) {
		return fmt.Errorf("%w for %s, please try again shortly", ErrRateLimited, command)
	}
	return nil
}
