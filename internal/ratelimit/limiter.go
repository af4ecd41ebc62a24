// Package ratelimit throttles MCP tool calls with per-tool token buckets.
package ratelimit

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrLimited is returned (wrapped) when a call exceeds its tool's budget.
var ErrLimited = errors.New("rate limit exceeded")

// Bucket is a token bucket: it holds at most burst tokens, refills at rate
// tokens per second and spends one token per call. Safe for concurrent use.
type Bucket struct {
	mu     sync.Mutex
	rate   float64
	burst  float64
	tokens float64
	last   time.Time
	now    func() time.Time
}

// NewBucket creates a full bucket.
func NewBucket(rate float64, burst int) *Bucket {
	b := &Bucket{rate: rate, burst: float64(burst), tokens: float64(burst), now: time.Now}
	b.last = b.now()
	return b
}

// Take spends one token if available and reports whether it did.
func (b *Bucket) Take() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens = min(b.burst, b.tokens+b.rate*elapsed)
		b.last = now
	}
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// ToolLimits maps tool names to their buckets.
type ToolLimits map[string]*Bucket

// DefaultToolLimits returns the budgets used by the MCP server.
func DefaultToolLimits() ToolLimits {
	return ToolLimits{
		"risk_simulate":  NewBucket(30.0/60.0, 5), // 30/minute, burst 5
		"risk_calibrate": NewBucket(5.0, 20),      // 300/minute, burst 20
		"risk_runs":      NewBucket(1.0, 10),      // 60/minute, burst 10
	}
}

// Check spends a token for tool. Tools without a bucket are unlimited.
func (l ToolLimits) Check(tool string) error {
	b, ok := l[tool]
	if !ok {
		return nil
	}
	if !b.Take() {
		return fmt.Errorf("%w for %s, please try again shortly", ErrLimited, tool)
	}
	return nil
}
