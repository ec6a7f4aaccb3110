package llm

import (
	"context"
	"sync"
	"time"
)

// DefaultMinInterval is the spacing kept between consecutive calls through
// one MinInterval middleware instance.
const DefaultMinInterval = 2 * time.Second

// MinInterval blocks each call until at least d has elapsed since the
// previous call through the same middleware instance. The first call goes
// through immediately. State lives in the instance, so two pipelines with
// their own chains throttle independently.
func MinInterval(d time.Duration) Middleware {
	return minIntervalWith(d, time.Now, time.Sleep)
}

func minIntervalWith(d time.Duration, now func() time.Time, sleep func(time.Duration)) Middleware {
	if d <= 0 {
		d = DefaultMinInterval
	}
	return func(next LLMClient) LLMClient {
		return &throttled{next: next, min: d, now: now, sleep: sleep}
	}
}

type throttled struct {
	next  LLMClient
	min   time.Duration
	now   func() time.Time
	sleep func(time.Duration)

	mu   sync.Mutex
	last time.Time
}

func (c *throttled) Name() string { return c.next.Name() }
func (c *throttled) Close() error { return c.next.Close() }

func (c *throttled) Generate(ctx context.Context, prompt string) (string, error) {
	c.mu.Lock()
	t := c.now()
	if !c.last.IsZero() {
		if wait := c.min - t.Sub(c.last); wait > 0 {
			c.sleep(wait)
			t = c.now()
		}
	}
	c.last = t
	c.mu.Unlock()

	return c.next.Generate(ctx, prompt)
}
