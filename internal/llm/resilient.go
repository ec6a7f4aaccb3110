package llm

import (
	"time"

	"github.com/rs/zerolog"
)

// Config tunes the resilient chain. Zero values fall back to the production
// defaults: 2s spacing, 3 attempts, 3s backoff base.
type Config struct {
	MinInterval time.Duration
	MaxAttempts int
	BackoffBase time.Duration
}

func (c Config) withDefaults() Config {
	if c.MinInterval <= 0 {
		c.MinInterval = DefaultMinInterval
	}
	if c.MaxAttempts < 1 {
		c.MaxAttempts = 3
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = 3 * time.Second
	}
	return c
}

// NewResilientClient assembles the standard chain around inner: logging and
// hooks outermost, then call spacing, then rate-limit retries closest to the
// endpoint. Spacing applies once per logical call; backoff sleeps happen
// inside the retry loop.
func NewResilientClient(inner LLMClient, cfg Config, lg zerolog.Logger) LLMClient {
	cfg = cfg.withDefaults()
	return Wrap(inner,
		WithLogging(lg),
		WithHooks(),
		MinInterval(cfg.MinInterval),
		RetryRateLimit(cfg.MaxAttempts, cfg.BackoffBase),
	)
}
