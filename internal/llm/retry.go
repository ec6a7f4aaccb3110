package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	llmclient "github.com/dharaneesh71/Financeflow-ai/internal/llmClient"
)

// RateLimitExceededError reports that the retry budget ran out while the
// endpoint kept rate-limiting. Callers turn it into a degraded response
// instead of failing the batch.
type RateLimitExceededError struct {
	Attempts int
	Err      error
}

func (e *RateLimitExceededError) Error() string {
	return fmt.Sprintf("rate limit still exceeded after %d attempts: %v", e.Attempts, e.Err)
}

func (e *RateLimitExceededError) Unwrap() error { return e.Err }

// IsRateLimitExceeded reports whether err carries an exhausted retry budget.
func IsRateLimitExceeded(err error) bool {
	var rle *RateLimitExceededError
	return errors.As(err, &rle)
}

// RetryRateLimit retries Generate on rate-limit errors, up to maxAttempts
// calls total, sleeping base*2^attempt between attempts. Every other error
// returns immediately; after the last rate-limited attempt the caller gets a
// *RateLimitExceededError. If context is canceled, it stops immediately.
func RetryRateLimit(maxAttempts int, base time.Duration) Middleware {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if base <= 0 {
		base = 3 * time.Second
	}
	return func(next LLMClient) LLMClient {
		return &retrying{next: next, max: maxAttempts, base: base}
	}
}

func retryRateLimitWith(maxAttempts int, base time.Duration, sleep func(time.Duration)) Middleware {
	mw := RetryRateLimit(maxAttempts, base)
	return func(next LLMClient) LLMClient {
		r := mw(next).(*retrying)
		r.sleep = sleep
		return r
	}
}

type retrying struct {
	next  LLMClient
	max   int
	base  time.Duration
	sleep func(time.Duration) // tests only; nil means real timer
}

func (r *retrying) Name() string { return r.next.Name() }
func (r *retrying) Close() error { return r.next.Close() }

func (r *retrying) Generate(ctx context.Context, prompt string) (string, error) {
	var last error
	for i := 0; i < r.max; i++ {
		out, err := r.next.Generate(ctx, prompt)
		if err == nil {
			return out, nil
		}
		// Permanent errors never resolve with retries.
		var pErr *llmclient.PermanentError
		if errors.As(err, &pErr) {
			return "", err
		}
		if !isRateLimited(err) {
			return "", err
		}
		last = err
		if i == r.max-1 {
			break
		}
		if err := r.wait(ctx, r.base*time.Duration(1<<i)); err != nil {
			return "", err
		}
	}
	return "", &RateLimitExceededError{Attempts: r.max, Err: last}
}

func (r *retrying) wait(ctx context.Context, d time.Duration) error {
	if r.sleep != nil {
		r.sleep(d)
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// isRateLimited matches the typed marker from the client layer and, as a
// fallback, the wording providers use on quota errors.
func isRateLimited(err error) bool {
	var rl *llmclient.RateLimitedError
	if errors.As(err, &rl) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "resource_exhausted") ||
		strings.Contains(msg, "rate limit")
}
