package llm

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Middleware decorates an LLMClient to inject cross-cutting concerns
// (throttling, retries, logging, hooks, etc.).
type Middleware func(LLMClient) LLMClient

// Wrap applies middlewares in left-to-right order.
// Example: Wrap(inner, A, B) => A(B(inner))
func Wrap(inner LLMClient, mws ...Middleware) LLMClient {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		out = mws[i](out)
	}
	return out
}

// -------- Logging --------

// WithLogging logs call sizes, latency, and errors.
func WithLogging(lg zerolog.Logger) Middleware {
	return func(next LLMClient) LLMClient {
		return &logged{next: next, lg: lg}
	}
}

type logged struct {
	next LLMClient
	lg   zerolog.Logger
}

func (l *logged) Name() string { return l.next.Name() }
func (l *logged) Close() error { return l.next.Close() }

func (l *logged) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	out, err := l.next.Generate(ctx, prompt)
	if err != nil {
		l.lg.Warn().
			Str("client", l.next.Name()).
			Str("worker", WorkerFrom(ctx)).
			Dur("elapsed", time.Since(start)).
			Err(err).
			Msg("llm call failed")
		return "", err
	}
	l.lg.Debug().
		Str("client", l.next.Name()).
		Str("worker", WorkerFrom(ctx)).
		Int("prompt_chars", len(prompt)).
		Int("response_chars", len(out)).
		Dur("elapsed", time.Since(start)).
		Msg("llm call")
	return out, nil
}

// -------- Hooks --------

// WithHooks calls HookFrom(ctx).Before/After around Generate.
// If no hook is present in the context, it is a no-op.
func WithHooks() Middleware {
	return func(next LLMClient) LLMClient {
		return &hooked{next: next}
	}
}

type hooked struct{ next LLMClient }

func (h *hooked) Name() string { return h.next.Name() }
func (h *hooked) Close() error { return h.next.Close() }

func (h *hooked) Generate(ctx context.Context, prompt string) (string, error) {
	if hook := HookFrom(ctx); hook != nil {
		hook.Before(ctx, WorkerFrom(ctx), prompt)
	}
	out, err := h.next.Generate(ctx, prompt)
	if hook := HookFrom(ctx); hook != nil {
		hook.After(ctx, WorkerFrom(ctx), out, err)
	}
	return out, err
}
