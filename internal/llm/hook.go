package llm

import "context"

// PromptHook observes prompts and responses flowing through the client chain.
type PromptHook interface {
	Before(ctx context.Context, worker, prompt string)
	After(ctx context.Context, worker, response string, err error)
}

type ctxKeyHook struct{}
type ctxKeyWorker struct{}

// WithHook attaches a PromptHook to every call made through base.
func WithHook(base LLMClient, hook PromptHook) LLMClient {
	return &hookCarrier{base: base, hook: hook}
}

type hookCarrier struct {
	base LLMClient
	hook PromptHook
}

func (h *hookCarrier) Name() string { return h.base.Name() }
func (h *hookCarrier) Close() error { return h.base.Close() }

func (h *hookCarrier) Generate(ctx context.Context, prompt string) (string, error) {
	ctx = context.WithValue(ctx, ctxKeyHook{}, h.hook)
	return h.base.Generate(ctx, prompt)
}

// WithWorker labels calls with the pipeline worker issuing them.
func WithWorker(ctx context.Context, worker string) context.Context {
	return context.WithValue(ctx, ctxKeyWorker{}, worker)
}

// HookFrom returns the hook stored in the context.
func HookFrom(ctx context.Context) PromptHook {
	if v := ctx.Value(ctxKeyHook{}); v != nil {
		if h, ok := v.(PromptHook); ok {
			return h
		}
	}
	return nil
}

// WorkerFrom returns the worker label stored in the context.
func WorkerFrom(ctx context.Context) string {
	if v := ctx.Value(ctxKeyWorker{}); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return "unknown"
}
