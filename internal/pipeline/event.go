package pipeline

import "context"

// Event types streamed to run watchers.
const (
	EventStep     = "step"
	EventLog      = "log"
	EventComplete = "complete"
	EventError    = "error"
)

// Event is one progress notification from a running batch.
type Event struct {
	Type    string `json:"type"`
	Step    string `json:"step,omitempty"`
	Message string `json:"message,omitempty"`
}

// Emitter receives events as the machine walks the graph.
type Emitter interface {
	Emit(Event)
}

type emitterKey struct{}

// WithEmitter attaches an emitter to the context for one run.
func WithEmitter(ctx context.Context, e Emitter) context.Context {
	return context.WithValue(ctx, emitterKey{}, e)
}

// EmitterFrom retrieves the run's emitter, or a no-op when none is attached.
func EmitterFrom(ctx context.Context) Emitter {
	if e, ok := ctx.Value(emitterKey{}).(Emitter); ok {
		return e
	}
	return noopEmitter{}
}

type noopEmitter struct{}

func (noopEmitter) Emit(Event) {}

// ChannelEmitter forwards events to a channel without blocking; a slow
// watcher loses events rather than stalling the batch.
type ChannelEmitter struct {
	Ch chan<- Event
}

func (e *ChannelEmitter) Emit(ev Event) {
	select {
	case e.Ch <- ev:
	default:
	}
}
