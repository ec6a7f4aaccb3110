// Package run tracks in-flight batches: each run gets a UUID and a buffered
// event channel the pipeline publishes step events into and the websocket
// handler streams from.
package run

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dharaneesh71/Financeflow-ai/internal/pipeline"
)

const (
	completedRunRetention = 30 * time.Second

	// Enough for every event a batch can emit; a watcher that connects
	// after the run finished still drains the full history.
	eventBuffer = 64
)

type Status string

const (
	StatusRunning  Status = "running"
	StatusComplete Status = "complete"
	StatusFailed   Status = "failed"
)

// Record is the bookkeeping for one batch run.
type Record struct {
	ID         string
	Status     Status
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Registry hands out run IDs and per-run event channels. Finish closes the
// channel so watchers see end-of-stream; the entry itself lingers for a
// retention window before cleanup so late watchers still find it.
type Registry struct {
	mu     sync.RWMutex
	runs   map[string]*Record
	events map[string]chan pipeline.Event
}

func NewRegistry() *Registry {
	return &Registry{
		runs:   make(map[string]*Record),
		events: make(map[string]chan pipeline.Event),
	}
}

// Begin registers a run and allocates its event channel. An empty runID gets
// a generated UUID; a caller-supplied one lets the client open its watch
// socket before kicking off the batch.
func (r *Registry) Begin(runID string) (string, chan pipeline.Event, error) {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		runID = uuid.NewString()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.runs[runID]; exists {
		return "", nil, fmt.Errorf("run %s already registered", runID)
	}
	ch := make(chan pipeline.Event, eventBuffer)
	r.runs[runID] = &Record{ID: runID, Status: StatusRunning, StartedAt: time.Now()}
	r.events[runID] = ch
	return runID, ch, nil
}

// Events returns the event channel for a run.
func (r *Registry) Events(runID string) (chan pipeline.Event, bool) {
	r.mu.RLock()
	ch, ok := r.events[strings.TrimSpace(runID)]
	r.mu.RUnlock()
	return ch, ok
}

// Get returns a copy of the run's record.
func (r *Registry) Get(runID string) (Record, bool) {
	r.mu.RLock()
	rec, ok := r.runs[strings.TrimSpace(runID)]
	r.mu.RUnlock()
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// Finish marks the run done, closes its event channel, and schedules removal
// after the retention window. Calling Finish twice is a no-op.
func (r *Registry) Finish(runID string, runErr error) {
	runID = strings.TrimSpace(runID)
	r.mu.Lock()
	rec, ok := r.runs[runID]
	if ok && rec.Status == StatusRunning {
		rec.Status = StatusComplete
		if runErr != nil {
			rec.Status = StatusFailed
			rec.Error = runErr.Error()
		}
		rec.FinishedAt = time.Now()
		if ch, found := r.events[runID]; found {
			close(ch)
		}
	}
	r.mu.Unlock()
	if ok {
		r.scheduleCleanup(runID)
	}
}

func (r *Registry) scheduleCleanup(runID string) {
	time.AfterFunc(completedRunRetention, func() {
		r.mu.Lock()
		delete(r.runs, runID)
		delete(r.events, runID)
		r.mu.Unlock()
	})
}
