// Package metrics provides a lightweight stopwatch for named pipeline
// stages, so per-query latency can be surfaced to callers.
package metrics

import (
	"sync"
	"time"
)

// Tracker accumulates wall-clock durations for named processing stages.
// Safe for use by a single request flowing through concurrent stages.
type Tracker struct {
	mu        sync.Mutex
	starts    map[string]time.Time
	durations map[string]time.Duration
	order     []string
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		starts:    make(map[string]time.Time),
		durations: make(map[string]time.Duration),
	}
}

// Start records the start time for a stage.
func (t *Tracker) Start(stage string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.starts[stage] = time.Now()
}

// Stop records the elapsed duration for a stage. Stopping a stage that was
// never started is a no-op.
func (t *Tracker) Stop(stage string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	start, ok := t.starts[stage]
	if !ok {
		return
	}
	delete(t.starts, stage)
	if _, seen := t.durations[stage]; !seen {
		t.order = append(t.order, stage)
	}
	t.durations[stage] = time.Since(start)
}

// Observe records a pre-measured duration for a stage.
func (t *Tracker) Observe(stage string, d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, seen := t.durations[stage]; !seen {
		t.order = append(t.order, stage)
	}
	t.durations[stage] = d
}

// Seconds returns all stage durations in seconds plus a "total" key.
func (t *Tracker) Seconds() map[string]float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]float64, len(t.durations)+1)
	var total time.Duration
	for stage, d := range t.durations {
		out[stage] = d.Seconds()
		total += d
	}
	out["total"] = total.Seconds()
	return out
}

// Stages returns the stage names in completion order.
func (t *Tracker) Stages() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}
