package replay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/forgeline/linesight/internal/models"
	"github.com/forgeline/linesight/internal/storage"
)

// Replayer feeds ordered samples through the escalation state machine and
// persists samples, defect events, and per-line state. It is the single
// writer of telemetry.
type Replayer struct {
	store      storage.Store
	logger     *zap.Logger
	thresholds Thresholds

	// speed compresses inter-sample gaps for paced replay. 1 replays in
	// real time, 60 turns a minute of data into a second, 0 disables
	// pacing entirely.
	speed float64

	mu        sync.Mutex
	clearance map[string]bool
}

// Option configures a Replayer.
type Option func(*Replayer)

// WithLogger sets the replay logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Replayer) { r.logger = l }
}

// WithThresholds overrides the escalation policy.
func WithThresholds(th Thresholds) Option {
	return func(r *Replayer) { r.thresholds = th }
}

// WithSpeed enables paced replay at the given time-compression multiplier.
func WithSpeed(multiplier float64) Option {
	return func(r *Replayer) {
		if multiplier > 0 {
			r.speed = multiplier
		}
	}
}

// New creates a Replayer writing to store.
func New(store storage.Store, opts ...Option) *Replayer {
	r := &Replayer{
		store:      store,
		logger:     zap.NewNop(),
		thresholds: DefaultThresholds(),
		clearance:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// InjectClearance marks a line as cleared by an operator. The flag is
// applied to the line's state before its next sample is stepped; leaving
// the stopped tier is impossible without it.
func (r *Replayer) InjectClearance(lineID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clearance[lineID] = true
}

func (r *Replayer) takeClearance(lineID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.clearance[lineID] {
		delete(r.clearance, lineID)
		return true
	}
	return false
}

// Result summarizes a replay run.
type Result struct {
	SamplesApplied int
	SamplesSkipped int
	Events         []*models.DefectEvent
	FinalStates    map[string]models.EscalationState
}

// Run replays samples in order. Per-line escalation state is loaded from
// the store so successive runs continue where the last one stopped. A
// sample rejected by store validation is skipped with a warning; any other
// error aborts the run. With pacing enabled, Run sleeps between samples
// and honors context cancellation.
func (r *Replayer) Run(ctx context.Context, samples []*models.SensorSample) (*Result, error) {
	result := &Result{FinalStates: make(map[string]models.EscalationState)}
	states := make(map[string]models.EscalationState)
	histories := make(map[string][]*models.SensorSample)

	var prev time.Time
	for _, sample := range samples {
		if r.speed > 0 && !prev.IsZero() && sample.Timestamp.After(prev) {
			gap := time.Duration(float64(sample.Timestamp.Sub(prev)) / r.speed)
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-time.After(gap):
			}
		} else if err := ctx.Err(); err != nil {
			return result, err
		}
		prev = sample.Timestamp

		state, ok := states[sample.LineID]
		if !ok {
			loaded, found, err := r.store.EscalationState(ctx, sample.LineID)
			if err != nil {
				return result, fmt.Errorf("load escalation state for %s: %w", sample.LineID, err)
			}
			if found {
				state = loaded
			} else {
				state = models.NewEscalationState(sample.LineID)
			}
		}
		if r.takeClearance(sample.LineID) {
			state.Cleared = true
		}

		if err := r.store.AppendSample(ctx, sample); err != nil {
			var verr *models.ValidationError
			if errors.As(err, &verr) {
				r.logger.Warn("skipping rejected sample",
					zap.String("line", sample.LineID),
					zap.Time("timestamp", sample.Timestamp),
					zap.Error(err),
				)
				result.SamplesSkipped++
				continue
			}
			return result, fmt.Errorf("append sample: %w", err)
		}
		result.SamplesApplied++

		step := Step(state, sample, histories[sample.LineID], r.thresholds)
		if step.Event != nil {
			if err := r.store.AppendDefectEvent(ctx, step.Event); err != nil {
				return result, fmt.Errorf("append defect event: %w", err)
			}
			result.Events = append(result.Events, step.Event)
			r.logger.Info("tier transition",
				zap.String("line", sample.LineID),
				zap.String("tier", step.State.CurrentTier.String()),
				zap.String("severity", step.Event.Severity),
				zap.Float64("rolling_rate_pct", step.RatePct),
				zap.Time("at", sample.Timestamp),
			)
		}
		if err := r.store.SaveEscalationState(ctx, step.State); err != nil {
			return result, fmt.Errorf("save escalation state: %w", err)
		}
		states[sample.LineID] = step.State
		result.FinalStates[sample.LineID] = step.State

		histories[sample.LineID] = appendPruned(histories[sample.LineID], sample, r.thresholds.RateWindow)
	}

	r.logger.Info("replay finished",
		zap.Int("applied", result.SamplesApplied),
		zap.Int("skipped", result.SamplesSkipped),
		zap.Int("events", len(result.Events)),
	)
	return result, nil
}

// RunFile replays a telemetry CSV from disk.
func (r *Replayer) RunFile(ctx context.Context, path string) (*Result, error) {
	samples, err := ReadSamplesFile(path)
	if err != nil {
		return nil, err
	}
	return r.Run(ctx, samples)
}

// appendPruned appends sample and drops history older than the rate
// window, keyed to the newest timestamp.
func appendPruned(history []*models.SensorSample, sample *models.SensorSample, window time.Duration) []*models.SensorSample {
	history = append(history, sample)
	cutoff := sample.Timestamp.Add(-window)
	i := 0
	for i < len(history) && history[i].Timestamp.Before(cutoff) {
		i++
	}
	return history[i:]
}
