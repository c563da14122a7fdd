package replay

import (
	"time"

	"github.com/google/uuid"

	"github.com/forgeline/linesight/internal/models"
)

// Thresholds holds the escalation policy knobs.
type Thresholds struct {
	// EscalateRatePct is the rolling defect rate above which a line
	// escalates one tier.
	EscalateRatePct float64
	// RecoverRatePct is the rate below which recovery time accrues.
	RecoverRatePct float64
	// RateWindow is the trailing window the rolling rate is computed over.
	RateWindow time.Duration
	// TierDwell is the minimum time spent in a reduced-speed tier before
	// the next escalation is considered.
	TierDwell time.Duration
	// RecoveryWindow is how long the rate must stay below RecoverRatePct
	// before a line returns to normal.
	RecoveryWindow time.Duration
}

// DefaultThresholds returns the production escalation policy.
func DefaultThresholds() Thresholds {
	return Thresholds{
		EscalateRatePct: 3.0,
		RecoverRatePct:  2.0,
		RateWindow:      15 * time.Minute,
		TierDwell:       15 * time.Minute,
		RecoveryWindow:  20 * time.Minute,
	}
}

// StepResult is the outcome of applying one sample to the state machine.
type StepResult struct {
	State models.EscalationState
	// Event is non-nil when the sample caused a tier transition.
	Event *models.DefectEvent
	// RatePct is the rolling defect rate observed at this sample.
	RatePct float64
}

// RollingRate computes the defect rate (percent) over samples strictly
// before t and within [t-window, t). The sample at t itself is excluded so
// the rate a sample is judged against never includes that sample. An empty
// window yields 0.
func RollingRate(history []*models.SensorSample, t time.Time, window time.Duration) float64 {
	cutoff := t.Add(-window)
	var defects, units int
	for _, s := range history {
		if s.Timestamp.Before(cutoff) || !s.Timestamp.Before(t) {
			continue
		}
		defects += s.DefectCount
		units += s.UnitsProduced
	}
	if units == 0 {
		return 0
	}
	return float64(defects) / float64(units) * 100
}

// Step applies one sample to the escalation state machine. history holds
// prior samples for the same line (the sample itself must not be in it).
// Step is pure: identical inputs produce identical outputs, which is what
// makes replays reproducible. At most one tier transition happens per
// sample.
func Step(state models.EscalationState, sample *models.SensorSample, history []*models.SensorSample, th Thresholds) StepResult {
	rate := RollingRate(history, sample.Timestamp, th.RateWindow)
	now := sample.Timestamp

	// Track sustained recovery. Any reading at or above the recovery
	// threshold resets the clock.
	if rate < th.RecoverRatePct {
		if state.RecoverySince.IsZero() {
			state.RecoverySince = now
		}
	} else {
		state.RecoverySince = time.Time{}
	}

	var event *models.DefectEvent
	switch {
	// Escalations fire only on samples that themselves carry defects; a
	// clean sample never pushes a line up a tier even if the trailing
	// window is still hot.
	case sample.DefectCount > 0 && state.CurrentTier == models.TierNormal && rate > th.EscalateRatePct:
		state, event = escalate(state, models.TierSpeedReduced15, sample, rate)
	case sample.DefectCount > 0 && state.CurrentTier == models.TierSpeedReduced15 &&
		rate >= th.EscalateRatePct && now.Sub(state.TierEnteredAt) >= th.TierDwell:
		state, event = escalate(state, models.TierSpeedReduced30, sample, rate)
	case sample.DefectCount > 0 && state.CurrentTier == models.TierSpeedReduced30 &&
		rate > th.EscalateRatePct && now.Sub(state.TierEnteredAt) >= th.TierDwell:
		state, event = escalate(state, models.TierStopped, sample, rate)

	case state.CurrentTier != models.TierNormal &&
		!state.RecoverySince.IsZero() && now.Sub(state.RecoverySince) >= th.RecoveryWindow &&
		(state.CurrentTier != models.TierStopped || state.Cleared):
		state.CurrentTier = models.TierNormal
		state.TierEnteredAt = now
		state.RecoverySince = time.Time{}
		state.Cleared = false
		event = &models.DefectEvent{
			ID:             uuid.New().String(),
			Timestamp:      now,
			LineID:         sample.LineID,
			DefectType:     "recovered",
			Severity:       models.SeverityInfo,
			RollingRatePct: rate,
			Snapshot:       sample.Snapshot(),
		}
	}

	return StepResult{State: state, Event: event, RatePct: rate}
}

func escalate(state models.EscalationState, target models.Tier, sample *models.SensorSample, rate float64) (models.EscalationState, *models.DefectEvent) {
	state.CurrentTier = target
	state.TierEnteredAt = sample.Timestamp
	state.RecoverySince = time.Time{}
	event := &models.DefectEvent{
		ID:             uuid.New().String(),
		Timestamp:      sample.Timestamp,
		LineID:         sample.LineID,
		DefectType:     "defect_rate_breach",
		Severity:       severityFor(target),
		RollingRatePct: rate,
		Snapshot:       sample.Snapshot(),
	}
	return state, event
}

func severityFor(tier models.Tier) string {
	switch tier {
	case models.TierSpeedReduced30:
		return models.SeverityCritical
	case models.TierStopped:
		return models.SeverityStop
	default:
		return models.SeverityWarning
	}
}
