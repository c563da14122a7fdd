package models

import (
	"fmt"
	"time"
)

// Tier is a discrete operating mode for a production line, escalated as
// defect-rate breaches persist.
type Tier int

const (
	TierNormal Tier = iota
	TierSpeedReduced15
	TierSpeedReduced30
	TierStopped
)

// String returns the tier name used in logs, events, and the API.
func (t Tier) String() string {
	switch t {
	case TierNormal:
		return "normal"
	case TierSpeedReduced15:
		return "speed_reduced_15"
	case TierSpeedReduced30:
		return "speed_reduced_30"
	case TierStopped:
		return "stopped"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// SpeedReductionPct returns the cumulative line-speed reduction the tier
// imposes.
func (t Tier) SpeedReductionPct() float64 {
	switch t {
	case TierSpeedReduced15:
		return 15
	case TierSpeedReduced30:
		return 30
	case TierStopped:
		return 100
	default:
		return 0
	}
}

// ParseTier converts a stored tier value back into a Tier.
func ParseTier(v int) (Tier, error) {
	if v < int(TierNormal) || v > int(TierStopped) {
		return TierNormal, fmt.Errorf("invalid tier value %d", v)
	}
	return Tier(v), nil
}

// EscalationState is the per-line state machine state. It is owned by the
// replayer; every transition flows through an explicit step function so
// replays stay deterministic.
type EscalationState struct {
	LineID        string    `json:"line_id"`
	CurrentTier   Tier      `json:"current_tier"`
	TierEnteredAt time.Time `json:"tier_entered_at"`
	// RecoverySince is the timestamp when the rolling rate last dropped
	// below the recovery threshold and stayed there. Zero when the rate is
	// at or above the threshold.
	RecoverySince time.Time `json:"recovery_since,omitempty"`
	// Cleared is set by an external clearance signal and is required for
	// leaving TierStopped. Recovery from Stopped is never timer-only.
	Cleared bool `json:"cleared"`
}

// NewEscalationState returns the initial state for a line.
func NewEscalationState(lineID string) EscalationState {
	return EscalationState{LineID: lineID, CurrentTier: TierNormal}
}
