package models

import "time"

// DefectEvent records a threshold crossing detected during replay. Events
// are append-only and never mutated after creation.
type DefectEvent struct {
	ID             string         `json:"id"`
	Timestamp      time.Time      `json:"timestamp"`
	LineID         string         `json:"line_id"`
	DefectType     string         `json:"defect_type"`
	Severity       string         `json:"severity"`
	RollingRatePct float64        `json:"rolling_defect_rate_pct"`
	Snapshot       SignalSnapshot `json:"triggering_signal_snapshot"`
}

// Severity levels assigned to defect events by the escalation tier that
// emitted them.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
	SeverityStop     = "stop"
)
