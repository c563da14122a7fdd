package models

// SensorThresholds holds the plant's nominal operating limits. Warning
// limits mean operators should be alerted; critical limits mean an
// automated slow-down or line stop may be warranted.
type SensorThresholds struct {
	TempWarningC          float64 `json:"temp_warning_c"`
	TempCriticalC         float64 `json:"temp_critical_c"`
	PressureWarningBar    float64 `json:"pressure_warning_bar"`
	PressureCriticalBar   float64 `json:"pressure_critical_bar"`
	NominalLineSpeedMPM   float64 `json:"nominal_line_speed_mpm"`
	NominalPressureBar    float64 `json:"nominal_pressure_bar"`
	NominalCoolantFlowPct float64 `json:"nominal_coolant_flow_pct"`
	BaselineDefectRatePct float64 `json:"baseline_defect_rate_pct"`
}

// DefaultSensorThresholds returns the limits for a metal forming line.
func DefaultSensorThresholds() SensorThresholds {
	return SensorThresholds{
		TempWarningC:          185.0,
		TempCriticalC:         195.0,
		PressureWarningBar:    2.8,
		PressureCriticalBar:   2.0,
		NominalLineSpeedMPM:   45.0,
		NominalPressureBar:    3.2,
		NominalCoolantFlowPct: 98.0,
		BaselineDefectRatePct: 2.0,
	}
}

// CorrelationMetrics carries the headline sensor figures behind an answer
// so callers can show how far the line drifted from nominal alongside the
// answer text. Deviations are clamped at zero and rounded to one decimal.
type CorrelationMetrics struct {
	PeakFormingTempC    float64 `json:"peak_forming_temp_c"`
	TempAboveWarningC   float64 `json:"temp_above_warning_c"`
	MinCoolantFlowPct   float64 `json:"min_coolant_flow_pct"`
	FlowBelowNominalPct float64 `json:"flow_below_nominal_pct"`
	DefectRatePct       float64 `json:"defect_rate_pct"`
	RateVsBaselinePct   float64 `json:"rate_vs_baseline_pct"`
}
