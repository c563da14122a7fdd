// Package models defines core data structures for telemetry, defects,
// escalation state, and document chunks.
package models

import "time"

// SensorSample is one telemetry reading for a production line. Samples are
// immutable once recorded and ordered by timestamp within a line.
type SensorSample struct {
	Timestamp            time.Time `json:"timestamp"`
	LineID               string    `json:"line_id"`
	PreheatZoneTempC     float64   `json:"preheat_zone_temp_c"`
	FormingZoneTempC     float64   `json:"forming_zone_temp_c"`
	CoolingZoneTempC     float64   `json:"cooling_zone_temp_c"`
	CoolantFlowPct       float64   `json:"coolant_flow_pct"`
	HydraulicPressureBar float64   `json:"hydraulic_pressure_bar"`
	LineSpeedMPM         float64   `json:"line_speed_mpm"`
	DefectCount          int       `json:"defect_count"`
	UnitsProduced        int       `json:"units_produced"`
}

// SignalSnapshot captures the sensor readings in effect when a defect
// event was emitted. Stored alongside the event for later correlation.
type SignalSnapshot struct {
	PreheatZoneTempC     float64 `json:"preheat_zone_temp_c"`
	FormingZoneTempC     float64 `json:"forming_zone_temp_c"`
	CoolingZoneTempC     float64 `json:"cooling_zone_temp_c"`
	CoolantFlowPct       float64 `json:"coolant_flow_pct"`
	HydraulicPressureBar float64 `json:"hydraulic_pressure_bar"`
	LineSpeedMPM         float64 `json:"line_speed_mpm"`
}

// Snapshot extracts the signal snapshot from a sample.
func (s *SensorSample) Snapshot() SignalSnapshot {
	return SignalSnapshot{
		PreheatZoneTempC:     s.PreheatZoneTempC,
		FormingZoneTempC:     s.FormingZoneTempC,
		CoolingZoneTempC:     s.CoolingZoneTempC,
		CoolantFlowPct:       s.CoolantFlowPct,
		HydraulicPressureBar: s.HydraulicPressureBar,
		LineSpeedMPM:         s.LineSpeedMPM,
	}
}

// SummaryStats aggregates telemetry over a trailing window. The window is
// measured back from the newest stored sample, not wall clock, because
// replayed datasets carry their own clock.
type SummaryStats struct {
	LineID             string        `json:"line_id"`
	Window             time.Duration `json:"-"`
	WindowLabel        string        `json:"window"`
	SampleCount        int           `json:"sample_count"`
	AvgPreheatTempC    float64       `json:"avg_preheat_temp_c"`
	AvgFormingTempC    float64       `json:"avg_forming_temp_c"`
	AvgCoolingTempC    float64       `json:"avg_cooling_temp_c"`
	PeakFormingTempC   float64       `json:"peak_forming_temp_c"`
	PeakFormingTempAt  time.Time     `json:"peak_forming_temp_at"`
	AvgCoolantFlowPct  float64       `json:"avg_coolant_flow_pct"`
	MinCoolantFlowPct  float64       `json:"min_coolant_flow_pct"`
	AvgLineSpeedMPM    float64       `json:"avg_line_speed_mpm"`
	DefectRatePct      float64       `json:"defect_rate_pct"`
	TrendDirection     string        `json:"trend_direction"`
	LatestTimestamp    time.Time     `json:"latest_timestamp"`
}
