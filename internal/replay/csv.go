// Package replay consumes ordered telemetry tables, advances a virtual
// clock, and drives the defect-rate escalation state machine, writing
// samples, defect events, and escalation state into the store.
package replay

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/forgeline/linesight/internal/models"
)

// csvColumns is the required header, in order.
var csvColumns = []string{
	"timestamp",
	"line_id",
	"preheat_zone_temp_c",
	"forming_zone_temp_c",
	"cooling_zone_temp_c",
	"coolant_flow_pct",
	"hydraulic_pressure_bar",
	"line_speed_mpm",
	"defect_count",
	"units_produced",
}

// ReadSamples parses a telemetry CSV stream into samples. The header must
// match csvColumns exactly and timestamps must be RFC 3339. Rows are
// returned in file order; ordering is enforced by the store on append, not
// here.
func ReadSamples(r io.Reader) ([]*models.SensorSample, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(csvColumns)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	for i, col := range csvColumns {
		if header[i] != col {
			return nil, &models.ValidationError{
				Field:  "header",
				Reason: fmt.Sprintf("column %d is %q, want %q", i, header[i], col),
			}
		}
	}

	var samples []*models.SensorSample
	for row := 2; ; row++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row %d: %w", row, err)
		}
		sample, err := parseRow(record)
		if err != nil {
			return nil, fmt.Errorf("csv row %d: %w", row, err)
		}
		samples = append(samples, sample)
	}
	return samples, nil
}

// ReadSamplesFile reads a telemetry CSV from disk.
func ReadSamplesFile(path string) ([]*models.SensorSample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open telemetry file: %w", err)
	}
	defer f.Close()
	return ReadSamples(f)
}

func parseRow(record []string) (*models.SensorSample, error) {
	ts, err := time.Parse(time.RFC3339, record[0])
	if err != nil {
		return nil, &models.ValidationError{Field: "timestamp", Reason: err.Error()}
	}
	s := &models.SensorSample{Timestamp: ts, LineID: record[1]}

	floats := []struct {
		name string
		dst  *float64
		raw  string
	}{
		{"preheat_zone_temp_c", &s.PreheatZoneTempC, record[2]},
		{"forming_zone_temp_c", &s.FormingZoneTempC, record[3]},
		{"cooling_zone_temp_c", &s.CoolingZoneTempC, record[4]},
		{"coolant_flow_pct", &s.CoolantFlowPct, record[5]},
		{"hydraulic_pressure_bar", &s.HydraulicPressureBar, record[6]},
		{"line_speed_mpm", &s.LineSpeedMPM, record[7]},
	}
	for _, f := range floats {
		v, err := strconv.ParseFloat(f.raw, 64)
		if err != nil {
			return nil, &models.ValidationError{Field: f.name, Reason: err.Error()}
		}
		*f.dst = v
	}

	ints := []struct {
		name string
		dst  *int
		raw  string
	}{
		{"defect_count", &s.DefectCount, record[8]},
		{"units_produced", &s.UnitsProduced, record[9]},
	}
	for _, f := range ints {
		v, err := strconv.Atoi(f.raw)
		if err != nil {
			return nil, &models.ValidationError{Field: f.name, Reason: err.Error()}
		}
		*f.dst = v
	}
	return s, nil
}
