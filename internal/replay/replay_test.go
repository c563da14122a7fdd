package replay

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/forgeline/linesight/internal/models"
	"github.com/forgeline/linesight/internal/storage"
)

var base = time.Date(2023, 9, 14, 8, 0, 0, 0, time.UTC)

func sampleAt(t time.Time, defects, units int) *models.SensorSample {
	return &models.SensorSample{
		Timestamp:        t,
		LineID:           "LINE-A",
		FormingZoneTempC: 190,
		CoolantFlowPct:   80,
		LineSpeedMPM:     12,
		DefectCount:      defects,
		UnitsProduced:    units,
	}
}

// minuteSeries builds samples one minute apart: n nominal samples at 1%
// followed by m elevated samples at 5%, 100 units each.
func minuteSeries(nominal, elevated int) []*models.SensorSample {
	var out []*models.SensorSample
	for i := 0; i < nominal+elevated; i++ {
		defects := 1
		if i >= nominal {
			defects = 5
		}
		out = append(out, sampleAt(base.Add(time.Duration(i)*time.Minute), defects, 100))
	}
	return out
}

func newTestStore(t *testing.T) storage.Store {
	t.Helper()
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "replay.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRollingRate_ExcludesCurrentSample(t *testing.T) {
	history := []*models.SensorSample{sampleAt(base, 1, 100)}
	now := base.Add(time.Minute)

	// Only the history sample counts, never anything at or after now.
	rate := RollingRate(history, now, 15*time.Minute)
	if rate != 1.0 {
		t.Errorf("rate = %v, want 1.0", rate)
	}

	rate = RollingRate(append(history, sampleAt(now, 50, 100)), now, 15*time.Minute)
	if rate != 1.0 {
		t.Errorf("rate with current sample in history = %v, want 1.0", rate)
	}

	if got := RollingRate(nil, now, 15*time.Minute); got != 0 {
		t.Errorf("empty window rate = %v, want 0", got)
	}
}

func TestStep_ZeroDefectSampleNeverEscalates(t *testing.T) {
	// Trailing window hot at 5%, but the sample itself is clean.
	history := []*models.SensorSample{
		sampleAt(base, 5, 100),
		sampleAt(base.Add(time.Minute), 5, 100),
	}
	state := models.NewEscalationState("LINE-A")
	res := Step(state, sampleAt(base.Add(2*time.Minute), 0, 100), history, DefaultThresholds())
	if res.State.CurrentTier != models.TierNormal {
		t.Errorf("tier = %v, want normal", res.State.CurrentTier)
	}
	if res.Event != nil {
		t.Errorf("unexpected event %+v", res.Event)
	}
}

func TestStep_AtMostOneTierPerSample(t *testing.T) {
	// A very hot window still moves the line only one tier.
	var history []*models.SensorSample
	for i := 0; i < 10; i++ {
		history = append(history, sampleAt(base.Add(time.Duration(i)*time.Minute), 50, 100))
	}
	state := models.NewEscalationState("LINE-A")
	res := Step(state, sampleAt(base.Add(10*time.Minute), 50, 100), history, DefaultThresholds())
	if res.State.CurrentTier != models.TierSpeedReduced15 {
		t.Errorf("tier = %v, want speed_reduced_15", res.State.CurrentTier)
	}
	if res.Event == nil || res.Event.Severity != models.SeverityWarning {
		t.Errorf("expected warning event, got %+v", res.Event)
	}
}

func TestStep_EscalationRequiresDwell(t *testing.T) {
	th := DefaultThresholds()
	history := []*models.SensorSample{sampleAt(base, 10, 100)}
	state := models.EscalationState{
		LineID:        "LINE-A",
		CurrentTier:   models.TierSpeedReduced15,
		TierEnteredAt: base,
	}

	// Five minutes in tier: too early for the next escalation.
	res := Step(state, sampleAt(base.Add(5*time.Minute), 10, 100), history, th)
	if res.State.CurrentTier != models.TierSpeedReduced15 || res.Event != nil {
		t.Fatalf("escalated before dwell elapsed: %+v", res.State)
	}

	// Fifteen minutes in tier with the rate still high.
	history = append(history, sampleAt(base.Add(10*time.Minute), 10, 100))
	res = Step(state, sampleAt(base.Add(15*time.Minute), 10, 100), history, th)
	if res.State.CurrentTier != models.TierSpeedReduced30 {
		t.Fatalf("tier = %v, want speed_reduced_30", res.State.CurrentTier)
	}
	if res.Event == nil || res.Event.Severity != models.SeverityCritical {
		t.Errorf("expected critical event, got %+v", res.Event)
	}
}

func TestStep_StoppedRequiresClearance(t *testing.T) {
	th := DefaultThresholds()
	state := models.EscalationState{
		LineID:        "LINE-A",
		CurrentTier:   models.TierStopped,
		TierEnteredAt: base,
		RecoverySince: base,
	}

	// 25 quiet minutes, no clearance: still stopped.
	res := Step(state, sampleAt(base.Add(25*time.Minute), 0, 100), nil, th)
	if res.State.CurrentTier != models.TierStopped {
		t.Fatalf("recovered from stopped without clearance")
	}

	state.Cleared = true
	res = Step(state, sampleAt(base.Add(25*time.Minute), 0, 100), nil, th)
	if res.State.CurrentTier != models.TierNormal {
		t.Fatalf("tier = %v, want normal after clearance", res.State.CurrentTier)
	}
	if res.State.Cleared {
		t.Error("clearance flag must be consumed by the recovery")
	}
	if res.Event == nil || res.Event.DefectType != "recovered" {
		t.Errorf("expected recovered event, got %+v", res.Event)
	}
}

func TestStep_RecoveryResetsOnHotReading(t *testing.T) {
	th := DefaultThresholds()
	state := models.EscalationState{
		LineID:        "LINE-A",
		CurrentTier:   models.TierSpeedReduced15,
		TierEnteredAt: base,
		RecoverySince: base,
	}
	// Rate back above the recovery threshold: the clock resets.
	history := []*models.SensorSample{sampleAt(base.Add(9*time.Minute), 3, 100)}
	res := Step(state, sampleAt(base.Add(10*time.Minute), 0, 100), history, th)
	if !res.State.RecoverySince.IsZero() {
		t.Errorf("RecoverySince = %v, want zero after hot reading", res.State.RecoverySince)
	}
	if res.State.CurrentTier != models.TierSpeedReduced15 {
		t.Errorf("tier = %v, want speed_reduced_15", res.State.CurrentTier)
	}
}

func TestRun_ExactlyOneTransitionInElevatedScenario(t *testing.T) {
	store := newTestStore(t)
	r := New(store)

	// 20 nominal samples then 16 at 5%. The rolling window first exceeds
	// 3% once eight elevated samples are inside it.
	result, err := r.Run(context.Background(), minuteSeries(20, 16))
	if err != nil {
		t.Fatal(err)
	}
	if result.SamplesApplied != 36 {
		t.Errorf("applied = %d, want 36", result.SamplesApplied)
	}
	if len(result.Events) != 1 {
		t.Fatalf("events = %d, want exactly 1", len(result.Events))
	}
	ev := result.Events[0]
	if ev.Severity != models.SeverityWarning || ev.DefectType != "defect_rate_breach" {
		t.Errorf("unexpected event %+v", ev)
	}
	wantAt := base.Add(28 * time.Minute)
	if !ev.Timestamp.Equal(wantAt) {
		t.Errorf("transition at %v, want %v", ev.Timestamp, wantAt)
	}
	if ev.RollingRatePct <= 3.0 {
		t.Errorf("event rate = %v, want > 3", ev.RollingRatePct)
	}

	state, found, err := store.EscalationState(context.Background(), "LINE-A")
	if err != nil || !found {
		t.Fatalf("escalation state not persisted: %v", err)
	}
	if state.CurrentTier != models.TierSpeedReduced15 {
		t.Errorf("persisted tier = %v, want speed_reduced_15", state.CurrentTier)
	}
}

func TestRun_Deterministic(t *testing.T) {
	run := func() []*models.DefectEvent {
		store := newTestStore(t)
		result, err := New(store).Run(context.Background(), minuteSeries(20, 16))
		if err != nil {
			t.Fatal(err)
		}
		return result.Events
	}
	a, b := run(), run()
	if len(a) != len(b) {
		t.Fatalf("event counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if !a[i].Timestamp.Equal(b[i].Timestamp) || a[i].DefectType != b[i].DefectType || a[i].Severity != b[i].Severity {
			t.Errorf("event %d differs between runs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestRun_InjectedClearanceReleasesStop(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	stopped := models.EscalationState{
		LineID:        "LINE-A",
		CurrentTier:   models.TierStopped,
		TierEnteredAt: base.Add(-time.Hour),
	}
	if err := store.SaveEscalationState(ctx, stopped); err != nil {
		t.Fatal(err)
	}

	// 21 quiet minutes of samples.
	var quiet []*models.SensorSample
	for i := 0; i <= 21; i++ {
		quiet = append(quiet, sampleAt(base.Add(time.Duration(i)*time.Minute), 0, 100))
	}

	r := New(store)
	result, err := r.Run(ctx, quiet[:10])
	if err != nil {
		t.Fatal(err)
	}
	if got := result.FinalStates["LINE-A"].CurrentTier; got != models.TierStopped {
		t.Fatalf("tier = %v before clearance, want stopped", got)
	}

	r.InjectClearance("LINE-A")
	result, err = r.Run(ctx, quiet[10:])
	if err != nil {
		t.Fatal(err)
	}
	if got := result.FinalStates["LINE-A"].CurrentTier; got != models.TierNormal {
		t.Errorf("tier = %v after clearance and quiet period, want normal", got)
	}
}

func TestRun_SkipsRejectedSamples(t *testing.T) {
	store := newTestStore(t)
	samples := minuteSeries(3, 0)
	// Duplicate of an already-appended timestamp.
	samples = append(samples, sampleAt(base.Add(time.Minute), 1, 100))

	result, err := New(store).Run(context.Background(), samples)
	if err != nil {
		t.Fatal(err)
	}
	if result.SamplesApplied != 3 || result.SamplesSkipped != 1 {
		t.Errorf("applied/skipped = %d/%d, want 3/1", result.SamplesApplied, result.SamplesSkipped)
	}
}

func TestRun_PacedReplayHonorsCancellation(t *testing.T) {
	store := newTestStore(t)
	samples := []*models.SensorSample{
		sampleAt(base, 0, 100),
		sampleAt(base.Add(time.Hour), 0, 100),
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := New(store, WithSpeed(1)).Run(ctx, samples)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
}

func TestReadSamples(t *testing.T) {
	input := strings.Join([]string{
		"timestamp,line_id,preheat_zone_temp_c,forming_zone_temp_c,cooling_zone_temp_c,coolant_flow_pct,hydraulic_pressure_bar,line_speed_mpm,defect_count,units_produced",
		"2023-09-14T08:00:00Z,LINE-A,142.5,188.2,55.0,82.0,161.3,12.5,1,100",
		"2023-09-14T08:01:00Z,LINE-A,142.7,188.9,55.1,81.5,161.0,12.5,0,100",
	}, "\n")

	samples, err := ReadSamples(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	if len(samples) != 2 {
		t.Fatalf("got %d samples, want 2", len(samples))
	}
	s := samples[0]
	if s.LineID != "LINE-A" || s.FormingZoneTempC != 188.2 || s.DefectCount != 1 || s.UnitsProduced != 100 {
		t.Errorf("unexpected sample: %+v", s)
	}
	if !s.Timestamp.Equal(base) {
		t.Errorf("timestamp = %v, want %v", s.Timestamp, base)
	}
}

func TestReadSamples_BadInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"wrong header", "time,line\n"},
		{"bad timestamp", "timestamp,line_id,preheat_zone_temp_c,forming_zone_temp_c,cooling_zone_temp_c,coolant_flow_pct,hydraulic_pressure_bar,line_speed_mpm,defect_count,units_produced\nyesterday,LINE-A,1,1,1,1,1,1,0,100"},
		{"bad number", "timestamp,line_id,preheat_zone_temp_c,forming_zone_temp_c,cooling_zone_temp_c,coolant_flow_pct,hydraulic_pressure_bar,line_speed_mpm,defect_count,units_produced\n2023-09-14T08:00:00Z,LINE-A,hot,1,1,1,1,1,0,100"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadSamples(strings.NewReader(tt.input))
			if err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
