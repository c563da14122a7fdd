package storage

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/forgeline/linesight/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "telemetry.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleAt(line string, ts time.Time, defects, units int) *models.SensorSample {
	return &models.SensorSample{
		Timestamp:            ts,
		LineID:               line,
		PreheatZoneTempC:     120,
		FormingZoneTempC:     172,
		CoolingZoneTempC:     50,
		CoolantFlowPct:       98,
		HydraulicPressureBar: 3.2,
		LineSpeedMPM:         45,
		DefectCount:          defects,
		UnitsProduced:        units,
	}
}

func TestAppendSample_MonotonicPerLine(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 15, 6, 0, 0, 0, time.UTC)

	if err := store.AppendSample(ctx, sampleAt("LINE-3", base, 1, 100)); err != nil {
		t.Fatalf("first append: %v", err)
	}
	if err := store.AppendSample(ctx, sampleAt("LINE-3", base.Add(5*time.Minute), 0, 100)); err != nil {
		t.Fatalf("second append: %v", err)
	}

	err := store.AppendSample(ctx, sampleAt("LINE-3", base.Add(time.Minute), 0, 100))
	var verr *models.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for non-monotonic timestamp, got %v", err)
	}

	// Same timestamp on a different line is fine.
	if err := store.AppendSample(ctx, sampleAt("LINE-4", base, 0, 100)); err != nil {
		t.Errorf("different line should not conflict: %v", err)
	}
}

func TestAppendSample_Validation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	ts := time.Date(2024, 1, 15, 6, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		sample *models.SensorSample
	}{
		{"missing line", sampleAt("", ts, 0, 100)},
		{"missing timestamp", sampleAt("LINE-3", time.Time{}, 0, 100)},
		{"negative defects", sampleAt("LINE-3", ts, -1, 100)},
		{"defects exceed units", sampleAt("LINE-3", ts, 101, 100)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.AppendSample(ctx, tt.sample)
			var verr *models.ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("expected ValidationError, got %v", err)
			}
		})
	}

	// A rejected append must not corrupt the store.
	count, err := store.CountSamples(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("store should be empty after rejected appends, has %d samples", count)
	}
}

func TestAppendDefectEvent_Ordering(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 15, 13, 30, 0, 0, time.UTC)

	ev := &models.DefectEvent{
		ID: "ev-1", LineID: "LINE-3", Timestamp: base,
		DefectType: "surface_crack", Severity: models.SeverityWarning, RollingRatePct: 3.4,
	}
	if err := store.AppendDefectEvent(ctx, ev); err != nil {
		t.Fatalf("append: %v", err)
	}

	earlier := &models.DefectEvent{
		ID: "ev-2", LineID: "LINE-3", Timestamp: base.Add(-time.Minute),
		DefectType: "pitting", Severity: models.SeverityWarning, RollingRatePct: 3.5,
	}
	err := store.AppendDefectEvent(ctx, earlier)
	var cerr *models.ConsistencyError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ConsistencyError, got %v", err)
	}

	count, _ := store.CountDefectEvents(ctx)
	if count != 1 {
		t.Errorf("rejected write must leave store unchanged, have %d events", count)
	}
}

func TestQueryWindow_Ordered(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 15, 6, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		if err := store.AppendSample(ctx, sampleAt("LINE-3", base.Add(time.Duration(i)*5*time.Minute), 0, 100)); err != nil {
			t.Fatal(err)
		}
	}

	samples, err := store.QueryWindow(ctx, "LINE-3", base.Add(5*time.Minute), base.Add(15*time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if len(samples) != 3 {
		t.Fatalf("expected 3 samples in window, got %d", len(samples))
	}
	for i := 1; i < len(samples); i++ {
		if !samples[i].Timestamp.After(samples[i-1].Timestamp) {
			t.Error("window results must be ordered by timestamp")
		}
	}
}

func TestQueryRecentDefects_MostRecentFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 15, 13, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		ev := &models.DefectEvent{
			ID:         "ev-" + strconv.Itoa(i),
			LineID:     "LINE-3",
			Timestamp:  base.Add(time.Duration(i) * 10 * time.Minute),
			DefectType: "surface_crack",
			Severity:   models.SeverityWarning,
		}
		if err := store.AppendDefectEvent(ctx, ev); err != nil {
			t.Fatal(err)
		}
	}

	events, err := store.QueryRecentDefects(ctx, "LINE-3", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	for i := 1; i < len(events); i++ {
		if events[i].Timestamp.After(events[i-1].Timestamp) {
			t.Error("recent defects must be ordered most recent first")
		}
	}
}

func TestSummaryStats(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

	// Rising forming temperature across the window.
	temps := []float64{172, 173, 178, 184, 188}
	for i, temp := range temps {
		sm := sampleAt("LINE-3", base.Add(time.Duration(i)*5*time.Minute), 2, 100)
		sm.FormingZoneTempC = temp
		if err := store.AppendSample(ctx, sm); err != nil {
			t.Fatal(err)
		}
	}

	stats, err := store.SummaryStats(ctx, "LINE-3", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if stats.SampleCount != 5 {
		t.Errorf("SampleCount = %d, want 5", stats.SampleCount)
	}
	if stats.DefectRatePct != 2.0 {
		t.Errorf("DefectRatePct = %v, want 2.0", stats.DefectRatePct)
	}
	if stats.TrendDirection != "rising" {
		t.Errorf("TrendDirection = %q, want rising", stats.TrendDirection)
	}
	if stats.PeakFormingTempC != 188 {
		t.Errorf("PeakFormingTempC = %v, want 188", stats.PeakFormingTempC)
	}
}

func TestSummaryStats_NoTelemetry(t *testing.T) {
	store := newTestStore(t)
	_, err := store.SummaryStats(context.Background(), "LINE-9", time.Hour)
	var nerr *models.NoTelemetryError
	if !errors.As(err, &nerr) {
		t.Fatalf("expected NoTelemetryError, got %v", err)
	}
}

func TestEscalationState_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, found, err := store.EscalationState(ctx, "LINE-3")
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Error("no state should exist before save")
	}

	state := models.EscalationState{
		LineID:        "LINE-3",
		CurrentTier:   models.TierSpeedReduced30,
		TierEnteredAt: time.Date(2024, 1, 15, 14, 30, 0, 0, time.UTC),
		Cleared:       true,
	}
	if err := store.SaveEscalationState(ctx, state); err != nil {
		t.Fatal(err)
	}

	loaded, found, err := store.EscalationState(ctx, "LINE-3")
	if err != nil {
		t.Fatal(err)
	}
	if !found {
		t.Fatal("state should exist after save")
	}
	if loaded.CurrentTier != models.TierSpeedReduced30 {
		t.Errorf("CurrentTier = %v, want TierSpeedReduced30", loaded.CurrentTier)
	}
	if !loaded.TierEnteredAt.Equal(state.TierEnteredAt) {
		t.Errorf("TierEnteredAt = %v, want %v", loaded.TierEnteredAt, state.TierEnteredAt)
	}
	if !loaded.Cleared {
		t.Error("Cleared flag lost in round trip")
	}
}

func TestUpsertChunks_Idempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	chunks := []*models.DocumentChunk{
		{SourceDocument: "SOP-002.md", ChunkIndex: 0, Content: "cooling valve V-17"},
		{SourceDocument: "SOP-002.md", ChunkIndex: 1, Content: "calibration drift"},
	}
	if err := store.UpsertChunks(ctx, chunks); err != nil {
		t.Fatal(err)
	}
	// Re-ingest with changed content replaces, never duplicates.
	chunks[0].Content = "cooling valve V-17 (revised)"
	if err := store.UpsertChunks(ctx, chunks); err != nil {
		t.Fatal(err)
	}

	count, err := store.CountChunks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("expected 2 chunks after re-ingest, got %d", count)
	}

	got, err := store.GetChunkByKey(ctx, models.ChunkKey("SOP-002.md", 0))
	if err != nil {
		t.Fatal(err)
	}
	if got.Content != "cooling valve V-17 (revised)" {
		t.Errorf("re-ingest did not replace content: %q", got.Content)
	}
}
