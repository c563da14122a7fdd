// Package integration exercises the full pipeline: CSV replay through the
// escalation engine, document ingestion, and a grounded question answered
// end to end against real storage.
package integration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/forgeline/linesight/internal/completion"
	"github.com/forgeline/linesight/internal/copilot"
	"github.com/forgeline/linesight/internal/docindex"
	"github.com/forgeline/linesight/internal/embedding"
	"github.com/forgeline/linesight/internal/models"
	"github.com/forgeline/linesight/internal/replay"
	"github.com/forgeline/linesight/internal/storage"
	"github.com/forgeline/linesight/internal/vector"
)

// writeTelemetryCSV writes 20 nominal minutes followed by 16 elevated
// minutes for LINE-A.
func writeTelemetryCSV(t *testing.T, dir string) string {
	t.Helper()
	base := time.Date(2023, 9, 14, 8, 0, 0, 0, time.UTC)
	var b strings.Builder
	b.WriteString("timestamp,line_id,preheat_zone_temp_c,forming_zone_temp_c,cooling_zone_temp_c,coolant_flow_pct,hydraulic_pressure_bar,line_speed_mpm,defect_count,units_produced\n")
	for i := 0; i < 36; i++ {
		defects := 1
		coolant := 82.0
		if i >= 20 {
			defects = 5
			coolant = 64.0
		}
		fmt.Fprintf(&b, "%s,LINE-A,142.5,%0.1f,55.0,%0.1f,161.3,12.5,%d,100\n",
			base.Add(time.Duration(i)*time.Minute).Format(time.RFC3339),
			188.0+float64(i)*0.2, coolant, defects)
	}
	path := filepath.Join(dir, "shift.csv")
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestIntegration_ReplayThenAsk(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewSQLiteStore(filepath.Join(dir, "linesight.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	embedder := embedding.NewMockEmbedder(32)
	defer embedder.Close()
	vectors, err := vector.NewMemoryIndex(embedder.Dimensions())
	if err != nil {
		t.Fatal(err)
	}
	defer vectors.Close()
	index := docindex.New(store, embedder, vectors)

	ctx := context.Background()

	// Replay the shift.
	csvPath := writeTelemetryCSV(t, dir)
	replayer := replay.New(store)
	result, err := replayer.RunFile(ctx, csvPath)
	if err != nil {
		t.Fatal(err)
	}
	if result.SamplesApplied != 36 {
		t.Fatalf("applied = %d, want 36", result.SamplesApplied)
	}
	if len(result.Events) != 1 || result.Events[0].Severity != models.SeverityWarning {
		t.Fatalf("events = %+v, want one warning", result.Events)
	}
	if result.FinalStates["LINE-A"].CurrentTier != models.TierSpeedReduced15 {
		t.Fatalf("final tier = %v, want speed_reduced_15", result.FinalStates["LINE-A"].CurrentTier)
	}

	// Ingest reference docs.
	err = index.Ingest(ctx, []*models.DocumentChunk{
		{SourceDocument: "SOP-002.md", ChunkIndex: 0, Content: "When coolant flow drops below 70 percent, inspect valve V-17 and recalibrate."},
		{SourceDocument: "QA-Report-2023-09-14.md", ChunkIndex: 0, Content: "Surface crack cluster correlated with coolant flow loss on LINE-A."},
	})
	if err != nil {
		t.Fatal(err)
	}

	// Ask a grounded question.
	completer := &completion.MockCompleter{
		Answer: "Coolant flow dropped; inspect valve V-17 per [SOP-002.md].",
	}
	engine := copilot.NewEngine(store, index, completer)
	resp, err := engine.Answer(ctx, &models.AskRequest{
		Question: "why did the defect rate spike?",
		LineID:   "LINE-A",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Citations) != 1 || resp.Citations[0] != "SOP-002.md" {
		t.Errorf("citations = %v, want [SOP-002.md]", resp.Citations)
	}

	// The prompt must carry the replayed telemetry and the defect event.
	prompt := completer.LastPrompt
	if !strings.Contains(prompt, "defect_rate_breach") {
		t.Error("prompt missing the recorded defect event")
	}
	if !strings.Contains(prompt, "LINE-A") {
		t.Error("prompt missing the line id")
	}

	// Persist and reload the vector index; retrieval still works.
	idxPath := filepath.Join(dir, "vectors.idx")
	if err := vectors.Save(idxPath); err != nil {
		t.Fatal(err)
	}
	reloaded, err := vector.NewMemoryIndex(embedder.Dimensions())
	if err != nil {
		t.Fatal(err)
	}
	defer reloaded.Close()
	if err := reloaded.Load(idxPath); err != nil {
		t.Fatal(err)
	}
	if reloaded.Size() != 2 {
		t.Errorf("reloaded index size = %d, want 2", reloaded.Size())
	}
}
