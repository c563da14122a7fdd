package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/forgeline/linesight/internal/models"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates a SQLite database at dbPath and
// initializes the schema. Parent directories are created if they do not
// exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS sensor_samples (
		line_id TEXT NOT NULL,
		timestamp TIMESTAMP NOT NULL,
		preheat_zone_temp_c REAL NOT NULL,
		forming_zone_temp_c REAL NOT NULL,
		cooling_zone_temp_c REAL NOT NULL,
		coolant_flow_pct REAL NOT NULL,
		hydraulic_pressure_bar REAL NOT NULL,
		line_speed_mpm REAL NOT NULL,
		defect_count INTEGER NOT NULL,
		units_produced INTEGER NOT NULL,
		PRIMARY KEY (line_id, timestamp)
	);

	CREATE TABLE IF NOT EXISTS defect_events (
		id TEXT PRIMARY KEY,
		line_id TEXT NOT NULL,
		timestamp TIMESTAMP NOT NULL,
		defect_type TEXT NOT NULL,
		severity TEXT NOT NULL,
		rolling_rate_pct REAL NOT NULL,
		snapshot TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_line_ts ON defect_events(line_id, timestamp);

	CREATE TABLE IF NOT EXISTS escalation_state (
		line_id TEXT PRIMARY KEY,
		tier INTEGER NOT NULL,
		tier_entered_at TIMESTAMP,
		recovery_since TIMESTAMP,
		cleared INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS document_chunks (
		key TEXT PRIMARY KEY,
		source_document TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		content TEXT NOT NULL,
		UNIQUE (source_document, chunk_index)
	);
	`
	_, err := db.Exec(schema)
	return err
}

// AppendSample validates and inserts one sensor sample. Timestamps must be
// strictly increasing per line.
func (s *SQLiteStore) AppendSample(ctx context.Context, sample *models.SensorSample) error {
	if sample.LineID == "" {
		return &models.ValidationError{Field: "line_id", Reason: "required field missing"}
	}
	if sample.Timestamp.IsZero() {
		return &models.ValidationError{Field: "timestamp", Reason: "required field missing"}
	}
	if sample.UnitsProduced < 0 {
		return &models.ValidationError{Field: "units_produced", Reason: "must not be negative"}
	}
	if sample.DefectCount < 0 {
		return &models.ValidationError{Field: "defect_count", Reason: "must not be negative"}
	}
	if sample.DefectCount > sample.UnitsProduced {
		return &models.ValidationError{Field: "defect_count", Reason: "exceeds units_produced"}
	}

	last, ok, err := s.lastSampleTime(ctx, sample.LineID)
	if err != nil {
		return fmt.Errorf("failed to read last sample timestamp: %w", err)
	}
	if ok && !sample.Timestamp.After(last) {
		return &models.ValidationError{
			Field: "timestamp",
			Reason: fmt.Sprintf("non-monotonic for line %s: %s is not after %s",
				sample.LineID, sample.Timestamp.Format(time.RFC3339), last.Format(time.RFC3339)),
		}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sensor_samples
			(line_id, timestamp, preheat_zone_temp_c, forming_zone_temp_c, cooling_zone_temp_c,
			 coolant_flow_pct, hydraulic_pressure_bar, line_speed_mpm, defect_count, units_produced)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sample.LineID, sample.Timestamp, sample.PreheatZoneTempC, sample.FormingZoneTempC,
		sample.CoolingZoneTempC, sample.CoolantFlowPct, sample.HydraulicPressureBar,
		sample.LineSpeedMPM, sample.DefectCount, sample.UnitsProduced,
	)
	if err != nil {
		return fmt.Errorf("failed to insert sample: %w", err)
	}
	return nil
}

// AppendDefectEvent inserts one defect event. Events are append-only; a
// timestamp earlier than the last stored event for the line is rejected.
func (s *SQLiteStore) AppendDefectEvent(ctx context.Context, event *models.DefectEvent) error {
	if event.ID == "" {
		return &models.ValidationError{Field: "id", Reason: "required field missing"}
	}
	if event.LineID == "" {
		return &models.ValidationError{Field: "line_id", Reason: "required field missing"}
	}

	last, ok, err := s.lastEventTime(ctx, event.LineID)
	if err != nil {
		return fmt.Errorf("failed to read last event timestamp: %w", err)
	}
	if ok && event.Timestamp.Before(last) {
		return &models.ConsistencyError{
			LineID: event.LineID,
			Reason: fmt.Sprintf("event at %s precedes last stored event at %s",
				event.Timestamp.Format(time.RFC3339), last.Format(time.RFC3339)),
		}
	}

	snapshotJSON, err := json.Marshal(event.Snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO defect_events (id, line_id, timestamp, defect_type, severity, rolling_rate_pct, snapshot)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.LineID, event.Timestamp, event.DefectType, event.Severity,
		event.RollingRatePct, string(snapshotJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to insert defect event: %w", err)
	}
	return nil
}

// lastSampleTime returns the newest sample timestamp for a line. SQLite
// aggregate expressions lose the declared column type the driver needs for
// time conversion, so this selects the column directly.
func (s *SQLiteStore) lastSampleTime(ctx context.Context, lineID string) (time.Time, bool, error) {
	var ts time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT timestamp FROM sensor_samples WHERE line_id = ? ORDER BY timestamp DESC LIMIT 1`,
		lineID,
	).Scan(&ts)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return ts, true, nil
}

// lastEventTime returns the newest defect event timestamp for a line.
func (s *SQLiteStore) lastEventTime(ctx context.Context, lineID string) (time.Time, bool, error) {
	var ts time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT timestamp FROM defect_events WHERE line_id = ? ORDER BY timestamp DESC LIMIT 1`,
		lineID,
	).Scan(&ts)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return ts, true, nil
}

// QueryWindow returns samples for a line with timestamp in [start, end],
// ordered by timestamp ascending.
func (s *SQLiteStore) QueryWindow(ctx context.Context, lineID string, start, end time.Time) ([]*models.SensorSample, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT line_id, timestamp, preheat_zone_temp_c, forming_zone_temp_c, cooling_zone_temp_c,
			coolant_flow_pct, hydraulic_pressure_bar, line_speed_mpm, defect_count, units_produced
		 FROM sensor_samples WHERE line_id = ? AND timestamp >= ? AND timestamp <= ?
		 ORDER BY timestamp`,
		lineID, start, end,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []*models.SensorSample
	for rows.Next() {
		var sm models.SensorSample
		if err := rows.Scan(&sm.LineID, &sm.Timestamp, &sm.PreheatZoneTempC, &sm.FormingZoneTempC,
			&sm.CoolingZoneTempC, &sm.CoolantFlowPct, &sm.HydraulicPressureBar, &sm.LineSpeedMPM,
			&sm.DefectCount, &sm.UnitsProduced); err != nil {
			return nil, err
		}
		samples = append(samples, &sm)
	}
	return samples, rows.Err()
}

// QueryRecentDefects returns up to limit defect events for a line, most
// recent first.
func (s *SQLiteStore) QueryRecentDefects(ctx context.Context, lineID string, limit int) ([]*models.DefectEvent, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, line_id, timestamp, defect_type, severity, rolling_rate_pct, snapshot
		 FROM defect_events WHERE line_id = ? ORDER BY timestamp DESC LIMIT ?`,
		lineID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*models.DefectEvent
	for rows.Next() {
		var ev models.DefectEvent
		var snapshotJSON string
		if err := rows.Scan(&ev.ID, &ev.LineID, &ev.Timestamp, &ev.DefectType, &ev.Severity,
			&ev.RollingRatePct, &snapshotJSON); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(snapshotJSON), &ev.Snapshot); err != nil {
			return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
		}
		events = append(events, &ev)
	}
	return events, rows.Err()
}

// SummaryStats aggregates telemetry for a line over a trailing window
// anchored at the newest stored sample (the data clock, not wall clock,
// because replayed datasets carry their own timestamps). Returns
// NoTelemetryError when the line has no samples.
func (s *SQLiteStore) SummaryStats(ctx context.Context, lineID string, window time.Duration) (*models.SummaryStats, error) {
	latest, ok, err := s.lastSampleTime(ctx, lineID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &models.NoTelemetryError{LineID: lineID}
	}
	if window <= 0 {
		window = time.Hour
	}
	start := latest.Add(-window)
	samples, err := s.QueryWindow(ctx, lineID, start, latest)
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, &models.NoTelemetryError{LineID: lineID}
	}

	stats := &models.SummaryStats{
		LineID:            lineID,
		Window:            window,
		WindowLabel:       window.String(),
		SampleCount:       len(samples),
		MinCoolantFlowPct: samples[0].CoolantFlowPct,
		LatestTimestamp:   latest,
	}
	var totalDefects, totalUnits int
	formingTemps := make([]float64, 0, len(samples))
	for _, sm := range samples {
		stats.AvgPreheatTempC += sm.PreheatZoneTempC
		stats.AvgFormingTempC += sm.FormingZoneTempC
		stats.AvgCoolingTempC += sm.CoolingZoneTempC
		stats.AvgCoolantFlowPct += sm.CoolantFlowPct
		stats.AvgLineSpeedMPM += sm.LineSpeedMPM
		if sm.CoolantFlowPct < stats.MinCoolantFlowPct {
			stats.MinCoolantFlowPct = sm.CoolantFlowPct
		}
		if sm.FormingZoneTempC > stats.PeakFormingTempC {
			stats.PeakFormingTempC = sm.FormingZoneTempC
			stats.PeakFormingTempAt = sm.Timestamp
		}
		totalDefects += sm.DefectCount
		totalUnits += sm.UnitsProduced
		formingTemps = append(formingTemps, sm.FormingZoneTempC)
	}
	n := float64(len(samples))
	stats.AvgPreheatTempC /= n
	stats.AvgFormingTempC /= n
	stats.AvgCoolingTempC /= n
	stats.AvgCoolantFlowPct /= n
	stats.AvgLineSpeedMPM /= n
	if totalUnits > 0 {
		stats.DefectRatePct = float64(totalDefects) / float64(totalUnits) * 100
	}
	stats.TrendDirection = trendDirection(formingTemps)
	return stats, nil
}

// trendDirection compares the first-half and second-half averages of the
// series. A shift of more than 3 units either way counts as a trend.
func trendDirection(values []float64) string {
	if len(values) < 2 {
		return "insufficient data"
	}
	half := len(values) / 2
	var firstSum, secondSum float64
	for _, v := range values[:half] {
		firstSum += v
	}
	for _, v := range values[half:] {
		secondSum += v
	}
	diff := secondSum/float64(len(values)-half) - firstSum/float64(half)
	switch {
	case diff > 3:
		return "rising"
	case diff < -3:
		return "falling"
	default:
		return "stable"
	}
}

// EscalationState returns the stored escalation state for a line. The
// boolean reports whether a state row exists.
func (s *SQLiteStore) EscalationState(ctx context.Context, lineID string) (models.EscalationState, bool, error) {
	var (
		tier          int
		tierEnteredAt sql.NullTime
		recoverySince sql.NullTime
		cleared       int
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT tier, tier_entered_at, recovery_since, cleared FROM escalation_state WHERE line_id = ?`,
		lineID,
	).Scan(&tier, &tierEnteredAt, &recoverySince, &cleared)
	if err == sql.ErrNoRows {
		return models.NewEscalationState(lineID), false, nil
	}
	if err != nil {
		return models.EscalationState{}, false, err
	}
	parsed, err := models.ParseTier(tier)
	if err != nil {
		return models.EscalationState{}, false, err
	}
	state := models.EscalationState{
		LineID:      lineID,
		CurrentTier: parsed,
		Cleared:     cleared != 0,
	}
	if tierEnteredAt.Valid {
		state.TierEnteredAt = tierEnteredAt.Time
	}
	if recoverySince.Valid {
		state.RecoverySince = recoverySince.Time
	}
	return state, true, nil
}

// SaveEscalationState upserts the escalation state for a line.
func (s *SQLiteStore) SaveEscalationState(ctx context.Context, state models.EscalationState) error {
	if state.LineID == "" {
		return &models.ValidationError{Field: "line_id", Reason: "required field missing"}
	}
	var tierEnteredAt, recoverySince interface{}
	if !state.TierEnteredAt.IsZero() {
		tierEnteredAt = state.TierEnteredAt
	}
	if !state.RecoverySince.IsZero() {
		recoverySince = state.RecoverySince
	}
	cleared := 0
	if state.Cleared {
		cleared = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO escalation_state (line_id, tier, tier_entered_at, recovery_since, cleared)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(line_id) DO UPDATE SET
			tier = excluded.tier,
			tier_entered_at = excluded.tier_entered_at,
			recovery_since = excluded.recovery_since,
			cleared = excluded.cleared`,
		state.LineID, int(state.CurrentTier), tierEnteredAt, recoverySince, cleared,
	)
	if err != nil {
		return fmt.Errorf("failed to save escalation state: %w", err)
	}
	return nil
}

// UpsertChunks inserts document chunks in a transaction, replacing any
// existing chunk with the same (source_document, chunk_index).
func (s *SQLiteStore) UpsertChunks(ctx context.Context, chunks []*models.DocumentChunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO document_chunks (key, source_document, chunk_index, content)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET content = excluded.content`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		if _, err := stmt.ExecContext(ctx, chunk.Key(), chunk.SourceDocument, chunk.ChunkIndex, chunk.Content); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetChunkByKey returns one chunk by its index key.
func (s *SQLiteStore) GetChunkByKey(ctx context.Context, key string) (*models.DocumentChunk, error) {
	var chunk models.DocumentChunk
	err := s.db.QueryRowContext(ctx,
		`SELECT source_document, chunk_index, content FROM document_chunks WHERE key = ?`, key,
	).Scan(&chunk.SourceDocument, &chunk.ChunkIndex, &chunk.Content)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("chunk not found: %s", key)
	}
	if err != nil {
		return nil, err
	}
	return &chunk, nil
}

// CountSamples returns the total number of stored sensor samples.
func (s *SQLiteStore) CountSamples(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sensor_samples`).Scan(&count)
	return count, err
}

// CountDefectEvents returns the total number of stored defect events.
func (s *SQLiteStore) CountDefectEvents(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM defect_events`).Scan(&count)
	return count, err
}

// CountChunks returns the total number of stored document chunks.
func (s *SQLiteStore) CountChunks(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM document_chunks`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
