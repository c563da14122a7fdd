// Package storage defines the persistence interface for telemetry samples,
// defect events, escalation state, and document chunks.
package storage

import (
	"context"
	"time"

	"github.com/forgeline/linesight/internal/models"
)

// Store is the single-writer telemetry event store. The replayer is the
// only writer; readers see every completed write (read-after-write).
type Store interface {
	// Telemetry writes
	AppendSample(ctx context.Context, sample *models.SensorSample) error
	AppendDefectEvent(ctx context.Context, event *models.DefectEvent) error

	// Telemetry reads
	QueryWindow(ctx context.Context, lineID string, start, end time.Time) ([]*models.SensorSample, error)
	QueryRecentDefects(ctx context.Context, lineID string, limit int) ([]*models.DefectEvent, error)
	SummaryStats(ctx context.Context, lineID string, window time.Duration) (*models.SummaryStats, error)

	// Escalation state
	EscalationState(ctx context.Context, lineID string) (models.EscalationState, bool, error)
	SaveEscalationState(ctx context.Context, state models.EscalationState) error

	// Document chunks
	UpsertChunks(ctx context.Context, chunks []*models.DocumentChunk) error
	GetChunkByKey(ctx context.Context, key string) (*models.DocumentChunk, error)

	// Stats
	CountSamples(ctx context.Context) (int64, error)
	CountDefectEvents(ctx context.Context) (int64, error)
	CountChunks(ctx context.Context) (int64, error)

	Close() error
}
