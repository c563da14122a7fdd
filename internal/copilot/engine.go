// Package copilot answers operator questions by combining a telemetry
// summary window, recent defect events, and retrieved document excerpts
// into one grounded prompt for the completion service.
package copilot

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/forgeline/linesight/internal/completion"
	"github.com/forgeline/linesight/internal/metrics"
	"github.com/forgeline/linesight/internal/models"
	"github.com/forgeline/linesight/internal/storage"
)

// Retriever returns the k document excerpts most relevant to a query.
type Retriever interface {
	Search(ctx context.Context, query string, k int) ([]*models.ScoredChunk, error)
}

// Engine orchestrates one question end to end.
type Engine struct {
	store     storage.Store
	retriever Retriever
	completer completion.Completer
	logger    *zap.Logger

	defaultTopK   int
	defaultWindow time.Duration
	defectLimit   int
	thresholds    models.SensorThresholds
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithDefaults overrides the default excerpt count and summary window.
func WithDefaults(topK int, window time.Duration) Option {
	return func(e *Engine) {
		if topK > 0 {
			e.defaultTopK = topK
		}
		if window > 0 {
			e.defaultWindow = window
		}
	}
}

// WithThresholds overrides the nominal operating limits used to annotate
// telemetry context and compute correlation metrics.
func WithThresholds(t models.SensorThresholds) Option {
	return func(e *Engine) { e.thresholds = t }
}

// NewEngine creates a question-answering engine.
func NewEngine(store storage.Store, retriever Retriever, completer completion.Completer, opts ...Option) *Engine {
	e := &Engine{
		store:         store,
		retriever:     retriever,
		completer:     completer,
		logger:        zap.NewNop(),
		defaultTopK:   4,
		defaultWindow: time.Hour,
		defectLimit:   5,
		thresholds:    models.DefaultSensorThresholds(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Answer resolves one operator question. Telemetry reads and document
// retrieval run concurrently; the completion call only starts once both
// succeeded, so a line with no telemetry or an empty index fails before
// any tokens are spent.
func (e *Engine) Answer(ctx context.Context, req *models.AskRequest) (*models.AnswerResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, &models.ValidationError{Reason: err.Error()}
	}
	topK := req.TopK
	if topK == 0 {
		topK = e.defaultTopK
	}
	window := e.defaultWindow
	if req.WindowHours > 0 {
		window = time.Duration(req.WindowHours * float64(time.Hour))
	}

	tracker := metrics.NewTracker()
	var (
		stats   *models.SummaryStats
		defects []*models.DefectEvent
		chunks  []*models.ScoredChunk
		errChan = make(chan error, 2)
		wg      sync.WaitGroup
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		start := time.Now()
		s, err := e.store.SummaryStats(ctx, req.LineID, window)
		if err != nil {
			errChan <- err
			return
		}
		d, err := e.store.QueryRecentDefects(ctx, req.LineID, e.defectLimit)
		if err != nil {
			errChan <- fmt.Errorf("query recent defects: %w", err)
			return
		}
		stats, defects = s, d
		tracker.Observe("telemetry_fetch", time.Since(start))
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		start := time.Now()
		c, err := e.retriever.Search(ctx, req.Question, topK)
		if err != nil {
			errChan <- err
			return
		}
		chunks = c
		tracker.Observe("doc_retrieval", time.Since(start))
	}()

	wg.Wait()
	close(errChan)
	for err := range errChan {
		if err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prompt := buildPrompt(req.Question, stats, defects, chunks, e.thresholds)
	tracker.Start("completion")
	answer, err := e.completer.Complete(ctx, systemPrompt, prompt)
	tracker.Stop("completion")
	if err != nil {
		return nil, err
	}

	citations := extractCitations(answer, chunks)
	e.logger.Info("answered question",
		zap.String("line", req.LineID),
		zap.Int("excerpts", len(chunks)),
		zap.Int("citations", len(citations)),
	)
	return &models.AnswerResponse{
		Answer:           answer,
		Citations:        citations,
		LatencyBreakdown: tracker.Seconds(),
		RetrievedCount:   len(chunks),
		Metrics:          correlationMetrics(stats, e.thresholds),
	}, nil
}

// correlationMetrics reports how far the window drifted from the nominal
// limits. Deviations clamp at zero so a healthy line reads as all zeros.
func correlationMetrics(stats *models.SummaryStats, th models.SensorThresholds) models.CorrelationMetrics {
	return models.CorrelationMetrics{
		PeakFormingTempC:    stats.PeakFormingTempC,
		TempAboveWarningC:   round1(max(0, stats.PeakFormingTempC-th.TempWarningC)),
		MinCoolantFlowPct:   stats.MinCoolantFlowPct,
		FlowBelowNominalPct: round1(max(0, th.NominalCoolantFlowPct-stats.MinCoolantFlowPct)),
		DefectRatePct:       stats.DefectRatePct,
		RateVsBaselinePct:   round1(max(0, stats.DefectRatePct-th.BaselineDefectRatePct)),
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
