package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/forgeline/linesight/internal/models"
	"github.com/forgeline/linesight/internal/storage"
)

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req models.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("ask request", zap.String("line", req.LineID), zap.String("question", req.Question))
	resp, err := s.engine.Answer(r.Context(), &req)
	if err != nil {
		s.logger.Error("ask failed", zap.Error(err))
		s.respondError(w, statusForError(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

type ingestRequest struct {
	Chunks []struct {
		SourceDocument string `json:"source_document"`
		ChunkIndex     int    `json:"chunk_index"`
		Content        string `json:"content"`
	} `json:"chunks"`
}

func (s *Server) handleIngestDocuments(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Chunks) == 0 {
		s.respondError(w, http.StatusBadRequest, "chunks are required")
		return
	}
	chunks := make([]*models.DocumentChunk, 0, len(req.Chunks))
	for _, c := range req.Chunks {
		if c.SourceDocument == "" || c.Content == "" {
			s.respondError(w, http.StatusBadRequest, "every chunk needs source_document and content")
			return
		}
		chunks = append(chunks, &models.DocumentChunk{
			SourceDocument: c.SourceDocument,
			ChunkIndex:     c.ChunkIndex,
			Content:        c.Content,
		})
	}
	s.logger.Debug("ingest request", zap.Int("chunks", len(chunks)))
	if err := s.index.Ingest(r.Context(), chunks); err != nil {
		s.logger.Error("ingestion failed", zap.Error(err))
		s.respondError(w, statusForError(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"status":  "ingested",
		"chunks":  len(chunks),
		"indexed": s.index.Size(),
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	lineID := chi.URLParam(r, "id")
	window := time.Hour
	if v := r.URL.Query().Get("window_hours"); v != "" {
		hours, err := strconv.ParseFloat(v, 64)
		if err != nil || hours <= 0 {
			s.respondError(w, http.StatusBadRequest, "window_hours must be a positive number")
			return
		}
		window = time.Duration(hours * float64(time.Hour))
	}
	stats, err := s.store.SummaryStats(r.Context(), lineID, window)
	if err != nil {
		s.respondError(w, statusForError(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handleRecentDefects(w http.ResponseWriter, r *http.Request) {
	lineID := chi.URLParam(r, "id")
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	events, err := s.store.QueryRecentDefects(r.Context(), lineID, limit)
	if err != nil {
		s.respondError(w, statusForError(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"line_id": lineID, "events": events})
}

func (s *Server) handleWindow(w http.ResponseWriter, r *http.Request) {
	lineID := chi.URLParam(r, "id")
	start, err := time.Parse(time.RFC3339, r.URL.Query().Get("start"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "start must be RFC 3339")
		return
	}
	end, err := time.Parse(time.RFC3339, r.URL.Query().Get("end"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "end must be RFC 3339")
		return
	}
	if !end.After(start) {
		s.respondError(w, http.StatusBadRequest, "end must be after start")
		return
	}
	samples, err := s.store.QueryWindow(r.Context(), lineID, start, end)
	if err != nil {
		s.respondError(w, statusForError(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"line_id": lineID, "samples": samples})
}

func (s *Server) handleEscalationState(w http.ResponseWriter, r *http.Request) {
	lineID := chi.URLParam(r, "id")
	state, found, err := s.store.EscalationState(r.Context(), lineID)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !found {
		state = models.NewEscalationState(lineID)
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"line_id":             state.LineID,
		"tier":                state.CurrentTier.String(),
		"speed_reduction_pct": state.CurrentTier.SpeedReductionPct(),
		"tier_entered_at":     state.TierEnteredAt,
		"cleared":             state.Cleared,
	})
}

// handleClearance records an operator clearance for a line. The stopped
// tier cannot be left without one.
func (s *Server) handleClearance(w http.ResponseWriter, r *http.Request) {
	lineID := chi.URLParam(r, "id")
	ctx := r.Context()
	state, found, err := s.store.EscalationState(ctx, lineID)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !found {
		s.respondError(w, http.StatusNotFound, "no escalation state for line")
		return
	}
	state.Cleared = true
	if err := s.store.SaveEscalationState(ctx, state); err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if s.replayer != nil {
		s.replayer.InjectClearance(lineID)
	}
	s.logger.Info("clearance recorded", zap.String("line", lineID), zap.String("tier", state.CurrentTier.String()))
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"line_id": lineID,
		"tier":    state.CurrentTier.String(),
		"cleared": true,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sampleCount, err := s.store.CountSamples(ctx)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	eventCount, err := s.store.CountDefectEvents(ctx)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	chunkCount, err := s.store.CountChunks(ctx)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := map[string]interface{}{
		"samples":           sampleCount,
		"defect_events":     eventCount,
		"chunks":            chunkCount,
		"vector_index_size": s.index.Size(),
	}
	resp["config"] = map[string]interface{}{
		"embedding_model":   s.config.Embedding.Model,
		"completion_model":  s.config.Completion.Model,
		"database_path":     s.config.Storage.DatabasePath,
		"vector_index_path": s.config.Storage.VectorIndexPath,
	}
	diskBytes, err := storage.DiskUsageBytes(
		s.config.Storage.DatabasePath,
		s.config.Storage.VectorIndexPath,
	)
	if err == nil {
		resp["disk_usage_bytes"] = diskBytes
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// statusForError maps the error taxonomy onto HTTP status codes.
func statusForError(err error) int {
	var (
		verr *models.ValidationError
		cerr *models.ConsistencyError
		terr *models.NoTelemetryError
		derr *models.NoRelevantDocsError
		eerr *models.EmbeddingServiceError
		qerr *models.CompletionServiceError
	)
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.As(err, &cerr):
		return http.StatusConflict
	case errors.As(err, &terr), errors.As(err, &derr):
		return http.StatusNotFound
	case errors.As(err, &eerr):
		return statusForServiceKind(eerr.Kind)
	case errors.As(err, &qerr):
		return statusForServiceKind(qerr.Kind)
	default:
		return http.StatusInternalServerError
	}
}

func statusForServiceKind(kind models.ServiceErrorKind) int {
	switch kind {
	case models.KindTimeout:
		return http.StatusGatewayTimeout
	case models.KindRateLimited, models.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
