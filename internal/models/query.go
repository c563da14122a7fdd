package models

import "fmt"

// AskRequest is an operator question about one production line.
type AskRequest struct {
	Question string `json:"question"`
	LineID   string `json:"line_id"`
	// TopK overrides the number of document excerpts retrieved. Zero means
	// the configured default.
	TopK int `json:"top_k,omitempty"`
	// WindowHours overrides the telemetry summary window. Zero means the
	// configured default.
	WindowHours float64 `json:"window_hours,omitempty"`
}

// Validate checks required fields and normalizes bounds.
func (r *AskRequest) Validate() error {
	if r.Question == "" {
		return fmt.Errorf("question cannot be empty")
	}
	if r.LineID == "" {
		return fmt.Errorf("line_id cannot be empty")
	}
	if r.TopK < 0 {
		r.TopK = 0
	}
	if r.TopK > 20 {
		r.TopK = 20
	}
	if r.WindowHours < 0 {
		r.WindowHours = 0
	}
	return nil
}

// AnswerResponse is the result of one grounded question. Citations list the
// source identifiers the model actually referenced, ordered by first
// appearance in the answer text.
type AnswerResponse struct {
	Answer           string             `json:"answer"`
	Citations        []string           `json:"citations"`
	LatencyBreakdown map[string]float64 `json:"latency_breakdown"`
	RetrievedCount   int                `json:"retrieved_count"`
	Metrics          CorrelationMetrics `json:"metrics"`
}
