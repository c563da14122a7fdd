package models

import "fmt"

// ValidationError reports malformed or out-of-order input data. It is fatal
// to the single append that produced it and leaves the store unchanged.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation: %s", e.Reason)
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// ConsistencyError reports a write that would violate append-only ordering.
// The write is rejected and the store is unchanged.
type ConsistencyError struct {
	LineID string
	Reason string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("consistency: line %s: %s", e.LineID, e.Reason)
}

// ServiceErrorKind classifies external service failures so callers can
// choose a retry policy.
type ServiceErrorKind string

const (
	KindTimeout     ServiceErrorKind = "timeout"
	KindRateLimited ServiceErrorKind = "rate_limited"
	KindMalformed   ServiceErrorKind = "malformed"
	KindUnavailable ServiceErrorKind = "unavailable"
)

// EmbeddingServiceError reports a failure of the external embedding service.
type EmbeddingServiceError struct {
	Kind ServiceErrorKind
	Err  error
}

func (e *EmbeddingServiceError) Error() string {
	return fmt.Sprintf("embedding service (%s): %v", e.Kind, e.Err)
}

func (e *EmbeddingServiceError) Unwrap() error { return e.Err }

// CompletionServiceError reports a failure of the external completion
// service.
type CompletionServiceError struct {
	Kind ServiceErrorKind
	Err  error
}

func (e *CompletionServiceError) Error() string {
	return fmt.Sprintf("completion service (%s): %v", e.Kind, e.Err)
}

func (e *CompletionServiceError) Unwrap() error { return e.Err }

// NoTelemetryError reports that the store holds no samples for a line.
type NoTelemetryError struct {
	LineID string
}

func (e *NoTelemetryError) Error() string {
	return fmt.Sprintf("no telemetry recorded for line %s", e.LineID)
}

// NoRelevantDocsError reports that the document index is empty. Low
// relevance scores are not an error; only an empty index is.
type NoRelevantDocsError struct{}

func (e *NoRelevantDocsError) Error() string {
	return "document index is empty"
}
