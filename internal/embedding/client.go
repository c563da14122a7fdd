package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/forgeline/linesight/internal/models"
	"github.com/forgeline/linesight/pkg/utils"
)

// Client calls an OpenAI-compatible embeddings endpoint. Requests are
// issued in bounded batches to respect service rate limits.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	batchSize  int
	dimensions int
	maxRetries int
	httpClient *http.Client
}

// ClientConfig configures the embeddings client.
type ClientConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	BatchSize  int
	Dimensions int
	Timeout    time.Duration
	MaxRetries int
}

// NewClient creates an embeddings client. BaseURL, Model, and Dimensions
// default to the hosted endpoint the pipeline was built against.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("embedding API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://integrate.api.nvidia.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "nvidia/nv-embedqa-e5-v5"
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = 1024
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		batchSize:  cfg.BatchSize,
		dimensions: cfg.Dimensions,
		maxRetries: cfg.MaxRetries,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Dimensions returns the embedding dimension.
func (c *Client) Dimensions() int {
	return c.dimensions
}

// Embed returns the embedding for a single text.
func (c *Client) Embed(ctx context.Context, text string, input InputType) ([]float32, error) {
	vecs, err := c.EmbedBatch(ctx, []string{text}, input)
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in order, splitting the request into bounded
// batches. The response carries one vector per input in the same order.
func (c *Client) EmbedBatch(ctx context.Context, texts []string, input InputType) ([][]float32, error) {
	all := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		end := start + c.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := c.embedOnce(ctx, texts[start:end], input)
		if err != nil {
			return nil, err
		}
		all = append(all, vecs...)
	}
	return all, nil
}

type embeddingRequest struct {
	Input          []string `json:"input"`
	Model          string   `json:"model"`
	EncodingFormat string   `json:"encoding_format"`
	InputType      string   `json:"input_type,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (c *Client) embedOnce(ctx context.Context, texts []string, input InputType) ([][]float32, error) {
	body, err := json.Marshal(embeddingRequest{
		Input:          texts,
		Model:          c.model,
		EncodingFormat: "float",
		InputType:      string(input),
	})
	if err != nil {
		return nil, &models.EmbeddingServiceError{Kind: models.KindMalformed, Err: err}
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, &models.EmbeddingServiceError{Kind: models.KindTimeout, Err: ctx.Err()}
			case <-time.After(retryDelay(attempt)):
			}
		}
		vecs, retryAfter, err := c.doRequest(ctx, body, len(texts))
		if err == nil {
			return vecs, nil
		}
		lastErr = err
		var serr *models.EmbeddingServiceError
		if !errors.As(err, &serr) || (serr.Kind != models.KindRateLimited && serr.Kind != models.KindUnavailable) {
			return nil, err
		}
		if retryAfter > 0 && attempt < c.maxRetries {
			select {
			case <-ctx.Done():
				return nil, &models.EmbeddingServiceError{Kind: models.KindTimeout, Err: ctx.Err()}
			case <-time.After(retryAfter):
			}
		}
	}
	return nil, lastErr
}

func (c *Client) doRequest(ctx context.Context, body []byte, want int) ([][]float32, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, 0, &models.EmbeddingServiceError{Kind: models.KindMalformed, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return nil, 0, &models.EmbeddingServiceError{Kind: models.KindTimeout, Err: err}
		}
		return nil, 0, &models.EmbeddingServiceError{Kind: models.KindUnavailable, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, parseRetryAfter(resp.Header.Get("Retry-After")),
			&models.EmbeddingServiceError{Kind: models.KindRateLimited, Err: fmt.Errorf("embeddings: %s", resp.Status)}
	case resp.StatusCode >= 500:
		return nil, 0, &models.EmbeddingServiceError{Kind: models.KindUnavailable, Err: fmt.Errorf("embeddings: %s", resp.Status)}
	case resp.StatusCode >= 300:
		return nil, 0, &models.EmbeddingServiceError{Kind: models.KindMalformed, Err: fmt.Errorf("embeddings: %s", resp.Status)}
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, &models.EmbeddingServiceError{Kind: models.KindUnavailable, Err: err}
	}
	var out embeddingResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, 0, &models.EmbeddingServiceError{Kind: models.KindMalformed, Err: err}
	}
	if len(out.Data) != want {
		return nil, 0, &models.EmbeddingServiceError{
			Kind: models.KindMalformed,
			Err:  fmt.Errorf("expected %d embeddings, got %d", want, len(out.Data)),
		}
	}
	vecs := make([][]float32, want)
	for _, d := range out.Data {
		if d.Index < 0 || d.Index >= want {
			return nil, 0, &models.EmbeddingServiceError{
				Kind: models.KindMalformed,
				Err:  fmt.Errorf("embedding index %d out of range", d.Index),
			}
		}
		utils.NormalizeL2(d.Embedding)
		vecs[d.Index] = d.Embedding
	}
	for i, v := range vecs {
		if v == nil {
			return nil, 0, &models.EmbeddingServiceError{
				Kind: models.KindMalformed,
				Err:  fmt.Errorf("missing embedding for input %d", i),
			}
		}
	}
	return vecs, 0, nil
}

// Close is a no-op for the HTTP client.
func (c *Client) Close() error {
	return nil
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}

func retryDelay(attempt int) time.Duration {
	base := 200 * time.Millisecond
	d := base << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
