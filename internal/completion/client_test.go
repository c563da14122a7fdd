package completion

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/forgeline/linesight/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, cfg ClientConfig) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg.BaseURL = srv.URL
	if cfg.APIKey == "" {
		cfg.APIKey = "test-key"
	}
	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestClient_Complete(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request: %v", err)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Errorf("expected system+user messages, got %+v", req.Messages)
		}
		resp := chatResponse{}
		resp.Choices = append(resp.Choices, struct {
			Message chatMessage `json:"message"`
		}{Message: chatMessage{Role: "assistant", Content: "Inspect valve V-17 per [SOP-002.md]."}})
		_ = json.NewEncoder(w).Encode(resp)
	}, ClientConfig{})

	answer, err := client.Complete(context.Background(), "you are a copilot", "why defects?")
	if err != nil {
		t.Fatal(err)
	}
	if answer != "Inspect valve V-17 per [SOP-002.md]." {
		t.Errorf("unexpected answer: %q", answer)
	}
}

func TestClient_ErrorKinds(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    models.ServiceErrorKind
	}{
		{"rate limited", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}, models.KindRateLimited},
		{"unavailable", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}, models.KindUnavailable},
		{"malformed body", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("{not json"))
		}, models.KindMalformed},
		{"empty choices", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"choices":[]}`))
		}, models.KindMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, tt.handler, ClientConfig{})
			_, err := client.Complete(context.Background(), "s", "u")
			var serr *models.CompletionServiceError
			if !errors.As(err, &serr) {
				t.Fatalf("expected CompletionServiceError, got %v", err)
			}
			if serr.Kind != tt.want {
				t.Errorf("Kind = %v, want %v", serr.Kind, tt.want)
			}
		})
	}
}

func TestClient_Timeout(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}, ClientConfig{Timeout: 20 * time.Millisecond})

	_, err := client.Complete(context.Background(), "s", "u")
	var serr *models.CompletionServiceError
	if !errors.As(err, &serr) || serr.Kind != models.KindTimeout {
		t.Fatalf("expected timeout kind, got %v", err)
	}
}
