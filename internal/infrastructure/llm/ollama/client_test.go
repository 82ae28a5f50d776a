package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kirillkom/insight-assistant/internal/core/domain"
	"github.com/kirillkom/insight-assistant/internal/infrastructure/resilience"
)

func TestEmbedReturnsVectorsInOrder(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"embeddings": [][]float32{{0.1, 0.2}, {0.3, 0.4}},
		})
	}))
	defer server.Close()

	client := New(server.URL, Options{EmbedModel: "nomic-embed-text"})
	vectors, err := client.Embed(context.Background(), []string{"first", "second"})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}

	if gotBody["model"] != "nomic-embed-text" {
		t.Fatalf("unexpected model: %v", gotBody["model"])
	}
	if len(vectors) != 2 || vectors[0][0] != 0.1 || vectors[1][1] != 0.4 {
		t.Fatalf("unexpected vectors: %v", vectors)
	}
}

func TestEmbedQueryUsesSingleInput(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"embeddings": [][]float32{{0.5}}})
	}))
	defer server.Close()

	client := New(server.URL, Options{})
	vector, err := client.EmbedQuery(context.Background(), "question text")
	if err != nil {
		t.Fatalf("embed query: %v", err)
	}
	if len(vector) != 1 || vector[0] != 0.5 {
		t.Fatalf("unexpected vector: %v", vector)
	}
}

func TestEmbedRejectsCountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"embeddings": [][]float32{{0.5}}})
	}))
	defer server.Close()

	client := New(server.URL, Options{})
	_, err := client.Embed(context.Background(), []string{"a", "b"})
	if !domain.IsKind(err, domain.ErrEmbeddingUnavailable) {
		t.Fatalf("expected embedding unavailable error, got %v", err)
	}
}

func TestEmbedWrapsServerFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := New(server.URL, Options{})
	_, err := client.Embed(context.Background(), []string{"a"})
	if !domain.IsKind(err, domain.ErrEmbeddingUnavailable) {
		t.Fatalf("expected embedding unavailable error, got %v", err)
	}
}

func TestGenerateTrimsResponse(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{"response": "  The price is USD 59.95 [S1].\n"})
	}))
	defer server.Close()

	client := New(server.URL, Options{GenerateModel: "gpt-oss:20b"})
	answer, err := client.Generate(context.Background(), "prompt text")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if gotBody["model"] != "gpt-oss:20b" || gotBody["stream"] != false {
		t.Fatalf("unexpected request body: %v", gotBody)
	}
	if answer != "The price is USD 59.95 [S1]." {
		t.Fatalf("unexpected answer: %q", answer)
	}
}

func TestGenerateWrapsServerFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "out of memory", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := New(server.URL, Options{})
	_, err := client.Generate(context.Background(), "prompt")
	if !domain.IsKind(err, domain.ErrSynthesisUnavailable) {
		t.Fatalf("expected synthesis unavailable error, got %v", err)
	}
}

func TestGenerateRetriesThroughExecutor(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"response": "ok"})
	}))
	defer server.Close()

	executor := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    2,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     time.Millisecond,
		RetryMultiplier:     1.0,
	})
	client := New(server.URL, Options{ResilienceExecutor: executor})

	answer, err := client.Generate(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if answer != "ok" {
		t.Fatalf("unexpected answer: %q", answer)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected retry after 503, got %d calls", calls.Load())
	}
}

func TestClassifyOllamaError(t *testing.T) {
	retryable := classifyOllamaError(&httpStatusError{StatusCode: http.StatusTooManyRequests})
	if !retryable.Retryable {
		t.Fatalf("expected 429 to be retryable, got %+v", retryable)
	}

	mismatch := classifyOllamaError(&countMismatchError{want: 2, got: 1})
	if mismatch.Retryable || mismatch.RecordFailure {
		t.Fatalf("expected mismatch to be terminal and unrecorded, got %+v", mismatch)
	}

	canceled := classifyOllamaError(context.Canceled)
	if canceled.Retryable || canceled.RecordFailure {
		t.Fatalf("expected cancellation to be unrecorded, got %+v", canceled)
	}
}
