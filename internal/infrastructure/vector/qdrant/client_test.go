package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kirillkom/insight-assistant/internal/core/domain"
)

func TestSearchMapsPayloadToPassages(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"result": []map[string]any{
				{
					"score": 0.91,
					"payload": map[string]any{
						"title":    "Quarterly Financial Snapshot",
						"category": "company",
						"content":  "revenue USD 4.2M",
					},
				},
			},
		})
	}))
	defer server.Close()

	client := New(server.URL, "product_insights", Options{})
	passages, err := client.Search(context.Background(), []float32{0.1, 0.2}, 5)
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	if gotPath != "/collections/product_insights/points/search" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if gotBody["with_payload"] != true {
		t.Fatal("expected with_payload to be requested")
	}
	if limit, ok := gotBody["limit"].(float64); !ok || int(limit) != 5 {
		t.Fatalf("unexpected limit: %v", gotBody["limit"])
	}

	if len(passages) != 1 {
		t.Fatalf("expected 1 passage, got %d", len(passages))
	}
	want := domain.Passage{Title: "Quarterly Financial Snapshot", Category: "company", Content: "revenue USD 4.2M", Score: 0.91}
	if passages[0] != want {
		t.Fatalf("unexpected passage: %+v", passages[0])
	}
}

func TestSearchWrapsServerFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := New(server.URL, "product_insights", Options{})
	_, err := client.Search(context.Background(), []float32{0.1}, 5)
	if !domain.IsKind(err, domain.ErrBackendUnavailable) {
		t.Fatalf("expected backend unavailable error, got %v", err)
	}
}

func TestUpsertCreatesCollectionAndWritesPoints(t *testing.T) {
	var paths []string
	var pointsBody struct {
		Points []struct {
			ID      string         `json:"id"`
			Vector  []float32      `json:"vector"`
			Payload map[string]any `json:"payload"`
		} `json:"points"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path)
		if r.URL.Path == "/collections/product_insights/points" {
			_ = json.NewDecoder(r.Body).Decode(&pointsBody)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := New(server.URL, "product_insights", Options{})
	docs := []domain.InsightDocument{
		{Title: "USB-C Hub Attachment", Category: "item", Content: "hub notes"},
	}
	err := client.UpsertDocuments(context.Background(), docs, [][]float32{{0.4, 0.5}})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	if len(paths) != 2 || paths[0] != "PUT /collections/product_insights" || paths[1] != "PUT /collections/product_insights/points" {
		t.Fatalf("unexpected request sequence: %v", paths)
	}
	if len(pointsBody.Points) != 1 {
		t.Fatalf("expected 1 point, got %d", len(pointsBody.Points))
	}
	point := pointsBody.Points[0]
	if point.ID == "" {
		t.Fatal("expected a generated point id")
	}
	if point.Payload["title"] != "USB-C Hub Attachment" || point.Payload["category"] != "item" {
		t.Fatalf("unexpected payload: %v", point.Payload)
	}
}

func TestUpsertTreatsExistingCollectionAsSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/collections/product_insights" {
			http.Error(w, "already exists", http.StatusConflict)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := New(server.URL, "product_insights", Options{})
	docs := []domain.InsightDocument{{Title: "a", Content: "a"}}
	if err := client.UpsertDocuments(context.Background(), docs, [][]float32{{0.1}}); err != nil {
		t.Fatalf("expected conflict to be tolerated, got %v", err)
	}
}

func TestUpsertRejectsVectorCountMismatch(t *testing.T) {
	client := New("http://localhost:6333", "product_insights", Options{})

	docs := []domain.InsightDocument{{Title: "a", Content: "a"}, {Title: "b", Content: "b"}}
	if err := client.UpsertDocuments(context.Background(), docs, [][]float32{{0.1}}); err == nil {
		t.Fatal("expected mismatch error")
	}
}

func TestClassifyQdrantError(t *testing.T) {
	retryable := classifyQdrantError(&statusError{StatusCode: http.StatusServiceUnavailable})
	if !retryable.Retryable || !retryable.RecordFailure {
		t.Fatalf("expected 503 to be retryable and recorded, got %+v", retryable)
	}

	clientErr := classifyQdrantError(&statusError{StatusCode: http.StatusBadRequest})
	if clientErr.Retryable || clientErr.RecordFailure {
		t.Fatalf("expected 400 to be terminal and unrecorded, got %+v", clientErr)
	}

	canceled := classifyQdrantError(context.Canceled)
	if canceled.Retryable || canceled.RecordFailure {
		t.Fatalf("expected cancellation to be unrecorded, got %+v", canceled)
	}
}
