package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/kirillkom/insight-assistant/internal/core/domain"
)

func TestVectorRetrieveEmbedsQueryAndSearches(t *testing.T) {
	embedder := &fakeEmbedder{queryVector: []float32{0.1, 0.2}}
	index := &fakeIndex{passages: []domain.Passage{
		{Title: "Wireless Mouse Overview", Category: "item", Content: "notes", Score: 0.8},
	}}
	r := NewVectorRetriever(embedder, index, 3)

	res, err := r.Retrieve(context.Background(), domain.SubQuery{
		ID:      "sq-1",
		Backend: domain.BackendVector,
		Intent:  "how is the mouse positioned",
	})
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}

	if embedder.gotQuery != "how is the mouse positioned" {
		t.Fatalf("unexpected embedded text: %q", embedder.gotQuery)
	}
	if index.gotLimit != 3 {
		t.Fatalf("expected top-k 3, got %d", index.gotLimit)
	}
	if len(res.Passages) != 1 || res.SubQueryID != "sq-1" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestVectorRetrieveSortsByScore(t *testing.T) {
	embedder := &fakeEmbedder{queryVector: []float32{0.1}}
	index := &fakeIndex{passages: []domain.Passage{
		{Title: "low", Score: 0.2},
		{Title: "high", Score: 0.9},
		{Title: "mid", Score: 0.5},
	}}
	r := NewVectorRetriever(embedder, index, 0)

	res, err := r.Retrieve(context.Background(), domain.SubQuery{Backend: domain.BackendVector, Intent: "q"})
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if res.Passages[0].Title != "high" || res.Passages[2].Title != "low" {
		t.Fatalf("expected descending score order, got %+v", res.Passages)
	}
}

func TestVectorRetrieveRejectsWrongBackend(t *testing.T) {
	r := NewVectorRetriever(&fakeEmbedder{}, &fakeIndex{}, 0)

	_, err := r.Retrieve(context.Background(), domain.SubQuery{Backend: domain.BackendSQL})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
}

func TestVectorRetrieveWrapsEmbeddingFailure(t *testing.T) {
	r := NewVectorRetriever(&fakeEmbedder{err: errors.New("model offline")}, &fakeIndex{}, 0)

	_, err := r.Retrieve(context.Background(), domain.SubQuery{Backend: domain.BackendVector, Intent: "q"})
	if !domain.IsKind(err, domain.ErrEmbeddingUnavailable) {
		t.Fatalf("expected embedding unavailable error, got %v", err)
	}
}

func TestVectorRetrieveWrapsSearchFailure(t *testing.T) {
	embedder := &fakeEmbedder{queryVector: []float32{0.1}}
	r := NewVectorRetriever(embedder, &fakeIndex{searchErr: errors.New("connection refused")}, 0)

	_, err := r.Retrieve(context.Background(), domain.SubQuery{Backend: domain.BackendVector, Intent: "q"})
	if !domain.IsKind(err, domain.ErrBackendUnavailable) {
		t.Fatalf("expected backend unavailable error, got %v", err)
	}
}
