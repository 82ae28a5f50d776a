package usecase

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/kirillkom/insight-assistant/internal/core/domain"
)

func TestCorpusLoadEmbedsContentOnce(t *testing.T) {
	embedder := &fakeEmbedder{vectors: [][]float32{{0.1}, {0.2}}}
	index := &fakeIndex{}
	uc := NewCorpusLoadUseCase(embedder, index)

	docs := []domain.InsightDocument{
		{Title: "Wireless Mouse Overview", Category: "item", Content: "mouse facts"},
		{Title: "Quarterly Financial Snapshot", Category: "company", Content: "company facts"},
	}
	if err := uc.Load(context.Background(), docs); err != nil {
		t.Fatalf("load: %v", err)
	}

	if !reflect.DeepEqual(embedder.gotTexts, []string{"mouse facts", "company facts"}) {
		t.Fatalf("expected document contents embedded, got %v", embedder.gotTexts)
	}
	if !reflect.DeepEqual(index.gotDocs, docs) {
		t.Fatalf("expected documents upserted unchanged, got %+v", index.gotDocs)
	}
	if len(index.gotVectors) != 2 {
		t.Fatalf("expected 2 vectors upserted, got %d", len(index.gotVectors))
	}
}

func TestCorpusLoadNoDocumentsIsNoop(t *testing.T) {
	embedder := &fakeEmbedder{}
	index := &fakeIndex{}
	uc := NewCorpusLoadUseCase(embedder, index)

	if err := uc.Load(context.Background(), nil); err != nil {
		t.Fatalf("load: %v", err)
	}
	if embedder.gotTexts != nil || index.gotDocs != nil {
		t.Fatal("expected no backend calls for an empty corpus")
	}
}

func TestCorpusLoadRejectsVectorCountMismatch(t *testing.T) {
	embedder := &fakeEmbedder{vectors: [][]float32{{0.1}}}
	uc := NewCorpusLoadUseCase(embedder, &fakeIndex{})

	docs := []domain.InsightDocument{
		{Title: "a", Content: "a"},
		{Title: "b", Content: "b"},
	}
	if err := uc.Load(context.Background(), docs); err == nil {
		t.Fatal("expected count mismatch error")
	}
}

func TestCorpusLoadPropagatesUpsertFailure(t *testing.T) {
	embedder := &fakeEmbedder{vectors: [][]float32{{0.1}}}
	index := &fakeIndex{upsertErr: errors.New("collection locked")}
	uc := NewCorpusLoadUseCase(embedder, index)

	docs := []domain.InsightDocument{{Title: "a", Content: "a"}}
	if err := uc.Load(context.Background(), docs); err == nil {
		t.Fatal("expected upsert error to propagate")
	}
}
