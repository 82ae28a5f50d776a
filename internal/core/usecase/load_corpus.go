package usecase

import (
	"context"
	"fmt"

	"github.com/kirillkom/insight-assistant/internal/core/domain"
	"github.com/kirillkom/insight-assistant/internal/core/ports"
)

// CorpusLoadUseCase ingests insight documents: each document is embedded
// exactly once here and stored with its vector. The query path never
// re-embeds stored documents.
type CorpusLoadUseCase struct {
	embedder ports.Embedder
	index    ports.VectorIndex
}

func NewCorpusLoadUseCase(embedder ports.Embedder, index ports.VectorIndex) *CorpusLoadUseCase {
	return &CorpusLoadUseCase{
		embedder: embedder,
		index:    index,
	}
}

func (uc *CorpusLoadUseCase) Load(ctx context.Context, docs []domain.InsightDocument) error {
	if len(docs) == 0 {
		return nil
	}

	texts := make([]string, 0, len(docs))
	for _, doc := range docs {
		texts = append(texts, doc.Content)
	}

	vectors, err := uc.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed corpus documents: %w", err)
	}
	if len(vectors) != len(docs) {
		return fmt.Errorf("embedding count mismatch: %d documents, %d vectors", len(docs), len(vectors))
	}

	if err := uc.index.UpsertDocuments(ctx, docs, vectors); err != nil {
		return fmt.Errorf("upsert corpus documents: %w", err)
	}
	return nil
}
