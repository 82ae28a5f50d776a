package usecase

import (
	"context"
	"fmt"
	"sort"

	"github.com/kirillkom/insight-assistant/internal/core/domain"
	"github.com/kirillkom/insight-assistant/internal/core/ports"
)

const defaultVectorTopK = 5

// VectorRetriever embeds the sub-query text and searches the insight corpus
// for the nearest neighbours. Stored documents keep their ingestion-time
// vectors; only the incoming query text is embedded here.
type VectorRetriever struct {
	embedder ports.Embedder
	index    ports.VectorIndex
	topK     int
}

func NewVectorRetriever(embedder ports.Embedder, index ports.VectorIndex, topK int) *VectorRetriever {
	if topK <= 0 {
		topK = defaultVectorTopK
	}
	return &VectorRetriever{
		embedder: embedder,
		index:    index,
		topK:     topK,
	}
}

func (r *VectorRetriever) Retrieve(ctx context.Context, sq domain.SubQuery) (*domain.VectorResult, error) {
	if sq.Backend != domain.BackendVector {
		return nil, domain.WrapError(domain.ErrInvalidInput, "vector retrieve",
			fmt.Errorf("sub-query %s routed to wrong backend %s", sq.ID, sq.Backend))
	}

	queryVector, err := r.embedder.EmbedQuery(ctx, sq.Intent)
	if err != nil {
		if domain.IsKind(err, domain.ErrEmbeddingUnavailable) {
			return nil, err
		}
		return nil, domain.WrapError(domain.ErrEmbeddingUnavailable, "vector retrieve", err)
	}

	passages, err := r.index.Search(ctx, queryVector, r.topK)
	if err != nil {
		if domain.IsKind(err, domain.ErrBackendUnavailable) {
			return nil, err
		}
		return nil, domain.WrapError(domain.ErrBackendUnavailable, "vector retrieve", err)
	}

	// Stores return hits by descending similarity already; the stable sort
	// keeps insertion order for ties.
	sort.SliceStable(passages, func(i, j int) bool {
		return passages[i].Score > passages[j].Score
	})

	return &domain.VectorResult{
		SubQueryID: sq.ID,
		Passages:   passages,
	}, nil
}
