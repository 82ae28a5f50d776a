package ports

import (
	"context"

	"github.com/kirillkom/insight-assistant/internal/core/domain"
)

// RelationalStore executes a validated, parameterized query and returns
// ordered rows. Implementations must bound row counts and apply their own
// statement timeout; they never build SQL from user text.
type RelationalStore interface {
	Select(ctx context.Context, query string, args ...any) ([]domain.Row, error)
}

// VectorIndex performs nearest-neighbour search over the insight corpus and
// accepts documents with precomputed vectors at ingestion time.
type VectorIndex interface {
	Search(ctx context.Context, queryVector []float32, limit int) ([]domain.Passage, error)
	UpsertDocuments(ctx context.Context, docs []domain.InsightDocument, vectors [][]float32) error
}

// Embedder builds vectors for query text and corpus documents.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// AnswerGenerator is the narrow capability surface of the language model:
// one prompt in, one completion out. The pipeline stays testable with
// deterministic fakes behind this interface.
type AnswerGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
