package ports

import (
	"context"

	"github.com/kirillkom/insight-assistant/internal/core/domain"
)

// QuestionAnswerer is the inbound contract for the full hybrid pipeline:
// plan, retrieve, fuse, synthesize.
type QuestionAnswerer interface {
	Ask(ctx context.Context, question string) (*domain.Answer, error)
}

// CorpusLoader ingests insight documents, embedding them once at load time.
type CorpusLoader interface {
	Load(ctx context.Context, docs []domain.InsightDocument) error
}
