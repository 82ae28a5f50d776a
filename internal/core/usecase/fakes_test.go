package usecase

import (
	"context"

	"github.com/kirillkom/insight-assistant/internal/core/domain"
)

type fakeStore struct {
	rows []domain.Row
	err  error

	gotQuery string
	gotArgs  []any
	calls    int
}

func (f *fakeStore) Select(_ context.Context, query string, args ...any) ([]domain.Row, error) {
	f.calls++
	f.gotQuery = query
	f.gotArgs = args
	if f.err != nil {
		return nil, f.err
	}
	return f.rows, nil
}

type fakeEmbedder struct {
	vectors     [][]float32
	queryVector []float32
	err         error

	gotTexts []string
	gotQuery string
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.gotTexts = texts
	if f.err != nil {
		return nil, f.err
	}
	return f.vectors, nil
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.gotQuery = text
	if f.err != nil {
		return nil, f.err
	}
	return f.queryVector, nil
}

type fakeIndex struct {
	passages  []domain.Passage
	searchErr error
	upsertErr error

	gotVector  []float32
	gotLimit   int
	gotDocs    []domain.InsightDocument
	gotVectors [][]float32
}

func (f *fakeIndex) Search(_ context.Context, vector []float32, limit int) ([]domain.Passage, error) {
	f.gotVector = vector
	f.gotLimit = limit
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.passages, nil
}

func (f *fakeIndex) UpsertDocuments(_ context.Context, docs []domain.InsightDocument, vectors [][]float32) error {
	f.gotDocs = docs
	f.gotVectors = vectors
	return f.upsertErr
}

type fakeGenerator struct {
	response string
	err      error

	gotPrompt string
	calls     int
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.calls++
	f.gotPrompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}
