package domain

import (
	"fmt"
	"strings"
)

// Field is one named column value inside a result row. Rows keep explicit
// field order so rendering and provenance keys stay deterministic.
type Field struct {
	Name  string
	Value any
}

type Row []Field

func (r Row) Get(name string) (any, bool) {
	for _, f := range r {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Render flattens the row into a stable "name=value" line.
func (r Row) Render() string {
	parts := make([]string, 0, len(r))
	for _, f := range r {
		parts = append(parts, fmt.Sprintf("%s=%v", f.Name, f.Value))
	}
	return strings.Join(parts, " ")
}

// SQLResult is the structured contribution of one SQL sub-query. Zero rows
// is a valid outcome, not an error.
type SQLResult struct {
	SubQueryID string
	Template   string
	KeyColumn  string
	Rows       []Row
}

// Passage is one scored nearest-neighbour hit from the vector store.
type Passage struct {
	Title    string  `json:"title"`
	Category string  `json:"category"`
	Content  string  `json:"content"`
	Score    float64 `json:"score"`
}

type VectorResult struct {
	SubQueryID string
	Passages   []Passage
}

// InsightDocument is a corpus document as ingested: its embedding is
// computed once at load time and never recomputed on the query path.
type InsightDocument struct {
	Title    string `json:"title"`
	Category string `json:"category"`
	Content  string `json:"content"`
}

// EvidenceItem is the normalized unit both fusion and synthesis operate on.
type EvidenceItem struct {
	ID         string  `json:"id"`
	Backend    Backend `json:"backend"`
	SubQueryID string  `json:"sub_query_id"`
	Key        string  `json:"-"`
	Title      string  `json:"title"`
	Content    string  `json:"content"`
	Score      float64 `json:"score"`
	Rank       int     `json:"rank"`
}

// Degradation records a backend whose contribution was replaced by an empty
// one instead of failing the whole request.
type Degradation struct {
	Backend    Backend `json:"backend"`
	SubQueryID string  `json:"sub_query_id"`
	Reason     string  `json:"reason"`
}

// EvidenceBundle is the fused, deduplicated, ranked evidence for one
// question. Items never contain two entries with the same backend and key.
type EvidenceBundle struct {
	Items        []EvidenceItem `json:"items"`
	Degradations []Degradation  `json:"degradations,omitempty"`
}

func (b EvidenceBundle) Empty() bool {
	return len(b.Items) == 0
}

// Answer is the immutable pipeline output: final text plus the evidence ids
// the synthesizer actually cited.
type Answer struct {
	Text      string         `json:"text"`
	Citations []string       `json:"citations"`
	Evidence  []EvidenceItem `json:"evidence,omitempty"`
	Degraded  bool           `json:"degraded"`
	Notes     []Degradation  `json:"notes,omitempty"`
}
