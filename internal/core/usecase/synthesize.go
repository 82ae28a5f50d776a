package usecase

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/kirillkom/insight-assistant/internal/core/domain"
	"github.com/kirillkom/insight-assistant/internal/core/ports"
)

const (
	insufficientEvidenceAnswer = "I do not have enough information to answer this question."
	synthesisFailureAnswer     = "I am unable to generate an answer at this time. Please try again later."
)

// Synthesizer turns the question and the fused evidence bundle into the
// final grounded answer. An empty bundle never reaches the model: it
// short-circuits to an explicit insufficient-information answer so nothing
// can be fabricated.
type Synthesizer struct {
	generator ports.AnswerGenerator
}

func NewSynthesizer(generator ports.AnswerGenerator) *Synthesizer {
	return &Synthesizer{generator: generator}
}

func (s *Synthesizer) Synthesize(ctx context.Context, question string, bundle domain.EvidenceBundle) (*domain.Answer, error) {
	if bundle.Empty() {
		text := insufficientEvidenceAnswer
		if len(bundle.Degradations) > 0 {
			text += " Some data sources were unavailable: " + describeDegradations(bundle.Degradations) + "."
		}
		return &domain.Answer{
			Text:      text,
			Citations: []string{},
			Degraded:  len(bundle.Degradations) > 0,
			Notes:     bundle.Degradations,
		}, nil
	}

	raw, err := s.generator.Generate(ctx, buildAnswerPrompt(question, bundle))
	if err != nil {
		if domain.IsKind(err, domain.ErrSynthesisUnavailable) {
			return nil, err
		}
		return nil, domain.WrapError(domain.ErrSynthesisUnavailable, "synthesize", err)
	}

	return &domain.Answer{
		Text:      strings.TrimSpace(raw),
		Citations: extractCitations(raw, bundle.Items),
		Evidence:  bundle.Items,
		Degraded:  len(bundle.Degradations) > 0,
		Notes:     bundle.Degradations,
	}, nil
}

func buildAnswerPrompt(question string, bundle domain.EvidenceBundle) string {
	var evidence strings.Builder
	for _, item := range bundle.Items {
		fmt.Fprintf(&evidence, "[%s] %s %s score=%.3f\n%s\n\n",
			item.ID, item.Backend, item.Title, item.Score, item.Content)
	}

	var limitation string
	if len(bundle.Degradations) > 0 {
		limitation = fmt.Sprintf(
			"\nSome data sources were unavailable (%s). The evidence is incomplete; state this limitation in your answer.\n",
			describeDegradations(bundle.Degradations),
		)
	}

	return fmt.Sprintf(`Answer the user question only from the evidence below.
Evidence marked "sql" comes from the transactional retail database and is authoritative for counts, totals and prices.
Cite every evidence entry you use by its [ID] marker.
If the evidence is insufficient, say it directly.
%s
Question:
%s

Evidence:
%s`, limitation, question, evidence.String())
}

var citationMarkerRe = regexp.MustCompile(`\[([SV]\d+)\]`)

// extractCitations recovers which evidence items the answer referenced:
// first by [ID] marker scan, then best-effort by title match for passages
// the model paraphrased without citing.
func extractCitations(answer string, items []domain.EvidenceItem) []string {
	cited := make(map[string]struct{})
	for _, m := range citationMarkerRe.FindAllStringSubmatch(answer, -1) {
		cited[m[1]] = struct{}{}
	}

	lowerAnswer := strings.ToLower(answer)
	citations := make([]string, 0, len(cited))
	for _, item := range items {
		if _, ok := cited[item.ID]; ok {
			citations = append(citations, item.ID)
			continue
		}
		if len(item.Title) >= 4 && strings.Contains(lowerAnswer, strings.ToLower(item.Title)) {
			citations = append(citations, item.ID)
		}
	}
	return citations
}

func describeDegradations(notes []domain.Degradation) string {
	parts := make([]string, 0, len(notes))
	for _, n := range notes {
		parts = append(parts, fmt.Sprintf("%s: %s", n.Backend, n.Reason))
	}
	return strings.Join(parts, "; ")
}
