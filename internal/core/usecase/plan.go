package usecase

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/insight-assistant/internal/core/domain"
)

const (
	defaultMaxQuestionBytes = 2000
	defaultMaxSubQueries    = 5
)

// Planner decomposes a question into retrieval sub-queries with backend
// assignment. It is a pure function of the question text and the static
// descriptors; it performs no I/O.
type Planner struct {
	schema           domain.SchemaDescriptor
	corpus           domain.CorpusDescriptor
	maxQuestionBytes int
	maxSubQueries    int
}

func NewPlanner(schema domain.SchemaDescriptor, corpus domain.CorpusDescriptor, maxQuestionBytes, maxSubQueries int) *Planner {
	if maxQuestionBytes <= 0 {
		maxQuestionBytes = defaultMaxQuestionBytes
	}
	if maxSubQueries <= 0 {
		maxSubQueries = defaultMaxSubQueries
	}
	return &Planner{
		schema:           schema,
		corpus:           corpus,
		maxQuestionBytes: maxQuestionBytes,
		maxSubQueries:    maxSubQueries,
	}
}

func (p *Planner) Plan(question string) ([]domain.SubQuery, error) {
	q := strings.TrimSpace(question)
	if q == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "plan", fmt.Errorf("question is empty"))
	}
	if len(q) > p.maxQuestionBytes {
		return nil, domain.WrapError(domain.ErrInputTooLong, "plan",
			fmt.Errorf("question is %d bytes, limit is %d", len(q), p.maxQuestionBytes))
	}

	var subs []domain.SubQuery
	switch ClassifyIntent(q) {
	case domain.IntentSQL:
		subs = p.sqlSubQueries(q)
	case domain.IntentVector:
		subs = []domain.SubQuery{p.vectorSubQuery(q)}
	case domain.IntentHybrid:
		subs = append(p.sqlSubQueries(q), p.vectorSubQuery(q))
	default:
		return nil, domain.WrapError(domain.ErrUnclassifiableQuery, "plan",
			fmt.Errorf("no backend cues found in question"))
	}

	if len(subs) > p.maxSubQueries {
		subs = subs[:p.maxSubQueries]
	}
	return subs, nil
}

// Fallback returns the degraded hybrid plan used when classification cannot
// confidently assign a backend: one broad sub-query per backend.
func (p *Planner) Fallback(question string) []domain.SubQuery {
	return []domain.SubQuery{
		{
			ID:       uuid.NewString(),
			Backend:  domain.BackendSQL,
			Intent:   question,
			Template: TemplatePurchaseOverview,
		},
		p.vectorSubQuery(question),
	}
}

var sqlCues = []string{
	"how many", "how much", "count", "total", "sum", "average", "number of",
	"price", "cost", "bought", "buy", "purchase", "purchases", "purchased",
	"order", "orders", "customer", "customers", "supplier", "suppliers",
	"lead time", "address", "addresses", "quantity", "units", "spent",
	"email", "item", "items", "category", "categories",
}

var vectorCues = []string{
	"policy", "strategy", "strategies", "why", "describe", "overview",
	"insight", "insights", "recommend", "recommendation", "positioning",
	"positioned", "margin", "margins", "revenue", "outlook", "notes",
	"qualitative", "opinion", "approach", "marketing", "runway", "financial",
	"warranty", "discount", "discounts", "trend", "trends", "performance",
	"summary", "explain",
}

// ClassifyIntent is the single place intent policy lives: a pure function
// from question text to a tagged variant.
func ClassifyIntent(question string) domain.IntentKind {
	text := normalizeCueText(question)
	sqlHit := containsAnyCue(text, sqlCues)
	vectorHit := containsAnyCue(text, vectorCues)

	switch {
	case sqlHit && vectorHit:
		return domain.IntentHybrid
	case sqlHit:
		return domain.IntentSQL
	case vectorHit:
		return domain.IntentVector
	default:
		return domain.IntentUnknown
	}
}

var nonWordRe = regexp.MustCompile(`[^a-z0-9]+`)

func normalizeCueText(question string) string {
	lower := strings.ToLower(question)
	return " " + strings.TrimSpace(nonWordRe.ReplaceAllString(lower, " ")) + " "
}

func containsAnyCue(normalized string, cues []string) bool {
	for _, cue := range cues {
		if strings.Contains(normalized, " "+cue+" ") {
			return true
		}
	}
	return false
}

var (
	quantityCues = []string{"how many", "units", "quantity", "count"}
	totalCues    = []string{"total", "sum", "how much", "spent", "amount"}
	supplierCues = []string{"supplier", "suppliers", "lead time", "wholesale"}
	priceCues    = []string{"price", "cost", "costs"}
)

func (p *Planner) sqlSubQueries(question string) []domain.SubQuery {
	text := normalizeCueText(question)
	customer := extractCustomerName(question)
	item := extractItemName(question, customer)
	from, to := extractDateRange(question)

	sub := domain.SubQuery{
		ID:      uuid.NewString(),
		Backend: domain.BackendSQL,
		Intent:  question,
	}

	switch {
	case customer != "" && item != "" && containsAnyCue(text, quantityCues):
		sub.Template = TemplateCustomerItemQuantity
		sub.Filters = []domain.Filter{
			{Column: "customers.name", Operator: "=", Value: customer},
			{Column: "items.name", Operator: "=", Value: item},
		}
	case customer != "" && containsAnyCue(text, totalCues):
		sub.Template = TemplateCustomerPurchaseTotal
		sub.Filters = []domain.Filter{{Column: "customers.name", Operator: "=", Value: customer}}
	case customer != "":
		sub.Template = TemplateCustomerPurchases
		sub.Filters = []domain.Filter{{Column: "customers.name", Operator: "=", Value: customer}}
	case item != "" && containsAnyCue(text, supplierCues):
		sub.Template = TemplateItemSuppliers
		sub.Filters = []domain.Filter{{Column: "items.name", Operator: "=", Value: item}}
	case item != "":
		sub.Template = TemplateItemPrice
		sub.Filters = []domain.Filter{{Column: "items.name", Operator: "=", Value: item}}
	default:
		sub.Template = TemplatePurchaseOverview
	}

	if supportsDateFilters(sub.Template) {
		if !from.IsZero() {
			sub.Filters = append(sub.Filters, domain.Filter{Column: "purchases.purchased_at", Operator: ">=", Value: from})
		}
		if !to.IsZero() {
			sub.Filters = append(sub.Filters, domain.Filter{Column: "purchases.purchased_at", Operator: "<", Value: to})
		}
	}

	return []domain.SubQuery{sub}
}

func supportsDateFilters(template string) bool {
	switch template {
	case TemplateCustomerPurchaseTotal, TemplateCustomerPurchases, TemplatePurchaseOverview:
		return true
	default:
		return false
	}
}

func (p *Planner) vectorSubQuery(question string) domain.SubQuery {
	return domain.SubQuery{
		ID:      uuid.NewString(),
		Backend: domain.BackendVector,
		Intent:  strings.TrimSpace(question),
	}
}

var (
	properNounRe = regexp.MustCompile(`\b[A-Z0-9][\w-]*(?: [A-Z0-9][\w-]*)+\b`)
	quotedRe     = regexp.MustCompile(`['"]([^'"]{2,80})['"]`)
	yearRe       = regexp.MustCompile(`\b(?:in|during|since)\s+(\d{4})\b`)
	isoRangeRe   = regexp.MustCompile(`\bbetween\s+(\d{4}-\d{2}-\d{2})\s+and\s+(\d{4}-\d{2}-\d{2})\b`)
)

var phraseStarters = map[string]struct{}{
	"What": {}, "How": {}, "Who": {}, "Why": {}, "Where": {}, "When": {},
	"Which": {}, "Did": {}, "Does": {}, "Do": {}, "Is": {}, "Are": {},
	"Was": {}, "Were": {}, "The": {}, "Our": {}, "List": {}, "Show": {},
	"Give": {}, "Tell": {}, "Can": {}, "Could": {}, "Would": {},
}

// properNounPhrases finds multi-word capitalized runs, dropping leading
// question-starter words so sentence position does not fabricate entities.
func properNounPhrases(question string) []string {
	matches := properNounRe.FindAllString(question, -1)
	phrases := make([]string, 0, len(matches))
	for _, m := range matches {
		tokens := strings.Fields(m)
		for len(tokens) > 0 {
			if _, ok := phraseStarters[tokens[0]]; !ok {
				break
			}
			tokens = tokens[1:]
		}
		if len(tokens) < 2 {
			continue
		}
		phrases = append(phrases, strings.TrimSuffix(strings.Join(tokens, " "), "'s"))
	}
	return phrases
}

func extractCustomerName(question string) string {
	phrases := properNounPhrases(question)
	if len(phrases) == 0 {
		return ""
	}

	// Possessive form is the strongest customer cue ("Alice Johnson's total").
	for _, phrase := range phrases {
		if strings.Contains(question, phrase+"'s") {
			return phrase
		}
	}
	// Positional cues: "did Alice Johnson buy", "customer Brian Lee".
	for _, phrase := range phrases {
		for _, lead := range []string{"did ", "customer ", "by ", "for "} {
			if strings.Contains(question, lead+phrase) {
				return phrase
			}
		}
	}

	text := normalizeCueText(question)
	if containsAnyCue(text, []string{"customer", "customers", "bought", "buy", "spent", "purchase", "purchases", "purchased"}) {
		return phrases[0]
	}
	return ""
}

func extractItemName(question, customer string) string {
	if m := quotedRe.FindStringSubmatch(question); m != nil {
		return strings.TrimSpace(m[1])
	}

	for _, phrase := range properNounPhrases(question) {
		if phrase == customer {
			continue
		}
		for _, lead := range []string{"of ", "item ", "units of "} {
			if strings.Contains(question, lead+phrase) {
				return phrase
			}
		}
	}
	for _, phrase := range properNounPhrases(question) {
		if phrase != customer {
			return phrase
		}
	}
	return ""
}

// extractDateRange recognizes "in/during/since <year>" and
// "between <iso> and <iso>" patterns. Zero times mean no bound.
func extractDateRange(question string) (time.Time, time.Time) {
	if m := isoRangeRe.FindStringSubmatch(strings.ToLower(question)); m != nil {
		from, errFrom := time.Parse("2006-01-02", m[1])
		to, errTo := time.Parse("2006-01-02", m[2])
		if errFrom == nil && errTo == nil {
			return from, to.AddDate(0, 0, 1)
		}
	}
	if m := yearRe.FindStringSubmatch(strings.ToLower(question)); m != nil {
		from, err := time.Parse("2006", m[1])
		if err == nil {
			if strings.Contains(strings.ToLower(question), "since "+m[1]) {
				return from, time.Time{}
			}
			return from, from.AddDate(1, 0, 0)
		}
	}
	return time.Time{}, time.Time{}
}
