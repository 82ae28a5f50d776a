package domain

// Backend identifies which retrieval store serves a sub-query.
type Backend string

const (
	BackendSQL    Backend = "sql"
	BackendVector Backend = "vector"
)

// IntentKind is the tagged result of question classification. All intent
// policy lives in one pure function over the question text; nothing else in
// the pipeline is allowed to branch on raw question wording.
type IntentKind string

const (
	IntentSQL     IntentKind = "sql"
	IntentVector  IntentKind = "vector"
	IntentHybrid  IntentKind = "hybrid"
	IntentUnknown IntentKind = "unknown"
)

// Filter is one whitelisted column restriction bound to a sub-query.
// Column and Operator must come from the template registry, never from
// question text.
type Filter struct {
	Column   string
	Operator string
	Value    any
}

// SubQuery is a single retrieval task emitted by the planner. It is created
// once, consumed once by the matching retriever, and never mutated.
type SubQuery struct {
	ID       string
	Backend  Backend
	Intent   string
	Template string
	Filters  []Filter
}
