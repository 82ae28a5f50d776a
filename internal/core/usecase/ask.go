package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/kirillkom/insight-assistant/internal/core/domain"
)

// AskConfig bounds one question's journey through the pipeline.
type AskConfig struct {
	RequestTimeout   time.Duration
	RetrievalTimeout time.Duration
	EvidenceCap      int
}

func (c AskConfig) normalize() AskConfig {
	out := c
	if out.RequestTimeout <= 0 {
		out.RequestTimeout = 30 * time.Second
	}
	if out.RetrievalTimeout <= 0 {
		out.RetrievalTimeout = 10 * time.Second
	}
	if out.EvidenceCap <= 0 {
		out.EvidenceCap = defaultEvidenceCap
	}
	return out
}

// AskUseCase drives the whole hybrid pipeline for one question: plan the
// sub-queries, fan retrieval out across backends, fuse the evidence and
// synthesize the answer. Retrieval failures degrade to empty contributions;
// only input validation and schema-safety failures abort.
type AskUseCase struct {
	planner     *Planner
	sqlRet      *SQLRetriever
	vectorRet   *VectorRetriever
	synthesizer *Synthesizer
	cfg         AskConfig
}

func NewAskUseCase(
	planner *Planner,
	sqlRet *SQLRetriever,
	vectorRet *VectorRetriever,
	synthesizer *Synthesizer,
	cfg AskConfig,
) *AskUseCase {
	return &AskUseCase{
		planner:     planner,
		sqlRet:      sqlRet,
		vectorRet:   vectorRet,
		synthesizer: synthesizer,
		cfg:         cfg.normalize(),
	}
}

type retrievalOutcome struct {
	sql         *domain.SQLResult
	vector      *domain.VectorResult
	degradation *domain.Degradation
	fatal       error
}

func (uc *AskUseCase) Ask(ctx context.Context, question string) (*domain.Answer, error) {
	plan, err := uc.planner.Plan(question)
	if err != nil {
		if !domain.IsKind(err, domain.ErrUnclassifiableQuery) {
			return nil, err
		}
		slog.Info("plan_fallback", "reason", err.Error())
		plan = uc.planner.Fallback(question)
	}

	ctx, cancel := context.WithTimeout(ctx, uc.cfg.RequestTimeout)
	defer cancel()

	outcomes := make(chan retrievalOutcome, len(plan))
	var wg sync.WaitGroup
	for _, sq := range plan {
		wg.Add(1)
		go func(sq domain.SubQuery) {
			defer wg.Done()
			outcomes <- uc.retrieve(ctx, sq)
		}(sq)
	}
	wg.Wait()
	close(outcomes)

	var sqlResults []domain.SQLResult
	var vectorResults []domain.VectorResult
	var degradations []domain.Degradation
	for o := range outcomes {
		switch {
		case o.fatal != nil:
			return nil, o.fatal
		case o.sql != nil:
			sqlResults = append(sqlResults, *o.sql)
		case o.vector != nil:
			vectorResults = append(vectorResults, *o.vector)
		case o.degradation != nil:
			degradations = append(degradations, *o.degradation)
		}
	}

	bundle := FuseEvidence(sqlResults, vectorResults, degradations, uc.cfg.EvidenceCap)

	answer, err := uc.synthesizer.Synthesize(ctx, question, bundle)
	if err != nil {
		if domain.IsKind(err, domain.ErrSynthesisUnavailable) {
			slog.Warn("synthesis_degraded", "error", err)
			return &domain.Answer{
				Text:      synthesisFailureAnswer,
				Citations: []string{},
				Degraded:  true,
				Notes:     bundle.Degradations,
			}, nil
		}
		return nil, err
	}
	return answer, nil
}

func (uc *AskUseCase) retrieve(ctx context.Context, sq domain.SubQuery) retrievalOutcome {
	rctx, cancel := context.WithTimeout(ctx, uc.cfg.RetrievalTimeout)
	defer cancel()

	switch sq.Backend {
	case domain.BackendSQL:
		res, err := uc.sqlRet.Retrieve(rctx, sq)
		if err != nil {
			return retrievalFailure(sq, err)
		}
		return retrievalOutcome{sql: res}
	case domain.BackendVector:
		res, err := uc.vectorRet.Retrieve(rctx, sq)
		if err != nil {
			return retrievalFailure(sq, err)
		}
		return retrievalOutcome{vector: res}
	default:
		return retrievalOutcome{degradation: &domain.Degradation{
			Backend:    sq.Backend,
			SubQueryID: sq.ID,
			Reason:     "unknown_backend",
		}}
	}
}

// retrievalFailure turns a backend error into an empty contribution plus a
// degradation note. Schema violations are the one fatal case: they mean the
// planner produced an unsafe query and must never be silently dropped.
func retrievalFailure(sq domain.SubQuery, err error) retrievalOutcome {
	if domain.IsKind(err, domain.ErrSchemaViolation) || domain.IsKind(err, domain.ErrInvalidInput) {
		return retrievalOutcome{fatal: err}
	}

	slog.Warn("retrieval_degraded",
		"backend", string(sq.Backend),
		"sub_query_id", sq.ID,
		"error", err,
	)
	return retrievalOutcome{degradation: &domain.Degradation{
		Backend:    sq.Backend,
		SubQueryID: sq.ID,
		Reason:     degradationReason(err),
	}}
}

func degradationReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case domain.IsKind(err, domain.ErrEmbeddingUnavailable):
		return "embedding_unavailable"
	case domain.IsKind(err, domain.ErrBackendUnavailable):
		return "backend_unavailable"
	default:
		return "retrieval_error"
	}
}
