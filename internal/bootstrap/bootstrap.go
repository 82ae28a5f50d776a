package bootstrap

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/kirillkom/insight-assistant/internal/config"
	"github.com/kirillkom/insight-assistant/internal/core/domain"
	"github.com/kirillkom/insight-assistant/internal/core/ports"
	"github.com/kirillkom/insight-assistant/internal/core/usecase"
	"github.com/kirillkom/insight-assistant/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/insight-assistant/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/insight-assistant/internal/infrastructure/resilience"
	"github.com/kirillkom/insight-assistant/internal/infrastructure/vector/qdrant"
)

// App wires the pipeline end to end: one shared resilience executor in
// front of all three backends, the planner, both retrievers, the fuser
// inside the ask use case and the synthesizer.
type App struct {
	Config config.Config

	DB       *sql.DB
	AskUC    ports.QuestionAnswerer
	LoaderUC ports.CorpusLoader

	closeFn func()
}

func New(cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	store := postgres.NewStore(db, postgres.Options{
		MaxRows:            cfg.SQLMaxRows,
		QueryTimeout:       time.Duration(cfg.SQLQueryTimeoutSeconds) * time.Second,
		ResilienceExecutor: executor,
	})

	vectorIndex := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection, qdrant.Options{
		ResilienceExecutor: executor,
	})

	model := ollama.New(cfg.OllamaURL, ollama.Options{
		GenerateModel:      cfg.OllamaGenModel,
		EmbedModel:         cfg.OllamaEmbedModel,
		HTTPTimeout:        time.Duration(cfg.OllamaHTTPTimeout) * time.Second,
		RequestsPerSecond:  cfg.OllamaRequestsPS,
		Burst:              cfg.OllamaBurst,
		ResilienceExecutor: executor,
	})

	schema := domain.RetailSchema()
	corpus := domain.InsightCorpus(cfg.QdrantCollection)

	planner := usecase.NewPlanner(schema, corpus, cfg.MaxQuestionBytes, cfg.MaxSubQueries)
	sqlRetriever := usecase.NewSQLRetriever(store, schema)
	vectorRetriever := usecase.NewVectorRetriever(model, vectorIndex, cfg.RetrievalTopK)
	synthesizer := usecase.NewSynthesizer(model)

	askUC := usecase.NewAskUseCase(planner, sqlRetriever, vectorRetriever, synthesizer, usecase.AskConfig{
		RequestTimeout:   time.Duration(cfg.RequestTimeoutSeconds) * time.Second,
		RetrievalTimeout: time.Duration(cfg.RetrievalTimeoutSeconds) * time.Second,
		EvidenceCap:      cfg.EvidenceCap,
	})
	loaderUC := usecase.NewCorpusLoadUseCase(model, vectorIndex)

	return &App{
		Config:   cfg,
		DB:       db,
		AskUC:    askUC,
		LoaderUC: loaderUC,

		closeFn: func() {
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
