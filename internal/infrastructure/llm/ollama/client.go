package ollama

import (
	"context"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/kirillkom/insight-assistant/internal/core/domain"
	"github.com/kirillkom/insight-assistant/internal/infrastructure/resilience"
)

const (
	defaultGenerateModel = "gpt-oss:20b"
	defaultEmbedModel    = "nomic-embed-text"
)

// Client talks to a local ollama server over its HTTP JSON API. The same
// client backs both the embedder and the answer generator; a shared rate
// limiter keeps the two paths from saturating the model host.
type Client struct {
	baseURL       string
	generateModel string
	embedModel    string
	transport     *transport
	executor      *resilience.Executor
	limiter       *rate.Limiter
}

type Options struct {
	GenerateModel      string
	EmbedModel         string
	HTTPTimeout        time.Duration
	RequestsPerSecond  float64
	Burst              int
	ResilienceExecutor *resilience.Executor
}

func New(baseURL string, options Options) *Client {
	generateModel := options.GenerateModel
	if generateModel == "" {
		generateModel = defaultGenerateModel
	}
	embedModel := options.EmbedModel
	if embedModel == "" {
		embedModel = defaultEmbedModel
	}
	httpTimeout := options.HTTPTimeout
	if httpTimeout <= 0 {
		httpTimeout = 120 * time.Second
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if options.RequestsPerSecond > 0 {
		burst := options.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(options.RequestsPerSecond), burst)
	}

	return &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		generateModel: generateModel,
		embedModel:    embedModel,
		transport:     newTransport(httpTimeout),
		executor:      options.ResilienceExecutor,
		limiter:       limiter,
	}
}

// Embed returns one vector per input text, in input order.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	reqBody := map[string]any{
		"model": c.embedModel,
		"input": texts,
	}
	var embedResp struct {
		Embeddings [][]float32 `json:"embeddings"`
	}

	err := c.execute(ctx, "ollama_embed", func(ctx context.Context) error {
		return c.transport.postJSON(ctx, c.baseURL+"/api/embed", reqBody, &embedResp, "embed")
	})
	if err != nil {
		return nil, domain.WrapError(domain.ErrEmbeddingUnavailable, "ollama embed", err)
	}
	if len(embedResp.Embeddings) != len(texts) {
		return nil, domain.WrapError(domain.ErrEmbeddingUnavailable, "ollama embed",
			&countMismatchError{want: len(texts), got: len(embedResp.Embeddings)})
	}
	return embedResp.Embeddings, nil
}

func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// Generate runs a single non-streaming completion for the given prompt.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]any{
		"model":  c.generateModel,
		"prompt": prompt,
		"stream": false,
	}
	var generateResp struct {
		Response string `json:"response"`
	}

	err := c.execute(ctx, "ollama_generate", func(ctx context.Context) error {
		return c.transport.postJSON(ctx, c.baseURL+"/api/generate", reqBody, &generateResp, "generate")
	})
	if err != nil {
		return "", domain.WrapError(domain.ErrSynthesisUnavailable, "ollama generate", err)
	}
	return strings.TrimSpace(generateResp.Response), nil
}

func (c *Client) execute(ctx context.Context, operation string, fn func(context.Context) error) error {
	wrapped := func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		return fn(ctx)
	}
	if c.executor == nil {
		return wrapped(ctx)
	}
	return c.executor.Execute(ctx, operation, wrapped, classifyOllamaError)
}
