package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/nowa-engine/ragquery/internal/domain"
	"github.com/nowa-engine/ragquery/internal/logger"
	"github.com/nowa-engine/ragquery/internal/transport/httpclient"
)

// Defaults for a local Ollama install.
const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "nomic-embed-text"
	DefaultTimeout = 120 * time.Second

	embeddingsPath = "/api/embeddings"
	// HealthPath is the cheap liveness endpoint (lists local models).
	HealthPath = "/api/tags"
)

// Embedder calls the Ollama embeddings API. One request per call, no retry.
type Embedder struct {
	client *resty.Client
	model  string
}

// Config holds the embedding provider settings.
type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration
	Logger  *zap.Logger
}

// NewEmbedder creates an Ollama embedding provider.
func NewEmbedder(cfg *Config) *Embedder {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	c := httpclient.New(base, timeout, cfg.Logger).
		SetHeader("Content-Type", "application/json")

	return &Embedder{client: c, model: model}
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

// Elements are pointers so a JSON null is detectable instead of decoding to 0.
type embedResponse struct {
	Embedding []*float64 `json:"embedding"`
	Error     string     `json:"error"`
}

// Embed implements domain.Embedder.
// Any transport error, non-2xx status or body without a numeric "embedding" list
// is wrapped with domain.ErrEmbeddingService.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	log := logger.FromContext(ctx)

	resp, err := e.client.R().
		SetContext(ctx).
		SetBody(&embedRequest{Model: e.model, Prompt: text}).
		Post(embeddingsPath)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("ollama request: %v: %w", err, domain.ErrEmbeddingService)
	}

	log.Debug("ollama embeddings response",
		zap.Int("status", resp.StatusCode()),
		zap.Duration("latency", resp.Time()),
		zap.Int("bytes", len(resp.Body())),
	)

	if !resp.IsSuccess() {
		return domain.EmbeddingResult{}, fmt.Errorf("ollama status %d: %s: %w",
			resp.StatusCode(), httpclient.Preview(resp.String(), 200), domain.ErrEmbeddingService)
	}

	var out embedResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("decode ollama response: %v: %w", err, domain.ErrEmbeddingService)
	}
	if out.Error != "" {
		return domain.EmbeddingResult{}, fmt.Errorf("ollama error: %s: %w", out.Error, domain.ErrEmbeddingService)
	}
	if len(out.Embedding) == 0 {
		return domain.EmbeddingResult{}, fmt.Errorf("ollama response has no embedding: %w", domain.ErrEmbeddingService)
	}

	vec := make([]float32, len(out.Embedding))
	for i, v := range out.Embedding {
		if v == nil {
			return domain.EmbeddingResult{}, fmt.Errorf("ollama embedding has null at index %d: %w",
				i, domain.ErrEmbeddingService)
		}
		vec[i] = float32(*v)
	}
	return domain.EmbeddingResult{Embedding: vec, Model: e.model}, nil
}

// Provider returns the provider label used in logs and metrics.
func (e *Embedder) Provider() string { return "ollama" }

// Model returns the configured model name.
func (e *Embedder) Model() string { return e.model }
