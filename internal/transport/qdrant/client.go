package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/nowa-engine/ragquery/internal/domain"
	"github.com/nowa-engine/ragquery/internal/logger"
	"github.com/nowa-engine/ragquery/internal/transport/httpclient"
)

// Defaults for a local Qdrant install.
const (
	DefaultBaseURL = "http://localhost:6333"
	DefaultTimeout = 30 * time.Second

	searchPath = "/collections/{collection}/points/search"
	// HealthPath is Qdrant's liveness endpoint.
	HealthPath = "/healthz"
)

// Client queries named collections over the Qdrant REST API.
type Client struct {
	client *resty.Client
}

// Config holds the Qdrant connection settings.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	Logger  *zap.Logger
}

// NewClient creates a Qdrant REST client.
func NewClient(cfg *Config) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	c := httpclient.New(base, timeout, cfg.Logger).
		SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		c.SetHeader("api-key", cfg.APIKey)
	}
	return &Client{client: c}
}

type searchRequest struct {
	Vector      []float32 `json:"vector"`
	Limit       int       `json:"limit"`
	WithPayload bool      `json:"with_payload"`
	WithVector  bool      `json:"with_vector"`
}

type searchResponse struct {
	Result []scoredPoint `json:"result"`
}

type scoredPoint struct {
	ID      json.RawMessage `json:"id"`
	Score   float64         `json:"score"`
	Payload map[string]any  `json:"payload"`
}

type errorResponse struct {
	Status struct {
		Error string `json:"error"`
	} `json:"status"`
}

// Search runs a similarity query against collection.
// limit is clamped to [domain.MinK, domain.MaxK]. Hits keep Qdrant's ranking and are
// never re-sorted; any surplus beyond limit is cut from the tail.
func (c *Client) Search(
	ctx context.Context, collection string, vector []float32, limit int,
) ([]domain.Hit, error) {
	limit = domain.ClampK(limit)
	log := logger.FromContext(ctx).With(zap.String("collection", collection))

	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("collection", collection).
		SetBody(&searchRequest{Vector: vector, Limit: limit, WithPayload: true}).
		Post(searchPath)
	if err != nil {
		return nil, fmt.Errorf("qdrant search %q: %v: %w", collection, err, domain.ErrVectorStore)
	}

	log.Debug("qdrant search response",
		zap.Int("status", resp.StatusCode()),
		zap.Duration("latency", resp.Time()),
		zap.Int("limit", limit),
	)

	if resp.StatusCode() == http.StatusNotFound {
		return nil, fmt.Errorf("qdrant search %q: %s: %w",
			collection, errorMessage(resp), domain.ErrCollectionNotFound)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("qdrant search %q: status %d: %s: %w",
			collection, resp.StatusCode(), errorMessage(resp), domain.ErrVectorStore)
	}

	var out searchResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("decode qdrant response: %v: %w", err, domain.ErrVectorStore)
	}

	points := out.Result
	if len(points) > limit {
		log.Warn("qdrant returned more points than requested",
			zap.Int("returned", len(points)), zap.Int("limit", limit))
		points = points[:limit]
	}

	hits := make([]domain.Hit, len(points))
	for i, p := range points {
		hits[i] = domain.NewHit(pointID(p.ID), p.Score, p.Payload)
	}
	return hits, nil
}

// pointID renders a Qdrant point id (unsigned integer or UUID string) as text.
func pointID(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	return string(bytes.TrimSpace(raw))
}

func errorMessage(resp *resty.Response) string {
	var e errorResponse
	if json.Unmarshal(resp.Body(), &e) == nil && e.Status.Error != "" {
		return e.Status.Error
	}
	return httpclient.Preview(resp.String(), 200)
}
