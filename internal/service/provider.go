package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/timmy/citelens/internal/config"
	"github.com/timmy/citelens/internal/logger"
)

const (
	openAIBaseURL = "https://api.openai.com/v1"
	jinaBaseURL   = "https://api.jina.ai/v1"

	defaultJinaTask = "retrieval.passage"
)

// ErrProviderResponse is returned when the embedding provider answers with an
// error status or a malformed payload.
var ErrProviderResponse = errors.New("embedding provider error")

// ProviderResult is the answer to one provider call.
// Vectors are aligned with the submitted texts.
type ProviderResult struct {
	Vectors     [][]float32
	TotalTokens int
}

// EmbeddingProvider generates embeddings for a batch of texts in one call.
// Implementations own retry and rate limiting.
type EmbeddingProvider interface {
	EmbedBatch(ctx context.Context, texts []string) (*ProviderResult, error)
	GetModel() string
	GetDimensions() int
}

// EmbeddingProviderConfig holds what a provider needs to make calls.
type EmbeddingProviderConfig struct {
	Provider          string
	Model             string
	APIKey            string
	BaseURL           string
	Dimensions        int
	Task              string
	Timeout           time.Duration
	RetryCount        int
	RequestsPerMinute int
}

// ProviderConfigFrom maps the embedding section of the configuration to provider settings.
func ProviderConfigFrom(cfg *config.EmbeddingConfig) *EmbeddingProviderConfig {
	return &EmbeddingProviderConfig{
		Provider:          cfg.Provider,
		Model:             cfg.Model,
		APIKey:            cfg.APIKey,
		BaseURL:           cfg.BaseURL,
		Dimensions:        cfg.Dimensions,
		Task:              cfg.Task,
		Timeout:           cfg.Timeout,
		RetryCount:        cfg.RetryCount,
		RequestsPerMinute: cfg.RequestsPerMinute,
	}
}

// NewEmbeddingProvider creates the provider named by cfg.Provider.
// Parameters:
//   - cfg: provider settings; APIKey must be set.
// Returns:
//   - EmbeddingProvider: provider ready for calls.
//   - error: ErrMissingAPIKey without credentials, or an unknown provider error.
func NewEmbeddingProvider(cfg *EmbeddingProviderConfig) (EmbeddingProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: provider %s", ErrMissingAPIKey, cfg.Provider)
	}

	switch cfg.Provider {
	case "openai", "":
		return newHTTPProvider(cfg, firstNonEmpty(cfg.BaseURL, openAIBaseURL), ""), nil
	case "openai-compatible":
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("provider %s requires a base url", cfg.Provider)
		}
		return newHTTPProvider(cfg, cfg.BaseURL, ""), nil
	case "jina":
		return newHTTPProvider(cfg, firstNonEmpty(cfg.BaseURL, jinaBaseURL), firstNonEmpty(cfg.Task, defaultJinaTask)), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// httpProvider speaks the OpenAI embeddings wire format, which Jina also accepts.
type httpProvider struct {
	client     *resty.Client
	endpoint   string
	model      string
	dimensions int
	task       string
	limiter    *rate.Limiter
}

func newHTTPProvider(cfg *EmbeddingProviderConfig, baseURL, task string) *httpProvider {
	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}
	if cfg.RetryCount > 0 {
		client.SetRetryCount(cfg.RetryCount).
			SetRetryWaitTime(200 * time.Millisecond).
			SetRetryMaxWaitTime(5 * time.Second).
			AddRetryCondition(func(r *resty.Response, err error) bool {
				if err != nil {
					return true
				}
				return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= http.StatusInternalServerError
			})
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}

	return &httpProvider{
		client:     client,
		endpoint:   strings.TrimSuffix(baseURL, "/") + "/embeddings",
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		task:       task,
		limiter:    limiter,
	}
}

// GetModel returns the model name being used
func (p *httpProvider) GetModel() string {
	return p.model
}

// GetDimensions returns the requested vector size
func (p *httpProvider) GetDimensions() int {
	return p.dimensions
}

type embeddingRequest struct {
	Model          string   `json:"model"`
	Input          []string `json:"input"`
	Dimensions     int      `json:"dimensions,omitempty"`
	Task           string   `json:"task,omitempty"`
	EncodingFormat string   `json:"encoding_format,omitempty"`
	EmbeddingType  string   `json:"embedding_type,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// errorResponse covers both the OpenAI ({"error":{"message"}}) and Jina ({"detail"}) shapes.
type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
	Detail string `json:"detail"`
}

func (e *errorResponse) message() string {
	return firstNonEmpty(e.Error.Message, e.Detail)
}

// EmbedBatch generates embeddings for texts in a single request.
func (p *httpProvider) EmbedBatch(ctx context.Context, texts []string) (*ProviderResult, error) {
	if len(texts) == 0 {
		return &ProviderResult{Vectors: [][]float32{}}, nil
	}
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req := embeddingRequest{
		Model:      p.model,
		Input:      texts,
		Dimensions: p.dimensions,
		Task:       p.task,
	}
	if p.task != "" {
		req.EmbeddingType = "float"
	} else {
		req.EncodingFormat = "float"
	}

	var resp embeddingResponse
	var apiErr errorResponse
	start := time.Now()
	httpResp, err := p.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		SetError(&apiErr).
		Post(p.endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to call embedding API: %w", err)
	}

	if httpResp.StatusCode() != http.StatusOK {
		if msg := apiErr.message(); msg != "" {
			return nil, fmt.Errorf("%w: status %d: %s", ErrProviderResponse, httpResp.StatusCode(), msg)
		}
		return nil, fmt.Errorf("%w: status %d", ErrProviderResponse, httpResp.StatusCode())
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings, expected %d", ErrProviderResponse, len(resp.Data), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(vectors) {
			return nil, fmt.Errorf("%w: embedding index %d out of range", ErrProviderResponse, item.Index)
		}
		vectors[item.Index] = item.Embedding
	}
	for i, v := range vectors {
		if len(v) == 0 {
			return nil, fmt.Errorf("%w: missing embedding for input %d", ErrProviderResponse, i)
		}
	}

	logger.With(logger.Fields{
		logger.FieldModel:  p.model,
		logger.FieldCount:  len(texts),
		logger.FieldTokens: resp.Usage.TotalTokens,
	}).WithDuration(time.Since(start).Milliseconds()).Debug(ctx, "Embedding provider call finished")

	return &ProviderResult{Vectors: vectors, TotalTokens: resp.Usage.TotalTokens}, nil
}
