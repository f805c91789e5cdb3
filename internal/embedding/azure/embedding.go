// Package azure provides an embedding adapter for an Azure OpenAI
// embeddings deployment.
package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"docubot/internal/domain"
)

// Ensure EmbeddingService implements the port.
var _ domain.Embedder = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultAPIVersion = "2024-02-01"
	DefaultDimensions = 1536
	DefaultTimeout    = 60 * time.Second

	maxRetries = 5
)

// Config holds configuration for the embedding service.
type Config struct {
	// Endpoint is the Azure OpenAI resource endpoint (required).
	Endpoint string

	// APIKey is the resource key (required).
	APIKey string

	// Deployment is the embeddings deployment name (required).
	// Ingestion and queries must use the same deployment.
	Deployment string

	// APIVersion is the service API version (default: 2024-02-01).
	APIVersion string

	// Dimensions is the vector length produced by the deployment
	// (default: 1536, text-embedding-ada-002).
	Dimensions int

	// Timeout is the per-request timeout (default: 60s).
	Timeout time.Duration

	// RequestsPerSec throttles embedding calls proactively.
	// Zero disables throttling.
	RequestsPerSec float64
}

// EmbeddingService generates embeddings via an Azure OpenAI deployment.
type EmbeddingService struct {
	client     *http.Client
	endpoint   string
	apiKey     string
	deployment string
	apiVersion string
	dimensions int
	limiter    *rate.Limiter
}

// embeddingRequest is the Azure OpenAI embeddings request format.
type embeddingRequest struct {
	Input string `json:"input"`
}

// embeddingResponse is the Azure OpenAI embeddings response format.
type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

// NewEmbeddingService creates a new embedding service.
func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("azure embedding: endpoint is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("azure embedding: API key is required")
	}
	if cfg.Deployment == "" {
		return nil, fmt.Errorf("azure embedding: deployment is required")
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = DefaultDimensions
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), 1)
	}

	return &EmbeddingService{
		client:     &http.Client{Timeout: cfg.Timeout},
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		deployment: cfg.Deployment,
		apiVersion: cfg.APIVersion,
		dimensions: cfg.Dimensions,
		limiter:    limiter,
	}, nil
}

// Embed generates a vector embedding for the given text. Transient
// failures (429, 5xx) are retried with exponential backoff, honouring
// Retry-After when the service provides one.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	url := fmt.Sprintf("%s/openai/deployments/%s/embeddings?api-version=%s",
		s.endpoint, s.deployment, s.apiVersion)

	jsonBody, err := json.Marshal(embeddingRequest{Input: text})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("api-key", s.apiKey)

		resp, err := s.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("send request: %w", err)
			if err := sleepBackoff(ctx, retryDelay(attempt)); err != nil {
				return nil, err
			}
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			delay := retryDelay(attempt)
			if ra := resp.Header.Get("Retry-After"); ra != "" {
				if secs, err := strconv.Atoi(ra); err == nil {
					delay = time.Duration(secs) * time.Second
				}
			}
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("azure embedding: %s", resp.Status)
			if err := sleepBackoff(ctx, delay); err != nil {
				return nil, err
			}
			continue
		}

		body, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}

		var embedResp embeddingResponse
		if err := json.Unmarshal(body, &embedResp); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		if embedResp.Error != nil {
			return nil, fmt.Errorf("azure embedding: %s", embedResp.Error.Message)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("azure embedding (status %d): %s", resp.StatusCode, string(body))
		}
		if len(embedResp.Data) == 0 || len(embedResp.Data[0].Embedding) == 0 {
			return nil, fmt.Errorf("azure embedding: no embedding returned")
		}
		return embedResp.Data[0].Embedding, nil
	}
	return nil, lastErr
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the embeddings deployment name.
func (s *EmbeddingService) ModelName() string {
	return s.deployment
}

func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	base := 200 * time.Millisecond
	// exponential backoff capped at 5s
	d := base << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}

func sleepBackoff(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
