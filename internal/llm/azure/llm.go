// Package azure provides a chat-completion adapter for an Azure OpenAI
// chat deployment.
package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"docubot/internal/domain"
)

// Ensure CompletionService implements the port.
var _ domain.Completer = (*CompletionService)(nil)

// Default configuration values.
const (
	DefaultAPIVersion = "2024-02-01"
	DefaultTimeout    = 120 * time.Second
)

// Config holds configuration for the completion service.
type Config struct {
	// Endpoint is the Azure OpenAI resource endpoint (required).
	Endpoint string

	// APIKey is the resource key (required).
	APIKey string

	// Deployment is the chat deployment name (required).
	Deployment string

	// APIVersion is the service API version (default: 2024-02-01).
	APIVersion string

	// Timeout is the per-request timeout (default: 120s).
	Timeout time.Duration
}

// CompletionService produces chat completions via an Azure OpenAI deployment.
type CompletionService struct {
	client     *http.Client
	endpoint   string
	apiKey     string
	deployment string
	apiVersion string
}

// chatCompletionRequest is the chat/completions request format.
type chatCompletionRequest struct {
	Messages    []chatCompletionMsg `json:"messages"`
	Temperature float64             `json:"temperature"`
}

// chatCompletionMsg is the chat message format.
type chatCompletionMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatCompletionResponse is the chat/completions response format.
type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

// NewCompletionService creates a new chat-completion service.
func NewCompletionService(cfg Config) (*CompletionService, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("azure llm: endpoint is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("azure llm: API key is required")
	}
	if cfg.Deployment == "" {
		return nil, fmt.Errorf("azure llm: deployment is required")
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &CompletionService{
		client:     &http.Client{Timeout: cfg.Timeout},
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		deployment: cfg.Deployment,
		apiVersion: cfg.APIVersion,
	}, nil
}

// Complete sends the prompt as a single user message and returns the
// completion text verbatim. Failures are not retried; the caller
// surfaces them to the user.
func (s *CompletionService) Complete(ctx context.Context, prompt string, temperature float64) (string, error) {
	url := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		s.endpoint, s.deployment, s.apiVersion)

	reqBody := chatCompletionRequest{
		Messages:    []chatCompletionMsg{{Role: "user", Content: prompt}},
		Temperature: temperature,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var chatResp chatCompletionResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if chatResp.Error != nil {
		return "", fmt.Errorf("azure llm: %s", chatResp.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("azure llm (status %d): %s", resp.StatusCode, string(body))
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("azure llm: no response choices returned")
	}
	return chatResp.Choices[0].Message.Content, nil
}

// ModelName returns the chat deployment name.
func (s *CompletionService) ModelName() string {
	return s.deployment
}
