package azure

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, handler http.HandlerFunc) *EmbeddingService {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	svc, err := NewEmbeddingService(Config{
		Endpoint:   srv.URL,
		APIKey:     "test-key",
		Deployment: "text-embedding-ada-002",
		Dimensions: 3,
	})
	require.NoError(t, err)
	return svc
}

func TestNewEmbeddingService_Validation(t *testing.T) {
	_, err := NewEmbeddingService(Config{APIKey: "k", Deployment: "d"})
	assert.Error(t, err)

	_, err = NewEmbeddingService(Config{Endpoint: "e", Deployment: "d"})
	assert.Error(t, err)

	_, err = NewEmbeddingService(Config{Endpoint: "e", APIKey: "k"})
	assert.Error(t, err)
}

func TestEmbed(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/openai/deployments/text-embedding-ada-002/embeddings", r.URL.Path)
		assert.Equal(t, DefaultAPIVersion, r.URL.Query().Get("api-version"))
		assert.Equal(t, "test-key", r.Header.Get("api-key"))

		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "hello world", req["input"])

		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": []float32{0.1, 0.2, 0.3}, "index": 0}},
		})
	})

	vec, err := svc.Embed(context.Background(), "hello world")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
	assert.Equal(t, 3, svc.Dimensions())
	assert.Equal(t, "text-embedding-ada-002", svc.ModelName())
}

func TestEmbed_RetriesOnThrottle(t *testing.T) {
	attempts := 0
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": []float32{1, 0, 0}, "index": 0}},
		})
	})

	vec, err := svc.Embed(context.Background(), "again")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 0}, vec)
	assert.Equal(t, 2, attempts)
}

func TestEmbed_ServiceError(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"message": "invalid api key", "code": "401"},
		})
	})

	_, err := svc.Embed(context.Background(), "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid api key")
}

func TestEmbed_NoEmbeddingReturned(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
	})

	_, err := svc.Embed(context.Background(), "empty")
	assert.Error(t, err)
}
