// Package azure is a minimal REST client for an Azure AI Search index.
// It owns the index schema (id, content, source, embedding_valid and an
// HNSW cosine vector field) and exposes the bulk operations the core
// needs: upload, delete-by-id, id pagination and hybrid search.
package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"docubot/internal/domain"
)

// Ensure Index implements the port.
var _ domain.SearchIndex = (*Index)(nil)

// DefaultAPIVersion is the search service API version used when none is
// configured.
const DefaultAPIVersion = "2023-11-01"

// Config contains connection details for the search service.
type Config struct {
	Endpoint   string
	APIKey     string
	Index      string
	APIVersion string
	// Dimensions is the vector length declared in the index schema.
	Dimensions int
	Timeout    time.Duration
}

// Index is the Azure AI Search client.
type Index struct {
	endpoint   string
	apiKey     string
	index      string
	apiVersion string
	dimensions int
	client     *http.Client
}

// NewIndex creates a search index client.
func NewIndex(cfg Config) (*Index, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("azure search: endpoint is required")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("azure search: API key is required")
	}
	if cfg.Index == "" {
		return nil, errors.New("azure search: index name is required")
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if cfg.Dimensions <= 0 {
		return nil, errors.New("azure search: invalid dimensions")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Index{
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		index:      cfg.Index,
		apiVersion: cfg.APIVersion,
		dimensions: cfg.Dimensions,
		client:     &http.Client{Timeout: timeout},
	}, nil
}

// EnsureIndex creates or updates the index schema.
func (s *Index) EnsureIndex(ctx context.Context) error {
	schema := map[string]any{
		"name": s.index,
		"fields": []map[string]any{
			{"name": "id", "type": "Edm.String", "key": true, "filterable": true},
			{"name": "content", "type": "Edm.String", "searchable": true},
			{"name": "source", "type": "Edm.String", "searchable": true},
			{"name": "embedding_valid", "type": "Edm.Boolean", "filterable": true},
			{
				"name":                "content_vector",
				"type":                "Collection(Edm.Single)",
				"searchable":          true,
				"dimensions":          s.dimensions,
				"vectorSearchProfile": "hnsw-profile",
				"retrievable":         false,
			},
		},
		"vectorSearch": map[string]any{
			"algorithms": []map[string]any{
				{
					"name":           "hnsw",
					"kind":           "hnsw",
					"hnswParameters": map[string]any{"metric": "cosine"},
				},
			},
			"profiles": []map[string]any{
				{"name": "hnsw-profile", "algorithm": "hnsw"},
			},
		},
	}
	url := fmt.Sprintf("%s/indexes/%s?api-version=%s", s.endpoint, s.index, s.apiVersion)
	return s.putJSON(ctx, url, schema)
}

// indexDocument is the wire format for upload and delete actions.
type indexDocument struct {
	Action         string    `json:"@search.action"`
	ID             string    `json:"id"`
	Content        string    `json:"content,omitempty"`
	Source         string    `json:"source,omitempty"`
	EmbeddingValid *bool     `json:"embedding_valid,omitempty"`
	ContentVector  []float32 `json:"content_vector,omitempty"`
}

// indexBatchResponse reports per-document status for a batch.
type indexBatchResponse struct {
	Value []struct {
		Key          string `json:"key"`
		Status       bool   `json:"status"`
		ErrorMessage string `json:"errorMessage"`
	} `json:"value"`
}

// Upload bulk-uploads records in a single batch.
func (s *Index) Upload(ctx context.Context, records []domain.Record) error {
	docs := make([]indexDocument, len(records))
	for i, r := range records {
		valid := r.EmbeddingValid
		docs[i] = indexDocument{
			Action:         "upload",
			ID:             r.ID,
			Content:        r.Content,
			Source:         r.Source,
			EmbeddingValid: &valid,
			ContentVector:  r.Vector,
		}
	}
	return s.postBatch(ctx, docs)
}

// Delete bulk-deletes records by id.
func (s *Index) Delete(ctx context.Context, ids []string) error {
	docs := make([]indexDocument, len(ids))
	for i, id := range ids {
		docs[i] = indexDocument{Action: "delete", ID: id}
	}
	return s.postBatch(ctx, docs)
}

func (s *Index) postBatch(ctx context.Context, docs []indexDocument) error {
	url := fmt.Sprintf("%s/indexes/%s/docs/index?api-version=%s", s.endpoint, s.index, s.apiVersion)
	var resp indexBatchResponse
	if err := s.postJSON(ctx, url, map[string]any{"value": docs}, &resp); err != nil {
		return err
	}
	for _, v := range resp.Value {
		if !v.Status {
			return fmt.Errorf("azure search: document %s failed: %s", v.Key, v.ErrorMessage)
		}
	}
	return nil
}

// ListIDs returns up to pageSize record ids with a match-all query,
// projecting only the id field. An empty result means the index is empty.
func (s *Index) ListIDs(ctx context.Context, pageSize int) ([]string, error) {
	if pageSize <= 0 {
		pageSize = 1000
	}
	body := map[string]any{
		"search": "*",
		"select": "id",
		"top":    pageSize,
	}
	url := fmt.Sprintf("%s/indexes/%s/docs/search?api-version=%s", s.endpoint, s.index, s.apiVersion)
	var resp struct {
		Value []struct {
			ID string `json:"id"`
		} `json:"value"`
	}
	if err := s.postJSON(ctx, url, body, &resp); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(resp.Value))
	for _, v := range resp.Value {
		ids = append(ids, v.ID)
	}
	return ids, nil
}

// Search issues a hybrid query: lexical match on the question text plus
// a vector nearest-neighbour search over content_vector. Results keep
// the service's combined relevance order.
func (s *Index) Search(ctx context.Context, query string, vector []float32, k int) ([]domain.ScoredRecord, error) {
	if k <= 0 {
		k = 3
	}
	body := map[string]any{
		"search": query,
		"select": "content,source",
		"top":    k,
		"vectorQueries": []map[string]any{
			{
				"kind":   "vector",
				"vector": vector,
				"fields": "content_vector",
				"k":      k,
			},
		},
	}
	url := fmt.Sprintf("%s/indexes/%s/docs/search?api-version=%s", s.endpoint, s.index, s.apiVersion)
	var resp struct {
		Value []struct {
			Content string  `json:"content"`
			Source  string  `json:"source"`
			Score   float64 `json:"@search.score"`
		} `json:"value"`
	}
	if err := s.postJSON(ctx, url, body, &resp); err != nil {
		return nil, err
	}
	results := make([]domain.ScoredRecord, 0, len(resp.Value))
	for _, v := range resp.Value {
		results = append(results, domain.ScoredRecord{Content: v.Content, Source: v.Source, Score: v.Score})
	}
	return results, nil
}

func (s *Index) putJSON(ctx context.Context, url string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", s.apiKey)
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("azure search PUT %s failed: %s: %s", url, resp.Status, readBody(resp.Body))
	}
	return nil
}

func (s *Index) postJSON(ctx context.Context, url string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", s.apiKey)
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("azure search POST %s failed: %s: %s", url, resp.Status, readBody(resp.Body))
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func readBody(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 2048))
	return string(b)
}
