// Package memory is an in-process search index used for tests and
// offline runs. It mirrors the hosted index's bulk surface and ranks
// with brute-force cosine similarity over the stored vectors.
package memory

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"

	"docubot/internal/domain"
)

// Ensure Index implements the port.
var _ domain.SearchIndex = (*Index)(nil)

// Index stores records in memory.
type Index struct {
	mu         sync.RWMutex
	dimensions int
	records    map[string]domain.Record
}

// NewIndex creates an in-memory index expecting vectors of the given length.
func NewIndex(dimensions int) (*Index, error) {
	if dimensions <= 0 {
		return nil, errors.New("memory index: invalid dimensions")
	}
	return &Index{dimensions: dimensions, records: make(map[string]domain.Record)}, nil
}

// EnsureIndex is a no-op for the in-memory index.
func (s *Index) EnsureIndex(ctx context.Context) error { return nil }

// Upload stores records, replacing any existing record with the same id.
func (s *Index) Upload(ctx context.Context, records []domain.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		if len(r.Vector) != s.dimensions {
			return errors.New("memory index: vector dimension mismatch")
		}
		s.records[r.ID] = r
	}
	return nil
}

// Delete removes records by id. Unknown ids are ignored.
func (s *Index) Delete(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.records, id)
	}
	return nil
}

// ListIDs returns up to pageSize record ids in stable order.
func (s *Index) ListIDs(ctx context.Context, pageSize int) ([]string, error) {
	if pageSize <= 0 {
		pageSize = 1000
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	if len(ids) > pageSize {
		ids = ids[:pageSize]
	}
	return ids, nil
}

// Search ranks records by cosine similarity to the query vector. The
// lexical query text is ignored; hybrid ranking is a hosted-index
// capability this double does not reproduce.
func (s *Index) Search(ctx context.Context, query string, vector []float32, k int) ([]domain.ScoredRecord, error) {
	if k <= 0 {
		k = 3
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]domain.ScoredRecord, 0, len(s.records))
	for _, r := range s.records {
		results = append(results, domain.ScoredRecord{
			Content: r.Content,
			Source:  r.Source,
			Score:   cosine(r.Vector, vector),
		})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Count reports the number of stored records. Test helper.
func (s *Index) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
