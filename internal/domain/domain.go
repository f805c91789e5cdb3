package domain

import "context"

// Document is a named source file staged for ingestion.
type Document struct {
	Source string
	Path   string
}

// Chunk is a contiguous word window of a document's extracted text.
// Chunks exist only transiently during ingestion.
type Chunk struct {
	Source string
	Index  int
	Text   string
}

// Record is the persisted, searchable unit held by the index.
type Record struct {
	ID      string
	Content string
	Source  string
	Vector  []float32
	// EmbeddingValid is false when embedding failed and a zero vector
	// was substituted, so degraded records stay distinguishable.
	EmbeddingValid bool
}

// ScoredRecord is a retrieved record with the index's relevance score.
type ScoredRecord struct {
	Content string
	Source  string
	Score   float64
}

// Extractor pulls plain text out of a staged document file.
// Extraction is best effort: unreadable pages contribute nothing.
type Extractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

// Embedder converts free text into a fixed-length vector using a hosted
// embedding deployment. Query and ingest embeddings must come from the
// same deployment or their vector spaces are incomparable.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
	ModelName() string
}

// SearchIndex is the hosted index holding all records. The core treats
// it as an opaque bulk store supporting delete-by-id, bulk upload,
// id pagination and hybrid similarity search.
type SearchIndex interface {
	EnsureIndex(ctx context.Context) error
	Upload(ctx context.Context, records []Record) error
	Delete(ctx context.Context, ids []string) error
	ListIDs(ctx context.Context, pageSize int) ([]string, error)
	Search(ctx context.Context, query string, vector []float32, k int) ([]ScoredRecord, error)
}

// Completer produces a chat completion for a single prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string, temperature float64) (string, error)
}
