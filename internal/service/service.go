// Package service implements the docubot core: turning staged documents
// into indexed records and answering questions grounded on retrieved
// context. All external operations go through the domain ports.
package service

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"docubot/internal/chunker"
	"docubot/internal/domain"
	"docubot/internal/logger"
)

// maxEmbedChars bounds the text sent to the embedding service per chunk.
const maxEmbedChars = 8000

// answerTemperature favours faithfulness to the retrieved context over
// creativity.
const answerTemperature = 0.3

// Service orchestrates ingestion and question answering.
type Service struct {
	extractor domain.Extractor
	embedder  domain.Embedder
	index     domain.SearchIndex
	completer domain.Completer
	chunker   *chunker.WordChunker
	topK      int
	pageSize  int

	// mu serialises reindex and clear within this process. Two racing
	// ingestions would interleave the clear and upload phases and leave
	// the index in an undefined state.
	mu sync.Mutex
}

// Options holds the tunable parameters of the service.
type Options struct {
	// TopK is the number of records retrieved per question (default 3).
	TopK int
	// PageSize is the id page size used when clearing (default 1000).
	PageSize int
}

// New creates the service with injected collaborators.
func New(
	extractor domain.Extractor,
	embedder domain.Embedder,
	index domain.SearchIndex,
	completer domain.Completer,
	ch *chunker.WordChunker,
	opts Options,
) *Service {
	if opts.TopK <= 0 {
		opts.TopK = 3
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 1000
	}
	return &Service{
		extractor: extractor,
		embedder:  embedder,
		index:     index,
		completer: completer,
		chunker:   ch,
		topK:      opts.TopK,
		pageSize:  opts.PageSize,
	}
}

// DiscoverPDFs lists the PDF files staged under dir as documents, named
// by their base file name.
func DiscoverPDFs(dir string) ([]domain.Document, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.pdf"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	docs := make([]domain.Document, 0, len(matches))
	for _, m := range matches {
		docs = append(docs, domain.Document{Source: filepath.Base(m), Path: m})
	}
	return docs, nil
}

// Reindex fully replaces the index contents: clear everything, then
// extract, chunk, embed and bulk-upload the given documents. Returns
// the number of records uploaded. There is no rollback across phases;
// a failed bulk call leaves whatever the previous calls achieved.
func (s *Service) Reindex(ctx context.Context, docs []domain.Document) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run := uuid.NewString()
	logger.Info("reindex %s: %d document(s)", run, len(docs))

	if err := s.index.EnsureIndex(ctx); err != nil {
		return 0, fmt.Errorf("ensure index: %w", err)
	}
	if _, err := s.clear(ctx); err != nil {
		return 0, fmt.Errorf("clear index: %w", err)
	}

	var records []domain.Record
	for _, doc := range docs {
		text, err := s.extractor.Extract(ctx, doc.Path)
		if err != nil {
			logger.Warn("reindex %s: skipping %s: %v", run, doc.Source, err)
			continue
		}
		if strings.TrimSpace(text) == "" {
			logger.Warn("reindex %s: %s yielded no text, skipping", run, doc.Source)
			continue
		}
		assembled := s.assemble(ctx, doc.Source, text)
		logger.Debug("reindex %s: %s -> %d chunk(s)", run, doc.Source, len(assembled))
		records = append(records, assembled...)
	}

	if len(records) == 0 {
		logger.Info("reindex %s: nothing to upload", run)
		return 0, nil
	}
	if err := s.index.Upload(ctx, records); err != nil {
		return 0, fmt.Errorf("upload records: %w", err)
	}
	logger.Info("reindex %s: uploaded %d record(s)", run, len(records))
	return len(records), nil
}

// Clear wipes the index without re-ingesting.
func (s *Service) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pages, err := s.clear(ctx)
	if err != nil {
		return err
	}
	logger.Info("cleared index in %d page(s)", pages)
	return nil
}

// clear drives paginated deletion to exhaustion: fetch up to pageSize
// ids and bulk-delete them until a fetch comes back empty. The
// termination condition is the empty page, not an iteration count, so
// it is correct for any index size. Returns the number of pages
// processed (zero for an already-empty index).
func (s *Service) clear(ctx context.Context) (int, error) {
	pages := 0
	for {
		ids, err := s.index.ListIDs(ctx, s.pageSize)
		if err != nil {
			return pages, err
		}
		if len(ids) == 0 {
			return pages, nil
		}
		if err := s.index.Delete(ctx, ids); err != nil {
			return pages, err
		}
		pages++
	}
}

// assemble turns one document's extracted text into records: normalise
// whitespace, chunk, and embed each chunk. Embedding failures degrade
// to a zero vector flagged EmbeddingValid=false rather than aborting
// the document.
func (s *Service) assemble(ctx context.Context, source, text string) []domain.Record {
	normalised := strings.Join(strings.Fields(text), " ")
	if normalised == "" {
		logger.Warn("assemble: %s has no content after normalisation", source)
		return nil
	}

	prefix := sanitizeID(source)
	chunks := s.chunker.Chunk(normalised)
	records := make([]domain.Record, 0, len(chunks))
	for i, chunk := range chunks {
		content := truncate(chunk, maxEmbedChars)
		record := domain.Record{
			ID:             fmt.Sprintf("%s_%d", prefix, i),
			Content:        chunk,
			Source:         source,
			EmbeddingValid: true,
		}
		vector, err := s.embedder.Embed(ctx, content)
		if err != nil {
			logger.Warn("assemble: embedding %s_%d failed, storing zero vector: %v", prefix, i, err)
			vector = make([]float32, s.embedder.Dimensions())
			record.EmbeddingValid = false
		}
		record.Vector = vector
		records = append(records, record)
	}
	return records
}

// Retrieve embeds the question and runs a hybrid top-k query. Results
// keep the index's relevance order.
func (s *Service) Retrieve(ctx context.Context, question string, k int) ([]domain.ScoredRecord, error) {
	vector, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	results, err := s.index.Search(ctx, question, vector, k)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	return results, nil
}

// Answer retrieves context for the question, builds the grounding
// prompt and returns the completion verbatim along with the records it
// was grounded on. An empty retrieval still produces a completion call;
// the model is told to use only the (empty) context.
func (s *Service) Answer(ctx context.Context, question string) (string, []domain.ScoredRecord, error) {
	results, err := s.Retrieve(ctx, question, s.topK)
	if err != nil {
		return "", nil, err
	}
	prompt := buildPrompt(question, results)
	answer, err := s.completer.Complete(ctx, prompt, answerTemperature)
	if err != nil {
		return "", nil, fmt.Errorf("completion: %w", err)
	}
	return answer, results, nil
}

// buildPrompt formats retrieved records into source-labelled blocks
// followed by the grounding instruction, the question and the answer cue.
func buildPrompt(question string, results []domain.ScoredRecord) string {
	blocks := make([]string, 0, len(results))
	for _, r := range results {
		blocks = append(blocks, fmt.Sprintf("Source: %s\n%s", r.Source, r.Content))
	}
	context := strings.Join(blocks, "\n\n")
	return fmt.Sprintf("Use only the following context to answer:\n\n%s\n\nQuestion: %s\nAnswer:", context, question)
}

// sanitizeID maps a source file name onto the index's key syntax:
// every rune outside [A-Za-z0-9_-=] becomes an underscore.
func sanitizeID(source string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '_', r == '-', r == '=':
			return r
		default:
			return '_'
		}
	}, source)
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
