// Package chunker splits extracted document text into overlapping
// fixed-size word windows suitable for embedding and retrieval.
package chunker

import (
	"fmt"
	"strings"
)

// Default window parameters, in words.
const (
	DefaultSize    = 800
	DefaultOverlap = 100
)

// WordChunker produces successive windows of size words, advancing the
// window start by size-overlap each step.
type WordChunker struct {
	size    int
	overlap int
}

// New creates a WordChunker. It fails fast when the parameters would
// produce a non-positive stride, which would otherwise loop forever.
func New(size, overlap int) (*WordChunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunker: size must be > 0, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunker: overlap must be >= 0 and < size, got overlap=%d size=%d", overlap, size)
	}
	return &WordChunker{size: size, overlap: overlap}, nil
}

// Size returns the window size in words.
func (c *WordChunker) Size() int { return c.size }

// Overlap returns the window overlap in words.
func (c *WordChunker) Overlap() int { return c.overlap }

// Chunk splits text on whitespace and windows the resulting words.
// Empty input yields no chunks; input shorter than the window size
// yields exactly one chunk. The final chunk may be shorter than size.
func (c *WordChunker) Chunk(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	stride := c.size - c.overlap
	var chunks []string
	for i := 0; i < len(words); i += stride {
		end := i + c.size
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[i:end], " "))
		if end == len(words) {
			break
		}
	}
	return chunks
}
