package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("w%d", i+1)
	}
	return strings.Join(parts, " ")
}

func TestNew(t *testing.T) {
	t.Run("valid parameters", func(t *testing.T) {
		c, err := New(DefaultSize, DefaultOverlap)
		require.NoError(t, err)
		assert.Equal(t, DefaultSize, c.Size())
		assert.Equal(t, DefaultOverlap, c.Overlap())
	})

	t.Run("overlap equal to size is rejected", func(t *testing.T) {
		_, err := New(100, 100)
		assert.Error(t, err)
	})

	t.Run("overlap greater than size is rejected", func(t *testing.T) {
		_, err := New(100, 150)
		assert.Error(t, err)
	})

	t.Run("negative overlap is rejected", func(t *testing.T) {
		_, err := New(100, -1)
		assert.Error(t, err)
	})

	t.Run("non-positive size is rejected", func(t *testing.T) {
		_, err := New(0, 0)
		assert.Error(t, err)
	})
}

func TestChunk_Empty(t *testing.T) {
	c, err := New(800, 100)
	require.NoError(t, err)
	assert.Nil(t, c.Chunk(""))
	assert.Nil(t, c.Chunk("   \n\t  "))
}

func TestChunk_ShorterThanWindow(t *testing.T) {
	c, err := New(800, 100)
	require.NoError(t, err)

	text := "a small document with just a handful of words"
	chunks := c.Chunk(text)
	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0])
}

// Inputs of at most size words yield exactly one chunk equal to the
// whole text. This holds across the full range, including counts past
// the stride boundary and a window that lands exactly on the end;
// otherwise a boundary-sized document would emit a tail chunk that is
// a pure duplicate of words already in the previous one.
func TestChunk_AtMostWindowSize(t *testing.T) {
	c, err := New(800, 100)
	require.NoError(t, err)

	for _, n := range []int{1, 700, 701, 750, 799, 800} {
		text := words(n)
		chunks := c.Chunk(text)
		require.Len(t, chunks, 1, "n=%d", n)
		assert.Equal(t, text, chunks[0], "n=%d", n)
	}
}

func TestChunk_ThousandWords(t *testing.T) {
	c, err := New(800, 100)
	require.NoError(t, err)

	chunks := c.Chunk(words(1000))
	require.Len(t, chunks, 2)

	first := strings.Fields(chunks[0])
	second := strings.Fields(chunks[1])
	require.Len(t, first, 800)
	require.Len(t, second, 300)
	assert.Equal(t, "w1", first[0])
	assert.Equal(t, "w800", first[799])
	assert.Equal(t, "w701", second[0])
	assert.Equal(t, "w1000", second[299])
}

// A later window landing exactly on the last word ends the sequence;
// no duplicate tail window follows it.
func TestChunk_WindowLandsOnEnd(t *testing.T) {
	c, err := New(800, 100)
	require.NoError(t, err)

	chunks := c.Chunk(words(1500))
	require.Len(t, chunks, 2)

	second := strings.Fields(chunks[1])
	require.Len(t, second, 800)
	assert.Equal(t, "w701", second[0])
	assert.Equal(t, "w1500", second[799])
}

// Every word of the input must appear in some chunk, and stitching the
// first size-overlap words of each chunk (plus the last chunk's tail)
// reconstructs the original word order.
func TestChunk_CoverageAndReassembly(t *testing.T) {
	c, err := New(10, 3)
	require.NoError(t, err)

	for _, n := range []int{1, 7, 10, 11, 25, 64} {
		text := words(n)
		chunks := c.Chunk(text)
		require.NotEmpty(t, chunks, "n=%d", n)

		stride := c.Size() - c.Overlap()
		var rebuilt []string
		for i, ch := range chunks {
			ws := strings.Fields(ch)
			if i == len(chunks)-1 {
				rebuilt = append(rebuilt, ws...)
				continue
			}
			rebuilt = append(rebuilt, ws[:stride]...)
		}
		assert.Equal(t, strings.Fields(text), rebuilt, "n=%d", n)
	}
}

func TestChunk_CollapsesWhitespace(t *testing.T) {
	c, err := New(5, 1)
	require.NoError(t, err)

	chunks := c.Chunk("one\t two\n\nthree   four")
	require.Len(t, chunks, 1)
	assert.Equal(t, "one two three four", chunks[0])
}
