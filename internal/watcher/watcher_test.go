package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatchSignalsAfterPDFWrite(t *testing.T) {
	dir := t.TempDir()

	w, err := New(50 * time.Millisecond)
	require.NoError(t, err)
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes, err := w.Watch(ctx, dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "report.pdf"), []byte("%PDF-1.4"), 0o644))

	select {
	case _, ok := <-changes:
		require.True(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("no change signal after pdf write")
	}
}

// A burst of writes must produce exactly one signal once the directory
// settles, with no stale duplicate following it.
func TestWatchCoalescesBurst(t *testing.T) {
	dir := t.TempDir()

	w, err := New(150 * time.Millisecond)
	require.NoError(t, err)
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes, err := w.Watch(ctx, dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.pdf"), []byte("%PDF-1.4"), 0o644))
	time.Sleep(80 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.pdf"), []byte("%PDF-1.4"), 0o644))

	select {
	case _, ok := <-changes:
		require.True(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("no change signal after pdf writes")
	}

	select {
	case <-changes:
		t.Fatal("duplicate signal after the burst settled")
	case <-time.After(500 * time.Millisecond):
	}
}

func TestWatchIgnoresNonPDF(t *testing.T) {
	dir := t.TempDir()

	w, err := New(50 * time.Millisecond)
	require.NoError(t, err)
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes, err := w.Watch(ctx, dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0o644))

	select {
	case <-changes:
		t.Fatal("unexpected signal for non-pdf file")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestIsPDF(t *testing.T) {
	require.True(t, isPDF("a.pdf"))
	require.True(t, isPDF("A.PDF"))
	require.False(t, isPDF("a.txt"))
	require.False(t, isPDF("pdf"))
}
