package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/solicitation-tracker/internal/core/document"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func names(files []document.File) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Filename
	}
	return out
}

func TestDirectory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "b_sow.docx"), "sow")
	writeFile(t, filepath.Join(root, "a_section_l.pdf"), "l")
	writeFile(t, filepath.Join(root, "notes.exe"), "x")
	writeFile(t, filepath.Join(root, ".hidden.txt"), "h")
	writeFile(t, filepath.Join(root, "attachments", "cdrl.xlsx"), "cdrl")
	writeFile(t, filepath.Join(root, ".git", "config.txt"), "g")

	files, stats, err := Directory(context.Background(), root, Options{SkipHidden: true}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a_section_l.pdf", "cdrl.xlsx", "b_sow.docx"}, names(files))
	assert.Equal(t, 4, stats.Scanned)
	assert.Equal(t, 3, stats.Matched)

	files, _, err = Directory(context.Background(), root, Options{SkipHidden: true, NonRecursive: true}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a_section_l.pdf", "b_sow.docx"}, names(files))

	files, _, err = Directory(context.Background(), root, Options{}, nil)
	require.NoError(t, err)
	assert.Len(t, files, 5)
}

func TestDirectoryDedupe(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "rfp.txt"), "same body")
	writeFile(t, filepath.Join(root, "rfp_copy.txt"), "same body")
	writeFile(t, filepath.Join(root, "sow.txt"), "other body")

	files, stats, err := Directory(context.Background(), root, Options{Dedupe: true}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"rfp.txt", "sow.txt"}, names(files))
	assert.Equal(t, 1, stats.Deduplicated)
}

func TestDirectoryErrors(t *testing.T) {
	_, _, err := Directory(context.Background(), " ", Options{}, nil)
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = Directory(ctx, t.TempDir(), Options{}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPaths(t *testing.T) {
	root := t.TempDir()
	single := filepath.Join(root, "single.pdf")
	writeFile(t, single, "pdf")
	writeFile(t, filepath.Join(root, "dir", "m.txt"), "m")

	files, err := Paths(context.Background(), []string{single, filepath.Join(root, "dir")}, Options{}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"single.pdf", "m.txt"}, names(files))

	_, err = Paths(context.Background(), []string{filepath.Join(root, "missing.pdf")}, Options{}, nil)
	assert.Error(t, err)
}

func TestWatch(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "existing.pdf"), "x")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, _, err := Watch(ctx, WatchConfig{Roots: []string{root}, InitialScan: true})
	require.NoError(t, err)

	next := func() document.File {
		select {
		case f := <-events:
			return f
		case <-time.After(5 * time.Second):
			t.Fatal("no watch event")
			return document.File{}
		}
	}
	assert.Equal(t, "existing.pdf", next().Filename)

	writeFile(t, filepath.Join(root, "ignored.bin"), "x")
	writeFile(t, filepath.Join(root, "new_sow.docx"), "x")
	assert.Equal(t, "new_sow.docx", next().Filename)

	cancel()
	for range events {
	}
}

func TestWatchNoRoots(t *testing.T) {
	_, _, err := Watch(context.Background(), WatchConfig{})
	assert.Error(t, err)
}
