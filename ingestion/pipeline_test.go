package ingestion

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/smartsearch/ai/mock"
	"github.com/poiesic/smartsearch/chunker"
	"github.com/poiesic/smartsearch/core"
	badgercache "github.com/poiesic/smartsearch/storage/badger"
)

// writeVault lays out a small vault under a temp dir and returns its root.
func writeVault(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func newTestPipeline(t *testing.T, opts ...Option) *Pipeline {
	t.Helper()
	opts = append([]Option{WithPoolSize(1)}, opts...)
	p, err := NewPipeline(mock.NewEmbedder(), opts...)
	require.NoError(t, err)
	t.Cleanup(p.Release)
	return p
}

func TestNewPipeline(t *testing.T) {
	t.Run("requires embedder", func(t *testing.T) {
		_, err := NewPipeline(nil)
		assert.ErrorIs(t, err, ErrEmbedderRequired)
	})
}

func TestBuild(t *testing.T) {
	root := writeVault(t, map[string]string{
		"notes/alpha.md":  "alpha content about testing",
		"notes/beta.txt":  "beta content about docker",
		"scripts/run.py":  "print('hello')",
		"image.png":       "\x89PNG\x00\x00",
		"README.unknown":  "not an indexable extension",
		".git/config.txt": "should never be walked",
	})

	p := newTestPipeline(t)
	ix, report, err := p.Build(context.Background(), root, "vault")
	require.NoError(t, err)
	require.NoError(t, ix.Validate())

	assert.Equal(t, "vault", ix.Meta.Name)
	assert.Equal(t, root, ix.Meta.Root)
	assert.Equal(t, 32, ix.Meta.Dimension)
	assert.Equal(t, 3, ix.Meta.FileCount)
	assert.Equal(t, 3, ix.Meta.ChunkCount)

	assert.Equal(t, 3, report.FilesWalked)
	assert.Equal(t, 3, report.FilesIndexed)
	assert.Equal(t, 0, report.FilesSkipped)
	assert.Equal(t, 3, report.Embedded)
	assert.Equal(t, 0, report.CacheHits)

	// Lexical path order, paths slash-separated.
	assert.True(t, sortedStrings(ix.Paths))
	for _, path := range ix.Paths {
		assert.NotContains(t, path, `\`)
	}
}

func TestBuildChunkOrdinals(t *testing.T) {
	// Three chunks at size 100 / overlap 10.
	long := strings.Repeat("a", 250)
	root := writeVault(t, map[string]string{"big.md": long})

	p := newTestPipeline(t, WithChunker(chunker.New(100, 10)))
	ix, report, err := p.Build(context.Background(), root, "vault")
	require.NoError(t, err)

	require.Equal(t, 3, ix.Len())
	assert.Equal(t, []uint32{0, 1, 2}, ix.Ordinals)
	assert.Equal(t, 3, report.Chunks)
	for i := range ix.Len() {
		assert.Equal(t, ix.Paths[0], ix.Paths[i])
	}
	// Spans tile the file: each one starts exactly overlap bytes before
	// the previous end.
	assert.Equal(t, uint32(0), ix.Spans[0].Start)
	assert.Equal(t, ix.Spans[0].End-10, ix.Spans[1].Start)
	assert.Equal(t, uint32(len(long)), ix.Spans[2].End)
}

func TestBuildSkipsProblemFiles(t *testing.T) {
	root := writeVault(t, map[string]string{
		"good.md":               "useful text",
		"binary.md":             "data\x00data",
		"empty.md":              "   \n\n ",
		"node_modules/x.js":     "skipped dir",
		"dist/out.js":           "skipped dir",
		".obsidian/config.json": "skipped dir",
	})
	big := filepath.Join(root, "huge.md")
	require.NoError(t, os.WriteFile(big, make([]byte, MaxFileSize+1), 0o644))

	p := newTestPipeline(t)
	ix, report, err := p.Build(context.Background(), root, "vault")
	require.NoError(t, err)

	assert.Equal(t, 1, ix.Meta.FileCount)
	assert.Equal(t, 3, report.FilesSkipped) // binary, empty, oversized
	assert.Len(t, report.Warnings, 3)
	assert.Equal(t, 4, report.FilesWalked)
}

func TestBuildEmptyVault(t *testing.T) {
	p := newTestPipeline(t)
	ix, report, err := p.Build(context.Background(), t.TempDir(), "vault")
	require.NoError(t, err)
	require.NoError(t, ix.Validate())

	assert.Equal(t, 0, ix.Len())
	assert.Equal(t, 0, report.FilesWalked)
}

func TestBuildValidation(t *testing.T) {
	p := newTestPipeline(t)

	t.Run("invalid name", func(t *testing.T) {
		_, _, err := p.Build(context.Background(), t.TempDir(), "all")
		assert.ErrorIs(t, err, core.ErrInvalidIndexName)
	})

	t.Run("missing root", func(t *testing.T) {
		_, _, err := p.Build(context.Background(), "/does/not/exist", "vault")
		assert.ErrorIs(t, err, ErrRootNotFound)
	})

	t.Run("root is a file", func(t *testing.T) {
		root := writeVault(t, map[string]string{"a.md": "text"})
		_, _, err := p.Build(context.Background(), filepath.Join(root, "a.md"), "vault")
		assert.ErrorIs(t, err, ErrRootNotFound)
	})
}

func TestBuildCancellation(t *testing.T) {
	root := writeVault(t, map[string]string{"a.md": "text"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := newTestPipeline(t)
	_, _, err := p.Build(ctx, root, "vault")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuildModelUnavailable(t *testing.T) {
	root := writeVault(t, map[string]string{"a.md": "text"})

	embedder := mock.NewEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, fmt.Errorf("%w: connection refused", core.ErrModelUnavailable)
	}
	p, err := NewPipeline(embedder, WithPoolSize(1))
	require.NoError(t, err)
	defer p.Release()

	// A down model must not yield an empty index that a caller would
	// then persist over a good one.
	ix, _, err := p.Build(context.Background(), root, "vault")
	require.ErrorIs(t, err, core.ErrModelUnavailable)
	assert.Nil(t, ix)
}

func TestBuildOtherEmbedErrorSkipsFile(t *testing.T) {
	root := writeVault(t, map[string]string{"a.md": "text"})

	embedder := mock.NewEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("text rejected")
	}
	p, err := NewPipeline(embedder, WithPoolSize(1))
	require.NoError(t, err)
	defer p.Release()

	ix, report, err := p.Build(context.Background(), root, "vault")
	require.NoError(t, err)

	assert.Equal(t, 0, ix.Len())
	assert.Equal(t, 1, report.FilesSkipped)
	require.Len(t, report.Warnings, 1)
	assert.Contains(t, report.Warnings[0], "text rejected")
}

func TestBuildWithCache(t *testing.T) {
	root := writeVault(t, map[string]string{
		"a.md": "first document",
		"b.md": "second document",
	})

	cache, err := badgercache.OpenCache("", true)
	require.NoError(t, err)
	defer cache.Close()

	embedder := mock.NewEmbedder()
	p, err := NewPipeline(embedder, WithPoolSize(1), WithCache(cache, "test-model"))
	require.NoError(t, err)
	defer p.Release()

	_, first, err := p.Build(context.Background(), root, "vault")
	require.NoError(t, err)
	assert.Equal(t, 2, first.Embedded)
	assert.Equal(t, 0, first.CacheHits)

	afterFirst := embedder.CallCount()
	ix, second, err := p.Build(context.Background(), root, "vault")
	require.NoError(t, err)

	assert.Equal(t, 0, second.Embedded)
	assert.Equal(t, 2, second.CacheHits)
	assert.Equal(t, afterFirst, embedder.CallCount())
	require.NoError(t, ix.Validate())
	assert.Equal(t, 2, ix.Len())
}

func TestScan(t *testing.T) {
	root := writeVault(t, map[string]string{"a.md": "scanned text"})

	p := newTestPipeline(t)
	ix, report, err := p.Scan(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, ScanIndexName, ix.Meta.Name)
	assert.Equal(t, 1, report.FilesIndexed)
}

func sortedStrings(s []string) bool {
	for i := 1; i < len(s); i++ {
		if s[i] < s[i-1] {
			return false
		}
	}
	return true
}
