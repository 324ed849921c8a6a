// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/smartsearch/ai"
	"github.com/poiesic/smartsearch/chunker"
	"github.com/poiesic/smartsearch/core"
	"github.com/poiesic/smartsearch/storage"
	badgercache "github.com/poiesic/smartsearch/storage/badger"
)

// ScanIndexName is the metadata name given to indices produced by Scan.
// It never collides with a persisted index because it is not a valid
// name for Build.
const ScanIndexName = "live"

// Report summarizes one Build or Scan run.
type Report struct {
	FilesWalked  int           // indexable files seen by the walker
	FilesIndexed int           // files whose chunks made it into the index
	FilesSkipped int           // files dropped with a warning
	Chunks       int           // total chunks in the resulting index
	CacheHits    int           // chunk vectors served from the embedding cache
	Embedded     int           // chunk vectors computed by the model
	Elapsed      time.Duration // wall-clock duration of the run
	Warnings     []string      // one entry per skipped file
}

func (r *Report) skip(warning string) {
	r.FilesSkipped++
	r.Warnings = append(r.Warnings, warning)
}

// Pipeline builds in-memory indices from a directory tree: it walks the
// root, chunks each text file, embeds the chunks, and assembles the
// vectors into a core.Index. Files are embedded concurrently on a worker
// pool; the resulting index is deterministic regardless of completion
// order.
type Pipeline struct {
	embedder ai.Embedder
	cache    storage.EmbeddingCache // nil disables caching
	model    string                 // cache key namespace
	chunker  *chunker.Chunker
	pool     *ants.Pool
	logger   *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent embedding.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		if p.pool != nil {
			p.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithCache sets an embedding cache consulted before calling the model.
// Keys are derived from the model name and chunk text, so switching
// models never serves stale vectors.
func WithCache(cache storage.EmbeddingCache, model string) Option {
	return func(p *Pipeline) error {
		p.cache = cache
		p.model = model
		return nil
	}
}

// WithChunker sets a custom chunker.
// Default is chunker.Default().
func WithChunker(c *chunker.Chunker) Option {
	return func(p *Pipeline) error {
		if c != nil {
			p.chunker = c
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new index build pipeline.
func NewPipeline(embedder ai.Embedder, opts ...Option) (*Pipeline, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		embedder: embedder,
		chunker:  chunker.Default(),
		pool:     pool,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}
	return p, nil
}

// Release releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}

// Build walks root, embeds its content, and returns a named index ready
// to persist. The returned report describes what was indexed and what was
// skipped; it is non-nil even on error once the walk has started.
func (p *Pipeline) Build(ctx context.Context, root, name string) (*core.Index, *Report, error) {
	if err := core.ValidateIndexName(name); err != nil {
		return nil, nil, err
	}
	return p.run(ctx, root, name)
}

// Scan builds an ephemeral index over root without any name validation or
// persistence expectations. It backs searches over directories that have
// no saved index.
func (p *Pipeline) Scan(ctx context.Context, root string) (*core.Index, *Report, error) {
	return p.run(ctx, root, ScanIndexName)
}

// fileChunks is one file's walk output plus its embedding result.
type fileChunks struct {
	file      sourceFile
	spans     []core.Span
	vectors   [][]float32
	cacheHits int
	err       error
}

func (p *Pipeline) run(ctx context.Context, root, name string) (*core.Index, *Report, error) {
	started := time.Now()

	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, nil, fmt.Errorf("%w: %s", ErrRootNotFound, root)
	}

	report := &Report{}
	files, err := p.collectFiles(root, report)
	if err != nil {
		return nil, report, err
	}
	p.logger.Debug("walk complete", "root", root, "files", len(files), "skipped", report.FilesSkipped)

	results := make([]*fileChunks, len(files))
	var wg sync.WaitGroup
	for i, f := range files {
		if ctx.Err() != nil {
			break
		}
		fc := &fileChunks{file: f}
		results[i] = fc

		wg.Add(1)
		if err := p.pool.Submit(func() {
			defer wg.Done()
			p.embedFile(ctx, fc)
		}); err != nil {
			wg.Done()
			fc.err = err
		}
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, report, err
	}

	// An unreachable model fails the whole build: writing out whatever
	// subset happened to embed would replace a good index with a gutted
	// one. Other per-file problems stay warnings.
	for _, fc := range results {
		if fc != nil && fc.err != nil && errors.Is(fc.err, core.ErrModelUnavailable) {
			return nil, report, fmt.Errorf("embedding %s: %w", fc.file.path, fc.err)
		}
	}

	ix := p.assemble(root, name, results, report)
	report.Elapsed = time.Since(started)
	p.logger.Info("index built",
		"name", name, "files", report.FilesIndexed, "chunks", report.Chunks,
		"cache_hits", report.CacheHits, "embedded", report.Embedded,
		"elapsed", report.Elapsed)
	return ix, report, nil
}

// embedFile chunks one file and resolves a vector per chunk, consulting
// the cache first and batching the misses into a single model call.
func (p *Pipeline) embedFile(ctx context.Context, fc *fileChunks) {
	fc.spans = p.chunker.Split(fc.file.text)
	texts := make([]string, len(fc.spans))
	for i, span := range fc.spans {
		texts[i] = fc.file.text[span.Start:span.End]
	}

	fc.vectors = make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string
	for i, text := range texts {
		if p.cache != nil {
			vec, err := p.cache.Get(ctx, badgercache.CacheKey(p.model, text))
			if err == nil {
				fc.vectors[i] = vec
				fc.cacheHits++
				continue
			}
			if !errors.Is(err, storage.ErrNotFound) {
				p.logger.Warn("embedding cache read failed", "path", fc.file.path, "err", err)
			}
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}

	if len(missTexts) == 0 {
		return
	}

	embedded, err := p.embedder.EmbedTexts(ctx, missTexts)
	if err != nil {
		fc.err = err
		return
	}
	for j, vec := range embedded {
		fc.vectors[missIdx[j]] = vec
		if p.cache != nil {
			if err := p.cache.Put(ctx, badgercache.CacheKey(p.model, missTexts[j]), vec); err != nil {
				p.logger.Warn("embedding cache write failed", "path", fc.file.path, "err", err)
			}
		}
	}
}

// assemble lays the per-file results out as one columnar index, in walk
// order with chunk ordinals counting from zero within each file. Files
// whose embedding failed, or whose vectors disagree on dimension, are
// skipped with a warning.
func (p *Pipeline) assemble(root, name string, results []*fileChunks, report *Report) *core.Index {
	ix := &core.Index{
		Meta: core.IndexMeta{
			Name:      name,
			Root:      root,
			CreatedAt: time.Now().UTC(),
		},
	}

	dim := 0
	for _, fc := range results {
		if fc == nil {
			continue
		}
		if fc.err != nil {
			report.skip(fmt.Sprintf("%s: %v", fc.file.path, fc.err))
			continue
		}

		if dim == 0 && len(fc.vectors) > 0 {
			dim = len(fc.vectors[0])
		}
		ok := true
		for _, vec := range fc.vectors {
			if len(vec) != dim {
				ok = false
				break
			}
		}
		if !ok {
			report.skip(fmt.Sprintf("%s: inconsistent embedding dimension", fc.file.path))
			continue
		}

		for ordinal, span := range fc.spans {
			ix.Paths = append(ix.Paths, fc.file.path)
			ix.Ordinals = append(ix.Ordinals, uint32(ordinal))
			ix.Spans = append(ix.Spans, span)
			ix.Vectors = append(ix.Vectors, fc.vectors[ordinal]...)
		}
		report.FilesIndexed++
		report.CacheHits += fc.cacheHits
		report.Embedded += len(fc.vectors) - fc.cacheHits
	}

	ix.Meta.Dimension = dim
	ix.Meta.FileCount = report.FilesIndexed
	ix.Meta.ChunkCount = len(ix.Paths)
	report.Chunks = ix.Meta.ChunkCount
	return ix
}
