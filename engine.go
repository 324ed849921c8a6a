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


package smartsearch

import (
	"log/slog"

	"github.com/poiesic/smartsearch/ai"
	"github.com/poiesic/smartsearch/ai/openai"
	"github.com/poiesic/smartsearch/config"
	"github.com/poiesic/smartsearch/ingestion"
	"github.com/poiesic/smartsearch/session"
	"github.com/poiesic/smartsearch/storage"
	"github.com/poiesic/smartsearch/storage/badger"
	"github.com/poiesic/smartsearch/storage/indexfile"
)

// Engine wires configuration into the concrete stack: the index
// repository, the embedding model, and the optional embedding cache.
// Command entry points build pipelines and sessions from one Engine.
type Engine struct {
	cfg      *config.Config
	repo     storage.IndexRepository
	cache    storage.EmbeddingCache
	embedder ai.Embedder
	aiConfig *ai.Config
	logger   *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	aiConfig *ai.Config
}

// WithAIConfig overrides the embedding service configuration.
func WithAIConfig(c *ai.Config) EngineOption {
	return func(o *engineOptions) {
		if c != nil {
			o.aiConfig = c
		}
	}
}

// NewEngine builds the stack from configuration. A cache that fails to
// open is logged and skipped: caching is an optimization, never a
// prerequisite for searching.
func NewEngine(cfg *config.Config, opts ...EngineOption) (*Engine, error) {
	options := &engineOptions{}
	for _, opt := range opts {
		opt(options)
	}

	aiConfig := options.aiConfig
	if aiConfig == nil {
		var configOpts []ai.ConfigOption
		if cfg.EmbeddingHost != "" {
			configOpts = append(configOpts, ai.WithHost(cfg.EmbeddingHost))
		}
		if cfg.EmbeddingModel != "" {
			configOpts = append(configOpts, ai.WithModel(cfg.EmbeddingModel))
		}
		aiConfig = ai.NewConfig(configOpts...)
	}

	repo, err := indexfile.NewRepository(cfg.IndicesDir)
	if err != nil {
		return nil, err
	}

	embedder, err := openai.NewEmbedder(aiConfig)
	if err != nil {
		return nil, err
	}

	logger := slog.Default()

	var cache storage.EmbeddingCache
	if cfg.CacheDir != "" {
		cache, err = badger.OpenCache(cfg.CacheDir, false)
		if err != nil {
			logger.Warn("embedding cache unavailable, continuing without it",
				"dir", cfg.CacheDir, "err", err)
			cache = nil
		}
	}

	return &Engine{
		cfg:      cfg,
		repo:     repo,
		cache:    cache,
		embedder: embedder,
		aiConfig: aiConfig,
		logger:   logger,
	}, nil
}

// Close releases the embedding cache.
func (e *Engine) Close() error {
	if e.cache != nil {
		if err := e.cache.Close(); err != nil {
			e.logger.Error("error closing embedding cache", "err", err)
			return err
		}
	}
	return nil
}

func (e *Engine) Config() *config.Config {
	return e.cfg
}

func (e *Engine) IndexRepository() storage.IndexRepository {
	return e.repo
}

func (e *Engine) Embedder() ai.Embedder {
	return e.embedder
}

// NewPipeline creates a build pipeline wired to the engine's embedder and
// cache. Callers own the pipeline and must Release it.
func (e *Engine) NewPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	if e.cache != nil {
		opts = append([]ingestion.Option{
			ingestion.WithCache(e.cache, e.aiConfig.Model),
		}, opts...)
	}
	return ingestion.NewPipeline(e.embedder, opts...)
}

// NewSession creates a session over the engine's repository and embedder.
func (e *Engine) NewSession(opts ...session.Option) (*session.Session, error) {
	return session.New(e.repo, e.embedder, opts...)
}
