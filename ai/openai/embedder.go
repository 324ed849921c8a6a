package openai

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/poiesic/smartsearch/ai"
	"github.com/poiesic/smartsearch/core"
)

// Embedder implements ai.Embedder using OpenAI-compatible embedding APIs.
type Embedder struct {
	embedder  embeddings.Embedder
	batchSize int
	logger    *slog.Logger
}

var _ ai.Embedder = (*Embedder)(nil)

// newEmbedder is an internal constructor that returns the concrete type.
func newEmbedder(config *ai.Config) (*Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Use "none" as token for local OpenAI-compatible services that don't
	// require authentication.
	client, err := openai.New(
		openai.WithBaseURL(config.Host),
		openai.WithToken("none"),
		openai.WithEmbeddingModel(config.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrModelUnavailable, err)
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrModelUnavailable, err)
	}

	return &Embedder{
		embedder:  embedder,
		batchSize: config.BatchSize,
		logger:    slog.Default().With("component", "openai-embedder"),
	}, nil
}

// NewEmbedder creates a new embedder using the provided configuration.
//
// Returns ai.Embedder interface to enforce abstraction.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	return newEmbedder(config)
}

// EmbedText generates a vector embedding for a single text string.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	e.logger.Debug("generating embedding for single text", "length", len(text))

	vecs, err := e.embedder.EmbedDocuments(ctx, []string{text})
	if err != nil {
		e.logger.Error("failed to generate embedding", "err", err)
		return nil, fmt.Errorf("%w: %w", core.ErrModelUnavailable, err)
	}
	if len(vecs) == 0 || len(vecs[0]) == 0 {
		return nil, fmt.Errorf("%w: service returned no vector", core.ErrModelUnavailable)
	}

	return vecs[0], nil
}

// EmbedTexts generates vector embeddings for multiple text strings,
// splitting the request into batches of the configured size.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	e.logger.Debug("generating embeddings for texts", "count", len(texts))

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := min(start+e.batchSize, len(texts))

		vecs, err := e.embedder.EmbedDocuments(ctx, texts[start:end])
		if err != nil {
			e.logger.Error("failed to generate embeddings", "batch", start/e.batchSize, "err", err)
			return nil, fmt.Errorf("%w: %w", core.ErrModelUnavailable, err)
		}
		if len(vecs) != end-start {
			return nil, fmt.Errorf("%w: embedding result mismatch, expected %d received %d",
				core.ErrModelUnavailable, end-start, len(vecs))
		}
		out = append(out, vecs...)
	}

	return out, nil
}
