// Package mock provides a test double for the ai.Embedder interface.
//
// The mock embedder runs without any external embedding service and produces
// deterministic, unit-length vectors derived from the input text, so tests
// get stable similarity orderings across runs.
//
//	embedder := mock.NewEmbedder()
//	vec, _ := embedder.EmbedText(ctx, "test")
//
//	// Custom behavior injection
//	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
//	    return nil, core.ErrModelUnavailable
//	}
package mock
