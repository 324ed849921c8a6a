package ingestion

import "errors"

var (
	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrRootNotFound is returned when the build root does not exist or is
	// not a directory.
	ErrRootNotFound = errors.New("root directory not found")
)
