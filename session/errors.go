package session

import "errors"

var (
	// ErrRepositoryRequired is returned when an index repository is not provided.
	ErrRepositoryRequired = errors.New("index repository required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")
)
