package storage

import (
	"context"

	"github.com/poiesic/smartsearch/core"
)

// IndexRepository provides durable storage for named indices.
// Implementations must be thread-safe and support concurrent access.
// Writers never mutate a stored index in place: Save writes a fresh file
// and atomically replaces any previous index of the same name.
type IndexRepository interface {
	// Save persists the index under its metadata name, replacing any
	// existing index of that name atomically. A crash mid-save never
	// leaves a partially written index visible to readers.
	Save(ctx context.Context, index *core.Index) error

	// Load reads the named index fully into memory.
	// Returns core.ErrIndexNotFound if absent and core.ErrIndexCorrupt if
	// the stored data fails shape or header validation.
	Load(ctx context.Context, name string) (*core.Index, error)

	// List enumerates the metadata of every readable persisted index,
	// sorted by name. Corrupt entries are skipped, not fatal.
	List(ctx context.Context) ([]core.IndexMeta, error)

	// Remove deletes the named index.
	// Returns core.ErrIndexNotFound if absent.
	Remove(ctx context.Context, name string) error
}

// EmbeddingCache stores chunk vectors keyed by content ID so rebuilding an
// index over unchanged files does not re-embed every chunk.
type EmbeddingCache interface {
	// Get returns the cached vector for the key.
	// Returns ErrNotFound on a cache miss.
	Get(ctx context.Context, key core.ID) ([]float32, error)

	// Put stores a vector under the key, overwriting any previous value.
	Put(ctx context.Context, key core.ID, vector []float32) error

	// Close closes the cache and releases resources.
	Close() error
}
