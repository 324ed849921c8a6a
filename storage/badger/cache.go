package badger

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/poiesic/smartsearch/core"
	"github.com/poiesic/smartsearch/storage"
)

// Key prefix for cached chunk vectors.
const vectorPrefix = "vec:"

// Cache implements storage.EmbeddingCache on BadgerDB. Vectors are keyed by
// a content hash of (model, chunk text), so a rebuild over unchanged files
// reuses cached embeddings instead of calling the embedding service.
type Cache struct {
	db     *badger.DB
	logger *slog.Logger
}

var _ storage.EmbeddingCache = (*Cache)(nil)

// badgerLoggerAdapter adapts slog.Logger to badger.Logger interface.
type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// OpenCache opens a BadgerDB-backed embedding cache at the specified path,
// creating the directory if it doesn't exist. With inMemory set, the cache
// lives only for the process lifetime (used in tests).
//
// Returns storage.EmbeddingCache interface to enforce abstraction.
func OpenCache(filePath string, inMemory bool) (storage.EmbeddingCache, error) {
	var opts badger.Options

	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		info, err := os.Stat(filePath)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
			if err := os.MkdirAll(filePath, 0o755); err != nil {
				return nil, err
			}
			info, err = os.Stat(filePath)
			if err != nil {
				return nil, err
			}
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%s is not a directory", filePath)
		}
		opts = badger.DefaultOptions(filePath)
	}

	opts.Logger = &badgerLoggerAdapter{logger: slog.Default()}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &Cache{
		db:     db,
		logger: slog.Default().With("component", "embed-cache"),
	}, nil
}

// Get returns the cached vector for the key, or storage.ErrNotFound.
func (c *Cache) Get(ctx context.Context, key core.ID) ([]float32, error) {
	if c.db.IsClosed() {
		return nil, storage.ErrStorageClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var vec []float32
	err := c.db.View(func(tx *badger.Txn) error {
		item, err := tx.Get(makeVectorKey(key))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var err error
			vec, err = storage.UnmarshalVector(val)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return vec, nil
}

// Put stores a vector under the key, overwriting any previous value.
func (c *Cache) Put(ctx context.Context, key core.ID, vector []float32) error {
	if c.db.IsClosed() {
		return storage.ErrStorageClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	return c.db.Update(func(tx *badger.Txn) error {
		return tx.Set(makeVectorKey(key), storage.MarshalVector(vector))
	})
}

// Close closes the underlying BadgerDB database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// makeVectorKey generates the storage key for a cached vector.
func makeVectorKey(id core.ID) []byte {
	buf := make([]byte, len(vectorPrefix)+8)
	offset := copy(buf, vectorPrefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// CacheKey derives the content-addressed cache key for a chunk of text
// embedded with a particular model. Different models never share entries.
func CacheKey(model, text string) core.ID {
	return core.IDFromContent(model + "\x00" + text)
}
