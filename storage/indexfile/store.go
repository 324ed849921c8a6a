package indexfile

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/poiesic/smartsearch/core"
	"github.com/poiesic/smartsearch/storage"
)

// fileExt is the extension for persisted index files.
const fileExt = ".idx"

// Repository stores one columnar index file per name under a root directory.
type Repository struct {
	root   string
	logger *slog.Logger
}

var _ storage.IndexRepository = (*Repository)(nil)

// Option configures a Repository.
type Option func(*Repository)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Repository) {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
	}
}

// NewRepository creates a file-backed index repository rooted at dir,
// creating the directory if needed.
//
// Returns storage.IndexRepository interface to enforce abstraction.
func NewRepository(dir string, opts ...Option) (storage.IndexRepository, error) {
	if dir == "" {
		return nil, fmt.Errorf("index repository: root directory required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("index repository: %w", err)
	}

	r := &Repository{
		root:   dir,
		logger: slog.Default().With("component", "indexfile"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Save persists the index, replacing any previous index of the same name.
// The file is written to a temp path in the same directory and renamed into
// place so readers never observe a partial write.
func (r *Repository) Save(ctx context.Context, index *core.Index) error {
	if err := core.ValidateIndexName(index.Meta.Name); err != nil {
		return err
	}
	if err := index.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data := marshalIndex(index)

	tmp, err := os.CreateTemp(r.root, index.Meta.Name+".tmp-*")
	if err != nil {
		return fmt.Errorf("save index %q: %w", index.Meta.Name, err)
	}
	tmpName := tmp.Name()
	// On any failure below the temp file is discarded, never the live index.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("save index %q: %w", index.Meta.Name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("save index %q: %w", index.Meta.Name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save index %q: %w", index.Meta.Name, err)
	}

	if err := os.Rename(tmpName, r.path(index.Meta.Name)); err != nil {
		return fmt.Errorf("save index %q: %w", index.Meta.Name, err)
	}

	r.logger.Debug("index saved",
		"name", index.Meta.Name, "chunks", index.Len(), "bytes", len(data))
	return nil
}

// Load reads the named index fully into memory.
func (r *Repository) Load(ctx context.Context, name string) (*core.Index, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(r.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %q", core.ErrIndexNotFound, name)
		}
		return nil, fmt.Errorf("load index %q: %w", name, err)
	}

	ix, err := unmarshalIndex(data)
	if err != nil {
		return nil, fmt.Errorf("load index %q: %w", name, err)
	}
	if ix.Meta.Name != name {
		return nil, fmt.Errorf("%w: file %q declares name %q", core.ErrIndexCorrupt, name, ix.Meta.Name)
	}
	return ix, nil
}

// List enumerates metadata for all readable indices, sorted by name.
// A corrupt file is logged and skipped so it never hides healthy indices.
func (r *Repository) List(ctx context.Context) ([]core.IndexMeta, error) {
	entries, err := os.ReadDir(r.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list indices: %w", err)
	}

	var metas []core.IndexMeta
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), fileExt) {
			continue
		}

		meta, err := readMeta(filepath.Join(r.root, entry.Name()))
		if err != nil {
			r.logger.Warn("skipping unreadable index file", "file", entry.Name(), "err", err)
			continue
		}
		metas = append(metas, meta)
	}

	sort.Slice(metas, func(i, j int) bool { return metas[i].Name < metas[j].Name })
	return metas, nil
}

// metaReadSize bounds how much of an index file List reads. The header is
// the magic, the metadata, and two short strings, so this is generous.
const metaReadSize = 64 << 10

// readMeta parses an index file's metadata from a bounded prefix of the
// file, leaving the chunk columns and vector block on disk.
func readMeta(path string) (core.IndexMeta, error) {
	f, err := os.Open(path)
	if err != nil {
		return core.IndexMeta{}, err
	}
	defer f.Close()

	buf := make([]byte, metaReadSize)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return core.IndexMeta{}, err
	}
	meta, _, err := unmarshalMeta(buf[:n])
	return meta, err
}

// Remove deletes the named index file.
func (r *Repository) Remove(ctx context.Context, name string) error {
	if err := core.ValidateIndexName(name); err != nil {
		return err
	}
	if err := os.Remove(r.path(name)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %q", core.ErrIndexNotFound, name)
		}
		return fmt.Errorf("remove index %q: %w", name, err)
	}
	return nil
}

func (r *Repository) path(name string) string {
	return filepath.Join(r.root, name+fileExt)
}
