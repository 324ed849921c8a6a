package indexfile

import (
	"fmt"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"

	"github.com/poiesic/smartsearch/core"
)

// File format: a fixed magic and version byte, the index metadata, then the
// chunk columns as parallel arrays. The vector matrix is written last as one
// contiguous run of raw float32 values so it deserializes into a single
// allocation for batched similarity computation.
const (
	fileMagic   = "SSIX"
	fileVersion = byte(1)
)

// marshalIndex serializes an index to its on-disk representation.
func marshalIndex(ix *core.Index) []byte {
	size := len(fileMagic) + 1 + sizeMeta(&ix.Meta)
	for _, p := range ix.Paths {
		size += ord.String.Size(p)
	}
	for _, o := range ix.Ordinals {
		size += varint.Uint32.Size(o)
	}
	for _, s := range ix.Spans {
		size += varint.Uint32.Size(s.Start) + varint.Uint32.Size(s.End)
	}
	size += 4 * len(ix.Vectors)

	buf := make([]byte, size)
	n := copy(buf, fileMagic)
	buf[n] = fileVersion
	n++
	n += marshalMeta(&ix.Meta, buf[n:])
	for _, p := range ix.Paths {
		n += ord.String.Marshal(p, buf[n:])
	}
	for _, o := range ix.Ordinals {
		n += varint.Uint32.Marshal(o, buf[n:])
	}
	for _, s := range ix.Spans {
		n += varint.Uint32.Marshal(s.Start, buf[n:])
		n += varint.Uint32.Marshal(s.End, buf[n:])
	}
	for _, v := range ix.Vectors {
		n += raw.Float32.Marshal(v, buf[n:])
	}
	return buf
}

// unmarshalIndex deserializes a complete index, validating its shape.
// Any decoding failure maps to core.ErrIndexCorrupt.
func unmarshalIndex(data []byte) (*core.Index, error) {
	meta, n, err := unmarshalMeta(data)
	if err != nil {
		return nil, err
	}

	count := meta.ChunkCount
	if count < 0 || (count > 0 && meta.Dimension <= 0) {
		return nil, fmt.Errorf("%w: chunk count %d, dimension %d", core.ErrIndexCorrupt, count, meta.Dimension)
	}
	// The remaining bytes bound what the header may claim, so a corrupt
	// header cannot drive a huge allocation. The vector block alone needs
	// 4*count*dimension bytes.
	remaining := len(data) - n
	if count > remaining ||
		(count > 0 && meta.Dimension > (remaining/4)/count) {
		return nil, fmt.Errorf("%w: implausible header counts", core.ErrIndexCorrupt)
	}

	ix := &core.Index{
		Meta:     meta,
		Paths:    make([]string, count),
		Ordinals: make([]uint32, count),
		Spans:    make([]core.Span, count),
		Vectors:  make([]float32, count*meta.Dimension),
	}

	for i := range ix.Paths {
		p, sz, err := ord.String.Unmarshal(data[n:])
		if err != nil {
			return nil, fmt.Errorf("%w: path %d: %w", core.ErrIndexCorrupt, i, err)
		}
		ix.Paths[i] = p
		n += sz
	}
	for i := range ix.Ordinals {
		o, sz, err := varint.Uint32.Unmarshal(data[n:])
		if err != nil {
			return nil, fmt.Errorf("%w: ordinal %d: %w", core.ErrIndexCorrupt, i, err)
		}
		ix.Ordinals[i] = o
		n += sz
	}
	for i := range ix.Spans {
		start, sz, err := varint.Uint32.Unmarshal(data[n:])
		if err != nil {
			return nil, fmt.Errorf("%w: span %d: %w", core.ErrIndexCorrupt, i, err)
		}
		n += sz
		end, sz, err := varint.Uint32.Unmarshal(data[n:])
		if err != nil {
			return nil, fmt.Errorf("%w: span %d: %w", core.ErrIndexCorrupt, i, err)
		}
		n += sz
		ix.Spans[i] = core.Span{Start: start, End: end}
	}
	if len(data)-n < 4*len(ix.Vectors) {
		return nil, fmt.Errorf("%w: truncated vector block", core.ErrIndexCorrupt)
	}
	for i := range ix.Vectors {
		v, sz, err := raw.Float32.Unmarshal(data[n:])
		if err != nil {
			return nil, fmt.Errorf("%w: vector block: %w", core.ErrIndexCorrupt, err)
		}
		ix.Vectors[i] = v
		n += sz
	}

	if err := ix.Validate(); err != nil {
		return nil, err
	}
	return ix, nil
}

// unmarshalMeta reads the header and metadata, returning the offset of the
// first chunk column. Used by List to inspect indices without loading their
// vector blocks.
func unmarshalMeta(data []byte) (core.IndexMeta, int, error) {
	var meta core.IndexMeta

	if len(data) < len(fileMagic)+1 || string(data[:len(fileMagic)]) != fileMagic {
		return meta, 0, fmt.Errorf("%w: bad magic", core.ErrIndexCorrupt)
	}
	if v := data[len(fileMagic)]; v != fileVersion {
		return meta, 0, fmt.Errorf("%w: unsupported format version %d", core.ErrIndexCorrupt, v)
	}
	n := len(fileMagic) + 1

	name, sz, err := ord.String.Unmarshal(data[n:])
	if err != nil {
		return meta, 0, fmt.Errorf("%w: name: %w", core.ErrIndexCorrupt, err)
	}
	n += sz
	root, sz, err := ord.String.Unmarshal(data[n:])
	if err != nil {
		return meta, 0, fmt.Errorf("%w: root: %w", core.ErrIndexCorrupt, err)
	}
	n += sz
	dim, sz, err := varint.Int.Unmarshal(data[n:])
	if err != nil {
		return meta, 0, fmt.Errorf("%w: dimension: %w", core.ErrIndexCorrupt, err)
	}
	n += sz
	createdAt, sz, err := varint.Int64.Unmarshal(data[n:])
	if err != nil {
		return meta, 0, fmt.Errorf("%w: created at: %w", core.ErrIndexCorrupt, err)
	}
	n += sz
	fileCount, sz, err := varint.Int.Unmarshal(data[n:])
	if err != nil {
		return meta, 0, fmt.Errorf("%w: file count: %w", core.ErrIndexCorrupt, err)
	}
	n += sz
	chunkCount, sz, err := varint.Int.Unmarshal(data[n:])
	if err != nil {
		return meta, 0, fmt.Errorf("%w: chunk count: %w", core.ErrIndexCorrupt, err)
	}
	n += sz

	meta = core.IndexMeta{
		Name:       name,
		Root:       root,
		Dimension:  dim,
		CreatedAt:  time.UnixMicro(createdAt).UTC(),
		FileCount:  fileCount,
		ChunkCount: chunkCount,
	}
	return meta, n, nil
}

func sizeMeta(meta *core.IndexMeta) int {
	return ord.String.Size(meta.Name) +
		ord.String.Size(meta.Root) +
		varint.Int.Size(meta.Dimension) +
		varint.Int64.Size(meta.CreatedAt.UnixMicro()) +
		varint.Int.Size(meta.FileCount) +
		varint.Int.Size(meta.ChunkCount)
}

func marshalMeta(meta *core.IndexMeta, buf []byte) int {
	n := ord.String.Marshal(meta.Name, buf)
	n += ord.String.Marshal(meta.Root, buf[n:])
	n += varint.Int.Marshal(meta.Dimension, buf[n:])
	n += varint.Int64.Marshal(meta.CreatedAt.UnixMicro(), buf[n:])
	n += varint.Int.Marshal(meta.FileCount, buf[n:])
	n += varint.Int.Marshal(meta.ChunkCount, buf[n:])
	return n
}
