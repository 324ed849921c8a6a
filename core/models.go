package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier derived from content.
// Identical content always produces the same ID.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Span is a half-open byte range [Start, End) within a file's text.
type Span struct {
	Start uint32
	End   uint32
}

// Len returns the span length in bytes.
func (s Span) Len() int {
	return int(s.End - s.Start)
}

// IndexMeta describes a persisted index.
type IndexMeta struct {
	Name       string
	Root       string    // directory the index was built from
	Dimension  int       // embedding vector dimensionality
	CreatedAt  time.Time // build timestamp
	FileCount  int       // distinct source files
	ChunkCount int
}

// Index is a named collection of chunk vectors laid out as parallel arrays.
// Paths, Ordinals, and Spans each hold one entry per chunk; Vectors holds
// all embeddings row-major in one contiguous block of
// ChunkCount * Dimension float32 values.
//
// An Index is immutable once built. Readers share it freely; replacing an
// index means building a fresh one and swapping the pointer.
type Index struct {
	Meta     IndexMeta
	Paths    []string // source file path per chunk, repeats across a file's chunks
	Ordinals []uint32 // chunk position within its file, insertion order by offset
	Spans    []Span   // byte range of the chunk in the source file
	Vectors  []float32
}

// Len returns the number of chunks in the index.
func (ix *Index) Len() int {
	return len(ix.Paths)
}

// Vector returns a view of the i-th chunk's embedding.
// The returned slice aliases the index's vector block and must not be modified.
func (ix *Index) Vector(i int) []float32 {
	d := ix.Meta.Dimension
	return ix.Vectors[i*d : (i+1)*d]
}

// Validate checks the structural invariants of the index:
// parallel arrays of equal length and a vector block whose size matches
// the declared dimension. Returns ErrIndexCorrupt on any mismatch.
func (ix *Index) Validate() error {
	n := len(ix.Paths)
	if len(ix.Ordinals) != n || len(ix.Spans) != n {
		return ErrIndexCorrupt
	}
	if ix.Meta.ChunkCount != n {
		return ErrIndexCorrupt
	}
	if n > 0 && ix.Meta.Dimension <= 0 {
		return ErrIndexCorrupt
	}
	if n > 0 && len(ix.Vectors) != n*ix.Meta.Dimension {
		return ErrIndexCorrupt
	}
	if n == 0 && len(ix.Vectors) != 0 {
		return ErrIndexCorrupt
	}
	return nil
}

// Query is an ephemeral search request.
type Query struct {
	Text      string
	Scope     string  // optional path-prefix filter
	Index     string  // index name, or "" / "all" for every loaded index
	Hybrid    bool    // apply keyword-path boost on top of cosine similarity
	Limit     int     // maximum number of results
	Threshold float32 // minimum effective score to report
}

// WantsAllIndices reports whether the query targets every loaded index.
func (q *Query) WantsAllIndices() bool {
	return q.Index == "" || q.Index == "all"
}

// Result is one ranked search hit. Results are deduplicated per file:
// the best-scoring chunk determines the file's score.
type Result struct {
	Path         string  `json:"path"`
	Score        float32 `json:"score"`
	ChunkOrdinal uint32  `json:"chunk"`
	Index        string  `json:"index"`
}
