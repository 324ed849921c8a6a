package chunker

import (
	"bytes"
	"iter"
	"strings"
	"unicode/utf8"

	"github.com/poiesic/smartsearch/core"
)

// Default chunking parameters. Roughly 400-500 tokens per chunk with enough
// overlap that a passage near a boundary appears whole in at least one chunk.
const (
	DefaultSize    = 2000
	DefaultOverlap = 200
)

// sniffLen is how many leading bytes IsText examines.
const sniffLen = 8000

// Chunker splits file text into overlapping spans of a target size.
type Chunker struct {
	size    int
	overlap int
}

// New creates a Chunker with the given target chunk size and overlap.
// Non-positive size falls back to DefaultSize. The overlap is clamped to
// less than half the size so every step makes forward progress even when a
// chunk is shortened to end at a paragraph boundary.
func New(size, overlap int) *Chunker {
	if size <= 0 {
		size = DefaultSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size/2 {
		overlap = size/2 - 1
		if overlap < 0 {
			overlap = 0
		}
	}
	return &Chunker{size: size, overlap: overlap}
}

// Default returns a Chunker with the default size and overlap.
func Default() *Chunker {
	return New(DefaultSize, DefaultOverlap)
}

// Size returns the target chunk length in bytes.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the overlap between consecutive chunks in bytes.
func (c *Chunker) Overlap() int { return c.overlap }

// Chunks returns a lazy sequence of spans covering text. The spans tile the
// text with no gaps; consecutive spans overlap by the configured overlap
// unless a chunk was shortened to break at a paragraph boundary, in which
// case the overlap is at least as large. Text no longer than the chunk size
// yields exactly one span; empty text yields none. The sequence is
// restartable: ranging over it again re-yields the same spans.
func (c *Chunker) Chunks(text string) iter.Seq[core.Span] {
	return func(yield func(core.Span) bool) {
		if len(text) == 0 {
			return
		}
		if len(text) <= c.size {
			yield(core.Span{Start: 0, End: uint32(len(text))})
			return
		}

		start := 0
		for start < len(text) {
			end := min(start+c.size, len(text))

			// Prefer to break at a paragraph boundary in the second half
			// of the chunk so a section heading starts the next chunk.
			if end < len(text) {
				if at := strings.LastIndex(text[start+c.size/2:end], "\n\n"); at >= 0 {
					end = start + c.size/2 + at
				}
			}

			if !yield(core.Span{Start: uint32(start), End: uint32(end)}) {
				return
			}
			if end >= len(text) {
				return
			}
			start = end - c.overlap
		}
	}
}

// Split collects all spans for text into a slice.
func (c *Chunker) Split(text string) []core.Span {
	var spans []core.Span
	for span := range c.Chunks(text) {
		spans = append(spans, span)
	}
	return spans
}

// IsText reports whether data looks like decodable text. Files containing a
// NUL byte or invalid UTF-8 in their leading bytes are treated as binary and
// skipped during indexing.
func IsText(data []byte) bool {
	truncated := false
	if len(data) > sniffLen {
		data = data[:sniffLen]
		truncated = true
	}
	if bytes.IndexByte(data, 0) >= 0 {
		return false
	}
	if truncated {
		// The sniff window may end mid-rune; drop the partial tail.
		for i := 0; i < utf8.UTFMax && len(data) > 0; i++ {
			if utf8.Valid(data) {
				return true
			}
			data = data[:len(data)-1]
		}
	}
	return utf8.Valid(data)
}
