package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/smartsearch/core"
)

func TestChunksEmptyText(t *testing.T) {
	c := Default()
	assert.Empty(t, c.Split(""))
}

func TestChunksShortText(t *testing.T) {
	c := New(100, 20)
	spans := c.Split("hello world")
	require.Len(t, spans, 1)
	assert.Equal(t, core.Span{Start: 0, End: 11}, spans[0])
}

func TestChunksExactSize(t *testing.T) {
	c := New(100, 20)
	spans := c.Split(strings.Repeat("a", 100))
	require.Len(t, spans, 1)
	assert.Equal(t, core.Span{Start: 0, End: 100}, spans[0])
}

func TestChunksTiling(t *testing.T) {
	c := New(100, 20)
	text := strings.Repeat("a", 1000)
	spans := c.Split(text)
	require.Greater(t, len(spans), 1)

	// First span starts at 0, last span ends at len(text), and no span
	// leaves a gap before its successor.
	assert.Equal(t, uint32(0), spans[0].Start)
	assert.Equal(t, uint32(len(text)), spans[len(spans)-1].End)
	for i := 1; i < len(spans); i++ {
		assert.LessOrEqual(t, spans[i].Start, spans[i-1].End, "gap between spans %d and %d", i-1, i)
	}
}

func TestChunksOverlap(t *testing.T) {
	// No paragraph boundaries, so every step uses the exact overlap.
	c := New(100, 20)
	text := strings.Repeat("a", 500)
	spans := c.Split(text)
	require.Greater(t, len(spans), 1)

	for i := 1; i < len(spans); i++ {
		overlap := int(spans[i-1].End) - int(spans[i].Start)
		assert.Equal(t, 20, overlap)
	}
}

func TestChunksParagraphBoundary(t *testing.T) {
	// A double newline in the second half of the first chunk should become
	// the break point.
	text := strings.Repeat("a", 80) + "\n\n" + strings.Repeat("b", 200)
	c := New(100, 10)
	spans := c.Split(text)
	require.Greater(t, len(spans), 1)
	assert.Equal(t, uint32(80), spans[0].End)
	assert.Equal(t, uint32(70), spans[1].Start)
}

func TestChunksRestartable(t *testing.T) {
	c := New(100, 20)
	text := strings.Repeat("word ", 200)
	seq := c.Chunks(text)

	first := make([]core.Span, 0)
	for s := range seq {
		first = append(first, s)
	}
	second := make([]core.Span, 0)
	for s := range seq {
		second = append(second, s)
	}
	assert.Equal(t, first, second)
}

func TestChunksEarlyBreak(t *testing.T) {
	c := New(100, 20)
	text := strings.Repeat("a", 1000)
	count := 0
	for range c.Chunks(text) {
		count++
		if count == 2 {
			break
		}
	}
	assert.Equal(t, 2, count)
}

func TestNewClampsOverlap(t *testing.T) {
	c := New(100, 90)
	assert.Less(t, c.Overlap(), c.Size()/2)

	c = New(0, -5)
	assert.Equal(t, DefaultSize, c.Size())
	assert.Equal(t, 0, c.Overlap())
}

func TestIsText(t *testing.T) {
	t.Run("plain text", func(t *testing.T) {
		assert.True(t, IsText([]byte("hello world\n")))
	})

	t.Run("utf8 text", func(t *testing.T) {
		assert.True(t, IsText([]byte("héllo wörld — ünïcode")))
	})

	t.Run("empty", func(t *testing.T) {
		assert.True(t, IsText(nil))
	})

	t.Run("nul byte", func(t *testing.T) {
		assert.False(t, IsText([]byte{'P', 'K', 0, 3, 4}))
	})

	t.Run("invalid utf8", func(t *testing.T) {
		assert.False(t, IsText([]byte{0xff, 0xfe, 0x41}))
	})

	t.Run("long text truncated mid rune", func(t *testing.T) {
		// Fill past the sniff window and place a multi-byte rune across
		// the window edge.
		data := []byte(strings.Repeat("a", sniffLen-1) + "é" + strings.Repeat("b", 100))
		assert.True(t, IsText(data))
	})
}
