// Package chunker splits file text into overlapping spans for embedding.
//
// Chunks are the unit of embedding and scoring. Overlap between consecutive
// chunks keeps a concept near a chunk boundary from being split across its
// only representation, and paragraph-aware breaking prefers ending a chunk
// at a blank line so sections stay intact.
package chunker
