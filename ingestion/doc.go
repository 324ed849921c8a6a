// Package ingestion turns a directory of text files into a searchable index.
//
// The Pipeline type manages the build workflow:
//   - Walking the root, skipping generated and binary content
//   - Chunking each file with overlap at paragraph boundaries
//   - Embedding chunks concurrently, consulting the vector cache first
//   - Assembling the vectors into a columnar in-memory index
//
// Files are processed concurrently on a worker pool, but the assembled
// index is deterministic: chunks appear in lexical path order with
// per-file ordinals. Problems with individual files are reported as
// warnings and never fail the build.
package ingestion
