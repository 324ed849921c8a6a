// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package storage provides the storage abstraction layer for smartsearch.
//
// It defines two repository interfaces that decouple persistence from the
// engine:
//
//   - IndexRepository: durable named indices, one file per index
//   - EmbeddingCache: content-addressed chunk vectors
//
// Implementations live in sub-packages:
//
//   - storage/indexfile: columnar single-file index format (MUS encoding)
//   - storage/badger: BadgerDB-backed embedding cache
//
// Public constructors return interface types so consumers never couple to a
// concrete backend.
//
// # Thread Safety
//
// All implementations must be safe for concurrent use. Index writers only
// ever write a fresh file and swap it into place; a loaded index is never
// mutated.
package storage
