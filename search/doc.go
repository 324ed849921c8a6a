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


// Package search scores and ranks indexed chunks against a query vector.
//
// The Scorer type implements the ranking algorithm:
//   - Cosine similarity between the query vector and every candidate chunk
//   - An optional bounded keyword boost from matches in the file path
//   - Per-file aggregation keeping each file's best-scoring chunk
//
// Results below the similarity threshold are dropped, the rest are ordered
// by score with a lexical path tie-break so identical inputs always produce
// identical output.
package search
