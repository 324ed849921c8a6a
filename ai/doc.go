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


// Package ai provides the embedding abstraction used by the search engine.
//
// The Embedder interface turns text into fixed-length dense vectors. The
// engine depends only on this abstraction; concrete implementations live in
// sub-packages:
//
//   - ai/openai: production implementation speaking the OpenAI embeddings
//     API via langchaingo, compatible with Ollama, LocalAI, and vLLM
//   - ai/mock: deterministic test double with behavior injection
//
// Public constructors return the Embedder interface to prevent coupling to
// a concrete implementation; the mock constructor returns a concrete type so
// tests can make assertions against it.
//
// Embedding dimensionality is a property of the configured model. The engine
// discovers it from the first vector returned rather than configuring it
// separately, so a dimension mismatch can only arise from mixing models,
// which index validation catches at load time.
package ai
