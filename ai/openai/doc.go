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


// Package openai implements ai.Embedder against OpenAI-compatible APIs.
//
// It uses the langchaingo library to talk to OpenAI or OpenAI-compatible
// services such as Ollama, LocalAI, or vLLM. Connection and service failures
// are wrapped in core.ErrModelUnavailable so callers can distinguish a
// missing model from other errors.
//
//	cfg := ai.NewConfig(ai.WithHost("http://localhost:11434"), ai.WithModel("bge-micro-v2"))
//	embedder, err := openai.NewEmbedder(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	vec, err := embedder.EmbedText(ctx, "sample text")
package openai
