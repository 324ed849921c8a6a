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

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variables recognized by Load.
const (
	EnvIndices        = "SMART_SEARCH_INDICES"
	EnvDefaultIndex   = "SMART_SEARCH_DEFAULT_INDEX"
	EnvVault          = "SMART_SEARCH_VAULT"
	EnvHost           = "SMART_SEARCH_HOST"
	EnvPort           = "SMART_SEARCH_PORT"
	EnvEmbeddingHost  = "SMART_SEARCH_EMBEDDING_HOST"
	EnvEmbeddingModel = "SMART_SEARCH_EMBEDDING_MODEL"
	EnvCache          = "SMART_SEARCH_CACHE"
)

// Config holds all runtime configuration.
type Config struct {
	IndicesDir     string // directory holding persisted index files
	DefaultIndex   string // index name used when a build gives none
	Vault          string // default directory to index and search
	Host           string // daemon listen host
	Port           int    // daemon listen port
	EmbeddingHost  string // OpenAI-compatible embedding endpoint
	EmbeddingModel string // embedding model name
	CacheDir       string // embedding cache directory, "" disables caching
}

// Load reads configuration from the environment, after loading a .env
// file from the current directory when one exists. Real environment
// variables take precedence over .env values. Every field has a default;
// only a malformed port fails.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		IndicesDir:     getEnv(EnvIndices, ""),
		DefaultIndex:   getEnv(EnvDefaultIndex, "vault"),
		Vault:          getEnv(EnvVault, ""),
		Host:           getEnv(EnvHost, "127.0.0.1"),
		EmbeddingHost:  getEnv(EnvEmbeddingHost, ""),
		EmbeddingModel: getEnv(EnvEmbeddingModel, ""),
	}

	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	if cfg.IndicesDir == "" {
		cfg.IndicesDir = filepath.Join(home, ".smart-search", "indices")
	}

	// Absent means default cache location; explicitly empty disables it.
	if cacheDir, ok := os.LookupEnv(EnvCache); ok {
		cfg.CacheDir = cacheDir
	} else {
		cfg.CacheDir = filepath.Join(home, ".smart-search", "cache")
	}

	portStr := getEnv(EnvPort, "5555")
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return nil, fmt.Errorf("%s: invalid port %q", EnvPort, portStr)
	}
	cfg.Port = port

	return cfg, nil
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
