// Package config reads runtime configuration from the environment, with
// optional .env file support. Setting SMART_SEARCH_CACHE to an empty
// string disables the embedding cache; leaving it unset selects the
// default location under the home directory.
package config
