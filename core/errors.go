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


package core

import "errors"

// Engine error taxonomy.
var (
	// ErrModelUnavailable indicates the embedding model cannot be reached.
	// Fatal for the requested operation; never retried automatically.
	ErrModelUnavailable = errors.New("embedding model unavailable")

	// ErrIndexNotFound indicates no persisted index exists under the requested name.
	ErrIndexNotFound = errors.New("index not found")

	// ErrIndexCorrupt indicates a persisted index failed shape or header validation.
	ErrIndexCorrupt = errors.New("index corrupt")

	// ErrDaemonUnreachable indicates the search daemon endpoint did not respond.
	// Recoverable: callers fall back to the in-process cold path.
	ErrDaemonUnreachable = errors.New("daemon unreachable")

	// ErrAlreadyRunning indicates another daemon is bound to the endpoint.
	ErrAlreadyRunning = errors.New("daemon already running")

	// ErrShuttingDown indicates a request arrived while the daemon was stopping.
	ErrShuttingDown = errors.New("daemon shutting down")

	// ErrEmptyQuery indicates a search query with no text.
	ErrEmptyQuery = errors.New("query cannot be empty")

	// ErrQueryTooLong indicates a query exceeding MaxQueryLength.
	ErrQueryTooLong = errors.New("query exceeds maximum length")

	// ErrInvalidIndexName indicates an index name unusable as a file name.
	ErrInvalidIndexName = errors.New("invalid index name")
)
