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

import (
	"fmt"
	"strings"
)

// MaxQueryLength caps search query text, matching the daemon-side limit.
const MaxQueryLength = 10_000

// ValidateQuery validates a search query according to engine rules.
//
// Validation rules:
//   - Text must not be empty or whitespace-only
//   - Text must not exceed MaxQueryLength
//
// Scope and Index are NOT validated here: an unknown index name degrades to
// searching all indices, and an unindexed scope triggers a live scan.
func ValidateQuery(q *Query) error {
	if q == nil {
		return fmt.Errorf("%w: query is nil", ErrEmptyQuery)
	}
	if strings.TrimSpace(q.Text) == "" {
		return ErrEmptyQuery
	}
	if len(q.Text) > MaxQueryLength {
		return fmt.Errorf("%w: %d > %d chars", ErrQueryTooLong, len(q.Text), MaxQueryLength)
	}
	return nil
}

// ValidateIndexName validates that a name is usable as an index file stem.
// Names must be non-empty and free of path separators and traversal sequences,
// since they become file names under the storage root.
func ValidateIndexName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidIndexName)
	}
	if name == "all" || name == "live" {
		return fmt.Errorf("%w: %q is reserved", ErrInvalidIndexName, name)
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidIndexName, name)
	}
	return nil
}
