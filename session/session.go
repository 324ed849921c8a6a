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

package session

import (
	"context"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/poiesic/smartsearch/ai"
	"github.com/poiesic/smartsearch/core"
	"github.com/poiesic/smartsearch/ingestion"
	"github.com/poiesic/smartsearch/search"
	"github.com/poiesic/smartsearch/storage"
)

// State is the session lifecycle state.
type State int32

const (
	Starting State = iota
	Ready
	Stopping
	Stopped
)

func (s State) String() string {
	switch s {
	case Starting:
		return "starting"
	case Ready:
		return "ready"
	case Stopping:
		return "stopping"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Scanner builds an ephemeral index over a directory that has no
// persisted index. ingestion.Pipeline satisfies this.
type Scanner interface {
	Scan(ctx context.Context, root string) (*core.Index, *ingestion.Report, error)
}

// Session holds every loaded index in memory and answers queries against
// them. It is the single scoring path: the daemon, the cold CLI path, and
// tests all search through a Session, so ranking is identical everywhere.
//
// Loaded indices are immutable; Reload swaps the whole map under the
// write lock while searches proceed against the previous snapshot.
type Session struct {
	repo     storage.IndexRepository
	embedder ai.Embedder
	scorer   *search.Scorer
	scanner  Scanner

	mu      sync.RWMutex
	indices map[string]*core.Index

	state  atomic.Int32
	logger *slog.Logger
}

// Option configures a Session.
type Option func(*Session)

// WithScorer sets a custom scorer.
// Default is search.NewScorer().
func WithScorer(scorer *search.Scorer) Option {
	return func(s *Session) {
		if scorer != nil {
			s.scorer = scorer
		}
	}
}

// WithScanner enables the live-scan fallback for scoped queries over
// directories no loaded index covers. Without it such queries return no
// results.
func WithScanner(scanner Scanner) Option {
	return func(s *Session) {
		s.scanner = scanner
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
	}
}

// New creates a session. Call Start to load indices before searching.
func New(repo storage.IndexRepository, embedder ai.Embedder, opts ...Option) (*Session, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	s := &Session{
		repo:     repo,
		embedder: embedder,
		scorer:   search.NewScorer(),
		indices:  make(map[string]*core.Index),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.state.Store(int32(Starting))
	return s, nil
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Start loads every persisted index into memory and marks the session
// ready. Indices that fail to load are logged and skipped; an empty
// repository still yields a ready session.
func (s *Session) Start(ctx context.Context) error {
	if err := s.Reload(ctx); err != nil {
		return err
	}
	s.state.Store(int32(Ready))
	return nil
}

// Reload re-reads every persisted index and atomically swaps the loaded
// set. In-flight searches finish against the previous snapshot.
func (s *Session) Reload(ctx context.Context) error {
	metas, err := s.repo.List(ctx)
	if err != nil {
		return err
	}

	fresh := make(map[string]*core.Index, len(metas))
	for _, meta := range metas {
		ix, err := s.repo.Load(ctx, meta.Name)
		if err != nil {
			s.logger.Warn("skipping unloadable index", "index", meta.Name, "err", err)
			continue
		}
		fresh[meta.Name] = ix
	}

	s.mu.Lock()
	s.indices = fresh
	s.mu.Unlock()

	s.logger.Info("indices loaded", "count", len(fresh))
	return nil
}

// Stop marks the session as shutting down. Searches submitted after Stop
// fail with core.ErrShuttingDown; the loaded indices stay in memory until
// the session is garbage collected.
func (s *Session) Stop() {
	s.state.Store(int32(Stopping))
	s.state.Store(int32(Stopped))
	s.logger.Info("session stopped")
}

// Loaded returns the names of the loaded indices, sorted.
func (s *Session) Loaded() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.indices))
	for name := range s.indices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Search validates the query, embeds it, and ranks it against the
// selected indices. An unknown index name degrades to searching all
// loaded indices. A scope outside every loaded index triggers a live scan
// of that directory when a scanner is configured.
func (s *Session) Search(ctx context.Context, q *core.Query) ([]core.Result, error) {
	if st := s.State(); st == Stopping || st == Stopped {
		return nil, core.ErrShuttingDown
	}
	if err := core.ValidateQuery(q); err != nil {
		return nil, err
	}

	candidates := s.candidates(q)

	if q.Scope != "" && !scopeCovered(candidates, q.Scope) {
		scanned, err := s.liveScan(ctx, q.Scope)
		if err != nil {
			return nil, err
		}
		if scanned != nil {
			candidates = []*core.Index{scanned}
		}
	}
	if len(candidates) == 0 {
		return []core.Result{}, nil
	}

	vec, err := s.embedder.EmbedText(ctx, q.Text)
	if err != nil {
		return nil, err
	}
	return s.scorer.Rank(vec, q, candidates), nil
}

// candidates snapshots the indices the query targets.
func (s *Session) candidates(q *core.Query) []*core.Index {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !q.WantsAllIndices() {
		if ix, ok := s.indices[q.Index]; ok {
			return []*core.Index{ix}
		}
		s.logger.Warn("unknown index, searching all", "index", q.Index)
	}

	all := make([]*core.Index, 0, len(s.indices))
	for _, ix := range s.indices {
		all = append(all, ix)
	}
	return all
}

// liveScan builds an ephemeral index over the scope directory. Returns
// nil with no error when scanning is disabled or the scope is not a
// directory.
func (s *Session) liveScan(ctx context.Context, scope string) (*core.Index, error) {
	if s.scanner == nil {
		return nil, nil
	}
	info, err := os.Stat(scope)
	if err != nil || !info.IsDir() {
		return nil, nil
	}

	s.logger.Info("live scanning unindexed scope", "scope", scope)
	ix, report, err := s.scanner.Scan(ctx, scope)
	if err != nil {
		return nil, err
	}
	if report != nil && len(report.Warnings) > 0 {
		s.logger.Debug("live scan warnings", "count", len(report.Warnings))
	}
	return ix, nil
}

// scopeCovered reports whether the scope directory lies under the root of
// any candidate index.
func scopeCovered(indices []*core.Index, scope string) bool {
	norm := strings.TrimRight(strings.ToLower(strings.ReplaceAll(scope, `\`, "/")), "/")
	for _, ix := range indices {
		root := strings.TrimRight(strings.ToLower(strings.ReplaceAll(ix.Meta.Root, `\`, "/")), "/")
		if root == "" {
			continue
		}
		// Match on path components, not raw prefixes: an index rooted at
		// /vault does not cover a sibling /vault2.
		if norm == root || strings.HasPrefix(norm, root+"/") {
			return true
		}
	}
	return false
}
