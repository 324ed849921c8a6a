package search

import (
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/poiesic/smartsearch/core"
)

// Default ranking parameters.
const (
	DefaultLimit     = 20
	DefaultThreshold = 0.45
)

// Scorer ranks chunk vectors against a query vector, optionally boosted by
// keyword matches in file paths, and aggregates chunk scores to one result
// per file.
type Scorer struct {
	limit     int
	threshold float32
	boost     BoostConfig
	logger    *slog.Logger
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithLimit sets the maximum number of results returned.
// Default is DefaultLimit.
func WithLimit(limit int) Option {
	return func(s *Scorer) {
		if limit > 0 {
			s.limit = limit
		}
	}
}

// WithThreshold sets the minimum effective score for a result.
// Default is DefaultThreshold.
func WithThreshold(threshold float32) Option {
	return func(s *Scorer) {
		s.threshold = threshold
	}
}

// WithBoost sets the hybrid boost configuration.
func WithBoost(boost BoostConfig) Option {
	return func(s *Scorer) {
		s.boost = boost
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scorer) {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
	}
}

// NewScorer creates a scorer with default limit, threshold, and boost.
func NewScorer(opts ...Option) *Scorer {
	s := &Scorer{
		limit:     DefaultLimit,
		threshold: DefaultThreshold,
		boost:     DefaultBoost(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// fileHit tracks the best-scoring chunk seen so far for one file.
type fileHit struct {
	score   float32
	ordinal uint32
	index   string
}

// Rank scores every chunk of the candidate indices against queryVec and
// returns at most the configured limit of per-file results, ordered by
// score descending with a lexical path tie-break for determinism.
//
// The query's Scope filters chunks by case-insensitive path prefix before
// scoring; Hybrid adds the bounded path-keyword boost; per-query Limit and
// Threshold override the scorer defaults when set.
func (s *Scorer) Rank(queryVec []float32, q *core.Query, indices []*core.Index) []core.Result {
	limit := s.limit
	if q.Limit > 0 {
		limit = q.Limit
	}
	threshold := s.threshold
	if q.Threshold != 0 {
		threshold = q.Threshold
	}

	var queryWords []string
	if q.Hybrid {
		queryWords = tokenize(q.Text)
	}
	scope := normalizePath(q.Scope)

	best := make(map[string]fileHit)
	for _, ix := range indices {
		if ix.Meta.Dimension != len(queryVec) {
			s.logger.Warn("skipping index with mismatched dimension",
				"index", ix.Meta.Name, "dimension", ix.Meta.Dimension, "query", len(queryVec))
			continue
		}

		for i := 0; i < ix.Len(); i++ {
			path := ix.Paths[i]
			if scope != "" && !strings.HasPrefix(normalizePath(path), scope) {
				continue
			}

			score := cosine(queryVec, ix.Vector(i))
			if q.Hybrid {
				score += s.boost.pathBoost(path, queryWords)
				if score > 1 {
					score = 1
				}
			}
			if score < threshold {
				continue
			}

			hit, ok := best[path]
			if !ok || score > hit.score {
				best[path] = fileHit{score: score, ordinal: ix.Ordinals[i], index: ix.Meta.Name}
			}
		}
	}

	results := make([]core.Result, 0, len(best))
	for path, hit := range best {
		results = append(results, core.Result{
			Path:         path,
			Score:        hit.score,
			ChunkOrdinal: hit.ordinal,
			Index:        hit.index,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Path < results[j].Path
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

// cosine computes cosine similarity between two equal-length vectors.
// A zero-norm input yields 0, never NaN or a division by zero.
func cosine(a, b []float32) float32 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

// normalizePath lowercases a path and normalizes separators so scope
// matching behaves identically across platforms.
func normalizePath(p string) string {
	return strings.ToLower(strings.ReplaceAll(p, `\`, "/"))
}
