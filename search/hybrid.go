package search

import (
	"path"
	"strings"
	"unicode"
)

// BoostConfig bounds the keyword-path boost applied in hybrid mode.
// The boost is additive on top of cosine similarity, and Cap keeps it small
// enough that a path match can reorder near-ties but never outrank a much
// stronger pure-semantic hit.
type BoostConfig struct {
	FilenameExact   float32 // query word equals the file name or its stem
	FilenamePartial float32 // query word is a substring of the file name
	Path            float32 // query word appears elsewhere in the path
	Cap             float32 // upper bound on the total boost
}

// DefaultBoost returns the default hybrid boost configuration.
func DefaultBoost() BoostConfig {
	return BoostConfig{
		FilenameExact:   0.12,
		FilenamePartial: 0.08,
		Path:            0.04,
		Cap:             0.15,
	}
}

// Max returns the largest boost any single candidate can receive.
func (b BoostConfig) Max() float32 {
	total := b.FilenameExact + b.Path
	if total > b.Cap {
		return b.Cap
	}
	return total
}

// pathBoost computes the hybrid boost for a file path given the tokenized
// query. Multiple matching words do not stack beyond the strongest filename
// boost, but a directory match can add on top of it, bounded by Cap.
func (b BoostConfig) pathBoost(filePath string, queryWords []string) float32 {
	if len(queryWords) == 0 {
		return 0
	}

	normalized := normalizePath(filePath)
	filename := path.Base(normalized)
	stem := strings.TrimSuffix(filename, path.Ext(filename))
	dir := strings.TrimSuffix(normalized, filename)

	var filenameBoost, pathBoost float32
	for _, word := range queryWords {
		switch {
		case word == filename || word == stem:
			filenameBoost = max(filenameBoost, b.FilenameExact)
		case strings.Contains(filename, word):
			filenameBoost = max(filenameBoost, b.FilenamePartial)
		case strings.Contains(dir, word):
			pathBoost = max(pathBoost, b.Path)
		}
	}

	total := filenameBoost + pathBoost
	if total > b.Cap {
		total = b.Cap
	}
	return total
}

// tokenize lowercases text and splits it on whitespace and punctuation,
// dropping empty tokens.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
