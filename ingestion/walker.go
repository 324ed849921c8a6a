package ingestion

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/poiesic/smartsearch/chunker"
)

// MaxFileSize is the largest source file the walker will read.
const MaxFileSize = 1 << 20 // 1 MiB

// skipDirs are directory names never descended into. They hold build
// output, dependency trees, or editor state rather than user content.
var skipDirs = map[string]bool{
	".venv":        true,
	".git":         true,
	"node_modules": true,
	"__pycache__":  true,
	".smart-env":   true,
	"dist":         true,
	"build":        true,
	".next":        true,
	".cache":       true,
	".obsidian":    true,
	".trash":       true,
}

// indexableExts are the file extensions considered indexable content.
var indexableExts = map[string]bool{
	".md":   true,
	".txt":  true,
	".py":   true,
	".js":   true,
	".ts":   true,
	".html": true,
	".css":  true,
	".json": true,
}

// sourceFile is one readable text file discovered under the build root.
type sourceFile struct {
	path string // absolute, slash-separated
	text string
}

// collectFiles walks root and returns every indexable text file, in
// lexical path order. Files that are too large, binary, or unreadable are
// counted and noted in the report but do not fail the walk.
func (p *Pipeline) collectFiles(root string, report *Report) ([]sourceFile, error) {
	var files []sourceFile

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			report.skip(fmt.Sprintf("%s: %v", path, err))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path != root && skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}

		if !indexableExts[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		report.FilesWalked++

		info, err := d.Info()
		if err != nil {
			report.skip(fmt.Sprintf("%s: %v", path, err))
			return nil
		}
		if info.Size() > MaxFileSize {
			report.skip(fmt.Sprintf("%s: exceeds %d byte limit", path, MaxFileSize))
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			report.skip(fmt.Sprintf("%s: %v", path, err))
			return nil
		}
		if !chunker.IsText(data) {
			report.skip(fmt.Sprintf("%s: binary content", path))
			return nil
		}
		if len(strings.TrimSpace(string(data))) == 0 {
			report.skip(fmt.Sprintf("%s: empty", path))
			return nil
		}

		files = append(files, sourceFile{
			path: filepath.ToSlash(path),
			text: string(data),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
