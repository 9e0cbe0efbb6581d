package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar"
	"github.com/depscope/depscope/pkg/logger"
)

// maxWalkDepth bounds directory recursion so that pathological trees and
// undetected link loops still terminate.
const maxWalkDepth = 64

// DefaultExtensions is the supported source extension set.
var DefaultExtensions = []string{
	".js", ".jsx", ".mjs", ".cjs",
	".ts", ".tsx", ".mts", ".cts",
	".vue",
	".css", ".scss", ".less",
}

// defaultSkipDirs are never descended into regardless of configuration.
var defaultSkipDirs = map[string]bool{
	"node_modules":     true,
	"vendor":           true,
	"bower_components": true,
	"dist":             true,
	"build":            true,
	"out":              true,
	"coverage":         true,
	".git":             true,
	".svn":             true,
	".hg":              true,
	".idea":            true,
	".vscode":          true,
}

// Options configures a scan.
type Options struct {
	// ExcludePatterns are doublestar globs or plain path fragments matched
	// against the path relative to the root.
	ExcludePatterns []string

	// Extensions overrides DefaultExtensions when non-empty.
	Extensions []string

	// FollowSymlinks enables descending into symlinked directories. Link
	// cycles are detected via real-path identity and skipped with a warning.
	FollowSymlinks bool
}

// Result is the outcome of a scan.
type Result struct {
	// Files are absolute paths, deduplicated and sorted.
	Files []string

	// Warnings from skipped subtrees (permissions, link cycles).
	Warnings []string
}

// Scan walks root and returns candidate source files. Unreadable
// directories and symlink cycles are skipped with a warning; Scan itself
// fails only when the root is unusable.
func Scan(root string, opts Options) (*Result, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve project root %s: %w", root, err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("cannot stat project root %s: %w", absRoot, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("project root %s is not a directory", absRoot)
	}

	exts := opts.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	extSet := make(map[string]bool, len(exts))
	for _, e := range exts {
		extSet[strings.ToLower(e)] = true
	}

	s := &scan{
		root:    absRoot,
		opts:    opts,
		extSet:  extSet,
		seen:    make(map[string]bool),
		visited: make(map[string]bool),
	}

	if real, err := filepath.EvalSymlinks(absRoot); err == nil {
		s.visited[real] = true
	}
	s.walk(absRoot, 0)

	sort.Strings(s.files)
	return &Result{Files: s.files, Warnings: s.warnings}, nil
}

type scan struct {
	root     string
	opts     Options
	extSet   map[string]bool
	files    []string
	warnings []string
	seen     map[string]bool // absolute file paths, dedup
	visited  map[string]bool // real paths of entered directories
}

func (s *scan) walk(dir string, depth int) {
	if depth > maxWalkDepth {
		s.warnings = append(s.warnings,
			fmt.Sprintf("directory nesting exceeds %d levels at %s; subtree skipped", maxWalkDepth, dir))
		return
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		s.warnings = append(s.warnings, fmt.Sprintf("cannot read directory %s: %v", dir, err))
		return
	}

	for _, entry := range entries {
		name := entry.Name()
		path := filepath.Join(dir, name)

		if entry.IsDir() || s.isSymlinkDir(path, entry) {
			if s.skipDir(name, path) {
				continue
			}
			if entry.Type()&os.ModeSymlink != 0 {
				if !s.opts.FollowSymlinks {
					continue
				}
				real, err := filepath.EvalSymlinks(path)
				if err != nil {
					s.warnings = append(s.warnings, fmt.Sprintf("broken symlink at %s: %v", path, err))
					continue
				}
				if s.visited[real] {
					s.warnings = append(s.warnings, fmt.Sprintf("symlink cycle at %s; subtree skipped", path))
					continue
				}
				s.visited[real] = true
			} else {
				if real, err := filepath.EvalSymlinks(path); err == nil {
					if s.visited[real] {
						s.warnings = append(s.warnings, fmt.Sprintf("directory revisit at %s; subtree skipped", path))
						continue
					}
					s.visited[real] = true
				}
			}
			s.walk(path, depth+1)
			continue
		}

		if !entry.Type().IsRegular() {
			continue
		}
		if strings.HasPrefix(name, ".") {
			continue
		}
		if !s.extSet[strings.ToLower(filepath.Ext(name))] {
			continue
		}
		if s.excluded(path) {
			continue
		}
		if !s.seen[path] {
			s.seen[path] = true
			s.files = append(s.files, path)
		}
	}
}

func (s *scan) isSymlinkDir(path string, entry os.DirEntry) bool {
	if entry.Type()&os.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func (s *scan) skipDir(name, path string) bool {
	if defaultSkipDirs[name] {
		return true
	}
	if strings.HasPrefix(name, ".") {
		return true
	}
	return s.excluded(path)
}

// excluded matches the path (relative to root) against the configured
// patterns: first as a doublestar glob, then as a plain fragment.
func (s *scan) excluded(path string) bool {
	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		rel = path
	}
	rel = filepath.ToSlash(rel)

	for _, pattern := range s.opts.ExcludePatterns {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
		if strings.Contains(rel, pattern) {
			logger.Debugf("scanner: %s excluded by fragment %q", rel, pattern)
			return true
		}
	}
	return false
}
