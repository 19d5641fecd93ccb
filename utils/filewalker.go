package utils

import (
	"bytes"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/gobwas/glob"
)

// FileInfo represents a discovered file
type FileInfo struct {
	RelativePath string
	Content      string
}

// WalkDirectoryOptions configures directory traversal
type WalkDirectoryOptions struct {
	RootPath        string
	IncludePatterns []string
	ExcludePatterns []string
	IgnoreFile      string // relative to RootPath, e.g. ".gitignore"; empty disables
	MaxFileSize     int64
	MaxFiles        int
	Logger          *slog.Logger
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WalkDirectory traverses a directory and returns matching files in walk
// order. The order is stable for a given tree, so callers may address the
// result by index.
func WalkDirectory(opts WalkDirectoryOptions) ([]FileInfo, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	includeGlobs, err := compileGlobs(opts.IncludePatterns)
	if err != nil {
		return nil, fmt.Errorf("invalid include pattern: %w", err)
	}
	excludeGlobs, err := compileGlobs(opts.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("invalid exclude pattern: %w", err)
	}

	// Get absolute path for proper relative path calculation
	absRoot, err := filepath.Abs(opts.RootPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", opts.RootPath)
	}

	var ignore *IgnoreMatcher
	if opts.IgnoreFile != "" {
		ignore, err = LoadIgnoreFile(filepath.Join(absRoot, opts.IgnoreFile))
		if err != nil {
			logger.Warn("could not read ignore file", "path", opts.IgnoreFile, "error", err)
		} else if ignore != nil {
			logger.Debug("loaded ignore patterns", "path", opts.IgnoreFile, "rules", ignore.Len())
		}
	}

	var files []FileInfo
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == absRoot {
			return nil
		}

		relPath, err := filepath.Rel(absRoot, path)
		if err != nil {
			return err
		}
		// Normalize path separators for matching (use forward slash)
		normalizedPath := filepath.ToSlash(relPath)

		if d.IsDir() {
			if ignore.Match(normalizedPath, true) || matchPath(excludeGlobs, normalizedPath+"/") {
				return filepath.SkipDir
			}
			return nil
		}

		if ignore.Match(normalizedPath, false) || matchPath(excludeGlobs, normalizedPath) {
			logger.Debug("skipped", "path", normalizedPath, "reason", "excluded")
			return nil
		}
		if len(includeGlobs) > 0 && !matchPath(includeGlobs, normalizedPath) {
			logger.Debug("skipped", "path", normalizedPath, "reason", "not included")
			return nil
		}

		info, err := d.Info()
		if err != nil {
			logger.Warn("could not stat file", "path", normalizedPath, "error", err)
			return nil
		}
		if opts.MaxFileSize > 0 && info.Size() > opts.MaxFileSize {
			logger.Debug("skipped", "path", normalizedPath, "reason", "size limit", "size", info.Size())
			return nil
		}

		if opts.MaxFiles > 0 && len(files) >= opts.MaxFiles {
			return filepath.SkipAll
		}

		content, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("could not read file", "path", normalizedPath, "error", err)
			return nil
		}
		content = bytes.TrimPrefix(content, utf8BOM)
		if !utf8.Valid(content) {
			logger.Warn("could not decode file as UTF-8", "path", normalizedPath)
			return nil
		}

		files = append(files, FileInfo{
			RelativePath: normalizedPath,
			Content:      string(content),
		})
		logger.Debug("collected", "path", normalizedPath, "count", len(files))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking directory: %w", err)
	}

	return files, nil
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", pattern, err)
		}
		globs = append(globs, g)
	}
	return globs, nil
}

// matchPath matches the slash-separated relative path and its last
// element. A trailing "/" marks a directory and is kept on the base name.
func matchPath(globs []glob.Glob, rel string) bool {
	if matchAny(globs, rel) {
		return true
	}
	base := path.Base(strings.TrimSuffix(rel, "/"))
	if strings.HasSuffix(rel, "/") {
		base += "/"
	}
	return base != rel && matchAny(globs, base)
}

func matchAny(globs []glob.Glob, path string) bool {
	for _, g := range globs {
		if g.Match(path) {
			return true
		}
	}
	return false
}
