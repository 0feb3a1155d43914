package filewalker

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DefaultSuffix is the extension of twee source files.
const DefaultSuffix = ".twee"

// Walker collects source files under a root directory.
type Walker struct {
	suffix   string
	excludes []string
}

// NewWalker creates a Walker for files ending in suffix, skipping paths that
// match any of the doublestar exclude patterns relative to the root.
func NewWalker(suffix string, excludes []string) *Walker {
	if suffix == "" {
		suffix = DefaultSuffix
	}
	return &Walker{
		suffix:   strings.ToLower(suffix),
		excludes: excludes,
	}
}

// FileEntry is a discovered source file.
type FileEntry struct {
	// Path is the absolute path.
	Path string
	// Rel is the slash separated path relative to the walk root.
	Rel  string
	Size int64
}

// Walk discovers all source files under root in lexical order.
func (w *Walker) Walk(root string) ([]FileEntry, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root path: %w", err)
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root is not a directory: %s", root)
	}

	var entries []FileEntry

	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Error walking path")
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if info.IsDir() {
			if rel != "." && w.excluded(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}

		if !strings.HasSuffix(strings.ToLower(path), w.suffix) || w.excluded(rel) {
			return nil
		}

		entries = append(entries, FileEntry{
			Path: path,
			Rel:  rel,
			Size: info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}

	log.Info().Int("count", len(entries)).Str("root", root).Msg("Discovered files")
	return entries, nil
}

func (w *Walker) excluded(rel string) bool {
	for _, pattern := range w.excludes {
		matched, err := doublestar.Match(pattern, rel)
		if err == nil && matched {
			return true
		}
	}
	return false
}

// ReadSource reads a source file as text. A UTF-8 or UTF-16 byte order mark
// selects the encoding and is stripped; without one the file is read as UTF-8.
func ReadSource(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read source: %w", err)
	}
	decoded, _, err := transform.Bytes(unicode.BOMOverride(transform.Nop), data)
	if err != nil {
		return "", fmt.Errorf("decode source %s: %w", path, err)
	}
	return string(decoded), nil
}
