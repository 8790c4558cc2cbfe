package vault

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Document is one enumerated note with its size metadata
type Document struct {
	Path      string // Relative to the vault root, forward slashes
	SizeBytes int64
}

// Store enumerates documents and reads their text content
type Store interface {
	ListDocuments(ctx context.Context) ([]Document, error)
	ReadText(ctx context.Context, path string) (string, error)
}

// DefaultMaxFileSize bounds which notes are eligible for indexing (1 MiB)
const DefaultMaxFileSize int64 = 1 << 20

// markdownExtensions lists the file extensions treated as notes
var markdownExtensions = map[string]bool{
	".md":       true,
	".markdown": true,
	".txt":      true,
}

// FSVault implements Store over a filesystem directory of markdown notes
type FSVault struct {
	root        string
	maxFileSize int64
	exclude     []string // glob patterns matched against relative paths
}

// Option configures an FSVault
type Option func(*FSVault)

// WithMaxFileSize overrides the default size cutoff
func WithMaxFileSize(n int64) Option {
	return func(v *FSVault) { v.maxFileSize = n }
}

// WithExcludeGlobs skips documents whose relative path matches any pattern
func WithExcludeGlobs(patterns []string) Option {
	return func(v *FSVault) { v.exclude = patterns }
}

// NewFSVault creates a vault rooted at dir
func NewFSVault(dir string, opts ...Option) (*FSVault, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("vault root not accessible: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("vault root %s is not a directory", dir)
	}

	v := &FSVault{
		root:        dir,
		maxFileSize: DefaultMaxFileSize,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Root returns the vault root directory
func (v *FSVault) Root() string {
	return v.root
}

// ListDocuments walks the vault and returns all eligible notes
func (v *FSVault) ListDocuments(ctx context.Context) ([]Document, error) {
	var docs []Document

	err := filepath.WalkDir(v.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if d.IsDir() {
			// Skip hidden directories (.obsidian, .git, ...)
			if path != v.root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		if !markdownExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		rel, err := filepath.Rel(v.root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if v.excluded(rel) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil // File vanished mid-walk, skip
		}
		if info.Size() > v.maxFileSize {
			return nil
		}

		docs = append(docs, Document{Path: rel, SizeBytes: info.Size()})
		return nil
	})

	if err != nil {
		return nil, err
	}
	return docs, nil
}

// ReadText reads a note's content by its vault-relative path
func (v *FSVault) ReadText(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	full := filepath.Join(v.root, filepath.FromSlash(path))

	// Reject traversal outside the vault root
	if rel, err := filepath.Rel(v.root, full); err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("path %q escapes vault root", path)
	}

	content, err := os.ReadFile(full)
	if err != nil {
		return "", fmt.Errorf("failed to read note %s: %w", path, err)
	}
	return string(content), nil
}

// excluded reports whether a relative path matches any exclusion glob,
// checking the full path and each path segment
func (v *FSVault) excluded(rel string) bool {
	for _, pattern := range v.exclude {
		if ok, _ := filepath.Match(pattern, rel); ok {
			return true
		}
		for _, segment := range strings.Split(rel, "/") {
			if ok, _ := filepath.Match(pattern, segment); ok {
				return true
			}
		}
	}
	return false
}

// Title derives a display name from a vault-relative path
func Title(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
