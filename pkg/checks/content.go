package checks

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// ErrContentNotFound indicates a content href that does not resolve to a
// readable file.
var ErrContentNotFound = errors.New("check content not found")

// ContentPath resolves href against dir. Absolute hrefs are returned
// cleaned; relative hrefs may not escape dir.
func ContentPath(dir, href string) (string, error) {
	if href == "" {
		return "", fmt.Errorf("%w: empty href", ErrContentNotFound)
	}
	if filepath.IsAbs(href) {
		return filepath.Clean(href), nil
	}
	p := filepath.Join(dir, href)
	rel, err := filepath.Rel(dir, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("href %q escapes content directory", href)
	}
	return p, nil
}

// DocumentCache parses content files once and reparses them when their
// modification time changes.
type DocumentCache[T any] struct {
	parse func(path string, data []byte) (T, error)

	mu      sync.Mutex
	entries map[string]cacheEntry[T]
}

type cacheEntry[T any] struct {
	modTime time.Time
	size    int64
	doc     T
}

// NewDocumentCache returns a cache that uses parse to decode files.
func NewDocumentCache[T any](parse func(path string, data []byte) (T, error)) *DocumentCache[T] {
	return &DocumentCache[T]{
		parse:   parse,
		entries: make(map[string]cacheEntry[T]),
	}
}

// Get returns the parsed document at path.
func (c *DocumentCache[T]) Get(path string) (T, error) {
	var zero T

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return zero, fmt.Errorf("%w: %s", ErrContentNotFound, path)
		}
		return zero, fmt.Errorf("stat %s: %w", path, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[path]; ok && e.modTime.Equal(info.ModTime()) && e.size == info.Size() {
		return e.doc, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return zero, fmt.Errorf("read %s: %w", path, err)
	}
	doc, err := c.parse(path, data)
	if err != nil {
		return zero, err
	}
	c.entries[path] = cacheEntry[T]{modTime: info.ModTime(), size: info.Size(), doc: doc}
	return doc, nil
}

// Invalidate drops every cached document.
func (c *DocumentCache[T]) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry[T])
}

// Len returns the number of cached documents.
func (c *DocumentCache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
