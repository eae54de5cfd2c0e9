package format

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"wikitree/internal/domain"
	"wikitree/internal/domain/models/wiki"
)

// Registry routes bodies to converters by revision format or file extension.
//
// Thread-safe for concurrent access.
type Registry struct {
	mu          sync.RWMutex
	byFormat    map[wiki.Format]Converter
	byExtension map[string]Converter
}

// NewRegistry creates a registry with the markdown, text and HTML converters.
func NewRegistry() *Registry {
	r := &Registry{
		byFormat:    make(map[wiki.Format]Converter),
		byExtension: make(map[string]Converter),
	}
	r.Register(NewMarkdownConverter())
	r.Register(NewTextConverter())
	r.Register(NewHTMLConverter())
	return r
}

// Register adds c, replacing any converter for the same format or extensions.
// Extensions are normalized to lowercase with a leading dot.
func (r *Registry) Register(c Converter) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byFormat[c.Format()] = c
	for _, ext := range c.Extensions() {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		r.byExtension[ext] = c
	}
}

// ToMarkdown converts body from f to markdown. An empty format means markdown.
func (r *Registry) ToMarkdown(ctx context.Context, f wiki.Format, body string) (string, error) {
	if f == "" {
		f = wiki.FormatMarkdown
	}

	r.mu.RLock()
	c, ok := r.byFormat[f]
	r.mu.RUnlock()
	if !ok {
		return "", &domain.ValidationError{Message: fmt.Sprintf("unsupported format %q", f)}
	}
	return c.Convert(ctx, []byte(body))
}

// ConvertFile converts a file by its extension. ok is false when no
// converter handles the extension.
func (r *Registry) ConvertFile(ctx context.Context, filename string, content []byte) (markdown string, ok bool, err error) {
	r.mu.RLock()
	c, found := r.byExtension[strings.ToLower(filepath.Ext(filename))]
	r.mu.RUnlock()
	if !found {
		return "", false, nil
	}

	markdown, err = c.Convert(ctx, content)
	if err != nil {
		return "", true, fmt.Errorf("convert %s: %w", filename, err)
	}
	return markdown, true, nil
}

// SupportedExtensions returns all registered extensions, sorted.
func (r *Registry) SupportedExtensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exts := make([]string, 0, len(r.byExtension))
	for ext := range r.byExtension {
		exts = append(exts, ext)
	}
	slices.Sort(exts)
	return exts
}
