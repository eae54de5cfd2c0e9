// Package format turns incoming page bodies into markdown, the storage
// format of every revision, and renders exported bodies with front matter.
package format

import (
	"context"

	"wikitree/internal/domain/models/wiki"
)

// Converter converts one source format to markdown.
// Implementations are stateless and safe for concurrent use.
type Converter interface {
	Convert(ctx context.Context, input []byte) (markdown string, err error)

	// Format is the revision format this converter accepts.
	Format() wiki.Format

	// Extensions lists the file extensions it handles, with the leading dot.
	Extensions() []string
}

type markdownConverter struct{}

// NewMarkdownConverter returns the passthrough converter for markdown.
func NewMarkdownConverter() Converter { return markdownConverter{} }

func (markdownConverter) Convert(ctx context.Context, input []byte) (string, error) {
	return string(input), nil
}
func (markdownConverter) Format() wiki.Format  { return wiki.FormatMarkdown }
func (markdownConverter) Extensions() []string { return []string{".md", ".markdown"} }

type textConverter struct{}

// NewTextConverter returns the converter for plain text, which is already
// valid markdown.
func NewTextConverter() Converter { return textConverter{} }

func (textConverter) Convert(ctx context.Context, input []byte) (string, error) {
	return string(input), nil
}
func (textConverter) Format() wiki.Format  { return wiki.FormatText }
func (textConverter) Extensions() []string { return []string{".txt", ".text"} }
