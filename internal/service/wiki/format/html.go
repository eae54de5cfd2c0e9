package format

import (
	"context"
	"fmt"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/microcosm-cc/bluemonday"

	"wikitree/internal/domain/models/wiki"
)

// htmlConverter sanitizes HTML and then converts it to markdown.
type htmlConverter struct {
	policy    *bluemonday.Policy
	converter *md.Converter
}

// NewHTMLConverter returns an HTML converter using the UGC sanitizing policy.
// Scripts, event handlers and javascript: URLs are removed before conversion.
func NewHTMLConverter() Converter {
	policy := bluemonday.UGCPolicy()
	policy.AllowDataURIImages()

	return &htmlConverter{
		policy:    policy,
		converter: md.NewConverter("", true, nil),
	}
}

func (c *htmlConverter) Convert(ctx context.Context, input []byte) (string, error) {
	sanitized := c.policy.SanitizeBytes(input)

	markdown, err := c.converter.ConvertBytes(sanitized)
	if err != nil {
		return "", fmt.Errorf("convert html to markdown: %w", err)
	}
	return string(markdown), nil
}

func (c *htmlConverter) Format() wiki.Format  { return wiki.FormatHTML }
func (c *htmlConverter) Extensions() []string { return []string{".html", ".htm"} }
