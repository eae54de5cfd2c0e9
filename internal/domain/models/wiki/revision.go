package wiki

import "time"

// Format is the markup a revision body is stored in.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
	FormatText     Format = "text"
)

// Revision is an immutable snapshot of a page body.
// Revisions are keyed by the page path they were written under.
type Revision struct {
	ID        string    `json:"id" db:"id"`
	Path      string    `json:"path" db:"path"`
	Body      string    `json:"body" db:"body"`
	Format    Format    `json:"format" db:"format"`
	Author    *string   `json:"author,omitempty" db:"author"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
