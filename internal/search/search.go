// Package search keeps a full-text index of published pages and answers
// queries against it. Hits are re-checked against the page store so a
// viewer only sees pages they may list.
package search

import (
	"context"
	"time"

	"wikitree/internal/domain/models/wiki"
)

// Document is the data indexed for a page.
type Document struct {
	ID        string   `json:"id"`
	Path      string   `json:"path"`
	Body      string   `json:"body"`
	Tags      []string `json:"tags"`
	Grant     int      `json:"grant"`
	Creator   string   `json:"creator,omitempty"`
	UpdatedAt int64    `json:"updatedAt"`
}

// Hit is a raw index match.
type Hit struct {
	ID      string
	Snippet string
}

// Index is a full-text page index.
type Index interface {
	Upsert(ctx context.Context, docs []Document) error
	Delete(ctx context.Context, ids []string) error
	Search(ctx context.Context, text string, offset, limit int) ([]Hit, int, error)
	Healthy() bool
}

// Result is a single search hit returned to the caller.
type Result struct {
	Page    wiki.Page `json:"page"`
	Snippet string    `json:"snippet,omitempty"`
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// NewDocument builds the index record of page with the given body and tags.
func NewDocument(page *wiki.Page, body string, tags []string) Document {
	doc := Document{
		ID:        page.ID,
		Path:      page.Path,
		Body:      body,
		Tags:      tags,
		Grant:     int(page.Grant),
		UpdatedAt: page.UpdatedAt.Truncate(time.Second).Unix(),
	}
	if doc.Tags == nil {
		doc.Tags = []string{}
	}
	if page.Creator != nil {
		doc.Creator = *page.Creator
	}
	return doc
}
