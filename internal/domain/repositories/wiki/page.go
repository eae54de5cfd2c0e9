package wiki

import (
	"context"

	"wikitree/internal/domain/models/wiki"
	"wikitree/internal/domain/pagequery"
)

// PageRepository persists pages. Queries come from pagequery.Builder and each
// implementation compiles them for its own store.
type PageRepository interface {
	// Create inserts a page, assigning its ID. A taken path yields *domain.ConflictError.
	Create(ctx context.Context, page *wiki.Page) error

	// Update saves every persisted field of page by ID.
	Update(ctx context.Context, page *wiki.Page) error

	// Delete removes a page permanently.
	Delete(ctx context.Context, id string) error

	GetByID(ctx context.Context, id string) (*wiki.Page, error)
	GetByPath(ctx context.Context, path string) (*wiki.Page, error)

	// FindOne returns the first page matching q in q's sort order, or domain.ErrNotFound.
	FindOne(ctx context.Context, q *pagequery.Query) (*wiki.Page, error)

	// Find returns the pages matching q, honoring sort, offset and limit.
	Find(ctx context.Context, q *pagequery.Query) ([]wiki.Page, error)

	// Count returns the number of pages matching q, ignoring offset and limit.
	Count(ctx context.Context, q *pagequery.Query) (int, error)
}
