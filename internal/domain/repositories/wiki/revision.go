package wiki

import (
	"context"

	"wikitree/internal/domain/models/wiki"
)

// RevisionRepository stores immutable page bodies keyed by page path.
type RevisionRepository interface {
	Create(ctx context.Context, rev *wiki.Revision) error
	GetByID(ctx context.Context, id string) (*wiki.Revision, error)

	// ListByPath returns the history of a path, newest first.
	ListByPath(ctx context.Context, path string) ([]wiki.Revision, error)

	// UpdatePath moves every revision of oldPath to newPath.
	UpdatePath(ctx context.Context, oldPath, newPath string) error

	// DeleteByPath removes every revision of path.
	DeleteByPath(ctx context.Context, path string) error
}
