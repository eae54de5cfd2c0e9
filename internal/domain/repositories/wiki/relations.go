package wiki

import (
	"context"

	"wikitree/internal/domain/models/wiki"
)

// The repositories below hold records owned by a page id. Completely deleting
// a page calls every DeleteByPageID.

type BookmarkRepository interface {
	Create(ctx context.Context, b *wiki.Bookmark) error
	Delete(ctx context.Context, pageID, userID string) error
	CountByPageID(ctx context.Context, pageID string) (int, error)
	DeleteByPageID(ctx context.Context, pageID string) error
}

type CommentRepository interface {
	Create(ctx context.Context, c *wiki.Comment) error
	GetByID(ctx context.Context, id string) (*wiki.Comment, error)
	Delete(ctx context.Context, id string) error
	ListByPageID(ctx context.Context, pageID string) ([]wiki.Comment, error)
	CountByPageID(ctx context.Context, pageID string) (int, error)
	DeleteByPageID(ctx context.Context, pageID string) error
}

type AttachmentRepository interface {
	Create(ctx context.Context, a *wiki.Attachment) error
	ListByPageID(ctx context.Context, pageID string) ([]wiki.Attachment, error)
	DeleteByPageID(ctx context.Context, pageID string) error
}

type TagRepository interface {
	// ReplaceForPage makes tags the exact tag set of pageID.
	ReplaceForPage(ctx context.Context, pageID string, tags []string) error
	ListByPageID(ctx context.Context, pageID string) ([]string, error)
	DeleteByPageID(ctx context.Context, pageID string) error
}

type ShareLinkRepository interface {
	Create(ctx context.Context, l *wiki.ShareLink) error
	GetByID(ctx context.Context, id string) (*wiki.ShareLink, error)
	ListByPageID(ctx context.Context, pageID string) ([]wiki.ShareLink, error)
	Delete(ctx context.Context, id string) error
	DeleteByPageID(ctx context.Context, pageID string) (int, error)
}
