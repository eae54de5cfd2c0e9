package memory

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"wikitree/internal/domain"
	"wikitree/internal/domain/models/wiki"
	wikiRepo "wikitree/internal/domain/repositories/wiki"
)

type BookmarkRepository struct{ store *Store }

func NewBookmarkRepository(s *Store) wikiRepo.BookmarkRepository {
	return &BookmarkRepository{store: s}
}

func (r *BookmarkRepository) Create(ctx context.Context, b *wiki.Bookmark) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.bookmarks {
		if existing.PageID == b.PageID && existing.UserID == b.UserID {
			return &domain.ConflictError{
				Message:      "page is already bookmarked",
				ResourceType: "bookmark",
				ResourceID:   existing.ID,
			}
		}
	}
	b.ID = uuid.NewString()
	b.CreatedAt = s.now()
	stored := *b
	s.bookmarks[b.ID] = &stored
	return nil
}

func (r *BookmarkRepository) Delete(ctx context.Context, pageID, userID string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, b := range s.bookmarks {
		if b.PageID == pageID && b.UserID == userID {
			delete(s.bookmarks, id)
			return nil
		}
	}
	return fmt.Errorf("bookmark on page %s: %w", pageID, domain.ErrNotFound)
}

func (r *BookmarkRepository) CountByPageID(ctx context.Context, pageID string) (int, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, b := range s.bookmarks {
		if b.PageID == pageID {
			n++
		}
	}
	return n, nil
}

func (r *BookmarkRepository) DeleteByPageID(ctx context.Context, pageID string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, b := range s.bookmarks {
		if b.PageID == pageID {
			delete(s.bookmarks, id)
		}
	}
	return nil
}

type CommentRepository struct{ store *Store }

func NewCommentRepository(s *Store) wikiRepo.CommentRepository {
	return &CommentRepository{store: s}
}

func (r *CommentRepository) Create(ctx context.Context, c *wiki.Comment) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	c.ID = uuid.NewString()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now()
	}
	stored := *c
	s.comments[c.ID] = &stored
	return nil
}

func (r *CommentRepository) GetByID(ctx context.Context, id string) (*wiki.Comment, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.comments[id]
	if !ok {
		return nil, fmt.Errorf("comment %s: %w", id, domain.ErrNotFound)
	}
	out := *c
	return &out, nil
}

func (r *CommentRepository) Delete(ctx context.Context, id string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.comments[id]; !ok {
		return fmt.Errorf("comment %s: %w", id, domain.ErrNotFound)
	}
	delete(s.comments, id)
	return nil
}

func (r *CommentRepository) ListByPageID(ctx context.Context, pageID string) ([]wiki.Comment, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []wiki.Comment{}
	for _, c := range s.comments {
		if c.PageID == pageID {
			out = append(out, *c)
		}
	}
	slices.SortFunc(out, func(a, b wiki.Comment) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out, nil
}

func (r *CommentRepository) CountByPageID(ctx context.Context, pageID string) (int, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, c := range s.comments {
		if c.PageID == pageID {
			n++
		}
	}
	return n, nil
}

func (r *CommentRepository) DeleteByPageID(ctx context.Context, pageID string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, c := range s.comments {
		if c.PageID == pageID {
			delete(s.comments, id)
		}
	}
	return nil
}

type AttachmentRepository struct{ store *Store }

func NewAttachmentRepository(s *Store) wikiRepo.AttachmentRepository {
	return &AttachmentRepository{store: s}
}

func (r *AttachmentRepository) Create(ctx context.Context, a *wiki.Attachment) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	a.ID = uuid.NewString()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.now()
	}
	stored := *a
	s.attachments[a.ID] = &stored
	return nil
}

func (r *AttachmentRepository) ListByPageID(ctx context.Context, pageID string) ([]wiki.Attachment, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []wiki.Attachment{}
	for _, a := range s.attachments {
		if a.PageID == pageID {
			out = append(out, *a)
		}
	}
	slices.SortFunc(out, func(a, b wiki.Attachment) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out, nil
}

func (r *AttachmentRepository) DeleteByPageID(ctx context.Context, pageID string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, a := range s.attachments {
		if a.PageID == pageID {
			delete(s.attachments, id)
		}
	}
	return nil
}

type TagRepository struct{ store *Store }

func NewTagRepository(s *Store) wikiRepo.TagRepository {
	return &TagRepository{store: s}
}

func (r *TagRepository) ReplaceForPage(ctx context.Context, pageID string, tags []string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(tags) == 0 {
		delete(s.tags, pageID)
		return nil
	}
	s.tags[pageID] = slices.Clone(tags)
	return nil
}

func (r *TagRepository) ListByPageID(ctx context.Context, pageID string) ([]string, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := slices.Clone(s.tags[pageID])
	if out == nil {
		out = []string{}
	}
	slices.Sort(out)
	return out, nil
}

func (r *TagRepository) DeleteByPageID(ctx context.Context, pageID string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.tags, pageID)
	return nil
}

type ShareLinkRepository struct{ store *Store }

func NewShareLinkRepository(s *Store) wikiRepo.ShareLinkRepository {
	return &ShareLinkRepository{store: s}
}

func (r *ShareLinkRepository) Create(ctx context.Context, l *wiki.ShareLink) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	l.ID = uuid.NewString()
	if l.CreatedAt.IsZero() {
		l.CreatedAt = s.now()
	}
	stored := *l
	s.shareLinks[l.ID] = &stored
	return nil
}

func (r *ShareLinkRepository) GetByID(ctx context.Context, id string) (*wiki.ShareLink, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.shareLinks[id]
	if !ok {
		return nil, fmt.Errorf("share link %s: %w", id, domain.ErrNotFound)
	}
	out := *l
	return &out, nil
}

func (r *ShareLinkRepository) ListByPageID(ctx context.Context, pageID string) ([]wiki.ShareLink, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []wiki.ShareLink{}
	for _, l := range s.shareLinks {
		if l.RelatedPage == pageID {
			out = append(out, *l)
		}
	}
	slices.SortFunc(out, func(a, b wiki.ShareLink) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out, nil
}

func (r *ShareLinkRepository) Delete(ctx context.Context, id string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.shareLinks[id]; !ok {
		return fmt.Errorf("share link %s: %w", id, domain.ErrNotFound)
	}
	delete(s.shareLinks, id)
	return nil
}

func (r *ShareLinkRepository) DeleteByPageID(ctx context.Context, pageID string) (int, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, l := range s.shareLinks {
		if l.RelatedPage == pageID {
			delete(s.shareLinks, id)
			n++
		}
	}
	return n, nil
}
