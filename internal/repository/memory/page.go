package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"wikitree/internal/domain"
	"wikitree/internal/domain/models/wiki"
	"wikitree/internal/domain/pagequery"
	wikiRepo "wikitree/internal/domain/repositories/wiki"
)

// PageRepository implements wikiRepo.PageRepository over a Store
type PageRepository struct {
	store *Store
}

// NewPageRepository creates a page repository backed by s
func NewPageRepository(s *Store) wikiRepo.PageRepository {
	return &PageRepository{store: s}
}

func pathConflict(path, existingID string) error {
	return &domain.ConflictError{
		Message:      fmt.Sprintf("page '%s' already exists", path),
		ResourceType: "page",
		ResourceID:   existingID,
	}
}

// Create inserts a page
func (r *PageRepository) Create(ctx context.Context, page *wiki.Page) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.pathIndex[page.Path]; ok {
		return pathConflict(page.Path, id)
	}

	page.ID = uuid.NewString()
	now := s.now()
	if page.CreatedAt.IsZero() {
		page.CreatedAt = now
	}
	if page.UpdatedAt.IsZero() {
		page.UpdatedAt = now
	}

	s.pages[page.ID] = page.Clone()
	s.pathIndex[page.Path] = page.ID
	return nil
}

// Update saves page by ID
func (r *PageRepository) Update(ctx context.Context, page *wiki.Page) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.pages[page.ID]
	if !ok {
		return fmt.Errorf("page %s: %w", page.ID, domain.ErrNotFound)
	}
	if old.Path != page.Path {
		if id, taken := s.pathIndex[page.Path]; taken && id != page.ID {
			return pathConflict(page.Path, id)
		}
		delete(s.pathIndex, old.Path)
		s.pathIndex[page.Path] = page.ID
	}

	stored := page.Clone()
	stored.LatestRevision = nil
	stored.RevisionData = nil
	s.pages[page.ID] = stored
	return nil
}

// Delete removes a page
func (r *PageRepository) Delete(ctx context.Context, id string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	page, ok := s.pages[id]
	if !ok {
		return fmt.Errorf("page %s: %w", id, domain.ErrNotFound)
	}
	delete(s.pathIndex, page.Path)
	delete(s.pages, id)
	return nil
}

// GetByID retrieves a page by ID
func (r *PageRepository) GetByID(ctx context.Context, id string) (*wiki.Page, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	page, ok := s.pages[id]
	if !ok {
		return nil, fmt.Errorf("page %s: %w", id, domain.ErrNotFound)
	}
	return page.Clone(), nil
}

// GetByPath retrieves a page by its path
func (r *PageRepository) GetByPath(ctx context.Context, path string) (*wiki.Page, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.pathIndex[path]
	if !ok {
		return nil, fmt.Errorf("page at %s: %w", path, domain.ErrNotFound)
	}
	return s.pages[id].Clone(), nil
}

// FindOne returns the first match of q
func (r *PageRepository) FindOne(ctx context.Context, q *pagequery.Query) (*wiki.Page, error) {
	one := *q
	one.Limit = 1
	pages, err := r.Find(ctx, &one)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("page: %w", domain.ErrNotFound)
	}
	return &pages[0], nil
}

// Find returns every match of q in sort order
func (r *PageRepository) Find(ctx context.Context, q *pagequery.Query) ([]wiki.Page, error) {
	matched := r.match(q)
	sortPages(matched, q.Sort, q.Desc)

	if q.Offset >= len(matched) {
		return []wiki.Page{}, nil
	}
	matched = matched[q.Offset:]
	if q.Limit > 0 && q.Limit < len(matched) {
		matched = matched[:q.Limit]
	}

	out := make([]wiki.Page, len(matched))
	for i, p := range matched {
		out[i] = *p.Clone()
	}
	return out, nil
}

// Count returns the number of matches of q
func (r *PageRepository) Count(ctx context.Context, q *pagequery.Query) (int, error) {
	return len(r.match(q)), nil
}

func (r *PageRepository) match(q *pagequery.Query) []*wiki.Page {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*wiki.Page
	for _, p := range s.pages {
		if q.Match(p) {
			matched = append(matched, p)
		}
	}
	return matched
}

// sortPages orders pages by key, breaking ties by path so results are stable.
func sortPages(pages []*wiki.Page, key pagequery.SortKey, desc bool) {
	slices.SortFunc(pages, func(a, b *wiki.Page) int {
		var c int
		switch key {
		case pagequery.SortCreatedAt:
			c = a.CreatedAt.Compare(b.CreatedAt)
		case pagequery.SortUpdatedAt:
			c = a.UpdatedAt.Compare(b.UpdatedAt)
		}
		if c == 0 {
			c = cmp.Compare(a.Path, b.Path)
		}
		if desc {
			return -c
		}
		return c
	})
}
