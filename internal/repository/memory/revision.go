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

// RevisionRepository implements wikiRepo.RevisionRepository over a Store
type RevisionRepository struct {
	store *Store
}

// NewRevisionRepository creates a revision repository backed by s
func NewRevisionRepository(s *Store) wikiRepo.RevisionRepository {
	return &RevisionRepository{store: s}
}

func (r *RevisionRepository) Create(ctx context.Context, rev *wiki.Revision) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	rev.ID = uuid.NewString()
	if rev.CreatedAt.IsZero() {
		rev.CreatedAt = s.now()
	}
	stored := *rev
	s.revisions[rev.ID] = &stored
	return nil
}

func (r *RevisionRepository) GetByID(ctx context.Context, id string) (*wiki.Revision, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	rev, ok := s.revisions[id]
	if !ok {
		return nil, fmt.Errorf("revision %s: %w", id, domain.ErrNotFound)
	}
	out := *rev
	return &out, nil
}

func (r *RevisionRepository) ListByPath(ctx context.Context, path string) ([]wiki.Revision, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []wiki.Revision{}
	for _, rev := range s.revisions {
		if rev.Path == path {
			out = append(out, *rev)
		}
	}
	slices.SortFunc(out, func(a, b wiki.Revision) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

func (r *RevisionRepository) UpdatePath(ctx context.Context, oldPath, newPath string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, rev := range s.revisions {
		if rev.Path == oldPath {
			moved := *rev
			moved.Path = newPath
			s.revisions[id] = &moved
		}
	}
	return nil
}

func (r *RevisionRepository) DeleteByPath(ctx context.Context, path string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, rev := range s.revisions {
		if rev.Path == path {
			delete(s.revisions, id)
		}
	}
	return nil
}
