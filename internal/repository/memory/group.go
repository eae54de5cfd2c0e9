package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"wikitree/internal/domain"
	"wikitree/internal/domain/models/wiki"
	wikiRepo "wikitree/internal/domain/repositories/wiki"
)

// GroupRepository implements wikiRepo.GroupRepository over a Store
type GroupRepository struct {
	store *Store
}

// NewGroupRepository creates a group repository backed by s
func NewGroupRepository(s *Store) wikiRepo.GroupRepository {
	return &GroupRepository{store: s}
}

func (r *GroupRepository) Create(ctx context.Context, group *wiki.UserGroup) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, g := range s.groups {
		if g.Name == group.Name {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("group '%s' already exists", group.Name),
				ResourceType: "group",
				ResourceID:   g.ID,
			}
		}
	}

	group.ID = uuid.NewString()
	if group.CreatedAt.IsZero() {
		group.CreatedAt = s.now()
	}
	stored := *group
	s.groups[group.ID] = &stored
	return nil
}

func (r *GroupRepository) GetByID(ctx context.Context, id string) (*wiki.UserGroup, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.groups[id]
	if !ok {
		return nil, fmt.Errorf("group %s: %w", id, domain.ErrNotFound)
	}
	out := *g
	return &out, nil
}

func (r *GroupRepository) Delete(ctx context.Context, id string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groups[id]; !ok {
		return fmt.Errorf("group %s: %w", id, domain.ErrNotFound)
	}
	delete(s.groups, id)
	delete(s.members, id)
	return nil
}

func (r *GroupRepository) AddMember(ctx context.Context, groupID, userID string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groups[groupID]; !ok {
		return fmt.Errorf("group %s: %w", groupID, domain.ErrNotFound)
	}
	if s.members[groupID] == nil {
		s.members[groupID] = make(map[string]struct{})
	}
	s.members[groupID][userID] = struct{}{}
	return nil
}

func (r *GroupRepository) RemoveMember(ctx context.Context, groupID, userID string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.members[groupID], userID)
	return nil
}

func (r *GroupRepository) ListGroupIDsByUser(ctx context.Context, userID string) ([]string, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := []string{}
	for groupID, users := range s.members {
		if _, ok := users[userID]; ok {
			ids = append(ids, groupID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *GroupRepository) CountByGroupAndUser(ctx context.Context, groupID, userID string) (int, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.members[groupID][userID]; ok {
		return 1, nil
	}
	return 0, nil
}
