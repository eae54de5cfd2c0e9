package memory

import (
	"context"
	"errors"
	"slices"
	"testing"

	"wikitree/internal/domain"
	"wikitree/internal/domain/models/wiki"
)

func TestGroupRepository_Membership(t *testing.T) {
	ctx := context.Background()
	repo := NewGroupRepository(NewStore())

	g := &wiki.UserGroup{Name: "editors"}
	if err := repo.Create(ctx, g); err != nil {
		t.Fatal(err)
	}
	if err := repo.Create(ctx, &wiki.UserGroup{Name: "editors"}); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("duplicate group name should conflict, got %v", err)
	}
	if err := repo.AddMember(ctx, g.ID, "u1"); err != nil {
		t.Fatal(err)
	}
	if err := repo.AddMember(ctx, "missing", "u1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("adding to a missing group should fail, got %v", err)
	}

	ids, _ := repo.ListGroupIDsByUser(ctx, "u1")
	if !slices.Equal(ids, []string{g.ID}) {
		t.Errorf("ListGroupIDsByUser = %v", ids)
	}
	if n, _ := repo.CountByGroupAndUser(ctx, g.ID, "u2"); n != 0 {
		t.Errorf("non-member count = %d", n)
	}

	if err := repo.Delete(ctx, g.ID); err != nil {
		t.Fatal(err)
	}
	ids, _ = repo.ListGroupIDsByUser(ctx, "u1")
	if len(ids) != 0 {
		t.Errorf("memberships should go with the group, got %v", ids)
	}
}

func TestTagRepository_Replace(t *testing.T) {
	ctx := context.Background()
	repo := NewTagRepository(NewStore())

	_ = repo.ReplaceForPage(ctx, "p1", []string{"b", "a"})
	tags, _ := repo.ListByPageID(ctx, "p1")
	if !slices.Equal(tags, []string{"a", "b"}) {
		t.Errorf("tags = %v", tags)
	}

	_ = repo.ReplaceForPage(ctx, "p1", nil)
	tags, _ = repo.ListByPageID(ctx, "p1")
	if len(tags) != 0 {
		t.Errorf("tags after clear = %v", tags)
	}
}

func TestShareLinkRepository_DeleteByPageID(t *testing.T) {
	ctx := context.Background()
	repo := NewShareLinkRepository(NewStore())

	for _, page := range []string{"p1", "p1", "p2"} {
		if err := repo.Create(ctx, &wiki.ShareLink{RelatedPage: page}); err != nil {
			t.Fatal(err)
		}
	}

	n, err := repo.DeleteByPageID(ctx, "p1")
	if err != nil || n != 2 {
		t.Errorf("DeleteByPageID = %d, %v", n, err)
	}
	rest, _ := repo.ListByPageID(ctx, "p2")
	if len(rest) != 1 {
		t.Errorf("p2 links = %d", len(rest))
	}
}
