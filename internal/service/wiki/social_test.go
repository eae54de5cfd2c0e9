package wiki

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"wikitree/internal/domain"
)

func TestLikeUnlikeSeen(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	page := f.create(t, alice, "/p")
	updatedAt := f.at(t, "/p").UpdatedAt

	for range 2 {
		if _, err := f.svc.Like(ctx, bob, page.ID); err != nil {
			t.Fatalf("like: %v", err)
		}
	}
	got := f.at(t, "/p")
	if !slices.Equal(got.Liker, []string{bob.ID}) {
		t.Errorf("liker = %v", got.Liker)
	}
	if !got.UpdatedAt.Equal(updatedAt) {
		t.Errorf("like must not touch updatedAt")
	}

	if _, err := f.svc.Unlike(ctx, bob, page.ID); err != nil {
		t.Fatalf("unlike: %v", err)
	}
	if got := f.at(t, "/p"); len(got.Liker) != 0 {
		t.Errorf("liker after unlike = %v", got.Liker)
	}

	if _, err := f.svc.MarkSeen(ctx, bob, page.ID); err != nil {
		t.Fatalf("seen: %v", err)
	}
	if got := f.at(t, "/p"); !slices.Equal(got.SeenUsers, []string{bob.ID}) {
		t.Errorf("seen = %v", got.SeenUsers)
	}

	if likers, err := f.svc.Likers(ctx, nil, page.ID); err != nil || len(likers) != 0 || likers == nil {
		t.Errorf("likers after unlike = %v, %v", likers, err)
	}
	if seen, err := f.svc.SeenUsers(ctx, alice, page.ID); err != nil || !slices.Equal(seen, []string{bob.ID}) {
		t.Errorf("seen users = %v, %v", seen, err)
	}

	var forbidden *domain.ForbiddenError
	if _, err := f.svc.Like(ctx, nil, page.ID); !errors.As(err, &forbidden) {
		t.Errorf("anonymous like: got %v", err)
	}
}

func TestUpdateSlackChannel(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	page := f.create(t, alice, "/p")

	got, err := f.svc.UpdateSlackChannel(ctx, alice, page.ID, " dev,ops ")
	if err != nil {
		t.Fatalf("slack: %v", err)
	}
	if got.SlackChannels() != "dev,ops" {
		t.Errorf("channels = %q", got.SlackChannels())
	}
	if _, err := f.svc.UpdateSlackChannel(ctx, alice, page.ID, ""); err != nil {
		t.Fatalf("clear slack: %v", err)
	}
	if got := f.at(t, "/p"); got.SlackChannels() != "" {
		t.Errorf("cleared channels = %q", got.SlackChannels())
	}

	var verr *domain.ValidationError
	if _, err := f.svc.UpdateSlackChannel(ctx, alice, page.ID, strings.Repeat("c", MaxSlackLength+1)); !errors.As(err, &verr) {
		t.Errorf("long channel list: got %v", err)
	}
}

func TestComments(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	page := f.create(t, alice, "/p")

	c1, err := f.svc.AddComment(ctx, alice, page.ID, "first")
	if err != nil {
		t.Fatalf("comment: %v", err)
	}
	if _, err := f.svc.AddComment(ctx, bob, page.ID, "second"); err != nil {
		t.Fatalf("comment: %v", err)
	}
	if got := f.at(t, "/p").CommentCount; got != 2 {
		t.Errorf("comment count = %d", got)
	}

	var verr *domain.ValidationError
	if _, err := f.svc.AddComment(ctx, alice, page.ID, "  "); !errors.As(err, &verr) {
		t.Errorf("blank comment: got %v", err)
	}

	var forbidden *domain.ForbiddenError
	if err := f.svc.DeleteComment(ctx, bob, c1.ID); !errors.As(err, &forbidden) {
		t.Errorf("bob deleting alice's comment: got %v", err)
	}
	if err := f.svc.DeleteComment(ctx, admin, c1.ID); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
	if got := f.at(t, "/p").CommentCount; got != 1 {
		t.Errorf("comment count after delete = %d", got)
	}

	comments, err := f.svc.ListComments(ctx, bob, page.ID)
	if err != nil {
		t.Fatalf("list comments: %v", err)
	}
	if len(comments) != 1 || comments[0].Body != "second" {
		t.Errorf("comments = %+v", comments)
	}
}

func TestUpdateTags(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	page := f.create(t, alice, "/p")

	tags, err := f.svc.UpdateTags(ctx, alice, page.ID, []string{" b ", "a", "", "b"})
	if err != nil {
		t.Fatalf("tags: %v", err)
	}
	if !slices.Equal(tags, []string{"a", "b"}) {
		t.Errorf("normalized tags = %v", tags)
	}
	got, err := f.svc.ListTags(ctx, bob, page.ID)
	if err != nil {
		t.Fatalf("list tags: %v", err)
	}
	if !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("stored tags = %v", got)
	}

	if _, err := f.svc.UpdateTags(ctx, alice, page.ID, nil); err != nil {
		t.Fatalf("clear tags: %v", err)
	}
	got, _ = f.svc.ListTags(ctx, alice, page.ID)
	if got == nil || len(got) != 0 {
		t.Errorf("cleared tags = %#v, want empty slice", got)
	}

	var verr *domain.ValidationError
	if _, err := f.svc.UpdateTags(ctx, alice, page.ID, []string{strings.Repeat("t", MaxTagLength+1)}); !errors.As(err, &verr) {
		t.Errorf("long tag: got %v", err)
	}
}
