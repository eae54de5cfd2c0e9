package wiki

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"wikitree/internal/domain"
	"wikitree/internal/domain/models/wiki"
	wikiSvc "wikitree/internal/domain/services/wiki"
)

func TestCreate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})

	page := f.create(t, alice, "foo/bar/")
	if page.Path != "/foo/bar" {
		t.Errorf("path = %q, want normalized /foo/bar", page.Path)
	}
	if page.Status != wiki.StatusPublished || page.Grant != wiki.GrantPublic {
		t.Errorf("new page status=%q grant=%d", page.Status, page.Grant)
	}
	if page.RevisionID == nil || page.RevisionData == nil || page.RevisionData.Body != "# foo/bar/" {
		t.Fatalf("first revision not linked: %+v", page.RevisionData)
	}

	_, err := f.svc.Create(ctx, bob, &wikiSvc.CreatePageRequest{Path: "/foo/bar"})
	var conflict *domain.ConflictError
	if !errors.As(err, &conflict) || conflict.ResourceID != page.ID {
		t.Errorf("duplicate create: got %v, want conflict naming %s", err, page.ID)
	}

	if _, err := f.svc.Create(ctx, alice, &wikiSvc.CreatePageRequest{Path: "/admin/foo"}); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("/admin/foo: got %v, want forbidden", err)
	}
	if _, err := f.svc.Create(ctx, nil, &wikiSvc.CreatePageRequest{Path: "/guest"}); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("guest create: got %v, want forbidden", err)
	}
	if _, err := f.svc.Create(ctx, alice, &wikiSvc.CreatePageRequest{Path: "/bad", Grant: 9}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("unknown grant: got %v, want validation error", err)
	}

	top := f.createWith(t, alice, &wikiSvc.CreatePageRequest{Path: "/", Grant: wiki.GrantOwner})
	if top.Grant != wiki.GrantPublic || len(top.GrantedUsers) != 0 {
		t.Errorf("top page must be public, got grant=%d users=%v", top.Grant, top.GrantedUsers)
	}

	evs := eventSummary(f.rec.snapshot())
	want := []string{"create /foo/bar", "create /"}
	if !slices.Equal(evs, want) {
		t.Errorf("events = %v, want %v", evs, want)
	}
}

func TestCreate_GroupScope(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})

	group, err := f.svc.CreateGroup(ctx, "editors")
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	if err := f.svc.AddMember(ctx, group.ID, alice.ID); err != nil {
		t.Fatalf("add member: %v", err)
	}

	tests := []struct {
		name    string
		user    *wiki.User
		groupID *string
		wantErr error
	}{
		{"missing group id", alice, nil, domain.ErrForbidden},
		{"non-member", bob, &group.ID, domain.ErrForbidden},
		{"member", alice, &group.ID, nil},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := f.svc.Create(ctx, tt.user, &wikiSvc.CreatePageRequest{
				Path:             "/group/" + string(rune('a'+i)),
				Grant:            wiki.GrantUserGroup,
				GrantUserGroupID: tt.groupID,
			})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("got %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("create: %v", err)
			}
			if page.GrantedGroup == nil || *page.GrantedGroup != group.ID || len(page.GrantedUsers) != 0 {
				t.Errorf("scope not applied: group=%v users=%v", page.GrantedGroup, page.GrantedUsers)
			}
		})
	}
}

func TestCreate_HTMLBodyIsStoredAsMarkdown(t *testing.T) {
	f := newFixture(t, Config{})

	page := f.createWith(t, alice, &wikiSvc.CreatePageRequest{
		Path:   "/html",
		Body:   "<h1>Title</h1><script>alert(1)</script>",
		Format: wiki.FormatHTML,
	})
	if page.RevisionData.Format != wiki.FormatMarkdown || strings.TrimSpace(page.RevisionData.Body) != "# Title" {
		t.Errorf("revision = %q (%s)", page.RevisionData.Body, page.RevisionData.Format)
	}
}

func TestUpdatePage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	page := f.create(t, alice, "/doc")
	first := *page.RevisionID

	updated, err := f.svc.UpdatePage(ctx, bob, page.ID, &wikiSvc.UpdatePageRequest{
		Body:               "v2",
		PreviousRevisionID: first,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if *updated.RevisionID == first || updated.RevisionData.Body != "v2" {
		t.Errorf("revision not advanced: %v", updated.RevisionData)
	}
	if *updated.LastUpdateUser != bob.ID {
		t.Errorf("last update user = %v", *updated.LastUpdateUser)
	}

	_, err = f.svc.UpdatePage(ctx, alice, page.ID, &wikiSvc.UpdatePageRequest{
		Body:               "stale",
		PreviousRevisionID: first,
	})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("stale edit: got %v, want conflict", err)
	}

	revs, err := f.svc.ListRevisions(ctx, alice, page.ID)
	if err != nil {
		t.Fatalf("list revisions: %v", err)
	}
	if len(revs) != 2 {
		t.Errorf("revisions = %d, want 2", len(revs))
	}
}

func TestUpdatePage_KeepsScopeWhenUnset(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	page := f.createWith(t, alice, &wikiSvc.CreatePageRequest{Path: "/mine", Grant: wiki.GrantOwner})

	updated, err := f.svc.UpdatePage(ctx, alice, page.ID, &wikiSvc.UpdatePageRequest{Body: "v2"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Grant != wiki.GrantOwner || !updated.IsGrantedUser(alice.ID) {
		t.Errorf("scope lost: grant=%d users=%v", updated.Grant, updated.GrantedUsers)
	}

	if _, err := f.svc.UpdatePage(ctx, bob, page.ID, &wikiSvc.UpdatePageRequest{Body: "x"}); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("other user editing an owner page: got %v, want not found", err)
	}
}

func TestDeleteAndRevert(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	page := f.create(t, alice, "/foo")

	trashed, err := f.svc.DeletePage(ctx, alice, page.ID, wikiSvc.MutationOptions{})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if trashed.Path != "/trash/foo" || trashed.Status != wiki.StatusDeleted {
		t.Errorf("trashed page = %s (%s)", trashed.Path, trashed.Status)
	}
	stub := f.at(t, "/foo")
	if stub == nil || stub.RedirectTo == nil || *stub.RedirectTo != "/trash/foo" {
		t.Fatalf("expected redirect stub at /foo, got %+v", stub)
	}

	if _, err := f.svc.DeletePage(ctx, alice, page.ID, wikiSvc.MutationOptions{}); !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("deleting a trashed page: got %v, want invalid state", err)
	}

	reverted, err := f.svc.RevertDeletedPage(ctx, alice, page.ID, wikiSvc.MutationOptions{})
	if err != nil {
		t.Fatalf("revert: %v", err)
	}
	if reverted.Path != "/foo" || reverted.Status != wiki.StatusPublished {
		t.Errorf("reverted page = %s (%s)", reverted.Path, reverted.Status)
	}
	if got := f.at(t, "/foo"); got == nil || got.ID != page.ID || got.RedirectTo != nil {
		t.Errorf("/foo should hold the original page again, got %+v", got)
	}
	if got := f.allPaths(t); !slices.Equal(got, []string{"/foo"}) {
		t.Errorf("pages = %v, stub should be destroyed", got)
	}

	if _, err := f.svc.RevertDeletedPage(ctx, alice, page.ID, wikiSvc.MutationOptions{}); !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("reverting a live page: got %v, want invalid state", err)
	}
}

func TestDeletePage_ProtectedNames(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	top := f.create(t, alice, "/")
	home := f.create(t, alice, "/user/alice")

	for _, p := range []*wiki.Page{top, home} {
		if _, err := f.svc.DeletePage(ctx, alice, p.ID, wikiSvc.MutationOptions{}); !errors.Is(err, domain.ErrForbidden) {
			t.Errorf("delete %s: got %v, want forbidden", p.Path, err)
		}
	}
	if _, err := f.svc.CompletelyDeletePage(ctx, alice, top.ID, wikiSvc.MutationOptions{}); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("destroy top page: got %v, want forbidden", err)
	}
}

func TestRevert_BlockedByRealPage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	page := f.create(t, alice, "/foo")
	if _, err := f.svc.DeletePage(ctx, alice, page.ID, wikiSvc.MutationOptions{}); err != nil {
		t.Fatalf("delete: %v", err)
	}

	// turn the stub into a regular page
	stub := f.at(t, "/foo")
	stub.RedirectTo = nil
	if err := f.svc.Pages.Update(ctx, stub); err != nil {
		t.Fatalf("update stub: %v", err)
	}

	_, err := f.svc.RevertDeletedPage(ctx, alice, page.ID, wikiSvc.MutationOptions{})
	var conflict *domain.ConflictError
	if !errors.As(err, &conflict) || conflict.ResourceID != stub.ID {
		t.Fatalf("got %v, want conflict naming %s", err, stub.ID)
	}
	if got := f.at(t, "/trash/foo"); got == nil || got.Status != wiki.StatusDeleted {
		t.Errorf("trashed page must stay untouched, got %+v", got)
	}
}

func TestDeleteAndRevertRecursively(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	root := f.create(t, alice, "/a")
	f.create(t, alice, "/a/b")
	f.create(t, alice, "/a/b/c")
	f.create(t, alice, "/ab")

	trashed, err := f.svc.DeletePageRecursively(ctx, alice, root.ID, wikiSvc.MutationOptions{})
	if err != nil {
		t.Fatalf("delete recursively: %v", err)
	}
	if trashed.ID != root.ID || trashed.Path != "/trash/a" {
		t.Errorf("returned %s %s, want the root at /trash/a", trashed.ID, trashed.Path)
	}
	want := []string{"/a", "/a/b", "/a/b/c", "/ab", "/trash/a", "/trash/a/b", "/trash/a/b/c"}
	if got := f.allPaths(t); !slices.Equal(got, want) {
		t.Errorf("after delete: %v, want %v", got, want)
	}

	reverted, err := f.svc.RevertDeletedPageRecursively(ctx, alice, root.ID, wikiSvc.MutationOptions{})
	if err != nil {
		t.Fatalf("revert recursively: %v", err)
	}
	if reverted.Path != "/a" {
		t.Errorf("reverted root at %s", reverted.Path)
	}
	want = []string{"/a", "/a/b", "/a/b/c", "/ab"}
	if got := f.allPaths(t); !slices.Equal(got, want) {
		t.Errorf("after revert: %v, want %v", got, want)
	}
	for _, p := range want {
		if page := f.at(t, p); page.IsRedirect() || page.IsDeleted() {
			t.Errorf("%s should be a live page: %+v", p, page)
		}
	}
}

func TestRename_EmitsDeleteCreateAndRedirect(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	page := f.create(t, alice, "/x")
	f.rec.reset()

	renamed, err := f.svc.Rename(ctx, alice, page.ID, "/y", wikiSvc.RenameOptions{CreateRedirectPage: true, SocketClientID: "sock-1"})
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if renamed.Path != "/y" {
		t.Errorf("renamed to %s", renamed.Path)
	}

	evs := f.rec.snapshot()
	want := []string{"delete /x", "create /y", "redirect /x"}
	if got := eventSummary(evs); !slices.Equal(got, want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	if evs[0].Page.ID != page.ID || evs[1].Page.ID != page.ID {
		t.Errorf("move events should carry the moved page")
	}
	for _, ev := range evs {
		if ev.SocketClientID != "sock-1" {
			t.Errorf("%s event lost the socket client id", ev.Type)
		}
	}
}

func TestRenameRecursively(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	a := f.create(t, alice, "/a")
	b := f.create(t, alice, "/a/b")
	f.create(t, alice, "/ab")

	renamed, err := f.svc.RenameRecursively(ctx, alice, a.ID, "/z", wikiSvc.RenameOptions{CreateRedirectPage: true})
	if err != nil {
		t.Fatalf("rename recursively: %v", err)
	}
	if renamed.ID != a.ID || renamed.Path != "/z" {
		t.Errorf("returned %s at %s", renamed.ID, renamed.Path)
	}

	if got := f.at(t, "/z/b"); got == nil || got.ID != b.ID {
		t.Errorf("/a/b should now be /z/b, got %+v", got)
	}
	if got := f.at(t, "/ab"); got == nil || got.IsRedirect() {
		t.Errorf("/ab is a sibling and must not move")
	}
	stubs := map[string]string{"/a": "/z", "/a/b": "/z/b"}
	for from, to := range stubs {
		stub := f.at(t, from)
		if stub == nil || stub.RedirectTo == nil || *stub.RedirectTo != to {
			t.Errorf("stub at %s should point at %s, got %+v", from, to, stub)
		}
	}

	revs, err := f.svc.ListRevisions(ctx, alice, b.ID)
	if err != nil {
		t.Fatalf("list revisions: %v", err)
	}
	if len(revs) != 1 || revs[0].Path != "/z/b" {
		t.Errorf("revisions should follow the page: %+v", revs)
	}
}

func TestRenameRecursively_Rejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	a := f.create(t, alice, "/a")

	if _, err := f.svc.RenameRecursively(ctx, alice, a.ID, "/a/inner", wikiSvc.RenameOptions{}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("move under itself: got %v, want validation error", err)
	}
	if _, err := f.svc.RenameRecursively(ctx, alice, a.ID, "/admin/a", wikiSvc.RenameOptions{}); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("uncreatable destination: got %v, want forbidden", err)
	}
}

func TestRenameRecursively_RollsBackOnConflict(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	a := f.create(t, alice, "/a")
	f.create(t, alice, "/a/b")
	f.create(t, alice, "/z/b")
	before := f.allPaths(t)
	f.rec.reset()

	_, err := f.svc.RenameRecursively(ctx, alice, a.ID, "/z", wikiSvc.RenameOptions{CreateRedirectPage: true})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("got %v, want conflict", err)
	}
	if got := f.allPaths(t); !slices.Equal(got, before) {
		t.Errorf("cascade not rolled back: %v, want %v", got, before)
	}
	if evs := f.rec.snapshot(); len(evs) != 0 {
		t.Errorf("no events may be published for a rolled back cascade, got %v", eventSummary(evs))
	}
}

func TestCompletelyDeletePageRecursively(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})

	a := f.create(t, alice, "/a")
	b := f.create(t, alice, "/a/b")
	c := f.create(t, alice, "/a/b/c")
	sibling := f.create(t, alice, "/ab")

	for _, p := range []*wiki.Page{a, b, c, sibling} {
		if _, err := f.svc.AddComment(ctx, bob, p.ID, "nice"); err != nil {
			t.Fatalf("comment: %v", err)
		}
		if _, err := f.svc.UpdateTags(ctx, alice, p.ID, []string{"t"}); err != nil {
			t.Fatalf("tags: %v", err)
		}
		if _, err := f.svc.UploadAttachment(ctx, alice, p.ID, &wikiSvc.UploadedFile{FileName: "f.txt", Content: []byte("x")}); err != nil {
			t.Fatalf("attach: %v", err)
		}
	}
	if _, err := f.svc.DeletePage(ctx, alice, c.ID, wikiSvc.MutationOptions{}); err != nil {
		t.Fatalf("trash c: %v", err)
	}

	got, err := f.svc.CompletelyDeletePageRecursively(ctx, alice, a.ID, wikiSvc.MutationOptions{})
	if err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if got != "/a" {
		t.Errorf("returned %q", got)
	}

	for _, p := range f.allPaths(t) {
		if p == "/a" || len(p) > 3 && p[:3] == "/a/" {
			t.Errorf("page %s survived", p)
		}
	}
	if f.at(t, "/ab") == nil {
		t.Error("sibling /ab must survive")
	}

	for _, p := range []*wiki.Page{a, b} {
		if n, _ := f.svc.Comments.CountByPageID(ctx, p.ID); n != 0 {
			t.Errorf("%s: %d comments left", p.Path, n)
		}
		if tags, _ := f.svc.Tags.ListByPageID(ctx, p.ID); len(tags) != 0 {
			t.Errorf("%s: tags left %v", p.Path, tags)
		}
		if as, _ := f.svc.Attachments.ListByPageID(ctx, p.ID); len(as) != 0 {
			t.Errorf("%s: %d attachments left", p.Path, len(as))
		}
		if revs, _ := f.svc.Revisions.ListByPath(ctx, p.Path); len(revs) != 0 {
			t.Errorf("%s: %d revisions left", p.Path, len(revs))
		}
	}
	// sibling and the trashed c keep their blobs
	if n := f.blobs.Len(); n != 2 {
		t.Errorf("blobs left = %d, want 2", n)
	}
}

func TestRemoveRedirectOriginPageByPath(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	page := f.create(t, alice, "/p1")

	opts := wikiSvc.RenameOptions{CreateRedirectPage: true}
	if _, err := f.svc.Rename(ctx, alice, page.ID, "/p2", opts); err != nil {
		t.Fatalf("rename 1: %v", err)
	}
	if _, err := f.svc.Rename(ctx, alice, page.ID, "/p3", opts); err != nil {
		t.Fatalf("rename 2: %v", err)
	}
	// /p1 -> /p2 -> /p3
	if want := []string{"/p1", "/p2", "/p3"}; !slices.Equal(f.allPaths(t), want) {
		t.Fatalf("pages = %v, want %v", f.allPaths(t), want)
	}

	if err := f.svc.RemoveRedirectOriginPageByPath(ctx, "/p3"); err != nil {
		t.Fatalf("remove chain: %v", err)
	}
	if got := f.allPaths(t); !slices.Equal(got, []string{"/p3"}) {
		t.Errorf("pages = %v, want only /p3", got)
	}
}

func TestCompletelyDeletePage_RemovesRedirectChain(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	page := f.create(t, alice, "/old")
	if _, err := f.svc.Rename(ctx, alice, page.ID, "/new", wikiSvc.RenameOptions{CreateRedirectPage: true}); err != nil {
		t.Fatalf("rename: %v", err)
	}
	f.rec.reset()

	if _, err := f.svc.CompletelyDeletePage(ctx, alice, page.ID, wikiSvc.MutationOptions{}); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if got := f.allPaths(t); len(got) != 0 {
		t.Errorf("pages left: %v", got)
	}
	if got := eventSummary(f.rec.snapshot()); !slices.Equal(got, []string{"delete /old", "delete /new"}) {
		t.Errorf("events = %v", got)
	}
}

func TestEnsureRootPage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})

	if _, err := f.svc.EnsureRootPage(ctx, nil); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("guest install err = %v", err)
	}

	root, err := f.svc.EnsureRootPage(ctx, admin)
	if err != nil {
		t.Fatalf("ensure root: %v", err)
	}
	if root.Path != "/" || root.Grant != wiki.GrantPublic {
		t.Errorf("root = %s grant %d", root.Path, root.Grant)
	}

	again, err := f.svc.EnsureRootPage(ctx, alice)
	if err != nil {
		t.Fatalf("ensure root again: %v", err)
	}
	if again.ID != root.ID {
		t.Errorf("second call created a new page %s", again.ID)
	}
	if got := eventSummary(f.rec.snapshot()); !slices.Equal(got, []string{"create /"}) {
		t.Errorf("events = %v", got)
	}
}
