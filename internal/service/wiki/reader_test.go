package wiki

import (
	"context"
	"errors"
	"slices"
	"testing"

	"wikitree/internal/domain"
	"wikitree/internal/domain/models/wiki"
	"wikitree/internal/domain/pagequery"
	wikiSvc "wikitree/internal/domain/services/wiki"
)

func listPaths(r *wiki.ListResult) []string {
	out := make([]string, len(r.Pages))
	for i, p := range r.Pages {
		out[i] = p.Path
	}
	return out
}

func TestFindByIDAndViewer_OwnerOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	page := f.createWith(t, alice, &wikiSvc.CreatePageRequest{Path: "/secret", Body: "s", Grant: wiki.GrantOwner})

	got, err := f.svc.FindByIDAndViewer(ctx, page.ID, alice)
	if err != nil {
		t.Fatalf("owner lookup: %v", err)
	}
	if got.RevisionData == nil || got.RevisionData.Body != "s" {
		t.Errorf("detail read should carry the revision, got %+v", got.RevisionData)
	}

	for _, viewer := range []*wiki.User{bob, nil} {
		if _, err := f.svc.FindByIDAndViewer(ctx, page.ID, viewer); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("viewer %v: got %v, want not found", viewer, err)
		}
	}

	ok, err := f.svc.IsAccessibleByViewer(ctx, page.ID, bob)
	if err != nil || ok {
		t.Errorf("IsAccessibleByViewer(bob) = %v, %v", ok, err)
	}
	ok, err = f.svc.IsAccessibleByViewer(ctx, page.ID, alice)
	if err != nil || !ok {
		t.Errorf("IsAccessibleByViewer(alice) = %v, %v", ok, err)
	}
}

func TestFindByPathAndViewer_LinkOnlyPage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	f.createWith(t, alice, &wikiSvc.CreatePageRequest{Path: "/link", Grant: wiki.GrantRestricted})

	if _, err := f.svc.FindByPathAndViewer(ctx, "/link", bob); err != nil {
		t.Errorf("anyone with the link may open it: %v", err)
	}

	res, err := f.svc.FindListWithDescendants(ctx, "/", bob, pagequery.ListOptions{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(res.Pages) != 0 {
		t.Errorf("link-only pages must not be listed, got %v", listPaths(res))
	}
}

func TestFindListWithDescendants(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	for _, p := range []string{"/a", "/a/b", "/a/bc", "/ab"} {
		f.create(t, alice, p)
	}
	f.createWith(t, alice, &wikiSvc.CreatePageRequest{Path: "/a/private", Grant: wiki.GrantOwner})
	trash := f.create(t, alice, "/a/old")
	if _, err := f.svc.DeletePage(ctx, alice, trash.ID, wikiSvc.MutationOptions{}); err != nil {
		t.Fatalf("delete: %v", err)
	}

	opts := pagequery.ListOptions{Sort: pagequery.SortPath}
	res, err := f.svc.FindListWithDescendants(ctx, "/a", bob, opts)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	// owner-restricted pages show in lists unless the policy hides them
	want := []string{"/a", "/a/b", "/a/bc", "/a/private"}
	if got := listPaths(res); !slices.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if res.TotalCount != 4 || res.Limit != pagequery.DefaultLimit {
		t.Errorf("total=%d limit=%d", res.TotalCount, res.Limit)
	}

	hidden := newFixture(t, Config{HideRestrictedByOwner: true})
	hidden.create(t, alice, "/a")
	hidden.createWith(t, alice, &wikiSvc.CreatePageRequest{Path: "/a/private", Grant: wiki.GrantOwner})
	res, err = hidden.svc.FindListWithDescendants(ctx, "/a", bob, opts)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if got := listPaths(res); !slices.Equal(got, []string{"/a"}) {
		t.Errorf("hidden policy: got %v", got)
	}
	res, err = hidden.svc.FindListWithDescendants(ctx, "/a", alice, opts)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if got := listPaths(res); !slices.Equal(got, []string{"/a", "/a/private"}) {
		t.Errorf("owner under hidden policy: got %v", got)
	}
}

func TestFindListByStartWith_Paginates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	for _, p := range []string{"/n1", "/n2", "/n3", "/n4", "/other"} {
		f.create(t, alice, p)
	}

	res, err := f.svc.FindListByStartWith(ctx, "/n", nil, pagequery.ListOptions{Offset: 1, Limit: 2, Sort: pagequery.SortPath})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if got := listPaths(res); !slices.Equal(got, []string{"/n2", "/n3"}) {
		t.Errorf("got %v", got)
	}
	if res.TotalCount != 4 || res.Offset != 1 || res.Limit != 2 {
		t.Errorf("result meta = %+v", res)
	}
}

func TestFindListByCreator(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	f.create(t, alice, "/pub")
	f.createWith(t, alice, &wikiSvc.CreatePageRequest{Path: "/link", Grant: wiki.GrantRestricted})
	f.create(t, bob, "/bobs")

	res, err := f.svc.FindListByCreator(ctx, alice.ID, alice, pagequery.ListOptions{Sort: pagequery.SortPath})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if got := listPaths(res); !slices.Equal(got, []string{"/link", "/pub"}) {
		t.Errorf("creator's own list: %v", got)
	}

	res, err = f.svc.FindListByCreator(ctx, alice.ID, bob, pagequery.ListOptions{Sort: pagequery.SortPath})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if got := listPaths(res); !slices.Equal(got, []string{"/pub"}) {
		t.Errorf("another viewer: %v", got)
	}
}

func TestFindListByPageIDs(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	a := f.createWith(t, alice, &wikiSvc.CreatePageRequest{Path: "/a", Grant: wiki.GrantOwner})
	b := f.create(t, alice, "/b")
	if _, err := f.svc.Rename(ctx, alice, b.ID, "/c", wikiSvc.RenameOptions{CreateRedirectPage: true}); err != nil {
		t.Fatalf("rename: %v", err)
	}
	stub := f.at(t, "/b")

	res, err := f.svc.FindListByPageIDs(ctx, []string{a.ID, b.ID, stub.ID}, pagequery.ListOptions{Sort: pagequery.SortPath})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if got := listPaths(res); !slices.Equal(got, []string{"/a", "/c"}) {
		t.Errorf("got %v", got)
	}
}

func TestFindAncestorByPathAndViewer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	f.create(t, alice, "/")
	f.create(t, alice, "/a")
	f.createWith(t, alice, &wikiSvc.CreatePageRequest{Path: "/a/b", Grant: wiki.GrantRestricted})

	got, err := f.svc.FindAncestorByPathAndViewer(ctx, "/a/b/c/d", bob)
	if err != nil {
		t.Fatalf("ancestor: %v", err)
	}
	if got.Path != "/a" {
		t.Errorf("nearest visible ancestor = %s, want /a (link-only /a/b skipped)", got.Path)
	}

	if _, err := f.svc.FindAncestorByPathAndViewer(ctx, "/", bob); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("root has no ancestor: got %v", err)
	}
}

func TestFindTemplate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})

	if tmpl, err := f.svc.FindTemplate(ctx, "/x/new"); err != nil || tmpl != nil {
		t.Fatalf("no templates yet: %+v, %v", tmpl, err)
	}

	f.createWith(t, alice, &wikiSvc.CreatePageRequest{Path: "/__template", Body: "root descendants"})
	f.createWith(t, alice, &wikiSvc.CreatePageRequest{Path: "/a/_template", Body: "a children"})
	f.createWith(t, alice, &wikiSvc.CreatePageRequest{Path: "/a/__template", Body: "a descendants"})
	bt := f.createWith(t, alice, &wikiSvc.CreatePageRequest{Path: "/a/b/__template", Body: "b descendants"})
	if _, err := f.svc.UpdateTags(ctx, alice, bt.ID, []string{"weekly", "report"}); err != nil {
		t.Fatalf("tags: %v", err)
	}

	tests := []struct {
		path     string
		wantPath string
		wantBody string
	}{
		{"/a/new", "/a/_template", "a children"},
		{"/a/b/new", "/a/b/__template", "b descendants"},
		{"/a/b/c/d/new", "/a/b/__template", "b descendants"},
		{"/a/x/new", "/a/__template", "a descendants"},
		{"/x/new", "/__template", "root descendants"},
		{"/new", "/__template", "root descendants"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			tmpl, err := f.svc.FindTemplate(ctx, tt.path)
			if err != nil {
				t.Fatalf("find template: %v", err)
			}
			if tmpl == nil || tmpl.Path != tt.wantPath || tmpl.Body != tt.wantBody {
				t.Fatalf("got %+v, want %s", tmpl, tt.wantPath)
			}
		})
	}

	tmpl, _ := f.svc.FindTemplate(ctx, "/a/b/new")
	if !slices.Equal(tmpl.Tags, []string{"report", "weekly"}) {
		t.Errorf("template tags = %v", tmpl.Tags)
	}
}
