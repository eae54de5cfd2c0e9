package pagequery

import (
	"slices"
	"testing"

	"wikitree/internal/domain/models/wiki"
)

func strPtr(s string) *string { return &s }

func matchPaths(q *Query, pages []wiki.Page) []string {
	var out []string
	for i := range pages {
		if q.Match(&pages[i]) {
			out = append(out, pages[i].Path)
		}
	}
	return out
}

func pagesAt(paths ...string) []wiki.Page {
	pages := make([]wiki.Page, len(paths))
	for i, p := range paths {
		pages[i] = wiki.Page{ID: p, Path: p, Status: wiki.StatusPublished, Grant: wiki.GrantPublic}
	}
	return pages
}

func TestListWithDescendants_SegmentBoundary(t *testing.T) {
	pages := pagesAt("/a", "/a/b", "/a/bc", "/a/b/c", "/ab", "/")

	got := matchPaths(New().ListWithDescendants("/a/b").Query(), pages)
	want := []string{"/a/b", "/a/b/c"}
	if !slices.Equal(got, want) {
		t.Errorf("descendants of /a/b = %v, want %v", got, want)
	}

	got = matchPaths(New().ListWithDescendants("/a").Query(), pages)
	want = []string{"/a", "/a/b", "/a/bc", "/a/b/c"}
	if !slices.Equal(got, want) {
		t.Errorf("descendants of /a = %v, want %v", got, want)
	}
}

func TestListByStartWith(t *testing.T) {
	pages := pagesAt("/a", "/a/b", "/ab", "/b")

	tests := []struct {
		name string
		path string
		want []string
	}{
		{"literal prefix", "/a", []string{"/a", "/a/b", "/ab"}},
		{"trailing separator", "/a/", []string{"/a", "/a/b"}},
		{"root is no-op", "/", []string{"/a", "/a/b", "/ab", "/b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := matchPaths(New().ListByStartWith(tt.path).Query(), pages)
			if !slices.Equal(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestListByStartWith_EscapesMetacharacters(t *testing.T) {
	pages := pagesAt("/a.b/c", "/axb/c", "/(x)/y", "/[z]")

	got := matchPaths(New().ListWithDescendants("/a.b").Query(), pages)
	if !slices.Equal(got, []string{"/a.b/c"}) {
		t.Errorf("dot must match literally, got %v", got)
	}

	got = matchPaths(New().ListWithDescendants("/(x)").Query(), pages)
	if !slices.Equal(got, []string{"/(x)/y"}) {
		t.Errorf("parens must match literally, got %v", got)
	}

	got = matchPaths(New().ListByStartWith("/[z").Query(), pages)
	if !slices.Equal(got, []string{"/[z]"}) {
		t.Errorf("unbalanced bracket must match literally, got %v", got)
	}
}

func TestExcludeTrashedAndRedirect(t *testing.T) {
	pages := []wiki.Page{
		{Path: "/live", Status: wiki.StatusPublished},
		{Path: "/legacy"},
		{Path: "/trash/gone", Status: wiki.StatusDeleted},
		{Path: "/moved", Status: wiki.StatusPublished, RedirectTo: strPtr("/trash/gone")},
	}

	got := matchPaths(New().ExcludeTrashed().Query(), pages)
	if !slices.Equal(got, []string{"/live", "/legacy", "/moved"}) {
		t.Errorf("ExcludeTrashed = %v", got)
	}

	got = matchPaths(New().ExcludeTrashed().ExcludeRedirect().Query(), pages)
	if !slices.Equal(got, []string{"/live", "/legacy"}) {
		t.Errorf("ExcludeTrashed+ExcludeRedirect = %v", got)
	}
}

func TestFilterByViewer(t *testing.T) {
	owner := &wiki.User{ID: "u-owner"}
	other := &wiki.User{ID: "u-other"}

	pages := []wiki.Page{
		{Path: "/public", Grant: wiki.GrantPublic},
		{Path: "/unset"},
		{Path: "/link", Grant: wiki.GrantRestricted},
		{Path: "/owner", Grant: wiki.GrantOwner, GrantedUsers: []string{"u-owner"}},
		{Path: "/specified", Grant: wiki.GrantSpecified, GrantedUsers: []string{"u-owner", "u-friend"}},
		{Path: "/group", Grant: wiki.GrantUserGroup, GrantedGroup: strPtr("g-1")},
		{Path: "/other-group", Grant: wiki.GrantUserGroup, GrantedGroup: strPtr("g-2")},
	}

	tests := []struct {
		name                         string
		user                         *wiki.User
		groups                       []string
		anyone, showOwner, showGroup bool
		want                         []string
	}{
		{
			name: "guest",
			want: []string{"/public", "/unset"},
		},
		{
			name:   "guest with link pages",
			anyone: true,
			want:   []string{"/public", "/unset", "/link"},
		},
		{
			name: "owner sees own pages",
			user: owner,
			want: []string{"/public", "/unset", "/owner", "/specified"},
		},
		{
			name: "other user is excluded from owner page",
			user: other,
			want: []string{"/public", "/unset"},
		},
		{
			name:   "group member",
			user:   other,
			groups: []string{"g-1"},
			want:   []string{"/public", "/unset", "/group"},
		},
		{
			name:      "list policy shows owner restricted",
			user:      other,
			showOwner: true,
			want:      []string{"/public", "/unset", "/owner", "/specified"},
		},
		{
			name:      "list policy shows group restricted",
			showGroup: true,
			want:      []string{"/public", "/unset", "/group", "/other-group"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := New().FilterByViewer(tt.user, tt.groups, tt.anyone, tt.showOwner, tt.showGroup).Query()
			got := matchPaths(q, pages)
			if !slices.Equal(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBuilder_ConditionsAreConjunctive(t *testing.T) {
	pages := []wiki.Page{
		{Path: "/a/x", Status: wiki.StatusPublished, Grant: wiki.GrantPublic},
		{Path: "/a/y", Status: wiki.StatusPublished, Grant: wiki.GrantOwner, GrantedUsers: []string{"u1"}},
		{Path: "/b/x", Status: wiki.StatusPublished, Grant: wiki.GrantPublic},
	}

	q := New().ListWithDescendants("/a").FilterByViewer(nil, nil, false, false, false).Query()
	got := matchPaths(q, pages)
	if !slices.Equal(got, []string{"/a/x"}) {
		t.Errorf("got %v", got)
	}
}

func TestBuilder_QueryIsSnapshot(t *testing.T) {
	b := New().ByPath("/a")
	q := b.Query()
	b.ExcludeRedirect()

	if len(q.Conditions) != 1 {
		t.Fatalf("snapshot changed: %d conditions", len(q.Conditions))
	}
}

func TestByIDsAndPaths(t *testing.T) {
	pages := pagesAt("/a", "/b", "/c")

	got := matchPaths(New().ByIDs([]string{"/a", "/c"}).Query(), pages)
	if !slices.Equal(got, []string{"/a", "/c"}) {
		t.Errorf("ByIDs = %v", got)
	}

	got = matchPaths(New().ByIDs(nil).Query(), pages)
	if len(got) != 0 {
		t.Errorf("empty ByIDs must match nothing, got %v", got)
	}

	got = matchPaths(New().ByPaths([]string{"/b"}).Query(), pages)
	if !slices.Equal(got, []string{"/b"}) {
		t.Errorf("ByPaths = %v", got)
	}
}

func TestListOptionsNormalize(t *testing.T) {
	got := ListOptions{Offset: -5, Limit: 5000, Sort: "bogus"}.Normalize()
	want := ListOptions{Offset: 0, Limit: MaxLimit, Sort: SortUpdatedAt, Desc: true}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}

	got = ListOptions{Sort: SortPath}.Normalize()
	if got.Limit != DefaultLimit || got.Sort != SortPath || got.Desc {
		t.Errorf("got %+v", got)
	}
}
