package search

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"testing"

	"wikitree/internal/domain/models/wiki"
	wikiSvc "wikitree/internal/domain/services/wiki"
	"wikitree/internal/events"
	"wikitree/internal/repository/memory"
	wikiService "wikitree/internal/service/wiki"
)

// fakeIndex matches documents whose body contains the query text.
type fakeIndex struct {
	mu      sync.Mutex
	docs    map[string]Document
	deletes int
}

func newFakeIndex() *fakeIndex { return &fakeIndex{docs: map[string]Document{}} }

func (f *fakeIndex) Upsert(ctx context.Context, docs []Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range docs {
		f.docs[d.ID] = d
	}
	return nil
}

func (f *fakeIndex) Delete(ctx context.Context, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	for _, id := range ids {
		delete(f.docs, id)
	}
	return nil
}

func (f *fakeIndex) Search(ctx context.Context, text string, offset, limit int) ([]Hit, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var hits []Hit
	for _, d := range f.docs {
		if strings.Contains(d.Body, text) {
			hits = append(hits, Hit{ID: d.ID, Snippet: d.Path})
		}
	}
	slices.SortFunc(hits, func(a, b Hit) int { return strings.Compare(a.Snippet, b.Snippet) })
	return hits, len(hits), nil
}

func (f *fakeIndex) Healthy() bool { return true }

func (f *fakeIndex) paths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, d := range f.docs {
		out = append(out, d.Path)
	}
	slices.Sort(out)
	return out
}

// syncPublisher hands events straight to the indexer so tests need no bus.
type syncPublisher struct{ handler events.Handler }

func (p syncPublisher) Publish(ctx context.Context, ev events.PageEvent) { p.handler(ctx, ev) }

var (
	alice = &wiki.User{ID: "u-alice", Username: "alice"}
	bob   = &wiki.User{ID: "u-bob", Username: "bob"}
)

func setup(t *testing.T) (*wikiService.Service, *fakeIndex, *Indexer) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.NewStore()
	index := newFakeIndex()
	revisions := memory.NewRevisionRepository(store)
	tags := memory.NewTagRepository(store)
	indexer := NewIndexer(index, revisions, tags, logger)

	svc := wikiService.NewService(wikiService.Deps{
		Pages:       memory.NewPageRepository(store),
		Revisions:   revisions,
		Groups:      memory.NewGroupRepository(store),
		Bookmarks:   memory.NewBookmarkRepository(store),
		Comments:    memory.NewCommentRepository(store),
		Attachments: memory.NewAttachmentRepository(store),
		Tags:        tags,
		ShareLinks:  memory.NewShareLinkRepository(store),
		TxManager:   memory.NewTransactionManager(store),
		Events:      syncPublisher{handler: indexer.Handle},
		Logger:      logger,
	})
	return svc, index, indexer
}

func TestIndexer_FollowsLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, index, _ := setup(t)

	page, err := svc.Create(ctx, alice, &wikiSvc.CreatePageRequest{Path: "/a", Body: "apple pie"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if got := index.paths(); !slices.Equal(got, []string{"/a"}) {
		t.Fatalf("after create: %v", got)
	}

	if _, err := svc.Rename(ctx, alice, page.ID, "/b", wikiSvc.RenameOptions{CreateRedirectPage: true}); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if got := index.paths(); !slices.Equal(got, []string{"/b"}) {
		t.Fatalf("after rename (stub not indexed): %v", got)
	}
	if d := index.docs[page.ID]; d.Body != "apple pie" {
		t.Errorf("renamed document body = %q, want loaded from revision", d.Body)
	}

	if _, err := svc.DeletePage(ctx, alice, page.ID, wikiSvc.MutationOptions{}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := index.paths(); len(got) != 0 {
		t.Errorf("trashed pages must leave the index: %v", got)
	}
}

func TestIndexer_IgnoresRedirectStubs(t *testing.T) {
	ctx := context.Background()
	svc, index, _ := setup(t)

	page, err := svc.Create(ctx, alice, &wikiSvc.CreatePageRequest{Path: "/old", Body: "moving soon"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Rename(ctx, alice, page.ID, "/new", wikiSvc.RenameOptions{CreateRedirectPage: true}); err != nil {
		t.Fatalf("rename: %v", err)
	}

	if got := index.paths(); !slices.Equal(got, []string{"/new"}) {
		t.Errorf("indexed paths = %v, want only the moved page", got)
	}
	// one delete for the move itself, none for the stub
	if index.deletes != 1 {
		t.Errorf("index deletes = %d, want 1", index.deletes)
	}
}

func TestService_FiltersHitsByViewer(t *testing.T) {
	ctx := context.Background()
	svc, index, _ := setup(t)

	for _, req := range []*wikiSvc.CreatePageRequest{
		{Path: "/public", Body: "banana bread"},
		{Path: "/mine", Body: "banana split", Grant: wiki.GrantOwner},
		{Path: "/link", Body: "banana boat", Grant: wiki.GrantRestricted},
		{Path: "/other", Body: "cherry"},
	} {
		if _, err := svc.Create(ctx, alice, req); err != nil {
			t.Fatalf("create %s: %v", req.Path, err)
		}
	}

	search := NewService(index, svc)

	resp, err := search.Search(ctx, alice, " banana ", 0, 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if got := resultPaths(resp); !slices.Equal(got, []string{"/mine", "/public"}) {
		t.Errorf("alice sees %v", got)
	}
	if resp.Query != "banana" || resp.Total != 3 {
		t.Errorf("query=%q total=%d", resp.Query, resp.Total)
	}

	hidden := wikiService.NewService(svc.Deps)
	hidden.Config.HideRestrictedByOwner = true
	resp, err = NewService(index, hidden).Search(ctx, bob, "banana", 0, 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if got := resultPaths(resp); !slices.Equal(got, []string{"/public"}) {
		t.Errorf("bob sees %v", got)
	}

	resp, _ = search.Search(ctx, bob, "   ", 0, 0)
	if len(resp.Results) != 0 {
		t.Errorf("blank query returned %v", resultPaths(resp))
	}
}

func TestIndexer_Reindex(t *testing.T) {
	ctx := context.Background()
	svc, index, indexer := setup(t)
	for _, p := range []string{"/x", "/y"} {
		if _, err := svc.Create(ctx, alice, &wikiSvc.CreatePageRequest{Path: p, Body: p}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	index.docs = map[string]Document{}

	pages := []wiki.Page{}
	for _, p := range []string{"/x", "/y"} {
		page, err := svc.FindByPath(ctx, p)
		if err != nil {
			t.Fatalf("find: %v", err)
		}
		pages = append(pages, *page)
	}
	pages = append(pages, wiki.Page{ID: "trash", Path: "/trash/z"})

	n, err := indexer.Reindex(ctx, pages)
	if err != nil || n != 2 {
		t.Fatalf("reindex = %d, %v", n, err)
	}
	if got := index.paths(); !slices.Equal(got, []string{"/x", "/y"}) {
		t.Errorf("indexed %v", got)
	}
}

func resultPaths(r Response) []string {
	out := make([]string, len(r.Results))
	for i, res := range r.Results {
		out[i] = res.Page.Path
	}
	return out
}
