package wiki

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"wikitree/internal/domain/models/wiki"
	"wikitree/internal/domain/pagequery"
	wikiSvc "wikitree/internal/domain/services/wiki"
	"wikitree/internal/events"
	"wikitree/internal/repository/memory"
	"wikitree/internal/storage"
)

var (
	alice = &wiki.User{ID: "u-alice", Username: "alice"}
	bob   = &wiki.User{ID: "u-bob", Username: "bob"}
	admin = &wiki.User{ID: "u-admin", Username: "admin", Admin: true}
)

type recorder struct {
	mu     sync.Mutex
	events []events.PageEvent
}

func (r *recorder) Publish(_ context.Context, ev events.PageEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

func (r *recorder) snapshot() []events.PageEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.PageEvent(nil), r.events...)
}

type fixture struct {
	svc   *Service
	rec   *recorder
	blobs *storage.MemoryStore
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()

	store := memory.NewStore()
	rec := &recorder{}
	blobs := storage.NewMemoryStore()
	svc := NewService(Deps{
		Pages:       memory.NewPageRepository(store),
		Revisions:   memory.NewRevisionRepository(store),
		Groups:      memory.NewGroupRepository(store),
		Bookmarks:   memory.NewBookmarkRepository(store),
		Comments:    memory.NewCommentRepository(store),
		Attachments: memory.NewAttachmentRepository(store),
		Tags:        memory.NewTagRepository(store),
		ShareLinks:  memory.NewShareLinkRepository(store),
		TxManager:   memory.NewTransactionManager(store),
		Events:      rec,
		Blobs:       blobs,
		Config:      cfg,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return &fixture{svc: svc, rec: rec, blobs: blobs}
}

func (f *fixture) create(t *testing.T, user *wiki.User, path string) *wiki.Page {
	t.Helper()
	return f.createWith(t, user, &wikiSvc.CreatePageRequest{Path: path, Body: "# " + path})
}

func (f *fixture) createWith(t *testing.T, user *wiki.User, req *wikiSvc.CreatePageRequest) *wiki.Page {
	t.Helper()
	page, err := f.svc.Create(context.Background(), user, req)
	if err != nil {
		t.Fatalf("create %s: %v", req.Path, err)
	}
	return page
}

// at returns the page stored at path, or nil.
func (f *fixture) at(t *testing.T, path string) *wiki.Page {
	t.Helper()
	pages, err := f.svc.Pages.Find(context.Background(), pagequery.New().ByPath(path).Query())
	if err != nil {
		t.Fatalf("find %s: %v", path, err)
	}
	if len(pages) == 0 {
		return nil
	}
	return &pages[0]
}

func (f *fixture) allPaths(t *testing.T) []string {
	t.Helper()
	pages, err := f.svc.Pages.Find(context.Background(), pagequery.New().Sort(pagequery.SortPath, false).Query())
	if err != nil {
		t.Fatalf("find all: %v", err)
	}
	out := make([]string, len(pages))
	for i, p := range pages {
		out[i] = p.Path
	}
	return out
}

func eventSummary(evs []events.PageEvent) []string {
	out := make([]string, len(evs))
	for i, ev := range evs {
		out[i] = string(ev.Type) + " " + ev.Page.Path
	}
	return out
}
