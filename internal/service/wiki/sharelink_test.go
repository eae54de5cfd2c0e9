package wiki

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"wikitree/internal/domain"
	"wikitree/internal/domain/models/wiki"
	wikiSvc "wikitree/internal/domain/services/wiki"
)

func TestShareLinks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.svc.Now = func() time.Time { return now }
	page := f.createWith(t, alice, &wikiSvc.CreatePageRequest{Path: "/secret", Body: "hidden", Grant: wiki.GrantOwner})

	var verr *domain.ValidationError
	past := now.Add(-time.Minute)
	if _, err := f.svc.CreateShareLink(ctx, alice, page.ID, &wikiSvc.CreateShareLinkRequest{ExpiredAt: &past}); !errors.As(err, &verr) {
		t.Errorf("past expiry: got %v", err)
	}
	long := &wikiSvc.CreateShareLinkRequest{Description: strings.Repeat("d", MaxShareLinkDescriptionLength+1)}
	if _, err := f.svc.CreateShareLink(ctx, alice, page.ID, long); !errors.As(err, &verr) {
		t.Errorf("long description: got %v", err)
	}
	if _, err := f.svc.CreateShareLink(ctx, bob, page.ID, &wikiSvc.CreateShareLinkRequest{}); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("bob cannot see the page: got %v", err)
	}

	expiry := now.Add(time.Hour)
	link, err := f.svc.CreateShareLink(ctx, alice, page.ID, &wikiSvc.CreateShareLinkRequest{ExpiredAt: &expiry, Description: "for review"})
	if err != nil {
		t.Fatalf("create link: %v", err)
	}
	if _, err := f.svc.CreateShareLink(ctx, alice, page.ID, &wikiSvc.CreateShareLinkRequest{}); err != nil {
		t.Fatalf("create second link: %v", err)
	}

	got, err := f.svc.ResolveShareLink(ctx, link.ID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.ID != page.ID || got.RevisionData == nil || got.RevisionData.Body != "hidden" {
		t.Errorf("resolved page = %+v", got)
	}

	now = expiry
	var forbidden *domain.ForbiddenError
	if _, err := f.svc.ResolveShareLink(ctx, link.ID); !errors.As(err, &forbidden) {
		t.Errorf("expired link: got %v", err)
	}

	links, err := f.svc.ListShareLinks(ctx, alice, page.ID)
	if err != nil || len(links) != 2 {
		t.Fatalf("list links = %d, %v", len(links), err)
	}
	if err := f.svc.DeleteShareLink(ctx, bob, link.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("bob deleting a link: got %v", err)
	}
	if err := f.svc.DeleteShareLink(ctx, alice, link.ID); err != nil {
		t.Fatalf("delete link: %v", err)
	}
	n, err := f.svc.DeleteAllShareLinks(ctx, alice, page.ID)
	if err != nil || n != 1 {
		t.Errorf("delete all = %d, %v", n, err)
	}
}

func TestUploadAttachment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{MaxAttachmentSize: 16})
	page := f.create(t, alice, "/p")

	a, err := f.svc.UploadAttachment(ctx, alice, page.ID, &wikiSvc.UploadedFile{
		FileName: "../notes.txt",
		Content:  []byte("hello"),
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if a.FileName != "notes.txt" || a.Size != 5 || !strings.HasPrefix(a.ContentType, "text/plain") {
		t.Errorf("attachment = %+v", a)
	}

	rc, err := f.blobs.Get(ctx, a.ObjectKey)
	if err != nil {
		t.Fatalf("blob: %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "hello" {
		t.Errorf("blob content = %q", data)
	}

	var verr *domain.ValidationError
	if _, err := f.svc.UploadAttachment(ctx, alice, page.ID, &wikiSvc.UploadedFile{FileName: "big.bin", Content: make([]byte, 17)}); !errors.As(err, &verr) {
		t.Errorf("oversized upload: got %v", err)
	}
	if _, err := f.svc.UploadAttachment(ctx, alice, page.ID, &wikiSvc.UploadedFile{FileName: "", Content: []byte("x")}); !errors.As(err, &verr) {
		t.Errorf("nameless upload: got %v", err)
	}

	list, err := f.svc.ListAttachments(ctx, bob, page.ID)
	if err != nil || len(list) != 1 {
		t.Errorf("attachments = %d, %v", len(list), err)
	}
}
