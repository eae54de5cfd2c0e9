package wiki

import (
	"context"
	"log/slog"
	"time"

	"wikitree/internal/domain/models/wiki"
	"wikitree/internal/domain/repositories"
	wikiRepo "wikitree/internal/domain/repositories/wiki"
	wikiSvc "wikitree/internal/domain/services/wiki"
	"wikitree/internal/events"
	"wikitree/internal/service/wiki/format"
	"wikitree/internal/storage"
)

// DefaultGroupFanOut bounds how many pages of a deleted group are processed
// at once.
const DefaultGroupFanOut = 8

// Config holds the policy switches of the page service.
type Config struct {
	// Listing policy. Edit checks ignore both.
	HideRestrictedByOwner bool
	HideRestrictedByGroup bool

	GroupFanOut       int
	MaxAttachmentSize int64
}

// Deps is everything the page service talks to.
type Deps struct {
	Pages       wikiRepo.PageRepository
	Revisions   wikiRepo.RevisionRepository
	Groups      wikiRepo.GroupRepository
	Bookmarks   wikiRepo.BookmarkRepository
	Comments    wikiRepo.CommentRepository
	Attachments wikiRepo.AttachmentRepository
	Tags        wikiRepo.TagRepository
	ShareLinks  wikiRepo.ShareLinkRepository

	TxManager  repositories.TransactionManager
	Membership Membership
	Events     events.Publisher
	Blobs      storage.BlobStore
	Formats    *format.Registry

	Config Config
	Logger *slog.Logger
	Now    func() time.Time
}

// Service implements the page tree and its satellite services.
type Service struct {
	Deps
}

var (
	_ wikiSvc.PageService       = (*Service)(nil)
	_ wikiSvc.SocialService     = (*Service)(nil)
	_ wikiSvc.ShareLinkService  = (*Service)(nil)
	_ wikiSvc.AttachmentService = (*Service)(nil)
	_ wikiSvc.ImportService     = (*Service)(nil)
	_ wikiSvc.GroupService      = (*Service)(nil)
)

// NewService creates the page service. Optional collaborators left nil get
// working defaults; repositories and the transaction manager are required.
func NewService(d Deps) *Service {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Events == nil {
		d.Events = events.Discard
	}
	if d.Blobs == nil {
		d.Blobs = storage.NewMemoryStore()
	}
	if d.Formats == nil {
		d.Formats = format.NewRegistry()
	}
	if d.Membership == nil {
		d.Membership = NewMembershipCache(d.Groups, DefaultMembershipTTL)
	}
	if d.Config.GroupFanOut <= 0 {
		d.Config.GroupFanOut = DefaultGroupFanOut
	}
	return &Service{Deps: d}
}

// outbox collects side effects that must wait for the transaction to commit.
type outbox struct {
	events   []events.PageEvent
	blobKeys []string
}

func (o *outbox) emit(t events.Type, page *wiki.Page, user *wiki.User, socketClientID string) {
	o.events = append(o.events, events.PageEvent{
		Type:           t,
		Page:           page.Clone(),
		User:           user,
		SocketClientID: socketClientID,
	})
}

// inTx runs fn in a transaction and, once it has committed, publishes the
// buffered events and removes the released blobs. Nothing is published when
// fn fails.
func (s *Service) inTx(ctx context.Context, fn func(ctx context.Context, ob *outbox) error) error {
	ob := &outbox{}
	if err := s.TxManager.ExecTx(ctx, func(ctx context.Context) error {
		return fn(ctx, ob)
	}); err != nil {
		return err
	}
	s.flush(ctx, ob)
	return nil
}

func (s *Service) flush(ctx context.Context, ob *outbox) {
	now := s.Now()
	for _, ev := range ob.events {
		ev.At = now
		s.Events.Publish(ctx, ev)
	}
	for _, key := range ob.blobKeys {
		if err := s.Blobs.Remove(ctx, key); err != nil {
			s.Logger.Warn("failed to remove attachment blob", "key", key, "error", err)
		}
	}
}
