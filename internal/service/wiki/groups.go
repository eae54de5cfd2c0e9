package wiki

import (
	"context"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"golang.org/x/sync/errgroup"

	"wikitree/internal/domain"
	"wikitree/internal/domain/models/wiki"
	"wikitree/internal/domain/pagequery"
	wikiSvc "wikitree/internal/domain/services/wiki"
	"wikitree/internal/events"
)

const MaxGroupNameLength = 100

func (s *Service) CreateGroup(ctx context.Context, name string) (*wiki.UserGroup, error) {
	name = strings.TrimSpace(name)
	if err := validation.Validate(name, validation.Required, validation.Length(1, MaxGroupNameLength)); err != nil {
		return nil, invalid(err)
	}

	group := &wiki.UserGroup{Name: name, CreatedAt: s.Now()}
	if err := s.Groups.Create(ctx, group); err != nil {
		return nil, fmt.Errorf("create group: %w", err)
	}
	s.Logger.Info("group created", "group_id", group.ID, "name", group.Name)
	return group, nil
}

func (s *Service) AddMember(ctx context.Context, groupID, userID string) error {
	if err := s.Groups.AddMember(ctx, groupID, userID); err != nil {
		return fmt.Errorf("add member: %w", err)
	}
	s.Membership.Invalidate(userID)
	return nil
}

func (s *Service) RemoveMember(ctx context.Context, groupID, userID string) error {
	if err := s.Groups.RemoveMember(ctx, groupID, userID); err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	s.Membership.Invalidate(userID)
	return nil
}

// DeleteGroup disposes of the group's pages, then removes the group.
func (s *Service) DeleteGroup(ctx context.Context, groupID string, action wikiSvc.GroupPageAction, transferTo string) error {
	if _, err := s.Groups.GetByID(ctx, groupID); err != nil {
		return err
	}
	if err := s.HandlePrivatePagesForDeletedGroup(ctx, groupID, action, transferTo); err != nil {
		return err
	}
	if err := s.Groups.Delete(ctx, groupID); err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	s.Membership.Flush()

	s.Logger.Info("group deleted", "group_id", groupID, "action", action)
	return nil
}

// HandlePrivatePagesForDeletedGroup applies action to every page granted to
// groupID. Pages are handled concurrently, each in its own transaction; the
// first failure cancels the pages not yet started.
func (s *Service) HandlePrivatePagesForDeletedGroup(ctx context.Context, groupID string, action wikiSvc.GroupPageAction, transferTo string) error {
	if err := validateGroupAction(action, transferTo); err != nil {
		return err
	}
	if action == wikiSvc.GroupPageTransfer {
		if transferTo == groupID {
			return &domain.ValidationError{Message: "cannot transfer pages to the group being deleted"}
		}
		if _, err := s.Groups.GetByID(ctx, transferTo); err != nil {
			return fmt.Errorf("transfer target: %w", err)
		}
	}

	pages, err := s.Pages.Find(ctx, pagequery.New().ByGrantedGroup(groupID).Query())
	if err != nil {
		return fmt.Errorf("find group pages: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.Config.GroupFanOut)
	for i := range pages {
		id := pages[i].ID
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			switch action {
			case wikiSvc.GroupPagePublicize:
				return s.PublicizePage(ctx, id)
			case wikiSvc.GroupPageTransfer:
				return s.TransferPageToGroup(ctx, id, transferTo)
			default:
				return s.inTx(ctx, func(ctx context.Context, ob *outbox) error {
					page, err := s.reload(ctx, id)
					if err != nil || page == nil {
						return err
					}
					return s.completelyDeletePage(ctx, ob, nil, page, wikiSvc.MutationOptions{})
				})
			}
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	s.Logger.Info("group pages handled", "group_id", groupID, "action", action, "pages", len(pages))
	return nil
}

// PublicizePage makes a page public and drops its group.
func (s *Service) PublicizePage(ctx context.Context, pageID string) error {
	return s.regrant(ctx, pageID, func(page *wiki.Page) {
		page.Grant = wiki.GrantPublic
		page.GrantedGroup = nil
	})
}

// TransferPageToGroup grants a page to groupID.
func (s *Service) TransferPageToGroup(ctx context.Context, pageID, groupID string) error {
	return s.regrant(ctx, pageID, func(page *wiki.Page) {
		page.Grant = wiki.GrantUserGroup
		page.GrantedGroup = &groupID
	})
}

func (s *Service) regrant(ctx context.Context, pageID string, apply func(*wiki.Page)) error {
	return s.inTx(ctx, func(ctx context.Context, ob *outbox) error {
		page, err := s.reload(ctx, pageID)
		if err != nil || page == nil {
			return err
		}
		apply(page)
		if err := s.Pages.Update(ctx, page); err != nil {
			return fmt.Errorf("update grant of %s: %w", page.Path, err)
		}
		ob.emit(events.TypeUpdate, page, nil, "")
		return nil
	})
}
