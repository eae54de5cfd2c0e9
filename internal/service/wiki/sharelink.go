package wiki

import (
	"context"
	"fmt"

	"wikitree/internal/domain"
	"wikitree/internal/domain/models/wiki"
	wikiSvc "wikitree/internal/domain/services/wiki"
)

func (s *Service) CreateShareLink(ctx context.Context, user *wiki.User, pageID string, req *wikiSvc.CreateShareLinkRequest) (*wiki.ShareLink, error) {
	if err := requireUser(user); err != nil {
		return nil, err
	}
	if err := validateShareLinkRequest(req); err != nil {
		return nil, err
	}
	now := s.Now()
	if req.ExpiredAt != nil && !req.ExpiredAt.After(now) {
		return nil, &domain.ValidationError{Message: "expiry must be in the future"}
	}

	if _, err := s.findForEdit(ctx, pageID, user); err != nil {
		return nil, err
	}
	link := &wiki.ShareLink{
		RelatedPage: pageID,
		ExpiredAt:   req.ExpiredAt,
		Description: req.Description,
		CreatedAt:   now,
	}
	if err := s.ShareLinks.Create(ctx, link); err != nil {
		return nil, fmt.Errorf("create share link: %w", err)
	}

	s.Logger.Info("share link created", "link_id", link.ID, "page_id", pageID)
	return link, nil
}

func (s *Service) ListShareLinks(ctx context.Context, user *wiki.User, pageID string) ([]wiki.ShareLink, error) {
	if err := requireUser(user); err != nil {
		return nil, err
	}
	if _, err := s.findForEdit(ctx, pageID, user); err != nil {
		return nil, err
	}
	links, err := s.ShareLinks.ListByPageID(ctx, pageID)
	if err != nil {
		return nil, fmt.Errorf("list share links: %w", err)
	}
	return links, nil
}

// DeleteShareLink removes one link of a page the user can open.
func (s *Service) DeleteShareLink(ctx context.Context, user *wiki.User, linkID string) error {
	if err := requireUser(user); err != nil {
		return err
	}
	link, err := s.ShareLinks.GetByID(ctx, linkID)
	if err != nil {
		return err
	}
	if _, err := s.findForEdit(ctx, link.RelatedPage, user); err != nil {
		return err
	}
	if err := s.ShareLinks.Delete(ctx, linkID); err != nil {
		return fmt.Errorf("delete share link: %w", err)
	}
	s.Logger.Info("share link deleted", "link_id", linkID)
	return nil
}

func (s *Service) DeleteAllShareLinks(ctx context.Context, user *wiki.User, pageID string) (int, error) {
	if err := requireUser(user); err != nil {
		return 0, err
	}
	if _, err := s.findForEdit(ctx, pageID, user); err != nil {
		return 0, err
	}
	n, err := s.ShareLinks.DeleteByPageID(ctx, pageID)
	if err != nil {
		return 0, fmt.Errorf("delete share links: %w", err)
	}
	s.Logger.Info("share links deleted", "page_id", pageID, "count", n)
	return n, nil
}

// ResolveShareLink bypasses the viewer filter; holding an unexpired link is
// the permission.
func (s *Service) ResolveShareLink(ctx context.Context, linkID string) (*wiki.Page, error) {
	link, err := s.ShareLinks.GetByID(ctx, linkID)
	if err != nil {
		return nil, err
	}
	if link.IsExpired(s.Now()) {
		return nil, &domain.ForbiddenError{Message: "share link has expired"}
	}
	page, err := s.Pages.GetByID(ctx, link.RelatedPage)
	if err != nil {
		return nil, err
	}
	if err := s.populateDetail(ctx, page); err != nil {
		return nil, err
	}
	return page, nil
}
