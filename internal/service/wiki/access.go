package wiki

import (
	"context"
	"errors"
	"fmt"

	"wikitree/internal/domain"
	"wikitree/internal/domain/models/wiki"
	"wikitree/internal/domain/pagequery"
)

var errLoginRequired = &domain.ForbiddenError{Message: "login required"}

func requireUser(user *wiki.User) error {
	if user == nil {
		return errLoginRequired
	}
	return nil
}

// GrantLabel returns the display name of a grant.
func GrantLabel(g wiki.Grant) string {
	return g.Label()
}

// applyScope resets the page's visibility to grant. Grants other than
// PUBLIC and USER_GROUP are owned by the acting user.
func applyScope(page *wiki.Page, user *wiki.User, grant wiki.Grant, groupID *string) {
	page.GrantedUsers = nil
	page.GrantedGroup = nil

	if grant == 0 {
		grant = wiki.GrantPublic
	}
	page.Grant = grant

	if grant != wiki.GrantPublic && grant != wiki.GrantUserGroup && user != nil {
		page.GrantedUsers = []string{user.ID}
	}
	if grant == wiki.GrantUserGroup && groupID != nil {
		id := *groupID
		page.GrantedGroup = &id
	}
}

// validateAppliedScope rejects a USER_GROUP grant without a group or for a
// user outside that group.
func (s *Service) validateAppliedScope(ctx context.Context, user *wiki.User, grant wiki.Grant, groupID *string) error {
	if grant != 0 && !grant.Valid() {
		return &domain.ValidationError{Message: fmt.Sprintf("unknown grant %d", grant)}
	}
	if grant != wiki.GrantUserGroup {
		return nil
	}
	if groupID == nil || *groupID == "" {
		return &domain.ForbiddenError{Message: "grant user group is not specified"}
	}
	if user == nil {
		return errLoginRequired
	}

	ok, err := s.Membership.IsMember(ctx, *groupID, user.ID)
	if err != nil {
		return err
	}
	if !ok {
		return &domain.ForbiddenError{Message: "user does not belong to the granted group"}
	}
	return nil
}

// filterForList narrows b with the listing policy.
func (s *Service) filterForList(ctx context.Context, b *pagequery.Builder, user *wiki.User, showAnyoneKnowsLink bool) error {
	groups, err := s.Membership.GroupIDs(ctx, user)
	if err != nil {
		return err
	}
	b.FilterByViewer(user, groups, showAnyoneKnowsLink, !s.Config.HideRestrictedByOwner, !s.Config.HideRestrictedByGroup)
	return nil
}

// filterForEdit narrows b to what user is literally allowed to open.
func (s *Service) filterForEdit(ctx context.Context, b *pagequery.Builder, user *wiki.User) error {
	groups, err := s.Membership.GroupIDs(ctx, user)
	if err != nil {
		return err
	}
	b.FilterByViewer(user, groups, true, false, false)
	return nil
}

// findForEdit loads a page the user may act on.
func (s *Service) findForEdit(ctx context.Context, id string, user *wiki.User) (*wiki.Page, error) {
	b := pagequery.New().ByID(id)
	if err := s.filterForEdit(ctx, b, user); err != nil {
		return nil, err
	}
	page, err := s.Pages.FindOne(ctx, b.Query())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, &domain.NotFoundError{Message: fmt.Sprintf("page %s not found", id)}
		}
		return nil, fmt.Errorf("find page: %w", err)
	}
	return page, nil
}

// IsAccessibleByViewer reports whether user may open the page.
func (s *Service) IsAccessibleByViewer(ctx context.Context, id string, user *wiki.User) (bool, error) {
	b := pagequery.New().ByID(id)
	if err := s.filterForEdit(ctx, b, user); err != nil {
		return false, err
	}
	n, err := s.Pages.Count(ctx, b.Query())
	if err != nil {
		return false, fmt.Errorf("count pages: %w", err)
	}
	return n > 0, nil
}
