package wiki

import (
	"context"
	"errors"
	"fmt"

	"wikitree/internal/domain"
	"wikitree/internal/domain/models/wiki"
	"wikitree/internal/domain/pagequery"
	wikiSvc "wikitree/internal/domain/services/wiki"
	"wikitree/internal/events"
	"wikitree/internal/pagepath"
)

// Create adds a published page with its first revision.
func (s *Service) Create(ctx context.Context, user *wiki.User, req *wikiSvc.CreatePageRequest) (*wiki.Page, error) {
	if err := requireUser(user); err != nil {
		return nil, err
	}
	if err := validateCreateRequest(req); err != nil {
		return nil, err
	}

	p := pagepath.Normalize(req.Path)
	if !pagepath.IsCreatableName(p) {
		return nil, &domain.ForbiddenError{Message: fmt.Sprintf("'%s' is not a creatable page path", p)}
	}

	var page *wiki.Page
	err := s.inTx(ctx, func(ctx context.Context, ob *outbox) error {
		var err error
		page, err = s.createPage(ctx, ob, user, p, req)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("page created",
		"page_id", page.ID,
		"path", page.Path,
		"user_id", user.ID,
	)
	return page, nil
}

// createPage skips the creatable-name check so it can place redirect stubs.
func (s *Service) createPage(ctx context.Context, ob *outbox, user *wiki.User, p string, req *wikiSvc.CreatePageRequest) (*wiki.Page, error) {
	grant, groupID := req.Grant, req.GrantUserGroupID
	if pagepath.IsTopPage(p) {
		grant, groupID = wiki.GrantPublic, nil
	}
	if err := s.validateAppliedScope(ctx, user, grant, groupID); err != nil {
		return nil, err
	}

	if existing, err := s.Pages.GetByPath(ctx, p); err == nil {
		return nil, &domain.ConflictError{
			Message:      fmt.Sprintf("page '%s' already exists", p),
			ResourceType: "page",
			ResourceID:   existing.ID,
		}
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("check path: %w", err)
	}

	body, err := s.Formats.ToMarkdown(ctx, req.Format, req.Body)
	if err != nil {
		return nil, err
	}

	now := s.Now()
	page := &wiki.Page{
		Path:           p,
		RedirectTo:     req.RedirectTo,
		Status:         wiki.StatusPublished,
		Creator:        &user.ID,
		LastUpdateUser: &user.ID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	applyScope(page, user, grant, groupID)

	if err := s.Pages.Create(ctx, page); err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	rev, err := s.pushRevision(ctx, page, body, user)
	if err != nil {
		return nil, err
	}

	page.LatestRevision = page.RevisionID
	page.RevisionData = rev
	kind := events.TypeCreate
	if page.IsRedirect() {
		kind = events.TypeRedirect
	}
	ob.emit(kind, page, user, req.SocketClientID)
	return page, nil
}

// pushRevision stores body as the page's newest revision and links it.
func (s *Service) pushRevision(ctx context.Context, page *wiki.Page, body string, user *wiki.User) (*wiki.Revision, error) {
	rev := &wiki.Revision{
		Path:      page.Path,
		Body:      body,
		Format:    wiki.FormatMarkdown,
		Author:    &user.ID,
		CreatedAt: s.Now(),
	}
	if err := s.Revisions.Create(ctx, rev); err != nil {
		return nil, fmt.Errorf("create revision: %w", err)
	}

	page.RevisionID = &rev.ID
	if err := s.Pages.Update(ctx, page); err != nil {
		return nil, fmt.Errorf("link revision: %w", err)
	}
	return rev, nil
}

// UpdatePage pushes a new revision. An unset grant keeps the page's scope.
func (s *Service) UpdatePage(ctx context.Context, user *wiki.User, pageID string, req *wikiSvc.UpdatePageRequest) (*wiki.Page, error) {
	if err := requireUser(user); err != nil {
		return nil, err
	}
	if err := validateUpdateRequest(req); err != nil {
		return nil, err
	}

	var page *wiki.Page
	err := s.inTx(ctx, func(ctx context.Context, ob *outbox) error {
		p, err := s.findForEdit(ctx, pageID, user)
		if err != nil {
			return err
		}
		if req.PreviousRevisionID != "" && !p.IsUpdatable(req.PreviousRevisionID) {
			current := ""
			if p.RevisionID != nil {
				current = *p.RevisionID
			}
			return &domain.ConflictError{
				Message:      "page has been updated since the edit started",
				ResourceType: "revision",
				ResourceID:   current,
			}
		}

		grant, groupID := req.Grant, req.GrantUserGroupID
		if grant == 0 {
			grant = p.Grant
		}
		if groupID == nil {
			groupID = p.GrantedGroup
		}
		if pagepath.IsTopPage(p.Path) {
			grant, groupID = wiki.GrantPublic, nil
		}
		if err := s.validateAppliedScope(ctx, user, grant, groupID); err != nil {
			return err
		}

		body, err := s.Formats.ToMarkdown(ctx, req.Format, req.Body)
		if err != nil {
			return err
		}

		applyScope(p, user, grant, groupID)
		p.LastUpdateUser = &user.ID
		p.UpdatedAt = s.Now()

		rev, err := s.pushRevision(ctx, p, body, user)
		if err != nil {
			return err
		}
		p.LatestRevision = p.RevisionID
		p.RevisionData = rev
		ob.emit(events.TypeUpdate, p, user, req.SocketClientID)
		page = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("page updated",
		"page_id", page.ID,
		"path", page.Path,
		"revision_id", *page.RevisionID,
	)
	return page, nil
}

// Rename moves a single page.
func (s *Service) Rename(ctx context.Context, user *wiki.User, pageID, newPath string, opts wikiSvc.RenameOptions) (*wiki.Page, error) {
	if err := requireUser(user); err != nil {
		return nil, err
	}
	newPath, err := s.checkDestination(newPath)
	if err != nil {
		return nil, err
	}

	var renamed *wiki.Page
	err = s.inTx(ctx, func(ctx context.Context, ob *outbox) error {
		page, err := s.findForEdit(ctx, pageID, user)
		if err != nil {
			return err
		}
		if pagepath.IsTopPage(page.Path) {
			return &domain.ForbiddenError{Message: "the top page cannot be renamed"}
		}
		if page.Path == newPath {
			return &domain.ValidationError{Message: "new path is the same as the current path"}
		}
		renamed, err = s.renamePage(ctx, ob, user, page, newPath, opts)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("page renamed", "page_id", renamed.ID, "path", renamed.Path)
	return renamed, nil
}

// RenameRecursively moves a page and its visible subtree, replacing the
// path prefix case-insensitively.
func (s *Service) RenameRecursively(ctx context.Context, user *wiki.User, pageID, newPathPrefix string, opts wikiSvc.RenameOptions) (*wiki.Page, error) {
	if err := requireUser(user); err != nil {
		return nil, err
	}
	newPrefix, err := s.checkDestination(newPathPrefix)
	if err != nil {
		return nil, err
	}

	var renamed *wiki.Page
	err = s.inTx(ctx, func(ctx context.Context, ob *outbox) error {
		root, err := s.findForEdit(ctx, pageID, user)
		if err != nil {
			return err
		}
		if pagepath.IsTopPage(root.Path) {
			return &domain.ForbiddenError{Message: "the top page cannot be renamed"}
		}
		if root.Path == newPrefix || pagepath.HasDescendantPath(root.Path, newPrefix) {
			return &domain.ValidationError{Message: "a page cannot be moved under itself"}
		}

		pages, err := s.collectSubtree(ctx, root, user, pagequery.ListOptions{})
		if err != nil {
			return err
		}
		for i := range pages {
			page := &pages[i]
			dest := pagepath.ReplacePrefixFold(page.Path, root.Path, newPrefix)
			out, err := s.renamePage(ctx, ob, user, page, dest, opts)
			if err != nil {
				return err
			}
			if out.ID == root.ID {
				renamed = out
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("page subtree renamed", "page_id", renamed.ID, "path", renamed.Path)
	return renamed, nil
}

func (s *Service) checkDestination(p string) (string, error) {
	if err := validatePath(p); err != nil {
		return "", err
	}
	p = pagepath.Normalize(p)
	if !pagepath.IsCreatableName(p) {
		return "", &domain.ForbiddenError{Message: fmt.Sprintf("'%s' is not a creatable page path", p)}
	}
	return p, nil
}

// renamePage moves page to newPath together with its revisions, optionally
// leaving a redirect stub at the old path.
func (s *Service) renamePage(ctx context.Context, ob *outbox, user *wiki.User, page *wiki.Page, newPath string, opts wikiSvc.RenameOptions) (*wiki.Page, error) {
	before := page.Clone()
	oldPath := page.Path

	page.Path = newPath
	if opts.UpdateMetadata {
		page.LastUpdateUser = &user.ID
		page.UpdatedAt = s.Now()
	}
	if err := s.Pages.Update(ctx, page); err != nil {
		return nil, fmt.Errorf("rename %s to %s: %w", oldPath, newPath, err)
	}
	if err := s.Revisions.UpdatePath(ctx, oldPath, newPath); err != nil {
		return nil, fmt.Errorf("move revisions of %s: %w", oldPath, err)
	}

	ob.emit(events.TypeDelete, before, user, opts.SocketClientID)
	ob.emit(events.TypeCreate, page, user, opts.SocketClientID)

	if opts.CreateRedirectPage {
		stub := &wikiSvc.CreatePageRequest{
			Body:           "redirect " + newPath,
			RedirectTo:     &newPath,
			Grant:          wiki.GrantPublic,
			SocketClientID: opts.SocketClientID,
		}
		if _, err := s.createPage(ctx, ob, user, oldPath, stub); err != nil {
			return nil, fmt.Errorf("create redirect at %s: %w", oldPath, err)
		}
	}
	return page, nil
}

// DeletePage moves a page to the trash.
func (s *Service) DeletePage(ctx context.Context, user *wiki.User, pageID string, opts wikiSvc.MutationOptions) (*wiki.Page, error) {
	if err := requireUser(user); err != nil {
		return nil, err
	}

	var deleted *wiki.Page
	err := s.inTx(ctx, func(ctx context.Context, ob *outbox) error {
		page, err := s.findForEdit(ctx, pageID, user)
		if err != nil {
			return err
		}
		deleted, err = s.deletePage(ctx, ob, user, page, opts)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("page trashed", "page_id", deleted.ID, "path", deleted.Path)
	return deleted, nil
}

// DeletePageRecursively trashes a page and every descendant, stubs included.
func (s *Service) DeletePageRecursively(ctx context.Context, user *wiki.User, pageID string, opts wikiSvc.MutationOptions) (*wiki.Page, error) {
	if err := requireUser(user); err != nil {
		return nil, err
	}

	var deleted *wiki.Page
	err := s.inTx(ctx, func(ctx context.Context, ob *outbox) error {
		root, err := s.findForEdit(ctx, pageID, user)
		if err != nil {
			return err
		}
		if err := checkDeletable(root); err != nil {
			return err
		}

		pages, err := s.collectSubtree(ctx, root, user, pagequery.ListOptions{IncludeRedirect: true})
		if err != nil {
			return err
		}
		for i := range pages {
			page, err := s.reload(ctx, pages[i].ID)
			if err != nil {
				return err
			}
			if page == nil {
				continue
			}
			out, err := s.deletePage(ctx, ob, user, page, opts)
			if err != nil {
				return err
			}
			if out.ID == root.ID {
				deleted = out
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("page subtree trashed", "page_id", deleted.ID, "path", deleted.Path)
	return deleted, nil
}

func checkDeletable(page *wiki.Page) error {
	switch {
	case pagepath.IsTrashPage(page.Path):
		return fmt.Errorf("page %s is already in the trash: %w", page.Path, domain.ErrInvalidState)
	case pagepath.IsTopPage(page.Path):
		return &domain.ForbiddenError{Message: "the top page cannot be deleted"}
	case !pagepath.IsDeletableName(page.Path):
		return &domain.ForbiddenError{Message: fmt.Sprintf("page %s is not deletable", page.Path)}
	}
	return nil
}

func (s *Service) deletePage(ctx context.Context, ob *outbox, user *wiki.User, page *wiki.Page, opts wikiSvc.MutationOptions) (*wiki.Page, error) {
	if err := checkDeletable(page); err != nil {
		return nil, err
	}
	page.Status = wiki.StatusDeleted
	return s.renamePage(ctx, ob, user, page, pagepath.DeletedPageName(page.Path), wikiSvc.RenameOptions{
		CreateRedirectPage: true,
		SocketClientID:     opts.SocketClientID,
	})
}

// RevertDeletedPage restores a trashed page to its original path.
func (s *Service) RevertDeletedPage(ctx context.Context, user *wiki.User, pageID string, opts wikiSvc.MutationOptions) (*wiki.Page, error) {
	if err := requireUser(user); err != nil {
		return nil, err
	}

	var reverted *wiki.Page
	err := s.inTx(ctx, func(ctx context.Context, ob *outbox) error {
		page, err := s.findForEdit(ctx, pageID, user)
		if err != nil {
			return err
		}
		reverted, err = s.revertDeletedPage(ctx, ob, user, page, opts)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("page reverted", "page_id", reverted.ID, "path", reverted.Path)
	return reverted, nil
}

// RevertDeletedPageRecursively restores a trashed subtree, stubs included.
func (s *Service) RevertDeletedPageRecursively(ctx context.Context, user *wiki.User, pageID string, opts wikiSvc.MutationOptions) (*wiki.Page, error) {
	if err := requireUser(user); err != nil {
		return nil, err
	}

	var reverted *wiki.Page
	err := s.inTx(ctx, func(ctx context.Context, ob *outbox) error {
		root, err := s.findForEdit(ctx, pageID, user)
		if err != nil {
			return err
		}
		if !pagepath.IsTrashPage(root.Path) {
			return fmt.Errorf("page %s is not in the trash: %w", root.Path, domain.ErrInvalidState)
		}

		pages, err := s.collectSubtree(ctx, root, user, pagequery.ListOptions{IncludeTrashed: true, IncludeRedirect: true})
		if err != nil {
			return err
		}
		for i := range pages {
			page, err := s.reload(ctx, pages[i].ID)
			if err != nil {
				return err
			}
			if page == nil {
				continue
			}
			out, err := s.revertDeletedPage(ctx, ob, user, page, opts)
			if err != nil {
				return err
			}
			if out.ID == root.ID {
				reverted = out
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("page subtree reverted", "page_id", reverted.ID, "path", reverted.Path)
	return reverted, nil
}

// revertDeletedPage destroys the stub left at the original path, which must
// point back at the trashed page, then moves the page back.
func (s *Service) revertDeletedPage(ctx context.Context, ob *outbox, user *wiki.User, page *wiki.Page, opts wikiSvc.MutationOptions) (*wiki.Page, error) {
	if !pagepath.IsTrashPage(page.Path) {
		return nil, fmt.Errorf("page %s is not in the trash: %w", page.Path, domain.ErrInvalidState)
	}
	newPath := pagepath.RevertDeletedPageName(page.Path)

	occupant, err := s.Pages.GetByPath(ctx, newPath)
	switch {
	case err == nil:
		if occupant.RedirectTo == nil || *occupant.RedirectTo != page.Path {
			return nil, &domain.ConflictError{
				Message:      fmt.Sprintf("page '%s' exists and does not redirect to the deleted page", newPath),
				ResourceType: "page",
				ResourceID:   occupant.ID,
			}
		}
		if err := s.completelyDeletePage(ctx, ob, user, occupant, opts); err != nil {
			return nil, err
		}
	case !errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("check path: %w", err)
	}

	page.Status = wiki.StatusPublished
	page.LastUpdateUser = &user.ID
	return s.renamePage(ctx, ob, user, page, newPath, wikiSvc.RenameOptions{SocketClientID: opts.SocketClientID})
}

// CompletelyDeletePage destroys a page, its dependents and every redirect
// stub chained to it.
func (s *Service) CompletelyDeletePage(ctx context.Context, user *wiki.User, pageID string, opts wikiSvc.MutationOptions) (*wiki.Page, error) {
	if err := requireUser(user); err != nil {
		return nil, err
	}

	var destroyed *wiki.Page
	err := s.inTx(ctx, func(ctx context.Context, ob *outbox) error {
		page, err := s.findForEdit(ctx, pageID, user)
		if err != nil {
			return err
		}
		if pagepath.IsTopPage(page.Path) {
			return &domain.ForbiddenError{Message: "the top page cannot be deleted"}
		}
		destroyed = page
		return s.completelyDeletePage(ctx, ob, user, page, opts)
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("page destroyed", "page_id", destroyed.ID, "path", destroyed.Path)
	return destroyed, nil
}

// CompletelyDeletePageRecursively destroys a page and its subtree, trashed
// pages and stubs included, and returns the subtree path.
func (s *Service) CompletelyDeletePageRecursively(ctx context.Context, user *wiki.User, pageID string, opts wikiSvc.MutationOptions) (string, error) {
	if err := requireUser(user); err != nil {
		return "", err
	}

	var root *wiki.Page
	destroyed := 0
	err := s.inTx(ctx, func(ctx context.Context, ob *outbox) error {
		var err error
		root, err = s.findForEdit(ctx, pageID, user)
		if err != nil {
			return err
		}
		if pagepath.IsTopPage(root.Path) {
			return &domain.ForbiddenError{Message: "the top page cannot be deleted"}
		}

		pages, err := s.collectSubtree(ctx, root, user, pagequery.ListOptions{IncludeTrashed: true, IncludeRedirect: true})
		if err != nil {
			return err
		}
		for i := range pages {
			current, err := s.reload(ctx, pages[i].ID)
			if err != nil {
				return err
			}
			if current == nil {
				continue
			}
			if err := s.completelyDeletePage(ctx, ob, user, current, opts); err != nil {
				return err
			}
			destroyed++
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	s.Logger.Info("page subtree destroyed", "path", root.Path, "pages", destroyed)
	return root.Path, nil
}

func (s *Service) completelyDeletePage(ctx context.Context, ob *outbox, user *wiki.User, page *wiki.Page, opts wikiSvc.MutationOptions) error {
	if err := s.purge(ctx, ob, page); err != nil {
		return err
	}
	if err := s.removeRedirectOrigins(ctx, ob, page.Path); err != nil {
		return err
	}
	ob.emit(events.TypeDelete, page, user, opts.SocketClientID)
	return nil
}

// purge removes a page row and everything keyed by its id or path.
// Attachment blobs are released to the outbox.
func (s *Service) purge(ctx context.Context, ob *outbox, page *wiki.Page) error {
	attachments, err := s.Attachments.ListByPageID(ctx, page.ID)
	if err != nil {
		return fmt.Errorf("list attachments: %w", err)
	}

	steps := []struct {
		what string
		run  func() error
	}{
		{"bookmarks", func() error { return s.Bookmarks.DeleteByPageID(ctx, page.ID) }},
		{"attachments", func() error { return s.Attachments.DeleteByPageID(ctx, page.ID) }},
		{"comments", func() error { return s.Comments.DeleteByPageID(ctx, page.ID) }},
		{"tags", func() error { return s.Tags.DeleteByPageID(ctx, page.ID) }},
		{"share links", func() error { _, err := s.ShareLinks.DeleteByPageID(ctx, page.ID); return err }},
		{"revisions", func() error { return s.Revisions.DeleteByPath(ctx, page.Path) }},
		{"page", func() error { return s.Pages.Delete(ctx, page.ID) }},
	}
	for _, step := range steps {
		if err := step.run(); err != nil {
			return fmt.Errorf("delete %s of %s: %w", step.what, page.Path, err)
		}
	}

	for _, a := range attachments {
		ob.blobKeys = append(ob.blobKeys, a.ObjectKey)
	}
	return nil
}

// RemoveRedirectOriginPageByPath destroys every stub leading to path.
func (s *Service) RemoveRedirectOriginPageByPath(ctx context.Context, path string) error {
	return s.inTx(ctx, func(ctx context.Context, ob *outbox) error {
		return s.removeRedirectOrigins(ctx, ob, path)
	})
}

// removeRedirectOrigins walks stubs breadth first: every stub forwarding to
// path, then every stub forwarding to those, until none are left.
func (s *Service) removeRedirectOrigins(ctx context.Context, ob *outbox, path string) error {
	queue := []string{path}
	seen := map[string]bool{path: true}

	for len(queue) > 0 {
		target := queue[0]
		queue = queue[1:]

		stubs, err := s.Pages.Find(ctx, pagequery.New().ByRedirectTo(target).Query())
		if err != nil {
			return fmt.Errorf("find redirects to %s: %w", target, err)
		}
		for i := range stubs {
			stub := &stubs[i]
			if err := s.purge(ctx, ob, stub); err != nil {
				return err
			}
			ob.emit(events.TypeDelete, stub, nil, "")
			if !seen[stub.Path] {
				seen[stub.Path] = true
				queue = append(queue, stub.Path)
			}
		}
	}
	return nil
}

// reload fetches the current state of a collected page. It returns nil when
// an earlier step of the cascade already destroyed the page through a
// redirect chain.
func (s *Service) reload(ctx context.Context, id string) (*wiki.Page, error) {
	page, err := s.Pages.GetByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reload page %s: %w", id, err)
	}
	return page, nil
}

// collectSubtree lists root and its descendants as the viewer sees them in
// lists, shallowest first. root is always part of the result.
func (s *Service) collectSubtree(ctx context.Context, root *wiki.Page, user *wiki.User, opts pagequery.ListOptions) ([]wiki.Page, error) {
	b := pagequery.New().ListWithDescendants(root.Path)
	if !opts.IncludeTrashed {
		b.ExcludeTrashed()
	}
	if !opts.IncludeRedirect {
		b.ExcludeRedirect()
	}
	if err := s.filterForList(ctx, b, user, false); err != nil {
		return nil, err
	}
	b.Sort(pagequery.SortPath, false)

	pages, err := s.Pages.Find(ctx, b.Query())
	if err != nil {
		return nil, fmt.Errorf("list descendants of %s: %w", root.Path, err)
	}
	for _, p := range pages {
		if p.ID == root.ID {
			return pages, nil
		}
	}
	return append([]wiki.Page{*root}, pages...), nil
}
