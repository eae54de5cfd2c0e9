package wiki

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"wikitree/internal/domain"
	"wikitree/internal/domain/models/wiki"
	"wikitree/internal/domain/pagequery"
	"wikitree/internal/pagepath"
)

// FindByPath returns the page at path without any viewer filter.
func (s *Service) FindByPath(ctx context.Context, path string) (*wiki.Page, error) {
	page, err := s.Pages.GetByPath(ctx, pagepath.Normalize(path))
	if err != nil {
		return nil, err
	}
	return page, nil
}

func (s *Service) FindByIDAndViewer(ctx context.Context, id string, user *wiki.User) (*wiki.Page, error) {
	page, err := s.findOneForViewer(ctx, pagequery.New().ByID(id), user)
	if err != nil {
		return nil, err
	}
	if err := s.populateDetail(ctx, page); err != nil {
		return nil, err
	}
	return page, nil
}

func (s *Service) FindByPathAndViewer(ctx context.Context, path string, user *wiki.User) (*wiki.Page, error) {
	page, err := s.findOneForViewer(ctx, pagequery.New().ByPath(pagepath.Normalize(path)), user)
	if err != nil {
		return nil, err
	}
	if err := s.populateDetail(ctx, page); err != nil {
		return nil, err
	}
	return page, nil
}

func (s *Service) findOneForViewer(ctx context.Context, b *pagequery.Builder, user *wiki.User) (*wiki.Page, error) {
	if err := s.filterForEdit(ctx, b, user); err != nil {
		return nil, err
	}
	page, err := s.Pages.FindOne(ctx, b.PopulateForDetail().Query())
	if err != nil {
		return nil, err
	}
	return page, nil
}

// FindAncestorByPathAndViewer returns the nearest existing ancestor of path
// the viewer may open. Link-only pages are skipped.
func (s *Service) FindAncestorByPathAndViewer(ctx context.Context, path string, user *wiki.User) (*wiki.Page, error) {
	path = pagepath.Normalize(path)
	if pagepath.IsTopPage(path) {
		return nil, &domain.NotFoundError{Message: "the top page has no ancestor"}
	}

	ancestors := slices.Collect(pagepath.ExtractAncestorPaths(path))
	b := pagequery.New().ByPaths(ancestors)
	groups, err := s.Membership.GroupIDs(ctx, user)
	if err != nil {
		return nil, err
	}
	b.FilterByViewer(user, groups, false, false, false)
	b.Sort(pagequery.SortPath, true)

	page, err := s.Pages.FindOne(ctx, b.Query())
	if err != nil {
		return nil, err
	}
	return page, nil
}

// FindListWithDescendants lists path and the pages beneath it.
func (s *Service) FindListWithDescendants(ctx context.Context, path string, user *wiki.User, opts pagequery.ListOptions) (*wiki.ListResult, error) {
	b := pagequery.New().ListWithDescendants(pagepath.Normalize(path))
	return s.listForViewer(ctx, b, user, false, opts)
}

// FindListByStartWith lists pages whose path starts with path literally.
func (s *Service) FindListByStartWith(ctx context.Context, path string, user *wiki.User, opts pagequery.ListOptions) (*wiki.ListResult, error) {
	b := pagequery.New().ListByStartWith(path)
	return s.listForViewer(ctx, b, user, false, opts)
}

// FindListByCreator lists the pages creatorID created, newest first unless
// opts says otherwise. Link-only pages are included for the creator alone.
func (s *Service) FindListByCreator(ctx context.Context, creatorID string, viewer *wiki.User, opts pagequery.ListOptions) (*wiki.ListResult, error) {
	if opts.Sort == "" {
		opts.Sort, opts.Desc = pagequery.SortCreatedAt, true
	}
	showAnyone := viewer != nil && viewer.ID == creatorID
	b := pagequery.New().ByCreator(creatorID)
	return s.listForViewer(ctx, b, viewer, showAnyone, opts)
}

// FindListByPageIDs lists the given pages without a viewer filter. Redirect
// stubs are left out.
func (s *Service) FindListByPageIDs(ctx context.Context, ids []string, opts pagequery.ListOptions) (*wiki.ListResult, error) {
	b := pagequery.New().ByIDs(ids).ExcludeRedirect()
	return s.list(ctx, b, opts)
}

// FindVisibleByIDs returns the listable pages among ids in the order of ids.
// Trashed pages, redirect stubs and pages hidden from user are dropped.
func (s *Service) FindVisibleByIDs(ctx context.Context, ids []string, user *wiki.User) ([]wiki.Page, error) {
	if len(ids) == 0 {
		return []wiki.Page{}, nil
	}
	b := pagequery.New().ByIDs(ids).ExcludeTrashed().ExcludeRedirect()
	if err := s.filterForList(ctx, b, user, false); err != nil {
		return nil, err
	}
	pages, err := s.Pages.Find(ctx, b.PopulateForList().Query())
	if err != nil {
		return nil, fmt.Errorf("find pages: %w", err)
	}

	rank := make(map[string]int, len(ids))
	for i, id := range ids {
		if _, ok := rank[id]; !ok {
			rank[id] = i
		}
	}
	slices.SortFunc(pages, func(a, b wiki.Page) int { return rank[a.ID] - rank[b.ID] })
	if pages == nil {
		pages = []wiki.Page{}
	}
	return pages, nil
}

func (s *Service) listForViewer(ctx context.Context, b *pagequery.Builder, user *wiki.User, showAnyoneKnowsLink bool, opts pagequery.ListOptions) (*wiki.ListResult, error) {
	if !opts.IncludeTrashed {
		b.ExcludeTrashed()
	}
	if !opts.IncludeRedirect {
		b.ExcludeRedirect()
	}
	if err := s.filterForList(ctx, b, user, showAnyoneKnowsLink); err != nil {
		return nil, err
	}
	return s.list(ctx, b, opts)
}

// list counts, then fetches. The two reads are not atomic, so under
// concurrent writes TotalCount may disagree with the returned page.
func (s *Service) list(ctx context.Context, b *pagequery.Builder, opts pagequery.ListOptions) (*wiki.ListResult, error) {
	opts = opts.Normalize()

	total, err := s.Pages.Count(ctx, b.Query())
	if err != nil {
		return nil, fmt.Errorf("count pages: %w", err)
	}
	pages, err := s.Pages.Find(ctx, b.Paginate(opts).PopulateForList().Query())
	if err != nil {
		return nil, fmt.Errorf("find pages: %w", err)
	}
	if pages == nil {
		pages = []wiki.Page{}
	}

	s.Logger.Debug("pages listed", "total", total, "returned", len(pages), "offset", opts.Offset)
	return &wiki.ListResult{
		Pages:      pages,
		TotalCount: total,
		Offset:     opts.Offset,
		Limit:      opts.Limit,
	}, nil
}

// populateDetail attaches the current revision.
func (s *Service) populateDetail(ctx context.Context, page *wiki.Page) error {
	if page.RevisionID == nil {
		return nil
	}
	rev, err := s.Revisions.GetByID(ctx, *page.RevisionID)
	if errors.Is(err, domain.ErrNotFound) {
		s.Logger.Warn("page revision missing", "page_id", page.ID, "revision_id", *page.RevisionID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load revision: %w", err)
	}
	page.LatestRevision = page.RevisionID
	page.RevisionData = rev
	return nil
}

// ListRevisions returns the page history, newest first.
func (s *Service) ListRevisions(ctx context.Context, user *wiki.User, pageID string) ([]wiki.Revision, error) {
	page, err := s.findForEdit(ctx, pageID, user)
	if err != nil {
		return nil, err
	}
	revs, err := s.Revisions.ListByPath(ctx, page.Path)
	if err != nil {
		return nil, fmt.Errorf("list revisions: %w", err)
	}
	return revs, nil
}
