package wiki

import (
	"context"
	"fmt"

	"wikitree/internal/domain"
	"wikitree/internal/domain/models/wiki"
	"wikitree/internal/service/wiki/format"
)

// ExportMarkdown renders a revision of the page as a markdown file with a
// front matter header. An empty revisionID exports the current revision.
func (s *Service) ExportMarkdown(ctx context.Context, user *wiki.User, pageID, revisionID string) (string, error) {
	page, err := s.findForEdit(ctx, pageID, user)
	if err != nil {
		return "", err
	}
	if revisionID == "" {
		if page.RevisionID == nil {
			return "", &domain.NotFoundError{Message: "page has no revision"}
		}
		revisionID = *page.RevisionID
	}

	rev, err := s.Revisions.GetByID(ctx, revisionID)
	if err != nil {
		return "", err
	}
	if rev.Path != page.Path {
		return "", &domain.NotFoundError{Message: fmt.Sprintf("revision %s does not belong to the page", revisionID)}
	}

	tags, err := s.Tags.ListByPageID(ctx, page.ID)
	if err != nil {
		return "", fmt.Errorf("list tags: %w", err)
	}

	fm := format.FrontMatter{Path: page.Path, Revision: rev.ID, Tags: tags}
	if rev.Author != nil {
		fm.Author = *rev.Author
	}
	return format.RenderFrontMatter(fm, rev.Body)
}
