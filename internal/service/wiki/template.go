package wiki

import (
	"context"
	"fmt"

	"wikitree/internal/domain/models/wiki"
	"wikitree/internal/domain/pagequery"
	"wikitree/internal/pagepath"
)

// FindTemplate resolves the template for a page about to be created at
// path. A `_template` in the page's own directory wins; otherwise the
// nearest `__template` walking up to root. It returns nil when none exists.
func (s *Service) FindTemplate(ctx context.Context, path string) (*wiki.Template, error) {
	dir := pagepath.Dirname(pagepath.Normalize(path))

	children := pagepath.WithTrailingSeparator(dir) + pagepath.ChildrenTemplate
	candidates := []string{children}
	var descendants []string
	for d := dir; ; d = pagepath.Dirname(d) {
		descendants = append(descendants, pagepath.WithTrailingSeparator(d)+pagepath.DescendantsTemplate)
		if pagepath.IsTopPage(d) {
			break
		}
	}
	candidates = append(candidates, descendants...)

	q := pagequery.New().ByPaths(candidates).ExcludeTrashed().ExcludeRedirect().Query()
	found, err := s.Pages.Find(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("find templates: %w", err)
	}
	byPath := make(map[string]*wiki.Page, len(found))
	for i := range found {
		byPath[found[i].Path] = &found[i]
	}

	var tmpl *wiki.Page
	if p, ok := byPath[children]; ok {
		tmpl = p
	} else {
		for _, c := range descendants {
			if p, ok := byPath[c]; ok {
				tmpl = p
				break
			}
		}
	}
	if tmpl == nil {
		return nil, nil
	}

	out := &wiki.Template{Path: tmpl.Path, Tags: []string{}}
	if tmpl.RevisionID != nil {
		rev, err := s.Revisions.GetByID(ctx, *tmpl.RevisionID)
		if err != nil {
			return nil, fmt.Errorf("load template revision: %w", err)
		}
		out.Body = rev.Body
	}
	tags, err := s.Tags.ListByPageID(ctx, tmpl.ID)
	if err != nil {
		return nil, fmt.Errorf("load template tags: %w", err)
	}
	if tags != nil {
		out.Tags = tags
	}
	return out, nil
}
