package wiki

import (
	"context"
	"errors"
	"fmt"

	"wikitree/internal/domain"
	"wikitree/internal/domain/models/wiki"
	wikiSvc "wikitree/internal/domain/services/wiki"
	"wikitree/internal/pagepath"
)

// RootBody is the body of a freshly installed top page.
const RootBody = "# Welcome\n\nThis is the top page of the wiki.\n"

// EnsureRootPage creates the public top page when it does not exist yet and
// returns it. The page is attributed to installer.
func (s *Service) EnsureRootPage(ctx context.Context, installer *wiki.User) (*wiki.Page, error) {
	if err := requireUser(installer); err != nil {
		return nil, err
	}
	if page, err := s.Pages.GetByPath(ctx, pagepath.Separator); err == nil {
		return page, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("find top page: %w", err)
	}

	var root *wiki.Page
	err := s.inTx(ctx, func(ctx context.Context, ob *outbox) error {
		var err error
		root, err = s.createPage(ctx, ob, installer, pagepath.Separator, &wikiSvc.CreatePageRequest{
			Path:  pagepath.Separator,
			Body:  RootBody,
			Grant: wiki.GrantPublic,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	s.Logger.Info("top page created", "page_id", root.ID)
	return root, nil
}
