package wiki

import (
	"context"
	"fmt"
	"slices"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"wikitree/internal/domain"
	"wikitree/internal/domain/models/wiki"
)

const (
	MaxCommentLength = 10000
	MaxTagLength     = 64
	MaxSlackLength   = 1024
)

func (s *Service) Like(ctx context.Context, user *wiki.User, pageID string) (*wiki.Page, error) {
	return s.touch(ctx, user, pageID, "like", func(p *wiki.Page) bool { return p.Like(user.ID) })
}

func (s *Service) Unlike(ctx context.Context, user *wiki.User, pageID string) (*wiki.Page, error) {
	return s.touch(ctx, user, pageID, "unlike", func(p *wiki.Page) bool { return p.Unlike(user.ID) })
}

func (s *Service) MarkSeen(ctx context.Context, user *wiki.User, pageID string) (*wiki.Page, error) {
	return s.touch(ctx, user, pageID, "seen", func(p *wiki.Page) bool { return p.MarkSeen(user.ID) })
}

// Likers lists the ids of users who like the page.
func (s *Service) Likers(ctx context.Context, user *wiki.User, pageID string) ([]string, error) {
	page, err := s.findForEdit(ctx, pageID, user)
	if err != nil {
		return nil, err
	}
	return nonNil(page.Liker), nil
}

// SeenUsers lists the ids of users who marked the page as seen.
func (s *Service) SeenUsers(ctx context.Context, user *wiki.User, pageID string) ([]string, error) {
	page, err := s.findForEdit(ctx, pageID, user)
	if err != nil {
		return nil, err
	}
	return nonNil(page.SeenUsers), nil
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

// UpdateSlackChannel stores the comma separated channels notified about the
// page. An empty string clears the setting.
func (s *Service) UpdateSlackChannel(ctx context.Context, user *wiki.User, pageID, channels string) (*wiki.Page, error) {
	channels = strings.TrimSpace(channels)
	if err := validation.Validate(channels, validation.Length(0, MaxSlackLength)); err != nil {
		return nil, invalid(err)
	}
	return s.touch(ctx, user, pageID, "slack", func(p *wiki.Page) bool {
		if p.SlackChannels() == channels {
			return false
		}
		p.SetSlackChannels(channels)
		return true
	})
}

// touch applies a change that does not make a new revision. The page is
// saved only when change reports a difference; updatedAt is left alone.
func (s *Service) touch(ctx context.Context, user *wiki.User, pageID, what string, change func(*wiki.Page) bool) (*wiki.Page, error) {
	if err := requireUser(user); err != nil {
		return nil, err
	}

	var page *wiki.Page
	err := s.TxManager.ExecTx(ctx, func(ctx context.Context) error {
		p, err := s.findForEdit(ctx, pageID, user)
		if err != nil {
			return err
		}
		if change(p) {
			if err := s.Pages.Update(ctx, p); err != nil {
				return fmt.Errorf("%s page: %w", what, err)
			}
		}
		page = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Debug("page touched", "page_id", page.ID, "change", what, "user_id", user.ID)
	return page, nil
}

// AddComment posts a comment and refreshes the page's comment count.
func (s *Service) AddComment(ctx context.Context, user *wiki.User, pageID, body string) (*wiki.Comment, error) {
	if err := requireUser(user); err != nil {
		return nil, err
	}
	if err := validation.Validate(strings.TrimSpace(body), validation.Required, validation.Length(1, MaxCommentLength)); err != nil {
		return nil, invalid(err)
	}

	comment := &wiki.Comment{PageID: pageID, Creator: user.ID, Body: body, CreatedAt: s.Now()}
	err := s.TxManager.ExecTx(ctx, func(ctx context.Context) error {
		page, err := s.findForEdit(ctx, pageID, user)
		if err != nil {
			return err
		}
		if err := s.Comments.Create(ctx, comment); err != nil {
			return fmt.Errorf("create comment: %w", err)
		}
		return s.recountComments(ctx, page)
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("comment added", "comment_id", comment.ID, "page_id", pageID)
	return comment, nil
}

// DeleteComment removes a comment. Only its author or an admin may.
func (s *Service) DeleteComment(ctx context.Context, user *wiki.User, commentID string) error {
	if err := requireUser(user); err != nil {
		return err
	}

	err := s.TxManager.ExecTx(ctx, func(ctx context.Context) error {
		comment, err := s.Comments.GetByID(ctx, commentID)
		if err != nil {
			return err
		}
		if comment.Creator != user.ID && !user.Admin {
			return &domain.ForbiddenError{Message: "only the author can delete a comment"}
		}
		if err := s.Comments.Delete(ctx, commentID); err != nil {
			return fmt.Errorf("delete comment: %w", err)
		}
		page, err := s.Pages.GetByID(ctx, comment.PageID)
		if err != nil {
			return fmt.Errorf("load commented page: %w", err)
		}
		return s.recountComments(ctx, page)
	})
	if err != nil {
		return err
	}

	s.Logger.Info("comment deleted", "comment_id", commentID)
	return nil
}

func (s *Service) recountComments(ctx context.Context, page *wiki.Page) error {
	n, err := s.Comments.CountByPageID(ctx, page.ID)
	if err != nil {
		return fmt.Errorf("count comments: %w", err)
	}
	if page.CommentCount == n {
		return nil
	}
	page.CommentCount = n
	if err := s.Pages.Update(ctx, page); err != nil {
		return fmt.Errorf("update comment count: %w", err)
	}
	return nil
}

func (s *Service) ListComments(ctx context.Context, user *wiki.User, pageID string) ([]wiki.Comment, error) {
	if _, err := s.findForEdit(ctx, pageID, user); err != nil {
		return nil, err
	}
	comments, err := s.Comments.ListByPageID(ctx, pageID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return comments, nil
}

// UpdateTags makes tags the page's tag set and returns it normalized.
func (s *Service) UpdateTags(ctx context.Context, user *wiki.User, pageID string, tags []string) ([]string, error) {
	if err := requireUser(user); err != nil {
		return nil, err
	}
	tags = normalizeTags(tags)
	if err := validation.Validate(tags, validation.Each(validation.Length(1, MaxTagLength))); err != nil {
		return nil, invalid(err)
	}

	err := s.TxManager.ExecTx(ctx, func(ctx context.Context) error {
		if _, err := s.findForEdit(ctx, pageID, user); err != nil {
			return err
		}
		if err := s.Tags.ReplaceForPage(ctx, pageID, tags); err != nil {
			return fmt.Errorf("replace tags: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("tags updated", "page_id", pageID, "tags", len(tags))
	return tags, nil
}

func (s *Service) ListTags(ctx context.Context, user *wiki.User, pageID string) ([]string, error) {
	if _, err := s.findForEdit(ctx, pageID, user); err != nil {
		return nil, err
	}
	tags, err := s.Tags.ListByPageID(ctx, pageID)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	if tags == nil {
		tags = []string{}
	}
	return tags, nil
}

// normalizeTags trims, drops empties and duplicates, and sorts.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
