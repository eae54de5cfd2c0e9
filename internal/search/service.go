package search

import (
	"context"
	"fmt"
	"strings"

	"wikitree/internal/domain/models/wiki"
	"wikitree/internal/domain/pagequery"
)

// PageFilter narrows index hits to the pages a viewer may list.
type PageFilter interface {
	FindVisibleByIDs(ctx context.Context, ids []string, user *wiki.User) ([]wiki.Page, error)
}

// Service answers page searches for a viewer.
type Service struct {
	index Index
	pages PageFilter
}

func NewService(index Index, pages PageFilter) *Service {
	return &Service{index: index, pages: pages}
}

// Search queries the index and drops hits the viewer cannot list. Total is
// the index's estimate before that filtering.
func (s *Service) Search(ctx context.Context, user *wiki.User, text string, offset, limit int) (Response, error) {
	text = strings.TrimSpace(text)
	opts := pagequery.ListOptions{Offset: offset, Limit: limit}.Normalize()
	if text == "" || s.index == nil || !s.index.Healthy() {
		return Response{Results: []Result{}, Query: text}, nil
	}

	hits, total, err := s.index.Search(ctx, text, opts.Offset, opts.Limit)
	if err != nil {
		return Response{}, fmt.Errorf("search index: %w", err)
	}

	ids := make([]string, 0, len(hits))
	snippets := make(map[string]string, len(hits))
	for _, h := range hits {
		ids = append(ids, h.ID)
		snippets[h.ID] = h.Snippet
	}
	pages, err := s.pages.FindVisibleByIDs(ctx, ids, user)
	if err != nil {
		return Response{}, err
	}

	results := make([]Result, len(pages))
	for i, p := range pages {
		results[i] = Result{Page: p, Snippet: snippets[p.ID]}
	}
	return Response{Results: results, Total: total, Query: text}, nil
}
