package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"wikitree/internal/domain"
	"wikitree/internal/domain/models/wiki"
	"wikitree/internal/events"
	"wikitree/internal/pagepath"
)

// RevisionSource loads revision bodies for events that carry none.
type RevisionSource interface {
	GetByID(ctx context.Context, id string) (*wiki.Revision, error)
}

// TagSource lists a page's tags.
type TagSource interface {
	ListByPageID(ctx context.Context, pageID string) ([]string, error)
}

// Indexer mirrors page events into an Index.
type Indexer struct {
	index     Index
	revisions RevisionSource
	tags      TagSource
	logger    *slog.Logger
}

func NewIndexer(index Index, revisions RevisionSource, tags TagSource, logger *slog.Logger) *Indexer {
	return &Indexer{index: index, revisions: revisions, tags: tags, logger: logger}
}

// Handle is an events.Handler. Trashed pages and redirect stubs are removed
// from the index rather than indexed; fresh stubs were never indexed and are
// ignored.
func (x *Indexer) Handle(ctx context.Context, ev events.PageEvent) {
	if ev.Page == nil || ev.Type == events.TypeRedirect {
		return
	}
	var err error
	if ev.Type == events.TypeDelete || !indexable(ev.Page) {
		err = x.index.Delete(ctx, []string{ev.Page.ID})
	} else {
		err = x.upsert(ctx, ev.Page)
	}
	if err != nil {
		x.logger.Warn("search index update failed",
			"type", ev.Type,
			"page_id", ev.Page.ID,
			"path", ev.Page.Path,
			"error", err,
		)
	}
}

func indexable(page *wiki.Page) bool {
	return page.IsPublished() && !page.IsRedirect() && !pagepath.IsTrashPage(page.Path)
}

func (x *Indexer) upsert(ctx context.Context, page *wiki.Page) error {
	doc, err := x.document(ctx, page)
	if err != nil {
		return err
	}
	return x.index.Upsert(ctx, []Document{doc})
}

func (x *Indexer) document(ctx context.Context, page *wiki.Page) (Document, error) {
	var body string
	switch {
	case page.RevisionData != nil:
		body = page.RevisionData.Body
	case page.RevisionID != nil:
		rev, err := x.revisions.GetByID(ctx, *page.RevisionID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return Document{}, fmt.Errorf("load revision: %w", err)
		}
		if rev != nil {
			body = rev.Body
		}
	}

	tags, err := x.tags.ListByPageID(ctx, page.ID)
	if err != nil {
		return Document{}, fmt.Errorf("list tags: %w", err)
	}
	return NewDocument(page, body, tags), nil
}

// Reindex pushes every indexable page in pages, in batches.
func (x *Indexer) Reindex(ctx context.Context, pages []wiki.Page) (int, error) {
	const batchSize = 100

	batch := make([]Document, 0, batchSize)
	total := 0
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := x.index.Upsert(ctx, batch); err != nil {
			return err
		}
		total += len(batch)
		batch = batch[:0]
		return nil
	}

	for i := range pages {
		if !indexable(&pages[i]) {
			continue
		}
		doc, err := x.document(ctx, &pages[i])
		if err != nil {
			return total, err
		}
		batch = append(batch, doc)
		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	if err := flush(); err != nil {
		return total, err
	}

	x.logger.Info("search index rebuilt", "documents", total)
	return total, nil
}
