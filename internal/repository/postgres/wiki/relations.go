package wiki

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"wikitree/internal/domain"
	models "wikitree/internal/domain/models/wiki"
	wikiRepo "wikitree/internal/domain/repositories/wiki"
	"wikitree/internal/repository/postgres"
)

// base carries what every page-dependent repository needs
type base struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

func newBase(config *postgres.RepositoryConfig) base {
	return base{pool: config.Pool, tables: config.Tables, logger: config.Logger}
}

func (b base) exec(ctx context.Context, query string, args ...any) (int64, error) {
	result, err := postgres.GetExecutor(ctx, b.pool).Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

func (b base) count(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	err := postgres.GetExecutor(ctx, b.pool).QueryRow(ctx, query, args...).Scan(&n)
	return n, err
}

// collect scans every row with scan and closes rows
func collect[T any](rows pgx.Rows, scan func(pgx.Rows, *T) error) ([]T, error) {
	defer rows.Close()
	out := make([]T, 0)
	for rows.Next() {
		var v T
		if err := scan(rows, &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// PostgresBookmarkRepository implements the BookmarkRepository interface
type PostgresBookmarkRepository struct{ base }

func NewBookmarkRepository(config *postgres.RepositoryConfig) wikiRepo.BookmarkRepository {
	return &PostgresBookmarkRepository{newBase(config)}
}

func (r *PostgresBookmarkRepository) Create(ctx context.Context, b *models.Bookmark) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (page_id, user_id)
		VALUES ($1, $2)
		RETURNING id, created_at
	`, r.tables.Bookmarks)

	executor := postgres.GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, b.PageID, b.UserID).Scan(&b.ID, &b.CreatedAt); err != nil {
		if postgres.IsPgDuplicateError(err) {
			return &domain.ConflictError{Message: "page is already bookmarked", ResourceType: "bookmark"}
		}
		return fmt.Errorf("create bookmark: %w", err)
	}
	return nil
}

func (r *PostgresBookmarkRepository) Delete(ctx context.Context, pageID, userID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE page_id = $1 AND user_id = $2`, r.tables.Bookmarks)
	n, err := r.exec(ctx, query, pageID, userID)
	if err != nil {
		return fmt.Errorf("delete bookmark: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("bookmark on page %s: %w", pageID, domain.ErrNotFound)
	}
	return nil
}

func (r *PostgresBookmarkRepository) CountByPageID(ctx context.Context, pageID string) (int, error) {
	n, err := r.count(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE page_id = $1`, r.tables.Bookmarks), pageID)
	if err != nil {
		return 0, fmt.Errorf("count bookmarks: %w", err)
	}
	return n, nil
}

func (r *PostgresBookmarkRepository) DeleteByPageID(ctx context.Context, pageID string) error {
	if _, err := r.exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE page_id = $1`, r.tables.Bookmarks), pageID); err != nil {
		return fmt.Errorf("delete bookmarks: %w", err)
	}
	return nil
}

// PostgresCommentRepository implements the CommentRepository interface
type PostgresCommentRepository struct{ base }

func NewCommentRepository(config *postgres.RepositoryConfig) wikiRepo.CommentRepository {
	return &PostgresCommentRepository{newBase(config)}
}

func scanComment(rows pgx.Rows, c *models.Comment) error {
	return rows.Scan(&c.ID, &c.PageID, &c.Creator, &c.Body, &c.CreatedAt)
}

func (r *PostgresCommentRepository) Create(ctx context.Context, c *models.Comment) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (page_id, creator, body)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, r.tables.Comments)

	executor := postgres.GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, c.PageID, c.Creator, c.Body).Scan(&c.ID, &c.CreatedAt); err != nil {
		return fmt.Errorf("create comment: %w", err)
	}
	return nil
}

func (r *PostgresCommentRepository) GetByID(ctx context.Context, id string) (*models.Comment, error) {
	query := fmt.Sprintf(`SELECT id, page_id, creator, body, created_at FROM %s WHERE id = $1`, r.tables.Comments)

	var c models.Comment
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, id).Scan(&c.ID, &c.PageID, &c.Creator, &c.Body, &c.CreatedAt); err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("comment %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get comment: %w", err)
	}
	return &c, nil
}

func (r *PostgresCommentRepository) Delete(ctx context.Context, id string) error {
	n, err := r.exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.Comments), id)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("comment %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *PostgresCommentRepository) ListByPageID(ctx context.Context, pageID string) ([]models.Comment, error) {
	query := fmt.Sprintf(`
		SELECT id, page_id, creator, body, created_at
		FROM %s
		WHERE page_id = $1
		ORDER BY created_at ASC
	`, r.tables.Comments)

	rows, err := postgres.GetExecutor(ctx, r.pool).Query(ctx, query, pageID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	comments, err := collect(rows, scanComment)
	if err != nil {
		return nil, fmt.Errorf("scan comments: %w", err)
	}
	return comments, nil
}

func (r *PostgresCommentRepository) CountByPageID(ctx context.Context, pageID string) (int, error) {
	n, err := r.count(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE page_id = $1`, r.tables.Comments), pageID)
	if err != nil {
		return 0, fmt.Errorf("count comments: %w", err)
	}
	return n, nil
}

func (r *PostgresCommentRepository) DeleteByPageID(ctx context.Context, pageID string) error {
	if _, err := r.exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE page_id = $1`, r.tables.Comments), pageID); err != nil {
		return fmt.Errorf("delete comments: %w", err)
	}
	return nil
}

// PostgresAttachmentRepository implements the AttachmentRepository interface
type PostgresAttachmentRepository struct{ base }

func NewAttachmentRepository(config *postgres.RepositoryConfig) wikiRepo.AttachmentRepository {
	return &PostgresAttachmentRepository{newBase(config)}
}

func (r *PostgresAttachmentRepository) Create(ctx context.Context, a *models.Attachment) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (page_id, file_name, content_type, size, object_key, creator)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, r.tables.Attachments)

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		a.PageID,
		a.FileName,
		a.ContentType,
		a.Size,
		a.ObjectKey,
		a.Creator,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return fmt.Errorf("create attachment: %w", err)
	}
	return nil
}

func (r *PostgresAttachmentRepository) ListByPageID(ctx context.Context, pageID string) ([]models.Attachment, error) {
	query := fmt.Sprintf(`
		SELECT id, page_id, file_name, content_type, size, object_key, creator, created_at
		FROM %s
		WHERE page_id = $1
		ORDER BY created_at ASC
	`, r.tables.Attachments)

	rows, err := postgres.GetExecutor(ctx, r.pool).Query(ctx, query, pageID)
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	attachments, err := collect(rows, func(rows pgx.Rows, a *models.Attachment) error {
		return rows.Scan(&a.ID, &a.PageID, &a.FileName, &a.ContentType, &a.Size, &a.ObjectKey, &a.Creator, &a.CreatedAt)
	})
	if err != nil {
		return nil, fmt.Errorf("scan attachments: %w", err)
	}
	return attachments, nil
}

func (r *PostgresAttachmentRepository) DeleteByPageID(ctx context.Context, pageID string) error {
	if _, err := r.exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE page_id = $1`, r.tables.Attachments), pageID); err != nil {
		return fmt.Errorf("delete attachments: %w", err)
	}
	return nil
}

// PostgresTagRepository implements the TagRepository interface
type PostgresTagRepository struct{ base }

func NewTagRepository(config *postgres.RepositoryConfig) wikiRepo.TagRepository {
	return &PostgresTagRepository{newBase(config)}
}

// ReplaceForPage deletes the old tag set and inserts tags in one statement pair
func (r *PostgresTagRepository) ReplaceForPage(ctx context.Context, pageID string, tags []string) error {
	if err := r.DeleteByPageID(ctx, pageID); err != nil {
		return err
	}
	if len(tags) == 0 {
		return nil
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (page_id, tag)
		SELECT $1, t FROM unnest($2::text[]) AS t
		ON CONFLICT DO NOTHING
	`, r.tables.PageTagRelations)
	if _, err := r.exec(ctx, query, pageID, tags); err != nil {
		return fmt.Errorf("insert tags: %w", err)
	}
	return nil
}

func (r *PostgresTagRepository) ListByPageID(ctx context.Context, pageID string) ([]string, error) {
	query := fmt.Sprintf(`SELECT tag FROM %s WHERE page_id = $1 ORDER BY tag`, r.tables.PageTagRelations)

	rows, err := postgres.GetExecutor(ctx, r.pool).Query(ctx, query, pageID)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	tags, err := collect(rows, func(rows pgx.Rows, tag *string) error {
		return rows.Scan(tag)
	})
	if err != nil {
		return nil, fmt.Errorf("scan tags: %w", err)
	}
	return tags, nil
}

func (r *PostgresTagRepository) DeleteByPageID(ctx context.Context, pageID string) error {
	if _, err := r.exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE page_id = $1`, r.tables.PageTagRelations), pageID); err != nil {
		return fmt.Errorf("delete tags: %w", err)
	}
	return nil
}

// PostgresShareLinkRepository implements the ShareLinkRepository interface
type PostgresShareLinkRepository struct{ base }

func NewShareLinkRepository(config *postgres.RepositoryConfig) wikiRepo.ShareLinkRepository {
	return &PostgresShareLinkRepository{newBase(config)}
}

func scanShareLink(rows pgx.Rows, l *models.ShareLink) error {
	return rows.Scan(&l.ID, &l.RelatedPage, &l.ExpiredAt, &l.Description, &l.CreatedAt)
}

func (r *PostgresShareLinkRepository) Create(ctx context.Context, l *models.ShareLink) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (related_page, expired_at, description)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, r.tables.ShareLinks)

	executor := postgres.GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, l.RelatedPage, l.ExpiredAt, l.Description).Scan(&l.ID, &l.CreatedAt); err != nil {
		return fmt.Errorf("create share link: %w", err)
	}
	return nil
}

func (r *PostgresShareLinkRepository) GetByID(ctx context.Context, id string) (*models.ShareLink, error) {
	query := fmt.Sprintf(`
		SELECT id, related_page, expired_at, description, created_at
		FROM %s
		WHERE id = $1
	`, r.tables.ShareLinks)

	var l models.ShareLink
	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, id).Scan(&l.ID, &l.RelatedPage, &l.ExpiredAt, &l.Description, &l.CreatedAt)
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("share link %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get share link: %w", err)
	}
	return &l, nil
}

func (r *PostgresShareLinkRepository) ListByPageID(ctx context.Context, pageID string) ([]models.ShareLink, error) {
	query := fmt.Sprintf(`
		SELECT id, related_page, expired_at, description, created_at
		FROM %s
		WHERE related_page = $1
		ORDER BY created_at ASC
	`, r.tables.ShareLinks)

	rows, err := postgres.GetExecutor(ctx, r.pool).Query(ctx, query, pageID)
	if err != nil {
		return nil, fmt.Errorf("list share links: %w", err)
	}
	links, err := collect(rows, scanShareLink)
	if err != nil {
		return nil, fmt.Errorf("scan share links: %w", err)
	}
	return links, nil
}

func (r *PostgresShareLinkRepository) Delete(ctx context.Context, id string) error {
	n, err := r.exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.ShareLinks), id)
	if err != nil {
		return fmt.Errorf("delete share link: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("share link %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *PostgresShareLinkRepository) DeleteByPageID(ctx context.Context, pageID string) (int, error) {
	n, err := r.exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE related_page = $1`, r.tables.ShareLinks), pageID)
	if err != nil {
		return 0, fmt.Errorf("delete share links: %w", err)
	}
	return int(n), nil
}
