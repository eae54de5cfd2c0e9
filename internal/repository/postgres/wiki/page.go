package wiki

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"wikitree/internal/domain"
	models "wikitree/internal/domain/models/wiki"
	"wikitree/internal/domain/pagequery"
	wikiRepo "wikitree/internal/domain/repositories/wiki"
	"wikitree/internal/repository/postgres"
)

const pageColumns = `id, path, revision_id, redirect_to, status, "grant", granted_users, granted_group,
	creator, last_update_user, liker, seen_users, comment_count, extended, created_at, updated_at`

// PostgresPageRepository implements the PageRepository interface
type PostgresPageRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewPageRepository creates a new page repository
func NewPageRepository(config *postgres.RepositoryConfig) wikiRepo.PageRepository {
	return &PostgresPageRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// insertPageSQL skips a duplicate path instead of raising 23505, so a
// conflict leaves the surrounding transaction usable.
func insertPageSQL(table string) string {
	return fmt.Sprintf(`
		INSERT INTO %s (path, revision_id, redirect_to, status, "grant", granted_users, granted_group,
			creator, last_update_user, liker, seen_users, comment_count, extended)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (path) DO NOTHING
		RETURNING id, created_at, updated_at
	`, table)
}

// Create inserts a page and fills its ID and timestamps. A taken path is a
// ConflictError carrying the existing page's ID.
func (r *PostgresPageRepository) Create(ctx context.Context, page *models.Page) error {
	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, insertPageSQL(r.tables.Pages), writeArgs(page)...).Scan(&page.ID, &page.CreatedAt, &page.UpdatedAt)
	switch {
	case err == nil:
		return nil
	case postgres.IsPgNoRowsError(err), postgres.IsPgDuplicateError(err):
		conflict := &domain.ConflictError{
			Message:      fmt.Sprintf("page '%s' already exists", page.Path),
			ResourceType: "page",
		}
		// Only safe while the transaction is healthy, i.e. after DO NOTHING.
		if postgres.IsPgNoRowsError(err) {
			if existing, getErr := r.GetByPath(ctx, page.Path); getErr == nil {
				conflict.ResourceID = existing.ID
			}
		}
		return conflict
	default:
		return fmt.Errorf("create page: %w", err)
	}
}

// Update saves every persisted field by ID. A zero UpdatedAt is stamped
// with the database clock.
func (r *PostgresPageRepository) Update(ctx context.Context, page *models.Page) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET path = $1, revision_id = $2, redirect_to = $3, status = $4, "grant" = $5, granted_users = $6,
			granted_group = $7, creator = $8, last_update_user = $9, liker = $10, seen_users = $11,
			comment_count = $12, extended = $13, updated_at = COALESCE($14, NOW())
		WHERE id = $15
		RETURNING updated_at
	`, r.tables.Pages)

	var updatedAt *time.Time
	if !page.UpdatedAt.IsZero() {
		updatedAt = &page.UpdatedAt
	}
	args := append(writeArgs(page), updatedAt, page.ID)
	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, args...).Scan(&page.UpdatedAt)
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return fmt.Errorf("page %s: %w", page.ID, domain.ErrNotFound)
		}
		if postgres.IsPgDuplicateError(err) {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("page '%s' already exists", page.Path),
				ResourceType: "page",
			}
		}
		return fmt.Errorf("update page: %w", err)
	}

	return nil
}

// Delete removes a page row
func (r *PostgresPageRepository) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.Pages)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete page: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("page %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// GetByID retrieves a page by ID
func (r *PostgresPageRepository) GetByID(ctx context.Context, id string) (*models.Page, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, pageColumns, r.tables.Pages)
	return r.getOne(ctx, query, id)
}

// GetByPath retrieves a page by its exact path
func (r *PostgresPageRepository) GetByPath(ctx context.Context, path string) (*models.Page, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE path = $1`, pageColumns, r.tables.Pages)
	return r.getOne(ctx, query, path)
}

// FindOne returns the first page matching q
func (r *PostgresPageRepository) FindOne(ctx context.Context, q *pagequery.Query) (*models.Page, error) {
	one := *q
	one.Offset = 0
	one.Limit = 1

	pages, err := r.Find(ctx, &one)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("page: %w", domain.ErrNotFound)
	}
	return &pages[0], nil
}

// Find returns the pages matching q in q's order
func (r *PostgresPageRepository) Find(ctx context.Context, q *pagequery.Query) ([]models.Page, error) {
	c := &compiler{}
	where, err := c.where(q)
	if err != nil {
		return nil, fmt.Errorf("compile page query: %w", err)
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s %s%s`,
		pageColumns, r.tables.Pages, where, orderBy(q), c.limitOffset(q))

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, c.args...)
	if err != nil {
		return nil, fmt.Errorf("find pages: %w", err)
	}
	defer rows.Close()

	pages := make([]models.Page, 0)
	for rows.Next() {
		page, err := scanPage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan page: %w", err)
		}
		pages = append(pages, *page)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pages: %w", err)
	}

	r.logger.Debug("found pages", "count", len(pages), "sql_args", len(c.args))
	return pages, nil
}

// Count returns the number of pages matching q
func (r *PostgresPageRepository) Count(ctx context.Context, q *pagequery.Query) (int, error) {
	c := &compiler{}
	where, err := c.where(q)
	if err != nil {
		return 0, fmt.Errorf("compile page query: %w", err)
	}
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s`, r.tables.Pages, where)

	var count int
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, c.args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count pages: %w", err)
	}
	return count, nil
}

func (r *PostgresPageRepository) getOne(ctx context.Context, query string, arg string) (*models.Page, error) {
	executor := postgres.GetExecutor(ctx, r.pool)
	page, err := scanPage(executor.QueryRow(ctx, query, arg))
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("page %s: %w", arg, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get page: %w", err)
	}
	return page, nil
}

// writeArgs lists the insert columns in order. Grant 0 and an empty status
// are stored as NULL.
func writeArgs(p *models.Page) []any {
	var grant *int32
	if p.Grant != 0 {
		g := int32(p.Grant)
		grant = &g
	}
	var status *string
	if p.Status != "" {
		s := string(p.Status)
		status = &s
	}
	extended := p.Extended
	if extended == nil {
		extended = map[string]any{}
	}
	return []any{
		p.Path,
		p.RevisionID,
		p.RedirectTo,
		status,
		grant,
		nonNil(p.GrantedUsers),
		p.GrantedGroup,
		p.Creator,
		p.LastUpdateUser,
		nonNil(p.Liker),
		nonNil(p.SeenUsers),
		p.CommentCount,
		extended,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func scanPage(row pgx.Row) (*models.Page, error) {
	var (
		p      models.Page
		status *string
		grant  *int32
	)
	err := row.Scan(
		&p.ID,
		&p.Path,
		&p.RevisionID,
		&p.RedirectTo,
		&status,
		&grant,
		&p.GrantedUsers,
		&p.GrantedGroup,
		&p.Creator,
		&p.LastUpdateUser,
		&p.Liker,
		&p.SeenUsers,
		&p.CommentCount,
		&p.Extended,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if status != nil {
		p.Status = models.Status(*status)
	}
	if grant != nil {
		p.Grant = models.Grant(*grant)
	}
	return &p, nil
}
