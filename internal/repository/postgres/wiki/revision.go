package wiki

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"wikitree/internal/domain"
	models "wikitree/internal/domain/models/wiki"
	wikiRepo "wikitree/internal/domain/repositories/wiki"
	"wikitree/internal/repository/postgres"
)

// PostgresRevisionRepository implements the RevisionRepository interface
type PostgresRevisionRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewRevisionRepository creates a new revision repository
func NewRevisionRepository(config *postgres.RepositoryConfig) wikiRepo.RevisionRepository {
	return &PostgresRevisionRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Create inserts a revision
func (r *PostgresRevisionRepository) Create(ctx context.Context, rev *models.Revision) error {
	if rev.Format == "" {
		rev.Format = models.FormatMarkdown
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (path, body, format, author)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, r.tables.Revisions)

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, rev.Path, rev.Body, string(rev.Format), rev.Author).
		Scan(&rev.ID, &rev.CreatedAt)
	if err != nil {
		return fmt.Errorf("create revision: %w", err)
	}
	return nil
}

// GetByID retrieves a revision by ID
func (r *PostgresRevisionRepository) GetByID(ctx context.Context, id string) (*models.Revision, error) {
	query := fmt.Sprintf(`
		SELECT id, path, body, format, author, created_at
		FROM %s
		WHERE id = $1
	`, r.tables.Revisions)

	var rev models.Revision
	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, id).Scan(
		&rev.ID,
		&rev.Path,
		&rev.Body,
		&rev.Format,
		&rev.Author,
		&rev.CreatedAt,
	)
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("revision %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get revision: %w", err)
	}
	return &rev, nil
}

// ListByPath returns every revision of path, newest first
func (r *PostgresRevisionRepository) ListByPath(ctx context.Context, path string) ([]models.Revision, error) {
	query := fmt.Sprintf(`
		SELECT id, path, body, format, author, created_at
		FROM %s
		WHERE path = $1
		ORDER BY created_at DESC, id DESC
	`, r.tables.Revisions)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, path)
	if err != nil {
		return nil, fmt.Errorf("list revisions: %w", err)
	}
	defer rows.Close()

	revisions := make([]models.Revision, 0)
	for rows.Next() {
		var rev models.Revision
		if err := rows.Scan(&rev.ID, &rev.Path, &rev.Body, &rev.Format, &rev.Author, &rev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan revision: %w", err)
		}
		revisions = append(revisions, rev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate revisions: %w", err)
	}
	return revisions, nil
}

// UpdatePath moves the history of oldPath to newPath
func (r *PostgresRevisionRepository) UpdatePath(ctx context.Context, oldPath, newPath string) error {
	query := fmt.Sprintf(`UPDATE %s SET path = $1 WHERE path = $2`, r.tables.Revisions)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, newPath, oldPath)
	if err != nil {
		return fmt.Errorf("move revisions: %w", err)
	}
	r.logger.Debug("moved revisions", "from", oldPath, "to", newPath, "count", result.RowsAffected())
	return nil
}

// DeleteByPath removes the history of path
func (r *PostgresRevisionRepository) DeleteByPath(ctx context.Context, path string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE path = $1`, r.tables.Revisions)

	executor := postgres.GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, path); err != nil {
		return fmt.Errorf("delete revisions: %w", err)
	}
	return nil
}
