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

// PostgresGroupRepository implements the GroupRepository interface
type PostgresGroupRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewGroupRepository creates a new group repository
func NewGroupRepository(config *postgres.RepositoryConfig) wikiRepo.GroupRepository {
	return &PostgresGroupRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Create inserts a group. Names are unique.
func (r *PostgresGroupRepository) Create(ctx context.Context, group *models.UserGroup) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (name)
		VALUES ($1)
		RETURNING id, created_at
	`, r.tables.UserGroups)

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, group.Name).Scan(&group.ID, &group.CreatedAt)
	if err != nil {
		if postgres.IsPgDuplicateError(err) {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("group '%s' already exists", group.Name),
				ResourceType: "group",
			}
		}
		return fmt.Errorf("create group: %w", err)
	}
	return nil
}

// GetByID retrieves a group by ID
func (r *PostgresGroupRepository) GetByID(ctx context.Context, id string) (*models.UserGroup, error) {
	query := fmt.Sprintf(`SELECT id, name, created_at FROM %s WHERE id = $1`, r.tables.UserGroups)

	var group models.UserGroup
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, id).Scan(&group.ID, &group.Name, &group.CreatedAt); err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("group %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get group: %w", err)
	}
	return &group, nil
}

// Delete removes a group; memberships go with it via ON DELETE CASCADE
func (r *PostgresGroupRepository) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.UserGroups)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("group %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// AddMember adds userID to the group. Adding an existing member is a no-op.
func (r *PostgresGroupRepository) AddMember(ctx context.Context, groupID, userID string) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (group_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, r.tables.UserGroupRelations)

	executor := postgres.GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, groupID, userID); err != nil {
		if postgres.IsPgForeignKeyError(err) {
			return fmt.Errorf("group %s: %w", groupID, domain.ErrNotFound)
		}
		return fmt.Errorf("add group member: %w", err)
	}
	return nil
}

// RemoveMember removes userID from the group
func (r *PostgresGroupRepository) RemoveMember(ctx context.Context, groupID, userID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE group_id = $1 AND user_id = $2`, r.tables.UserGroupRelations)

	executor := postgres.GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, groupID, userID); err != nil {
		return fmt.Errorf("remove group member: %w", err)
	}
	return nil
}

// ListGroupIDsByUser returns the groups userID belongs to
func (r *PostgresGroupRepository) ListGroupIDsByUser(ctx context.Context, userID string) ([]string, error) {
	query := fmt.Sprintf(`SELECT group_id FROM %s WHERE user_id = $1 ORDER BY group_id`, r.tables.UserGroupRelations)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list user groups: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan group id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CountByGroupAndUser returns 1 when userID is a member of groupID, else 0
func (r *PostgresGroupRepository) CountByGroupAndUser(ctx context.Context, groupID, userID string) (int, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE group_id = $1 AND user_id = $2`, r.tables.UserGroupRelations)

	var count int
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, groupID, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count group members: %w", err)
	}
	return count, nil
}
