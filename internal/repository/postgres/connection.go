package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"wikitree/internal/domain/repositories"
)

// RepositoryConfig holds configuration for repository implementations
type RepositoryConfig struct {
	Pool   *pgxpool.Pool
	Tables *TableNames
	Logger *slog.Logger
}

// TableNames holds dynamically prefixed table names
type TableNames struct {
	Pages              string
	Revisions          string
	UserGroups         string
	UserGroupRelations string
	Bookmarks          string
	Comments           string
	Attachments        string
	PageTagRelations   string
	ShareLinks         string
	SchemaMigrations   string
}

// NewTableNames creates table names with the given prefix
func NewTableNames(prefix string) *TableNames {
	return &TableNames{
		Pages:              fmt.Sprintf("%spages", prefix),
		Revisions:          fmt.Sprintf("%srevisions", prefix),
		UserGroups:         fmt.Sprintf("%suser_groups", prefix),
		UserGroupRelations: fmt.Sprintf("%suser_group_relations", prefix),
		Bookmarks:          fmt.Sprintf("%sbookmarks", prefix),
		Comments:           fmt.Sprintf("%scomments", prefix),
		Attachments:        fmt.Sprintf("%sattachments", prefix),
		PageTagRelations:   fmt.Sprintf("%spage_tag_relations", prefix),
		ShareLinks:         fmt.Sprintf("%sshare_links", prefix),
		SchemaMigrations:   fmt.Sprintf("%sschema_migrations", prefix),
	}
}

// All returns every table in dependency order (dependents last).
func (t *TableNames) All() []string {
	return []string{
		t.Pages,
		t.Revisions,
		t.UserGroups,
		t.UserGroupRelations,
		t.Bookmarks,
		t.Comments,
		t.Attachments,
		t.PageTagRelations,
		t.ShareLinks,
	}
}

// CreateConnectionPool creates a pgx pool and verifies it with a ping.
//
// PgBouncer in transaction pooling mode (port 6543) cannot hold prepared
// statements, so that port switches to QueryExecModeCacheDescribe unless the
// connection string already picked a mode via default_query_exec_mode.
// Table prefixes are interpolated with fmt.Sprintf before statements reach
// the server, so each prefix gets its own cached statements.
func CreateConnectionPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	// Configure pool size
	config.MaxConns = 25
	config.MinConns = 5

	// CacheDescribe keeps the extended protocol, which page.extended needs to
	// encode map[string]any as JSONB
	if config.ConnConfig.Port == 6543 && config.ConnConfig.DefaultQueryExecMode == pgx.QueryExecModeCacheStatement {
		config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheDescribe
		slog.Debug("auto-configured cache_describe mode for PgBouncer compatibility", "port", 6543)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// GetExecutor returns the transaction carried by ctx, or pool when there is
// none, so repositories join a cascade's transaction automatically.
func GetExecutor(ctx context.Context, pool *pgxpool.Pool) repositories.DBTX {
	if tx := repositories.GetTx(ctx); tx != nil {
		return tx
	}
	return pool
}
