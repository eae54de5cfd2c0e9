package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// migration is one schema step. SQL is rendered per table prefix.
type migration struct {
	version string
	sql     func(t *TableNames) string
}

var migrations = []migration{
	{version: "0001_pages", sql: func(t *TableNames) string {
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %[1]s (
				id               TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
				path             TEXT NOT NULL UNIQUE,
				revision_id      TEXT,
				redirect_to      TEXT,
				status           TEXT,
				"grant"          INTEGER DEFAULT 1,
				granted_users    TEXT[] NOT NULL DEFAULT '{}',
				granted_group    TEXT,
				creator          TEXT,
				last_update_user TEXT,
				liker            TEXT[] NOT NULL DEFAULT '{}',
				seen_users       TEXT[] NOT NULL DEFAULT '{}',
				comment_count    INTEGER NOT NULL DEFAULT 0,
				extended         JSONB NOT NULL DEFAULT '{}',
				created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS %[1]s_path_prefix_idx ON %[1]s (path text_pattern_ops);
			CREATE INDEX IF NOT EXISTS %[1]s_redirect_to_idx ON %[1]s (redirect_to);
			CREATE INDEX IF NOT EXISTS %[1]s_creator_idx ON %[1]s (creator);
			CREATE INDEX IF NOT EXISTS %[1]s_granted_group_idx ON %[1]s (granted_group);

			CREATE TABLE IF NOT EXISTS %[2]s (
				id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
				path       TEXT NOT NULL,
				body       TEXT NOT NULL DEFAULT '',
				format     TEXT NOT NULL DEFAULT 'markdown',
				author     TEXT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS %[2]s_path_idx ON %[2]s (path, created_at DESC);
		`, t.Pages, t.Revisions)
	}},
	{version: "0002_groups", sql: func(t *TableNames) string {
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %[1]s (
				id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
				name       TEXT NOT NULL UNIQUE,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE TABLE IF NOT EXISTS %[2]s (
				group_id TEXT NOT NULL REFERENCES %[1]s(id) ON DELETE CASCADE,
				user_id  TEXT NOT NULL,
				PRIMARY KEY (group_id, user_id)
			);
			CREATE INDEX IF NOT EXISTS %[2]s_user_idx ON %[2]s (user_id);
		`, t.UserGroups, t.UserGroupRelations)
	}},
	{version: "0003_page_dependents", sql: func(t *TableNames) string {
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %[1]s (
				id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
				page_id    TEXT NOT NULL,
				user_id    TEXT NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				UNIQUE (page_id, user_id)
			);
			CREATE TABLE IF NOT EXISTS %[2]s (
				id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
				page_id    TEXT NOT NULL,
				creator    TEXT NOT NULL,
				body       TEXT NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS %[2]s_page_idx ON %[2]s (page_id);
			CREATE TABLE IF NOT EXISTS %[3]s (
				id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
				page_id      TEXT NOT NULL,
				file_name    TEXT NOT NULL,
				content_type TEXT NOT NULL,
				size         BIGINT NOT NULL,
				object_key   TEXT NOT NULL,
				creator      TEXT,
				created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS %[3]s_page_idx ON %[3]s (page_id);
			CREATE TABLE IF NOT EXISTS %[4]s (
				page_id TEXT NOT NULL,
				tag     TEXT NOT NULL,
				PRIMARY KEY (page_id, tag)
			);
			CREATE TABLE IF NOT EXISTS %[5]s (
				id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
				related_page TEXT NOT NULL,
				expired_at   TIMESTAMPTZ,
				description  TEXT NOT NULL DEFAULT '',
				created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS %[5]s_page_idx ON %[5]s (related_page);
		`, t.Bookmarks, t.Comments, t.Attachments, t.PageTagRelations, t.ShareLinks)
	}},
}

// Migrate applies pending migrations in order, each in its own transaction,
// and records them in the prefixed schema_migrations table.
func Migrate(ctx context.Context, pool *pgxpool.Pool, tables *TableNames, logger *slog.Logger) error {
	ensure := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version    TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`, tables.SchemaMigrations)
	if _, err := pool.Exec(ctx, ensure); err != nil {
		return fmt.Errorf("ensure %s: %w", tables.SchemaMigrations, err)
	}

	for _, m := range migrations {
		var applied bool
		check := fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE version = $1)`, tables.SchemaMigrations)
		if err := pool.QueryRow(ctx, check, m.version).Scan(&applied); err != nil {
			return fmt.Errorf("check migration %s: %w", m.version, err)
		}
		if applied {
			continue
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin migration %s: %w", m.version, err)
		}
		if _, err := tx.Exec(ctx, m.sql(tables)); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("execute migration %s: %w", m.version, err)
		}
		record := fmt.Sprintf(`INSERT INTO %s (version) VALUES ($1)`, tables.SchemaMigrations)
		if _, err := tx.Exec(ctx, record, m.version); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("record migration %s: %w", m.version, err)
		}
		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit migration %s: %w", m.version, err)
		}
		logger.Info("applied migration", "version", m.version)
	}

	return nil
}

// DropAll drops every wiki table and the migration ledger.
func DropAll(ctx context.Context, pool *pgxpool.Pool, tables *TableNames) error {
	all := append(tables.All(), tables.SchemaMigrations)
	for i := len(all) - 1; i >= 0; i-- {
		if _, err := pool.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", all[i])); err != nil {
			return fmt.Errorf("drop %s: %w", all[i], err)
		}
	}
	return nil
}
