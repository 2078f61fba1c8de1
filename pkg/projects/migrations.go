package projects

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Dialect selects the SQL flavour used by migrations
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite3"
)

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// {{pk}} expands to the dialect's auto-increment primary key
const pkPlaceholder = "{{pk}}"

// GetMigrations returns all schema migrations
func GetMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create users table",
			SQL: `
				CREATE TABLE IF NOT EXISTS users (
					id {{pk}},
					username VARCHAR(150) NOT NULL UNIQUE,
					email VARCHAR(254) NOT NULL UNIQUE,
					created_at TIMESTAMP NOT NULL
				);
			`,
		},
		{
			Version:     2,
			Description: "Create projects and members tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS projects (
					id {{pk}},
					name VARCHAR(255) NOT NULL,
					owner_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					created_at TIMESTAMP NOT NULL
				);

				CREATE TABLE IF NOT EXISTS members (
					id {{pk}},
					project_id BIGINT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
					user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					is_owner BOOLEAN NOT NULL DEFAULT FALSE,
					joined_at TIMESTAMP NOT NULL,
					UNIQUE (project_id, user_id)
				);

				CREATE INDEX IF NOT EXISTS idx_projects_owner_id ON projects(owner_id);
				CREATE INDEX IF NOT EXISTS idx_members_user_id ON members(user_id);
			`,
		},
		{
			Version:     3,
			Description: "Create documents and comments tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS documents (
					id {{pk}},
					project_id BIGINT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
					name VARCHAR(255) NOT NULL,
					file_ref VARCHAR(1024) NOT NULL DEFAULT '',
					created_at TIMESTAMP NOT NULL
				);

				CREATE TABLE IF NOT EXISTS comments (
					id {{pk}},
					project_id BIGINT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
					user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					text TEXT NOT NULL,
					created_at TIMESTAMP NOT NULL
				);

				CREATE INDEX IF NOT EXISTS idx_documents_project_id ON documents(project_id);
				CREATE INDEX IF NOT EXISTS idx_comments_project_id ON comments(project_id);
				CREATE INDEX IF NOT EXISTS idx_comments_user_id ON comments(user_id);
			`,
		},
		{
			Version:     4,
			Description: "Create api_tokens table",
			SQL: `
				CREATE TABLE IF NOT EXISTS api_tokens (
					id {{pk}},
					user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					token_hash CHAR(64) NOT NULL UNIQUE,
					token_prefix VARCHAR(32) NOT NULL,
					name VARCHAR(255) NOT NULL DEFAULT '',
					created_at TIMESTAMP NOT NULL,
					revoked_at TIMESTAMP NULL
				);

				CREATE INDEX IF NOT EXISTS idx_api_tokens_user_id ON api_tokens(user_id);
			`,
		},
	}
}

// RenderSQL expands dialect placeholders in a migration
func (m Migration) RenderSQL(dialect Dialect) string {
	pk := "BIGSERIAL PRIMARY KEY"
	if dialect == DialectSQLite {
		pk = "INTEGER PRIMARY KEY AUTOINCREMENT"
	}
	return strings.ReplaceAll(m.SQL, pkPlaceholder, pk)
}

// Migrate applies every migration not yet recorded in schema_migrations
func Migrate(ctx context.Context, db *sql.DB, dialect Dialect) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	applied := make(map[int]bool)
	rows, err := db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("failed to read schema_migrations: %w", err)
	}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied[v] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read schema_migrations: %w", err)
	}

	for _, m := range GetMigrations() {
		if applied[m.Version] {
			continue
		}
		if err := applyMigration(ctx, db, dialect, m); err != nil {
			return err
		}
	}
	return nil
}

func applyMigration(ctx context.Context, db *sql.DB, dialect Dialect, m Migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration %d: %w", m.Version, err)
	}
	defer tx.Rollback()

	for _, stmt := range splitStatements(m.RenderSQL(dialect)) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", m.Version, m.Description, err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, description, applied_at) VALUES ($1, $2, $3)`,
		m.Version, m.Description, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
	}

	return tx.Commit()
}

// splitStatements splits on ';'. Migration bodies contain no string
// literals with semicolons.
func splitStatements(sqlText string) []string {
	var stmts []string
	for _, part := range strings.Split(sqlText, ";") {
		if s := strings.TrimSpace(part); s != "" {
			stmts = append(stmts, s)
		}
	}
	return stmts
}
