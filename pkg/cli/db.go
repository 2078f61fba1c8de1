package cli

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/platinummonkey/projecthub/pkg/config"
	"github.com/platinummonkey/projecthub/pkg/projects"
)

// openDatabase opens and pings the configured database
func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, projects.Dialect, error) {
	dialect := projects.DialectPostgres
	if cfg.Driver == "sqlite3" {
		dialect = projects.DialectSQLite
	}

	db, err := sql.Open(cfg.Driver, cfg.URL)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open database: %w", err)
	}

	if dialect == projects.DialectSQLite {
		// sqlite serializes writers; one connection avoids SQLITE_BUSY
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, "", fmt.Errorf("failed to ping database: %w", err)
	}

	return db, dialect, nil
}
