// Package storage keeps summaries, articles and digests in a relational store.
package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/paaalop/news-analyzer/internal/config"
)

// Dialect selects the SQL flavour and database/sql driver.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

func (d Dialect) placeholder() sq.PlaceholderFormat {
	if d == DialectPostgres {
		return sq.Dollar
	}
	return sq.Question
}

// like is case-insensitive on both dialects; SQLite LIKE already folds ASCII.
func (d Dialect) like(column, pattern string) sq.Sqlizer {
	if d == DialectPostgres {
		return sq.ILike{column: pattern}
	}
	return sq.Like{column: pattern}
}

// Open connects to the configured database and verifies the connection.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, Dialect, error) {
	dialect := Dialect(cfg.Driver)
	switch dialect {
	case DialectPostgres, DialectSQLite:
	default:
		return nil, "", fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := sql.Open(string(dialect), cfg.DSN)
	if err != nil {
		return nil, "", fmt.Errorf("open db: %w", err)
	}
	if dialect == DialectSQLite {
		// one writer avoids SQLITE_BUSY between the pipeline and the read API
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, "", fmt.Errorf("ping db: %w", err)
	}
	return db, dialect, nil
}

// EnsureSchema creates newsdata and summarydata when missing.
func EnsureSchema(ctx context.Context, db *sql.DB, dialect Dialect) error {
	idColumn := "id INTEGER PRIMARY KEY AUTOINCREMENT"
	if dialect == DialectPostgres {
		idColumn = "id BIGSERIAL PRIMARY KEY"
	}

	statements := []string{
		`CREATE TABLE IF NOT EXISTS newsdata (
			` + idColumn + `,
			press TEXT NOT NULL DEFAULT '',
			subcategory TEXT NOT NULL DEFAULT '',
			title TEXT NOT NULL DEFAULT '',
			link TEXT NOT NULL UNIQUE,
			publish_time TEXT NOT NULL,
			journalist TEXT NOT NULL DEFAULT '',
			summary TEXT NOT NULL DEFAULT '',
			headline_score INTEGER NOT NULL DEFAULT 0,
			relevance_score INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS newsdata_publish_time_idx ON newsdata (publish_time)`,
		`CREATE TABLE IF NOT EXISTS summarydata (
			summary_date TEXT PRIMARY KEY,
			summary TEXT NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
