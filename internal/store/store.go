// Package store is the SQLite persistence adapter: reconciled change
// entries go in through a single transaction per sync, the read API and MCP
// tools query the result.
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/veilchen/gitpress/internal/gitrepo"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS groups (
	path          TEXT PRIMARY KEY,
	public        INTEGER NOT NULL DEFAULT 0,
	category_id   TEXT NOT NULL DEFAULT '',
	category_name TEXT NOT NULL DEFAULT '',
	author_name   TEXT NOT NULL DEFAULT '',
	updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS articles (
	group_path   TEXT NOT NULL,
	slug         TEXT NOT NULL,
	title        TEXT NOT NULL DEFAULT '',
	summary      TEXT NOT NULL DEFAULT '',
	html         TEXT NOT NULL DEFAULT '',
	tags         TEXT NOT NULL DEFAULT '[]',
	published_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (group_path, slug)
);

CREATE INDEX IF NOT EXISTS idx_articles_slug ON articles(slug);
CREATE INDEX IF NOT EXISTS idx_articles_published ON articles(published_at);
`

// ContentStore defines the operations the service layer depends on.
// Consumers should depend on this interface rather than the concrete *DB
// type to facilitate testing with mocks.
type ContentStore interface {
	Apply(ctx context.Context, entries []gitrepo.Entry, mode Mode) error
	GetArticle(ctx context.Context, slug string) (*ArticleRow, error)
	ListArticles(ctx context.Context, limit, offset int, group, tag string) ([]ArticleRow, int, error)
	ListGroups(ctx context.Context) ([]GroupRow, error)
	ListTags(ctx context.Context) ([]TagCount, error)
	Close() error
}

// Verify *DB satisfies ContentStore at compile time.
var _ ContentStore = (*DB)(nil)

// DB wraps a sql.DB with content-store operations.
type DB struct {
	conn     *sql.DB
	renderer Renderer
}

// Renderer is the markdown-to-HTML converter Apply uses for article bodies
// and summaries.
type Renderer interface {
	Render(ctx context.Context, markdown string) (string, error)
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string, renderer Renderer) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &DB{conn: conn, renderer: renderer}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
