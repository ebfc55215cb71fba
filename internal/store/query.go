package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/veilchen/gitpress/internal/apperr"
)

// GroupRow represents a row in the groups table.
type GroupRow struct {
	Path         string    `json:"path"`
	Public       bool      `json:"public"`
	CategoryID   string    `json:"category_id"`
	CategoryName string    `json:"category_name"`
	AuthorName   string    `json:"author_name"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ArticleRow represents a row in the articles table. Summary and HTML hold
// rendered markup.
type ArticleRow struct {
	Group       string    `json:"group"`
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	HTML        string    `json:"html"`
	Tags        []string  `json:"tags"`
	PublishedAt time.Time `json:"published_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TagCount is one tag with its article count.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

const articleColumns = `group_path, slug, title, summary, html, tags, published_at, updated_at`

func scanArticle(row interface{ Scan(...any) error }) (*ArticleRow, error) {
	var a ArticleRow
	var tagsJSON string
	if err := row.Scan(&a.Group, &a.Slug, &a.Title, &a.Summary, &a.HTML, &tagsJSON, &a.PublishedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tagsJSON), &a.Tags); err != nil || a.Tags == nil {
		a.Tags = []string{}
	}
	return &a, nil
}

// GetArticle returns the article with the given slug.
func (db *DB) GetArticle(ctx context.Context, slug string) (*ArticleRow, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+articleColumns+` FROM articles WHERE slug = ? LIMIT 1`, slug)
	a, err := scanArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get article %s: %w", slug, err)
	}
	return a, nil
}

// ListArticles returns articles newest first with optional group and tag
// filters. limit <= 0 or > 200 falls back to 50.
func (db *DB) ListArticles(ctx context.Context, limit, offset int, group, tag string) ([]ArticleRow, int, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	where := `WHERE 1=1`
	args := []any{}
	if group != "" {
		where += ` AND group_path = ?`
		args = append(args, group)
	}
	if tag != "" {
		// Tags are stored as a JSON array of strings.
		where += ` AND tags LIKE ?`
		args = append(args, `%"`+tag+`"%`)
	}

	var total int
	if err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM articles `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("store: count articles: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+articleColumns+` FROM articles `+where+
			` ORDER BY published_at DESC, slug ASC LIMIT ? OFFSET ?`,
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("store: list articles: %w", err)
	}
	defer rows.Close()

	out := make([]ArticleRow, 0, limit)
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("store: scan article: %w", err)
		}
		out = append(out, *a)
	}
	return out, total, rows.Err()
}

// ListGroups returns every group ordered by path.
func (db *DB) ListGroups(ctx context.Context) ([]GroupRow, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT path, public, category_id, category_name, author_name, updated_at
		 FROM groups ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("store: list groups: %w", err)
	}
	defer rows.Close()

	var out []GroupRow
	for rows.Next() {
		var g GroupRow
		if err := rows.Scan(&g.Path, &g.Public, &g.CategoryID, &g.CategoryName, &g.AuthorName, &g.UpdatedAt); err != nil {
			return nil, fmt.Errorf("store: scan group: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// ListTags aggregates tags across all articles, alphabetically.
func (db *DB) ListTags(ctx context.Context) ([]TagCount, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT tags FROM articles`)
	if err != nil {
		return nil, fmt.Errorf("store: list tags: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var tagsJSON string
		if err := rows.Scan(&tagsJSON); err != nil {
			return nil, err
		}
		var tags []string
		if err := json.Unmarshal([]byte(tagsJSON), &tags); err != nil {
			continue
		}
		for _, t := range tags {
			counts[t]++
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]TagCount, 0, len(counts))
	for tag, n := range counts {
		out = append(out, TagCount{Tag: tag, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tag < out[j].Tag })
	return out, nil
}
