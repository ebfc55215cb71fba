package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/veilchen/gitpress/internal/content"
	"github.com/veilchen/gitpress/internal/gitrepo"
)

// Mode selects how Apply treats existing rows.
type Mode int

const (
	// Incremental applies entries on top of the current state.
	Incremental Mode = iota
	// ResetAll clears every row first, then applies the full entry list.
	ResetAll
)

// Apply persists a reconciled entry list inside one transaction: either the
// full list lands or none of it does. Other-kind entries never reach this
// adapter; group metadata and article content are parsed (and article
// markdown rendered) per entry, and any failure rolls the whole batch back.
func (db *DB) Apply(ctx context.Context, entries []gitrepo.Entry, mode Mode) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if mode == ResetAll {
		if _, err := tx.ExecContext(ctx, `DELETE FROM articles`); err != nil {
			return fmt.Errorf("store: reset articles: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM groups`); err != nil {
			return fmt.Errorf("store: reset groups: %w", err)
		}
	}

	for _, e := range entries {
		switch e.Kind {
		case gitrepo.KindGroupMetadata:
			if err := db.applyGroup(ctx, tx, e); err != nil {
				return err
			}
		case gitrepo.KindArticle:
			if err := db.applyArticle(ctx, tx, e); err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

func (db *DB) applyGroup(ctx context.Context, tx *sql.Tx, e gitrepo.Entry) error {
	if e.Change == gitrepo.ChangeDeleted {
		if _, err := tx.ExecContext(ctx, `DELETE FROM groups WHERE path = ?`, e.Group); err != nil {
			return fmt.Errorf("store: remove group %s: %w", e.Group, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM articles WHERE group_path = ?`, e.Group); err != nil {
			return fmt.Errorf("store: remove group articles %s: %w", e.Group, err)
		}
		return nil
	}

	meta, err := content.ParseGroupMeta(e.Content)
	if err != nil {
		return err
	}
	var catID, catName, author string
	if meta.Category != nil {
		catID, catName = meta.Category.ID, meta.Category.Name
	}
	if meta.Author != nil {
		author = meta.Author.Name
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO groups (path, public, category_id, category_name, author_name, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			public        = excluded.public,
			category_id   = excluded.category_id,
			category_name = excluded.category_name,
			author_name   = excluded.author_name,
			updated_at    = excluded.updated_at
	`, e.Group, meta.Public, catID, catName, author, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("store: upsert group %s: %w", e.Group, err)
	}
	return nil
}

func (db *DB) applyArticle(ctx context.Context, tx *sql.Tx, e gitrepo.Entry) error {
	if e.Change == gitrepo.ChangeDeleted {
		if _, err := tx.ExecContext(ctx, `DELETE FROM articles WHERE group_path = ? AND slug = ?`, e.Group, e.Slug()); err != nil {
			return fmt.Errorf("store: remove article %s/%s: %w", e.Group, e.Slug(), err)
		}
		return nil
	}

	art, err := content.ParseArticle(e.Group, e.Name, e.Content)
	if err != nil {
		return err
	}
	html, err := db.renderer.Render(ctx, art.Body)
	if err != nil {
		return err
	}
	summary, err := db.renderer.Render(ctx, art.Summary)
	if err != nil {
		return err
	}
	tagsJSON, _ := json.Marshal(art.Tags)

	publishedAt := art.PublishedAt
	if publishedAt.IsZero() {
		publishedAt = e.Time
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO articles (group_path, slug, title, summary, html, tags, published_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(group_path, slug) DO UPDATE SET
			title        = excluded.title,
			summary      = excluded.summary,
			html         = excluded.html,
			tags         = excluded.tags,
			published_at = excluded.published_at,
			updated_at   = excluded.updated_at
	`, art.Group, art.Slug, art.Title, summary, html, string(tagsJSON), publishedAt.UTC(), e.Time.UTC())
	if err != nil {
		return fmt.Errorf("store: upsert article %s/%s: %w", art.Group, art.Slug, err)
	}
	return nil
}
