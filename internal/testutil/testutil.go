// Package testutil provides shared test helpers for setting up scratch
// repositories and databases.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/veilchen/gitpress/internal/gitrepo"
	"github.com/veilchen/gitpress/internal/render"
	"github.com/veilchen/gitpress/internal/store"
)

// TestDB creates a temporary SQLite store with a local renderer that is
// automatically cleaned up.
func TestDB(t *testing.T) *store.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "gitpress-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := store.Open(dbFile.Name(), render.NewLocal())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// RepoFixture is a scratch git repository plus the facade opened over it.
// The main branch is "master" (go-git's init default).
type RepoFixture struct {
	Dir  string
	Raw  *git.Repository
	Repo *gitrepo.Repo

	wt *git.Worktree
}

// NewRepoFixture initialises a repository in a temp directory.
func NewRepoFixture(t *testing.T) *RepoFixture {
	t.Helper()
	dir := t.TempDir()
	raw, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("PlainInit: %v", err)
	}
	wt, err := raw.Worktree()
	if err != nil {
		t.Fatalf("Worktree: %v", err)
	}
	repo, err := gitrepo.Open(dir, "master")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return &RepoFixture{Dir: dir, Raw: raw, Repo: repo, wt: wt}
}

// Commit writes files, removes paths, and commits at the given time,
// returning the commit id.
func (f *RepoFixture) Commit(t *testing.T, msg string, when time.Time, files map[string]string, remove []string) string {
	t.Helper()
	for path, content := range files {
		full := filepath.Join(f.Dir, filepath.FromSlash(path))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := f.wt.Add(path); err != nil {
			t.Fatalf("Add %s: %v", path, err)
		}
	}
	for _, path := range remove {
		if _, err := f.wt.Remove(path); err != nil {
			t.Fatalf("Remove %s: %v", path, err)
		}
	}
	sig := &object.Signature{Name: "tester", Email: "tester@example.com", When: when}
	hash, err := f.wt.Commit(msg, &git.CommitOptions{Author: sig, Committer: sig})
	if err != nil {
		t.Fatalf("Commit %q: %v", msg, err)
	}
	return hash.String()
}

// ArticleSource builds a minimal valid article file body.
func ArticleSource(title, date, body string) string {
	return "+++\ntitle = \"" + title + "\"\nsummary = \"summary of " + title + "\"\ndatetime = \"" + date + "\"\n+++\n" + body + "\n"
}
