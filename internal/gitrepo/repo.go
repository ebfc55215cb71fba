package gitrepo

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"unicode/utf8"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/veilchen/gitpress/internal/apperr"
)

const (
	// EmptyTreeID is the well-known id of the empty tree object.
	EmptyTreeID = "4b825dc642cb6eb9a060e54bf8d69288fbee4904"

	// ZeroID is the all-zero revision id hooks send for ref creation.
	ZeroID = "0000000000000000000000000000000000000000"
)

// Operations is the capability set the rest of the service depends on.
// Consumers should depend on this interface rather than the concrete *Repo
// type to facilitate testing with mocks.
type Operations interface {
	Snapshot(revision string) ([]Entry, error)
	Diff(oldRevision, newRevision string) ([]Entry, error)
	LoadBlob(id string) (string, error)
	Archive(tag, revision string) (*ArchivedInfo, error)
	TagArchive(tag, revision string) error
}

// Verify both implementations satisfy Operations at compile time.
var (
	_ Operations = (*repository)(nil)
	_ Operations = (*Repo)(nil)
)

// repository is the direct, single-caller implementation over a go-git
// handle. It is not safe for concurrent use.
type repository struct {
	repo   *git.Repository
	gitDir string
	main   string
}

// Repo wraps repository with an exclusive-access guard so it can be shared
// across concurrent request handlers. Operations are mutually exclusive, not
// concurrent; the underlying handle is not safely shareable across
// simultaneous mutation-capable calls.
type Repo struct {
	mu    sync.Mutex
	inner *repository
}

// Open opens the repository at path (bare or with a .git directory) and
// returns the guarded facade. main is the branch incremental syncs follow.
func Open(path, main string) (*Repo, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return nil, fmt.Errorf("gitrepo: open %s: %w", path, err)
	}

	gitDir := path
	if fi, err := os.Stat(filepath.Join(path, ".git")); err == nil && fi.IsDir() {
		gitDir = filepath.Join(path, ".git")
	}

	return &Repo{inner: &repository{repo: repo, gitDir: gitDir, main: main}}, nil
}

// Snapshot lists every group/article file visible at revision, computed as
// the diff from the empty tree.
func (r *Repo) Snapshot(revision string) ([]Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inner.Snapshot(revision)
}

// Diff returns the net changes between two revisions. An empty, zero, or
// empty-tree oldRevision means "from the beginning".
func (r *Repo) Diff(oldRevision, newRevision string) ([]Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inner.Diff(oldRevision, newRevision)
}

// LoadBlob reads a blob's content as UTF-8 text.
func (r *Repo) LoadBlob(id string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inner.LoadBlob(id)
}

// Archive condenses history up to revision onto branch archive/<tag>.
func (r *Repo) Archive(tag, revision string) (*ArchivedInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inner.Archive(tag, revision)
}

// TagArchive points tag refs/tags/archive/<tag> at revision (or the main
// branch tip when revision is empty), overwriting an existing tag.
func (r *Repo) TagArchive(tag, revision string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inner.TagArchive(tag, revision)
}

var hexIDRe = regexp.MustCompile(`^[0-9a-f]{40}$`)

// resolveCommit resolves a branch name, tag, or full hash to a commit.
func (r *repository) resolveCommit(revision string) (*object.Commit, error) {
	if hexIDRe.MatchString(revision) {
		commit, err := r.repo.CommitObject(plumbing.NewHash(revision))
		if err != nil {
			return nil, fmt.Errorf("gitrepo: resolve %s: %w", revision, apperr.ErrRevisionNotFound)
		}
		return commit, nil
	}

	hash, err := r.repo.ResolveRevision(plumbing.Revision(revision))
	if err != nil {
		return nil, fmt.Errorf("gitrepo: resolve %s: %w", revision, apperr.ErrRevisionNotFound)
	}
	commit, err := r.repo.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("gitrepo: resolve %s: %w", revision, apperr.ErrRevisionNotFound)
	}
	return commit, nil
}

func (r *repository) Snapshot(revision string) ([]Entry, error) {
	entries, err := r.Diff("", revision)
	if err != nil {
		return nil, err
	}
	return PruneCancelled(entries), nil
}

func (r *repository) LoadBlob(id string) (string, error) {
	if !hexIDRe.MatchString(id) {
		return "", fmt.Errorf("gitrepo: blob %s: %w", id, apperr.ErrObjectNotFound)
	}
	blob, err := r.repo.BlobObject(plumbing.NewHash(id))
	if err != nil {
		return "", fmt.Errorf("gitrepo: blob %s: %w", id, apperr.ErrObjectNotFound)
	}
	return readBlob(blob)
}

// readBlob decodes a blob as UTF-8 text.
func readBlob(blob *object.Blob) (string, error) {
	rd, err := blob.Reader()
	if err != nil {
		return "", fmt.Errorf("gitrepo: read blob %s: %w", blob.Hash, err)
	}
	defer rd.Close()

	data, err := io.ReadAll(rd)
	if err != nil {
		return "", fmt.Errorf("gitrepo: read blob %s: %w", blob.Hash, err)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("gitrepo: blob %s: %w", blob.Hash, apperr.ErrNotText)
	}
	return string(data), nil
}

// TagArchive creates or moves refs/tags/archive/<tag>.
func (r *repository) TagArchive(tag, revision string) error {
	if revision == "" {
		revision = r.main
	}
	commit, err := r.resolveCommit(revision)
	if err != nil {
		return err
	}
	ref := plumbing.NewHashReference(
		plumbing.ReferenceName("refs/tags/archive/"+tag), commit.Hash)
	if err := r.repo.Storer.SetReference(ref); err != nil {
		return fmt.Errorf("gitrepo: set tag archive/%s: %w", tag, err)
	}
	return nil
}
