package gitrepo

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/veilchen/gitpress/internal/apperr"
)

// checkout is the ephemeral working directory an archive run stages files
// in, plus the per-tag metadata directory under the git dir. It is a scoped
// resource: acquire with newCheckout, release with remove on every exit
// path.
type checkout struct {
	dir     string
	metaDir string
}

// newCheckout creates the checkout for tag. Stale metadata left behind by a
// previous crashed run is cleaned up first, so the conflict self-heals
// instead of failing the archive.
func newCheckout(gitDir, tag string) (*checkout, error) {
	metaDir := filepath.Join(gitDir, "worktrees", tag)
	if _, err := os.Stat(metaDir); err == nil {
		if err := os.RemoveAll(metaDir); err != nil {
			return nil, fmt.Errorf("gitrepo: clean stale checkout %s: %v: %w", metaDir, err, apperr.ErrCheckoutConflict)
		}
	}

	dir, err := os.MkdirTemp("", "gitpress-archive-"+tag+"-")
	if err != nil {
		return nil, fmt.Errorf("gitrepo: create checkout: %w", err)
	}

	if err := os.MkdirAll(metaDir, 0o755); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("gitrepo: create checkout metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(metaDir, "gitdir"), []byte(dir+"\n"), 0o644); err != nil {
		os.RemoveAll(dir)
		os.RemoveAll(metaDir)
		return nil, fmt.Errorf("gitrepo: write checkout metadata: %w", err)
	}

	return &checkout{dir: dir, metaDir: metaDir}, nil
}

// materialize writes content to path inside the checkout and returns the
// absolute file path.
func (c *checkout) materialize(path, content string) (string, error) {
	full := filepath.Join(c.dir, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("gitrepo: stage %s: %w", path, err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("gitrepo: stage %s: %w", path, err)
	}
	return full, nil
}

// remove deletes the working directory and its metadata. Best effort; a
// leftover metadata dir is cleaned by the next run for the same tag.
func (c *checkout) remove() {
	os.RemoveAll(c.dir)
	os.RemoveAll(c.metaDir)
}
