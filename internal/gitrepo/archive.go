package gitrepo

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/veilchen/gitpress/internal/apperr"
)

// Synthetic identity for archive commits. Never the original author.
const (
	archiveAuthorName  = "gitpress-archive"
	archiveAuthorEmail = "archive@gitpress.invalid"
)

// ArchivedInfo describes one completed archive run. It is produced once per
// invocation and never mutated afterwards.
type ArchivedInfo struct {
	Branch   string
	RanAt    time.Time
	Duration time.Duration
	Entries  []Entry
}

// Summary tallies the archived entries by kind.
func (i *ArchivedInfo) Summary() Summary {
	return Summarize(i.Entries)
}

// Archive condenses the reconciled history up to revision into a
// time-grouped commit chain on refs/heads/archive/<tag>. Per-commit
// granularity is discarded; temporal clustering is preserved. The branch
// pointer is only set after the full chain is built, so no partial branch is
// ever published.
func (r *repository) Archive(tag, revision string) (*ArchivedInfo, error) {
	started := time.Now()

	entries, err := r.Snapshot(revision)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("gitrepo: archive %s: %w", tag, apperr.ErrNothingToArchive)
	}

	// Every surviving entry may still be a deletion (dropped blobs leave
	// unmatched removals); without a stageable group there is no chain to
	// build.
	groups := groupByTime(entries, started)
	if len(groups) == 0 {
		return nil, fmt.Errorf("gitrepo: archive %s: %w", tag, apperr.ErrNothingToArchive)
	}

	co, err := newCheckout(r.gitDir, tag)
	if err != nil {
		return nil, err
	}
	defer co.remove()

	files := make(map[string]plumbing.Hash)
	var parent plumbing.Hash
	first := true
	for _, g := range groups {
		for _, e := range g.entries {
			blob, err := r.writeBlobFromCheckout(co, e)
			if err != nil {
				return nil, err
			}
			files[e.Path()] = blob
		}
		treeHash, err := r.writeTree(files)
		if err != nil {
			return nil, err
		}
		parent, err = r.writeCommit(tag, treeHash, parent, first, g.at)
		if err != nil {
			return nil, err
		}
		first = false
	}

	branch := "archive/" + tag
	ref := plumbing.NewHashReference(plumbing.ReferenceName("refs/heads/"+branch), parent)
	if err := r.repo.Storer.SetReference(ref); err != nil {
		return nil, fmt.Errorf("gitrepo: set branch %s: %w", branch, err)
	}

	return &ArchivedInfo{
		Branch:   branch,
		RanAt:    started,
		Duration: time.Since(started),
		Entries:  entries,
	}, nil
}

type timeGroup struct {
	at      time.Time
	entries []Entry
}

// groupByTime buckets stageable entries by their inherited timestamp,
// ascending. Group-metadata entries have no natural publish time and use
// now; deleted entries are never staged.
func groupByTime(entries []Entry, now time.Time) []timeGroup {
	buckets := make(map[int64][]Entry)
	for _, e := range entries {
		if e.Change == ChangeDeleted {
			continue
		}
		at := e.Time
		if e.Kind == KindGroupMetadata {
			at = now
		}
		buckets[at.Unix()] = append(buckets[at.Unix()], e)
	}

	keys := make([]int64, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	groups := make([]timeGroup, 0, len(keys))
	for _, k := range keys {
		groups = append(groups, timeGroup{at: time.Unix(k, 0), entries: buckets[k]})
	}
	return groups
}

// writeBlobFromCheckout materializes the entry into the ephemeral checkout
// and writes its bytes as a blob object.
func (r *repository) writeBlobFromCheckout(co *checkout, e Entry) (plumbing.Hash, error) {
	path, err := co.materialize(e.Path(), e.Content)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("gitrepo: read staged %s: %w", e.Path(), err)
	}

	obj := r.repo.Storer.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	w, err := obj.Writer()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("gitrepo: blob writer: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return plumbing.ZeroHash, fmt.Errorf("gitrepo: write blob: %w", err)
	}
	if err := w.Close(); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("gitrepo: close blob: %w", err)
	}
	hash, err := r.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("gitrepo: store blob: %w", err)
	}
	return hash, nil
}

type treeNode struct {
	blobs map[string]plumbing.Hash
	dirs  map[string]*treeNode
}

func newTreeNode() *treeNode {
	return &treeNode{blobs: make(map[string]plumbing.Hash), dirs: make(map[string]*treeNode)}
}

func (n *treeNode) insert(path string, blob plumbing.Hash) {
	slash := strings.IndexByte(path, '/')
	if slash < 0 {
		n.blobs[path] = blob
		return
	}
	dir, rest := path[:slash], path[slash+1:]
	child, ok := n.dirs[dir]
	if !ok {
		child = newTreeNode()
		n.dirs[dir] = child
	}
	child.insert(rest, blob)
}

// writeTree builds the full tree object for the given path→blob map.
func (r *repository) writeTree(files map[string]plumbing.Hash) (plumbing.Hash, error) {
	root := newTreeNode()
	for path, blob := range files {
		root.insert(path, blob)
	}
	return r.writeTreeNode(root)
}

func (r *repository) writeTreeNode(n *treeNode) (plumbing.Hash, error) {
	entries := make([]object.TreeEntry, 0, len(n.blobs)+len(n.dirs))
	for name, blob := range n.blobs {
		entries = append(entries, object.TreeEntry{Name: name, Mode: filemode.Regular, Hash: blob})
	}
	for name, child := range n.dirs {
		hash, err := r.writeTreeNode(child)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		entries = append(entries, object.TreeEntry{Name: name, Mode: filemode.Dir, Hash: hash})
	}

	// Git sorts tree entries by name, with directories compared as if their
	// name carried a trailing slash.
	sort.Slice(entries, func(i, j int) bool {
		return treeSortName(entries[i]) < treeSortName(entries[j])
	})

	tree := object.Tree{Entries: entries}
	obj := r.repo.Storer.NewEncodedObject()
	if err := tree.Encode(obj); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("gitrepo: encode tree: %w", err)
	}
	hash, err := r.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("gitrepo: store tree: %w", err)
	}
	return hash, nil
}

func treeSortName(e object.TreeEntry) string {
	if e.Mode == filemode.Dir {
		return e.Name + "/"
	}
	return e.Name
}

// writeCommit creates one archive commit at the group's timestamp.
func (r *repository) writeCommit(tag string, tree, parent plumbing.Hash, first bool, at time.Time) (plumbing.Hash, error) {
	sig := object.Signature{Name: archiveAuthorName, Email: archiveAuthorEmail, When: at}

	commit := object.Commit{
		Author:    sig,
		Committer: sig,
		Message:   fmt.Sprintf("archive: %s at %s", tag, at.Format("2006-01-02 15:04:05")),
		TreeHash:  tree,
	}
	if !first {
		commit.ParentHashes = []plumbing.Hash{parent}
	}

	obj := r.repo.Storer.NewEncodedObject()
	if err := commit.Encode(obj); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("gitrepo: encode commit: %w", err)
	}
	hash, err := r.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("gitrepo: store commit: %w", err)
	}
	return hash, nil
}
