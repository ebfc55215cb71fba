package gitrepo

import (
	"fmt"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/utils/merkletrie"
)

// Diff walks every commit strictly after oldRevision up to and including
// newRevision, oldest first, and returns one net entry per touched path.
//
// Only group-metadata and article paths are emitted. A blob that is missing
// or not UTF-8 text drops that single entry; the walk continues. Revision
// resolution failures are fatal for the whole call.
func (r *repository) Diff(oldRevision, newRevision string) ([]Entry, error) {
	newCommit, err := r.resolveCommit(newRevision)
	if err != nil {
		return nil, err
	}

	var oldCommit *object.Commit
	if !fromBeginning(oldRevision) {
		oldCommit, err = r.resolveCommit(oldRevision)
		if err != nil {
			return nil, err
		}
	}

	commits, err := r.commitsBetween(oldCommit, newCommit)
	if err != nil {
		return nil, err
	}

	var prevTree *object.Tree
	if oldCommit != nil {
		prevTree, err = oldCommit.Tree()
		if err != nil {
			return nil, fmt.Errorf("gitrepo: tree of %s: %w", oldCommit.Hash, err)
		}
	}

	rec := newReconciler()
	for _, commit := range commits {
		tree, err := commit.Tree()
		if err != nil {
			return nil, fmt.Errorf("gitrepo: tree of %s: %w", commit.Hash, err)
		}
		changes, err := object.DiffTree(prevTree, tree)
		if err != nil {
			return nil, fmt.Errorf("gitrepo: diff at %s: %w", commit.Hash, err)
		}
		for _, change := range changes {
			r.classify(rec, change, commit)
		}
		prevTree = tree
	}

	return rec.entries(), nil
}

// fromBeginning reports whether oldRevision means the empty tree.
func fromBeginning(oldRevision string) bool {
	return oldRevision == "" || oldRevision == ZeroID || oldRevision == EmptyTreeID
}

// commitsBetween returns the commits reachable from new but not from old, in
// topological order with parents before children. Commit times cannot drive
// the exclusion: a side branch merged late routinely carries commits older
// than old, and those must still be visited.
func (r *repository) commitsBetween(old, new *object.Commit) ([]*object.Commit, error) {
	seen := make(map[plumbing.Hash]bool)
	if old != nil {
		iter := object.NewCommitPreorderIter(old, nil, nil)
		err := iter.ForEach(func(c *object.Commit) error {
			seen[c.Hash] = true
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("gitrepo: walk ancestors of %s: %w", old.Hash, err)
		}
	}

	// Collect the in-range subgraph. Merge histories make this a DAG, not a
	// line.
	inRange := make(map[plumbing.Hash]*object.Commit)
	var pending []*object.Commit
	if !seen[new.Hash] {
		pending = append(pending, new)
	}
	for len(pending) > 0 {
		c := pending[len(pending)-1]
		pending = pending[:len(pending)-1]
		if inRange[c.Hash] != nil {
			continue
		}
		inRange[c.Hash] = c
		for _, ph := range c.ParentHashes {
			if seen[ph] || inRange[ph] != nil {
				continue
			}
			parent, err := r.repo.CommitObject(ph)
			if err != nil {
				return nil, fmt.Errorf("gitrepo: load commit %s: %w", ph, err)
			}
			pending = append(pending, parent)
		}
	}

	// Depth-first post-order emits every parent before its children, which
	// is oldest-first for the fold.
	type frame struct {
		commit   *object.Commit
		expanded bool
	}
	ordered := make([]*object.Commit, 0, len(inRange))
	done := make(map[plumbing.Hash]bool, len(inRange))
	var stack []frame
	if inRange[new.Hash] != nil {
		stack = append(stack, frame{commit: new})
	}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.expanded {
			if !done[top.commit.Hash] {
				done[top.commit.Hash] = true
				ordered = append(ordered, top.commit)
			}
			stack = stack[:len(stack)-1]
			continue
		}
		top.expanded = true
		for _, ph := range top.commit.ParentHashes {
			if p := inRange[ph]; p != nil && !done[ph] {
				stack = append(stack, frame{commit: p})
			}
		}
	}
	return ordered, nil
}

// classify turns one tree delta into entries and folds them in. Renames are
// treated as delete of the old path plus add of the new one.
func (r *repository) classify(rec *reconciler, change *object.Change, commit *object.Commit) {
	action, err := change.Action()
	if err != nil {
		return
	}
	at := commit.Committer.When

	switch action {
	case merkletrie.Insert:
		r.emit(rec, ChangeAdded, change.To.Name, change.To.TreeEntry.Hash, commit)
	case merkletrie.Delete:
		r.emitDeleted(rec, change.From.Name, at)
	case merkletrie.Modify:
		if change.From.Name == change.To.Name {
			r.emit(rec, ChangeModified, change.To.Name, change.To.TreeEntry.Hash, commit)
			return
		}
		r.emitDeleted(rec, change.From.Name, at)
		r.emit(rec, ChangeAdded, change.To.Name, change.To.TreeEntry.Hash, commit)
	}
}

// emit loads the blob and folds an Added/Modified entry. A blob that fails
// to load or decode drops the entry, per the fixed policy.
func (r *repository) emit(rec *reconciler, change ChangeKind, filePath string, blob plumbing.Hash, commit *object.Commit) {
	kind := FileKindOf(filePath)
	if kind == KindOther {
		return
	}
	content, err := r.LoadBlob(blob.String())
	if err != nil {
		return
	}
	rec.fold(newEntry(kind, change, filePath, blob, commit.Committer.When, content))
}

func (r *repository) emitDeleted(rec *reconciler, filePath string, at time.Time) {
	kind := FileKindOf(filePath)
	if kind == KindOther {
		return
	}
	rec.fold(newEntry(kind, ChangeDeleted, filePath, plumbing.ZeroHash, at, ""))
}

// reconciler folds per-commit deltas into one net entry per path, keeping
// first-touch order. A cancelled pair removes the slot; a path touched again
// afterwards re-enters at a new position.
type reconciler struct {
	order []*Entry
	byKey map[string]*Entry
}

func newReconciler() *reconciler {
	return &reconciler{byKey: make(map[string]*Entry)}
}

func (rc *reconciler) fold(e Entry) {
	key := e.Key()
	existing, ok := rc.byKey[key]
	if !ok {
		slot := new(Entry)
		*slot = e
		rc.order = append(rc.order, slot)
		rc.byKey[key] = slot
		return
	}

	merged, alive := mergeChange(existing.Change, e.Change)
	if !alive {
		// Added then deleted inside the range: the entry vanishes.
		existing.Change = ChangeNone
		delete(rc.byKey, key)
		return
	}

	existing.Change = merged
	existing.Time = e.Time
	if merged == ChangeDeleted {
		existing.BlobID = plumbing.ZeroHash
		existing.Content = ""
	} else {
		existing.BlobID = e.BlobID
		existing.Content = e.Content
	}
}

func (rc *reconciler) entries() []Entry {
	out := make([]Entry, 0, len(rc.order))
	for _, e := range rc.order {
		if e.Change == ChangeNone {
			continue
		}
		out = append(out, *e)
	}
	return out
}
