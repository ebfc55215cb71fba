// Package gitrepo turns a bare git repository into a stream of content
// change entries: it walks revision ranges, nets the per-commit deltas per
// path, and condenses full history into archive branches.
package gitrepo

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
)

// MetadataFileName is the reserved per-directory file that carries the
// group's metadata record.
const MetadataFileName = ".group.toml"

// FileKind classifies a path by what it means to the content model.
type FileKind int

const (
	KindOther FileKind = iota
	KindArticle
	KindGroupMetadata
)

func (k FileKind) String() string {
	switch k {
	case KindArticle:
		return "article"
	case KindGroupMetadata:
		return "group-metadata"
	default:
		return "other"
	}
}

// FileKindOf derives the kind purely from the file path.
func FileKindOf(p string) FileKind {
	if path.Base(p) == MetadataFileName {
		return KindGroupMetadata
	}
	switch strings.ToLower(path.Ext(p)) {
	case ".md", ".markdown":
		return KindArticle
	}
	return KindOther
}

// ChangeKind is the net effect of one or more deltas on a path.
type ChangeKind int

const (
	ChangeNone ChangeKind = iota
	ChangeAdded
	ChangeModified
	ChangeDeleted
)

func (c ChangeKind) String() string {
	switch c {
	case ChangeAdded:
		return "added"
	case ChangeModified:
		return "modified"
	case ChangeDeleted:
		return "deleted"
	default:
		return "none"
	}
}

// mergeChange folds a new per-commit delta into the running net change for a
// path. The second return is false when the pair cancels (a path added and
// then deleted inside the walked range) and the entry must be removed
// entirely.
func mergeChange(old, next ChangeKind) (ChangeKind, bool) {
	if old == ChangeNone {
		return next, true
	}
	switch {
	case old == ChangeAdded && next == ChangeDeleted:
		return ChangeNone, false
	case old == ChangeAdded:
		// Added then touched again is still new content downstream.
		return ChangeModified, true
	case next == ChangeDeleted:
		return ChangeDeleted, true
	case old == ChangeDeleted && next == ChangeAdded:
		return ChangeAdded, true
	default:
		return ChangeModified, true
	}
}

// Entry is one reconciled change to a group or article file.
//
// Group is the directory holding the file, slashes trimmed ("" for the
// repository root). Name is the file name and is empty for group metadata.
// Time is the committing revision's commit time; Content is the decoded blob
// for Added/Modified entries and empty for Deleted ones.
type Entry struct {
	Kind    FileKind
	Change  ChangeKind
	Group   string
	Name    string
	BlobID  plumbing.Hash
	Time    time.Time
	Content string
}

// newEntry builds an Entry from a delta on filePath.
func newEntry(kind FileKind, change ChangeKind, filePath string, blob plumbing.Hash, at time.Time, content string) Entry {
	group := path.Dir(filePath)
	if group == "." || group == "/" {
		group = ""
	}
	group = strings.Trim(group, "/")

	name := path.Base(filePath)
	if kind == KindGroupMetadata {
		name = ""
	}

	return Entry{
		Kind:    kind,
		Change:  change,
		Group:   group,
		Name:    name,
		BlobID:  blob,
		Time:    at,
		Content: content,
	}
}

// Key identifies the logical path of the entry: (group, name) for articles,
// (group) for metadata.
func (e Entry) Key() string {
	if e.Kind == KindGroupMetadata {
		return e.Group + "/" + MetadataFileName
	}
	return e.Group + "/" + e.Name
}

// Path is the repository-relative file path of the entry.
func (e Entry) Path() string {
	name := e.Name
	if e.Kind == KindGroupMetadata {
		name = MetadataFileName
	}
	if e.Group == "" {
		return name
	}
	return e.Group + "/" + name
}

// Slug is the article identifier derived from the file name.
func (e Entry) Slug() string {
	return strings.TrimSuffix(e.Name, path.Ext(e.Name))
}

func (e Entry) String() string {
	return fmt.Sprintf("%s %s %s", e.Change, e.Kind, e.Path())
}

// PruneCancelled drops add/remove pairs that cancel across a flat entry
// list: per logical key, a removal cancels the most recently pending add
// (last added, first cancelled) and both entries are dropped. Entries are
// processed in emission order; unmatched entries survive in order.
func PruneCancelled(entries []Entry) []Entry {
	keep := make([]bool, len(entries))
	pending := make(map[string][]int)

	for i, e := range entries {
		keep[i] = true
		key := e.Key()
		switch e.Change {
		case ChangeAdded, ChangeModified:
			pending[key] = append(pending[key], i)
		case ChangeDeleted:
			if stack := pending[key]; len(stack) > 0 {
				last := stack[len(stack)-1]
				pending[key] = stack[:len(stack)-1]
				keep[last] = false
				keep[i] = false
			}
		}
	}

	out := make([]Entry, 0, len(entries))
	for i, e := range entries {
		if keep[i] {
			out = append(out, e)
		}
	}
	return out
}

// Summary counts the articles and group records in an entry list.
type Summary struct {
	Articles int
	Groups   int
}

// Summarize tallies entries by kind.
func Summarize(entries []Entry) Summary {
	var s Summary
	for _, e := range entries {
		switch e.Kind {
		case KindArticle:
			s.Articles++
		case KindGroupMetadata:
			s.Groups++
		}
	}
	return s
}
