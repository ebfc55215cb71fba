// Package apperr defines the typed errors surfaced by the core.
// Callers match them with errors.Is and decide HTTP status / logging;
// nothing in here retries.
package apperr

import "errors"

var (
	// ErrNotFound reports a missing record in the content store.
	ErrNotFound = errors.New("not found")

	// ErrRevisionNotFound reports a revision id or ref that does not resolve.
	ErrRevisionNotFound = errors.New("revision not found")

	// ErrObjectNotFound reports a blob absent from the object store.
	ErrObjectNotFound = errors.New("object not found")

	// ErrNotText reports blob content that is not valid UTF-8 text.
	ErrNotText = errors.New("object content is not valid text")

	// ErrCheckoutConflict reports stale ephemeral checkout metadata from a
	// previous crashed archive run.
	ErrCheckoutConflict = errors.New("stale checkout metadata")

	// ErrNothingToArchive reports an archive target with no reconciled entries.
	ErrNothingToArchive = errors.New("nothing to archive")

	// ErrBadFormat reports content that fails format parsing (front matter,
	// group metadata).
	ErrBadFormat = errors.New("bad content format")

	// ErrRenderUpstream reports a failure of the external markdown renderer.
	ErrRenderUpstream = errors.New("render upstream failure")
)
