// Package hook models the inbound push notification and classifies which
// pipeline a push triggers.
package hook

import "strings"

// ZeroID is the all-zero revision id hooks send for ref creation/deletion.
const ZeroID = "0000000000000000000000000000000000000000"

// RebuildRef is the tag ref whose push triggers a full resync. The ref name
// alone decides; a force-moved marker rebuilds just like a created one.
const RebuildRef = "refs/tags/cmd/rebuild"

const archiveTagPrefix = "refs/tags/archive/"

// PushPayload is the minimal push notification the service consumes.
type PushPayload struct {
	Ref        string `json:"ref"`
	Before     string `json:"before"`
	After      string `json:"after"`
	Pusher     string `json:"pusher,omitempty"`
	Repository string `json:"repository,omitempty"`
}

// Kind is what a push means to the sync pipeline.
type Kind int

const (
	// KindIgnore means the push touches nothing we track; not an error.
	KindIgnore Kind = iota
	// KindSync means an incremental diff + persist on the main branch.
	KindSync
	// KindRebuild means a full diff from the empty tree with a store reset.
	KindRebuild
	// KindArchive means condensing history onto an archive branch.
	KindArchive
)

func (k Kind) String() string {
	switch k {
	case KindSync:
		return "sync"
	case KindRebuild:
		return "rebuild"
	case KindArchive:
		return "archive"
	default:
		return "ignore"
	}
}

// Classify decides the pipeline for a push against the given main branch.
// The second return is the archive tag, set only for KindArchive.
func (p PushPayload) Classify(mainBranch string) (Kind, string) {
	switch {
	case p.Ref == "refs/heads/"+mainBranch:
		return KindSync, ""
	case p.Ref == RebuildRef:
		return KindRebuild, ""
	case strings.HasPrefix(p.Ref, archiveTagPrefix):
		if tag := strings.TrimPrefix(p.Ref, archiveTagPrefix); tag != "" {
			return KindArchive, tag
		}
		return KindIgnore, ""
	default:
		return KindIgnore, ""
	}
}
