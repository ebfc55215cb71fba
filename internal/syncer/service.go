// Package syncer coordinates the sync pipeline: classify a push, diff the
// repository, persist the reconciled entries, and notify listeners.
package syncer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/veilchen/gitpress/internal/gitrepo"
	"github.com/veilchen/gitpress/internal/hook"
	"github.com/veilchen/gitpress/internal/store"
)

// Events receives notifications after a successful sync. Implemented by the
// SSE broker; nil disables notifications.
type Events interface {
	PublishChange(kind, path string)
	PublishArchive(branch string)
}

// Result summarises one handled push.
type Result struct {
	Kind    hook.Kind `json:"kind"`
	Entries int       `json:"entries"`
	Branch  string    `json:"branch,omitempty"`
}

// Service runs pushes through the diff/persist/archive pipeline.
type Service struct {
	repo   gitrepo.Operations
	db     store.ContentStore
	events Events
	main   string
}

// NewService creates the sync service. events may be nil.
func NewService(repo gitrepo.Operations, db store.ContentStore, main string, events Events) *Service {
	return &Service{repo: repo, db: db, main: main, events: events}
}

// HandlePush classifies and executes one push notification. Unrecognised
// refs are a successful no-op.
func (s *Service) HandlePush(ctx context.Context, p hook.PushPayload) (*Result, error) {
	kind, tag := p.Classify(s.main)

	switch kind {
	case hook.KindSync:
		return s.sync(ctx, p.Before, p.After)
	case hook.KindRebuild:
		return s.Rebuild(ctx, p.After)
	case hook.KindArchive:
		return s.archive(p, tag)
	default:
		slog.Debug("push ignored", slog.String("ref", p.Ref))
		return &Result{Kind: hook.KindIgnore}, nil
	}
}

// sync applies an incremental diff to the store.
func (s *Service) sync(ctx context.Context, before, after string) (*Result, error) {
	entries, err := s.repo.Diff(before, after)
	if err != nil {
		return nil, err
	}
	if err := s.db.Apply(ctx, entries, store.Incremental); err != nil {
		return nil, fmt.Errorf("syncer: persist: %w", err)
	}

	s.notify(entries)
	slog.Info("incremental sync applied",
		slog.String("before", before),
		slog.String("after", after),
		slog.Int("entries", len(entries)))
	return &Result{Kind: hook.KindSync, Entries: len(entries)}, nil
}

// Rebuild resets the store and re-applies the full snapshot at revision (the
// main branch tip when revision is empty).
func (s *Service) Rebuild(ctx context.Context, revision string) (*Result, error) {
	if revision == "" {
		revision = s.main
	}
	entries, err := s.repo.Snapshot(revision)
	if err != nil {
		return nil, err
	}
	if err := s.db.Apply(ctx, entries, store.ResetAll); err != nil {
		return nil, fmt.Errorf("syncer: persist rebuild: %w", err)
	}

	s.notify(entries)
	slog.Info("full rebuild applied",
		slog.String("revision", revision),
		slog.Int("entries", len(entries)))
	return &Result{Kind: hook.KindRebuild, Entries: len(entries)}, nil
}

// archive condenses history onto the archive branch for tag.
func (s *Service) archive(p hook.PushPayload, tag string) (*Result, error) {
	info, err := s.repo.Archive(tag, p.After)
	if err != nil {
		return nil, err
	}

	summary := info.Summary()
	slog.Info("archive completed",
		slog.String("branch", info.Branch),
		slog.Duration("duration", info.Duration),
		slog.Int("articles", summary.Articles),
		slog.Int("groups", summary.Groups))

	if s.events != nil {
		s.events.PublishArchive(info.Branch)
	}
	return &Result{Kind: hook.KindArchive, Entries: len(info.Entries), Branch: info.Branch}, nil
}

// notify emits one change event per applied entry.
func (s *Service) notify(entries []gitrepo.Entry) {
	if s.events == nil {
		return
	}
	for _, e := range entries {
		s.events.PublishChange(eventType(e), e.Path())
	}
}

func eventType(e gitrepo.Entry) string {
	subject := "article"
	if e.Kind == gitrepo.KindGroupMetadata {
		subject = "group"
	}
	if e.Change == gitrepo.ChangeDeleted {
		return subject + ".removed"
	}
	return subject + ".updated"
}
