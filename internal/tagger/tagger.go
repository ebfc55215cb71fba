// Package tagger creates quarterly archive tags on a schedule. Creating the
// tag marks the quarter boundary; the actual archive run is triggered by the
// push notification for that tag.
package tagger

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Repo is the single repository capability the tagger needs.
type Repo interface {
	TagArchive(tag, revision string) error
}

// Tagger checks once a day whether today is the last day of a quarter and,
// if so, points archive/<YYYY-Qn> at the main branch tip. The tag is
// overwritten on repeat runs, so the check is idempotent within the day.
type Tagger struct {
	repo     Repo
	interval time.Duration
	now      func() time.Time
}

// New creates a Tagger with a daily check interval.
func New(repo Repo) *Tagger {
	return &Tagger{repo: repo, interval: 24 * time.Hour, now: time.Now}
}

// Run checks immediately and then on every interval tick until ctx is done.
func (t *Tagger) Run(ctx context.Context) error {
	t.check()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			t.check()
		}
	}
}

func (t *Tagger) check() {
	tag, ok := QuarterTag(t.now())
	if !ok {
		return
	}
	if err := t.repo.TagArchive(tag, ""); err != nil {
		slog.Error("quarter tag failed", slog.String("tag", tag), slog.String("error", err.Error()))
		return
	}
	slog.Info("quarter tag created", slog.String("tag", "archive/"+tag))
}

// QuarterTag returns the archive tag name (e.g. "2025-Q2") when now is the
// last day of a quarter.
func QuarterTag(now time.Time) (string, bool) {
	month := now.Month()
	if month != time.March && month != time.June && month != time.September && month != time.December {
		return "", false
	}
	lastDay := time.Date(now.Year(), month+1, 0, 0, 0, 0, 0, now.Location()).Day()
	if now.Day() != lastDay {
		return "", false
	}
	quarter := (int(month)-1)/3 + 1
	return fmt.Sprintf("%d-Q%d", now.Year(), quarter), true
}
