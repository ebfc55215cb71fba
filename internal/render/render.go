// Package render converts article markdown to HTML, either locally or
// through the GitHub markdown API.
package render

import (
	"bytes"
	"context"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Renderer converts GitHub-flavored markdown to HTML.
type Renderer interface {
	Render(ctx context.Context, markdown string) (string, error)
}

// Local renders markdown in-process with goldmark.
type Local struct {
	md goldmark.Markdown
}

var _ Renderer = (*Local)(nil)

// NewLocal creates the in-process renderer with GFM extensions.
func NewLocal() *Local {
	return &Local{
		md: goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

// Render implements Renderer.
func (l *Local) Render(_ context.Context, markdown string) (string, error) {
	var buf bytes.Buffer
	if err := l.md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("render: convert: %w", err)
	}
	return buf.String(), nil
}
