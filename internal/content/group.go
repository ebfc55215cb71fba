// Package content parses the repository's content formats: per-directory
// group metadata and article files with TOML front matter.
package content

import (
	"fmt"

	"github.com/pelletier/go-toml/v2"

	"github.com/veilchen/gitpress/internal/apperr"
)

// GroupMeta is the decoded .group.toml record for a directory. A missing
// field keeps its zero value; an empty file is a valid private group.
type GroupMeta struct {
	Public   bool      `toml:"public"`
	Category *Category `toml:"category"`
	Author   *Author   `toml:"author"`
}

// Category labels the group for navigation.
type Category struct {
	ID   string `toml:"id"`
	Name string `toml:"name"`
}

// Author is the group's default byline.
type Author struct {
	Name string `toml:"name"`
}

// ParseGroupMeta decodes raw TOML group metadata.
func ParseGroupMeta(raw string) (*GroupMeta, error) {
	var meta GroupMeta
	if err := toml.Unmarshal([]byte(raw), &meta); err != nil {
		return nil, fmt.Errorf("content: group metadata: %v: %w", err, apperr.ErrBadFormat)
	}
	return &meta, nil
}
