package content

import (
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/adrg/frontmatter"
	"github.com/pelletier/go-toml/v2"

	"github.com/veilchen/gitpress/internal/apperr"
)

// tomlFormat recognises the +++ fence used by article front matter.
var tomlFormat = frontmatter.NewFormat("+++", "+++", toml.Unmarshal)

// acceptedLayouts are the date formats writers may use in front matter.
var acceptedLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
}

// FlexTime decodes a front matter datetime from any accepted layout.
type FlexTime struct {
	time.Time
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *FlexTime) UnmarshalText(data []byte) error {
	s := strings.TrimSpace(string(data))
	for _, layout := range acceptedLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("content: unrecognised datetime %q", s)
}

// FrontMatter is the required header of every article file.
type FrontMatter struct {
	Title    string   `toml:"title"`
	Summary  string   `toml:"summary"`
	Datetime FlexTime `toml:"datetime"`
	Tags     []string `toml:"tags"`
}

// Article is a parsed article ready for rendering and persistence.
type Article struct {
	Group       string
	Slug        string
	Title       string
	Summary     string
	PublishedAt time.Time
	Tags        []string
	Body        string
}

// ParseArticle decodes an article file. name is the file name inside group;
// the slug is its stem. Missing front matter or a missing title is a format
// error.
func ParseArticle(group, name, raw string) (*Article, error) {
	var fm FrontMatter
	rest, err := frontmatter.MustParse(strings.NewReader(raw), &fm, tomlFormat)
	if err != nil {
		if errors.Is(err, frontmatter.ErrNotFound) {
			return nil, fmt.Errorf("content: article %s/%s has no front matter: %w", group, name, apperr.ErrBadFormat)
		}
		return nil, fmt.Errorf("content: article %s/%s: %v: %w", group, name, err, apperr.ErrBadFormat)
	}
	if fm.Title == "" {
		return nil, fmt.Errorf("content: article %s/%s missing title: %w", group, name, apperr.ErrBadFormat)
	}

	tags := fm.Tags
	if tags == nil {
		tags = []string{}
	}

	return &Article{
		Group:       group,
		Slug:        strings.TrimSuffix(name, path.Ext(name)),
		Title:       fm.Title,
		Summary:     fm.Summary,
		PublishedAt: fm.Datetime.Time,
		Tags:        tags,
		Body:        string(rest),
	}, nil
}
