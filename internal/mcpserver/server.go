// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes read tools over the synced content via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/veilchen/gitpress/internal/apperr"
	"github.com/veilchen/gitpress/internal/store"
)

// Server wraps the MCP server with gitpress tools.
type Server struct {
	mcp *server.MCPServer
	db  store.ContentStore
}

// New creates a new MCP server with all gitpress tools registered.
func New(db store.ContentStore) *Server {
	s := &Server{db: db}

	s.mcp = server.NewMCPServer(
		"gitpress",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_articles",
		mcp.WithDescription("List synced articles, optionally filtered by group or tag."),
		mcp.WithString("group", mcp.Description("Optional group path to filter by")),
		mcp.WithString("tag", mcp.Description("Optional tag to filter by")),
	), s.listArticles)

	s.mcp.AddTool(mcp.NewTool("read_article",
		mcp.WithDescription("Read one article by slug, including its rendered HTML."),
		mcp.WithString("slug", mcp.Required(), mcp.Description("Article slug (file name without extension)")),
	), s.readArticle)

	s.mcp.AddTool(mcp.NewTool("list_groups",
		mcp.WithDescription("List all content groups with their metadata."),
	), s.listGroups)

	s.mcp.AddTool(mcp.NewTool("get_article_contract",
		mcp.WithDescription("Returns the canonical article file format contract. "+
			"Call this before committing article files to the content repository."),
	), s.getArticleContract)

	// Resource: article format contract.
	s.mcp.AddResource(
		mcp.NewResource("gitpress://article-format", "Article Format Contract",
			mcp.WithResourceDescription("Canonical article file format that all committed articles must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readArticleFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) listArticles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	group := ""
	if g, err := req.RequireString("group"); err == nil {
		group = g
	}
	tag := ""
	if tg, err := req.RequireString("tag"); err == nil {
		tag = tg
	}

	articles, _, err := s.db.ListArticles(ctx, 100, 0, group, tag)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	type item struct {
		Group       string   `json:"group"`
		Slug        string   `json:"slug"`
		Title       string   `json:"title"`
		Tags        []string `json:"tags"`
		PublishedAt string   `json:"published_at"`
	}
	items := make([]item, len(articles))
	for i, a := range articles {
		items[i] = item{
			Group:       a.Group,
			Slug:        a.Slug,
			Title:       a.Title,
			Tags:        a.Tags,
			PublishedAt: a.PublishedAt.Format("2006-01-02 15:04:05"),
		}
	}
	out, _ := json.MarshalIndent(items, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readArticle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	slug, err := req.RequireString("slug")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	art, err := s.db.GetArticle(ctx, slug)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", slug)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(art, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listGroups(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	groups, err := s.db.ListGroups(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(groups, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getArticleContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(ArticleFormatContract), nil
}

func (s *Server) readArticleFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "gitpress://article-format",
			MIMEType: "text/markdown",
			Text:     ArticleFormatContract,
		},
	}, nil
}
