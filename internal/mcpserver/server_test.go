package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/veilchen/gitpress/internal/gitrepo"
	"github.com/veilchen/gitpress/internal/store"
	"github.com/veilchen/gitpress/internal/testutil"
)

func testServer(t *testing.T) *Server {
	t.Helper()

	db := testutil.TestDB(t)

	when := time.Date(2021, 3, 1, 10, 0, 0, 0, time.UTC)
	entries := []gitrepo.Entry{
		{
			Kind: gitrepo.KindGroupMetadata, Change: gitrepo.ChangeAdded,
			Group: "blog", Time: when,
			Content: "public = true\n\n[author]\nname = \"Alice\"\n",
		},
		{
			Kind: gitrepo.KindArticle, Change: gitrepo.ChangeAdded,
			Group: "blog", Name: "hello.md", Time: when,
			Content: testutil.ArticleSource("Hello", "2021-03-01", "body text"),
		},
	}
	if err := db.Apply(context.Background(), entries, store.Incremental); err != nil {
		t.Fatal(err)
	}

	return New(db)
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so the handler functions
	// are invoked directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_articles":
		result, err = srv.listArticles(ctx, req)
	case "read_article":
		result, err = srv.readArticle(ctx, req)
	case "list_groups":
		result, err = srv.listGroups(ctx, req)
	case "get_article_contract":
		result, err = srv.getArticleContract(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestListArticlesTool(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "list_articles", map[string]interface{}{})
	var items []map[string]any
	if err := json.Unmarshal([]byte(resultText(r)), &items); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(items) != 1 || items[0]["slug"] != "hello" {
		t.Errorf("items = %+v", items)
	}
}

func TestReadArticleTool(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "read_article", map[string]interface{}{"slug": "hello"})
	text := resultText(r)
	if !strings.Contains(text, "Hello") || !strings.Contains(text, "body text") {
		t.Errorf("read result = %q", text)
	}
}

func TestReadArticleMissing(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "read_article", map[string]interface{}{"slug": "nope"})
	if !r.IsError {
		t.Error("expected error for missing article")
	}
}

func TestListGroupsTool(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "list_groups", map[string]interface{}{})
	var groups []map[string]any
	if err := json.Unmarshal([]byte(resultText(r)), &groups); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(groups) != 1 || groups[0]["path"] != "blog" {
		t.Errorf("groups = %+v", groups)
	}
}

func TestGetArticleContract(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "get_article_contract", map[string]interface{}{})
	text := resultText(r)
	if !strings.Contains(text, "+++") || !strings.Contains(text, "title") {
		t.Error("contract missing required sections")
	}
}
