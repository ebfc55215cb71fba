package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-git/go-git/v5/plumbing"

	"github.com/veilchen/gitpress/internal/hook"
	"github.com/veilchen/gitpress/internal/store"
	"github.com/veilchen/gitpress/internal/syncer"
	"github.com/veilchen/gitpress/internal/testutil"
)

var (
	t1 = time.Date(2021, 3, 1, 10, 0, 0, 0, time.UTC)
	t2 = time.Date(2021, 3, 2, 10, 0, 0, 0, time.UTC)
)

// testEnv sets up a scratch repository, SQLite store, sync service, and
// router. authToken empty means disabled mode.
func testEnv(t *testing.T, authToken string) (*testutil.RepoFixture, *store.DB, http.Handler) {
	t.Helper()
	f := testutil.NewRepoFixture(t)
	db := testutil.TestDB(t)
	svc := syncer.NewService(f.Repo, db, "master", nil)
	router := NewRouter(svc, db, authToken != "", authToken, nil)
	return f, db, router
}

func postJSON(t *testing.T, router http.Handler, path string, v any) *httptest.ResponseRecorder {
	t.Helper()
	body, _ := json.Marshal(v)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func pushPayload(before, after string) hook.PushPayload {
	return hook.PushPayload{Ref: "refs/heads/master", Before: before, After: after}
}

func TestPushSync_EndToEnd(t *testing.T) {
	f, db, router := testEnv(t, "")

	a := f.Commit(t, "first", t1, map[string]string{
		"grp/.group.toml": "public = true\n",
		"grp/old.md":      testutil.ArticleSource("Old", "2021-03-01", "old body"),
	}, nil)

	// Initial sync of commit A.
	w := postJSON(t, router, "/hooks/push", pushPayload(hook.ZeroID, a))
	if w.Code != http.StatusOK {
		t.Fatalf("initial push = %d, body = %s", w.Code, w.Body.String())
	}
	if _, err := db.GetArticle(context.Background(), "old"); err != nil {
		t.Fatalf("old article missing after initial sync: %v", err)
	}

	// Commit B adds post.md and removes old.md; incremental sync nets one
	// upsert and one removal.
	b := f.Commit(t, "second", t2, map[string]string{
		"grp/post.md": testutil.ArticleSource("Post", "2021-03-02", "new body"),
	}, []string{"grp/old.md"})

	w = postJSON(t, router, "/hooks/push", pushPayload(a, b))
	if w.Code != http.StatusOK {
		t.Fatalf("incremental push = %d, body = %s", w.Code, w.Body.String())
	}
	var res syncer.Result
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if res.Entries != 2 {
		t.Errorf("entries = %d, want 2", res.Entries)
	}

	if _, err := db.GetArticle(context.Background(), "post"); err != nil {
		t.Errorf("post article missing: %v", err)
	}
	if _, err := db.GetArticle(context.Background(), "old"); err == nil {
		t.Error("old article survived removal")
	}
}

func TestPushSync_BadContentRollsBack(t *testing.T) {
	f, db, router := testEnv(t, "")

	a := f.Commit(t, "first", t1, map[string]string{
		"grp/ok.md": testutil.ArticleSource("OK", "2021-03-01", "fine"),
	}, nil)
	w := postJSON(t, router, "/hooks/push", pushPayload(hook.ZeroID, a))
	if w.Code != http.StatusOK {
		t.Fatalf("initial push = %d", w.Code)
	}

	// The broken article fails the transaction; the good one in the same
	// push must not land either.
	b := f.Commit(t, "second", t2, map[string]string{
		"grp/good.md": testutil.ArticleSource("Good", "2021-03-02", "fine"),
		"grp/bad.md":  "no front matter at all",
	}, nil)

	w = postJSON(t, router, "/hooks/push", pushPayload(a, b))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("push with bad content = %d, want 400", w.Code)
	}
	if _, err := db.GetArticle(context.Background(), "good"); err == nil {
		t.Error("good article persisted despite rollback")
	}
	if _, total, _ := db.ListArticles(context.Background(), 10, 0, "", ""); total != 1 {
		t.Errorf("total = %d, want 1 (only the pre-existing article)", total)
	}
}

func TestPush_IgnoredRef(t *testing.T) {
	f, _, router := testEnv(t, "")
	a := f.Commit(t, "first", t1, map[string]string{"grp/a.md": testutil.ArticleSource("A", "2021-03-01", "x")}, nil)

	w := postJSON(t, router, "/hooks/push", hook.PushPayload{Ref: "refs/heads/feature", Before: hook.ZeroID, After: a})
	if w.Code != http.StatusOK {
		t.Fatalf("ignored push = %d", w.Code)
	}
	var res syncer.Result
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if res.Kind != hook.KindIgnore {
		t.Errorf("kind = %v, want ignore", res.Kind)
	}
}

func TestPush_UnknownRevision(t *testing.T) {
	f, _, router := testEnv(t, "")
	f.Commit(t, "first", t1, map[string]string{"grp/a.md": testutil.ArticleSource("A", "2021-03-01", "x")}, nil)

	w := postJSON(t, router, "/hooks/push", pushPayload(hook.ZeroID, "deadbeefdeadbeefdeadbeefdeadbeefdeadbeef"))
	if w.Code != http.StatusNotFound {
		t.Errorf("push unknown revision = %d, want 404", w.Code)
	}
}

func TestPush_MissingFields(t *testing.T) {
	_, _, router := testEnv(t, "")

	w := postJSON(t, router, "/hooks/push", hook.PushPayload{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty payload = %d, want 400", w.Code)
	}
}

func TestRebuildEndpoint(t *testing.T) {
	f, db, router := testEnv(t, "")
	f.Commit(t, "first", t1, map[string]string{
		"grp/a.md": testutil.ArticleSource("A", "2021-03-01", "x"),
		"grp/b.md": testutil.ArticleSource("B", "2021-03-01", "y"),
	}, nil)

	w := postJSON(t, router, "/rebuild", map[string]string{})
	if w.Code != http.StatusOK {
		t.Fatalf("rebuild = %d, body = %s", w.Code, w.Body.String())
	}
	if _, total, _ := db.ListArticles(context.Background(), 10, 0, "", ""); total != 2 {
		t.Errorf("total = %d, want 2", total)
	}
}

func TestArchivePush(t *testing.T) {
	f, _, router := testEnv(t, "")
	head := f.Commit(t, "first", t1, map[string]string{
		"grp/a.md": testutil.ArticleSource("A", "2021-03-01", "x"),
	}, nil)

	w := postJSON(t, router, "/hooks/push", hook.PushPayload{
		Ref: "refs/tags/archive/2025-Q1", Before: hook.ZeroID, After: head,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("archive push = %d, body = %s", w.Code, w.Body.String())
	}
	var res syncer.Result
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if res.Branch != "archive/2025-Q1" {
		t.Errorf("branch = %q", res.Branch)
	}

	if _, err := f.Raw.Reference(plumbing.ReferenceName("refs/heads/archive/2025-Q1"), true); err != nil {
		t.Errorf("archive branch missing: %v", err)
	}
}

func TestReadEndpoints(t *testing.T) {
	f, _, router := testEnv(t, "")
	a := f.Commit(t, "first", t1, map[string]string{
		"grp/.group.toml": "public = true\n",
		"grp/hello.md": "+++\ntitle = \"Hello\"\nsummary = \"hi\"\ndatetime = \"2021-03-01\"\ntags = [\"intro\"]\n+++\nbody\n",
	}, nil)
	if w := postJSON(t, router, "/hooks/push", pushPayload(hook.ZeroID, a)); w.Code != http.StatusOK {
		t.Fatalf("push = %d", w.Code)
	}

	// Article detail.
	req := httptest.NewRequest(http.MethodGet, "/articles/hello", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("get article = %d", w.Code)
	}
	var art store.ArticleRow
	_ = json.Unmarshal(w.Body.Bytes(), &art)
	if art.Title != "Hello" || art.Group != "grp" {
		t.Errorf("article = %+v", art)
	}

	// Missing article.
	req = httptest.NewRequest(http.MethodGet, "/articles/nope", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing article = %d, want 404", w.Code)
	}

	// List with tag filter.
	req = httptest.NewRequest(http.MethodGet, "/articles?tag=intro", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("list = %d", w.Code)
	}
	var listResp map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &listResp)
	if total := listResp["total"].(float64); total != 1 {
		t.Errorf("total = %v, want 1", total)
	}

	// Tags and groups.
	for _, path := range []string{"/tags", "/groups"} {
		req = httptest.NewRequest(http.MethodGet, path, nil)
		w = httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("GET %s = %d", path, w.Code)
		}
	}
}

func TestAuthMiddleware_Modes(t *testing.T) {
	_, _, router := testEnv(t, "secret123")

	// Missing token.
	req := httptest.NewRequest(http.MethodGet, "/articles", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}

	// Wrong token.
	req = httptest.NewRequest(http.MethodGet, "/articles", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}

	// Valid token.
	req = httptest.NewRequest(http.MethodGet, "/articles", nil)
	req.Header.Set("Authorization", "Bearer secret123")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("authed = %d, want 200", w.Code)
	}
}
