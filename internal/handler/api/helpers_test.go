package api

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/mattn/go-sqlite3"

	"github.com/olegiv/oblog/internal/cache"
	"github.com/olegiv/oblog/internal/events"
	"github.com/olegiv/oblog/internal/middleware"
	"github.com/olegiv/oblog/internal/model"
	"github.com/olegiv/oblog/internal/service"
	"github.com/olegiv/oblog/internal/store"
	"github.com/olegiv/oblog/internal/version"
)

const browserUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

var (
	alice = model.Actor{ID: 1, Username: "alice", IsAuthenticated: true}
	bob   = model.Actor{ID: 2, Username: "bob", IsAuthenticated: true}
	admin = model.Actor{ID: 99, Username: "admin", IsSuperuser: true, IsAuthenticated: true}
	anon  = model.Anonymous()
)

type apiEnv struct {
	t        *testing.T
	router   http.Handler
	svc      *service.Services
	recorder *events.Recorder
}

// newAPIEnv serves the API over a fresh SQLite file opened with the
// mattn/go-sqlite3 driver. Identity comes from the trusted headers.
func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "api.db") + "?_foreign_keys=1&_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := store.Migrate(db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	st := store.NewStore(db)
	mc := cache.NewMemoryCache(cache.MemoryCacheOptions{DefaultTTL: time.Minute})
	t.Cleanup(func() { _ = mc.Close() })
	rec := &events.Recorder{}

	svc := service.New(service.Deps{
		Store:   st,
		Cache:   mc,
		Events:  rec,
		Options: service.DefaultOptions(),
	})
	h := NewHandler(svc, versionForTest)

	return &apiEnv{t: t, router: newRouterForTest(h, RouterConfig{}), svc: svc, recorder: rec}
}

var versionForTest = version.Info{Version: "v0.1.0"}

func newRouterForTest(h *Handler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.HeaderIdentity())
	r.Route("/api/v1", func(r chi.Router) {
		Register(r, h, cfg)
	})
	return r
}

// do sends a request as actor with a browser user agent. A non-nil body is
// encoded as JSON unless it is already a string.
func (e *apiEnv) do(method, path string, actor model.Actor, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	return e.doUA(method, path, actor, body, browserUA)
}

func (e *apiEnv) doUA(method, path string, actor model.Actor, body any, ua string) *httptest.ResponseRecorder {
	e.t.Helper()

	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			e.t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, "/api/v1"+path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", ua)
	if actor.Known() {
		req.Header.Set(middleware.HeaderUserID, strconv.FormatInt(actor.ID, 10))
		req.Header.Set(middleware.HeaderUsername, actor.Username)
		req.Header.Set(middleware.HeaderSuperuser, strconv.FormatBool(actor.IsSuperuser))
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// createPost creates a post through the API and returns it.
func (e *apiEnv) createPost(actor model.Actor, in map[string]any) model.Post {
	e.t.Helper()
	w := e.do(http.MethodPost, RoutePosts, actor, in)
	if w.Code != http.StatusCreated {
		e.t.Fatalf("create post: status = %d, want %d (body: %s)", w.Code, http.StatusCreated, w.Body.String())
	}
	var post model.Post
	decodeData(e.t, w, &post)
	return post
}

func (e *apiEnv) publishedPost(actor model.Actor, title string) model.Post {
	e.t.Helper()
	return e.createPost(actor, map[string]any{"title": title, "content": "Body of " + title, "status": "published"})
}

// decodeData unmarshals the data member of a success envelope into v and
// returns the meta member.
func decodeData(t *testing.T, w *httptest.ResponseRecorder, v any) *Meta {
	t.Helper()
	var env struct {
		Data json.RawMessage `json:"data"`
		Meta *Meta           `json:"meta"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (body: %s)", err, w.Body.String())
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		t.Fatalf("decode data: %v (data: %s)", err, env.Data)
	}
	return env.Meta
}

// assertStatusCode checks that the response has the expected status code.
func assertStatusCode(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("status = %d, want %d (body: %s)", w.Code, expected, w.Body.String())
	}
}

// assertErrorResponse unmarshals and validates an error response.
func assertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedCode string) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error response: %v (body: %s)", err, w.Body.String())
	}
	if resp.Error.Code != expectedCode {
		t.Errorf("error code = %q, want %q", resp.Error.Code, expectedCode)
	}
	return resp
}

func postPath(id int64) string {
	return RoutePosts + "/" + strconv.FormatInt(id, 10)
}
