package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/oblog/internal/cache"
	"github.com/olegiv/oblog/internal/config"
	"github.com/olegiv/oblog/internal/events"
	"github.com/olegiv/oblog/internal/middleware"
	"github.com/olegiv/oblog/internal/service"
	"github.com/olegiv/oblog/internal/store"
	"github.com/olegiv/oblog/internal/version"
)

const testSecret = "test-Secret-key-32-bytes-long!!!"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	db, err := store.NewDB(filepath.Join(t.TempDir(), "oblog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, store.Migrate(db))
	require.NoError(t, store.Seed(t.Context(), db, false))

	mc := cache.NewMemoryCache(cache.MemoryCacheOptions{DefaultTTL: time.Minute})
	t.Cleanup(func() { _ = mc.Close() })

	st := store.NewStore(db)
	svc := service.New(service.Deps{Store: st, Cache: mc, Events: &events.Recorder{}})
	cfg := &config.Config{
		Env:            "development",
		JWTSecret:      testSecret,
		APIRateLimit:   100,
		APIRateBurst:   100,
		RequestTimeout: 5,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	srv := httptest.NewServer(newRouter(cfg, logger, st, mc, svc, version.Info{Version: "test"}))
	t.Cleanup(srv.Close)
	return srv
}

func bearer(t *testing.T, sub string, superuser bool) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, middleware.Claims{
		Username:  "writer",
		Superuser: superuser,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + tok
}

func send(t *testing.T, srv *httptest.Server, method, path, auth string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequestWithContext(t.Context(), method, srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64; rv:120.0) Gecko/20100101 Firefox/120.0")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestRouterHealth(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/health", "/health/live", "/health/ready"} {
		resp := send(t, srv, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}

func TestRouterStatus(t *testing.T) {
	srv := newTestServer(t)

	resp := send(t, srv, http.MethodGet, "/api/v1/status", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
}

func TestRouterNotFound(t *testing.T) {
	srv := newTestServer(t)

	resp := send(t, srv, http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

func TestRouterJWTWriteFlow(t *testing.T) {
	srv := newTestServer(t)

	resp := send(t, srv, http.MethodPost, "/api/v1/posts", "", map[string]any{"title": "Nope"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = send(t, srv, http.MethodPost, "/api/v1/posts", "Bearer not-a-token", map[string]any{"title": "Nope"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = send(t, srv, http.MethodPost, "/api/v1/posts", bearer(t, "7", false),
		map[string]any{"title": "Via token", "status": "published"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = send(t, srv, http.MethodGet, "/api/v1/posts/via-token", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Data service.PostDetail `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, int64(7), body.Data.AuthorID)
	assert.Equal(t, "writer", body.Data.AuthorName)
	assert.EqualValues(t, 1, body.Data.Views)

	resp = send(t, srv, http.MethodGet, "/api/v1/categories", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var cats struct {
		Data []service.Category `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&cats))
	require.NotEmpty(t, cats.Data)
	assert.Equal(t, "General", cats.Data[0].Name)
}
