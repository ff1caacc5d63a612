// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/olegiv/oblog/internal/cache"
	"github.com/olegiv/oblog/internal/middleware"
	"github.com/olegiv/oblog/internal/model"
	"github.com/olegiv/oblog/internal/version"
)

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

// failingCache rejects every write.
type failingCache struct{ cache.Cache }

func (failingCache) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("connection refused")
}

func newHealthCache(t *testing.T) cache.Cache {
	t.Helper()
	c := cache.NewMemoryCache(cache.MemoryCacheOptions{DefaultTTL: time.Minute})
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func doHealth(t *testing.T, h *HealthHandler, actor model.Actor, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req = req.WithContext(middleware.WithActor(req.Context(), actor))
	w := httptest.NewRecorder()
	h.Health(w, req)

	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q; want application/json", ct)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	return w, body
}

var superuser = model.Actor{ID: 1, Username: "root", IsSuperuser: true, IsAuthenticated: true}

func TestHealth_Public(t *testing.T) {
	h := NewHealthHandler(stubPinger{}, newHealthCache(t), version.Info{})

	w, body := doHealth(t, h, model.Anonymous(), "/health")
	if w.Code != http.StatusOK {
		t.Errorf("status code = %d; want %d", w.Code, http.StatusOK)
	}
	if body["status"] != StatusHealthy {
		t.Errorf("status = %v; want %s", body["status"], StatusHealthy)
	}
	for _, field := range []string{"checks", "uptime", "version"} {
		if _, ok := body[field]; ok {
			t.Errorf("public response should not contain %q", field)
		}
	}
}

func TestHealth_SuperuserDetails(t *testing.T) {
	h := NewHealthHandler(stubPinger{}, newHealthCache(t), version.Info{Version: "v1.2.3"})

	_, body := doHealth(t, h, superuser, "/health?verbose=true")
	if body["version"] != "v1.2.3" {
		t.Errorf("version = %v; want v1.2.3", body["version"])
	}
	checks, ok := body["checks"].(map[string]any)
	if !ok {
		t.Fatalf("checks missing: %v", body)
	}
	for _, name := range []string{"database", "cache"} {
		check, _ := checks[name].(map[string]any)
		if check["status"] != StatusHealthy {
			t.Errorf("%s check = %v; want healthy", name, check)
		}
	}
	if _, ok := body["system"]; !ok {
		t.Error("verbose response should include system info")
	}
	if _, ok := body["cache"]; !ok {
		t.Error("memory cache stats should be included")
	}
}

func TestHealth_DatabaseDown(t *testing.T) {
	h := NewHealthHandler(stubPinger{err: errors.New("disk I/O error")}, nil, version.Info{})

	w, body := doHealth(t, h, model.Anonymous(), "/health")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status code = %d; want %d", w.Code, http.StatusServiceUnavailable)
	}
	if body["status"] != StatusUnhealthy {
		t.Errorf("status = %v; want %s", body["status"], StatusUnhealthy)
	}
}

func TestHealth_CacheDownDegrades(t *testing.T) {
	h := NewHealthHandler(stubPinger{}, failingCache{newHealthCache(t)}, version.Info{})

	w, body := doHealth(t, h, superuser, "/health")
	if w.Code != http.StatusOK {
		t.Errorf("status code = %d; want %d", w.Code, http.StatusOK)
	}
	if body["status"] != StatusDegraded {
		t.Errorf("status = %v; want %s", body["status"], StatusDegraded)
	}
}

func TestReadiness(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		actor    model.Actor
		wantCode int
		wantMsg  bool
	}{
		{"ready", nil, model.Anonymous(), http.StatusOK, false},
		{"not ready public", errors.New("locked"), model.Anonymous(), http.StatusServiceUnavailable, false},
		{"not ready superuser", errors.New("locked"), superuser, http.StatusServiceUnavailable, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(stubPinger{err: tt.err}, nil, version.Info{})
			req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
			req = req.WithContext(middleware.WithActor(req.Context(), tt.actor))
			w := httptest.NewRecorder()
			h.Readiness(w, req)

			if w.Code != tt.wantCode {
				t.Errorf("status code = %d; want %d", w.Code, tt.wantCode)
			}
			var body map[string]string
			_ = json.Unmarshal(w.Body.Bytes(), &body)
			if _, ok := body["message"]; ok != tt.wantMsg {
				t.Errorf("message present = %v; want %v", ok, tt.wantMsg)
			}
		})
	}
}

func TestLiveness(t *testing.T) {
	h := NewHealthHandler(stubPinger{err: errors.New("down")}, nil, version.Info{})
	w := httptest.NewRecorder()
	h.Liveness(w, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	if w.Code != http.StatusOK {
		t.Errorf("status code = %d; want %d", w.Code, http.StatusOK)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   uint64
		want string
	}{
		{512, "512 B"},
		{2048, "2.00 KB"},
		{5 * 1024 * 1024, "5.00 MB"},
		{3 * 1024 * 1024 * 1024, "3.00 GB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.in); got != tt.want {
			t.Errorf("formatBytes(%d) = %q; want %q", tt.in, got, tt.want)
		}
	}
}
