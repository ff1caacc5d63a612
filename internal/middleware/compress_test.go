package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func jsonHandler(status int, body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})
}

func TestCompressJSON(t *testing.T) {
	large := `{"data":"` + strings.Repeat("a", 2048) + `"}`

	tests := []struct {
		name           string
		acceptEncoding string
		body           string
		wantGzip       bool
	}{
		{"large body with gzip", "gzip, deflate", large, true},
		{"small body stays plain", "gzip", `{"data":1}`, false},
		{"client without gzip", "", large, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.acceptEncoding != "" {
				req.Header.Set("Accept-Encoding", tt.acceptEncoding)
			}
			rec := httptest.NewRecorder()

			CompressJSON(1024)(jsonHandler(http.StatusCreated, tt.body)).ServeHTTP(rec, req)

			if rec.Code != http.StatusCreated {
				t.Errorf("Status = %d, want %d", rec.Code, http.StatusCreated)
			}

			gotGzip := rec.Header().Get("Content-Encoding") == "gzip"
			if gotGzip != tt.wantGzip {
				t.Fatalf("gzip = %v, want %v", gotGzip, tt.wantGzip)
			}

			body := rec.Body.String()
			if gotGzip {
				zr, err := gzip.NewReader(rec.Body)
				if err != nil {
					t.Fatalf("gzip.NewReader: %v", err)
				}
				raw, err := io.ReadAll(zr)
				if err != nil {
					t.Fatalf("read gzip body: %v", err)
				}
				body = string(raw)
			}
			if body != tt.body {
				t.Errorf("body mismatch: got %d bytes, want %d", len(body), len(tt.body))
			}
		})
	}
}

func TestCompressJSONSkipsOtherContentTypes(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(strings.Repeat("x", 4096)))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()

	CompressJSON(1024)(handler).ServeHTTP(rec, req)

	if rec.Header().Get("Content-Encoding") != "" {
		t.Error("text/plain response should not be compressed")
	}
	if rec.Body.Len() != 4096 {
		t.Errorf("body length = %d, want 4096", rec.Body.Len())
	}
}

func TestCompressJSONNoContent(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodDelete, "/", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()

	CompressJSON(0)(handler).ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("Status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	if rec.Header().Get("Content-Encoding") != "" {
		t.Error("empty response should not be compressed")
	}
}
