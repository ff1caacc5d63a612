// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"
)

// gzipWriterPool pools gzip.Writer instances to reduce allocations.
var gzipWriterPool = sync.Pool{
	New: func() any {
		return gzip.NewWriter(io.Discard)
	},
}

// CompressJSON gzip-compresses JSON response bodies of at least minSize bytes
// for clients that accept gzip. Smaller or non-JSON bodies pass through as is.
func CompressJSON(minSize int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
				next.ServeHTTP(w, r)
				return
			}

			bw := &bufferedWriter{ResponseWriter: w, minSize: minSize}
			next.ServeHTTP(bw, r)
			bw.flush()
		})
	}
}

// bufferedWriter holds the response until the handler returns, then decides
// whether to compress it.
type bufferedWriter struct {
	http.ResponseWriter
	minSize    int
	buffer     []byte
	statusCode int
}

func (bw *bufferedWriter) WriteHeader(statusCode int) {
	if bw.statusCode == 0 {
		bw.statusCode = statusCode
	}
}

func (bw *bufferedWriter) Write(b []byte) (int, error) {
	bw.buffer = append(bw.buffer, b...)
	return len(b), nil
}

func (bw *bufferedWriter) flush() {
	h := bw.Header()
	compress := len(bw.buffer) >= bw.minSize && isJSON(h.Get("Content-Type"))
	if compress {
		h.Set("Content-Encoding", "gzip")
		h.Add("Vary", "Accept-Encoding")
		h.Del("Content-Length")
	}

	if bw.statusCode != 0 {
		bw.ResponseWriter.WriteHeader(bw.statusCode)
	}
	if len(bw.buffer) == 0 {
		return
	}

	if !compress {
		_, _ = bw.ResponseWriter.Write(bw.buffer)
		return
	}

	gz := gzipWriterPool.Get().(*gzip.Writer)
	gz.Reset(bw.ResponseWriter)
	_, _ = gz.Write(bw.buffer)
	_ = gz.Close()
	gzipWriterPool.Put(gz)
}

func isJSON(contentType string) bool {
	if idx := strings.Index(contentType, ";"); idx != -1 {
		contentType = contentType[:idx]
	}
	return strings.EqualFold(strings.TrimSpace(contentType), "application/json")
}
