// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mileusna/useragent"

	"github.com/olegiv/oblog/internal/middleware"
	"github.com/olegiv/oblog/internal/service"
)

// ListPosts handles GET /api/v1/posts.
// Query parameters: status, category, tag, q, author, include_content, page, per_page.
func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	h.listPosts(w, r, false)
}

// ListMyPosts handles GET /api/v1/me/posts. It lists the caller's own posts
// of every status unless one is given.
func (h *Handler) ListMyPosts(w http.ResponseWriter, r *http.Request) {
	h.listPosts(w, r, true)
}

func (h *Handler) listPosts(w http.ResponseWriter, r *http.Request, mine bool) {
	qp := newQueryParser(r)
	filters := service.ListFilters{
		Status:         qp.str("status"),
		CategoryID:     qp.num64("category"),
		TagName:        qp.str("tag"),
		FreeText:       qp.str("q"),
		AuthorID:       qp.num64("author"),
		IncludeContent: qp.flag("include_content"),
		Mine:           mine,
	}
	req := qp.pageRequest()
	if !qp.done(w) {
		return
	}

	page, err := h.svc.Posts.ListPosts(r.Context(), filters, req, middleware.GetActor(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WritePage(w, page)
}

// PopularPosts handles GET /api/v1/posts/popular.
// Query parameters: n (number of posts, defaults to the configured limit).
func (h *Handler) PopularPosts(w http.ResponseWriter, r *http.Request) {
	qp := newQueryParser(r)
	n := qp.num("n")
	if !qp.done(w) {
		return
	}

	posts, err := h.svc.Popular.Top(r.Context(), n)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, posts, nil)
}

// GetPost handles GET /api/v1/posts/{post} where {post} is a slug.
// Reads by crawlers do not count as views.
func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "post")

	var opts []service.ReadOption
	if isBot(r) {
		opts = append(opts, service.WithoutViewCount())
	}

	post, err := h.svc.Posts.GetPost(r.Context(), slug, middleware.GetActor(r), opts...)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, post, nil)
}

// CreatePost handles POST /api/v1/posts.
func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	var in service.PostInput
	if !decodeJSON(w, r, &in) {
		return
	}

	post, err := h.svc.Posts.CreatePost(r.Context(), in, middleware.GetActor(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteCreated(w, post)
}

// UpdatePost handles PATCH /api/v1/posts/{post} where {post} is an id.
func (h *Handler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "post")
	if !ok {
		return
	}

	var patch service.PostPatch
	if !decodeJSON(w, r, &patch) {
		return
	}

	post, err := h.svc.Posts.UpdatePost(r.Context(), id, patch, middleware.GetActor(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, post, nil)
}

// DeletePost handles DELETE /api/v1/posts/{post} where {post} is an id.
func (h *Handler) DeletePost(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "post")
	if !ok {
		return
	}

	if err := h.svc.Posts.DeletePost(r.Context(), id, middleware.GetActor(r)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// isBot reports whether the request comes from a crawler or has no user agent.
func isBot(r *http.Request) bool {
	raw := r.UserAgent()
	if raw == "" {
		return true
	}
	return useragent.Parse(raw).Bot
}
