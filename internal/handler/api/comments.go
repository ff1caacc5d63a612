// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"

	"github.com/olegiv/oblog/internal/middleware"
	"github.com/olegiv/oblog/internal/service"
)

// ListComments handles GET /api/v1/posts/{post}/comments where {post} is an id.
func (h *Handler) ListComments(w http.ResponseWriter, r *http.Request) {
	postID, ok := parseIDParam(w, r, "post")
	if !ok {
		return
	}

	comments, err := h.svc.Comments.ListVisibleComments(r.Context(), postID, middleware.GetActor(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, comments, nil)
}

// SubmitComment handles POST /api/v1/posts/{post}/comments where {post} is an id.
// New comments wait for moderation.
func (h *Handler) SubmitComment(w http.ResponseWriter, r *http.Request) {
	postID, ok := parseIDParam(w, r, "post")
	if !ok {
		return
	}

	var in service.CommentInput
	if !decodeJSON(w, r, &in) {
		return
	}

	comment, err := h.svc.Comments.SubmitComment(r.Context(), postID, in, middleware.GetActor(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteCreated(w, comment)
}

// ModerateComments handles POST /api/v1/comments:moderate.
func (h *Handler) ModerateComments(w http.ResponseWriter, r *http.Request) {
	var in service.ModerationInput
	if !decodeJSON(w, r, &in) {
		return
	}

	result, err := h.svc.Comments.ModerateComments(r.Context(), in, middleware.GetActor(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, result, nil)
}

// ListPendingComments handles GET /api/v1/comments/pending.
func (h *Handler) ListPendingComments(w http.ResponseWriter, r *http.Request) {
	qp := newQueryParser(r)
	req := qp.pageRequest()
	if !qp.done(w) {
		return
	}

	page, err := h.svc.Comments.ListPendingComments(r.Context(), req, middleware.GetActor(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WritePage(w, page)
}

// DeleteComment handles DELETE /api/v1/comments/{id}.
func (h *Handler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.svc.Comments.DeleteComment(r.Context(), id, middleware.GetActor(r)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListMyComments handles GET /api/v1/me/comments.
func (h *Handler) ListMyComments(w http.ResponseWriter, r *http.Request) {
	comments, err := h.svc.Comments.ListMyComments(r.Context(), middleware.GetActor(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, comments, nil)
}
