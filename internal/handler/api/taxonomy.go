// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"

	"github.com/olegiv/oblog/internal/middleware"
	"github.com/olegiv/oblog/internal/service"
)

// ListCategories handles GET /api/v1/categories.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.svc.Taxonomy.ListCategories(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, categories, nil)
}

// GetCategory handles GET /api/v1/categories/{id}.
func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	category, err := h.svc.Taxonomy.GetCategory(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, category, nil)
}

// CreateCategory handles POST /api/v1/categories.
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var in service.CategoryInput
	if !decodeJSON(w, r, &in) {
		return
	}

	category, err := h.svc.Taxonomy.CreateCategory(r.Context(), in, middleware.GetActor(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteCreated(w, category)
}

// UpdateCategory handles PATCH /api/v1/categories/{id}.
func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	var in service.CategoryInput
	if !decodeJSON(w, r, &in) {
		return
	}

	category, err := h.svc.Taxonomy.UpdateCategory(r.Context(), id, in, middleware.GetActor(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, category, nil)
}

// DeleteCategory handles DELETE /api/v1/categories/{id}.
// Posts in the category become uncategorized.
func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.svc.Taxonomy.DeleteCategory(r.Context(), id, middleware.GetActor(r)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListTags handles GET /api/v1/tags.
func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.svc.Taxonomy.ListTags(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, tags, nil)
}

// DeleteTag handles DELETE /api/v1/tags/{id}.
func (h *Handler) DeleteTag(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.svc.Taxonomy.DeleteTag(r.Context(), id, middleware.GetActor(r)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
