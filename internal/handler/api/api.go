// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package api provides the REST API handlers of the blog engine.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/oblog/internal/middleware"
	"github.com/olegiv/oblog/internal/service"
	"github.com/olegiv/oblog/internal/version"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Handler holds shared dependencies for all API handlers.
type Handler struct {
	svc       *service.Services
	version   version.Info
	startTime time.Time
}

// NewHandler creates a new API handler.
func NewHandler(svc *service.Services, v version.Info) *Handler {
	return &Handler{
		svc:       svc,
		version:   v,
		startTime: time.Now(),
	}
}

// Response is the standard API response wrapper.
type Response struct {
	Data any   `json:"data"`
	Meta *Meta `json:"meta,omitempty"`
}

// Meta contains pagination metadata.
type Meta struct {
	Total   int64 `json:"total"`
	Page    int   `json:"page"`
	PerPage int   `json:"per_page"`
	Pages   int   `json:"pages"`
}

// ErrorResponse is the standard API error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information.
type ErrorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes a successful JSON response.
func WriteSuccess(w http.ResponseWriter, data any, meta *Meta) {
	WriteJSON(w, http.StatusOK, Response{Data: data, Meta: meta})
}

// WriteCreated writes a 201 Created JSON response.
func WriteCreated(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusCreated, Response{Data: data})
}

// WritePage writes one page of a listing with its pagination metadata.
func WritePage[T any](w http.ResponseWriter, page service.Page[T]) {
	WriteSuccess(w, page.Items, &Meta{
		Total:   page.TotalCount,
		Page:    page.Page,
		PerPage: page.PerPage,
		Pages:   page.PageCount,
	})
}

// WriteError writes an error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, code, message string, details map[string]string) {
	WriteJSON(w, statusCode, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// WriteBadRequest writes a 400 Bad Request response.
func WriteBadRequest(w http.ResponseWriter, message string, details map[string]string) {
	WriteError(w, http.StatusBadRequest, "bad_request", message, details)
}

// WriteValidationError writes a 422 Unprocessable Entity response with field errors.
func WriteValidationError(w http.ResponseWriter, fieldErrors map[string]string) {
	WriteError(w, http.StatusUnprocessableEntity, string(service.KindValidation), "Validation failed", fieldErrors)
}

// WriteInternalError writes a 500 Internal Server Error response.
func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, "internal_error", message, nil)
}

// statusForKind maps service error kinds to HTTP status codes.
var statusForKind = map[service.Kind]int{
	service.KindValidation:   http.StatusUnprocessableEntity,
	service.KindForbidden:    http.StatusForbidden,
	service.KindNotFound:     http.StatusNotFound,
	service.KindInvalidState: http.StatusConflict,
	service.KindConflict:     http.StatusConflict,
}

// writeServiceError reports err to the client. Service errors keep their
// kind as the error code; anything else is logged and hidden behind a 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var se *service.Error
	if errors.As(err, &se) {
		if status, ok := statusForKind[se.Kind]; ok {
			WriteError(w, status, string(se.Kind), se.Message, se.Fields)
			return
		}
	}
	slog.ErrorContext(r.Context(), "api request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	WriteInternalError(w, "Internal server error")
}

// decodeJSON reads a JSON body into v. Unknown fields are rejected and a
// response has been written when it returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			WriteError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "Request body too large", nil)
		case errors.Is(err, io.EOF):
			WriteBadRequest(w, "Request body is required", nil)
		default:
			WriteBadRequest(w, "Invalid JSON: "+err.Error(), nil)
		}
		return false
	}
	return true
}

// parseIDParam parses a positive integer URL parameter.
func parseIDParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		WriteBadRequest(w, "Invalid "+name+" ID", nil)
		return 0, false
	}
	return id, true
}

// queryParser collects malformed query parameters into one validation error.
type queryParser struct {
	r      *http.Request
	errors map[string]string
}

func newQueryParser(r *http.Request) *queryParser {
	return &queryParser{r: r, errors: map[string]string{}}
}

func (p *queryParser) str(name string) string {
	return strings.TrimSpace(p.r.URL.Query().Get(name))
}

func (p *queryParser) num64(name string) int64 {
	raw := p.str(name)
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		p.errors[name] = "must be a non-negative integer"
		return 0
	}
	return v
}

func (p *queryParser) num(name string) int {
	return int(p.num64(name))
}

func (p *queryParser) flag(name string) bool {
	raw := p.str(name)
	if raw == "" {
		return false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		p.errors[name] = "must be true or false"
	}
	return v
}

func (p *queryParser) pageRequest() service.PageRequest {
	return service.PageRequest{Page: p.num("page"), PerPage: p.num("per_page")}
}

// done writes a validation error and returns false if any parameter was malformed.
func (p *queryParser) done(w http.ResponseWriter) bool {
	if len(p.errors) > 0 {
		WriteValidationError(w, p.errors)
		return false
	}
	return true
}

// StatusResponse contains API status information.
type StatusResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Build   string `json:"build,omitempty"`
	Uptime  string `json:"uptime"`
}

// Status returns the API status.
func (h *Handler) Status(w http.ResponseWriter, _ *http.Request) {
	WriteSuccess(w, StatusResponse{
		Status:  "ok",
		Version: "v1",
		Build:   h.version.String(),
		Uptime:  time.Since(h.startTime).Round(time.Second).String(),
	}, nil)
}

// Me returns the identity the request was made with.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, middleware.GetActor(r), nil)
}
