// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/olegiv/oblog/internal/middleware"
)

// Route patterns relative to /api/v1.
const (
	RouteStatus           = "/status"
	RouteMe               = "/me"
	RoutePosts            = "/posts"
	RoutePostsPopular     = "/posts/popular"
	RoutePost             = "/posts/{post}"
	RoutePostComments     = "/posts/{post}/comments"
	RouteCommentsModerate = "/comments:moderate"
	RouteCommentsPending  = "/comments/pending"
	RouteComment          = "/comments/{id}"
	RouteMyPosts          = "/me/posts"
	RouteMyComments       = "/me/comments"
	RouteCategories       = "/categories"
	RouteCategory         = "/categories/{id}"
	RouteTags             = "/tags"
	RouteTag              = "/tags/{id}"
)

// RouterConfig configures the API routes.
type RouterConfig struct {
	// RateLimit is the sustained requests per second per actor or client IP.
	// Zero disables rate limiting.
	RateLimit float64
	RateBurst int
}

// Register mounts the API routes on r. Identity middleware must run before
// r so handlers see the request actor.
func Register(r chi.Router, h *Handler, cfg RouterConfig) {
	if cfg.RateLimit > 0 {
		r.Use(middleware.NewRateLimiter(cfg.RateLimit, cfg.RateBurst).Middleware())
	}

	// Public reads. Drafts and unapproved comments are filtered by actor.
	r.Get(RouteStatus, h.Status)
	r.Get(RouteMe, h.Me)
	r.Get(RoutePosts, h.ListPosts)
	r.Get(RoutePostsPopular, h.PopularPosts)
	r.Get(RoutePost, h.GetPost)
	r.Get(RoutePostComments, h.ListComments)
	r.Get(RouteCategories, h.ListCategories)
	r.Get(RouteCategory, h.GetCategory)
	r.Get(RouteTags, h.ListTags)

	// Writes and personal listings require an identity.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)

		r.Post(RoutePosts, h.CreatePost)
		r.Patch(RoutePost, h.UpdatePost)
		r.Delete(RoutePost, h.DeletePost)
		r.Post(RoutePostComments, h.SubmitComment)
		r.Get(RouteMyPosts, h.ListMyPosts)
		r.Get(RouteMyComments, h.ListMyComments)

		// Moderation and taxonomy writes are superuser operations; the
		// services enforce that too, this only short-circuits.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireSuperuser)

			r.Post(RouteCommentsModerate, h.ModerateComments)
			r.Get(RouteCommentsPending, h.ListPendingComments)
			r.Delete(RouteComment, h.DeleteComment)
			r.Post(RouteCategories, h.CreateCategory)
			r.Patch(RouteCategory, h.UpdateCategory)
			r.Delete(RouteCategory, h.DeleteCategory)
			r.Delete(RouteTag, h.DeleteTag)
		})
	})
}
