// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package middleware provides HTTP middleware for request identity,
// authorization guards, rate limiting and request handling.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/olegiv/oblog/internal/logging"
	"github.com/olegiv/oblog/internal/model"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

// ContextKeyActor is the context key for the request actor.
const ContextKeyActor ContextKey = "actor"

// Identity headers set by a trusted upstream proxy.
const (
	HeaderUserID    = "X-User-ID"
	HeaderUsername  = "X-Username"
	HeaderSuperuser = "X-User-Superuser"
)

// WithActor returns a copy of ctx carrying actor.
func WithActor(ctx context.Context, actor model.Actor) context.Context {
	ctx = context.WithValue(ctx, ContextKeyActor, actor)
	if actor.Known() {
		ctx = logging.WithActor(ctx, actor.ID)
	}
	return ctx
}

// ActorFromContext returns the actor of the request, or an anonymous actor.
func ActorFromContext(ctx context.Context) model.Actor {
	actor, ok := ctx.Value(ContextKeyActor).(model.Actor)
	if !ok {
		return model.Anonymous()
	}
	return actor
}

// GetActor retrieves the actor from the request context.
func GetActor(r *http.Request) model.Actor {
	return ActorFromContext(r.Context())
}

// Claims are the JWT claims understood by JWTIdentity. The subject is the
// numeric user id.
type Claims struct {
	Username  string `json:"username"`
	Superuser bool   `json:"superuser"`
	jwt.RegisteredClaims
}

var errBadSubject = errors.New("token subject is not a user id")

// ParseToken validates an HS256 token and returns the actor it names.
func ParseToken(secret []byte, raw string) (model.Actor, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return model.Anonymous(), err
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return model.Anonymous(), errBadSubject
	}
	return model.Actor{
		ID:              id,
		Username:        claims.Username,
		IsSuperuser:     claims.Superuser,
		IsAuthenticated: true,
	}, nil
}

// JWTIdentity creates middleware that resolves the actor from a bearer
// token. Requests without a token pass through unchanged; a present but
// invalid token is rejected with 401.
func JWTIdentity(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}

			scheme, raw, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "bearer") || raw == "" {
				WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "Invalid Authorization header format. Use: Bearer <token>", nil)
				return
			}

			actor, err := ParseToken(secret, strings.TrimSpace(raw))
			if err != nil {
				WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token", nil)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

// HeaderIdentity creates middleware that trusts identity headers set by an
// authenticating proxy. It must only be enabled behind such a proxy. An
// actor already resolved by an earlier middleware is kept.
func HeaderIdentity() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if GetActor(r).Known() {
				next.ServeHTTP(w, r)
				return
			}

			rawID := r.Header.Get(HeaderUserID)
			if rawID == "" {
				next.ServeHTTP(w, r)
				return
			}
			id, err := strconv.ParseInt(rawID, 10, 64)
			if err != nil || id <= 0 {
				WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "Invalid "+HeaderUserID+" header", nil)
				return
			}

			superuser, _ := strconv.ParseBool(r.Header.Get(HeaderSuperuser))
			actor := model.Actor{
				ID:              id,
				Username:        r.Header.Get(HeaderUsername),
				IsSuperuser:     superuser,
				IsAuthenticated: true,
			}
			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

// RequireAuth rejects requests without a known actor with 401.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !GetActor(r).Known() {
			WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "Authentication required", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSuperuser rejects requests whose actor is not a superuser with 403.
// Anonymous requests get 401.
func RequireSuperuser(next http.Handler) http.Handler {
	return RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !GetActor(r).Privileged() {
			WriteAPIError(w, http.StatusForbidden, "forbidden", "Superuser access required", nil)
			return
		}
		next.ServeHTTP(w, r)
	}))
}
