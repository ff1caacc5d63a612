// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines domain models and types used throughout the application
// including the request actor, post statuses, and comment moderation states.
package model

// Actor is the identity attached to a request by the external identity provider.
// The zero value is an anonymous caller.
type Actor struct {
	ID              int64  `json:"id"`
	Username        string `json:"username"`
	IsSuperuser     bool   `json:"is_superuser"`
	IsAuthenticated bool   `json:"is_authenticated"`
}

// Anonymous returns an unauthenticated actor.
func Anonymous() Actor {
	return Actor{}
}

// Known returns true if the actor carries a usable identity.
// An actor flagged authenticated but without an id is not known.
func (a Actor) Known() bool {
	return a.IsAuthenticated && a.ID > 0
}

// Owns returns true if the actor is known and has the given user id.
func (a Actor) Owns(ownerID int64) bool {
	return a.Known() && ownerID > 0 && a.ID == ownerID
}

// Privileged returns true if the actor is a known superuser.
func (a Actor) Privileged() bool {
	return a.Known() && a.IsSuperuser
}
