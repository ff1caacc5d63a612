// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"github.com/olegiv/oblog/internal/model"
	"github.com/olegiv/oblog/internal/store"
)

// CanMutate reports whether actor may edit, delete or transition a resource
// owned by ownerID. Actors without a usable identity are always denied.
func CanMutate(actor model.Actor, ownerID int64) bool {
	return actor.Privileged() || actor.Owns(ownerID)
}

// CanModerate reports whether actor may approve, disapprove or delete
// comments. Owning the post or the comment does not grant this.
func CanModerate(actor model.Actor) bool {
	return actor.Privileged()
}

// CanViewPost reports whether actor may read post. Drafts are visible only
// to actors who could mutate them.
func CanViewPost(actor model.Actor, post store.Post) bool {
	return post.Status == model.PostStatusPublished || CanMutate(actor, post.AuthorID)
}

func requireIdentity(actor model.Actor) error {
	if !actor.Known() {
		return forbidden("authentication required")
	}
	return nil
}
