// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"time"

	"github.com/olegiv/oblog/internal/model"
)

// Transition is the effect of moving a post from one status to another.
type Transition int

// Transition effects.
const (
	TransitionNone Transition = iota
	TransitionPublish
	TransitionUnpublish
)

// transitions lists every allowed status change. Staying in the same status
// is always allowed and has no effect.
var transitions = map[[2]string]Transition{
	{model.PostStatusDraft, model.PostStatusPublished}: TransitionPublish,
	{model.PostStatusPublished, model.PostStatusDraft}: TransitionUnpublish,
}

// NextStatus validates a status change and returns its effect.
func NextStatus(current, target string) (Transition, error) {
	if !model.ValidPostStatus(target) {
		return TransitionNone, fieldError("status", "must be one of: draft, published")
	}
	if current == target {
		return TransitionNone, nil
	}
	t, ok := transitions[[2]string{current, target}]
	if !ok {
		return TransitionNone, invalidState("cannot move a post from " + current + " to " + target)
	}
	return t, nil
}

// PublishedAtFor returns the publish timestamp a post should carry after a
// write that leaves it in status target. The first publish stamps now;
// every later write keeps prev, including an unpublish.
func PublishedAtFor(prev *time.Time, target string, now time.Time) *time.Time {
	if prev != nil {
		return prev
	}
	if target == model.PostStatusPublished {
		t := now.UTC()
		return &t
	}
	return nil
}
