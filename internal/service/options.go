// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import "time"

// Options are the engine settings passed at construction.
type Options struct {
	// PageSize is used when a page request does not name one.
	PageSize int
	// MaxPageSize caps any requested page size.
	MaxPageSize int
	// PopularTTL bounds how stale the popular posts ranking may be.
	PopularTTL time.Duration
	// PopularLimit is the default number of popular posts.
	PopularLimit int
}

// DefaultOptions returns the stock engine settings.
func DefaultOptions() Options {
	return Options{
		PageSize:     5,
		MaxPageSize:  50,
		PopularTTL:   5 * time.Minute,
		PopularLimit: 5,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.PageSize <= 0 {
		o.PageSize = d.PageSize
	}
	if o.MaxPageSize < o.PageSize {
		o.MaxPageSize = max(d.MaxPageSize, o.PageSize)
	}
	if o.PopularTTL <= 0 {
		o.PopularTTL = d.PopularTTL
	}
	if o.PopularLimit <= 0 {
		o.PopularLimit = d.PopularLimit
	}
	return o
}
