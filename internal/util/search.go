// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// FoldSearch returns the case-folded NFC form of s. Stored search columns and
// search terms both go through it, so substring matching ignores case for
// every script, not only ASCII.
func FoldSearch(s string) string {
	// A Caser keeps state between calls and is not shared across goroutines.
	return cases.Fold().String(norm.NFC.String(s))
}
