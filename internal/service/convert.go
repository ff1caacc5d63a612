// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"strings"
	"unicode/utf8"

	"github.com/olegiv/oblog/internal/model"
	"github.com/olegiv/oblog/internal/store"
	"github.com/olegiv/oblog/internal/util"
)

func toPost(p store.Post, tags []string) model.Post {
	if tags == nil {
		tags = []string{}
	}
	return model.Post{
		ID:            p.ID,
		Title:         p.Title,
		Slug:          p.Slug,
		AuthorID:      p.AuthorID,
		CategoryID:    util.PtrFromNullInt64(p.CategoryID),
		Tags:          tags,
		Content:       p.Content,
		Excerpt:       p.Excerpt,
		FeaturedImage: p.FeaturedImage,
		Status:        p.Status,
		CreatedAt:     p.CreatedAt.UTC(),
		UpdatedAt:     p.UpdatedAt.UTC(),
		PublishedAt:   util.PtrFromNullTime(p.PublishedAt),
		ScheduledAt:   util.PtrFromNullTime(p.ScheduledAt),
		Views:         p.Views,
	}
}

func toComment(c store.CommentRow) model.Comment {
	return model.Comment{
		ID:         c.ID,
		PostID:     c.PostID,
		AuthorID:   c.AuthorID,
		AuthorName: c.AuthorName,
		Content:    c.Content,
		Approved:   c.Approved,
		CreatedAt:  c.CreatedAt.UTC(),
	}
}

func toComments(rows []store.CommentRow) []model.Comment {
	out := make([]model.Comment, 0, len(rows))
	for _, r := range rows {
		out = append(out, toComment(r))
	}
	return out
}

func toSummary(row store.PostListRow, tags []string, includeContent bool) PostSummary {
	if tags == nil {
		tags = []string{}
	}
	s := PostSummary{
		ID:            row.ID,
		Title:         row.Title,
		Slug:          row.Slug,
		AuthorID:      row.AuthorID,
		AuthorName:    row.AuthorName,
		CategoryID:    util.PtrFromNullInt64(row.CategoryID),
		CategoryName:  row.CategoryName.String,
		Tags:          tags,
		Excerpt:       listingExcerpt(row.Excerpt, row.Content),
		FeaturedImage: row.FeaturedImage,
		Status:        row.Status,
		CreatedAt:     row.CreatedAt.UTC(),
		PublishedAt:   util.PtrFromNullTime(row.PublishedAt),
		Views:         row.Views,
	}
	if includeContent {
		s.Content = row.Content
	}
	return s
}

// listingExcerpt returns the stored excerpt, or the first ListExcerptRunes
// runes of the content cut at a word boundary when possible.
func listingExcerpt(excerpt, content string) string {
	if excerpt != "" {
		return excerpt
	}
	content = strings.Join(strings.Fields(content), " ")
	if utf8.RuneCountInString(content) <= model.ListExcerptRunes {
		return content
	}

	runes := []rune(content)[:model.ListExcerptRunes]
	cut := string(runes)
	if i := strings.LastIndexByte(cut, ' '); i > len(cut)/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " .,;:") + "…"
}
