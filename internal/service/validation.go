// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"errors"
	"fmt"
	"html"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"

	"github.com/olegiv/oblog/internal/model"
	"github.com/olegiv/oblog/internal/util"
)

// PostInput is the full set of writable post fields. It is the validation
// schema for both create and the merged result of an update.
type PostInput struct {
	Title         string     `json:"title" validate:"required,max=200"`
	Slug          string     `json:"slug" validate:"omitempty,max=200,slug"`
	CategoryID    *int64     `json:"category_id,omitempty" validate:"omitempty,gt=0"`
	Tags          []string   `json:"tags" validate:"max=20,dive,required,max=50"`
	Content       string     `json:"content"`
	Excerpt       string     `json:"excerpt" validate:"max=500"`
	FeaturedImage string     `json:"featured_image" validate:"omitempty,max=2048"`
	Status        string     `json:"status" validate:"omitempty,oneof=draft published"`
	ScheduledAt   *time.Time `json:"scheduled_at,omitempty"`
}

// PostPatch holds the fields of an update; nil fields are left unchanged.
// CategoryID 0 clears the category and Unschedule clears ScheduledAt.
type PostPatch struct {
	Title         *string    `json:"title,omitempty"`
	Slug          *string    `json:"slug,omitempty"`
	CategoryID    *int64     `json:"category_id,omitempty"`
	Tags          *[]string  `json:"tags,omitempty"`
	Content       *string    `json:"content,omitempty"`
	Excerpt       *string    `json:"excerpt,omitempty"`
	FeaturedImage *string    `json:"featured_image,omitempty"`
	Status        *string    `json:"status,omitempty"`
	ScheduledAt   *time.Time `json:"scheduled_at,omitempty"`
	Unschedule    bool       `json:"unschedule,omitempty"`
}

// CommentInput is the validation schema for a submitted comment.
type CommentInput struct {
	Content string `json:"content" validate:"required,max=5000"`
}

// CategoryInput is the validation schema for category writes.
type CategoryInput struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
}

// ModerationInput is the validation schema for bulk moderation.
type ModerationInput struct {
	IDs     []int64 `json:"ids" validate:"required,min=1,max=100,dive,gt=0"`
	Approve bool    `json:"approve"`
}

var (
	validate = newValidator()

	// textPolicy strips every tag; rendering is not this service's concern.
	textPolicy = bluemonday.StrictPolicy()
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return util.IsValidSlug(fl.Field().String())
	})
	return v
}

// plainText removes markup and surrounding whitespace. Entities escaped by
// the sanitizer are decoded again so stored text stays plain.
func plainText(s string) string {
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(s)))
}

// validateStruct runs the schema and converts failures to a validation error.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fieldMessage(fe)
	}
	return validationError(fields)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must have at most %s items", fe.Param())
		}
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("must have at least %s items", fe.Param())
	case "gt":
		return "must be a positive id"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "slug":
		return "must contain only lowercase letters, digits and single hyphens"
	default:
		return "is invalid"
	}
}

// normalize trims text fields, strips markup from the excerpt, derives a
// missing slug from the title and cleans up the tag list.
func (in *PostInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Slug = strings.TrimSpace(in.Slug)
	if in.Slug == "" {
		in.Slug = util.TruncateSlug(util.Slugify(in.Title), model.MaxSlugLength)
	}
	in.Excerpt = plainText(in.Excerpt)
	in.FeaturedImage = strings.TrimSpace(in.FeaturedImage)
	if in.Status == "" {
		in.Status = model.PostStatusDraft
	}
	in.Tags = normalizeTags(in.Tags)
	if in.ScheduledAt != nil {
		t := in.ScheduledAt.UTC()
		in.ScheduledAt = &t
	}
}

func (in *PostInput) validate() error {
	if err := validateStruct(in); err != nil {
		return err
	}
	if in.Slug == "" {
		return fieldError("slug", "cannot be derived from the title, set one explicitly")
	}
	if in.ScheduledAt != nil && in.Status == model.PostStatusPublished {
		return fieldError("scheduled_at", "only drafts can be scheduled")
	}
	return nil
}

// apply merges a patch into the current field values.
func (p PostPatch) apply(in PostInput) PostInput {
	if p.Title != nil {
		in.Title = *p.Title
	}
	if p.Slug != nil {
		in.Slug = *p.Slug
	}
	if p.CategoryID != nil {
		if *p.CategoryID == 0 {
			in.CategoryID = nil
		} else {
			id := *p.CategoryID
			in.CategoryID = &id
		}
	}
	if p.Tags != nil {
		in.Tags = *p.Tags
	}
	if p.Content != nil {
		in.Content = *p.Content
	}
	if p.Excerpt != nil {
		in.Excerpt = *p.Excerpt
	}
	if p.FeaturedImage != nil {
		in.FeaturedImage = *p.FeaturedImage
	}
	if p.Status != nil {
		in.Status = *p.Status
	}
	if p.ScheduledAt != nil {
		in.ScheduledAt = p.ScheduledAt
	}
	if p.Unschedule {
		in.ScheduledAt = nil
	}
	return in
}

// normalizeTags trims, lowercases and dedupes tag names, keeping first-seen order.
func normalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if _, dup := seen[t]; dup && t != "" {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func (in *CommentInput) normalize() {
	in.Content = plainText(in.Content)
}

func (in *CategoryInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
}

// dedupeIDs removes repeated ids, keeping first-seen order.
func dedupeIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
