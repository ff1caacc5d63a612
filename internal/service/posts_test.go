package service

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/olegiv/oblog/internal/model"
)

func TestCreatePost(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	cat := env.createCategory(t, "Go")

	p, err := env.Posts.CreatePost(ctx, PostInput{
		Title:      "  Hello World  ",
		CategoryID: &cat.ID,
		Tags:       []string{"Go", "web", "go", " Web "},
		Content:    "Body",
		Excerpt:    "<b>Short</b> intro",
	}, alice)
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}

	if p.Title != "Hello World" {
		t.Errorf("Title = %q, want %q", p.Title, "Hello World")
	}
	if p.Slug != "hello-world" {
		t.Errorf("Slug = %q, want %q", p.Slug, "hello-world")
	}
	if p.AuthorID != alice.ID {
		t.Errorf("AuthorID = %d, want %d", p.AuthorID, alice.ID)
	}
	if p.Status != model.PostStatusDraft {
		t.Errorf("Status = %q, want draft", p.Status)
	}
	if p.PublishedAt != nil {
		t.Errorf("PublishedAt = %v, want nil for a draft", p.PublishedAt)
	}
	if want := []string{"go", "web"}; !slices.Equal(p.Tags, want) {
		t.Errorf("Tags = %v, want %v", p.Tags, want)
	}
	if p.Excerpt != "Short intro" {
		t.Errorf("Excerpt = %q, want sanitized %q", p.Excerpt, "Short intro")
	}
	if p.CategoryID == nil || *p.CategoryID != cat.ID {
		t.Errorf("CategoryID = %v, want %d", p.CategoryID, cat.ID)
	}
	if p.Views != 0 {
		t.Errorf("Views = %d, want 0", p.Views)
	}

	if got, want := env.recorder.Types(), []string{model.EventPostCreated}; !slices.Equal(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
}

func TestCreatePostPublished(t *testing.T) {
	env := newTestEnv(t)

	p := env.publishedPost(t, alice, "Launch")
	if p.PublishedAt == nil {
		t.Fatal("PublishedAt = nil, want set on publish")
	}
	if p.Status != model.PostStatusPublished {
		t.Errorf("Status = %q, want published", p.Status)
	}
	if got, want := env.recorder.Types(), []string{model.EventPostCreated, model.EventPostPublished}; !slices.Equal(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
}

func TestCreatePostValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		in    PostInput
		field string
	}{
		{"empty title", PostInput{Title: "   "}, "title"},
		{"long title", PostInput{Title: strings.Repeat("a", model.MaxTitleLength+1)}, "title"},
		{"bad slug", PostInput{Title: "Ok", Slug: "Not A Slug"}, "slug"},
		{"underivable slug", PostInput{Title: "!!!"}, "slug"},
		{"long excerpt", PostInput{Title: "Ok", Excerpt: strings.Repeat("e", model.MaxExcerptLength+1)}, "excerpt"},
		{"bad status", PostInput{Title: "Ok", Status: "archived"}, "status"},
		{"long tag", PostInput{Title: "Ok", Tags: []string{strings.Repeat("t", model.MaxTagNameLength+1)}}, "tags[0]"},
		{"empty tag", PostInput{Title: "Ok", Tags: []string{"  "}}, "tags[0]"},
		{"unknown category", PostInput{Title: "Ok", CategoryID: ptr(int64(404))}, "category_id"},
		{"scheduled published", PostInput{Title: "Ok", Status: model.PostStatusPublished, ScheduledAt: ptr(time.Now().Add(time.Hour))}, "scheduled_at"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.Posts.CreatePost(ctx, tt.in, alice)
			wantKind(t, err, KindValidation)

			var se *Error
			if !errors.As(err, &se) {
				t.Fatalf("error %v is not a *Error", err)
			}
			if _, ok := se.Fields[tt.field]; !ok {
				t.Errorf("Fields = %v, want an entry for %q", se.Fields, tt.field)
			}
		})
	}
}

func TestCreatePostRequiresIdentity(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.Posts.CreatePost(context.Background(), PostInput{Title: "Anon"}, anon)
	wantKind(t, err, KindForbidden)
}

func TestCreatePostSlugConflict(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.createPost(t, alice, PostInput{Title: "Hello"})

	_, err := env.Posts.CreatePost(ctx, PostInput{Title: "Hello"}, bob)
	wantKind(t, err, KindConflict)
	if !errors.Is(err, ErrConflict) {
		t.Errorf("errors.Is(%v, ErrConflict) = false", err)
	}

	var se *Error
	if !errors.As(err, &se) {
		t.Fatalf("error %v is not a *Error", err)
	}
	if _, ok := se.Fields["slug"]; !ok {
		t.Errorf("Fields = %v, want a slug entry", se.Fields)
	}
}

func TestCreatePostConcurrentSameSlug(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.Posts.CreatePost(ctx, PostInput{Title: "Race"}, alice)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		if err == nil {
			ok++
			continue
		}
		wantKind(t, err, KindConflict)
	}
	if ok != 1 {
		t.Errorf("%d writers succeeded, want exactly 1", ok)
	}
}

func TestUpdatePost(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.createPost(t, alice, PostInput{Title: "Original", Tags: []string{"a"}})

	updated, err := env.Posts.UpdatePost(ctx, p.ID, PostPatch{Title: ptr("Renamed")}, alice)
	if err != nil {
		t.Fatalf("UpdatePost: %v", err)
	}
	if updated.Title != "Renamed" {
		t.Errorf("Title = %q, want %q", updated.Title, "Renamed")
	}
	if updated.Slug != "original" {
		t.Errorf("Slug = %q, want %q; slugs are not rederived on update", updated.Slug, "original")
	}
	if want := []string{"a"}; !slices.Equal(updated.Tags, want) {
		t.Errorf("Tags = %v, want %v", updated.Tags, want)
	}

	updated, err = env.Posts.UpdatePost(ctx, p.ID, PostPatch{Tags: &[]string{"b", "c"}}, admin)
	if err != nil {
		t.Fatalf("UpdatePost as superuser: %v", err)
	}
	if want := []string{"b", "c"}; !slices.Equal(updated.Tags, want) {
		t.Errorf("Tags = %v, want %v", updated.Tags, want)
	}
	if updated.AuthorID != alice.ID {
		t.Errorf("AuthorID = %d, want %d; the author never changes", updated.AuthorID, alice.ID)
	}
}

func TestUpdatePostAuthorization(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.createPost(t, alice, PostInput{Title: "Mine"})

	tests := []struct {
		name  string
		id    int64
		patch PostPatch
		actor model.Actor
		want  Kind
	}{
		{"other author", p.ID, PostPatch{Title: ptr("x")}, bob, KindForbidden},
		{"anonymous", p.ID, PostPatch{Title: ptr("x")}, anon, KindForbidden},
		{"missing post", 4040, PostPatch{Title: ptr("x")}, alice, KindNotFound},
		// Authorization is checked before validation.
		{"invalid patch by other author", p.ID, PostPatch{Title: ptr("")}, bob, KindForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.Posts.UpdatePost(ctx, tt.id, tt.patch, tt.actor)
			wantKind(t, err, tt.want)
		})
	}
}

func TestUpdatePostSlugConflict(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.createPost(t, alice, PostInput{Title: "Taken"})
	p := env.createPost(t, alice, PostInput{Title: "Other"})

	_, err := env.Posts.UpdatePost(ctx, p.ID, PostPatch{Slug: ptr("taken")}, alice)
	wantKind(t, err, KindConflict)

	got, err := env.Posts.GetPost(ctx, "other", alice)
	if err != nil {
		t.Fatalf("GetPost: %v", err)
	}
	if got.Title != "Other" {
		t.Errorf("Title = %q after failed update, want unchanged %q", got.Title, "Other")
	}
}

func TestPublishedAtSetOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.createPost(t, alice, PostInput{Title: "Cycle"})

	pub, err := env.Posts.UpdatePost(ctx, p.ID, PostPatch{Status: ptr(model.PostStatusPublished)}, alice)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if pub.PublishedAt == nil {
		t.Fatal("PublishedAt = nil after publish")
	}
	first := *pub.PublishedAt

	draft, err := env.Posts.UpdatePost(ctx, p.ID, PostPatch{Status: ptr(model.PostStatusDraft)}, alice)
	if err != nil {
		t.Fatalf("unpublish: %v", err)
	}
	if draft.PublishedAt == nil || !first.Equal(*draft.PublishedAt) {
		t.Errorf("PublishedAt after unpublish = %v, want %v", draft.PublishedAt, first)
	}

	env.clock.Advance(time.Hour)
	again, err := env.Posts.UpdatePost(ctx, p.ID, PostPatch{Status: ptr(model.PostStatusPublished)}, alice)
	if err != nil {
		t.Fatalf("republish: %v", err)
	}
	if again.PublishedAt == nil || !first.Equal(*again.PublishedAt) {
		t.Errorf("PublishedAt after republish = %v, want first timestamp %v", again.PublishedAt, first)
	}

	want := []string{
		model.EventPostCreated,
		model.EventPostPublished,
		model.EventPostUnpublished,
		model.EventPostPublished,
	}
	if got := env.recorder.Types(); !slices.Equal(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
}

func TestUpdatePostInvalidStatus(t *testing.T) {
	env := newTestEnv(t)
	p := env.createPost(t, alice, PostInput{Title: "Status"})

	_, err := env.Posts.UpdatePost(context.Background(), p.ID, PostPatch{Status: ptr("archived")}, alice)
	wantKind(t, err, KindValidation)
}

func TestUpdatePostClearCategory(t *testing.T) {
	env := newTestEnv(t)
	cat := env.createCategory(t, "Temp")
	p := env.createPost(t, alice, PostInput{Title: "Cat", CategoryID: &cat.ID})

	updated, err := env.Posts.UpdatePost(context.Background(), p.ID, PostPatch{CategoryID: ptr(int64(0))}, alice)
	if err != nil {
		t.Fatalf("UpdatePost: %v", err)
	}
	if updated.CategoryID != nil {
		t.Errorf("CategoryID = %d, want nil", *updated.CategoryID)
	}
}

func TestGetPostVisibility(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.createPost(t, alice, PostInput{Title: "Secret"})

	hidden := []struct {
		name  string
		slug  string
		actor model.Actor
	}{
		{"anonymous draft", "secret", anon},
		{"other author draft", "secret", bob},
		{"missing slug", "missing", alice},
	}
	for _, tt := range hidden {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.Posts.GetPost(ctx, tt.slug, tt.actor)
			wantKind(t, err, KindNotFound)
		})
	}

	got, err := env.Posts.GetPost(ctx, "secret", alice)
	if err != nil {
		t.Fatalf("GetPost as author: %v", err)
	}
	if got.Views != 0 {
		t.Errorf("Views = %d, want 0; draft reads are not counted", got.Views)
	}

	got, err = env.Posts.GetPost(ctx, "secret", admin)
	if err != nil {
		t.Fatalf("GetPost as superuser: %v", err)
	}
	if got.AuthorName != "alice" {
		t.Errorf("AuthorName = %q, want alice", got.AuthorName)
	}
}

func TestGetPostCountsViews(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.publishedPost(t, alice, "Counted")

	reads := []struct {
		actor model.Actor
		opts  []ReadOption
		want  int64
	}{
		{anon, nil, 1},
		{bob, nil, 2},
		{anon, []ReadOption{WithoutViewCount()}, 2},
	}
	for i, r := range reads {
		got, err := env.Posts.GetPost(ctx, "counted", r.actor, r.opts...)
		if err != nil {
			t.Fatalf("read %d: %v", i, err)
		}
		if got.Views != r.want {
			t.Errorf("read %d: Views = %d, want %d", i, got.Views, r.want)
		}
	}
}

func TestGetPostConcurrentViews(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.publishedPost(t, alice, "Busy")

	const readers = 20
	var wg sync.WaitGroup
	errs := make(chan error, readers)
	for range readers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.Posts.GetPost(ctx, "busy", anon)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Errorf("concurrent GetPost: %v", err)
		}
	}

	got, err := env.Posts.GetPost(ctx, "busy", anon, WithoutViewCount())
	if err != nil {
		t.Fatalf("GetPost: %v", err)
	}
	if got.Views != readers {
		t.Errorf("Views = %d, want %d", got.Views, readers)
	}
}

func TestDeletePost(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.publishedPost(t, alice, "Doomed")
	if _, err := env.Comments.SubmitComment(ctx, p.ID, CommentInput{Content: "bye"}, reader); err != nil {
		t.Fatalf("SubmitComment: %v", err)
	}

	wantKind(t, env.Posts.DeletePost(ctx, p.ID, bob), KindForbidden)
	if err := env.Posts.DeletePost(ctx, p.ID, alice); err != nil {
		t.Fatalf("DeletePost: %v", err)
	}
	wantKind(t, env.Posts.DeletePost(ctx, p.ID, alice), KindNotFound)

	_, err := env.Posts.GetPost(ctx, "doomed", admin)
	wantKind(t, err, KindNotFound)

	mine, err := env.Comments.ListMyComments(ctx, reader)
	if err != nil {
		t.Fatalf("ListMyComments: %v", err)
	}
	if len(mine) != 0 {
		t.Errorf("reader still has %d comments, want them deleted with the post", len(mine))
	}

	// The slug is free again.
	env.publishedPost(t, bob, "Doomed")
}

func TestPublishDue(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	at := env.clock.Now().Add(30 * time.Minute)
	p := env.createPost(t, alice, PostInput{Title: "Later", ScheduledAt: &at})
	if p.ScheduledAt == nil {
		t.Fatal("ScheduledAt = nil, want the requested time")
	}
	env.createPost(t, alice, PostInput{Title: "Never"})

	publishDue := func(want int) {
		t.Helper()
		n, err := env.Posts.PublishDue(ctx)
		if err != nil {
			t.Fatalf("PublishDue: %v", err)
		}
		if n != want {
			t.Errorf("PublishDue published %d posts, want %d", n, want)
		}
	}

	publishDue(0)
	env.clock.Advance(time.Hour)
	publishDue(1)

	got, err := env.Posts.GetPost(ctx, "later", anon, WithoutViewCount())
	if err != nil {
		t.Fatalf("GetPost: %v", err)
	}
	if got.Status != model.PostStatusPublished {
		t.Errorf("Status = %q, want published", got.Status)
	}
	if got.ScheduledAt != nil {
		t.Errorf("ScheduledAt = %v, want nil once published", got.ScheduledAt)
	}
	if got.PublishedAt == nil || !got.PublishedAt.After(at) {
		t.Errorf("PublishedAt = %v, want after %v", got.PublishedAt, at)
	}

	// Published posts are not republished.
	publishDue(0)
}

func TestUpdatePublishClearsSchedule(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	at := env.clock.Now().Add(time.Hour)
	p := env.createPost(t, alice, PostInput{Title: "Manual", ScheduledAt: &at})

	pub, err := env.Posts.UpdatePost(ctx, p.ID, PostPatch{Status: ptr(model.PostStatusPublished)}, alice)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if pub.ScheduledAt != nil {
		t.Errorf("ScheduledAt = %v after publish, want nil", pub.ScheduledAt)
	}

	draft, err := env.Posts.UpdatePost(ctx, p.ID, PostPatch{Status: ptr(model.PostStatusDraft), ScheduledAt: &at}, alice)
	if err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if draft.ScheduledAt == nil {
		t.Fatal("ScheduledAt = nil, want rescheduled")
	}

	draft, err = env.Posts.UpdatePost(ctx, p.ID, PostPatch{Unschedule: true}, alice)
	if err != nil {
		t.Fatalf("unschedule: %v", err)
	}
	if draft.ScheduledAt != nil {
		t.Errorf("ScheduledAt = %v after unschedule, want nil", draft.ScheduledAt)
	}
}
