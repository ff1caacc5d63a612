package service

import (
	"context"
	"slices"
	"testing"
)

func view(t *testing.T, env *testEnv, slug string, n int) {
	t.Helper()
	for range n {
		if _, err := env.Posts.GetPost(context.Background(), slug, anon); err != nil {
			t.Fatalf("GetPost(%q): %v", slug, err)
		}
	}
}

func topSlugs(t *testing.T, env *testEnv, n int) []string {
	t.Helper()
	top, err := env.Popular.Top(context.Background(), n)
	if err != nil {
		t.Fatalf("Top(%d): %v", n, err)
	}
	return slugs(top)
}

func TestPopularTop(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.publishedPost(t, alice, "Low")
	env.publishedPost(t, alice, "High")
	env.publishedPost(t, bob, "Tie")
	env.createPost(t, alice, PostInput{Title: "Draft"})

	view(t, env, "low", 1)
	view(t, env, "high", 3)
	view(t, env, "tie", 1)

	top, err := env.Popular.Top(ctx, 0)
	if err != nil {
		t.Fatalf("Top: %v", err)
	}
	// Views descending, ties broken by the newest id.
	if got, want := slugs(top), []string{"high", "tie", "low"}; !slices.Equal(got, want) {
		t.Errorf("Top = %v, want %v", got, want)
	}
	if top[0].Views != 3 {
		t.Errorf("top Views = %d, want 3", top[0].Views)
	}

	if got, want := topSlugs(t, env, 2), []string{"high", "tie"}; !slices.Equal(got, want) {
		t.Errorf("Top(2) = %v, want %v", got, want)
	}
}

func TestPopularIsCachedAndRefreshed(t *testing.T) {
	env := newTestEnv(t)
	env.publishedPost(t, alice, "First")
	env.publishedPost(t, alice, "Second")
	view(t, env, "first", 2)

	if got, want := topSlugs(t, env, 0), []string{"first", "second"}; !slices.Equal(got, want) {
		t.Errorf("Top = %v, want %v", got, want)
	}

	view(t, env, "second", 5)
	if got, want := topSlugs(t, env, 0), []string{"first", "second"}; !slices.Equal(got, want) {
		t.Errorf("Top within the TTL = %v, want cached %v", got, want)
	}

	if err := env.Popular.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if got, want := topSlugs(t, env, 0), []string{"second", "first"}; !slices.Equal(got, want) {
		t.Errorf("Top after refresh = %v, want %v", got, want)
	}
}

func TestPopularInvalidatedOnWrites(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.publishedPost(t, alice, "Viral")
	env.publishedPost(t, alice, "Quiet")
	view(t, env, "viral", 4)

	if got := topSlugs(t, env, 0); len(got) == 0 || got[0] != "viral" {
		t.Fatalf("Top = %v, want viral first", got)
	}

	if err := env.Posts.DeletePost(ctx, p.ID, alice); err != nil {
		t.Fatalf("DeletePost: %v", err)
	}
	if got, want := topSlugs(t, env, 0), []string{"quiet"}; !slices.Equal(got, want) {
		t.Errorf("Top after delete = %v, want %v", got, want)
	}
}
