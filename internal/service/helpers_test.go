package service

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/olegiv/oblog/internal/cache"
	"github.com/olegiv/oblog/internal/events"
	"github.com/olegiv/oblog/internal/model"
	"github.com/olegiv/oblog/internal/store"
)

var (
	alice  = model.Actor{ID: 1, Username: "alice", IsAuthenticated: true}
	bob    = model.Actor{ID: 2, Username: "bob", IsAuthenticated: true}
	reader = model.Actor{ID: 3, Username: "reader", IsAuthenticated: true}
	admin  = model.Actor{ID: 99, Username: "admin", IsSuperuser: true, IsAuthenticated: true}
	anon   = model.Anonymous()
)

// fakeClock advances by one second on every reading so rows written in
// sequence get distinct timestamps.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type testEnv struct {
	*Services
	store    *store.Store
	cache    *cache.MemoryCache
	recorder *events.Recorder
	clock    *fakeClock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	path := filepath.Join(t.TempDir(), "oblog.db")
	db, err := store.NewDB(path)
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	if err := store.Migrate(db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
		_ = os.Remove(path)
	})

	st := store.NewStore(db)
	mc := cache.NewMemoryCache(cache.MemoryCacheOptions{DefaultTTL: time.Minute})
	t.Cleanup(func() { _ = mc.Close() })
	rec := &events.Recorder{}
	clock := newFakeClock()

	svcs := New(Deps{
		Store:   st,
		Cache:   mc,
		Events:  rec,
		Options: DefaultOptions(),
		Clock:   clock.Now,
	})
	return &testEnv{Services: svcs, store: st, cache: mc, recorder: rec, clock: clock}
}

func (e *testEnv) createPost(t *testing.T, actor model.Actor, in PostInput) *model.Post {
	t.Helper()
	if in.Content == "" {
		in.Content = "Body of " + in.Title
	}
	p, err := e.Posts.CreatePost(context.Background(), in, actor)
	if err != nil {
		t.Fatalf("CreatePost(%q): %v", in.Title, err)
	}
	return p
}

func (e *testEnv) publishedPost(t *testing.T, actor model.Actor, title string) *model.Post {
	t.Helper()
	return e.createPost(t, actor, PostInput{Title: title, Status: model.PostStatusPublished})
}

func (e *testEnv) createCategory(t *testing.T, name string) *Category {
	t.Helper()
	c, err := e.Taxonomy.CreateCategory(context.Background(), CategoryInput{Name: name}, admin)
	if err != nil {
		t.Fatalf("CreateCategory(%q): %v", name, err)
	}
	return c
}

func ptr[T any](v T) *T { return &v }

func wantKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("error = nil, want kind %s", kind)
	}
	if got := KindOf(err); got != kind {
		t.Fatalf("error kind = %s, want %s (error: %v)", got, kind, err)
	}
}
