package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"ai-script-editor-service/internal/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "scripts.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCreateAndGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	blocks := []models.Block{
		{ID: "b1", Text: "Hello", Animated: true},
		{ID: "b2", Text: "World", Attributes: models.Attributes{Break: &models.Break{TimeMs: 500}}},
	}
	created, err := s.Create(ctx, "My First Script!", blocks)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == 0 {
		t.Fatal("expected id to be assigned")
	}
	if created.Slug != "my-first-script" {
		t.Errorf("slug = %q", created.Slug)
	}
	if created.UpdatedAt != nil {
		t.Errorf("UpdatedAt = %v, want nil", created.UpdatedAt)
	}

	got, err := s.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.Blocks) != 2 {
		t.Fatalf("blocks = %+v", got.Blocks)
	}
	if got.Blocks[0].Animated {
		t.Error("transient animation flag was persisted")
	}
	if got.Blocks[1].Break == nil || got.Blocks[1].Break.TimeMs != 500 {
		t.Errorf("break = %+v", got.Blocks[1].Break)
	}
}

func TestCreateDefaultsTitle(t *testing.T) {
	s := openTestStore(t)
	got, err := s.Create(context.Background(), "  ", nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got.Title != "Untitled script" {
		t.Errorf("title = %q", got.Title)
	}
	if got.Blocks == nil || len(got.Blocks) != 0 {
		t.Errorf("blocks = %#v, want empty slice", got.Blocks)
	}
}

func TestUpdate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	created, err := s.Create(ctx, "Draft", []models.Block{{ID: "b1", Text: "one"}})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	title := "Final Cut"
	updated, err := s.Update(ctx, created.ID, models.ScriptUpdate{Title: &title})
	if err != nil {
		t.Fatalf("Update title: %v", err)
	}
	if updated.Title != "Final Cut" || updated.Slug != "final-cut" {
		t.Errorf("updated = %+v", updated)
	}
	if len(updated.Blocks) != 1 {
		t.Errorf("blocks changed by title update: %+v", updated.Blocks)
	}
	if updated.UpdatedAt == nil {
		t.Error("expected UpdatedAt to be set")
	}

	if err := s.SaveBlocks(ctx, created.ID, []models.Block{{ID: "x", Text: "new"}, {ID: "y", Text: "two"}}); err != nil {
		t.Fatalf("SaveBlocks: %v", err)
	}
	got, _ := s.Get(ctx, created.ID)
	if len(got.Blocks) != 2 || got.Blocks[0].Text != "new" || got.Title != "Final Cut" {
		t.Errorf("after SaveBlocks = %+v", got)
	}
}

func TestNotFound(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.Get(ctx, 99); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get err = %v", err)
	}
	title := "x"
	if _, err := s.Update(ctx, 99, models.ScriptUpdate{Title: &title}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update err = %v", err)
	}
	if err := s.Delete(ctx, 99); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete err = %v", err)
	}
}

func TestDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	created, _ := s.Create(ctx, "Gone", nil)
	if err := s.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete err = %v", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, title := range []string{"a", "b", "c", "d", "e"} {
		at := base.Add(time.Duration(i) * time.Minute)
		s.now = func() time.Time { return at }
		if _, err := s.Create(ctx, title, nil); err != nil {
			t.Fatalf("Create %s: %v", title, err)
		}
	}

	tests := []struct {
		page, size int
		want       []string
	}{
		{0, 2, []string{"e", "d"}},
		{1, 2, []string{"c", "b"}},
		{2, 2, []string{"a"}},
		{3, 2, nil},
		{-1, 0, []string{"e", "d", "c", "b", "a"}},
	}
	for _, tt := range tests {
		got, err := s.List(ctx, tt.page, tt.size)
		if err != nil {
			t.Fatalf("List(%d, %d): %v", tt.page, tt.size, err)
		}
		var titles []string
		for _, sc := range got {
			titles = append(titles, sc.Title)
		}
		if len(titles) != len(tt.want) {
			t.Fatalf("List(%d, %d) = %v, want %v", tt.page, tt.size, titles, tt.want)
		}
		for i := range titles {
			if titles[i] != tt.want[i] {
				t.Fatalf("List(%d, %d) = %v, want %v", tt.page, tt.size, titles, tt.want)
			}
		}
	}

	if n, err := s.Count(ctx); err != nil || n != 5 {
		t.Errorf("Count = %d, %v", n, err)
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "scripts.db")
	ctx := context.Background()
	s, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	created, _ := s.Create(ctx, "Persist", nil)
	_ = s.Close()

	s2, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	if _, err := s2.Get(ctx, created.ID); err != nil {
		t.Errorf("Get after reopen: %v", err)
	}
}
