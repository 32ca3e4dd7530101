package memory

import (
	"context"
	"errors"
	"testing"

	"filegate/internal/store"
)

func TestStore_CreateAndRead(t *testing.T) {
	s := NewStore(nil)
	ctx := context.Background()

	f, err := s.Create(ctx, "notes.txt", "hello")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if f.Name != "notes.txt" || f.Content != "hello" {
		t.Errorf("Unexpected file: %+v", f)
	}
	if f.Version != 0 {
		t.Errorf("Expected version 0 on create, got %d", f.Version)
	}

	got, err := s.Read(ctx, "notes.txt")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got.Content != "hello" || got.Version != 0 {
		t.Errorf("Unexpected read result: %+v", got)
	}
}

func TestStore_Create_AlreadyExists(t *testing.T) {
	s := NewStore(nil)
	ctx := context.Background()

	if _, err := s.Create(ctx, "a.txt", "x"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	_, err := s.Create(ctx, "a.txt", "y")
	if !errors.Is(err, store.ErrAlreadyExists) {
		t.Errorf("Expected ErrAlreadyExists, got %v", err)
	}

	// The original content must be untouched.
	f, _ := s.Read(ctx, "a.txt")
	if f.Content != "x" {
		t.Errorf("Content overwritten by failed create: %q", f.Content)
	}
}

func TestStore_Read_NotFound(t *testing.T) {
	s := NewStore(nil)

	_, err := s.Read(context.Background(), "missing.txt")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestStore_Update_IncrementsVersion(t *testing.T) {
	s := NewStore(nil)
	ctx := context.Background()

	s.Create(ctx, "a.txt", "v0")
	f, err := s.Update(ctx, "a.txt", "v1")
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if f.Version != 1 {
		t.Errorf("Expected version 1, got %d", f.Version)
	}

	f, err = s.Update(ctx, "a.txt", "v2")
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if f.Version != 2 || f.Content != "v2" {
		t.Errorf("Unexpected file after second update: %+v", f)
	}
}

func TestStore_Update_NotFound(t *testing.T) {
	s := NewStore(nil)

	_, err := s.Update(context.Background(), "missing.txt", "x")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestStore_Delete(t *testing.T) {
	s := NewStore(nil)
	ctx := context.Background()

	s.Create(ctx, "a.txt", "x")
	if err := s.Delete(ctx, "a.txt"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := s.Read(ctx, "a.txt"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
	if err := s.Delete(ctx, "a.txt"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound on double delete, got %v", err)
	}
}

func TestStore_DeleteAndRecreate_ResetsVersion(t *testing.T) {
	s := NewStore(nil)
	ctx := context.Background()

	s.Create(ctx, "a.txt", "x")
	s.Update(ctx, "a.txt", "y")
	s.Delete(ctx, "a.txt")

	f, err := s.Create(ctx, "a.txt", "z")
	if err != nil {
		t.Fatalf("Recreate failed: %v", err)
	}
	if f.Version != 0 {
		t.Errorf("Expected version 0 after recreate, got %d", f.Version)
	}
}

func TestStore_List_SortedByName(t *testing.T) {
	s := NewStore(nil)
	ctx := context.Background()

	s.Create(ctx, "c.txt", "")
	s.Create(ctx, "a.txt", "")
	s.Create(ctx, "b.txt", "")

	names, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	want := []string{"a.txt", "b.txt", "c.txt"}
	if len(names) != len(want) {
		t.Fatalf("Expected %d names, got %d", len(want), len(names))
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}
