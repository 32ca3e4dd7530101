package broker

import (
	"context"
	"errors"
	"sync"
	"testing"

	"filegate/internal/model"
)

func strPtr(s string) *string { return &s }

func TestBroker_Submit(t *testing.T) {
	b := NewBroker(nil)
	ctx := context.Background()

	req, err := b.Submit(ctx, "alice", "EDIT", "notes.txt", strPtr("new text"))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if req.ID != 1 {
		t.Errorf("Expected first id 1, got %d", req.ID)
	}
	if req.Status != model.StatusPending {
		t.Errorf("Expected status pending, got %s", req.Status)
	}
	if req.Requester != "alice" || req.Action != model.RequestEdit {
		t.Errorf("Unexpected request record: %+v", req)
	}
}

func TestBroker_Submit_Validation(t *testing.T) {
	b := NewBroker(nil)
	ctx := context.Background()

	if _, err := b.Submit(ctx, "alice", "RENAME", "a.txt", nil); !errors.Is(err, ErrInvalidAction) {
		t.Errorf("Expected ErrInvalidAction, got %v", err)
	}
	if _, err := b.Submit(ctx, "alice", "CREATE", "a.txt", nil); !errors.Is(err, ErrMissingContent) {
		t.Errorf("Expected ErrMissingContent for CREATE, got %v", err)
	}
	if _, err := b.Submit(ctx, "alice", "EDIT", "a.txt", nil); !errors.Is(err, ErrMissingContent) {
		t.Errorf("Expected ErrMissingContent for EDIT, got %v", err)
	}
	// DELETE carries no content.
	if _, err := b.Submit(ctx, "alice", "DELETE", "a.txt", nil); err != nil {
		t.Errorf("DELETE without content should succeed: %v", err)
	}
}

func TestBroker_Submit_ConcurrentIDsAreUnique(t *testing.T) {
	b := NewBroker(nil)
	ctx := context.Background()

	const n = 100
	var wg sync.WaitGroup
	ids := make([]int64, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req, err := b.Submit(ctx, "alice", "DELETE", "a.txt", nil)
			if err != nil {
				t.Errorf("Submit failed: %v", err)
				return
			}
			ids[i] = req.ID
		}(i)
	}
	wg.Wait()

	seen := make(map[int64]bool, n)
	for _, id := range ids {
		if seen[id] {
			t.Fatalf("Duplicate request id %d", id)
		}
		seen[id] = true
	}
}

func TestBroker_List_OrderAndFilter(t *testing.T) {
	b := NewBroker(nil)
	ctx := context.Background()

	b.Submit(ctx, "alice", "CREATE", "a.txt", strPtr("a"))
	b.Submit(ctx, "bob", "DELETE", "b.txt", nil)
	b.Submit(ctx, "alice", "EDIT", "a.txt", strPtr("a2"))

	all, err := b.List(ctx, "")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Expected 3 requests, got %d", len(all))
	}
	for i, req := range all {
		if req.ID != int64(i+1) {
			t.Errorf("Expected id %d at position %d, got %d", i+1, i, req.ID)
		}
	}

	if _, err := b.Resolve(ctx, 2, false); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	// Resolved requests stay listed.
	all, _ = b.List(ctx, "")
	if len(all) != 3 {
		t.Errorf("Expected resolved request to be retained, got %d entries", len(all))
	}

	pending, _ := b.List(ctx, model.StatusPending)
	if len(pending) != 2 {
		t.Errorf("Expected 2 pending requests, got %d", len(pending))
	}
	rejected, _ := b.List(ctx, model.StatusRejected)
	if len(rejected) != 1 || rejected[0].ID != 2 {
		t.Errorf("Unexpected rejected list: %+v", rejected)
	}
}

func TestBroker_Resolve(t *testing.T) {
	b := NewBroker(nil)
	ctx := context.Background()

	req, _ := b.Submit(ctx, "alice", "EDIT", "a.txt", strPtr("x"))

	resolved, err := b.Resolve(ctx, req.ID, true)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if resolved.Status != model.StatusApproved {
		t.Errorf("Expected approved, got %s", resolved.Status)
	}

	if _, err := b.Resolve(ctx, req.ID, false); !errors.Is(err, ErrAlreadyResolved) {
		t.Errorf("Expected ErrAlreadyResolved, got %v", err)
	}
	if _, err := b.Resolve(ctx, 999, true); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestBroker_Resolve_ConcurrentSingleWinner(t *testing.T) {
	b := NewBroker(nil)
	ctx := context.Background()

	req, _ := b.Submit(ctx, "alice", "DELETE", "a.txt", nil)

	const n = 20
	var wg sync.WaitGroup
	results := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = b.Resolve(ctx, req.ID, i%2 == 0)
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range results {
		if err == nil {
			successes++
		} else if !errors.Is(err, ErrAlreadyResolved) {
			t.Errorf("Unexpected error: %v", err)
		}
	}
	if successes != 1 {
		t.Errorf("Expected exactly one successful resolution, got %d", successes)
	}
}
