package genstore

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestLocalMissingNamespaceIsZero(t *testing.T) {
	ctx := context.Background()
	s := NewLocal(0, 0)
	t.Cleanup(func() { _ = s.Close(ctx) })

	g, err := s.Snapshot(ctx, "users")
	if err != nil || g != 0 {
		t.Fatalf("Snapshot = %d, %v; want 0, nil", g, err)
	}
}

func TestLocalBumpIsPerNamespace(t *testing.T) {
	ctx := context.Background()
	s := NewLocal(0, 0)
	t.Cleanup(func() { _ = s.Close(ctx) })

	for i := 0; i < 2; i++ {
		if _, err := s.Bump(ctx, "users"); err != nil {
			t.Fatal(err)
		}
	}
	if g, _ := s.Snapshot(ctx, "users"); g != 2 {
		t.Fatalf("users gen = %d, want 2", g)
	}
	if g, _ := s.Snapshot(ctx, "orders"); g != 0 {
		t.Fatalf("orders gen = %d, want 0", g)
	}
}

func TestLocalConcurrentBumps(t *testing.T) {
	ctx := context.Background()
	s := NewLocal(0, 0)
	t.Cleanup(func() { _ = s.Close(ctx) })

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Bump(ctx, "ns")
		}()
	}
	wg.Wait()
	if g, _ := s.Snapshot(ctx, "ns"); g != 50 {
		t.Fatalf("gen = %d, want 50", g)
	}
}

func TestLocalCleanupPrunesIdle(t *testing.T) {
	ctx := context.Background()
	s := NewLocal(0, 0)
	t.Cleanup(func() { _ = s.Close(ctx) })

	if _, err := s.Bump(ctx, "old"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)
	if _, err := s.Bump(ctx, "fresh"); err != nil {
		t.Fatal(err)
	}
	s.Cleanup(10 * time.Millisecond)

	if g, _ := s.Snapshot(ctx, "old"); g != 0 {
		t.Fatalf("expected pruned -> 0, got %d", g)
	}
	if g, _ := s.Snapshot(ctx, "fresh"); g != 1 {
		t.Fatalf("fresh namespace pruned, gen = %d", g)
	}
}

func TestLocalCloseStopsLoopAndIsIdempotent(t *testing.T) {
	s := NewLocal(time.Millisecond, time.Hour)
	if err := s.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
}
