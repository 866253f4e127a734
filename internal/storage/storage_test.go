package storage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestMemory_SetGetRemove(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(0)

	if _, ok, err := m.GetItem(ctx, "missing"); ok || err != nil {
		t.Fatalf("GetItem(missing) = ok %v, err %v", ok, err)
	}

	if err := m.SetItem(ctx, "k1", "[1,2]"); err != nil {
		t.Fatalf("SetItem: %v", err)
	}
	v, ok, err := m.GetItem(ctx, "k1")
	if err != nil || !ok || v != "[1,2]" {
		t.Fatalf("GetItem = %q, %v, %v", v, ok, err)
	}

	if err := m.RemoveItem(ctx, "k1"); err != nil {
		t.Fatalf("RemoveItem: %v", err)
	}
	if _, ok, _ := m.GetItem(ctx, "k1"); ok {
		t.Fatal("key still present after RemoveItem")
	}
}

func TestMemory_TTL(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	m := NewMemory(time.Minute)
	m.now = func() time.Time { return now }

	_ = m.SetItem(ctx, "k", "v")
	now = now.Add(59 * time.Second)
	if _, ok, _ := m.GetItem(ctx, "k"); !ok {
		t.Fatal("key expired early")
	}
	now = now.Add(2 * time.Second)
	if _, ok, _ := m.GetItem(ctx, "k"); ok {
		t.Fatal("key survived its TTL")
	}
	if m.Len() != 0 {
		t.Fatalf("expired key not pruned, len = %d", m.Len())
	}
}

func TestMemory_SweepDropsUnreadExpiredKeys(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	m := NewMemory(time.Minute)
	m.now = func() time.Time { return now }

	_ = m.SetItem(ctx, "old-1", "a")
	_ = m.SetItem(ctx, "old-2", "b")
	now = now.Add(45 * time.Second)
	_ = m.SetItem(ctx, "fresh", "c")
	now = now.Add(30 * time.Second)

	if n := m.Sweep(); n != 2 {
		t.Fatalf("Sweep removed %d keys, want 2", n)
	}
	if m.Len() != 1 {
		t.Fatalf("len after sweep = %d, want 1", m.Len())
	}
	if _, ok, _ := m.GetItem(ctx, "fresh"); !ok {
		t.Fatal("unexpired key was swept")
	}
}

func TestMemory_StartSweeperRunsUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	now := time.Unix(1_700_000_000, 0)
	m := NewMemory(time.Second)
	m.now = func() time.Time { mu.Lock(); defer mu.Unlock(); return now }

	_ = m.SetItem(ctx, "k", "v")
	mu.Lock()
	now = now.Add(time.Hour)
	mu.Unlock()

	m.StartSweeper(ctx, 5*time.Millisecond)
	deadline := time.Now().Add(2 * time.Second)
	for m.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("sweeper never removed the expired key")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestGuarded_BlocksSensitiveValues(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory(0)
	g := Guard(mem, zap.NewNop().Sugar())

	err := g.SetItem(ctx, "profile", `{"password":"hunter2"}`)
	if !errors.Is(err, ErrSensitiveData) {
		t.Fatalf("err = %v, want ErrSensitiveData", err)
	}
	if mem.Len() != 0 {
		t.Fatal("sensitive value reached the backend")
	}

	if err := g.SetItem(ctx, "contactFormSubmissions:abc", "[1700000000000]"); err != nil {
		t.Fatalf("safe write refused: %v", err)
	}
	if v, ok, _ := g.GetItem(ctx, "contactFormSubmissions:abc"); !ok || v != "[1700000000000]" {
		t.Fatalf("GetItem through guard = %q, %v", v, ok)
	}
}
