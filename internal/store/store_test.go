package store

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"
)

func TestMemoryStorePutGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)
	if s.Seen(ctx, "k") {
		t.Fatal("empty store must not have k")
	}
	s.Put(ctx, "k", "v", time.Minute)
	if v, ok := s.Get(ctx, "k"); !ok || v != "v" {
		t.Errorf("expected v, got %q %v", v, ok)
	}
	if !s.Seen(ctx, "k") {
		t.Error("expected k to be seen")
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStore(10)
	s.now = func() time.Time { return now }

	s.Put(ctx, "idem", "42", 600*time.Second)
	s.Put(ctx, "forever", "x", 0)

	now = now.Add(599 * time.Second)
	if !s.Seen(ctx, "idem") {
		t.Error("expected key alive before ttl")
	}
	now = now.Add(time.Second)
	if s.Seen(ctx, "idem") {
		t.Error("expected key expired at ttl")
	}
	if !s.Seen(ctx, "forever") {
		t.Error("zero ttl must not expire")
	}
}

func TestMemoryStoreIncrWindow(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStore(10)
	s.now = func() time.Time { return now }

	for want := int64(1); want <= 3; want++ {
		n, err := s.Incr(ctx, "rl:a@b.de", time.Hour)
		if err != nil || n != want {
			t.Fatalf("Incr = %d, %v; want %d", n, err, want)
		}
		now = now.Add(10 * time.Minute)
	}
	// The window started at the first hit and does not slide.
	now = now.Add(31 * time.Minute)
	if n, _ := s.Incr(ctx, "rl:a@b.de", time.Hour); n != 1 {
		t.Errorf("expected fresh window, got %d", n)
	}
}

func TestMemoryStoreEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(3)
	s.Put(ctx, "a", "1", 0)
	s.Put(ctx, "b", "2", 0)
	s.Put(ctx, "c", "3", 0)
	s.Get(ctx, "a")
	s.Put(ctx, "d", "4", 0)

	if s.Seen(ctx, "b") {
		t.Error("expected b evicted")
	}
	for _, k := range []string{"a", "c", "d"} {
		if !s.Seen(ctx, k) {
			t.Errorf("expected %s kept", k)
		}
	}
	if s.Len() != 3 {
		t.Errorf("expected 3 entries, got %d", s.Len())
	}
}

func TestStoresAreIndependent(t *testing.T) {
	ctx := context.Background()
	st := NewStores(nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	if _, err := st.Auth.Incr(ctx, "login:rate:anna@example.com", time.Hour); err != nil {
		t.Fatalf("Incr: %v", err)
	}
	for i := 0; i < DefaultMaxEntries+100; i++ {
		st.Idempotency.Put(ctx, fmt.Sprintf("idem:briefing:%d", i), "{}", time.Hour)
	}

	n, _ := st.Auth.Incr(ctx, "login:rate:anna@example.com", time.Hour)
	if n != 2 {
		t.Errorf("login counter must survive an idempotency flood, got count %d", n)
	}
}
