package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/robalobadob/explosion-station/internal/commentary"
	"github.com/robalobadob/explosion-station/internal/game"
	"github.com/robalobadob/explosion-station/internal/rules"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

func newTable(id string, c *clock) (*game.Engine, *commentary.Throttler) {
	r := rules.Default()
	r.Commentary.FallbackLines = []string{"line"}
	th := commentary.NewThrottler(commentary.Offline{}, r.Commentary)
	return game.New(id, r, th, game.WithClock(c.Now)), th
}

func TestMemoryStoreSaveGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	c := &clock{t: time.Unix(1000, 0)}
	e, _ := newTable("a", c)

	if _, err := s.Get(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.Save(ctx, e); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	got, err := s.Get(ctx, "a")
	if err != nil || got != e {
		t.Fatalf("Get() = %v, %v", got, err)
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d", s.Len())
	}
}

func TestMemoryStoreDeleteClosesTable(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	c := &clock{t: time.Unix(1000, 0)}
	e, th := newTable("a", c)
	_ = s.Save(ctx, e)

	if err := s.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if _, err := s.Get(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("table still present after delete")
	}
	if th.Request(commentary.Request{Force: true}) {
		t.Error("deleted table still accepts commentary")
	}
	if err := s.Delete(ctx, "missing"); err != nil {
		t.Errorf("deleting a missing id: %v", err)
	}
}

func TestMemoryStoreSweep(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	c := &clock{t: time.Unix(1000, 0)}

	idle, _ := newTable("idle", c)
	_ = s.Save(ctx, idle)

	c.Set(time.Unix(5000, 0))
	busy, _ := newTable("busy", c)
	_ = s.Save(ctx, busy)

	if n := s.Sweep(ctx, time.Unix(3000, 0)); n != 1 {
		t.Fatalf("Sweep() evicted %d, want 1", n)
	}
	if _, err := s.Get(ctx, "idle"); !errors.Is(err, ErrNotFound) {
		t.Error("idle table survived sweep")
	}
	if _, err := s.Get(ctx, "busy"); err != nil {
		t.Errorf("busy table evicted: %v", err)
	}

	// Activity refreshes the idle clock.
	c.Set(time.Unix(9000, 0))
	if err := busy.Start("Ana"); err != nil {
		t.Fatal(err)
	}
	if n := s.Sweep(ctx, time.Unix(8000, 0)); n != 0 {
		t.Errorf("active table swept")
	}
}
