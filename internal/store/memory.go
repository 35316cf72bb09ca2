// internal/store/memory.go
//
// In-memory implementation of the Store interface.
// Tables live only as long as the process; nothing is written to disk.
//
// Characteristics:
//   - Stores *game.Engine objects keyed by ID in a map.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - Sweep evicts tables idle for longer than a TTL and closes them so
//     their pending commentary is discarded.
//   - Errors are returned for missing IDs on Get().

package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/explosion-station/internal/game"
)

// ErrNotFound is returned by Get for unknown or evicted tables.
var ErrNotFound = errors.New("not found")

// Store defines the registry of live tables.
type Store interface {
	// Save adds or replaces a table.
	Save(ctx context.Context, e *game.Engine) error

	// Get retrieves a table by ID.
	// Returns ErrNotFound if the table does not exist.
	Get(ctx context.Context, id string) (*game.Engine, error)

	// Delete closes and removes a table. Missing IDs are ignored.
	Delete(ctx context.Context, id string) error

	// Sweep evicts tables idle since before cutoff and reports how many.
	Sweep(ctx context.Context, cutoff time.Time) int

	// Len reports the number of live tables.
	Len() int
}

// memory is an in-memory map-based Store implementation.
type memory struct {
	mu     sync.RWMutex            // guards tables map
	tables map[string]*game.Engine // keyed by Engine.ID
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return &memory{tables: make(map[string]*game.Engine)}
}

func (m *memory) Save(ctx context.Context, e *game.Engine) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.tables[e.ID]; ok && old != e {
		old.Close()
	}
	m.tables[e.ID] = e
	return nil
}

func (m *memory) Get(ctx context.Context, id string) (*game.Engine, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if e, ok := m.tables[id]; ok {
		return e, nil
	}
	return nil, ErrNotFound
}

func (m *memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	e, ok := m.tables[id]
	delete(m.tables, id)
	m.mu.Unlock()
	if ok {
		e.Close()
	}
	return nil
}

func (m *memory) Sweep(ctx context.Context, cutoff time.Time) int {
	m.mu.Lock()
	var stale []*game.Engine
	for id, e := range m.tables {
		if e.IdleSince().Before(cutoff) {
			stale = append(stale, e)
			delete(m.tables, id)
		}
	}
	m.mu.Unlock()

	for _, e := range stale {
		e.Close()
	}
	if len(stale) > 0 {
		log.Info().Int("evicted", len(stale)).Msg("idle tables swept")
	}
	return len(stale)
}

func (m *memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tables)
}

// RunSweeper evicts idle tables every interval until ctx is done.
func RunSweeper(ctx context.Context, s Store, ttl, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			s.Sweep(ctx, now.Add(-ttl))
		}
	}
}
