// internal/storage/storage.go
//
// Durable key-value storage for small per-visitor state.
//
// Context
// -------
// The rate limiter keeps a JSON list of submission timestamps per visitor.
// Store is the narrow string-in, string-out contract it needs, shaped after
// the browser's localStorage (getItem, setItem, removeItem) with a context
// and an error added.  Two backends ship:
//
//   • Memory  : process-local map, used in development and tests.
//   • Redis   : shared across instances, keys expire after a TTL.
//
// Callers that write must go through Guarded, which refuses any value that
// looks like a credential.  Nothing patches the backends themselves.
//
// Notes
// -----
// • Oxford commas, two spaces after periods.
package storage

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrSensitiveData is returned by Guarded.SetItem when the value trips the
// sensitive-key heuristic.
var ErrSensitiveData = errors.New("storage: refusing to store sensitive-looking data")

// Store is a string key-value store.  GetItem reports ok == false for a
// missing key; that is not an error.
type Store interface {
	GetItem(ctx context.Context, key string) (value string, ok bool, err error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error
}

//
// Memory backend
//

type memItem struct {
	val string
	exp time.Time // zero → never
}

// Memory is a concurrency-safe in-process Store.  Zero value is unusable;
// construct with NewMemory.
type Memory struct {
	mu    sync.RWMutex
	items map[string]memItem
	ttl   time.Duration
	now   func() time.Time
}

// NewMemory returns a Memory store.  ttl > 0 expires keys that long after
// their last write.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{items: make(map[string]memItem), ttl: ttl, now: time.Now}
}

// GetItem implements Store.
func (m *Memory) GetItem(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	it, ok := m.items[key]
	m.mu.RUnlock()
	if !ok {
		return "", false, nil
	}
	if !it.exp.IsZero() && m.now().After(it.exp) {
		m.mu.Lock()
		delete(m.items, key)
		m.mu.Unlock()
		return "", false, nil
	}
	return it.val, true, nil
}

// SetItem implements Store.
func (m *Memory) SetItem(_ context.Context, key, value string) error {
	it := memItem{val: value}
	if m.ttl > 0 {
		it.exp = m.now().Add(m.ttl)
	}
	m.mu.Lock()
	m.items[key] = it
	m.mu.Unlock()
	return nil
}

// RemoveItem implements Store.
func (m *Memory) RemoveItem(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.items, key)
	m.mu.Unlock()
	return nil
}

// Sweep drops every expired key and reports how many it removed.
func (m *Memory) Sweep() int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int
	for k, it := range m.items {
		if !it.exp.IsZero() && now.After(it.exp) {
			delete(m.items, k)
			n++
		}
	}
	return n
}

// StartSweeper runs Sweep every interval until ctx is cancelled.  Keys that
// are written once and never read again would otherwise stay in the map for
// the life of the process.
func (m *Memory) StartSweeper(ctx context.Context, every time.Duration) {
	if every <= 0 || m.ttl <= 0 {
		return
	}
	t := time.NewTicker(every)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				m.Sweep()
			}
		}
	}()
}

// Len reports the number of keys currently held, expired or not.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}
