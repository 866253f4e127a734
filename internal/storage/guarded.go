package storage

import (
	"context"

	"go.uber.org/zap"

	"github.com/yanizio/leadsite/internal/security"
)

// Guarded is the facade every writer uses.  Reads and removals pass through;
// writes whose value looks like it carries a credential are refused with
// ErrSensitiveData and never reach the backend.
type Guarded struct {
	next Store
	log  *zap.SugaredLogger
}

// Guard wraps next.  A nil logger falls back to the global one.
func Guard(next Store, log *zap.SugaredLogger) *Guarded {
	if log == nil {
		log = zap.S()
	}
	return &Guarded{next: next, log: log}
}

// GetItem implements Store.
func (g *Guarded) GetItem(ctx context.Context, key string) (string, bool, error) {
	return g.next.GetItem(ctx, key)
}

// SetItem implements Store.
func (g *Guarded) SetItem(ctx context.Context, key, value string) error {
	if !security.PreventSensitiveStorage(value) {
		g.log.Warnw("blocked sensitive storage write", "key", key)
		return ErrSensitiveData
	}
	return g.next.SetItem(ctx, key, value)
}

// RemoveItem implements Store.
func (g *Guarded) RemoveItem(ctx context.Context, key string) error {
	return g.next.RemoveItem(ctx, key)
}
