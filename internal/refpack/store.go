package refpack

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// warmLoadConcurrency bounds parallel session loads during arena warm-up.
const warmLoadConcurrency = 4

// Store persists entity references across process restarts so sessions keep
// stable IDs.
type Store interface {
	// SaveSession upserts all references for one session.
	SaveSession(ctx context.Context, sessionID string, refs []EntityReference) error

	// LoadSession returns the persisted references for a session, in
	// assignment order. A missing session yields an empty slice, not an
	// error.
	LoadSession(ctx context.Context, sessionID string) ([]EntityReference, error)

	// Sessions lists all session IDs with persisted references.
	Sessions(ctx context.Context) ([]string, error)
}

// WarmArena loads every persisted session from the store into the arena,
// fetching sessions concurrently. Sessions beyond the arena capacity are
// evicted in arrival order; they reload lazily on next use.
func WarmArena(ctx context.Context, store Store, arena *Arena) error {
	ids, err := store.Sessions(ctx)
	if err != nil {
		return fmt.Errorf("refpack: warm arena: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(warmLoadConcurrency)
	for _, id := range ids {
		g.Go(func() error {
			refs, err := store.LoadSession(ctx, id)
			if err != nil {
				return fmt.Errorf("refpack: warm session %q: %w", id, err)
			}
			reg := NewRegistry(id)
			reg.Restore(refs)
			arena.Put(reg)
			return nil
		})
	}
	return g.Wait()
}
