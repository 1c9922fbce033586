package refpack

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrStoreUnavailable is returned by [GuardedStore] while the underlying
// store is considered down and the retry window has not elapsed.
var ErrStoreUnavailable = errors.New("refpack: reference store unavailable")

const (
	guardMaxFailures = 5
	guardRetryAfter  = 30 * time.Second
	guardProbeBudget = 3
)

// GuardedStore wraps a [Store] with a three-state breaker so a failing
// database cannot slow down every prompt build. After guardMaxFailures
// consecutive errors calls fail fast with [ErrStoreUnavailable]; after
// guardRetryAfter a limited number of probe calls are let through, and the
// store is considered healthy again once guardProbeBudget of them succeed.
type GuardedStore struct {
	inner Store

	mu          sync.Mutex
	open        bool
	failures    int
	lastFailure time.Time
	probes      int
}

var _ Store = (*GuardedStore)(nil)

// Guard wraps store. A nil store is returned unchanged.
func Guard(store Store) Store {
	if store == nil {
		return nil
	}
	return &GuardedStore{inner: store}
}

func (g *GuardedStore) SaveSession(ctx context.Context, sessionID string, refs []EntityReference) error {
	return g.call(func() error { return g.inner.SaveSession(ctx, sessionID, refs) })
}

func (g *GuardedStore) LoadSession(ctx context.Context, sessionID string) ([]EntityReference, error) {
	var refs []EntityReference
	err := g.call(func() error {
		var err error
		refs, err = g.inner.LoadSession(ctx, sessionID)
		return err
	})
	return refs, err
}

func (g *GuardedStore) Sessions(ctx context.Context) ([]string, error) {
	var ids []string
	err := g.call(func() error {
		var err error
		ids, err = g.inner.Sessions(ctx)
		return err
	})
	return ids, err
}

// Healthy reports whether calls are currently being forwarded.
func (g *GuardedStore) Healthy() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return !g.open || time.Since(g.lastFailure) >= guardRetryAfter
}

func (g *GuardedStore) call(fn func() error) error {
	g.mu.Lock()
	probing := false
	if g.open {
		if time.Since(g.lastFailure) < guardRetryAfter {
			g.mu.Unlock()
			return ErrStoreUnavailable
		}
		if g.probes >= guardProbeBudget {
			g.mu.Unlock()
			return ErrStoreUnavailable
		}
		g.probes++
		probing = true
	}
	g.mu.Unlock()

	err := fn()

	g.mu.Lock()
	defer g.mu.Unlock()
	if err != nil {
		g.lastFailure = time.Now()
		if probing {
			// A failed probe keeps the store down and restarts the window.
			g.probes = 0
			slog.Warn("reference store probe failed, staying unavailable")
			return err
		}
		g.failures++
		if !g.open && g.failures >= guardMaxFailures {
			g.open = true
			g.probes = 0
			slog.Warn("reference store marked unavailable",
				"consecutive_failures", g.failures)
		}
		return err
	}

	if probing {
		if g.probes >= guardProbeBudget {
			g.open = false
			g.failures = 0
			g.probes = 0
			slog.Info("reference store recovered")
		}
		return nil
	}
	g.failures = 0
	return nil
}
