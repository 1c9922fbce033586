package refpack_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ntbao/mythweaver/internal/refpack"
)

// flakyStore fails every call until healed.
type flakyStore struct {
	*refpack.MemStore
	failing bool
	calls   int
}

var errDown = errors.New("connection refused")

func newFlakyStore(failing bool) *flakyStore {
	return &flakyStore{MemStore: refpack.NewMemStore(), failing: failing}
}

func (f *flakyStore) SaveSession(ctx context.Context, id string, refs []refpack.EntityReference) error {
	f.calls++
	if f.failing {
		return errDown
	}
	return f.MemStore.SaveSession(ctx, id, refs)
}

func TestGuardedStore_FailsFastAfterRepeatedErrors(t *testing.T) {
	inner := newFlakyStore(true)
	g := refpack.Guard(inner)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := g.SaveSession(ctx, "phien-1", nil); !errors.Is(err, errDown) {
			t.Fatalf("call %d: err = %v, want %v", i, err, errDown)
		}
	}
	if inner.calls != 5 {
		t.Fatalf("inner calls = %d, want 5", inner.calls)
	}

	// The breaker is now open: the store must not be touched again.
	if err := g.SaveSession(ctx, "phien-1", nil); !errors.Is(err, refpack.ErrStoreUnavailable) {
		t.Fatalf("err = %v, want ErrStoreUnavailable", err)
	}
	if inner.calls != 5 {
		t.Errorf("inner calls = %d after open breaker, want 5", inner.calls)
	}
}

func TestGuardedStore_ForwardsWhileHealthy(t *testing.T) {
	inner := newFlakyStore(false)
	g := refpack.Guard(inner)
	ctx := context.Background()

	refs := []refpack.EntityReference{{ID: "REF_NP_LEG_0a1b2c3d", Name: "Hắc Lang Vương"}}
	if err := g.SaveSession(ctx, "phien-1", refs); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	got, err := g.LoadSession(ctx, "phien-1")
	if err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	if len(got) != 1 || got[0].ID != "REF_NP_LEG_0a1b2c3d" {
		t.Errorf("loaded %+v, want the saved reference", got)
	}
}

func TestGuardedStore_SingleFailureDoesNotTrip(t *testing.T) {
	inner := newFlakyStore(true)
	g := refpack.Guard(inner).(*refpack.GuardedStore)
	ctx := context.Background()

	_ = g.SaveSession(ctx, "phien-1", nil)
	inner.failing = false
	if err := g.SaveSession(ctx, "phien-1", nil); err != nil {
		t.Fatalf("SaveSession after recovery: %v", err)
	}
	if !g.Healthy() {
		t.Error("store reported unhealthy after a single transient failure")
	}
}

func TestGuardNil(t *testing.T) {
	if got := refpack.Guard(nil); got != nil {
		t.Errorf("Guard(nil) = %v, want nil", got)
	}
}
