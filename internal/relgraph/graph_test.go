package relgraph_test

import (
	"testing"

	"github.com/ntbao/mythweaver/internal/relgraph"
	"github.com/ntbao/mythweaver/pkg/state"
)

func snapshotWithEntities(entities ...state.Entity) *state.GameState {
	g := &state.GameState{}
	for _, e := range entities {
		g.AddEntity(e)
	}
	return g
}

// TestBuild_ExplicitFields verifies owner, location, and skill edges.
func TestBuild_ExplicitFields(t *testing.T) {
	g := snapshotWithEntities(
		state.Entity{Name: "Thanh Kiếm", Type: state.EntityItem, Owner: "Lão Trần"},
		state.Entity{Name: "Lão Trần", Type: state.EntityNPC, Location: "Thôn Tây"},
		state.Entity{Name: "Thôn Tây", Type: state.EntityLocation},
		state.Entity{Name: "Vân Phi", Type: state.EntityCompanion, Skills: []string{"Kiếm Pháp"}},
		state.Entity{Name: "Kiếm Pháp", Type: state.EntitySkill},
	)

	graph := relgraph.Build(g)

	if !graph.Adjacent("Thanh Kiếm", "Lão Trần") {
		t.Error("owner edge missing")
	}
	if !graph.Adjacent("Lão Trần", "Thôn Tây") {
		t.Error("location edge missing")
	}
	if !graph.Adjacent("Vân Phi", "Kiếm Pháp") {
		t.Error("skill edge missing")
	}
	// Edges are undirected.
	if !graph.Adjacent("Lão Trần", "Thanh Kiếm") {
		t.Error("owner edge should be undirected")
	}
}

// TestBuild_CoMentions verifies description-based edges, case-insensitively.
func TestBuild_CoMentions(t *testing.T) {
	g := snapshotWithEntities(
		state.Entity{Name: "Con Sói", Type: state.EntityNPC, Description: "Một con quái thú rình rập quanh thôn tây."},
		state.Entity{Name: "Thôn Tây", Type: state.EntityLocation},
	)

	graph := relgraph.Build(g)
	if !graph.Adjacent("Con Sói", "Thôn Tây") {
		t.Error("co-mention edge missing despite case difference")
	}
}

// TestBuild_Degenerate verifies empty and nil snapshots yield empty graphs
// and malformed entities are skipped.
func TestBuild_Degenerate(t *testing.T) {
	if got := relgraph.Build(nil); len(got) != 0 {
		t.Errorf("Build(nil) = %d nodes, want 0", len(got))
	}
	if got := relgraph.Build(&state.GameState{}); len(got) != 0 {
		t.Errorf("Build(empty) = %d nodes, want 0", len(got))
	}

	g := snapshotWithEntities(state.Entity{Name: "", Type: state.EntityNPC, Owner: "Ai Đó"})
	if got := relgraph.Build(g); len(got) != 0 {
		t.Errorf("nameless entity produced %d nodes, want 0", len(got))
	}
}

// TestBuild_NoSelfEdges verifies an entity never relates to itself even when
// its own name appears in its description.
func TestBuild_NoSelfEdges(t *testing.T) {
	g := snapshotWithEntities(
		state.Entity{Name: "Vân Phi", Type: state.EntityCompanion, Description: "Vân Phi là một kiếm khách lang thang."},
	)
	graph := relgraph.Build(g)
	if graph.Adjacent("Vân Phi", "Vân Phi") {
		t.Error("self edge present")
	}
}
