package refpack_test

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/ntbao/mythweaver/internal/refpack"
	"github.com/ntbao/mythweaver/internal/scoring"
	"github.com/ntbao/mythweaver/internal/token"
	"github.com/ntbao/mythweaver/pkg/state"
)

var refIDRe = regexp.MustCompile(`^REF_[A-Z]{2}_LEG_[0-9a-f]{8}$`)

func TestRegistry_AssignIdempotent(t *testing.T) {
	reg := refpack.NewRegistry("phien-1")
	e := state.Entity{Name: "Hắc Lang Vương", Type: state.EntityNPC, Description: "Yêu thú hung bạo."}

	first := reg.Assign(e, 10)
	if !refIDRe.MatchString(first.ID) {
		t.Fatalf("reference ID %q does not match expected format", first.ID)
	}
	if !strings.HasPrefix(first.ID, "REF_NP_") {
		t.Errorf("ID %q missing npc type prefix", first.ID)
	}

	// Same entity on a later turn keeps the ID even though the hash input
	// would differ.
	second := reg.Assign(e, 25)
	if second.ID != first.ID {
		t.Errorf("Assign not idempotent: %q then %q", first.ID, second.ID)
	}
	if reg.Len() != 1 {
		t.Errorf("Len = %d, want 1", reg.Len())
	}
}

func TestRegistry_SummaryRefreshed(t *testing.T) {
	reg := refpack.NewRegistry("phien-1")
	e := state.Entity{Name: "Vân Phi", Type: state.EntityCompanion, Realm: "Luyện Khí tầng 9"}

	reg.Assign(e, 1)
	e.Realm = "Trúc Cơ tầng 1"
	ref := reg.Assign(e, 2)

	if !strings.Contains(ref.Summary, "Trúc Cơ tầng 1") {
		t.Errorf("summary not refreshed: %q", ref.Summary)
	}
}

func TestRegistry_ByIDRoundTrip(t *testing.T) {
	reg := refpack.NewRegistry("phien-1")
	ref := reg.Assign(state.Entity{Name: "Thanh Vân Kiếm", Type: state.EntityItem}, 5)

	got, ok := reg.ByID(ref.ID)
	if !ok {
		t.Fatalf("ByID(%q) not found", ref.ID)
	}
	if got.Name != "Thanh Vân Kiếm" {
		t.Errorf("ByID resolved to %q", got.Name)
	}
	if _, ok := reg.ByID("REF_NP_LEG_00000000"); ok {
		t.Errorf("unknown ID resolved")
	}
}

func TestSummarize_Capped(t *testing.T) {
	e := state.Entity{
		Name:        "Cổ Tháp",
		Type:        state.EntityLocation,
		Location:    "trung tâm bí cảnh",
		Description: strings.Repeat("Tòa tháp cổ xưa chứa đầy cấm chế nguy hiểm. ", 20),
	}
	s := refpack.Summarize(e)
	if n := utf8.RuneCountInString(s); n > 120 {
		t.Fatalf("summary is %d runes, want <= 120", n)
	}
	if !strings.HasPrefix(s, "địa điểm") {
		t.Errorf("summary missing type label: %q", s)
	}
}

func compactInput() (*state.GameState, []scoring.EntityRelevance) {
	st := &state.GameState{Turn: 30, Entities: map[string]state.Entity{}, Party: []string{"Lý Thanh Vân"}}
	st.AddEntity(state.Entity{
		Name:       "Lý Thanh Vân",
		Type:       state.EntityPlayerCharacter,
		Realm:      "Trúc Cơ tầng 3",
		Motivation: "Báo thù cho sư phụ",
	})
	long := strings.Repeat("Trải qua trăm năm tu luyện trong hang sâu, lão quái thành danh nhờ một thân độc công quỷ dị. ", 5)
	st.AddEntity(state.Entity{
		Name:         "Độc Lão Quái",
		Type:         state.EntityNPC,
		Relationship: "kẻ thù truyền kiếp",
		Description:  long,
	})
	st.Memories = []state.Memory{
		{Text: "Sư phụ chết dưới tay Độc Lão Quái. Từ đó hắn ẩn danh tu luyện.", CreatedTurn: 2},
	}

	var ranked []scoring.EntityRelevance
	for _, e := range st.EntitiesInOrder() {
		ranked = append(ranked, scoring.EntityRelevance{Entity: e, Score: 80})
	}
	return st, ranked
}

func TestBuildCompact_SavesTokens(t *testing.T) {
	st, ranked := compactInput()
	est := token.NewEstimator(token.DefaultRatio)
	reg := refpack.NewRegistry("phien-1")

	c := refpack.BuildCompact(st, ranked, reg, est, 0)

	if len(c.References) != 2 {
		t.Fatalf("References = %d, want 2", len(c.References))
	}
	if c.Savings() <= 0 {
		t.Errorf("Savings = %d, want > 0 (original %d, compact %d)",
			c.Savings(), c.OriginalTokens, c.CompactTokens)
	}

	out := c.Render()
	if !strings.Contains(out, "[REF_") {
		t.Errorf("render missing reference IDs:\n%s", out)
	}
	if !strings.Contains(out, "kẻ thù truyền kiếp — Lý Thanh Vân") &&
		!strings.Contains(out, "Độc Lão Quái — kẻ thù truyền kiếp") {
		t.Errorf("relationship line missing:\n%s", out)
	}
}

func TestBuildCompact_MemoryLinesRankedAndTagged(t *testing.T) {
	st, ranked := compactInput()
	st.Memories = []state.Memory{
		{Text: "Gặp một tán tu vô danh trên đường.", Source: state.MemorySourceAuto, Category: state.MemorySocial, CreatedTurn: 1},
		{Text: "Sư phụ chết dưới tay Độc Lão Quái. Hắn thề báo thù.", Source: state.MemorySourceChronicle, Category: state.MemoryStory, Pinned: true, CreatedTurn: 1},
	}
	est := token.NewEstimator(token.DefaultRatio)
	reg := refpack.NewRegistry("phien-1")

	c := refpack.BuildCompact(st, ranked, reg, est, 0)
	if len(c.MemoryLines) != 2 {
		t.Fatalf("MemoryLines = %d, want 2", len(c.MemoryLines))
	}

	lineRe := regexp.MustCompile(`^\[[a-z]+\] \(\d+\) `)
	for _, l := range c.MemoryLines {
		if !lineRe.MatchString(l) {
			t.Errorf("memory line %q missing category tag or importance", l)
		}
	}
	// The pinned chronicle memory outscores the auto one and must lead,
	// regardless of snapshot order.
	if !strings.Contains(c.MemoryLines[0], "Sư phụ chết") {
		t.Errorf("highest-importance memory not first: %v", c.MemoryLines)
	}
	if strings.Contains(c.MemoryLines[0], "Hắn thề") {
		t.Errorf("memory line not truncated to its first sentence: %q", c.MemoryLines[0])
	}
}

func TestRegistry_MemoryReferences(t *testing.T) {
	reg := refpack.NewRegistry("phien-1")
	m := state.Memory{Text: "Lý Thanh Vân nhận được Thanh Vân Kiếm. Kiếm phát ra hàn khí.", CreatedTurn: 7}

	first := reg.AssignMemory(m)
	if !strings.HasPrefix(first.ID, "REF_ME_LEG_") {
		t.Fatalf("memory reference ID %q missing ME prefix", first.ID)
	}
	if first.Summary != "Lý Thanh Vân nhận được Thanh Vân Kiếm." {
		t.Errorf("Summary = %q, want first sentence", first.Summary)
	}

	second := reg.AssignMemory(m)
	if second.ID != first.ID {
		t.Errorf("AssignMemory not idempotent: %q then %q", first.ID, second.ID)
	}

	got, ok := reg.MemoryByID(first.ID)
	if !ok {
		t.Fatalf("MemoryByID(%q) not found", first.ID)
	}
	if got.CreatedTurn != 7 {
		t.Errorf("CreatedTurn = %d, want 7", got.CreatedTurn)
	}
	if _, ok := reg.MemoryByID("REF_ME_LEG_00000000"); ok {
		t.Errorf("unknown memory ID resolved")
	}

	// A memory carrying a pre-assigned identifier keeps it.
	ref := reg.AssignMemory(state.Memory{Text: "Khác chuyện.", CreatedTurn: 1, RefID: "REF_ME_LEG_deadbeef"})
	if ref.ID != "REF_ME_LEG_deadbeef" {
		t.Errorf("pre-assigned memory ID replaced: %q", ref.ID)
	}
}

func TestBuildCompact_SubCeiling(t *testing.T) {
	st, ranked := compactInput()
	est := token.NewEstimator(token.DefaultRatio)

	full := refpack.BuildCompact(st, ranked, refpack.NewRegistry("phien-1"), est, 0)
	limit := full.CompactTokens - 1

	reg := refpack.NewRegistry("phien-2")
	c := refpack.BuildCompact(st, ranked, reg, est, limit)

	if c.CompactTokens > limit {
		t.Fatalf("CompactTokens = %d exceeds sub-ceiling %d", c.CompactTokens, limit)
	}
	got := len(c.References) + len(c.MemoryLines) + len(c.RelationshipLines) + len(c.RecentEvents)
	want := len(full.References) + len(full.MemoryLines) + len(full.RelationshipLines) + len(full.RecentEvents)
	if got >= want {
		t.Errorf("rendered %d items under the ceiling, unbounded build has %d", got, want)
	}
	// Dropped entities still receive identifiers so IDs stay stable once
	// budget frees up.
	if reg.Len() != len(ranked) {
		t.Errorf("registry holds %d entity references, want %d", reg.Len(), len(ranked))
	}
}

func TestBuildCompact_StableIDsAcrossTurns(t *testing.T) {
	st, ranked := compactInput()
	est := token.NewEstimator(token.DefaultRatio)
	reg := refpack.NewRegistry("phien-1")

	first := refpack.BuildCompact(st, ranked, reg, est, 0)
	st.Turn = 31
	second := refpack.BuildCompact(st, ranked, reg, est, 0)

	for i := range first.References {
		if first.References[i].ID != second.References[i].ID {
			t.Errorf("entity %q changed ID between turns: %q then %q",
				first.References[i].Name, first.References[i].ID, second.References[i].ID)
		}
	}
}

func TestArena_SessionIsolationAndEviction(t *testing.T) {
	arena, err := refpack.NewArena(2)
	if err != nil {
		t.Fatal(err)
	}

	a := arena.Session("phien-a")
	a.Assign(state.Entity{Name: "Vân Phi", Type: state.EntityCompanion}, 1)
	b := arena.Session("phien-b")
	if b.Len() != 0 {
		t.Fatalf("new session sees %d references from another session", b.Len())
	}

	// Third session evicts the least recently used.
	arena.Session("phien-c")
	if arena.Len() != 2 {
		t.Errorf("Len = %d, want 2 after eviction", arena.Len())
	}
}

func TestArena_NotifyTracksResidency(t *testing.T) {
	arena, err := refpack.NewArena(2)
	if err != nil {
		t.Fatal(err)
	}
	resident := 0
	arena.Notify(func(delta int) { resident += delta })

	arena.Session("phien-a")
	arena.Session("phien-b")
	arena.Session("phien-a") // already resident
	if resident != 2 {
		t.Fatalf("resident = %d after two sessions, want 2", resident)
	}

	// Eviction of the least recently used balances the count.
	arena.Session("phien-c")
	if resident != 2 {
		t.Errorf("resident = %d after eviction, want 2", resident)
	}

	// Replacing a resident session changes nothing.
	arena.Put(refpack.NewRegistry("phien-c"))
	if resident != 2 {
		t.Errorf("resident = %d after replacement, want 2", resident)
	}
}

func TestWarmArena(t *testing.T) {
	ctx := context.Background()
	store := refpack.NewMemStore()
	refs := []refpack.EntityReference{
		{ID: "REF_NP_LEG_0a1b2c3d", Name: "Hắc Lang Vương", Type: state.EntityNPC, Summary: "NPC; Hắc Phong Cốc"},
	}
	if err := store.SaveSession(ctx, "phien-1", refs); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveSession(ctx, "phien-2", nil); err != nil {
		t.Fatal(err)
	}

	arena, err := refpack.NewArena(8)
	if err != nil {
		t.Fatal(err)
	}
	if err := refpack.WarmArena(ctx, store, arena); err != nil {
		t.Fatal(err)
	}

	reg := arena.Session("phien-1")
	got, ok := reg.ByID("REF_NP_LEG_0a1b2c3d")
	if !ok {
		t.Fatalf("warmed session missing persisted reference")
	}
	if got.Name != "Hắc Lang Vương" {
		t.Errorf("restored reference resolves to %q", got.Name)
	}

	// A restored entity keeps its persisted ID on re-assignment.
	ref := reg.Assign(state.Entity{Name: "Hắc Lang Vương", Type: state.EntityNPC}, 99)
	if ref.ID != "REF_NP_LEG_0a1b2c3d" {
		t.Errorf("re-assignment replaced persisted ID: %q", ref.ID)
	}
}
