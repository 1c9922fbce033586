package budget_test

import (
	"math"
	"testing"

	"github.com/ntbao/mythweaver/internal/budget"
	"github.com/ntbao/mythweaver/internal/scoring"
	"github.com/ntbao/mythweaver/pkg/state"
)

func defaultAllocator() budget.Allocator {
	return budget.NewAllocator(budget.Config{MaxTokens: 90000, Buffer: 10000})
}

func rankedWithScores(scores ...int) []scoring.EntityRelevance {
	out := make([]scoring.EntityRelevance, len(scores))
	for i, s := range scores {
		out[i] = scoring.EntityRelevance{Score: s}
	}
	return out
}

func activeQuestState() *state.GameState {
	return &state.GameState{
		Quests: []state.Quest{{Name: "Diệt Sói", Status: state.QuestActive}},
	}
}

// TestAllocate_BaseWeights verifies the 0.50/0.25/0.15/0.10 split against
// the 80000-token reference ceiling.
func TestAllocate_BaseWeights(t *testing.T) {
	a := defaultAllocator()
	b := a.Allocate(rankedWithScores(40, 30), activeQuestState(), 0)

	if b.Critical != 40000 {
		t.Errorf("Critical = %d, want 40000", b.Critical)
	}
	if b.Important != 20000 {
		t.Errorf("Important = %d, want 20000", b.Important)
	}
	if b.Contextual != 12000 {
		t.Errorf("Contextual = %d, want 12000", b.Contextual)
	}
	if b.Supplemental != 8000 {
		t.Errorf("Supplemental = %d, want 8000", b.Supplemental)
	}
}

// TestAllocate_Invariant verifies the budget invariant: buckets are
// non-negative and sum to at most the ceiling, across adjustment
// combinations.
func TestAllocate_Invariant(t *testing.T) {
	a := defaultAllocator()

	cases := []struct {
		name   string
		ranked []scoring.EntityRelevance
		st     *state.GameState
	}{
		{"simple", rankedWithScores(10), activeQuestState()},
		{"many high scorers", rankedWithScores(80, 90, 75, 99, 71, 85, 72), activeQuestState()},
		{"no quest", rankedWithScores(10), &state.GameState{}},
		{"both shifts", rankedWithScores(80, 90, 75, 99, 71, 85), &state.GameState{}},
		{"nil state", nil, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := a.Allocate(tc.ranked, tc.st, 0)
			for _, v := range []int{b.Critical, b.Important, b.Contextual, b.Supplemental} {
				if v < 0 {
					t.Fatalf("negative bucket: %+v", b)
				}
			}
			if b.Total() > a.Ceiling() {
				t.Errorf("total %d exceeds ceiling %d", b.Total(), a.Ceiling())
			}
		})
	}
}

// TestAllocate_EntityComplexityShift verifies the >5-high-scorers shift:
// +0.10 critical, −0.05 important.
func TestAllocate_EntityComplexityShift(t *testing.T) {
	a := defaultAllocator()
	ranked := rankedWithScores(80, 90, 75, 99, 71, 85) // 6 above 70

	crit, imp, _, _ := a.Weights(ranked, activeQuestState())
	if math.Abs(crit-0.60) > 1e-9 {
		t.Errorf("critical weight = %v, want 0.60", crit)
	}
	if math.Abs(imp-0.20) > 1e-9 {
		t.Errorf("important weight = %v, want 0.20", imp)
	}

	// Exactly 5 high scorers must not trigger the shift.
	crit, _, _, _ = a.Weights(rankedWithScores(80, 90, 75, 99, 71), activeQuestState())
	if math.Abs(crit-0.50) > 1e-9 {
		t.Errorf("critical weight = %v, want 0.50 with only 5 high scorers", crit)
	}
}

// TestAllocate_QuestShift verifies the no-active-quest shift: +0.05
// critical, −0.05 important.
func TestAllocate_QuestShift(t *testing.T) {
	a := defaultAllocator()

	crit, imp, _, _ := a.Weights(nil, &state.GameState{})
	if math.Abs(crit-0.55) > 1e-9 {
		t.Errorf("critical weight = %v, want 0.55", crit)
	}
	if math.Abs(imp-0.20) > 1e-9 {
		t.Errorf("important weight = %v, want 0.20", imp)
	}

	// A completed quest does not count as active.
	st := &state.GameState{Quests: []state.Quest{{Name: "x", Status: state.QuestCompleted}}}
	crit, _, _, _ = a.Weights(nil, st)
	if math.Abs(crit-0.55) > 1e-9 {
		t.Errorf("critical weight = %v, want 0.55 with no active quest", crit)
	}
}

// TestAllocate_BothShifts verifies the two adjustments compose.
func TestAllocate_BothShifts(t *testing.T) {
	a := defaultAllocator()
	ranked := rankedWithScores(80, 90, 75, 99, 71, 85)

	crit, imp, _, _ := a.Weights(ranked, &state.GameState{})
	if math.Abs(crit-0.65) > 1e-9 {
		t.Errorf("critical weight = %v, want 0.65", crit)
	}
	if math.Abs(imp-0.15) > 1e-9 {
		t.Errorf("important weight = %v, want 0.15", imp)
	}
}

// TestAllocate_ShiftClampsToCeiling pins the over-allocation case: the
// entity-complexity shift yields weights 0.60/0.20/0.15/0.10 (sum 1.05),
// whose raw buckets against the 80000 ceiling are 48000+16000+12000+8000 =
// 84000. The 4000 overshoot must come out of the supplemental bucket, and
// the high-priority buckets must keep their shifted shares.
func TestAllocate_ShiftClampsToCeiling(t *testing.T) {
	a := defaultAllocator()
	ranked := rankedWithScores(80, 90, 75, 99, 71, 85) // 6 above 70

	b := a.Allocate(ranked, activeQuestState(), 0)

	if b.Critical != 48000 {
		t.Errorf("Critical = %d, want 48000", b.Critical)
	}
	if b.Important != 16000 {
		t.Errorf("Important = %d, want 16000", b.Important)
	}
	if b.Contextual != 12000 {
		t.Errorf("Contextual = %d, want 12000", b.Contextual)
	}
	if b.Supplemental != 4000 {
		t.Errorf("Supplemental = %d, want 4000 after clamping", b.Supplemental)
	}
	if b.Total() > a.Ceiling() {
		t.Errorf("total %d exceeds ceiling %d", b.Total(), a.Ceiling())
	}
}

// TestAllocate_ConsumedTokens verifies already-consumed tokens shrink the
// splittable ceiling.
func TestAllocate_ConsumedTokens(t *testing.T) {
	a := defaultAllocator()
	b := a.Allocate(nil, activeQuestState(), 40000)
	if b.Critical != 20000 {
		t.Errorf("Critical = %d, want 20000 after consuming half the ceiling", b.Critical)
	}

	if b := a.Allocate(nil, activeQuestState(), 1_000_000); b.Total() != 0 {
		t.Errorf("over-consumed allocation = %+v, want all-zero", b)
	}
}

// TestAllocate_ConfigurableWeights verifies custom weights are honoured
// rather than compiled-in constants.
func TestAllocate_ConfigurableWeights(t *testing.T) {
	a := budget.NewAllocator(budget.Config{
		MaxTokens:          10000,
		Buffer:             0,
		CriticalWeight:     0.40,
		ImportantWeight:    0.30,
		ContextualWeight:   0.20,
		SupplementalWeight: 0.10,
	})
	b := a.Allocate(nil, activeQuestState(), 0)
	if b.Critical != 4000 || b.Important != 3000 || b.Contextual != 2000 || b.Supplemental != 1000 {
		t.Errorf("custom weights not honoured: %+v", b)
	}
}
