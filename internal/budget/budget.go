// Package budget splits the total prompt token ceiling into the four
// prioritised section buckets.
//
// Allocation starts from fixed weight fractions and shifts weight toward the
// critical bucket when the state is complex (many highly relevant entities)
// or sparse (no active quest to spend the important bucket on). The four
// buckets may sum to slightly less than the ceiling because each is floored
// independently — accepted slack. When the shifts push the weight sum above
// 1 the overshoot is clawed back from the lowest-priority buckets so the
// total never exceeds the ceiling.
package budget

import (
	"math"

	"github.com/ntbao/mythweaver/internal/scoring"
	"github.com/ntbao/mythweaver/pkg/state"
)

// Default allocation weights. These are configuration defaults, not
// hardcoded behaviour — construct an [Allocator] with different values to
// tune without redeploying.
const (
	DefaultCriticalWeight     = 0.50
	DefaultImportantWeight    = 0.25
	DefaultContextualWeight   = 0.15
	DefaultSupplementalWeight = 0.10
)

// Complexity adjustment defaults.
const (
	// DefaultHighScoreThreshold is the relevance score above which an entity
	// counts toward the complexity shift.
	DefaultHighScoreThreshold = 70

	// DefaultHighScoreCount is how many high scorers trigger the shift
	// (strictly more than this).
	DefaultHighScoreCount = 5

	// Entity-complexity shift: weight moved to critical / taken from
	// important.
	entityShiftCritical  = 0.10
	entityShiftImportant = 0.05

	// No-active-quest shift.
	questShiftCritical  = 0.05
	questShiftImportant = 0.05
)

// TokenBudget is the per-section token allocation. All values are
// non-negative and sum to at most the ceiling the allocator was given.
type TokenBudget struct {
	Critical     int
	Important    int
	Contextual   int
	Supplemental int
}

// Total returns the summed allocation.
func (b TokenBudget) Total() int {
	return b.Critical + b.Important + b.Contextual + b.Supplemental
}

// Allocator computes token budgets. Construct with [NewAllocator]; the zero
// value allocates nothing.
type Allocator struct {
	maxTokens int
	buffer    int

	critical     float64
	important    float64
	contextual   float64
	supplemental float64

	highScoreThreshold int
	highScoreCount     int
}

// Config configures an [Allocator]. Zero weight fields fall back to the
// package defaults; MaxTokens and Buffer are taken as given.
type Config struct {
	// MaxTokens is the total per-turn token ceiling.
	MaxTokens int

	// Buffer is the safety margin below MaxTokens reserved for estimator
	// slack.
	Buffer int

	// Section weight fractions. Must sum to 1.0 when all four are set;
	// all-zero selects the defaults.
	CriticalWeight     float64
	ImportantWeight    float64
	ContextualWeight   float64
	SupplementalWeight float64

	// HighScoreThreshold and HighScoreCount tune the entity-complexity
	// shift. Zero values select the defaults.
	HighScoreThreshold int
	HighScoreCount     int
}

// NewAllocator creates an [Allocator] from cfg.
func NewAllocator(cfg Config) Allocator {
	a := Allocator{
		maxTokens:          cfg.MaxTokens,
		buffer:             cfg.Buffer,
		critical:           cfg.CriticalWeight,
		important:          cfg.ImportantWeight,
		contextual:         cfg.ContextualWeight,
		supplemental:       cfg.SupplementalWeight,
		highScoreThreshold: cfg.HighScoreThreshold,
		highScoreCount:     cfg.HighScoreCount,
	}
	if a.critical == 0 && a.important == 0 && a.contextual == 0 && a.supplemental == 0 {
		a.critical = DefaultCriticalWeight
		a.important = DefaultImportantWeight
		a.contextual = DefaultContextualWeight
		a.supplemental = DefaultSupplementalWeight
	}
	if a.highScoreThreshold == 0 {
		a.highScoreThreshold = DefaultHighScoreThreshold
	}
	if a.highScoreCount == 0 {
		a.highScoreCount = DefaultHighScoreCount
	}
	return a
}

// Ceiling returns the usable token ceiling: MaxTokens minus the safety
// buffer, floored at zero.
func (a Allocator) Ceiling() int {
	c := a.maxTokens - a.buffer
	if c < 0 {
		return 0
	}
	return c
}

// Allocate computes the budget for one prompt build.
//
// consumed is the token count already spent outside the four sections
// (framing, guidance); it is subtracted from the ceiling before splitting.
// Adjustments are applied in order and clamp at zero — no weight ever goes
// negative regardless of configuration.
func (a Allocator) Allocate(ranked []scoring.EntityRelevance, st *state.GameState, consumed int) TokenBudget {
	ceiling := a.Ceiling() - consumed
	if ceiling <= 0 {
		return TokenBudget{}
	}

	critical, important, contextual, supplemental := a.Weights(ranked, st)

	b := TokenBudget{
		Critical:     bucket(ceiling, critical),
		Important:    bucket(ceiling, important),
		Contextual:   bucket(ceiling, contextual),
		Supplemental: bucket(ceiling, supplemental),
	}

	// The entity-complexity shift moves more weight onto critical than it
	// takes from important, so adjusted weights can sum above 1 and the
	// buckets would overshoot the ceiling. Claw the overshoot back from the
	// lowest-priority buckets upward; the critical allocation is touched
	// last so the shift keeps its intent.
	if over := b.Total() - ceiling; over > 0 {
		for _, p := range []*int{&b.Supplemental, &b.Contextual, &b.Important, &b.Critical} {
			cut := min(over, *p)
			*p -= cut
			over -= cut
			if over == 0 {
				break
			}
		}
	}
	return b
}

// Weights returns the adjusted weight fractions that [Allocator.Allocate]
// would use for the given inputs. Exposed for observability and tests.
func (a Allocator) Weights(ranked []scoring.EntityRelevance, st *state.GameState) (critical, important, contextual, supplemental float64) {
	critical, important = a.critical, a.important
	contextual, supplemental = a.contextual, a.supplemental
	if a.countHighScorers(ranked) > a.highScoreCount {
		critical += entityShiftCritical
		important -= entityShiftImportant
	}
	if st == nil || st.ActiveQuest() == nil {
		critical += questShiftCritical
		important -= questShiftImportant
	}
	if important < 0 {
		important = 0
	}
	return critical, important, contextual, supplemental
}

func (a Allocator) countHighScorers(ranked []scoring.EntityRelevance) int {
	n := 0
	for _, r := range ranked {
		if r.Score > a.highScoreThreshold {
			n++
		}
	}
	return n
}

// bucket floors ceiling × weight, clamping negative weights to zero. A tiny
// epsilon absorbs binary-fraction noise so 0.15 × 80000 floors to 12000, not
// 11999.
func bucket(ceiling int, weight float64) int {
	if weight <= 0 {
		return 0
	}
	return int(math.Floor(float64(ceiling)*weight + 1e-6))
}
