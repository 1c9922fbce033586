// Package lore selects and formats user-authored world rules for the
// supplemental context section.
//
// A rule activates when its keywords appear in the scanned text (player
// input plus recent model output), subject to a token sub-budget and a
// per-turn re-fire cap. Activation counts are tracked per (rule ID, turn)
// inside the [Activator], which is session-scoped state: give each session
// its own instance and call [Activator.Reset] on session reset.
package lore

import (
	"sort"
	"strings"
	"sync"

	"github.com/ntbao/mythweaver/internal/token"
	"github.com/ntbao/mythweaver/pkg/state"
)

// DefaultMaxActivationsPerTurn caps how often one rule may fire in a turn.
const DefaultMaxActivationsPerTurn = 1

// Context bundles the scan inputs for one activation pass.
type Context struct {
	// PlayerInput is the current action text.
	PlayerInput string

	// ModelOutput is recent model text included in the scan.
	ModelOutput string

	// ScanDepth limits how many characters of ModelOutput (from the end) are
	// scanned. Zero scans everything.
	ScanDepth int

	// Budget is the token sub-budget for formatted rule content.
	Budget int

	// Turn is the current turn number, keying the re-fire cap.
	Turn int
}

// Activation records one fired rule and its keyword-match score.
type Activation struct {
	Rule  state.LoreRule
	Score int
}

// Result is the outcome of one activation pass.
type Result struct {
	// Activated lists fired rules, best match first.
	Activated []Activation

	// Text is the formatted rule block ready for the supplemental section.
	Text string

	// TotalTokens is the estimated token cost of Text.
	TotalTokens int

	// BudgetExceeded reports whether at least one matching rule was dropped
	// for lack of budget.
	BudgetExceeded bool
}

// Activator matches rules against play text. Safe for concurrent use;
// one instance per session.
type Activator struct {
	est        token.Estimator
	maxPerTurn int

	mu     sync.Mutex
	counts map[activationKey]int
}

type activationKey struct {
	ruleID string
	turn   int
}

// NewActivator creates an [Activator]. maxPerTurn caps per-rule activations
// per turn; non-positive selects [DefaultMaxActivationsPerTurn].
func NewActivator(est token.Estimator, maxPerTurn int) *Activator {
	if maxPerTurn <= 0 {
		maxPerTurn = DefaultMaxActivationsPerTurn
	}
	return &Activator{
		est:        est,
		maxPerTurn: maxPerTurn,
		counts:     make(map[activationKey]int),
	}
}

// Reset clears all activation history. Call on session reset.
func (a *Activator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.counts = make(map[activationKey]int)
}

// Activate scans rules against ctx and returns the formatted result.
//
// Matching is case-insensitive keyword containment; a rule's score is the
// number of distinct keywords found. Rules are considered best-score first
// and greedily admitted until the budget would be exceeded. Disabled rules
// and rules at their per-turn cap never fire. Always returns a well-formed
// Result — an empty rule set or zero budget yields an empty Result.
func (a *Activator) Activate(rules []state.LoreRule, ctx Context) Result {
	var res Result
	if len(rules) == 0 || ctx.Budget <= 0 {
		return res
	}

	scanText := buildScanText(ctx)

	type candidate struct {
		rule  state.LoreRule
		score int
		order int
	}
	var candidates []candidate
	for i, r := range rules {
		if !r.Enabled || r.ID == "" {
			continue
		}
		score := matchScore(r, scanText)
		if score == 0 {
			continue
		}
		candidates = append(candidates, candidate{rule: r, score: score, order: i})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].order < candidates[j].order
	})

	a.mu.Lock()
	defer a.mu.Unlock()

	var sb strings.Builder
	used := 0
	for _, c := range candidates {
		key := activationKey{ruleID: c.rule.ID, turn: ctx.Turn}
		if a.counts[key] >= a.maxPerTurn {
			continue
		}

		line := formatRule(c.rule)
		cost := a.est.Estimate(line)
		if used+cost > ctx.Budget {
			res.BudgetExceeded = true
			continue
		}

		a.counts[key]++
		used += cost
		sb.WriteString(line)
		res.Activated = append(res.Activated, Activation{Rule: c.rule, Score: c.score})
	}

	res.Text = sb.String()
	res.TotalTokens = used
	return res
}

// buildScanText lowers and joins the scan inputs, honouring ScanDepth on the
// model output.
func buildScanText(ctx Context) string {
	out := ctx.ModelOutput
	if ctx.ScanDepth > 0 {
		runes := []rune(out)
		if len(runes) > ctx.ScanDepth {
			out = string(runes[len(runes)-ctx.ScanDepth:])
		}
	}
	return strings.ToLower(ctx.PlayerInput + "\n" + out)
}

// matchScore counts distinct keyword hits. Always-active rules score 1
// without scanning. Rules without keywords fall back to their title words.
func matchScore(r state.LoreRule, scanText string) int {
	if r.AlwaysActive {
		return 1
	}
	keywords := r.Keywords
	if len(keywords) == 0 {
		keywords = strings.Fields(r.Title)
	}
	score := 0
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" && strings.Contains(scanText, kw) {
			score++
		}
	}
	return score
}

// formatRule renders one rule as a titled line block.
func formatRule(r state.LoreRule) string {
	title := r.Title
	if title == "" {
		title = r.ID
	}
	return "- " + title + ": " + r.Content + "\n"
}
