package refpack

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ntbao/mythweaver/internal/history"
	"github.com/ntbao/mythweaver/internal/scoring"
	"github.com/ntbao/mythweaver/internal/token"
	"github.com/ntbao/mythweaver/pkg/state"
)

// compact representation limits.
const (
	maxCompactMemories = 8
	maxCompactEvents   = 6
)

// CompactRAGContext is the compressed alternative to the full entity and
// memory renderings. It carries the token accounting so callers can report
// the savings and fall back to the full representation when compression
// does not pay off.
type CompactRAGContext struct {
	References        []EntityReference
	MemoryLines       []string
	RelationshipLines []string
	RecentEvents      []string

	// OriginalTokens estimates the full rendering of the same content;
	// CompactTokens is the cost of [CompactRAGContext.Render].
	OriginalTokens int
	CompactTokens  int
}

// Savings reports the tokens saved by the compact representation. Negative
// when compression would cost more than it saves.
func (c *CompactRAGContext) Savings() int {
	return c.OriginalTokens - c.CompactTokens
}

// BuildCompact assembles the compact context for the ranked entities,
// assigning references through the session registry. The references keep
// ranking order so the model sees them most relevant first.
//
// maxTokens is the compact-mode sub-ceiling; once the rendered block would
// exceed it, remaining items are dropped lowest-priority first (greedy fill
// with hard stop, same policy as the full section builders). Zero or
// negative means unbounded. Reference assignment still happens for every
// ranked entity and considered memory so identifiers stay stable regardless
// of what fits.
func BuildCompact(st *state.GameState, ranked []scoring.EntityRelevance, reg *Registry, est token.Estimator, maxTokens int) *CompactRAGContext {
	c := &CompactRAGContext{}
	limit := maxTokens
	if limit <= 0 {
		limit = math.MaxInt / 2
	}
	used := 0
	fits := func(rendered string) bool {
		t := est.Estimate(rendered)
		if used+t > limit {
			return false
		}
		used += t
		return true
	}

	room := true
	for _, r := range ranked {
		ref := reg.Assign(r.Entity, st.Turn)
		c.OriginalTokens += fullEntityTokens(est, r.Entity)
		if !room {
			continue
		}
		line := fmt.Sprintf("[%s] %s: %s\n", ref.ID, ref.Name, ref.Summary)
		if len(c.References) == 0 {
			line = "## THAM CHIẾU THỰC THỂ\n" + line
		}
		if !fits(line) {
			room = false
			continue
		}
		c.References = append(c.References, ref)
	}

	room = true
	for _, sm := range rankMemories(st) {
		if len(c.MemoryLines) >= maxCompactMemories && !sm.m.Pinned {
			continue
		}
		reg.AssignMemory(sm.m)
		c.OriginalTokens += est.Estimate(sm.m.Text)
		if !room {
			continue
		}
		line := memoryLine(sm)
		rendered := "- " + line + "\n"
		if len(c.MemoryLines) == 0 {
			rendered = "\n## KÝ ỨC (tóm lược)\n" + rendered
		}
		if !fits(rendered) {
			room = false
			continue
		}
		c.MemoryLines = append(c.MemoryLines, line)
	}

	for i, l := range relationshipLines(st, ranked) {
		c.OriginalTokens += est.Estimate(l)
		rendered := "- " + l + "\n"
		if i == 0 {
			rendered = "\n## QUAN HỆ\n" + rendered
		}
		if !fits(rendered) {
			break
		}
		c.RelationshipLines = append(c.RelationshipLines, l)
	}

	for _, e := range history.RecentLines(st, maxCompactEvents/2) {
		c.OriginalTokens += est.Estimate(e)
		line := firstSentence(e)
		rendered := "- " + line + "\n"
		if len(c.RecentEvents) == 0 {
			rendered = "\n## SỰ KIỆN GẦN ĐÂY\n" + rendered
		}
		if !fits(rendered) {
			break
		}
		c.RecentEvents = append(c.RecentEvents, line)
	}

	c.CompactTokens = est.Estimate(c.Render())
	return c
}

// scoredMemory pairs a memory with its freshly computed importance.
type scoredMemory struct {
	m     state.Memory
	score int
}

// rankMemories re-derives every memory's importance and orders descending,
// ties kept in snapshot order. Persisted importance values are display
// hints, never authoritative.
func rankMemories(st *state.GameState) []scoredMemory {
	out := make([]scoredMemory, 0, len(st.Memories))
	for _, m := range st.Memories {
		out = append(out, scoredMemory{m: m, score: scoring.ScoreMemory(m, st).Score})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].score > out[j].score })
	return out
}

// memoryLine renders one compact memory summary: category tag, importance,
// truncated text.
func memoryLine(sm scoredMemory) string {
	cat := sm.m.Category
	if cat == "" {
		cat = state.MemoryGeneral
	}
	return fmt.Sprintf("[%s] (%d) %s", cat, sm.score, firstSentence(sm.m.Text))
}

// Render produces the prompt block for the compact representation.
func (c *CompactRAGContext) Render() string {
	var sb strings.Builder
	if len(c.References) > 0 {
		sb.WriteString("## THAM CHIẾU THỰC THỂ\n")
		for _, r := range c.References {
			fmt.Fprintf(&sb, "[%s] %s: %s\n", r.ID, r.Name, r.Summary)
		}
	}
	if len(c.MemoryLines) > 0 {
		sb.WriteString("\n## KÝ ỨC (tóm lược)\n")
		for _, l := range c.MemoryLines {
			fmt.Fprintf(&sb, "- %s\n", l)
		}
	}
	if len(c.RelationshipLines) > 0 {
		sb.WriteString("\n## QUAN HỆ\n")
		for _, l := range c.RelationshipLines {
			fmt.Fprintf(&sb, "- %s\n", l)
		}
	}
	if len(c.RecentEvents) > 0 {
		sb.WriteString("\n## SỰ KIỆN GẦN ĐÂY\n")
		for _, l := range c.RecentEvents {
			fmt.Fprintf(&sb, "- %s\n", l)
		}
	}
	return sb.String()
}

// fullEntityTokens estimates what the entity would cost rendered in full,
// structured fields plus the untruncated description.
func fullEntityTokens(est token.Estimator, e state.Entity) int {
	var sb strings.Builder
	sb.WriteString(e.Name)
	sb.WriteString(string(e.Type))
	sb.WriteString(e.Realm)
	sb.WriteString(e.Location)
	sb.WriteString(e.Relationship)
	sb.WriteString(e.Personality)
	sb.WriteString(e.Motivation)
	sb.WriteString(e.Description)
	sb.WriteString(strings.Join(e.Skills, ", "))
	return est.Estimate(sb.String())
}

// relationshipLines renders "A — quan hệ — B" lines for ranked entities that
// declare a relationship to the player character.
func relationshipLines(st *state.GameState, ranked []scoring.EntityRelevance) []string {
	pc := st.PlayerCharacter()
	if pc == nil {
		return nil
	}
	var out []string
	for _, r := range ranked {
		if r.Entity.Relationship == "" || r.Entity.Name == pc.Name {
			continue
		}
		out = append(out, fmt.Sprintf("%s — %s — %s", r.Entity.Name, r.Entity.Relationship, pc.Name))
	}
	return out
}

// firstSentence trims text to its first sentence boundary.
func firstSentence(s string) string {
	for i, r := range s {
		if r == '.' || r == '!' || r == '?' {
			return s[:i+1]
		}
	}
	return s
}
