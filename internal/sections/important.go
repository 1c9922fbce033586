package sections

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ntbao/mythweaver/internal/history"
	"github.com/ntbao/mythweaver/internal/scoring"
	"github.com/ntbao/mythweaver/pkg/state"
)

// maxImportantMemories caps how many memories the important section lists.
// Pinned memories never count against the cap.
const maxImportantMemories = 5

// Important renders the second-priority section: active quest objectives,
// the recent history digest, important memories, and brief lines for
// entities ranked below the critical cut-off.
func (b *Builder) Important(st *state.GameState, ranked []scoring.EntityRelevance, budget int) string {
	w := newSectionWriter(b.est, budget)

	b.questBlock(w, st)
	b.recentHistory(w, st)
	b.memoryBlock(w, st)
	b.remainingEntities(w, st, ranked)

	return w.String()
}

func (b *Builder) questBlock(w *sectionWriter, st *state.GameState) {
	q := st.ActiveQuest()
	if q == nil {
		return
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "## NHIỆM VỤ HIỆN TẠI\n%s\n", q.Name)
	for _, o := range q.Objectives {
		mark := "chưa xong"
		if o.Completed {
			mark = "hoàn thành"
		}
		fmt.Fprintf(&sb, "- [%s] %s\n", mark, o.Description)
	}
	if q.Reward != "" {
		fmt.Fprintf(&sb, "Phần thưởng: %s\n", q.Reward)
	}
	w.add(sb.String())
}

func (b *Builder) recentHistory(w *sectionWriter, st *state.GameState) {
	lines := history.RecentLines(st, history.DefaultRecentPairs)
	if len(lines) == 0 {
		return
	}
	if !w.add("\n## DIỄN BIẾN GẦN ĐÂY\n") {
		return
	}
	for _, l := range lines {
		if !w.addTruncated(l+"\n", w.remaining()) {
			return
		}
	}
}

// memoryBlock lists the highest-importance memories. Every pinned memory is
// included ahead of the scored cap; unpinned memories fill the remaining
// slots in descending importance order.
func (b *Builder) memoryBlock(w *sectionWriter, st *state.GameState) {
	if len(st.Memories) == 0 {
		return
	}

	type scored struct {
		m     state.Memory
		score int
	}
	var pinned, rest []scored
	for _, m := range st.Memories {
		s := scored{m: m, score: scoring.ScoreMemory(m, st).Score}
		if m.Pinned {
			pinned = append(pinned, s)
		} else {
			rest = append(rest, s)
		}
	}
	sort.SliceStable(rest, func(i, j int) bool { return rest[i].score > rest[j].score })
	if len(rest) > maxImportantMemories {
		rest = rest[:maxImportantMemories]
	}

	if !w.add("\n## KÝ ỨC QUAN TRỌNG\n") {
		return
	}
	for _, s := range append(pinned, rest...) {
		line := fmt.Sprintf("- (lượt %d) %s\n", s.m.CreatedTurn, s.m.Text)
		if !w.addTruncated(line, w.remaining()) {
			return
		}
	}
}

// remainingEntities renders one-line summaries for scored entities the
// critical section had no room for.
func (b *Builder) remainingEntities(w *sectionWriter, st *state.GameState, ranked []scoring.EntityRelevance) {
	var rest []scoring.EntityRelevance
	seen := 0
	for _, r := range ranked {
		if st.IsPartyMember(r.Entity.Name) {
			continue
		}
		seen++
		if seen > maxCriticalEntities {
			rest = append(rest, r)
		}
	}
	if len(rest) == 0 {
		return
	}
	if !w.add("\n## THỰC THỂ KHÁC\n") {
		return
	}
	for _, r := range rest {
		brief := r.Entity.Description
		line := fmt.Sprintf("- %s: %s\n", entityLabel(r.Entity.Name, string(r.Entity.Type)), brief)
		if !w.addTruncated(line, 40) {
			return
		}
	}
}
