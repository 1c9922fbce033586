package sections

import (
	"fmt"
	"strings"

	"github.com/ntbao/mythweaver/pkg/state"
)

// knownEntityListShare caps the known-entity name list at this fraction of
// the contextual section budget.
const knownEntityListShare = 0.10

// Contextual renders the third-priority section: world metadata, the
// known-entity duplication guard, the chronicle digest (most recent first),
// and at most one pinned memory when room remains.
func (b *Builder) Contextual(st *state.GameState, budget int) string {
	w := newSectionWriter(b.est, budget)

	b.worldBlock(w, st)
	b.knownEntityList(w, st, budget)
	b.chronicleBlock(w, st)
	b.pinnedMemory(w, st)

	return w.String()
}

func (b *Builder) worldBlock(w *sectionWriter, st *state.GameState) {
	wi := st.World
	if wi.Name == "" && wi.Setting == "" {
		return
	}
	var sb strings.Builder
	sb.WriteString("## THẾ GIỚI\n")
	if wi.Name != "" {
		fmt.Fprintf(&sb, "Tên: %s\n", wi.Name)
	}
	if wi.Genre != "" {
		fmt.Fprintf(&sb, "Thể loại: %s\n", wi.Genre)
	}
	if wi.Setting != "" {
		fmt.Fprintf(&sb, "Bối cảnh: %s\n", wi.Setting)
	}
	if wi.Tone != "" {
		fmt.Fprintf(&sb, "Giọng điệu: %s\n", wi.Tone)
	}
	w.add(sb.String())
}

// knownEntityList renders every known entity name, archived ones included,
// so the model never invents a duplicate of an existing entity. Archived
// entities stay on the list precisely because they must not be recreated.
// The list is complete or it is shortened by dropping whole trailing names
// against its 10% share — a name is never cut mid-way.
func (b *Builder) knownEntityList(w *sectionWriter, st *state.GameState, sectionBudget int) {
	var names []string
	for _, e := range st.EntitiesInOrder() {
		names = append(names, e.Name)
	}
	if len(names) == 0 {
		return
	}

	listCap := int(float64(sectionBudget) * knownEntityListShare)
	if listCap > w.remaining() {
		listCap = w.remaining()
	}
	header := "\n## THỰC THỂ ĐÃ TỒN TẠI (không tạo lại)\n"
	for len(names) > 0 {
		block := header + strings.Join(names, ", ") + "\n"
		if b.est.Estimate(block) <= listCap {
			w.add(block)
			return
		}
		names = names[:len(names)-1]
	}
}

// chronicleBlock renders summaries most recent first: turn summaries, then
// chapter, then memoir.
func (b *Builder) chronicleBlock(w *sectionWriter, st *state.GameState) {
	ch := st.Chronicle
	if len(ch.TurnSummaries) == 0 && len(ch.ChapterSummaries) == 0 && len(ch.MemoirSummaries) == 0 {
		return
	}
	if !w.add("\n## BIÊN NIÊN SỬ\n") {
		return
	}
	for _, tier := range [][]string{ch.TurnSummaries, ch.ChapterSummaries, ch.MemoirSummaries} {
		for i := len(tier) - 1; i >= 0; i-- {
			if !w.addTruncated("- "+tier[i]+"\n", w.remaining()) {
				return
			}
		}
	}
}

// pinnedMemory appends at most one pinned memory when the budget allows.
func (b *Builder) pinnedMemory(w *sectionWriter, st *state.GameState) {
	for _, m := range st.Memories {
		if !m.Pinned {
			continue
		}
		w.add(fmt.Sprintf("\n## KHẮC GHI\n%s\n", m.Text))
		return
	}
}
