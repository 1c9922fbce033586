package sections

import (
	"fmt"
	"strings"

	"github.com/ntbao/mythweaver/internal/scoring"
	"github.com/ntbao/mythweaver/pkg/state"
)

// coreInstructions is the static game-master directive that opens every
// prompt. It is small and always admitted first.
const coreInstructions = `## VAI TRÒ
Bạn là người quản trò (Game Master) cho một trò chơi nhập vai tu tiên bằng văn bản.
Dẫn dắt câu chuyện nhất quán với trạng thái thế giới bên dưới, không bao giờ
điều khiển nhân vật của người chơi thay họ.
`

// Critical renders the highest-priority section: core instructions, the
// current time and turn, the party block, and detailed renderings of the
// top-ranked non-party entities. Party members are always rendered before
// any non-party entity regardless of score.
func (b *Builder) Critical(st *state.GameState, ranked []scoring.EntityRelevance, budget int) string {
	w := newSectionWriter(b.est, budget)

	w.add(coreInstructions)
	w.add(fmt.Sprintf("\n## THỜI ĐIỂM\nLượt %d — %s\n", st.Turn, st.Time))

	b.partyBlock(w, st)
	b.rankedEntities(w, st, ranked)

	return w.String()
}

// partyBlock renders the player character first with motivation emphasised,
// then each companion.
func (b *Builder) partyBlock(w *sectionWriter, st *state.GameState) {
	party := st.PartyEntities()
	if len(party) == 0 {
		return
	}
	if !w.add("\n## TỔ ĐỘI\n") {
		return
	}

	// PC first, then companions in party order.
	ordered := make([]state.Entity, 0, len(party))
	for _, e := range party {
		if e.Type == state.EntityPlayerCharacter {
			ordered = append(ordered, e)
		}
	}
	for _, e := range party {
		if e.Type != state.EntityPlayerCharacter {
			ordered = append(ordered, e)
		}
	}

	for _, e := range ordered {
		if !b.entityDetail(w, e, e.Type == state.EntityPlayerCharacter) {
			return
		}
	}
}

// rankedEntities renders the top non-party entities in detail, sharing the
// remaining budget proportionally so a long description cannot starve the
// entities ranked below it.
func (b *Builder) rankedEntities(w *sectionWriter, st *state.GameState, ranked []scoring.EntityRelevance) {
	var pick []scoring.EntityRelevance
	for _, r := range ranked {
		if st.IsPartyMember(r.Entity.Name) {
			continue
		}
		pick = append(pick, r)
		if len(pick) == maxCriticalEntities {
			break
		}
	}
	if len(pick) == 0 {
		return
	}
	if !w.add("\n## THỰC THỂ LIÊN QUAN\n") {
		return
	}

	share := w.remaining() / len(pick)
	for _, r := range pick {
		ew := newSectionWriter(b.est, min(share, w.remaining()))
		b.entityDetail(ew, r.Entity, false)
		if !w.add(ew.String()) {
			return
		}
	}
}

// entityDetail renders one entity with its structured fields and a
// description truncated to the writer's remaining room. emphasise marks the
// player character, whose motivation must survive even tight budgets.
func (b *Builder) entityDetail(w *sectionWriter, e state.Entity, emphasise bool) bool {
	var sb strings.Builder
	fmt.Fprintf(&sb, "### %s\n", entityLabel(e.Name, string(e.Type)))
	if e.Realm != "" {
		fmt.Fprintf(&sb, "- Cảnh giới: %s\n", e.Realm)
	}
	if e.Location != "" {
		fmt.Fprintf(&sb, "- Vị trí: %s\n", e.Location)
	}
	if e.Relationship != "" {
		fmt.Fprintf(&sb, "- Quan hệ: %s\n", e.Relationship)
	}
	if e.Personality != "" {
		fmt.Fprintf(&sb, "- Tính cách: %s\n", e.Personality)
	}
	if emphasise && e.Motivation != "" {
		fmt.Fprintf(&sb, "- ĐỘNG LỰC CỐT LÕI: %s\n", e.Motivation)
	} else if e.Motivation != "" {
		fmt.Fprintf(&sb, "- Động lực: %s\n", e.Motivation)
	}
	if len(e.Skills) > 0 {
		fmt.Fprintf(&sb, "- Kỹ năng: %s\n", strings.Join(e.Skills, ", "))
	}
	if e.Owner != "" {
		fmt.Fprintf(&sb, "- Chủ sở hữu: %s\n", e.Owner)
	}
	if !w.add(sb.String()) {
		return false
	}
	if e.Description != "" {
		w.addTruncated(fmt.Sprintf("- Mô tả: %s\n", e.Description), w.remaining())
	}
	return !w.full
}
