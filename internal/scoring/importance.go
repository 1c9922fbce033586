package scoring

import (
	"fmt"
	"regexp"

	"github.com/ntbao/mythweaver/pkg/state"
)

// Importance signal weights.
const (
	chronicleSourceScore = 30
	manualSourceScore    = 20
	otherSourceScore     = 10
	pinnedScore          = 50
	recencyMax           = 20.0
	recencyDecay         = 0.5
	accessMax            = 15.0
	accessDecay          = 0.3
	emotionalWeightUnit  = 2
	keywordCap           = 50
)

// Related-entity salience per entity type.
var relatedSalience = map[state.EntityType]int{
	state.EntityCompanion:       10,
	state.EntityPlayerCharacter: 5,
	state.EntityNPC:             3,
}

// Category bonuses.
var categoryBonus = map[state.MemoryCategory]int{
	state.MemoryStory:        15,
	state.MemoryRelationship: 10,
	state.MemoryCombat:       8,
	state.MemoryDiscovery:    6,
	state.MemorySocial:       5,
	state.MemoryGeneral:      0,
}

// Content keyword tiers. High-importance events (death, marriage, victory,
// defeat, love) outweigh progression events, which outweigh mundane daily
// activity.
var (
	highKeywordRe = regexp.MustCompile(`chết|qua đời|tử vong|hy sinh|kết hôn|thành thân|chiến thắng|đánh bại|thất bại|tình yêu|yêu nhau|tỏ tình|phản bội`)
	medKeywordRe  = regexp.MustCompile(`lên cấp|đột phá|cảnh giới|gặp gỡ|nhận được|thu được|phát hiện|khám phá|học được|gia nhập`)
	lowKeywordRe  = regexp.MustCompile(`ăn uống|ngủ|đi dạo|mua sắm|nghỉ ngơi|trò chuyện phiếm`)
)

const (
	highKeywordWeight = 10
	medKeywordWeight  = 5
	lowKeywordWeight  = 1
)

// ImportanceResult is the outcome of scoring one memory: the clamped score,
// the reasons that produced it, and advisory suggestions for improving the
// memory record. Suggestions are display-only and consumed by no other
// component.
type ImportanceResult struct {
	Score       int
	Reasons     []string
	Suggestions []string
}

// ScoreMemory computes a 0–100 importance score for a memory from the
// current game state.
//
// The function is pure: it never mutates m or st, and identical inputs
// always yield identical output. The memory's stored Importance field is a
// display hint and is deliberately ignored here.
func ScoreMemory(m state.Memory, st *state.GameState) ImportanceResult {
	var res ImportanceResult
	add := func(n int, reason string) {
		if n == 0 {
			return
		}
		res.Score += n
		res.Reasons = append(res.Reasons, reason)
	}

	switch m.Source {
	case state.MemorySourceChronicle:
		add(chronicleSourceScore, "chronicle source")
	case state.MemorySourceManual:
		add(manualSourceScore, "manually recorded")
	default:
		add(otherSourceScore, "auto-extracted")
	}

	if m.Pinned {
		add(pinnedScore, "pinned")
	}

	turn := 0
	if st != nil {
		turn = st.Turn
	}

	if r := decayed(recencyMax, recencyDecay, turn-m.CreatedTurn); r > 0 {
		add(r, fmt.Sprintf("created %d turn(s) ago", turn-m.CreatedTurn))
	}
	if r := decayed(accessMax, accessDecay, turn-m.LastAccessedTurn); r > 0 {
		add(r, fmt.Sprintf("accessed %d turn(s) ago", turn-m.LastAccessedTurn))
	}

	if st != nil {
		for _, name := range m.RelatedEntities {
			e, ok := st.Entities[name]
			if !ok {
				continue
			}
			bonus, ok := relatedSalience[e.Type]
			if !ok && e.Type == state.EntityItem && st.IsPlayerOwned(name) {
				bonus = 5
			}
			if bonus > 0 {
				add(bonus, fmt.Sprintf("concerns %s", name))
			}
		}
	}

	if m.EmotionalWeight != 0 {
		w := m.EmotionalWeight
		if w < 0 {
			w = -w
		}
		add(w*emotionalWeightUnit, "emotionally charged")
	}

	if bonus, ok := categoryBonus[m.Category]; ok {
		add(bonus, fmt.Sprintf("category %s", m.Category))
	}

	if kw := keywordScore(m.Text); kw > 0 {
		add(kw, "significant content keywords")
	}

	if res.Score > 100 {
		res.Score = 100
	}
	if res.Score < 0 {
		res.Score = 0
	}

	res.Suggestions = suggestions(m)
	return res
}

// decayed computes max(0, maxVal - decay×turns), floored at zero and
// truncated to an int. Negative turn deltas (clock skew in hand-built
// snapshots) count as zero age.
func decayed(maxVal, decay float64, turns int) int {
	if turns < 0 {
		turns = 0
	}
	v := maxVal - decay*float64(turns)
	if v <= 0 {
		return 0
	}
	return int(v)
}

// keywordScore scans the memory text against the three keyword tiers and
// returns the summed weight, capped at [keywordCap].
func keywordScore(text string) int {
	score := 0
	score += highKeywordWeight * len(highKeywordRe.FindAllString(text, -1))
	score += medKeywordWeight * len(medKeywordRe.FindAllString(text, -1))
	score += lowKeywordWeight * len(lowKeywordRe.FindAllString(text, -1))
	if score > keywordCap {
		score = keywordCap
	}
	return score
}

// suggestions returns advisory hints for improving a memory record.
func suggestions(m state.Memory) []string {
	var out []string
	if m.Category == "" {
		out = append(out, "no category set — categorised memories rank better")
	}
	if len(m.RelatedEntities) == 0 {
		out = append(out, "no related entities — linking entities raises salience")
	}
	if !m.Pinned && m.Source == state.MemorySourceManual {
		out = append(out, "consider pinning — manual memories are usually worth keeping")
	}
	return out
}
