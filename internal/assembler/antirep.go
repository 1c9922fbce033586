package assembler

import (
	"fmt"
	"strings"

	"github.com/ntbao/mythweaver/pkg/state"
)

// Anti-repetition window sizes.
const (
	maxRecentSelected = 8
	maxRecentOffered  = 15
)

// choiceCategory buckets offered choices for diversity guidance.
type choiceCategory string

const (
	catCommunication choiceCategory = "giao tiếp"
	catAction        choiceCategory = "hành động"
	catTactics       choiceCategory = "chiến thuật"
	catStrategy      choiceCategory = "chiến lược"
	catIntrospection choiceCategory = "nội tâm"
)

var categoryOrder = []choiceCategory{catCommunication, catAction, catTactics, catStrategy, catIntrospection}

// categoryKeywords classifies a choice by substring match on its lowercased
// text. First matching category wins, in [categoryOrder] order.
var categoryKeywords = map[choiceCategory][]string{
	catCommunication: {"nói", "hỏi", "thuyết phục", "đàm phán", "kể", "trò chuyện", "talk", "ask"},
	catAction:        {"tấn công", "đánh", "chạy", "nhảy", "phá", "đuổi", "attack", "strike"},
	catTactics:       {"mai phục", "nấp", "né", "đánh lén", "nghi binh", "rút lui", "ambush"},
	catStrategy:      {"lập kế", "chuẩn bị", "liên minh", "tích trữ", "bố trí", "plan"},
	catIntrospection: {"suy nghĩ", "hồi tưởng", "tự hỏi", "thiền", "quan sát", "reflect"},
}

// antiRepetition renders the guidance block that keeps offered choices from
// cycling. It lists what the player recently picked and what was recently
// offered, then nudges the model toward the categories the recent offers
// neglected. Returns "" when there is no choice history at all.
func antiRepetition(st *state.GameState) string {
	selected, offered := recentChoices(st)
	if len(selected) == 0 && len(offered) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("## TRÁNH LẶP LỰA CHỌN\n")
	if len(selected) > 0 {
		sb.WriteString("Người chơi vừa chọn:\n")
		for _, s := range selected {
			fmt.Fprintf(&sb, "- %s\n", s)
		}
	}
	if len(offered) > 0 {
		sb.WriteString("Các lựa chọn đã đưa ra gần đây (đừng lặp lại nguyên văn):\n")
		for _, s := range offered {
			fmt.Fprintf(&sb, "- %s\n", s)
		}
	}

	if missing := neglectedCategories(offered); len(missing) > 0 {
		names := make([]string, len(missing))
		for i, c := range missing {
			names[i] = string(c)
		}
		fmt.Fprintf(&sb, "Khi đề xuất lựa chọn mới, ưu tiên thêm hướng %s.\n", strings.Join(names, ", "))
	}
	return sb.String()
}

// recentChoices collects the last selections and offers, newest last,
// merging the live choice history with the summaries of compressed
// segments. Offers are deduplicated case-insensitively.
func recentChoices(st *state.GameState) (selected, offered []string) {
	var allSelected, allOffered []string
	for _, seg := range st.CompressedHistory {
		allSelected = append(allSelected, seg.RecentChoices...)
	}
	for _, rec := range st.ChoiceHistory {
		if rec.Selected != "" {
			allSelected = append(allSelected, rec.Selected)
		}
		allOffered = append(allOffered, rec.Offered...)
	}

	if len(allSelected) > maxRecentSelected {
		allSelected = allSelected[len(allSelected)-maxRecentSelected:]
	}

	seen := make(map[string]bool)
	for i := len(allOffered) - 1; i >= 0 && len(offered) < maxRecentOffered; i-- {
		key := strings.ToLower(strings.TrimSpace(allOffered[i]))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		offered = append(offered, allOffered[i])
	}
	// Restore oldest-first order after the reverse scan.
	for i, j := 0, len(offered)-1; i < j; i, j = i+1, j-1 {
		offered[i], offered[j] = offered[j], offered[i]
	}
	return allSelected, offered
}

// neglectedCategories returns the categories absent from the recent offers,
// in fixed order.
func neglectedCategories(offered []string) []choiceCategory {
	present := make(map[choiceCategory]bool)
	for _, o := range offered {
		if c, ok := classifyChoice(o); ok {
			present[c] = true
		}
	}
	var missing []choiceCategory
	for _, c := range categoryOrder {
		if !present[c] {
			missing = append(missing, c)
		}
	}
	return missing
}

func classifyChoice(text string) (choiceCategory, bool) {
	lower := strings.ToLower(text)
	for _, c := range categoryOrder {
		for _, kw := range categoryKeywords[c] {
			if strings.Contains(lower, kw) {
				return c, true
			}
		}
	}
	return "", false
}
