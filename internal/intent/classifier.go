// Package intent classifies free-text player actions into coarse categories
// that bias downstream retrieval.
//
// Classification is keyword-regex based, tuned for Vietnamese actions with
// common English verbs as fallback. It is deliberately heuristic: the goal
// is "good enough to bias retrieval", not natural-language understanding.
// The [Classifier] interface keeps the policy swappable without touching
// callers.
package intent

import (
	"regexp"
	"strings"
)

// Type is the primary intent category of a player action.
type Type string

const (
	Movement Type = "movement"
	Combat   Type = "combat"
	Social   Type = "social"
	ItemUse  Type = "item_use"
	SkillUse Type = "skill_use"
	General  Type = "general"
)

// ActionIntent is the classification result for one action. It is ephemeral
// and recomputed per action.
type ActionIntent struct {
	// Type is the primary category: the first matching category in the fixed
	// order movement, combat, social, item_use, skill_use; general when
	// nothing matches.
	Type Type

	// Category flags. Multiple may be true simultaneously even though Type
	// records only the first match.
	IsMovement bool
	IsCombat   bool
	IsSocial   bool
	IsItemUse  bool
	IsSkillUse bool

	// Targets are candidate entity names pulled from quoted substrings and
	// capitalised tokens, deduplicated in extraction order.
	Targets []string

	// Keywords are the lowercased, stop-word-filtered, deduplicated tokens
	// of the action.
	Keywords []string
}

// Classifier is the swappable intent-classification policy.
type Classifier interface {
	Classify(action string) ActionIntent
}

// KeywordClassifier classifies actions by keyword regex sets. The zero value
// is ready to use and safe for concurrent use.
type KeywordClassifier struct{}

var _ Classifier = KeywordClassifier{}

// Category keyword sets. Patterns match against the lowercased action.
// \b is ASCII-only in RE2, so keywords are wrapped in an explicit Unicode
// letter boundary to keep short Vietnamese verbs (đi, ăn, nói) from matching
// inside longer words.
var (
	movementRe = keywordSet(`đi`, `di chuyển`, `chạy`, `đến`, `tới`, `rời`, `quay lại`, `bay`, `vào`, `ra khỏi`, `leo`, `go`, `move`, `travel`, `walk`, `run`, `enter`, `leave`)
	combatRe   = keywordSet(`tấn công`, `đánh`, `chiến đấu`, `giết`, `chém`, `đâm`, `phòng thủ`, `né tránh`, `ám sát`, `attack`, `fight`, `kill`, `strike`, `defend`, `dodge`)
	socialRe   = keywordSet(`nói`, `hỏi`, `trò chuyện`, `thuyết phục`, `chào`, `đàm phán`, `kể`, `trả lời`, `mời`, `talk`, `ask`, `say`, `persuade`, `greet`, `negotiate`)
	itemUseRe  = keywordSet(`dùng`, `sử dụng`, `uống`, `ăn`, `trang bị`, `mặc`, `cầm`, `mở`, `nhặt`, `use`, `drink`, `equip`, `wear`, `open`, `pick up`)
	skillUseRe = keywordSet(`thi triển`, `vận công`, `tu luyện`, `luyện`, `niệm chú`, `xuất chiêu`, `kích hoạt`, `cast`, `channel`, `activate`, `cultivate`)
)

// keywordSet compiles an alternation of keywords bounded by non-letters.
func keywordSet(words ...string) *regexp.Regexp {
	return regexp.MustCompile(`(?:^|[^\p{L}])(?:` + strings.Join(words, `|`) + `)(?:[^\p{L}]|$)`)
}

// quotedRe pulls "..." and '...' substrings as explicit target names.
var quotedRe = regexp.MustCompile(`["'“”‘’]([^"'“”‘’]{1,80})["'“”‘’]`)

// capitalRe matches capitalised token runs, Unicode-aware so Vietnamese
// accented capitals (Đ, Ấ, Ô, ...) are recognised. Multi-word proper names
// ("Con Sói", "Lý Thanh Vân") match as one run.
var capitalRe = regexp.MustCompile(`\p{Lu}[\p{L}\p{N}]*(?:\s+\p{Lu}[\p{L}\p{N}]*)*`)

// stopWords never count as retrieval keywords.
var stopWords = map[string]bool{
	"và": true, "của": true, "là": true, "một": true, "các": true,
	"những": true, "cái": true, "con": true, "để": true, "cho": true,
	"với": true, "trong": true, "rồi": true, "thì": true, "mà": true,
	"tôi": true, "ta": true, "này": true, "đó": true, "lên": true,
	"the": true, "a": true, "an": true, "to": true, "of": true,
	"and": true, "at": true, "in": true, "on": true, "i": true,
}

// Classify implements [Classifier]. It always returns a well-formed result;
// when no category matches, Type is [General] with all flags false.
func (KeywordClassifier) Classify(action string) ActionIntent {
	lower := strings.ToLower(action)

	res := ActionIntent{
		Type:       General,
		IsMovement: movementRe.MatchString(lower),
		IsCombat:   combatRe.MatchString(lower),
		IsSocial:   socialRe.MatchString(lower),
		IsItemUse:  itemUseRe.MatchString(lower),
		IsSkillUse: skillUseRe.MatchString(lower),
	}

	// First matching category in fixed order wins the primary type.
	switch {
	case res.IsMovement:
		res.Type = Movement
	case res.IsCombat:
		res.Type = Combat
	case res.IsSocial:
		res.Type = Social
	case res.IsItemUse:
		res.Type = ItemUse
	case res.IsSkillUse:
		res.Type = SkillUse
	}

	res.Targets = extractTargets(action)
	res.Keywords = extractKeywords(lower)
	return res
}

// extractTargets pulls quoted substrings first, then capitalised token runs,
// deduplicating while preserving extraction order.
func extractTargets(action string) []string {
	var targets []string
	seen := make(map[string]bool)
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		key := strings.ToLower(s)
		if !seen[key] {
			seen[key] = true
			targets = append(targets, s)
		}
	}

	for _, m := range quotedRe.FindAllStringSubmatch(action, -1) {
		add(m[1])
	}
	for _, m := range capitalRe.FindAllString(action, -1) {
		add(m)
	}
	return targets
}

// extractKeywords splits the lowered action on whitespace, strips punctuation
// edges, removes stop words, and deduplicates. No length cap is applied at
// this stage; callers slice per their own budget.
func extractKeywords(lower string) []string {
	fields := strings.Fields(lower)
	var out []string
	seen := make(map[string]bool)
	for _, f := range fields {
		w := strings.Trim(f, `.,!?;:"'“”‘’()[]`)
		if w == "" || stopWords[w] || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}
