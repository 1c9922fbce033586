// Package scoring computes the two relevance signals that drive context
// assembly: per-entity relevance against the current action ([ScoreEntities])
// and per-memory importance against the current game state ([ScoreMemory]).
//
// Both scorers are pure over their inputs: no mutation, no hidden state, no
// randomness. Results are ephemeral and recomputed on every prompt build.
package scoring

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/antzucaro/matchr"

	"github.com/ntbao/mythweaver/internal/intent"
	"github.com/ntbao/mythweaver/internal/relgraph"
	"github.com/ntbao/mythweaver/pkg/state"
)

// Scoring rule weights.
const (
	partyBaseScore      = 100
	directMentionScore  = 50
	recentMentionUnit   = 10
	recentMentionCap    = 30
	locationMatchScore  = 20
	graphBonusScore     = 15
	graphBonusThreshold = 50
	statusEffectScore   = 10
	skillVerbatimScore  = 30
	combatSkillScore    = 25
	socialSkillScore    = 20
	exploreSkillScore   = 15
)

// recentHistoryEntries is how many raw history entries (user+model pairs)
// the recent-mention scan covers — the last 3 turns.
const recentHistoryEntries = 6

// fuzzyTargetThreshold is the minimum Jaro-Winkler similarity for an
// extracted action target to count as a mention of an entity name. Catches
// missing diacritics and small typos without hitting unrelated names.
const fuzzyTargetThreshold = 0.90

// EntityRelevance pairs an entity with its computed score and the
// human-readable reasons that produced it. Ephemeral, recomputed per call.
type EntityRelevance struct {
	Entity  state.Entity
	Score   int
	Reasons []string
}

// typeAffinity maps (intent type, entity type) to an additive score.
// Unlisted combinations contribute nothing.
var typeAffinity = map[intent.Type]map[state.EntityType]int{
	intent.Movement: {
		state.EntityLocation: 40,
		state.EntityNPC:      10,
	},
	intent.Combat: {
		state.EntityCompanion:    35,
		state.EntitySkill:        30,
		state.EntityNPC:          25,
		state.EntityItem:         20,
		state.EntityStatusEffect: 15,
	},
	intent.Social: {
		state.EntityCompanion: 40,
		state.EntityNPC:       35,
		state.EntityFaction:   20,
	},
	intent.ItemUse: {
		state.EntityItem:  40,
		state.EntitySkill: 10,
	},
	intent.SkillUse: {
		state.EntitySkill:     40,
		state.EntityCompanion: 25,
		state.EntityConcept:   10,
	},
}

// Companion skill phrase sets, matched against lowercased skill names.
var (
	combatSkillPhrases  = []string{"kiếm", "đao", "quyền", "chiến", "sát", "công kích", "hộ thể", "phá", "trảm"}
	socialSkillPhrases  = []string{"thuyết phục", "giao tiếp", "mị", "đàm phán", "ca", "thuyết"}
	exploreSkillPhrases = []string{"thám", "dò", "truy tung", "ẩn thân", "phi hành", "khinh công"}
)

// ScoreEntities ranks every known entity against the current action.
//
// Every entity with a positive score is included; callers slice per their
// own token budget. Output is ordered by descending score with ties broken
// by snapshot insertion order (stable sort).
//
// The graph-connection bonus is evaluated in a single pass over insertion
// order: an entity earns it when it is adjacent to any entity that already
// scored above the threshold earlier in this same pass. This keeps the
// original single-pass behaviour while making it deterministic.
func ScoreEntities(st *state.GameState, action string, in intent.ActionIntent, graph relgraph.Graph) []EntityRelevance {
	if st == nil || len(st.Entities) == 0 {
		return nil
	}

	lowerAction := strings.ToLower(action)
	pc := st.PlayerCharacter()
	recent := recentHistoryText(st)
	statusOwners := activeStatusOwners(st)

	highScorers := make(map[string]bool)
	var ranked []EntityRelevance

	for _, e := range st.EntitiesInOrder() {
		rel := scoreOne(st, e, lowerAction, in, pc, recent, statusOwners)

		// Graph-connection bonus against partial results from this pass.
		for peer := range graph.Related(e.Name) {
			if highScorers[peer] {
				rel.Score += graphBonusScore
				rel.Reasons = append(rel.Reasons, fmt.Sprintf("connected to %s", peer))
				break
			}
		}

		if rel.Score > graphBonusThreshold {
			highScorers[e.Name] = true
		}
		if rel.Score > 0 {
			ranked = append(ranked, rel)
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

// scoreOne applies every non-graph signal to a single entity.
func scoreOne(st *state.GameState, e state.Entity, lowerAction string, in intent.ActionIntent, pc *state.Entity, recent []string, statusOwners map[string]bool) EntityRelevance {
	rel := EntityRelevance{Entity: e}
	add := func(n int, reason string) {
		rel.Score += n
		rel.Reasons = append(rel.Reasons, reason)
	}

	if st.IsPartyMember(e.Name) {
		add(partyBaseScore, "party member")
	}

	if mentioned(lowerAction, e.Name) || fuzzyTargetMatch(in.Targets, e.Name) {
		add(directMentionScore, "mentioned in action")
	}

	if n := recentMentionCount(recent, e.Name); n > 0 {
		score := n * recentMentionUnit
		if score > recentMentionCap {
			score = recentMentionCap
		}
		add(score, fmt.Sprintf("mentioned %d time(s) recently", n))
	}

	if pc != nil && pc.Location != "" && e.Location == pc.Location && e.Name != pc.Name {
		add(locationMatchScore, "same location as player")
	}

	if byType, ok := typeAffinity[in.Type]; ok {
		if n, ok := byType[e.Type]; ok {
			add(n, fmt.Sprintf("%s intent favours %s entities", in.Type, e.Type))
		}
	}

	if e.Type == state.EntityCompanion && len(e.Skills) > 0 {
		if n, reason := companionSkillScore(e.Skills, lowerAction, in); n > 0 {
			add(n, reason)
		}
	}

	if statusOwners[e.Name] {
		add(statusEffectScore, "has an active status effect")
	}

	return rel
}

// companionSkillScore tests a companion's skills against intent-specific
// phrase sets and the action text. The verbatim-in-action bonus is checked
// once across all skills — first match wins, no double counting.
func companionSkillScore(skills []string, lowerAction string, in intent.ActionIntent) (int, string) {
	score := 0
	var reasons []string

	for _, skill := range skills {
		if skill == "" {
			continue
		}
		if strings.Contains(lowerAction, strings.ToLower(skill)) {
			score += skillVerbatimScore
			reasons = append(reasons, fmt.Sprintf("skill %q named in action", skill))
			break
		}
	}

	phraseBonus := 0
	switch {
	case in.IsCombat:
		if anySkillMatches(skills, combatSkillPhrases) {
			phraseBonus = combatSkillScore
			reasons = append(reasons, "combat-capable skills")
		}
	case in.IsSocial:
		if anySkillMatches(skills, socialSkillPhrases) {
			phraseBonus = socialSkillScore
			reasons = append(reasons, "social skills")
		}
	case in.IsMovement:
		if anySkillMatches(skills, exploreSkillPhrases) {
			phraseBonus = exploreSkillScore
			reasons = append(reasons, "exploration skills")
		}
	}
	score += phraseBonus

	return score, strings.Join(reasons, "; ")
}

// anySkillMatches reports whether any skill name contains any phrase.
func anySkillMatches(skills, phrases []string) bool {
	for _, skill := range skills {
		low := strings.ToLower(skill)
		for _, p := range phrases {
			if strings.Contains(low, p) {
				return true
			}
		}
	}
	return false
}

// mentioned reports whether name occurs in the lowercased action text.
func mentioned(lowerAction, name string) bool {
	if name == "" || lowerAction == "" {
		return false
	}
	return strings.Contains(lowerAction, strings.ToLower(name))
}

// fuzzyTargetMatch reports whether any extracted target is close enough to
// the entity name to count as a mention. Uses Jaro-Winkler similarity so
// dropped diacritics ("Ly Thanh Van" for "Lý Thanh Vân") still resolve.
func fuzzyTargetMatch(targets []string, name string) bool {
	if name == "" {
		return false
	}
	lowName := strings.ToLower(name)
	for _, t := range targets {
		if matchr.JaroWinkler(strings.ToLower(t), lowName, true) >= fuzzyTargetThreshold {
			return true
		}
	}
	return false
}

// recentHistoryText returns the lowercased text of the last
// [recentHistoryEntries] history entries, most context windows' worth of
// recent mentions.
func recentHistoryText(st *state.GameState) []string {
	h := st.History
	if len(h) > recentHistoryEntries {
		h = h[len(h)-recentHistoryEntries:]
	}
	out := make([]string, 0, len(h))
	for _, entry := range h {
		out = append(out, strings.ToLower(entry.Text))
	}
	return out
}

// recentMentionCount counts whole-word occurrences of name across the recent
// history entries, case-insensitively. \b is ASCII-only in RE2 so an
// explicit Unicode letter boundary is used.
func recentMentionCount(recent []string, name string) int {
	if name == "" || len(recent) == 0 {
		return 0
	}
	re, err := regexp.Compile(`(?:^|[^\p{L}])` + regexp.QuoteMeta(strings.ToLower(name)) + `(?:[^\p{L}]|$)`)
	if err != nil {
		return 0
	}
	count := 0
	for _, text := range recent {
		count += len(re.FindAllString(text, -1))
	}
	return count
}

// activeStatusOwners collects the names of entities that own at least one
// status-effect entity.
func activeStatusOwners(st *state.GameState) map[string]bool {
	owners := make(map[string]bool)
	for _, e := range st.EntitiesInOrder() {
		if e.Type == state.EntityStatusEffect && e.Owner != "" && !e.Archived {
			owners[e.Owner] = true
		}
	}
	return owners
}
