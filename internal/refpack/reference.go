// Package refpack implements the reference-compression layer: stable short
// identifiers for entities and memories plus a compact context
// representation that trades detail for token savings on long sessions.
package refpack

import (
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/ntbao/mythweaver/pkg/state"
)

// maxSummaryRunes bounds the reference summary length.
const maxSummaryRunes = 120

// typePrefix maps an entity type to the two-letter code embedded in
// generated reference IDs.
var typePrefix = map[state.EntityType]string{
	state.EntityPlayerCharacter: "PC",
	state.EntityCompanion:       "CO",
	state.EntityNPC:             "NP",
	state.EntityItem:            "IT",
	state.EntitySkill:           "SK",
	state.EntityLocation:        "LO",
	state.EntityFaction:         "FA",
	state.EntityConcept:         "CN",
	state.EntityStatusEffect:    "SE",
}

// EntityReference pairs a stable short identifier with a compressed summary
// of the entity it names.
type EntityReference struct {
	ID      string           `json:"id"`
	Name    string           `json:"name"`
	Type    state.EntityType `json:"type"`
	Summary string           `json:"summary"`
}

// newReferenceID derives a reference ID from the entity type, name and the
// turn the reference was first assigned. The LEG segment marks IDs generated
// after the fact for entities created before reference tracking existed.
func newReferenceID(typ state.EntityType, name string, turn int) string {
	prefix, ok := typePrefix[typ]
	if !ok {
		prefix = "XX"
	}
	h := fnv.New32a()
	fmt.Fprintf(h, "%s|%s|%d", typ, name, turn)
	return fmt.Sprintf("REF_%s_LEG_%08x", prefix, h.Sum32())
}

// MemoryReference pairs a stable short identifier with a memory's one-line
// summary. Memories carry no unique name, so identity is the created turn
// plus the text itself.
type MemoryReference struct {
	ID          string `json:"id"`
	Summary     string `json:"summary"`
	CreatedTurn int    `json:"created_turn"`
}

// newMemoryReferenceID derives a reference ID for a memory from its text and
// the turn it was created.
func newMemoryReferenceID(text string, turn int) string {
	h := fnv.New32a()
	fmt.Fprintf(h, "memory|%s|%d", text, turn)
	return fmt.Sprintf("REF_ME_LEG_%08x", h.Sum32())
}

// memoryKey is the registry identity key for a memory.
func memoryKey(m state.Memory) string {
	return fmt.Sprintf("%d|%s", m.CreatedTurn, m.Text)
}

// Summarize compresses an entity into a single line of at most
// [maxSummaryRunes] runes: the type label, the most salient structured
// field, then as much of the description as fits.
func Summarize(e state.Entity) string {
	parts := []string{typeLabel(e.Type)}
	switch {
	case e.Realm != "":
		parts = append(parts, e.Realm)
	case e.Relationship != "":
		parts = append(parts, e.Relationship)
	case e.Location != "":
		parts = append(parts, e.Location)
	case e.Owner != "":
		parts = append(parts, "của "+e.Owner)
	}
	if e.Description != "" {
		parts = append(parts, e.Description)
	}
	s := strings.Join(parts, "; ")

	runes := []rune(s)
	if len(runes) <= maxSummaryRunes {
		return s
	}
	return string(runes[:maxSummaryRunes-1]) + "…"
}

// typeLabel renders the Vietnamese display label for an entity type.
func typeLabel(t state.EntityType) string {
	switch t {
	case state.EntityPlayerCharacter:
		return "nhân vật chính"
	case state.EntityCompanion:
		return "đồng hành"
	case state.EntityNPC:
		return "NPC"
	case state.EntityItem:
		return "vật phẩm"
	case state.EntitySkill:
		return "kỹ năng"
	case state.EntityLocation:
		return "địa điểm"
	case state.EntityFaction:
		return "thế lực"
	case state.EntityConcept:
		return "khái niệm"
	case state.EntityStatusEffect:
		return "trạng thái"
	default:
		return string(t)
	}
}
