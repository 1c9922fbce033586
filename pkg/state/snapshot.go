package state

import "slices"

// GameState is the read-only snapshot of one session at one turn.
//
// Entities are stored in a name-keyed map plus an insertion-order slice so
// that every scan over "all known entities" is deterministic. Use
// [GameState.AddEntity] to keep the two in sync; mutating the map directly
// breaks iteration-order guarantees.
type GameState struct {
	// Turn is the current turn number, starting at 1.
	Turn int `yaml:"turn" json:"turn"`

	// Time is the in-world calendar position.
	Time GameTime `yaml:"time" json:"time"`

	// World is static world metadata.
	World WorldInfo `yaml:"world" json:"world"`

	// Entities maps entity name to entity. Names are unique per snapshot.
	Entities map[string]Entity `yaml:"entities" json:"entities"`

	// EntityOrder lists entity names in insertion order.
	EntityOrder []string `yaml:"entity_order,omitempty" json:"entity_order,omitempty"`

	// Party lists member names, player character first by convention.
	Party []string `yaml:"party,omitempty" json:"party,omitempty"`

	// Memories is the active working set of extracted facts.
	Memories []Memory `yaml:"memories,omitempty" json:"memories,omitempty"`

	// ArchivedMemories were evicted from the working set but are still
	// scanned by the compression layer.
	ArchivedMemories []Memory `yaml:"archived_memories,omitempty" json:"archived_memories,omitempty"`

	// Quests lists all known quests with their objectives.
	Quests []Quest `yaml:"quests,omitempty" json:"quests,omitempty"`

	// History is the raw active exchange log, ordered oldest-first.
	History []HistoryEntry `yaml:"history,omitempty" json:"history,omitempty"`

	// Chronicle is the three-tier long-term summary.
	Chronicle Chronicle `yaml:"chronicle,omitempty" json:"chronicle,omitempty"`

	// ChoiceHistory records offered and selected choices per turn.
	ChoiceHistory []ChoiceRecord `yaml:"choice_history,omitempty" json:"choice_history,omitempty"`

	// CompressedHistory holds digests of evicted history segments.
	CompressedHistory []CompressedSegment `yaml:"compressed_history,omitempty" json:"compressed_history,omitempty"`

	// Rules are user-authored lore rules for the activation engine.
	Rules []LoreRule `yaml:"rules,omitempty" json:"rules,omitempty"`
}

// AddEntity inserts or replaces an entity, preserving insertion order for
// new names.
func (g *GameState) AddEntity(e Entity) {
	if g.Entities == nil {
		g.Entities = make(map[string]Entity)
	}
	if _, exists := g.Entities[e.Name]; !exists {
		g.EntityOrder = append(g.EntityOrder, e.Name)
	}
	g.Entities[e.Name] = e
}

// EntitiesInOrder returns all entities in insertion order. Names present in
// the map but missing from EntityOrder (hand-built snapshots) are appended
// after the ordered ones, sorted lexically for determinism.
func (g *GameState) EntitiesInOrder() []Entity {
	if g == nil {
		return nil
	}
	seen := make(map[string]bool, len(g.EntityOrder))
	out := make([]Entity, 0, len(g.Entities))
	for _, name := range g.EntityOrder {
		if e, ok := g.Entities[name]; ok && !seen[name] {
			out = append(out, e)
			seen[name] = true
		}
	}
	if len(out) < len(g.Entities) {
		rest := make([]string, 0, len(g.Entities)-len(out))
		for name := range g.Entities {
			if !seen[name] {
				rest = append(rest, name)
			}
		}
		slices.Sort(rest)
		for _, name := range rest {
			out = append(out, g.Entities[name])
		}
	}
	return out
}

// PlayerCharacter returns the player character entity. It prefers the first
// party member of type player_character, falling back to any entity with
// that type. Returns nil when the snapshot has none.
func (g *GameState) PlayerCharacter() *Entity {
	if g == nil {
		return nil
	}
	for _, name := range g.Party {
		if e, ok := g.Entities[name]; ok && e.Type == EntityPlayerCharacter {
			return &e
		}
	}
	for _, e := range g.EntitiesInOrder() {
		if e.Type == EntityPlayerCharacter {
			e := e
			return &e
		}
	}
	return nil
}

// PartyEntities returns the resolved party members in party order. Names
// that do not resolve to a known entity are skipped.
func (g *GameState) PartyEntities() []Entity {
	if g == nil {
		return nil
	}
	out := make([]Entity, 0, len(g.Party))
	for _, name := range g.Party {
		if e, ok := g.Entities[name]; ok {
			out = append(out, e)
		}
	}
	return out
}

// IsPartyMember reports whether name is in the current party.
func (g *GameState) IsPartyMember(name string) bool {
	if g == nil {
		return false
	}
	return slices.Contains(g.Party, name)
}

// IsPlayerOwned reports whether the named entity's Owner is the player
// character.
func (g *GameState) IsPlayerOwned(name string) bool {
	if g == nil {
		return false
	}
	e, ok := g.Entities[name]
	if !ok || e.Owner == "" {
		return false
	}
	pc := g.PlayerCharacter()
	return pc != nil && e.Owner == pc.Name
}

// ActiveQuest returns the first quest with status active, or nil.
func (g *GameState) ActiveQuest() *Quest {
	if g == nil {
		return nil
	}
	for i := range g.Quests {
		if g.Quests[i].Status == QuestActive {
			return &g.Quests[i]
		}
	}
	return nil
}
