// Package state defines the typed game-state snapshot consumed by the
// Mythweaver prompt-assembly engine.
//
// A [GameState] is a read-only view of one player session at one turn:
// entities, memories, quests, history, the chronicle digest, and choice
// records. Snapshots are validated once at the boundary ([Validate]) so that
// downstream scoring and section-building code can consume fields without
// re-checking shape. Snapshots can be loaded from YAML campaign files via
// [LoadSnapshotFile] for offline tooling and tests.
package state

import "fmt"

// EntityType classifies an entity in the game world.
type EntityType string

const (
	// EntityPlayerCharacter is the player's own character.
	EntityPlayerCharacter EntityType = "player_character"

	// EntityCompanion is an active party member travelling with the player.
	EntityCompanion EntityType = "companion"

	// EntityNPC is a non-player character outside the party.
	EntityNPC EntityType = "npc"

	// EntityItem is a physical object or artifact.
	EntityItem EntityType = "item"

	// EntitySkill is a learnable technique or ability.
	EntitySkill EntityType = "skill"

	// EntityLocation is a place in the game world.
	EntityLocation EntityType = "location"

	// EntityFaction is an organisation, sect, or clan.
	EntityFaction EntityType = "faction"

	// EntityConcept is an abstract world concept (a law, a prophecy, a dao).
	EntityConcept EntityType = "concept"

	// EntityStatusEffect is a temporary condition attached to another entity
	// via its Owner field.
	EntityStatusEffect EntityType = "status_effect"
)

// IsValid reports whether t is a recognised entity type.
func (t EntityType) IsValid() bool {
	switch t {
	case EntityPlayerCharacter, EntityCompanion, EntityNPC, EntityItem,
		EntitySkill, EntityLocation, EntityFaction, EntityConcept,
		EntityStatusEffect:
		return true
	}
	return false
}

// Entity is a named, typed game object. Name is the primary key within a
// turn's known-entities mapping. Entities are never deleted during play, only
// mutated, renamed, or archived.
type Entity struct {
	// Name is the entity's unique display name within the snapshot.
	Name string `yaml:"name" json:"name"`

	// Type classifies the entity.
	Type EntityType `yaml:"type" json:"type"`

	// Description is free text describing the entity.
	Description string `yaml:"description" json:"description"`

	// Location names the entity's current location, if known.
	Location string `yaml:"location,omitempty" json:"location,omitempty"`

	// Owner names the entity that owns or carries this one (items, skills,
	// status effects).
	Owner string `yaml:"owner,omitempty" json:"owner,omitempty"`

	// Relationship describes this entity's relationship to the player.
	Relationship string `yaml:"relationship,omitempty" json:"relationship,omitempty"`

	// Personality is a free-text persona description (characters only).
	Personality string `yaml:"personality,omitempty" json:"personality,omitempty"`

	// Motivation is what drives this character; emphasised for the player
	// character in the critical context section.
	Motivation string `yaml:"motivation,omitempty" json:"motivation,omitempty"`

	// Realm is the cultivation realm or power tier, if the world uses one.
	Realm string `yaml:"realm,omitempty" json:"realm,omitempty"`

	// Skills lists skill names known by this entity (characters only).
	Skills []string `yaml:"skills,omitempty" json:"skills,omitempty"`

	// Mastery is the numeric mastery tier for skill entities.
	Mastery int `yaml:"mastery,omitempty" json:"mastery,omitempty"`

	// Experience is accumulated experience for skill entities.
	Experience int `yaml:"experience,omitempty" json:"experience,omitempty"`

	// RefID is the stable reference identifier used by compact mode.
	// Empty for legacy data until one is assigned.
	RefID string `yaml:"ref_id,omitempty" json:"ref_id,omitempty"`

	// Archived marks entities that fell out of active play. Archived entities
	// stay in the snapshot but drop out of most context sections.
	Archived bool `yaml:"archived,omitempty" json:"archived,omitempty"`
}

// MemorySource records how a memory entered the working set.
type MemorySource string

const (
	// MemorySourceManual marks memories the player pinned or wrote directly.
	MemorySourceManual MemorySource = "manual"

	// MemorySourceAuto marks memories extracted automatically from play.
	MemorySourceAuto MemorySource = "auto"

	// MemorySourceChronicle marks memories produced by history compression.
	MemorySourceChronicle MemorySource = "chronicle"
)

// MemoryCategory classifies what a memory is about.
type MemoryCategory string

const (
	MemoryCombat       MemoryCategory = "combat"
	MemorySocial       MemoryCategory = "social"
	MemoryDiscovery    MemoryCategory = "discovery"
	MemoryStory        MemoryCategory = "story"
	MemoryRelationship MemoryCategory = "relationship"
	MemoryGeneral      MemoryCategory = "general"
)

// IsValid reports whether c is a recognised memory category.
func (c MemoryCategory) IsValid() bool {
	switch c {
	case MemoryCombat, MemorySocial, MemoryDiscovery, MemoryStory,
		MemoryRelationship, MemoryGeneral:
		return true
	}
	return false
}

// Memory is a timestamped fact extracted from play.
//
// The Importance field is a display hint only — the engine recomputes
// importance from current game state on every read and never trusts the
// stored value.
type Memory struct {
	// Text is the memory content.
	Text string `yaml:"text" json:"text"`

	// CreatedTurn is the turn the memory was recorded.
	CreatedTurn int `yaml:"created_turn" json:"created_turn"`

	// LastAccessedTurn is the turn the memory was last used in a prompt.
	LastAccessedTurn int `yaml:"last_accessed_turn" json:"last_accessed_turn"`

	// Pinned memories are never excluded from context regardless of score.
	Pinned bool `yaml:"pinned,omitempty" json:"pinned,omitempty"`

	// Source records how the memory was created.
	Source MemorySource `yaml:"source" json:"source"`

	// Category classifies the memory.
	Category MemoryCategory `yaml:"category,omitempty" json:"category,omitempty"`

	// Importance is the last computed score, kept for display only.
	Importance int `yaml:"importance,omitempty" json:"importance,omitempty"`

	// RelatedEntities lists entity names this memory concerns.
	RelatedEntities []string `yaml:"related_entities,omitempty" json:"related_entities,omitempty"`

	// Tags are free-text labels.
	Tags []string `yaml:"tags,omitempty" json:"tags,omitempty"`

	// EmotionalWeight is a signed intensity in roughly [-10, 10].
	EmotionalWeight int `yaml:"emotional_weight,omitempty" json:"emotional_weight,omitempty"`

	// RefID is the stable reference identifier used by compact mode.
	RefID string `yaml:"ref_id,omitempty" json:"ref_id,omitempty"`
}

// QuestStatus tracks quest progression.
type QuestStatus string

const (
	QuestActive    QuestStatus = "active"
	QuestCompleted QuestStatus = "completed"
	QuestFailed    QuestStatus = "failed"
)

// Objective is a single quest step.
type Objective struct {
	Description string `yaml:"description" json:"description"`
	Completed   bool   `yaml:"completed,omitempty" json:"completed,omitempty"`
}

// Quest is a tracked goal with nested objectives.
type Quest struct {
	Name       string      `yaml:"name" json:"name"`
	Status     QuestStatus `yaml:"status" json:"status"`
	Objectives []Objective `yaml:"objectives,omitempty" json:"objectives,omitempty"`
	Reward     string      `yaml:"reward,omitempty" json:"reward,omitempty"`
}

// HistoryRole identifies the author of a history entry.
type HistoryRole string

const (
	RoleUser  HistoryRole = "user"
	RoleModel HistoryRole = "model"
)

// HistoryEntry is one exchange half in the raw game history. Model entries
// may carry JSON-encoded structured output; consumers must tolerate text that
// fails to parse.
type HistoryEntry struct {
	Role HistoryRole `yaml:"role" json:"role"`
	Text string      `yaml:"text" json:"text"`
}

// Chronicle is the three-tier long-term narrative summary maintained outside
// the raw history log. Each tier is ordered oldest-first; consumers read
// most-recent-first.
type Chronicle struct {
	// TurnSummaries are fine-grained per-turn digests.
	TurnSummaries []string `yaml:"turn_summaries,omitempty" json:"turn_summaries,omitempty"`

	// ChapterSummaries cover multi-turn arcs.
	ChapterSummaries []string `yaml:"chapter_summaries,omitempty" json:"chapter_summaries,omitempty"`

	// MemoirSummaries are the coarsest, whole-story tier.
	MemoirSummaries []string `yaml:"memoir_summaries,omitempty" json:"memoir_summaries,omitempty"`
}

// ChoiceRecord captures one turn's offered choices and the player's pick,
// consumed by the anti-repetition guidance builder.
type ChoiceRecord struct {
	Turn     int      `yaml:"turn" json:"turn"`
	Offered  []string `yaml:"offered,omitempty" json:"offered,omitempty"`
	Selected string   `yaml:"selected,omitempty" json:"selected,omitempty"`
	Context  string   `yaml:"context,omitempty" json:"context,omitempty"`
}

// CompressedSegment is the digested remains of history entries evicted from
// the active working set.
type CompressedSegment struct {
	FromTurn      int      `yaml:"from_turn" json:"from_turn"`
	ToTurn        int      `yaml:"to_turn" json:"to_turn"`
	RecentChoices []string `yaml:"recent_choices,omitempty" json:"recent_choices,omitempty"`
	StoryFlow     []string `yaml:"story_flow,omitempty" json:"story_flow,omitempty"`
}

// LoreRule is a user-authored world or lore rule. Rules are matched against
// recent text by the rule-activation engine and injected into the
// supplemental context section when they fire.
type LoreRule struct {
	// ID uniquely identifies the rule for activation accounting.
	ID string `yaml:"id" json:"id"`

	// Title is a short display name.
	Title string `yaml:"title" json:"title"`

	// Content is the rule text injected into the prompt on activation.
	Content string `yaml:"content" json:"content"`

	// Keywords trigger the rule when found in the scanned text. When empty
	// the Title words are used.
	Keywords []string `yaml:"keywords,omitempty" json:"keywords,omitempty"`

	// Enabled gates the rule without deleting it.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// AlwaysActive rules skip keyword matching and fire every turn.
	AlwaysActive bool `yaml:"always_active,omitempty" json:"always_active,omitempty"`
}

// GameTime is the in-world calendar position.
type GameTime struct {
	Year  int `yaml:"year" json:"year"`
	Month int `yaml:"month" json:"month"`
	Day   int `yaml:"day" json:"day"`

	// Shift is the in-world time of day (e.g. "sáng", "trưa", "đêm").
	Shift string `yaml:"shift,omitempty" json:"shift,omitempty"`
}

// String renders the game time as "Ngày D Tháng M Năm Y (shift)".
func (t GameTime) String() string {
	s := fmt.Sprintf("Ngày %d Tháng %d Năm %d", t.Day, t.Month, t.Year)
	if t.Shift != "" {
		s += fmt.Sprintf(" (%s)", t.Shift)
	}
	return s
}

// WorldInfo is static world metadata rendered in the contextual section.
type WorldInfo struct {
	Name    string `yaml:"name" json:"name"`
	Genre   string `yaml:"genre,omitempty" json:"genre,omitempty"`
	Setting string `yaml:"setting,omitempty" json:"setting,omitempty"`
	Tone    string `yaml:"tone,omitempty" json:"tone,omitempty"`
}
