package refpack

import (
	"sync"

	"github.com/ntbao/mythweaver/pkg/state"
)

// Registry tracks the entity references assigned within one game session.
// Assignment is idempotent: an entity keeps its first reference for the
// lifetime of the session. Safe for concurrent use.
type Registry struct {
	sessionID string

	mu       sync.RWMutex
	byName   map[string]EntityReference
	byID     map[string]string
	order    []string
	memByKey map[string]MemoryReference
	memByID  map[string]string
}

// NewRegistry creates an empty registry for the given session.
func NewRegistry(sessionID string) *Registry {
	return &Registry{
		sessionID: sessionID,
		byName:    make(map[string]EntityReference),
		byID:      make(map[string]string),
		memByKey:  make(map[string]MemoryReference),
		memByID:   make(map[string]string),
	}
}

// SessionID returns the session this registry belongs to.
func (r *Registry) SessionID() string { return r.sessionID }

// Assign returns the entity's reference, creating one on first sight. An
// entity carrying a pre-assigned RefID keeps it; otherwise an ID is derived
// from the entity identity and the given turn. The summary is refreshed on
// every call so it tracks the entity's current state.
func (r *Registry) Assign(e state.Entity, turn int) EntityReference {
	r.mu.Lock()
	defer r.mu.Unlock()

	ref, ok := r.byName[e.Name]
	if !ok {
		id := e.RefID
		if id == "" {
			id = newReferenceID(e.Type, e.Name, turn)
		}
		ref = EntityReference{ID: id, Name: e.Name, Type: e.Type}
		r.byID[id] = e.Name
		r.order = append(r.order, e.Name)
	}
	ref.Summary = Summarize(e)
	r.byName[e.Name] = ref
	return ref
}

// ByID resolves a reference ID back to its entity reference.
func (r *Registry) ByID(id string) (EntityReference, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.byID[id]
	if !ok {
		return EntityReference{}, false
	}
	return r.byName[name], true
}

// AssignMemory returns the memory's reference, creating one on first sight.
// A memory carrying a pre-assigned RefID keeps it. The summary is refreshed
// on every call. Memory references live only as long as the registry; they
// are not persisted to the store.
func (r *Registry) AssignMemory(m state.Memory) MemoryReference {
	key := memoryKey(m)

	r.mu.Lock()
	defer r.mu.Unlock()

	ref, ok := r.memByKey[key]
	if !ok {
		id := m.RefID
		if id == "" {
			id = newMemoryReferenceID(m.Text, m.CreatedTurn)
		}
		ref = MemoryReference{ID: id, CreatedTurn: m.CreatedTurn}
		r.memByID[id] = key
	}
	ref.Summary = firstSentence(m.Text)
	r.memByKey[key] = ref
	return ref
}

// MemoryByID resolves a memory reference ID. The second return is false for
// identifiers this registry never assigned; callers treat absence as
// "summary not available", never as a failure.
func (r *Registry) MemoryByID(id string) (MemoryReference, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	key, ok := r.memByID[id]
	if !ok {
		return MemoryReference{}, false
	}
	return r.memByKey[key], true
}

// ByName returns the reference assigned to the named entity, if any.
func (r *Registry) ByName(name string) (EntityReference, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ref, ok := r.byName[name]
	return ref, ok
}

// References returns all assigned references in assignment order.
func (r *Registry) References() []EntityReference {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]EntityReference, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

// Restore seeds the registry with previously persisted references, keeping
// their original IDs. Used when warming a session from the store.
func (r *Registry) Restore(refs []EntityReference) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ref := range refs {
		if _, ok := r.byName[ref.Name]; ok {
			continue
		}
		r.byName[ref.Name] = ref
		r.byID[ref.ID] = ref.Name
		r.order = append(r.order, ref.Name)
	}
}

// Len reports the number of assigned references.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
