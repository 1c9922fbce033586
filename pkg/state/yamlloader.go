package state

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadSnapshotFile reads, parses, and validates a game-state snapshot from a
// YAML file on disk. Used by offline tooling (cmd/mythweaver) and tests; the
// embedding game normally hands snapshots over in memory.
func LoadSnapshotFile(path string) (*GameState, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("state: open snapshot %q: %w", path, err)
	}
	defer f.Close()

	g, err := LoadSnapshotFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("state: parse snapshot %q: %w", path, err)
	}
	return g, nil
}

// LoadSnapshotFromReader parses snapshot YAML from r and validates the
// result. The reader is consumed entirely.
func LoadSnapshotFromReader(r io.Reader) (*GameState, error) {
	var g GameState
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true) // reject unknown keys to catch typos
	if err := dec.Decode(&g); err != nil {
		return nil, fmt.Errorf("state: decode snapshot yaml: %w", err)
	}

	// Snapshots authored by hand often omit entity_order; rebuild it from the
	// map so downstream iteration is deterministic.
	if len(g.EntityOrder) == 0 && len(g.Entities) > 0 {
		for _, e := range g.EntitiesInOrder() {
			g.EntityOrder = append(g.EntityOrder, e.Name)
		}
	}

	if err := Validate(&g); err != nil {
		return nil, err
	}
	return &g, nil
}
