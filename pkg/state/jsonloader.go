package state

import (
	"encoding/json"
	"fmt"
)

// LoadSnapshotJSON parses a snapshot from JSON, as delivered by the HTTP
// API, and validates it the same way the YAML loader does.
func LoadSnapshotJSON(data []byte) (*GameState, error) {
	var g GameState
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("state: decode snapshot json: %w", err)
	}

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
