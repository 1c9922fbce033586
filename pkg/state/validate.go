package state

import (
	"errors"
	"fmt"
	"log/slog"
)

// Validate checks a snapshot for shape problems at the boundary so that the
// scoring and section-building pipeline never has to re-validate.
//
// Hard failures (returned as a joined error):
//   - an entity whose map key differs from its Name
//   - an entity with an empty name or unrecognised type
//   - a history entry with a role other than user/model
//
// Soft problems (party names that do not resolve, unknown memory categories,
// duplicate party entries) are logged as warnings and tolerated — consuming
// code degrades gracefully per the error-handling design.
func Validate(g *GameState) error {
	if g == nil {
		return errors.New("state: snapshot is nil")
	}

	var errs []error

	for key, e := range g.Entities {
		switch {
		case e.Name == "":
			errs = append(errs, fmt.Errorf("state: entity under key %q has empty name", key))
		case e.Name != key:
			errs = append(errs, fmt.Errorf("state: entity key %q does not match name %q", key, e.Name))
		}
		if !e.Type.IsValid() {
			errs = append(errs, fmt.Errorf("state: entity %q has unrecognised type %q", e.Name, e.Type))
		}
	}

	for i, h := range g.History {
		if h.Role != RoleUser && h.Role != RoleModel {
			errs = append(errs, fmt.Errorf("state: history[%d] has unrecognised role %q", i, h.Role))
		}
	}

	seen := make(map[string]bool, len(g.Party))
	for _, name := range g.Party {
		if seen[name] {
			slog.Warn("duplicate party member", "name", name)
		}
		seen[name] = true
		if _, ok := g.Entities[name]; !ok {
			slog.Warn("party member does not resolve to a known entity", "name", name)
		}
	}

	for i, m := range g.Memories {
		if m.Category != "" && !m.Category.IsValid() {
			slog.Warn("memory has unrecognised category", "index", i, "category", string(m.Category))
		}
	}

	return errors.Join(errs...)
}
