// Package relgraph builds the adjacency structure over known entities that
// informs relevance boosts during scoring.
//
// Edges come from explicit fields (owner, location, skills) and from textual
// co-mentions: entity A is adjacent to entity B when B's name appears inside
// A's description. The co-mention scan is O(n²) over the entity count; with
// the bounded entity sets a single session produces this is fine, but past
// roughly a thousand entities an inverted index over descriptions should
// replace the scan.
package relgraph

import (
	"strings"

	"github.com/ntbao/mythweaver/pkg/state"
)

// Graph is an undirected adjacency map from entity name to the set of
// related entity names. Immutable once built; rebuild per prompt build.
type Graph map[string]map[string]struct{}

// Build constructs the relationship graph for a snapshot. A nil or empty
// snapshot yields an empty graph; malformed entities contribute no edges.
func Build(g *state.GameState) Graph {
	graph := make(Graph)
	if g == nil || len(g.Entities) == 0 {
		return graph
	}

	entities := g.EntitiesInOrder()

	for _, e := range entities {
		if e.Name == "" {
			continue
		}

		if e.Owner != "" {
			addEdge(graph, e.Name, e.Owner)
		}
		if e.Location != "" {
			addEdge(graph, e.Name, e.Location)
		}
		for _, skill := range e.Skills {
			if skill != "" {
				addEdge(graph, e.Name, skill)
			}
		}

		// Textual co-mentions: any other entity named inside this one's
		// description.
		if e.Description == "" {
			continue
		}
		desc := strings.ToLower(e.Description)
		for _, other := range entities {
			if other.Name == "" || other.Name == e.Name {
				continue
			}
			if strings.Contains(desc, strings.ToLower(other.Name)) {
				addEdge(graph, e.Name, other.Name)
			}
		}
	}

	return graph
}

// Related returns the set of names adjacent to name. The returned map is the
// graph's own; callers must not mutate it.
func (g Graph) Related(name string) map[string]struct{} {
	return g[name]
}

// Adjacent reports whether a and b share an edge.
func (g Graph) Adjacent(a, b string) bool {
	if peers, ok := g[a]; ok {
		if _, ok := peers[b]; ok {
			return true
		}
	}
	return false
}

// addEdge records an undirected edge between a and b.
func addEdge(g Graph, a, b string) {
	if a == b || a == "" || b == "" {
		return
	}
	for _, pair := range [2][2]string{{a, b}, {b, a}} {
		set, ok := g[pair[0]]
		if !ok {
			set = make(map[string]struct{})
			g[pair[0]] = set
		}
		set[pair[1]] = struct{}{}
	}
}
