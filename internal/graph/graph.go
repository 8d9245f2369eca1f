// Package graph orders the roots of a commit batch by their dependencies.
//
// A graph is built fresh for every batch. Its nodes are the batch roots plus
// every root reachable from them through relations; an edge A -> B means some
// entity stored in A's record relates to an entity stored in B's record.
package graph

import (
	"sort"

	"github.com/phrazzld/scry-decks/internal/entity"
)

// Resolver gives the graph read access to the index.
type Resolver interface {
	Get(id string) (entity.Object, bool)
	Children(id string) []entity.Object
}

// Direction selects which way edges are followed when assigning levels.
type Direction int

const (
	// Forward follows dependencies: a root ranks above everything it relates to.
	Forward Direction = iota
	// Inverted follows dependents: a root ranks above everything relating to it.
	Inverted
)

// String implements fmt.Stringer.
func (d Direction) String() string {
	if d == Inverted {
		return "inverted"
	}
	return "forward"
}

// Graph is a dependency graph over root ids.
type Graph struct {
	nodes []string
	known map[string]bool
	batch map[string]bool
	edges map[string]map[string]struct{}
}

// Build creates the graph for a batch of roots.
func Build(r Resolver, roots []entity.Object) *Graph {
	g := &Graph{
		known: make(map[string]bool),
		batch: make(map[string]bool),
		edges: make(map[string]map[string]struct{}),
	}

	queue := make([]entity.Object, 0, len(roots))
	for _, root := range roots {
		id := root.Base().ID()
		g.batch[id] = true
		if g.addNode(id) {
			queue = append(queue, root)
		}
	}

	for len(queue) > 0 {
		root := queue[0]
		queue = queue[1:]
		from := root.Base().ID()

		for _, obj := range subtree(r, root) {
			for _, relatedID := range obj.RelatedIDs() {
				target, ok := r.Get(relatedID)
				if !ok {
					continue
				}
				targetRoot, ok := target.Base().Root()
				if !ok {
					continue
				}
				to := targetRoot.Base().ID()
				if to == from {
					continue
				}
				g.addEdge(from, to)
				if g.addNode(to) {
					queue = append(queue, targetRoot)
				}
			}
		}
	}
	return g
}

func (g *Graph) addNode(id string) bool {
	if g.known[id] {
		return false
	}
	g.known[id] = true
	g.nodes = append(g.nodes, id)
	return true
}

func (g *Graph) addEdge(from, to string) {
	targets, ok := g.edges[from]
	if !ok {
		targets = make(map[string]struct{})
		g.edges[from] = targets
	}
	targets[to] = struct{}{}
}

// Nodes returns every node in discovery order, batch roots first.
func (g *Graph) Nodes() []string {
	out := make([]string, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// InBatch reports whether id was one of the roots the graph was built from.
// Other nodes are context only.
func (g *Graph) InBatch(id string) bool {
	return g.batch[id]
}

// Edges returns the sorted targets of from.
func (g *Graph) Edges(from string) []string {
	targets := make([]string, 0, len(g.edges[from]))
	for to := range g.edges[from] {
		targets = append(targets, to)
	}
	sort.Strings(targets)
	return targets
}

// HasEdge reports whether from depends on to.
func (g *Graph) HasEdge(from, to string) bool {
	_, ok := g.edges[from][to]
	return ok
}

// Levels assigns each node the length of the longest path leaving it in the
// given direction. Nodes without outgoing paths get 0.
//
// Cycles are tolerated: relaxation runs at most once per node and levels are
// capped at len(nodes)-1.
func (g *Graph) Levels(dir Direction) map[string]int {
	levels := make(map[string]int, len(g.nodes))
	for _, id := range g.nodes {
		levels[id] = 0
	}
	limit := len(g.nodes) - 1
	if limit <= 0 {
		return levels
	}

	for round := 0; round < len(g.nodes); round++ {
		changed := false
		for _, from := range g.nodes {
			for _, to := range g.Edges(from) {
				src, dst := from, to
				if dir == Inverted {
					src, dst = to, from
				}
				if next := levels[dst] + 1; next > levels[src] && next <= limit {
					levels[src] = next
					changed = true
				}
			}
		}
		if !changed {
			break
		}
	}
	return levels
}

// subtree returns root and every entity embedded under it.
func subtree(r Resolver, root entity.Object) []entity.Object {
	out := []entity.Object{root}
	seen := map[string]bool{root.Base().ID(): true}
	for i := 0; i < len(out); i++ {
		for _, child := range r.Children(out[i].Base().ID()) {
			id := child.Base().ID()
			if seen[id] {
				continue
			}
			seen[id] = true
			out = append(out, child)
		}
	}
	return out
}
