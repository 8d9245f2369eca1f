package graph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/scry-decks/internal/entity"
	"github.com/phrazzld/scry-decks/internal/graph"
)

type node struct {
	entity.Entity
	parent  string
	related []string
}

func (n *node) Base() *entity.Entity { return &n.Entity }
func (n *node) Type() entity.Type {
	if n.parent != "" {
		return entity.Type{Doctype: "leaf", Subtype: "base"}
	}
	return entity.Type{Doctype: "node", Subtype: "base"}
}
func (n *node) RelatedIDs() []string { return n.related }
func (n *node) Properties() map[string]any {
	return map[string]any{"parent": n.parent}
}

type index struct {
	objects map[string]entity.Object
	order   []string
}

func newIndex() *index {
	return &index{objects: make(map[string]entity.Object)}
}

func (x *index) add(id, parent string, related ...string) *node {
	n := &node{Entity: entity.New(id), parent: parent, related: related}
	_ = x.SetObject(n, false)
	return n
}

func (x *index) Get(id string) (entity.Object, bool) {
	obj, ok := x.objects[id]
	return obj, ok
}

func (x *index) Query(entity.Filter, bool) []entity.Object { return nil }

func (x *index) Children(id string) []entity.Object {
	var out []entity.Object
	for _, childID := range x.order {
		obj := x.objects[childID]
		if childID != id && obj.Base().ParentID() == id {
			out = append(out, obj)
		}
	}
	return out
}

func (x *index) SetObject(obj entity.Object, _ bool) error {
	emb := entity.Root()
	if obj.(*node).parent != "" {
		emb = entity.EmbeddedIn("parent")
	}
	obj.Base().Bind(obj, x, emb, false)
	x.objects[obj.Base().ID()] = obj
	x.order = append(x.order, obj.Base().ID())
	return nil
}

func (x *index) MarkDirty(string)      {}
func (x *index) MarkClean(string)      {}
func (x *index) Version(string) uint64 { return 0 }

func TestChainLevels(t *testing.T) {
	t.Parallel()

	idx := newIndex()
	a := idx.add("A", "", "B")
	b := idx.add("B", "", "C")
	c := idx.add("C", "")

	g := graph.Build(idx, []entity.Object{a, b, c})
	assert.True(t, g.HasEdge("A", "B"))
	assert.True(t, g.HasEdge("B", "C"))
	assert.False(t, g.HasEdge("C", "A"))

	forward := g.Levels(graph.Forward)
	assert.Equal(t, map[string]int{"A": 2, "B": 1, "C": 0}, forward)
	assert.LessOrEqual(t, forward["C"], forward["B"])
	assert.LessOrEqual(t, forward["B"], forward["A"])

	inverted := g.Levels(graph.Inverted)
	assert.Equal(t, map[string]int{"A": 0, "B": 1, "C": 2}, inverted)
}

func TestContextNodes(t *testing.T) {
	t.Parallel()

	idx := newIndex()
	a := idx.add("A", "", "B")
	idx.add("B", "", "C")
	idx.add("C", "")

	g := graph.Build(idx, []entity.Object{a})
	assert.Equal(t, []string{"A", "B", "C"}, g.Nodes())
	assert.True(t, g.InBatch("A"))
	assert.False(t, g.InBatch("B"))
	assert.False(t, g.InBatch("C"))
	assert.Equal(t, 2, g.Levels(graph.Forward)["A"])
}

func TestEmbeddedRelationsBelongToTheirRoot(t *testing.T) {
	t.Parallel()

	idx := newIndex()
	a := idx.add("A", "")
	idx.add("A.1", "A", "B.1")
	b := idx.add("B", "")
	idx.add("B.1", "B")

	g := graph.Build(idx, []entity.Object{a, b})
	assert.Equal(t, []string{"B"}, g.Edges("A"))
	assert.Empty(t, g.Edges("B"))
	assert.Equal(t, 1, g.Levels(graph.Forward)["A"])
}

func TestMissingAndSelfRelationsAreIgnored(t *testing.T) {
	t.Parallel()

	idx := newIndex()
	a := idx.add("A", "", "missing", "A.1")
	idx.add("A.1", "A", "A")

	g := graph.Build(idx, []entity.Object{a})
	assert.Equal(t, []string{"A"}, g.Nodes())
	assert.Empty(t, g.Edges("A"))
	assert.Equal(t, map[string]int{"A": 0}, g.Levels(graph.Forward))
}

func TestCyclesTerminate(t *testing.T) {
	t.Parallel()

	idx := newIndex()
	a := idx.add("A", "", "B")
	b := idx.add("B", "", "C")
	c := idx.add("C", "", "A")

	g := graph.Build(idx, []entity.Object{a, b, c})
	for _, dir := range []graph.Direction{graph.Forward, graph.Inverted} {
		levels := g.Levels(dir)
		require.Len(t, levels, 3, dir.String())
		for id, level := range levels {
			assert.GreaterOrEqual(t, level, 0, id)
			assert.LessOrEqual(t, level, 2, id)
		}
	}
}
