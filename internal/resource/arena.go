package resource

import (
	"fmt"
	"slices"

	"github.com/jchantrell/bg3pak/internal/errs"
)

// NamedAttribute is an attribute together with its name
type NamedAttribute struct {
	Name string
	Attribute
}

// ChildGroup is an ordered list of child node indices sharing a name
type ChildGroup struct {
	Name     string
	Children []int
}

type node struct {
	name       string
	key        string
	parent     int
	attributes []NamedAttribute
	attrIndex  map[string]int
	groups     []ChildGroup
	groupIndex map[string]int
}

// Arena is a decoded resource tree. Nodes live in a flat slice and refer to
// each other only by index; a child always has a larger index than its
// parent, so the tree is acyclic. An Arena is immutable once built and may be
// read from many goroutines.
type Arena struct {
	nodes     []node
	roots     []string
	rootIndex map[string]int
}

// Node is a read-only view of one arena node
type Node struct {
	index int
	n     *node
}

// Len returns the number of nodes
func (a *Arena) Len() int {
	return len(a.nodes)
}

// Node returns the node at index
func (a *Arena) Node(index int) (Node, error) {
	if index < 0 || index >= len(a.nodes) {
		return Node{}, errs.Index(index, len(a.nodes))
	}
	return Node{index: index, n: &a.nodes[index]}, nil
}

// RootNames returns region names in stored order
func (a *Arena) RootNames() []string {
	return slices.Clone(a.roots)
}

// RootIndex returns the node index of the named region
func (a *Arena) RootIndex(name string) (int, error) {
	i, ok := a.rootIndex[name]
	if !ok {
		return 0, errs.NotFound("region", name)
	}
	return i, nil
}

// Index is the position of the node in its arena
func (n Node) Index() int { return n.index }

// Name is the node's name; siblings may share one
func (n Node) Name() string { return n.n.name }

// Key is the name of the node's key attribute, empty when none is declared
func (n Node) Key() string { return n.n.key }

// Parent is the parent's index, or -1 for region roots
func (n Node) Parent() int { return n.n.parent }

// Attributes returns the node's attributes in stored order
func (n Node) Attributes() []NamedAttribute {
	return slices.Clone(n.n.attributes)
}

// Attribute looks up an attribute by name
func (n Node) Attribute(name string) (Attribute, bool) {
	i, ok := n.n.attrIndex[name]
	if !ok {
		return Attribute{}, false
	}
	return n.n.attributes[i].Attribute, true
}

// Groups returns the child groups in stored order
func (n Node) Groups() []ChildGroup {
	out := make([]ChildGroup, len(n.n.groups))
	for i, g := range n.n.groups {
		out[i] = ChildGroup{Name: g.Name, Children: slices.Clone(g.Children)}
	}
	return out
}

// Children returns the child indices of one group, nil if the group is absent
func (n Node) Children(group string) []int {
	i, ok := n.n.groupIndex[group]
	if !ok {
		return nil
	}
	return slices.Clone(n.n.groups[i].Children)
}

// Builder assembles an Arena. Nodes must be added parent first.
type Builder struct {
	arena *Arena
}

// NewBuilder returns a builder with capacity for n nodes
func NewBuilder(n int) *Builder {
	return &Builder{arena: &Arena{
		nodes:     make([]node, 0, n),
		rootIndex: make(map[string]int),
	}}
}

// Len returns the number of nodes added so far
func (b *Builder) Len() int {
	return len(b.arena.nodes)
}

// AddNode appends a node and returns its index. parent is -1 for a region
// root (register it with AddRoot) or the index of an existing node, in which
// case the new node joins the parent's child group named after it.
func (b *Builder) AddNode(name string, parent int) (int, error) {
	index := len(b.arena.nodes)
	if parent < -1 || parent >= index {
		return 0, fmt.Errorf("node %d (%s): parent index %d out of range [0, %d)", index, name, parent, index)
	}

	b.arena.nodes = append(b.arena.nodes, node{name: name, parent: parent})

	if parent >= 0 {
		p := &b.arena.nodes[parent]
		if p.groupIndex == nil {
			p.groupIndex = make(map[string]int)
		}
		g, ok := p.groupIndex[name]
		if !ok {
			g = len(p.groups)
			p.groupIndex[name] = g
			p.groups = append(p.groups, ChildGroup{Name: name})
		}
		p.groups[g].Children = append(p.groups[g].Children, index)
	}

	return index, nil
}

// SetAttribute adds a named attribute to a node. Names are unique per node.
func (b *Builder) SetAttribute(index int, name string, attr Attribute) error {
	if index < 0 || index >= len(b.arena.nodes) {
		return fmt.Errorf("attribute %s: node index %d out of range", name, index)
	}
	if err := attr.Validate(); err != nil {
		return fmt.Errorf("attribute %s: %w", name, err)
	}

	n := &b.arena.nodes[index]
	if n.attrIndex == nil {
		n.attrIndex = make(map[string]int)
	}
	if _, exists := n.attrIndex[name]; exists {
		return fmt.Errorf("node %d (%s): duplicate attribute %s", index, n.name, name)
	}
	n.attrIndex[name] = len(n.attributes)
	n.attributes = append(n.attributes, NamedAttribute{Name: name, Attribute: attr})
	return nil
}

// SetKey records the key attribute name of a node
func (b *Builder) SetKey(index int, key string) error {
	if index < 0 || index >= len(b.arena.nodes) {
		return fmt.Errorf("key %s: node index %d out of range", key, index)
	}
	b.arena.nodes[index].key = key
	return nil
}

// AddRoot registers a parentless node as the root of the named region
func (b *Builder) AddRoot(name string, index int) error {
	if index < 0 || index >= len(b.arena.nodes) {
		return fmt.Errorf("region %s: node index %d out of range", name, index)
	}
	if b.arena.nodes[index].parent != -1 {
		return fmt.Errorf("region %s: node %d has a parent", name, index)
	}
	if _, exists := b.arena.rootIndex[name]; exists {
		return fmt.Errorf("duplicate region %s", name)
	}
	b.arena.rootIndex[name] = index
	b.arena.roots = append(b.arena.roots, name)
	return nil
}

// Build returns the finished arena. The builder must not be used afterwards.
func (b *Builder) Build() *Arena {
	a := b.arena
	b.arena = nil
	return a
}
