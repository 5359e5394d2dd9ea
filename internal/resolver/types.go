package resolver

import (
	"github.com/amine-amaach/uatypegen/internal/model"
	"github.com/awcullen/opcua/ua"
)

// Field is one member of the effective field set of a structured DataType.
type Field struct {
	model.FieldDescriptor
	// DeclaredBy is the node whose declaration is in effect.
	DeclaredBy ua.NodeID
	// Inherited is set when DeclaredBy is an ancestor.
	Inherited bool
	// Replaced is the inherited declaration an override narrowed, nil otherwise.
	Replaced *Field
}

// Child is one member of the effective child set of an ObjectType or
// VariableType.
type Child struct {
	model.ChildDescriptor
	DeclaredBy ua.NodeID
	Inherited  bool
	Replaced   *Child
}

// Node is a NodeDescriptor together with everything derived from its
// position in the type hierarchy.
type Node struct {
	*model.NodeDescriptor

	// Ancestors lists the supertype chain, nearest first.
	Ancestors []*model.NodeDescriptor
	Parent    *Node

	Fields   []Field
	Children []Child

	// Own lists the members introduced or overridden at this node, in
	// effective order.
	OwnFields   []Field
	OwnChildren []Child

	// Overridden names the inherited members this node narrows.
	Overridden []string

	// DataType and ValueRank are the effective value of a VariableType.
	DataType  ua.NodeID
	ValueRank int32
}

// Depth is the number of ancestors.
func (n *Node) Depth() int {
	return len(n.Ancestors)
}

// HasOverrides reports whether the node narrows any inherited member.
func (n *Node) HasOverrides() bool {
	return len(n.Overridden) > 0
}

// Field returns the effective field with the given name.
func (n *Node) Field(name string) (Field, bool) {
	for _, f := range n.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Child returns the effective child with the given name.
func (n *Node) Child(name string) (Child, bool) {
	for _, c := range n.Children {
		if c.Name == name {
			return c, true
		}
	}
	return Child{}, false
}

// Placeholders returns the effective placeholder children.
func (n *Node) Placeholders() []Child {
	var out []Child
	for _, c := range n.Children {
		if c.IsPlaceholder {
			out = append(out, c)
		}
	}
	return out
}

// IsA reports whether the node equals or derives from id.
func (n *Node) IsA(id ua.NodeID) bool {
	if n.NodeID == id {
		return true
	}
	for _, a := range n.Ancestors {
		if a.NodeID == id {
			return true
		}
	}
	return false
}

// Hierarchy is the resolved form of a NodeSet.
type Hierarchy struct {
	Set   *model.NodeSet
	Nodes map[ua.NodeID]*Node
	// Order lists every node with its supertype before it. Ties are broken
	// by NodeId so the order is stable across runs.
	Order []*Node
}

// Lookup returns the resolved node with the given id.
func (h *Hierarchy) Lookup(id ua.NodeID) (*Node, bool) {
	if id == nil {
		return nil, false
	}
	n, ok := h.Nodes[id]
	return n, ok
}

// Roots returns the nodes without a supertype.
func (h *Hierarchy) Roots() []*Node {
	var out []*Node
	for _, n := range h.Order {
		if n.Parent == nil {
			out = append(out, n)
		}
	}
	return out
}

// Subtypes returns the direct subtypes of id in hierarchy order.
func (h *Hierarchy) Subtypes(id ua.NodeID) []*Node {
	var out []*Node
	for _, n := range h.Order {
		if n.Parent != nil && n.Parent.NodeID == id {
			out = append(out, n)
		}
	}
	return out
}

// Class returns the resolved nodes of one node class in hierarchy order.
func (h *Hierarchy) Class(c ua.NodeClass) []*Node {
	var out []*Node
	for _, n := range h.Order {
		if n.NodeClass == c {
			out = append(out, n)
		}
	}
	return out
}
