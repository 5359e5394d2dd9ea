package resolver

import (
	"sort"

	"github.com/amine-amaach/uatypegen/internal/model"
	"github.com/awcullen/opcua/ua"
)

type resolver struct {
	set *model.NodeSet
	h   *Hierarchy
}

// Resolve links every node of set to its ancestors and computes the
// effective member sets, walking the hierarchy from the roots down.
func Resolve(set *model.NodeSet) (*Hierarchy, error) {
	h := &Hierarchy{
		Set:   set,
		Nodes: make(map[ua.NodeID]*Node, len(set.Nodes)),
	}
	sorted := set.Sorted()
	for _, d := range sorted {
		anc, err := ancestors(set, d)
		if err != nil {
			return nil, err
		}
		h.Nodes[d.NodeID] = &Node{NodeDescriptor: d, Ancestors: anc}
	}

	h.Order = make([]*Node, 0, len(sorted))
	for _, d := range sorted {
		h.Order = append(h.Order, h.Nodes[d.NodeID])
	}
	// a supertype is always one level shallower than its subtypes
	sort.SliceStable(h.Order, func(i, j int) bool {
		return h.Order[i].Depth() < h.Order[j].Depth()
	})

	r := &resolver{set: set, h: h}
	for _, n := range h.Order {
		if n.SuperTypeID != nil {
			n.Parent = h.Nodes[n.SuperTypeID]
		}
		var err error
		switch n.NodeClass {
		case ua.NodeClassDataType:
			err = r.fields(n)
		case ua.NodeClassVariableType:
			if err = r.value(n); err == nil {
				err = r.children(n)
			}
		case ua.NodeClassObjectType:
			err = r.children(n)
		}
		if err != nil {
			return nil, err
		}
	}
	return h, nil
}

// ancestors walks the supertype chain of n. A chain that revisits a node is
// reported with the cycle path, first repeated node at both ends.
func ancestors(set *model.NodeSet, n *model.NodeDescriptor) ([]*model.NodeDescriptor, error) {
	var chain []*model.NodeDescriptor
	path := []ua.NodeID{n.NodeID}
	seen := map[ua.NodeID]int{n.NodeID: 0}
	cur := n
	for cur.SuperTypeID != nil {
		if i, ok := seen[cur.SuperTypeID]; ok {
			cycle := make([]ua.NodeID, 0, len(path)-i+1)
			cycle = append(cycle, path[i:]...)
			return nil, &model.CycleDetectedError{Path: append(cycle, cur.SuperTypeID)}
		}
		super, ok := set.Lookup(cur.SuperTypeID)
		if !ok {
			return nil, &model.MalformedNodesetError{Source: cur.Source, NodeID: cur.NodeID, Rule: "undefined supertype", Ref: model.FormatNodeID(cur.SuperTypeID)}
		}
		seen[super.NodeID] = len(path)
		path = append(path, super.NodeID)
		chain = append(chain, super)
		cur = super
	}
	return chain, nil
}

func (r *resolver) fields(n *Node) error {
	var inherited []Field
	if n.Parent != nil {
		inherited = n.Parent.Fields
	}
	decls, err := declaredFields(n, inherited)
	if err != nil {
		return err
	}

	eff := make([]Field, len(inherited))
	index := make(map[string]int, len(inherited)+len(decls))
	for i, f := range inherited {
		f.Inherited = true
		eff[i] = f
		index[f.Name] = i
	}

	seen := make(map[string]bool, len(decls))
	for _, d := range decls {
		if seen[d.Name] {
			return &model.MalformedNodesetError{Source: n.Source, NodeID: n.NodeID, Rule: "duplicate field", Ref: d.Name}
		}
		seen[d.Name] = true

		i, collides := index[d.Name]
		if !collides {
			index[d.Name] = len(eff)
			eff = append(eff, Field{FieldDescriptor: d, DeclaredBy: n.NodeID})
			continue
		}
		old := eff[i]
		if !d.Overrides {
			return r.fieldConflict(n, old, d, "unflagged collision")
		}
		if sameField(old.FieldDescriptor, d) {
			continue
		}
		if err := r.assignField(n, old, d); err != nil {
			return err
		}
		eff[i] = Field{FieldDescriptor: d, DeclaredBy: n.NodeID, Replaced: &old}
		n.Overridden = append(n.Overridden, d.Name)
	}

	n.Fields = eff
	for _, f := range eff {
		if !f.Inherited {
			n.OwnFields = append(n.OwnFields, f)
		}
	}
	return nil
}

// declaredFields returns the fields n declares itself. Definitions that
// repeat the inherited fields, as NodeSet2 does, must list them first and
// in order; a repeated field that differs from its inherited form narrows it.
func declaredFields(n *Node, inherited []Field) ([]model.FieldDescriptor, error) {
	own := n.NodeDescriptor.Fields
	if !n.FieldsIncludeInherited || len(inherited) == 0 {
		return own, nil
	}

	names := make(map[string]bool, len(own))
	for _, f := range own {
		names[f.Name] = true
	}
	repeats := false
	for _, f := range inherited {
		if names[f.Name] {
			repeats = true
			break
		}
	}
	if !repeats {
		return own, nil
	}

	if len(own) < len(inherited) {
		return nil, &model.MalformedNodesetError{Source: n.Source, NodeID: n.NodeID, Rule: "definition omits inherited field", Ref: inherited[len(own)].Name}
	}
	var out []model.FieldDescriptor
	for i, f := range inherited {
		d := own[i]
		if d.Name != f.Name {
			return nil, &model.MalformedNodesetError{Source: n.Source, NodeID: n.NodeID, Rule: "definition reorders inherited fields, expected " + f.Name, Ref: d.Name}
		}
		if sameField(f.FieldDescriptor, d) {
			continue
		}
		d.Overrides = true
		out = append(out, d)
	}
	return append(out, own[len(inherited):]...), nil
}

func sameField(a, b model.FieldDescriptor) bool {
	return a.DataType == b.DataType && a.ValueRank == b.ValueRank && a.IsOptional == b.IsOptional
}

func (r *resolver) children(n *Node) error {
	var inherited []Child
	if n.Parent != nil {
		inherited = n.Parent.Children
	}

	eff := make([]Child, len(inherited))
	index := make(map[string]int, len(inherited)+len(n.NodeDescriptor.Children))
	for i, c := range inherited {
		c.Inherited = true
		eff[i] = c
		index[c.Name] = i
	}

	seen := make(map[string]bool, len(n.NodeDescriptor.Children))
	for _, d := range n.NodeDescriptor.Children {
		if seen[d.Name] {
			return &model.MalformedNodesetError{Source: n.Source, NodeID: n.NodeID, Rule: "duplicate child", Ref: d.Name}
		}
		seen[d.Name] = true

		i, collides := index[d.Name]
		if !collides {
			index[d.Name] = len(eff)
			eff = append(eff, Child{ChildDescriptor: d, DeclaredBy: n.NodeID})
			continue
		}
		old := eff[i]
		if !d.Overrides {
			return r.childConflict(n, old, d, "unflagged collision")
		}
		if sameChild(old.ChildDescriptor, d) {
			continue
		}
		if err := r.assignChild(n, old, d); err != nil {
			return err
		}
		eff[i] = Child{ChildDescriptor: d, DeclaredBy: n.NodeID, Replaced: &old}
		n.Overridden = append(n.Overridden, d.Name)
	}

	n.Children = eff
	for _, c := range eff {
		if !c.Inherited {
			n.OwnChildren = append(n.OwnChildren, c)
		}
	}
	return nil
}

func sameChild(a, b model.ChildDescriptor) bool {
	return a.NodeClass == b.NodeClass &&
		a.TypeDefinition == b.TypeDefinition &&
		a.DataType == b.DataType &&
		a.ValueRank == b.ValueRank &&
		a.ModellingRule == b.ModellingRule &&
		a.IsPlaceholder == b.IsPlaceholder
}

// value settles the DataType and ValueRank of a VariableType. Without a
// DataType of its own the node inherits both from its supertype.
func (r *resolver) value(n *Node) error {
	dt, rank := n.NodeDescriptor.DataType, n.NodeDescriptor.ValueRank
	switch {
	case dt == nil && n.Parent != nil:
		dt, rank = n.Parent.DataType, n.Parent.ValueRank
	case dt == nil:
		dt, rank = model.BaseDataTypeID, model.ValueRankAny
	case n.Parent != nil:
		if !r.set.IsSubtypeOf(dt, n.Parent.DataType) {
			return r.valueConflict(n, dt, rank, "data type is not a subtype of the inherited data type")
		}
		if !RankCompatible(n.Parent.ValueRank, rank) {
			return r.valueConflict(n, dt, rank, "value rank is not compatible with the inherited value rank")
		}
	}
	n.DataType, n.ValueRank = dt, rank
	return nil
}
