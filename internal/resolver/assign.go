package resolver

import (
	"fmt"

	"github.com/amine-amaach/uatypegen/internal/model"
	"github.com/awcullen/opcua/ua"
)

// RankCompatible reports whether a member of rank narrow may replace one of
// rank loose.
func RankCompatible(loose, narrow int32) bool {
	switch loose {
	case model.ValueRankAny:
		return true
	case model.ValueRankScalarOrOneDimension:
		return narrow == model.ValueRankScalarOrOneDimension || narrow == model.ValueRankScalar || narrow == model.ValueRankOneDimension
	case model.ValueRankOneOrMoreDimensions:
		return narrow >= model.ValueRankOneOrMoreDimensions
	}
	return narrow == loose
}

func (r *resolver) assignField(n *Node, old Field, d model.FieldDescriptor) error {
	if !r.set.IsSubtypeOf(d.DataType, old.DataType) {
		return r.fieldConflict(n, old, d, "data type is not a subtype of the inherited data type")
	}
	if !RankCompatible(old.ValueRank, d.ValueRank) {
		return r.fieldConflict(n, old, d, "value rank is not compatible with the inherited value rank")
	}
	if !old.IsOptional && d.IsOptional {
		return r.fieldConflict(n, old, d, "mandatory field cannot become optional")
	}
	return nil
}

func (r *resolver) assignChild(n *Node, old Child, d model.ChildDescriptor) error {
	if d.NodeClass != old.NodeClass {
		return r.childConflict(n, old, d, fmt.Sprintf("node class %s differs from inherited %s", model.ClassName(d.NodeClass), model.ClassName(old.NodeClass)))
	}
	if old.TypeDefinition != nil && d.TypeDefinition != nil && !r.set.IsSubtypeOf(d.TypeDefinition, old.TypeDefinition) {
		return r.childConflict(n, old, d, "type definition is not a subtype of the inherited type definition")
	}
	if d.NodeClass == ua.NodeClassVariable {
		if !r.set.IsSubtypeOf(d.DataType, old.DataType) {
			return r.childConflict(n, old, d, "data type is not a subtype of the inherited data type")
		}
		if !RankCompatible(old.ValueRank, d.ValueRank) {
			return r.childConflict(n, old, d, "value rank is not compatible with the inherited value rank")
		}
	}
	if old.ModellingRule.IsPlaceholder() != d.ModellingRule.IsPlaceholder() {
		return r.childConflict(n, old, d, fmt.Sprintf("modelling rule %s cannot replace %s", d.ModellingRule, old.ModellingRule))
	}
	// Optional may tighten to Mandatory, never the other way around.
	if !old.ModellingRule.IsOptional() && d.ModellingRule.IsOptional() {
		return r.childConflict(n, old, d, fmt.Sprintf("modelling rule %s loosens inherited %s", d.ModellingRule, old.ModellingRule))
	}
	return nil
}

func (r *resolver) fieldConflict(n *Node, old Field, d model.FieldDescriptor, rule string) error {
	return &model.OverrideTypeConflictError{
		NodeID:     n.NodeID,
		Member:     d.Name,
		DeclaredBy: old.DeclaredBy,
		Inherited:  r.typeLabel(old.DataType, old.ValueRank),
		Overriding: r.typeLabel(d.DataType, d.ValueRank),
		Rule:       rule,
	}
}

func (r *resolver) childConflict(n *Node, old Child, d model.ChildDescriptor, rule string) error {
	return &model.OverrideTypeConflictError{
		NodeID:     n.NodeID,
		Member:     d.Name,
		DeclaredBy: old.DeclaredBy,
		Inherited:  r.childLabel(old.ChildDescriptor),
		Overriding: r.childLabel(d),
		Rule:       rule,
	}
}

func (r *resolver) valueConflict(n *Node, dt ua.NodeID, rank int32, rule string) error {
	return &model.OverrideTypeConflictError{
		NodeID:     n.NodeID,
		Member:     "Value",
		DeclaredBy: n.Parent.NodeID,
		Inherited:  r.typeLabel(n.Parent.DataType, n.Parent.ValueRank),
		Overriding: r.typeLabel(dt, rank),
		Rule:       rule,
	}
}

func (r *resolver) childLabel(c model.ChildDescriptor) string {
	s := model.ClassName(c.NodeClass)
	if c.TypeDefinition != nil {
		s += " " + r.name(c.TypeDefinition)
	}
	if c.NodeClass == ua.NodeClassVariable {
		s += " of " + r.typeLabel(c.DataType, c.ValueRank)
	}
	return s + " " + c.ModellingRule.String()
}

// typeLabel renders a data type reference like Int32[] (i=6).
func (r *resolver) typeLabel(id ua.NodeID, rank int32) string {
	return fmt.Sprintf("%s%s (%s)", r.name(id), rankSuffix(rank), model.FormatNodeID(id))
}

func (r *resolver) name(id ua.NodeID) string {
	if n, ok := r.set.Lookup(id); ok {
		return n.Name()
	}
	return model.FormatNodeID(id)
}

func rankSuffix(rank int32) string {
	switch {
	case rank == model.ValueRankAny:
		return "<any rank>"
	case rank == model.ValueRankScalarOrOneDimension:
		return "[]?"
	case rank == model.ValueRankOneOrMoreDimensions:
		return "[]..."
	case rank > 0:
		s := ""
		for i := int32(0); i < rank; i++ {
			s += "[]"
		}
		return s
	}
	return ""
}
