package emitter

import (
	"sort"
	"strings"

	"github.com/amine-amaach/uatypegen/internal/model"
	"github.com/amine-amaach/uatypegen/internal/resolver"
	"github.com/awcullen/opcua/ua"
	"github.com/dave/jennifer/jen"
)

// PlaceholderMarker starts the comment that stands in for a placeholder
// child inside a base contract.
const PlaceholderMarker = "+uatype:placeholder"

// emitInstanceType renders the two contracts of an ObjectType or
// VariableType: <Name>Base with the children introduced or narrowed here,
// and <Name>, the base composed with everything inherited. When the node
// narrows inherited children the full contract lists the inherited members
// one by one instead of embedding the supertype, so a narrowed child is
// reachable exactly once and only with its narrow type.
func (e *Emitter) emitInstanceType(f *jen.File, n *resolver.Node) error {
	name := e.names[n.NodeID]
	base := name + "Base"

	if err := e.checkAccessors(n); err != nil {
		return err
	}

	own, err := e.members(n, n.OwnChildren)
	if err != nil {
		return err
	}
	f.Comment(base + " lists the members " + n.Name() + " introduces or narrows.")
	f.Type().Id(base).Interface(own...)

	var shape valueShape
	if n.NodeClass == ua.NodeClassVariableType {
		if shape, err = e.shape(n); err != nil {
			return err
		}
	}

	items := []jen.Code{jen.Id(base)}
	switch {
	case n.Parent != nil && !n.HasOverrides():
		parent, err := e.instantiate(n.Parent, shape.value, shape.tag)
		if err != nil {
			return err
		}
		items = append(items, parent)
	default:
		items = append(items, e.core(n, shape))
		if n.Parent != nil {
			inherited, err := e.inheritedMembers(n)
			if err != nil {
				return err
			}
			items = append(items, inherited...)
		}
	}

	lead := "is the contract of the " + model.ClassName(n.NodeClass) + " " + n.Name() + "."
	if n.IsAbstract {
		lead += " It is abstract: instances always have a subtype as their type definition."
	}
	f.Line()
	comment(f, docLines(name, lead, n.Documentation))
	decl := f.Type().Id(name)
	if params := typeParams(shape); len(params) > 0 {
		decl.Types(params...)
	}
	decl.Interface(items...)
	return nil
}

// core is the support contract the hierarchy root builds on.
func (e *Emitter) core(n *resolver.Node, s valueShape) jen.Code {
	if n.NodeClass == ua.NodeClassVariableType {
		return jen.Id("Variable").Types(s.value, s.tag)
	}
	return jen.Id("Object")
}

// inheritedMembers lists the inherited, non narrowed children of n.
func (e *Emitter) inheritedMembers(n *resolver.Node) ([]jen.Code, error) {
	var kept []resolver.Child
	for _, c := range n.Children {
		if c.Inherited {
			kept = append(kept, c)
		}
	}
	out := []jen.Code{}
	if len(kept) == 0 {
		return out, nil
	}
	overridden := append([]string(nil), n.Overridden...)
	sort.Strings(overridden)
	out = append(out, jen.Line(), jen.Comment("inherited from "+n.Parent.Name()+", without "+strings.Join(overridden, ", ")))
	members, err := e.members(n, kept)
	if err != nil {
		return nil, err
	}
	return append(out, members...), nil
}

// members renders child accessors, and markers for placeholders.
func (e *Emitter) members(owner *resolver.Node, children []resolver.Child) ([]jen.Code, error) {
	var out []jen.Code
	for _, c := range children {
		if c.IsPlaceholder {
			out = append(out, jen.Comment(e.placeholderMarker(c)))
			continue
		}
		t, err := e.childType(owner, c)
		if err != nil {
			return nil, err
		}
		if c.Description != "" {
			out = append(out, jen.Comment(accessorName(c.Name)+" "+firstLine(c.Description)))
		}
		m := jen.Id(accessorName(c.Name)).Params()
		if c.IsOptional {
			m = m.Params(t, jen.Bool())
		} else {
			m = m.Add(t)
		}
		out = append(out, m)
	}
	return out, nil
}

// childType is the Go type an accessor returns for c.
func (e *Emitter) childType(owner *resolver.Node, c resolver.Child) (jen.Code, error) {
	switch c.NodeClass {
	case ua.NodeClassMethod:
		return jen.Id("Method"), nil
	case ua.NodeClassObject:
		target, err := e.typeDefinition(owner, c, ua.NodeClassObjectType)
		if err != nil {
			return nil, err
		}
		return jen.Id(e.names[target.NodeID]), nil
	case ua.NodeClassVariable:
		target, err := e.typeDefinition(owner, c, ua.NodeClassVariableType)
		if err != nil {
			return nil, err
		}
		value, err := e.valueType(owner, c.Name, c.DataType, c.ValueRank)
		if err != nil {
			return nil, err
		}
		tag := jen.Id(tagName(e.h.Set.NearestBuiltin(c.DataType)))
		return e.instantiate(target, value, tag)
	}
	return nil, &model.UnemittableNodeError{NodeID: owner.NodeID, Member: c.Name, Reason: "unsupported child node class " + model.ClassName(c.NodeClass)}
}

func (e *Emitter) typeDefinition(owner *resolver.Node, c resolver.Child, class ua.NodeClass) (*resolver.Node, error) {
	target, ok := e.h.Lookup(c.TypeDefinition)
	if !ok {
		return nil, &model.UnemittableNodeError{NodeID: owner.NodeID, Member: c.Name, Ref: c.TypeDefinition, Reason: "type definition is not defined"}
	}
	if target.NodeClass != class {
		return nil, &model.UnemittableNodeError{NodeID: owner.NodeID, Member: c.Name, Ref: c.TypeDefinition, Reason: "type definition is a " + model.ClassName(target.NodeClass)}
	}
	if _, ok := e.names[target.NodeID]; !ok {
		return nil, &model.UnemittableNodeError{NodeID: owner.NodeID, Member: c.Name, Ref: c.TypeDefinition, Reason: "type definition was not emitted"}
	}
	return target, nil
}

// checkAccessors rejects effective child sets whose Go names collide.
func (e *Emitter) checkAccessors(n *resolver.Node) error {
	seen := make(map[string]string, len(n.Children))
	for _, c := range n.Children {
		if c.IsPlaceholder {
			continue
		}
		a := accessorName(c.Name)
		if other, dup := seen[a]; dup {
			return &model.UnemittableNodeError{NodeID: n.NodeID, Member: c.Name, Reason: "accessor name clashes with " + other + " in Go"}
		}
		seen[a] = c.Name
	}
	return nil
}

func (e *Emitter) placeholderMarker(c resolver.Child) string {
	typeName := ""
	if c.TypeDefinition != nil {
		typeName = e.names[c.TypeDefinition]
	}
	if typeName == "" {
		typeName = model.ClassName(c.NodeClass)
	}
	return PlaceholderMarker + " name=" + c.Name + " type=" + typeName + " rule=" + c.ModellingRule.String()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
