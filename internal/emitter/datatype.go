package emitter

import (
	"fmt"

	"github.com/amine-amaach/uatypegen/internal/model"
	"github.com/amine-amaach/uatypegen/internal/resolver"
	"github.com/dave/jennifer/jen"
)

func (e *Emitter) emitDataType(f *jen.File, n *resolver.Node) error {
	switch n.Kind {
	case model.KindStructure, model.KindStructureWithOptionalFields:
		if err := e.emitStructure(f, n); err != nil {
			return err
		}
	case model.KindUnion:
		if err := e.emitUnion(f, n); err != nil {
			return err
		}
	case model.KindEnumeration:
		e.emitEnumeration(f, n)
		return nil
	default:
		return e.emitSimple(f, n)
	}
	if e.hasEnvelope(n) {
		e.emitEnvelope(f, n)
	}
	return nil
}

func (e *Emitter) emitStructure(f *jen.File, n *resolver.Node) error {
	name := e.names[n.NodeID]
	lead := "is the structure " + n.Name() + "."
	if n.IsAbstract {
		lead = "is the abstract structure " + n.Name() + ". Values travel as one of its subtypes."
	}
	comment(f, docLines(name, lead, n.Documentation))

	seen := make(map[string]string, len(n.Fields))
	fields := make([]jen.Code, 0, len(n.Fields))
	for _, fd := range n.Fields {
		goName := exported(fd.Name)
		if other, dup := seen[goName]; dup {
			return &model.UnemittableNodeError{NodeID: n.NodeID, Member: fd.Name, Reason: "field name clashes with " + other + " in Go"}
		}
		seen[goName] = fd.Name

		t, err := e.valueType(n, fd.Name, fd.DataType, fd.ValueRank)
		if err != nil {
			return err
		}
		tagValue := fd.Name
		if fd.IsOptional {
			tagValue += ",optional"
			if fd.ValueRank == model.ValueRankScalar {
				t = jen.Op("*").Add(t)
			}
		}
		if fd.Description != "" {
			fields = append(fields, jen.Comment(fd.Description))
		}
		fields = append(fields, jen.Id(goName).Add(t).Tag(map[string]string{"uatype": tagValue}))
	}
	f.Type().Id(name).Struct(fields...)
	return nil
}

// emitUnion renders a union as a record with one pointer per option and the
// switch field selecting the one that is set.
func (e *Emitter) emitUnion(f *jen.File, n *resolver.Node) error {
	name := e.names[n.NodeID]
	comment(f, docLines(name, "is the union "+n.Name()+". SwitchField holds the 1-based index of the set option, 0 for none.", n.Documentation))

	fields := []jen.Code{jen.Id("SwitchField").Uint32()}
	seen := map[string]string{"SwitchField": "SwitchField"}
	for _, fd := range n.Fields {
		goName := exported(fd.Name)
		if other, dup := seen[goName]; dup {
			return &model.UnemittableNodeError{NodeID: n.NodeID, Member: fd.Name, Reason: "option name clashes with " + other + " in Go"}
		}
		seen[goName] = fd.Name

		t, err := e.valueType(n, fd.Name, fd.DataType, fd.ValueRank)
		if err != nil {
			return err
		}
		if fd.ValueRank == model.ValueRankScalar {
			t = jen.Op("*").Add(t)
		}
		fields = append(fields, jen.Id(goName).Add(t).Tag(map[string]string{"uatype": fd.Name}))
	}
	f.Type().Id(name).Struct(fields...)
	return nil
}

// emitEnvelope renders the ExtensionObject variant of a structure.
func (e *Emitter) emitEnvelope(f *jen.File, n *resolver.Node) {
	name := e.names[n.NodeID]
	env := name + "ExtensionObject"
	enc := n.Encodings.Binary
	if enc == nil {
		enc = n.Encodings.XML
	}
	if enc == nil {
		enc = n.Encodings.JSON
	}

	f.Line()
	f.Comment(env + " carries " + name + " as a self describing payload.")
	f.Type().Id(env).Struct(jen.Id(name))

	f.Line()
	f.Comment("EncodingID returns the id of the default encoding of " + name + ".")
	f.Func().Params(jen.Id(env)).Id("EncodingID").Params().Qual(uaPath, "ExpandedNodeID").Block(
		jen.Return(e.expandedID(enc)),
	)

	f.Line()
	f.Comment("DataTypeID returns the id of the " + n.Name() + " DataType.")
	f.Func().Params(jen.Id(env)).Id("DataTypeID").Params().Qual(uaPath, "ExpandedNodeID").Block(
		jen.Return(e.expandedID(n.NodeID)),
	)

	f.Line()
	f.Var().Id("_").Id("ExtensionObject").Op("=").Id(env).Values()
}

func (e *Emitter) emitEnumeration(f *jen.File, n *resolver.Node) {
	name := e.names[n.NodeID]
	consts := e.consts[n.NodeID]
	comment(f, docLines(name, "is the enumeration "+n.Name()+".", n.Documentation))
	f.Type().Id(name).Int32()

	if len(n.EnumValues) == 0 {
		return
	}
	defs := make([]jen.Code, 0, len(n.EnumValues))
	for i, v := range n.EnumValues {
		if v.Description != "" {
			defs = append(defs, jen.Comment(v.Description))
		}
		defs = append(defs, jen.Id(consts[i]).Id(name).Op("=").Lit(int(v.Value)))
	}
	f.Line()
	f.Const().Defs(defs...)

	cases := make([]jen.Code, 0, len(n.EnumValues))
	done := make(map[int64]bool, len(n.EnumValues))
	for i, v := range n.EnumValues {
		if done[v.Value] {
			continue
		}
		done[v.Value] = true
		cases = append(cases, jen.Case(jen.Id(consts[i])).Block(jen.Return(jen.Lit(v.Name))))
	}
	f.Line()
	f.Func().Params(jen.Id("v").Id(name)).Id("String").Params().String().Block(
		jen.Switch(jen.Id("v")).Block(cases...),
		jen.Return(jen.Qual("fmt", "Sprintf").Call(jen.Lit(name+"(%d)"), jen.Int32().Call(jen.Id("v")))),
	)
}

// emitSimple renders simple, option set and abstract non structured types as
// a named type over the Go type of their nearest builtin supertype.
func (e *Emitter) emitSimple(f *jen.File, n *resolver.Node) error {
	name := e.names[n.NodeID]
	b := e.h.Set.NearestBuiltin(n.NodeID)
	if b == 0 {
		return &model.UnemittableNodeError{NodeID: n.NodeID, Reason: "simple type does not derive from a builtin type"}
	}
	lead := fmt.Sprintf("is the simple DataType %s.", n.Name())
	if n.IsAbstract {
		lead = fmt.Sprintf("is the abstract DataType %s.", n.Name())
	}
	comment(f, docLines(name, lead, n.Documentation))
	f.Type().Id(name).Add(builtinGoType(b))

	if len(n.EnumValues) == 0 || !isInteger(b) {
		return nil
	}
	// option set bits
	defs := make([]jen.Code, 0, len(n.EnumValues))
	for i, v := range n.EnumValues {
		if v.Value < 0 || v.Value >= bitLimit(b) {
			return &model.UnemittableNodeError{NodeID: n.NodeID, Member: v.Name, Reason: "option set bit out of range"}
		}
		defs = append(defs, jen.Id(e.consts[n.NodeID][i]).Id(name).Op("=").Lit(1).Op("<<").Lit(int(v.Value)))
	}
	f.Line()
	f.Const().Defs(defs...)
	return nil
}

func isInteger(builtin uint32) bool {
	return bitLimit(builtin) > 0
}

// bitLimit is the number of usable option bits of an integer builtin type.
func bitLimit(builtin uint32) int64 {
	switch builtin {
	case 2:
		return 7
	case 3:
		return 8
	case 4:
		return 15
	case 5:
		return 16
	case 6:
		return 31
	case 7:
		return 32
	case 8:
		return 63
	case 9:
		return 64
	}
	return 0
}
