package emitter

import (
	"github.com/amine-amaach/uatypegen/internal/model"
	"github.com/amine-amaach/uatypegen/internal/resolver"
	"github.com/awcullen/opcua/ua"
	"github.com/dave/jennifer/jen"
)

const (
	uaPath   = "github.com/awcullen/opcua/ua"
	uuidPath = "github.com/google/uuid"
)

// builtinGoType maps a builtin DataType id onto the Go type the ua package
// uses for it. The abstract numeric types and BaseDataType stay variants.
func builtinGoType(id uint32) *jen.Statement {
	switch id {
	case 1:
		return jen.Bool()
	case 2:
		return jen.Int8()
	case 3:
		return jen.Byte()
	case 4:
		return jen.Int16()
	case 5:
		return jen.Uint16()
	case 6, 29:
		return jen.Int32()
	case 7:
		return jen.Uint32()
	case 8:
		return jen.Int64()
	case 9:
		return jen.Uint64()
	case 10:
		return jen.Float32()
	case 11:
		return jen.Float64()
	case 12:
		return jen.String()
	case 13:
		return jen.Qual("time", "Time")
	case 14:
		return jen.Qual(uuidPath, "UUID")
	case 15:
		return jen.Qual(uaPath, "ByteString")
	case 16:
		return jen.Qual(uaPath, "XMLElement")
	case 17:
		return jen.Qual(uaPath, "NodeID")
	case 18:
		return jen.Qual(uaPath, "ExpandedNodeID")
	case 19:
		return jen.Qual(uaPath, "StatusCode")
	case 20:
		return jen.Qual(uaPath, "QualifiedName")
	case 21:
		return jen.Qual(uaPath, "LocalizedText")
	case 22:
		return jen.Qual(uaPath, "ExtensionObject")
	case 23:
		return jen.Qual(uaPath, "DataValue")
	case 25:
		return jen.Qual(uaPath, "DiagnosticInfo")
	}
	return jen.Qual(uaPath, "Variant")
}

// tagName names the Builtin tag type of the wire type a DataType travels as.
func tagName(builtin uint32) string {
	switch builtin {
	case 22:
		return "Structure"
	case 0, 24, 26, 27, 28:
		return "Variant"
	case 29:
		return "Int32"
	}
	name, _ := model.BuiltinName(ua.NewNodeIDNumeric(0, builtin))
	return name
}

type tag struct {
	name string
	id   byte
}

// tags lists the Builtin tag types declared by support.go.
func tags() []tag {
	var out []tag
	for i, name := range model.BuiltinNames() {
		id := uint32(i + 1)
		switch id {
		case 22:
			name = "Structure"
		case 24:
			name = "Variant"
		}
		out = append(out, tag{name: name, id: byte(id)})
	}
	return out
}

func tagNames() []string {
	var out []string
	for _, t := range tags() {
		out = append(out, t.name)
	}
	return out
}

// polymorphic reports whether values of the builtin type carry their own
// wire type, so a contract needs a tag parameter to pin it.
func polymorphic(builtin uint32) bool {
	switch builtin {
	case 0, 24, 26, 27, 28:
		return true
	}
	return false
}

// scalarType returns the Go type of one value of the DataType id.
func (e *Emitter) scalarType(owner *resolver.Node, member string, id ua.NodeID) (*jen.Statement, error) {
	d, ok := e.h.Set.Lookup(id)
	if !ok {
		return nil, &model.UnemittableNodeError{NodeID: owner.NodeID, Member: member, Ref: id, Reason: "data type is not defined"}
	}
	if d.NodeClass != ua.NodeClassDataType {
		return nil, &model.UnemittableNodeError{NodeID: owner.NodeID, Member: member, Ref: id, Reason: "reference is a " + model.ClassName(d.NodeClass) + ", not a DataType"}
	}
	if model.IsBuiltinDataType(id) {
		return builtinGoType(d.NodeID.(ua.NodeIDNumeric).ID), nil
	}
	name, emitted := e.names[id]
	switch {
	case emitted && d.Kind.IsStructured() && d.IsAbstract:
		// any subtype may be carried
		return jen.Qual(uaPath, "ExtensionObject"), nil
	case emitted:
		return jen.Id(name), nil
	}
	b := e.h.Set.NearestBuiltin(id)
	if b == 0 {
		return nil, &model.UnemittableNodeError{NodeID: owner.NodeID, Member: member, Ref: id, Reason: "data type does not derive from a builtin type"}
	}
	return builtinGoType(b), nil
}

// valueType applies a value rank to the scalar type of id.
func (e *Emitter) valueType(owner *resolver.Node, member string, id ua.NodeID, rank int32) (*jen.Statement, error) {
	t, err := e.scalarType(owner, member, id)
	if err != nil {
		return nil, err
	}
	switch {
	case rank == model.ValueRankAny:
		return jen.Qual(uaPath, "Variant"), nil
	case rank == model.ValueRankScalarOrOneDimension || rank == model.ValueRankOneOrMoreDimensions:
		return jen.Index().Add(t), nil
	case rank > 0:
		for i := int32(0); i < rank; i++ {
			t = jen.Index().Add(t)
		}
	}
	return t, nil
}

// valueShape describes how a VariableType contract is parameterized.
type valueShape struct {
	generic bool
	tagged  bool
	// value and tag are the arguments the node passes to its own supertype
	// and to the Variable contract.
	value jen.Code
	tag   jen.Code
}

func (e *Emitter) shape(n *resolver.Node) (valueShape, error) {
	dt, ok := e.h.Set.Lookup(n.DataType)
	if !ok {
		return valueShape{}, &model.UnemittableNodeError{NodeID: n.NodeID, Member: "Value", Ref: n.DataType, Reason: "data type is not defined"}
	}
	b := e.h.Set.NearestBuiltin(dt.NodeID)
	if dt.IsAbstract {
		if polymorphic(b) {
			return valueShape{generic: true, tagged: true, value: jen.Id("T"), tag: jen.Id("DT")}, nil
		}
		return valueShape{generic: true, value: jen.Id("T"), tag: jen.Id(tagName(b))}, nil
	}
	v, err := e.valueType(n, "Value", dt.NodeID, n.ValueRank)
	if err != nil {
		return valueShape{}, err
	}
	return valueShape{value: v, tag: jen.Id(tagName(b))}, nil
}

// typeParams declares the parameters of a contract with the given shape.
func typeParams(s valueShape) []jen.Code {
	switch {
	case s.tagged:
		return []jen.Code{jen.Id("T").Any(), jen.Id("DT").Id("Builtin")}
	case s.generic:
		return []jen.Code{jen.Id("T").Any()}
	}
	return nil
}

// instantiate references the contract of target with the given arguments,
// dropping those target does not take.
func (e *Emitter) instantiate(target *resolver.Node, value, tag jen.Code) (*jen.Statement, error) {
	ref := jen.Id(e.names[target.NodeID])
	if target.NodeClass != ua.NodeClassVariableType {
		return ref, nil
	}
	s, err := e.shape(target)
	if err != nil {
		return nil, err
	}
	switch {
	case s.tagged:
		return ref.Types(value, tag), nil
	case s.generic:
		return ref.Types(value), nil
	}
	return ref, nil
}

// expandedID renders id as a ua.ExpandedNodeID literal that carries the
// namespace URI, so emitted code does not depend on namespace indexes.
func (e *Emitter) expandedID(id ua.NodeID) *jen.Statement {
	local := model.WithNamespace(id, 0)
	var nid *jen.Statement
	switch x := local.(type) {
	case ua.NodeIDNumeric:
		nid = jen.Qual(uaPath, "NewNodeIDNumeric").Call(jen.Lit(0), jen.Lit(int(x.ID)))
	case ua.NodeIDString:
		nid = jen.Qual(uaPath, "NewNodeIDString").Call(jen.Lit(0), jen.Lit(x.ID))
	case ua.NodeIDGUID:
		nid = jen.Qual(uaPath, "NewNodeIDGUID").Call(jen.Lit(0), jen.Qual(uuidPath, "MustParse").Call(jen.Lit(x.ID.String())))
	case ua.NodeIDOpaque:
		nid = jen.Qual(uaPath, "NewNodeIDOpaque").Call(jen.Lit(0), jen.Qual(uaPath, "ByteString").Call(jen.Lit(string(x.ID))))
	default:
		return jen.Qual(uaPath, "NilExpandedNodeID")
	}
	ns := model.NamespaceOf(id)
	if ns == 0 {
		return jen.Qual(uaPath, "NewExpandedNodeID").Call(nid)
	}
	return jen.Qual(uaPath, "ExpandedNodeID").Values(jen.Dict{
		jen.Id("NamespaceURI"): jen.Lit(e.h.Set.NamespaceURI(ns)),
		jen.Id("NodeID"):       nid,
	})
}

// expandedString is the header form of id.
func (e *Emitter) expandedString(id ua.NodeID) string {
	if id == nil {
		return ""
	}
	return model.ExpandedString(e.h.Set.NamespaceURI(model.NamespaceOf(id)), id)
}
