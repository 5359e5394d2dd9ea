package emitter

import (
	"sort"

	"github.com/amine-amaach/uatypegen/internal/model"
	"github.com/amine-amaach/uatypegen/internal/resolver"
	"github.com/awcullen/opcua/ua"
	"github.com/dave/jennifer/jen"
	"github.com/pkg/errors"
)

// emitRegistry renders the NodeId to type table, the lookups over it, and
// the binary encoding registrations of companion structures. Types of
// namespace 0 are registered by the ua package itself.
func (e *Emitter) emitRegistry(nodes []*resolver.Node) (File, error) {
	entries := append([]*resolver.Node(nil), nodes...)
	for _, n := range e.h.Class(ua.NodeClassReferenceType) {
		entries = append(entries, n)
	}
	sort.Slice(entries, func(i, j int) bool {
		return model.CompareNodeID(entries[i].NodeID, entries[j].NodeID) < 0
	})

	f := e.newFile([]string{GeneratedComment})

	values := make([]jen.Code, 0, len(entries))
	var registrations []jen.Code
	for _, n := range entries {
		values = append(values, jen.Values(e.typeInfo(n)))
		if model.NamespaceOf(n.NodeID) != 0 && e.hasEnvelope(n) && n.Encodings.Binary != nil {
			registrations = append(registrations, jen.Qual(uaPath, "RegisterBinaryEncodingID").Call(
				jen.Qual("reflect", "TypeOf").Call(jen.Id(e.names[n.NodeID]).Values()),
				e.expandedID(n.Encodings.Binary),
			))
		}
	}

	f.Comment("Types lists every emitted type and every ReferenceType in NodeId order.")
	f.Var().Id("Types").Op("=").Index().Id("TypeInfo").Custom(jen.Options{
		Open:      "{",
		Close:     "}",
		Separator: ",",
		Multi:     true,
	}, values...)

	f.Line()
	f.Var().Defs(
		jen.Id("typesByID").Map(jen.Qual(uaPath, "ExpandedNodeID")).Int(),
		jen.Id("typesByEncoding").Map(jen.Qual(uaPath, "ExpandedNodeID")).Int(),
	)

	body := []jen.Code{
		jen.Id("typesByID").Op("=").Make(jen.Map(jen.Qual(uaPath, "ExpandedNodeID")).Int(), jen.Len(jen.Id("Types"))),
		jen.Id("typesByEncoding").Op("=").Make(jen.Map(jen.Qual(uaPath, "ExpandedNodeID")).Int()),
		jen.For(jen.List(jen.Id("i"), jen.Id("t")).Op(":=").Range().Id("Types")).Block(
			jen.Id("typesByID").Index(jen.Id("t").Dot("NodeID")).Op("=").Id("i"),
			jen.For(jen.List(jen.Id("_"), jen.Id("id")).Op(":=").Range().Index().Qual(uaPath, "ExpandedNodeID").Values(
				jen.Id("t").Dot("BinaryEncodingID"),
				jen.Id("t").Dot("XMLEncodingID"),
				jen.Id("t").Dot("JSONEncodingID"),
			)).Block(
				jen.If(jen.Id("id").Dot("NodeID").Op("!=").Nil()).Block(
					jen.Id("typesByEncoding").Index(jen.Id("id")).Op("=").Id("i"),
				),
			),
		),
	}
	body = append(body, registrations...)
	f.Line()
	f.Func().Id("init").Params().Block(body...)

	f.Line()
	f.Comment("LookupType maps a NodeId received at runtime onto its emitted type. Ids")
	f.Comment("outside namespace 0 must carry their namespace URI.")
	f.Func().Id("LookupType").Params(jen.Id("id").Qual(uaPath, "ExpandedNodeID")).Params(jen.Id("TypeInfo"), jen.Bool()).Block(
		lookupBody("typesByID")...,
	)

	f.Line()
	f.Comment("LookupEncoding maps an encoding NodeId onto the DataType it encodes.")
	f.Func().Id("LookupEncoding").Params(jen.Id("id").Qual(uaPath, "ExpandedNodeID")).Params(jen.Id("TypeInfo"), jen.Bool()).Block(
		lookupBody("typesByEncoding")...,
	)

	f.Line()
	f.Comment("LookupNodeID maps a NodeId carrying a namespace index onto its emitted")
	f.Comment("type. namespaceURIs is the namespace array of the server the id came from.")
	var cases []jen.Code
	for _, kind := range []string{"NodeIDNumeric", "NodeIDString", "NodeIDGUID", "NodeIDOpaque"} {
		cases = append(cases, jen.Case(jen.Qual(uaPath, kind)).Block(
			jen.List(jen.Id("ns"), jen.Id("n").Dot("NamespaceIndex")).Op("=").List(jen.Id("n").Dot("NamespaceIndex"), jen.Lit(0)),
			jen.Id("id").Op("=").Id("n"),
		))
	}
	cases = append(cases, jen.Default().Block(jen.Return(jen.Id("TypeInfo").Values(), jen.False())))
	f.Func().Id("LookupNodeID").Params(jen.Id("id").Qual(uaPath, "NodeID"), jen.Id("namespaceURIs").Index().String()).Params(jen.Id("TypeInfo"), jen.Bool()).Block(
		jen.Var().Id("ns").Uint16(),
		jen.Switch(jen.Id("n").Op(":=").Id("id").Assert(jen.Type())).Block(cases...),
		jen.If(jen.Id("ns").Op("==").Lit(0)).Block(
			jen.Return(jen.Id("LookupType").Call(jen.Qual(uaPath, "NewExpandedNodeID").Call(jen.Id("id")))),
		),
		jen.If(jen.Int().Call(jen.Id("ns")).Op(">=").Len(jen.Id("namespaceURIs"))).Block(
			jen.Return(jen.Id("TypeInfo").Values(), jen.False()),
		),
		jen.Return(jen.Id("LookupType").Call(jen.Qual(uaPath, "ExpandedNodeID").Values(jen.Dict{
			jen.Id("NamespaceURI"): jen.Id("namespaceURIs").Index(jen.Id("ns")),
			jen.Id("NodeID"):       jen.Id("id"),
		}))),
	)

	content, err := render(f)
	if err != nil {
		return File{}, errors.Wrap(err, "rendering registry")
	}
	return File{Name: RegistryFile, Content: content}, nil
}

func lookupBody(index string) []jen.Code {
	return []jen.Code{
		jen.List(jen.Id("i"), jen.Id("ok")).Op(":=").Id(index).Index(jen.Id("id")),
		jen.If(jen.Op("!").Id("ok")).Block(jen.Return(jen.Id("TypeInfo").Values(), jen.False())),
		jen.Return(jen.Id("Types").Index(jen.Id("i")), jen.True()),
	}
}

func (e *Emitter) typeInfo(n *resolver.Node) jen.Dict {
	d := jen.Dict{
		jen.Id("NodeID"):     e.expandedID(n.NodeID),
		jen.Id("BrowseName"): jen.Lit(n.Name()),
		jen.Id("NodeClass"):  jen.Qual(uaPath, "NodeClass"+model.ClassName(n.NodeClass)),
	}
	if n.IsAbstract {
		d[jen.Id("IsAbstract")] = jen.True()
	}
	if name, ok := e.names[n.NodeID]; ok {
		d[jen.Id("GoType")] = jen.Lit(name)
	}
	if n.SuperTypeID != nil {
		d[jen.Id("SuperType")] = e.expandedID(n.SuperTypeID)
	}
	if n.Encodings.Binary != nil {
		d[jen.Id("BinaryEncodingID")] = e.expandedID(n.Encodings.Binary)
	}
	if n.Encodings.XML != nil {
		d[jen.Id("XMLEncodingID")] = e.expandedID(n.Encodings.XML)
	}
	if n.Encodings.JSON != nil {
		d[jen.Id("JSONEncodingID")] = e.expandedID(n.Encodings.JSON)
	}
	if ph := n.Placeholders(); len(ph) > 0 {
		items := make([]jen.Code, 0, len(ph))
		for _, c := range ph {
			td := jen.Qual(uaPath, "NilExpandedNodeID")
			if c.TypeDefinition != nil {
				td = e.expandedID(c.TypeDefinition)
			}
			items = append(items, jen.Values(jen.Dict{
				jen.Id("Name"):           jen.Lit(c.Name),
				jen.Id("TypeDefinition"): td,
				jen.Id("ModellingRule"):  jen.Lit(c.ModellingRule.String()),
			}))
		}
		d[jen.Id("Placeholders")] = jen.Index().Id("Placeholder").Values(items...)
	}
	if n.NodeClass == ua.NodeClassDataType && !n.IsAbstract {
		if name, ok := e.names[n.NodeID]; ok {
			d[jen.Id("New")] = jen.Func().Params().Interface().Block(jen.Return(jen.New(jen.Id(name))))
		}
	}
	return d
}
