package emitter

import (
	"github.com/dave/jennifer/jen"
	"github.com/pkg/errors"
)

// SupportFile and RegistryFile are the fixed outputs next to the type files.
const (
	SupportFile  = "support.go"
	RegistryFile = "registry.go"
)

// emitSupport renders the contracts every emitted type builds on.
func (e *Emitter) emitSupport() (File, error) {
	f := e.newFile([]string{GeneratedComment})
	f.PackageComment("Package " + e.opts.Package + " holds the OPC UA type contracts generated by uatypegen.")

	f.Comment("Node is implemented by every instance of an emitted ObjectType or VariableType.")
	f.Type().Id("Node").Interface(
		jen.Id("NodeID").Params().Qual(uaPath, "NodeID"),
		jen.Id("BrowseName").Params().Qual(uaPath, "QualifiedName"),
		jen.Id("TypeDefinitionID").Params().Qual(uaPath, "ExpandedNodeID"),
	)

	f.Line()
	f.Comment("Object is the root of the ObjectType contracts.")
	f.Type().Id("Object").Interface(jen.Id("Node"))

	f.Line()
	f.Comment("Variable is the root of the VariableType contracts. T is the Go type of")
	f.Comment("the value, DT the builtin type it travels as on the wire.")
	f.Type().Id("Variable").Types(jen.Id("T").Any(), jen.Id("DT").Id("Builtin")).Interface(
		jen.Id("Node"),
		jen.Id("Value").Params().Id("T"),
		jen.Id("DataTypeID").Params().Qual(uaPath, "ExpandedNodeID"),
		jen.Id("ValueRank").Params().Int32(),
	)

	f.Line()
	f.Comment("Method is the contract of a method child.")
	f.Type().Id("Method").Interface(
		jen.Id("Node"),
		jen.Id("Call").Params(jen.Id("ctx").Qual("context", "Context"), jen.Id("args").Op("...").Qual(uaPath, "Variant")).Params(jen.Index().Qual(uaPath, "Variant"), jen.Error()),
	)

	f.Line()
	f.Comment("ExtensionObject is implemented by the envelopes of structures that can")
	f.Comment("travel as self describing payloads.")
	f.Type().Id("ExtensionObject").Interface(
		jen.Id("EncodingID").Params().Qual(uaPath, "ExpandedNodeID"),
		jen.Id("DataTypeID").Params().Qual(uaPath, "ExpandedNodeID"),
	)

	f.Line()
	f.Comment("Builtin identifies a builtin wire type by its id.")
	f.Type().Id("Builtin").Interface(jen.Id("BuiltinID").Params().Byte())

	for _, t := range tags() {
		f.Line()
		f.Comment(t.name + " tags values that travel as the builtin type " + t.name + ".")
		f.Type().Id(t.name).Struct()
		f.Func().Params(jen.Id(t.name)).Id("BuiltinID").Params().Byte().Block(jen.Return(jen.Lit(int(t.id))))
	}

	f.Line()
	f.Comment("Placeholder describes a child whose instances are named at runtime.")
	f.Type().Id("Placeholder").Struct(
		jen.Id("Name").String(),
		jen.Id("TypeDefinition").Qual(uaPath, "ExpandedNodeID"),
		jen.Id("ModellingRule").String(),
	)

	f.Line()
	f.Comment("TypeInfo maps a NodeId onto its emitted Go type.")
	f.Type().Id("TypeInfo").Struct(
		jen.Id("NodeID").Qual(uaPath, "ExpandedNodeID"),
		jen.Id("BrowseName").String(),
		jen.Id("NodeClass").Qual(uaPath, "NodeClass"),
		jen.Id("IsAbstract").Bool(),
		jen.Comment("GoType is empty for ReferenceTypes."),
		jen.Id("GoType").String(),
		jen.Id("SuperType").Qual(uaPath, "ExpandedNodeID"),
		jen.Id("BinaryEncodingID").Qual(uaPath, "ExpandedNodeID"),
		jen.Id("XMLEncodingID").Qual(uaPath, "ExpandedNodeID"),
		jen.Id("JSONEncodingID").Qual(uaPath, "ExpandedNodeID"),
		jen.Id("Placeholders").Index().Id("Placeholder"),
		jen.Comment("New returns a zero value of a concrete DataType, nil otherwise."),
		jen.Id("New").Func().Params().Interface(),
	)

	content, err := render(f)
	if err != nil {
		return File{}, errors.Wrap(err, "rendering support file")
	}
	return File{Name: SupportFile, Content: content}, nil
}
