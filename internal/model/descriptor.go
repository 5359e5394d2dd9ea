package model

import (
	"fmt"
	"strings"

	"github.com/awcullen/opcua/ua"
)

// DataTypeKind classifies how a DataType is shaped.
type DataTypeKind uint8

const (
	KindUnknown DataTypeKind = iota
	// KindBuiltin is one of the builtin types defined by Part 6.
	KindBuiltin
	// KindAbstract is an abstract DataType without its own definition.
	KindAbstract
	KindStructure
	KindStructureWithOptionalFields
	KindUnion
	KindEnumeration
	// KindSimple derives from a builtin type without adding fields.
	KindSimple
)

var kindNames = map[DataTypeKind]string{
	KindUnknown:                     "Unknown",
	KindBuiltin:                     "Builtin",
	KindAbstract:                    "Abstract",
	KindStructure:                   "Structure",
	KindStructureWithOptionalFields: "StructureWithOptionalFields",
	KindUnion:                       "Union",
	KindEnumeration:                 "Enumeration",
	KindSimple:                      "Simple",
}

func (k DataTypeKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("DataTypeKind(%d)", k)
}

// IsStructured reports whether values of the kind are records with fields.
func (k DataTypeKind) IsStructured() bool {
	return k == KindStructure || k == KindStructureWithOptionalFields || k == KindUnion
}

// ModellingRule tells whether an instance declaration must, may, or
// may-repeat appear on instances of its type.
type ModellingRule uint8

const (
	RuleNone ModellingRule = iota
	RuleMandatory
	RuleOptional
	RuleMandatoryPlaceholder
	RuleOptionalPlaceholder
)

var ruleNames = []string{"None", "Mandatory", "Optional", "MandatoryPlaceholder", "OptionalPlaceholder"}

func (r ModellingRule) String() string {
	if int(r) < len(ruleNames) {
		return ruleNames[r]
	}
	return fmt.Sprintf("ModellingRule(%d)", r)
}

// IsPlaceholder reports whether the rule describes runtime named instances.
func (r ModellingRule) IsPlaceholder() bool {
	return r == RuleMandatoryPlaceholder || r == RuleOptionalPlaceholder
}

// IsOptional reports whether instances may omit the declaration.
func (r ModellingRule) IsOptional() bool {
	return r == RuleOptional || r == RuleOptionalPlaceholder
}

// ParseModellingRule accepts the rule names used by nodeset tables.
func ParseModellingRule(s string) (ModellingRule, bool) {
	for i, n := range ruleNames {
		if strings.EqualFold(n, s) {
			return ModellingRule(i), true
		}
	}
	return RuleNone, false
}

// ModellingRuleFromID maps the well known ModellingRule objects to a rule.
func ModellingRuleFromID(id ua.NodeID) ModellingRule {
	switch id {
	case ua.ObjectIDModellingRuleMandatory:
		return RuleMandatory
	case ua.ObjectIDModellingRuleOptional:
		return RuleOptional
	case ua.ObjectIDModellingRuleMandatoryPlaceholder:
		return RuleMandatoryPlaceholder
	case ua.ObjectIDModellingRuleOptionalPlaceholder:
		return RuleOptionalPlaceholder
	}
	return RuleNone
}

// Value ranks, mirrored from the ua package as plain ints.
const (
	ValueRankScalarOrOneDimension = -3
	ValueRankAny                  = -2
	ValueRankScalar               = -1
	ValueRankOneOrMoreDimensions  = 0
	ValueRankOneDimension         = 1
)

// FieldDescriptor is one field of a structured DataType.
type FieldDescriptor struct {
	Name        string
	DataType    ua.NodeID
	ValueRank   int32
	IsOptional  bool
	Description string
	// Overrides marks a field that narrows a same-named inherited field.
	Overrides bool
}

// Encodings holds the encoding nodes that let a structure travel as an
// ExtensionObject.
type Encodings struct {
	Binary ua.NodeID
	XML    ua.NodeID
	JSON   ua.NodeID
}

// Any reports whether at least one encoding is known.
func (e Encodings) Any() bool {
	return e.Binary != nil || e.XML != nil || e.JSON != nil
}

// EnumValue is one member of an enumeration DataType.
type EnumValue struct {
	Name        string
	Value       int64
	Description string
}

// ChildDescriptor is one modeled child of an ObjectType or VariableType.
type ChildDescriptor struct {
	Name           string
	NodeClass      ua.NodeClass
	TypeDefinition ua.NodeID
	DataType       ua.NodeID
	ValueRank      int32
	ModellingRule  ModellingRule
	IsOptional     bool
	IsPlaceholder  bool
	Overrides      bool
	Description    string
}

// NodeDescriptor describes one type node of a nodeset.
type NodeDescriptor struct {
	NodeID      ua.NodeID
	BrowseName  ua.QualifiedName
	NodeClass   ua.NodeClass
	IsAbstract  bool
	SuperTypeID ua.NodeID

	// DataType nodes.
	Kind                   DataTypeKind
	Fields                 []FieldDescriptor
	FieldsIncludeInherited bool
	EnumValues             []EnumValue
	Encodings              Encodings

	// ObjectType and VariableType nodes.
	Children []ChildDescriptor

	// VariableType nodes.
	DataType  ua.NodeID
	ValueRank int32

	Documentation string
	// Source names the input the node was read from, "intrinsic" for seeded nodes.
	Source string
}

// Name returns the browse name without its namespace index.
func (n *NodeDescriptor) Name() string {
	return n.BrowseName.Name
}

func (n *NodeDescriptor) String() string {
	return fmt.Sprintf("%s %s (%s)", ClassName(n.NodeClass), n.BrowseName.Name, FormatNodeID(n.NodeID))
}

// Child returns the own child with the given name.
func (n *NodeDescriptor) Child(name string) (ChildDescriptor, bool) {
	for _, c := range n.Children {
		if c.Name == name {
			return c, true
		}
	}
	return ChildDescriptor{}, false
}

// IsPlaceholderName reports whether a browse name is a wildcard pattern such
// as <ComponentName> or $ComponentName$.
func IsPlaceholderName(name string) bool {
	if len(name) < 3 {
		return false
	}
	return (name[0] == '<' && name[len(name)-1] == '>') || (name[0] == '$' && name[len(name)-1] == '$')
}

// ClassName returns the NodeClass name used in nodesets and emitted headers.
func ClassName(c ua.NodeClass) string {
	switch c {
	case ua.NodeClassObject:
		return "Object"
	case ua.NodeClassVariable:
		return "Variable"
	case ua.NodeClassMethod:
		return "Method"
	case ua.NodeClassObjectType:
		return "ObjectType"
	case ua.NodeClassVariableType:
		return "VariableType"
	case ua.NodeClassReferenceType:
		return "ReferenceType"
	case ua.NodeClassDataType:
		return "DataType"
	case ua.NodeClassView:
		return "View"
	}
	return "Unspecified"
}

// ParseClassName is the inverse of ClassName.
func ParseClassName(s string) (ua.NodeClass, bool) {
	for _, c := range []ua.NodeClass{
		ua.NodeClassObject, ua.NodeClassVariable, ua.NodeClassMethod,
		ua.NodeClassObjectType, ua.NodeClassVariableType, ua.NodeClassReferenceType,
		ua.NodeClassDataType, ua.NodeClassView,
	} {
		if ClassName(c) == s {
			return c, true
		}
	}
	return ua.NodeClassUnspecified, false
}
