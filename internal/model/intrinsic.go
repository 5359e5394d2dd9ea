package model

import "github.com/awcullen/opcua/ua"

// IntrinsicSource marks seeded nodes.
const IntrinsicSource = "intrinsic"

// Well known ids used across the generator.
var (
	BaseDataTypeID         = ua.NewNodeIDNumeric(0, 24)
	StructureID            = ua.NewNodeIDNumeric(0, 22)
	EnumerationID          = ua.NewNodeIDNumeric(0, 29)
	NumberID               = ua.NewNodeIDNumeric(0, 26)
	BaseObjectTypeID       = ua.NewNodeIDNumeric(0, 58)
	BaseVariableTypeID     = ua.NewNodeIDNumeric(0, 62)
	BaseDataVariableTypeID = ua.NewNodeIDNumeric(0, 63)
	PropertyTypeID         = ua.NewNodeIDNumeric(0, 68)
	UnionID                = ua.NewNodeIDNumeric(0, 12756)
)

type intrinsicType struct {
	id       uint32
	name     string
	super    uint32
	abstract bool
}

// builtinTypes follows the DataType hierarchy of Part 5 for the ids 1..29.
var builtinTypes = []intrinsicType{
	{1, "Boolean", 24, false},
	{2, "SByte", 27, false},
	{3, "Byte", 28, false},
	{4, "Int16", 27, false},
	{5, "UInt16", 28, false},
	{6, "Int32", 27, false},
	{7, "UInt32", 28, false},
	{8, "Int64", 27, false},
	{9, "UInt64", 28, false},
	{10, "Float", 26, false},
	{11, "Double", 26, false},
	{12, "String", 24, false},
	{13, "DateTime", 24, false},
	{14, "Guid", 24, false},
	{15, "ByteString", 24, false},
	{16, "XmlElement", 24, false},
	{17, "NodeId", 24, false},
	{18, "ExpandedNodeId", 24, false},
	{19, "StatusCode", 24, false},
	{20, "QualifiedName", 24, false},
	{21, "LocalizedText", 24, false},
	{22, "Structure", 24, true},
	{23, "DataValue", 24, false},
	{24, "BaseDataType", 0, true},
	{25, "DiagnosticInfo", 24, false},
	{26, "Number", 24, true},
	{27, "Integer", 26, true},
	{28, "UInteger", 26, true},
	{29, "Enumeration", 24, true},
}

// BuiltinName returns the builtin type name for the ids 1..25.
func BuiltinName(id ua.NodeID) (string, bool) {
	n, ok := id.(ua.NodeIDNumeric)
	if !ok || n.NamespaceIndex != 0 || n.ID < 1 || n.ID > 25 {
		return "", false
	}
	return builtinTypes[n.ID-1].name, true
}

// BuiltinNames lists the 25 builtin wire types in id order.
func BuiltinNames() []string {
	out := make([]string, 0, 25)
	for _, t := range builtinTypes[:25] {
		out = append(out, t.name)
	}
	return out
}

// IntrinsicNodes returns fresh descriptors for the builtin DataTypes and the
// roots of the ObjectType and VariableType hierarchies.
func IntrinsicNodes() []*NodeDescriptor {
	out := make([]*NodeDescriptor, 0, len(builtinTypes)+4)
	for _, t := range builtinTypes {
		n := &NodeDescriptor{
			NodeID:     ua.NewNodeIDNumeric(0, t.id),
			BrowseName: ua.NewQualifiedName(0, t.name),
			NodeClass:  ua.NodeClassDataType,
			IsAbstract: t.abstract,
			Kind:       KindBuiltin,
			Source:     IntrinsicSource,
		}
		if t.abstract {
			n.Kind = KindAbstract
		}
		if t.super != 0 {
			n.SuperTypeID = ua.NewNodeIDNumeric(0, t.super)
		}
		out = append(out, n)
	}
	out = append(out,
		&NodeDescriptor{
			NodeID:     BaseObjectTypeID,
			BrowseName: ua.NewQualifiedName(0, "BaseObjectType"),
			NodeClass:  ua.NodeClassObjectType,
			Source:     IntrinsicSource,
		},
		&NodeDescriptor{
			NodeID:     BaseVariableTypeID,
			BrowseName: ua.NewQualifiedName(0, "BaseVariableType"),
			NodeClass:  ua.NodeClassVariableType,
			IsAbstract: true,
			DataType:   BaseDataTypeID,
			ValueRank:  ValueRankAny,
			Source:     IntrinsicSource,
		},
		&NodeDescriptor{
			NodeID:      BaseDataVariableTypeID,
			BrowseName:  ua.NewQualifiedName(0, "BaseDataVariableType"),
			NodeClass:   ua.NodeClassVariableType,
			SuperTypeID: BaseVariableTypeID,
			DataType:    BaseDataTypeID,
			ValueRank:   ValueRankAny,
			Source:      IntrinsicSource,
		},
		&NodeDescriptor{
			NodeID:      PropertyTypeID,
			BrowseName:  ua.NewQualifiedName(0, "PropertyType"),
			NodeClass:   ua.NodeClassVariableType,
			SuperTypeID: BaseVariableTypeID,
			DataType:    BaseDataTypeID,
			ValueRank:   ValueRankAny,
			Source:      IntrinsicSource,
		},
	)
	return out
}

// IsBuiltinDataType reports whether id is one of the DataTypes 1..29 of the
// OPC UA namespace, which map onto wire types instead of being emitted.
func IsBuiltinDataType(id ua.NodeID) bool {
	n, ok := id.(ua.NodeIDNumeric)
	return ok && n.NamespaceIndex == 0 && n.ID >= 1 && n.ID <= uint32(len(builtinTypes))
}

// NearestBuiltin returns the id of the closest builtin DataType id derives
// from, 0 when the chain leaves the builtin hierarchy.
func (s *NodeSet) NearestBuiltin(id ua.NodeID) uint32 {
	cur := id
	for i := 0; cur != nil && i <= len(s.Nodes); i++ {
		if IsBuiltinDataType(cur) {
			return cur.(ua.NodeIDNumeric).ID
		}
		n, ok := s.Nodes[cur]
		if !ok {
			return 0
		}
		cur = n.SuperTypeID
	}
	return 0
}
