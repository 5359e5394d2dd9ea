package nodeset

import (
	"github.com/amine-amaach/uatypegen/internal/model"
	"github.com/awcullen/opcua/ua"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Loader turns nodeset sources into a normalized model.NodeSet.
type Loader struct {
	log        *logrus.Logger
	intrinsics bool
	validator  *TableValidator
}

// NewLoader returns a loader. With intrinsics set, the builtin DataTypes and
// the instance type roots are seeded before any source is read.
func NewLoader(log *logrus.Logger, intrinsics bool) (*Loader, error) {
	v, err := NewTableValidator()
	if err != nil {
		return nil, err
	}
	return &Loader{log: log, intrinsics: intrinsics, validator: v}, nil
}

// Load reads all sources into one NodeSet. Nodes of later sources may not
// redefine nodes of earlier ones; they may replace intrinsic nodes.
func (l *Loader) Load(sources ...Source) (*model.NodeSet, error) {
	set := model.NewNodeSet()
	defined := make(map[ua.NodeID]string)

	if l.intrinsics {
		for _, n := range model.IntrinsicNodes() {
			set.Put(n)
		}
	}

	for _, src := range sources {
		var nodes []*model.NodeDescriptor
		var err error
		switch src.Format {
		case FormatXML:
			nodes, err = decodeXML(src, set)
		case FormatYAML, FormatJSON:
			nodes, err = decodeTable(src, set, l.validator)
		default:
			err = errors.Errorf("unsupported nodeset format %q for %s", src.Format, src.Name)
		}
		if err != nil {
			return nil, err
		}
		for _, n := range nodes {
			if first, dup := defined[n.NodeID]; dup {
				return nil, &model.DuplicateNodeIDError{NodeID: n.NodeID, First: first + " (" + set.Nodes[n.NodeID].Name() + ")", Second: src.Name + " (" + n.Name() + ")"}
			}
			defined[n.NodeID] = src.Name
			if old, ok := set.Nodes[n.NodeID]; ok && old.Source == model.IntrinsicSource && n.NodeClass == old.NodeClass {
				// builtin DataTypes stay builtin when the standard nodeset is loaded
				if old.Kind == model.KindBuiltin || old.Kind == model.KindAbstract {
					n.Kind = old.Kind
				}
			}
			set.Put(n)
		}
		l.log.WithFields(logrus.Fields{
			"Source": src.Name,
			"Format": src.Format,
			"Nodes":  len(nodes),
		}).Debugln("Nodeset source decoded 🔔")
	}

	if err := classify(set); err != nil {
		return nil, err
	}
	if err := checkReferences(set); err != nil {
		return nil, err
	}

	l.log.WithFields(logrus.Fields{
		"Sources":    len(sources),
		"Nodes":      len(set.Nodes),
		"Namespaces": len(set.Namespaces),
	}).Infoln("Nodeset loaded ✅")
	return set, nil
}

// classify settles the kind of every DataType from its definition and its
// place in the hierarchy. Supertypes are classified first; cycles are
// reported later by the resolver.
func classify(set *model.NodeSet) error {
	done := make(map[ua.NodeID]bool, len(set.Nodes))
	for _, n := range set.Sorted() {
		if err := classifyNode(set, n, done); err != nil {
			return err
		}
	}
	return nil
}

func classifyNode(set *model.NodeSet, n *model.NodeDescriptor, done map[ua.NodeID]bool) error {
	if n.NodeClass != ua.NodeClassDataType || done[n.NodeID] {
		return nil
	}
	done[n.NodeID] = true
	var super *model.NodeDescriptor
	if s, ok := set.Lookup(n.SuperTypeID); ok && s.NodeClass == ua.NodeClassDataType {
		if err := classifyNode(set, s, done); err != nil {
			return err
		}
		super = s
	}
	if n.Kind == model.KindBuiltin {
		return nil
	}
	if n.Kind == model.KindAbstract && n.IsAbstract && len(n.Fields) == 0 {
		return nil
	}

	// NodeSet2 definitions list enumeration and option set values as fields,
	// so only declared kinds and table fields mark a record.
	structured := n.Kind.IsStructured() || (len(n.Fields) > 0 && !n.FieldsIncludeInherited)
	inStructure := set.IsSubtypeOf(n.NodeID, model.StructureID)

	switch {
	case set.IsSubtypeOf(n.NodeID, model.EnumerationID) || n.Kind == model.KindEnumeration:
		n.Kind = model.KindEnumeration
		n.Fields = nil
		n.FieldsIncludeInherited = false
	case structured && !inStructure && (super != nil || n.SuperTypeID == nil):
		ref := "no supertype"
		if super != nil {
			ref = super.String()
		}
		return &model.MalformedNodesetError{Source: n.Source, NodeID: n.NodeID, Rule: "structured DataType does not derive from Structure", Ref: ref}
	case n.Kind == model.KindUnion || set.IsSubtypeOf(n.NodeID, model.UnionID):
		n.Kind = model.KindUnion
		n.EnumValues = nil
	case inStructure:
		optional := n.Kind == model.KindStructureWithOptionalFields ||
			(super != nil && super.Kind == model.KindStructureWithOptionalFields)
		for _, f := range n.Fields {
			optional = optional || f.IsOptional
		}
		n.Kind = model.KindStructure
		if optional {
			n.Kind = model.KindStructureWithOptionalFields
		}
		n.EnumValues = nil
	case n.IsAbstract && len(n.EnumValues) == 0:
		n.Kind = model.KindAbstract
		n.Fields = nil
		n.FieldsIncludeInherited = false
	default:
		// OptionSets keep their bits as EnumValues
		n.Kind = model.KindSimple
		n.Fields = nil
		n.FieldsIncludeInherited = false
	}
	return nil
}

func checkReferences(set *model.NodeSet) error {
	for _, n := range set.Sorted() {
		if n.SuperTypeID != nil {
			super, ok := set.Lookup(n.SuperTypeID)
			if !ok {
				return &model.MalformedNodesetError{Source: n.Source, NodeID: n.NodeID, Rule: "undefined supertype", Ref: model.FormatNodeID(n.SuperTypeID)}
			}
			if super.NodeClass != n.NodeClass {
				return &model.MalformedNodesetError{Source: n.Source, NodeID: n.NodeID, Rule: "supertype of a different node class", Ref: super.String()}
			}
		}
		switch n.NodeClass {
		case ua.NodeClassDataType:
			for _, f := range n.Fields {
				if err := expectClass(set, n, f.DataType, ua.NodeClassDataType, "field "+f.Name+" data type"); err != nil {
					return err
				}
			}
		case ua.NodeClassVariableType:
			if n.DataType != nil || n.SuperTypeID == nil {
				if err := expectClass(set, n, n.DataType, ua.NodeClassDataType, "data type"); err != nil {
					return err
				}
			}
			fallthrough
		case ua.NodeClassObjectType:
			for _, c := range n.Children {
				if err := checkChild(set, n, c); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func checkChild(set *model.NodeSet, n *model.NodeDescriptor, c model.ChildDescriptor) error {
	switch c.NodeClass {
	case ua.NodeClassVariable:
		if err := expectClass(set, n, c.TypeDefinition, ua.NodeClassVariableType, "child "+c.Name+" type definition"); err != nil {
			return err
		}
		if err := expectClass(set, n, c.DataType, ua.NodeClassDataType, "child "+c.Name+" data type"); err != nil {
			return err
		}
		if dt := variableTypeDataType(set, c.TypeDefinition); dt != nil && !set.IsSubtypeOf(c.DataType, dt) {
			return &model.MalformedNodesetError{Source: n.Source, NodeID: n.NodeID, Rule: "child " + c.Name + " data type is not a subtype of its type definition's data type", Ref: model.FormatNodeID(dt)}
		}
		return nil
	case ua.NodeClassObject:
		return expectClass(set, n, c.TypeDefinition, ua.NodeClassObjectType, "child "+c.Name+" type definition")
	case ua.NodeClassMethod:
		return nil
	}
	return &model.MalformedNodesetError{Source: n.Source, NodeID: n.NodeID, Rule: "child " + c.Name + " has unsupported node class", Ref: model.ClassName(c.NodeClass)}
}

// variableTypeDataType returns the DataType a VariableType declares or
// inherits, nil when no VariableType in the chain declares one.
func variableTypeDataType(set *model.NodeSet, id ua.NodeID) ua.NodeID {
	cur := id
	for i := 0; cur != nil && i <= len(set.Nodes); i++ {
		vt, ok := set.Lookup(cur)
		if !ok || vt.NodeClass != ua.NodeClassVariableType {
			return nil
		}
		if vt.DataType != nil {
			return vt.DataType
		}
		cur = vt.SuperTypeID
	}
	return nil
}

func expectClass(set *model.NodeSet, owner *model.NodeDescriptor, id ua.NodeID, class ua.NodeClass, what string) error {
	if id == nil {
		return &model.MalformedNodesetError{Source: owner.Source, NodeID: owner.NodeID, Rule: "missing " + what}
	}
	target, ok := set.Lookup(id)
	if !ok {
		return &model.MalformedNodesetError{Source: owner.Source, NodeID: owner.NodeID, Rule: "undefined " + what, Ref: model.FormatNodeID(id)}
	}
	if target.NodeClass != class {
		return &model.MalformedNodesetError{Source: owner.Source, NodeID: owner.NodeID, Rule: what + " is not a " + model.ClassName(class), Ref: target.String()}
	}
	return nil
}
