package nodeset

import (
	"encoding/xml"
	"strconv"
	"strings"

	"github.com/amine-amaach/uatypegen/internal/model"
	"github.com/awcullen/opcua/ua"
)

var hasEncodingID = ua.NewNodeIDNumeric(0, 38)

type xmlRef struct {
	refType ua.NodeID
	forward bool
	target  ua.NodeID
}

type xmlDecoder struct {
	src   Source
	p     *idParser
	index map[ua.NodeID]*ua.UANode
	refs  map[ua.NodeID][]xmlRef
}

// decodeXML reads a NodeSet2 document. Instance nodes only serve as modeled
// children of the type nodes that reference them.
func decodeXML(src Source, set *model.NodeSet) ([]*model.NodeDescriptor, error) {
	doc := &ua.UANodeSet{}
	if err := xml.Unmarshal(src.Data, doc); err != nil {
		return nil, &model.MalformedNodesetError{Source: src.Name, Rule: "undecodable NodeSet2 xml: " + err.Error()}
	}

	aliases := make(map[string]string, len(doc.Aliases))
	for _, a := range doc.Aliases {
		aliases[a.Alias] = strings.TrimSpace(a.NodeID)
	}

	d := &xmlDecoder{
		src:   src,
		p:     newIDParser(src.Name, set, doc.NamespaceUris, aliases),
		index: make(map[ua.NodeID]*ua.UANode, len(doc.Nodes)),
		refs:  make(map[ua.NodeID][]xmlRef, len(doc.Nodes)),
	}

	ids := make([]ua.NodeID, len(doc.Nodes))
	for i := range doc.Nodes {
		n := &doc.Nodes[i]
		id, err := d.p.nodeID(n.NodeID, nil, "node id")
		if err != nil {
			return nil, err
		}
		if id == nil {
			return nil, &model.MalformedNodesetError{Source: src.Name, Rule: "missing node id on " + n.XMLName.Local, Ref: n.BrowseName}
		}
		if _, dup := d.index[id]; dup {
			return nil, &model.DuplicateNodeIDError{NodeID: id, First: src.Name, Second: src.Name}
		}
		d.index[id] = n
		ids[i] = id
		refs, err := d.references(n, id)
		if err != nil {
			return nil, err
		}
		d.refs[id] = refs
	}

	// Some nodesets declare subtypes from the parent side.
	superOf := make(map[ua.NodeID]ua.NodeID)
	for _, id := range ids {
		for _, r := range d.refs[id] {
			if r.refType == ua.ReferenceTypeIDHasSubtype && r.forward {
				superOf[r.target] = id
			}
		}
	}

	var out []*model.NodeDescriptor
	for i, id := range ids {
		n := &doc.Nodes[i]
		var class ua.NodeClass
		switch n.XMLName.Local {
		case "UADataType":
			class = ua.NodeClassDataType
		case "UAObjectType":
			class = ua.NodeClassObjectType
		case "UAVariableType":
			class = ua.NodeClassVariableType
		case "UAReferenceType":
			class = ua.NodeClassReferenceType
		default:
			continue
		}
		desc, err := d.typeNode(n, id, class)
		if err != nil {
			return nil, err
		}
		if desc.SuperTypeID == nil {
			desc.SuperTypeID = superOf[id]
		}
		out = append(out, desc)
	}
	return out, nil
}

func (d *xmlDecoder) references(n *ua.UANode, owner ua.NodeID) ([]xmlRef, error) {
	out := make([]xmlRef, 0, len(n.References))
	for _, r := range n.References {
		rt, err := d.p.nodeID(r.ReferenceType, owner, "reference type")
		if err != nil {
			return nil, err
		}
		target, err := d.p.nodeID(r.TargetNodeID, owner, "reference target")
		if err != nil {
			return nil, err
		}
		if rt == nil || target == nil {
			continue
		}
		out = append(out, xmlRef{refType: rt, forward: !strings.EqualFold(strings.TrimSpace(r.IsForward), "false"), target: target})
	}
	return out, nil
}

func (d *xmlDecoder) typeNode(n *ua.UANode, id ua.NodeID, class ua.NodeClass) (*model.NodeDescriptor, error) {
	bn, err := d.p.browseName(n.BrowseName, id, false)
	if err != nil {
		return nil, err
	}
	desc := &model.NodeDescriptor{
		NodeID:        id,
		BrowseName:    bn,
		NodeClass:     class,
		IsAbstract:    n.IsAbstract,
		Documentation: localizedText(n.Description),
		Source:        d.src.Name,
	}
	for _, r := range d.refs[id] {
		if r.refType == ua.ReferenceTypeIDHasSubtype && !r.forward {
			desc.SuperTypeID = r.target
		}
	}

	switch class {
	case ua.NodeClassDataType:
		if err := d.dataTypeDefinition(n, desc); err != nil {
			return nil, err
		}
		d.encodings(desc)
	case ua.NodeClassVariableType:
		// a missing DataType is inherited from the supertype
		if desc.DataType, err = d.p.nodeID(n.DataType, id, "data type"); err != nil {
			return nil, err
		}
		if desc.ValueRank, err = d.parseRank(n.ValueRank, id); err != nil {
			return nil, err
		}
		fallthrough
	case ua.NodeClassObjectType:
		if desc.Children, err = d.children(id); err != nil {
			return nil, err
		}
	}
	return desc, nil
}

func (d *xmlDecoder) dataTypeDefinition(n *ua.UANode, desc *model.NodeDescriptor) error {
	def := n.Definition
	if def == nil {
		return nil
	}
	desc.FieldsIncludeInherited = true
	if def.IsUnion {
		desc.Kind = model.KindUnion
	}
	for _, f := range def.Field {
		dt, err := d.p.nodeID(f.DataType, desc.NodeID, "field data type")
		if err != nil {
			return err
		}
		rank := int32(f.ValueRank)
		// UADataTypeField decodes a missing ValueRank as 0; fields are never
		// OneOrMoreDimensions, so 0 means the scalar default.
		if rank == model.ValueRankOneOrMoreDimensions {
			rank = model.ValueRankScalar
		}
		desc.Fields = append(desc.Fields, model.FieldDescriptor{
			Name:        f.Name,
			DataType:    dt,
			ValueRank:   rank,
			IsOptional:  f.IsOptional,
			Description: strings.TrimSpace(f.Description),
		})
		desc.EnumValues = append(desc.EnumValues, model.EnumValue{
			Name:        f.Name,
			Value:       int64(f.Value),
			Description: strings.TrimSpace(f.Description),
		})
	}
	return nil
}

func (d *xmlDecoder) encodings(desc *model.NodeDescriptor) {
	for _, r := range d.refs[desc.NodeID] {
		if r.refType != hasEncodingID || !r.forward {
			continue
		}
		name := ""
		if enc, ok := d.index[r.target]; ok {
			name = ua.ParseQualifiedName(enc.BrowseName).Name
		}
		switch name {
		case "Default Binary":
			desc.Encodings.Binary = r.target
		case "Default XML":
			desc.Encodings.XML = r.target
		case "Default JSON":
			desc.Encodings.JSON = r.target
		}
	}
}

func (d *xmlDecoder) children(owner ua.NodeID) ([]model.ChildDescriptor, error) {
	var out []model.ChildDescriptor
	for _, r := range d.refs[owner] {
		if !r.forward {
			continue
		}
		if r.refType != ua.ReferenceTypeIDHasProperty && r.refType != ua.ReferenceTypeIDHasComponent && r.refType != ua.ReferenceTypeIDHasOrderedComponent {
			continue
		}
		n, ok := d.index[r.target]
		if !ok {
			return nil, &model.MalformedNodesetError{Source: d.src.Name, NodeID: owner, Rule: "undefined child node", Ref: model.FormatNodeID(r.target)}
		}
		c := model.ChildDescriptor{
			Name:        ua.ParseQualifiedName(n.BrowseName).Name,
			ValueRank:   model.ValueRankScalar,
			Overrides:   true,
			Description: localizedText(n.Description),
		}
		switch n.XMLName.Local {
		case "UAVariable":
			c.NodeClass = ua.NodeClassVariable
		case "UAObject":
			c.NodeClass = ua.NodeClassObject
		case "UAMethod":
			c.NodeClass = ua.NodeClassMethod
		default:
			continue
		}
		for _, cr := range d.refs[r.target] {
			if !cr.forward {
				continue
			}
			switch cr.refType {
			case ua.ReferenceTypeIDHasModellingRule:
				c.ModellingRule = model.ModellingRuleFromID(cr.target)
			case ua.ReferenceTypeIDHasTypeDefinition:
				c.TypeDefinition = cr.target
			}
		}
		if c.ModellingRule == model.RuleNone {
			// not an instance declaration
			continue
		}
		switch c.NodeClass {
		case ua.NodeClassVariable:
			dt, err := d.p.nodeID(n.DataType, r.target, "data type")
			if err != nil {
				return nil, err
			}
			if dt == nil {
				dt = model.BaseDataTypeID
			}
			c.DataType = dt
			if c.ValueRank, err = d.parseRank(n.ValueRank, r.target); err != nil {
				return nil, err
			}
			if c.TypeDefinition == nil {
				c.TypeDefinition = model.BaseDataVariableTypeID
				if r.refType == ua.ReferenceTypeIDHasProperty {
					c.TypeDefinition = model.PropertyTypeID
				}
			}
		case ua.NodeClassObject:
			if c.TypeDefinition == nil {
				c.TypeDefinition = model.BaseObjectTypeID
			}
		}
		c.IsOptional = c.ModellingRule.IsOptional()
		c.IsPlaceholder = c.ModellingRule.IsPlaceholder() || model.IsPlaceholderName(c.Name)
		out = append(out, c)
	}
	return out, nil
}

func (d *xmlDecoder) parseRank(s string, owner ua.NodeID) (int32, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return model.ValueRankScalar, nil
	}
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, &model.MalformedNodesetError{Source: d.src.Name, NodeID: owner, Rule: "unparsable value rank", Ref: s}
	}
	return int32(v), nil
}

func localizedText(t ua.UALocalizedText) string {
	if t.Text != "" {
		return strings.TrimSpace(t.Text)
	}
	return strings.TrimSpace(t.Content)
}
