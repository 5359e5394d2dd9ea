package nodeset

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"strings"

	"github.com/amine-amaach/uatypegen/internal/model"
	"github.com/awcullen/opcua/ua"
	"github.com/pkg/errors"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed schema/nodeset-table-v1.json
var tableSchemaJSON string

// table is the structured alternative to NodeSet2 XML. Namespace indexes in
// its NodeIds refer to the positions of Namespaces, starting at 1.
type table struct {
	Namespaces []string          `yaml:"namespaces"`
	Aliases    map[string]string `yaml:"aliases"`
	Nodes      []tableNode       `yaml:"nodes"`
}

type tableNode struct {
	NodeID        string           `yaml:"nodeId"`
	BrowseName    string           `yaml:"browseName"`
	NodeClass     string           `yaml:"nodeClass"`
	IsAbstract    bool             `yaml:"isAbstract"`
	SuperType     string           `yaml:"superType"`
	Documentation string           `yaml:"documentation"`
	Kind          string           `yaml:"kind"`
	DataType      string           `yaml:"dataType"`
	ValueRank     *int32           `yaml:"valueRank"`
	Fields        []tableField     `yaml:"fields"`
	EnumValues    []tableEnumValue `yaml:"enumValues"`
	Encodings     struct {
		Binary string `yaml:"binary"`
		XML    string `yaml:"xml"`
		JSON   string `yaml:"json"`
	} `yaml:"encodings"`
	Children []tableChild `yaml:"children"`
}

type tableField struct {
	Name        string `yaml:"name"`
	DataType    string `yaml:"dataType"`
	ValueRank   *int32 `yaml:"valueRank"`
	Optional    bool   `yaml:"optional"`
	Overrides   bool   `yaml:"overrides"`
	Description string `yaml:"description"`
}

type tableEnumValue struct {
	Name        string `yaml:"name"`
	Value       int64  `yaml:"value"`
	Description string `yaml:"description"`
}

type tableChild struct {
	Name           string `yaml:"name"`
	NodeClass      string `yaml:"nodeClass"`
	TypeDefinition string `yaml:"typeDefinition"`
	DataType       string `yaml:"dataType"`
	ValueRank      *int32 `yaml:"valueRank"`
	ModellingRule  string `yaml:"modellingRule"`
	Overrides      bool   `yaml:"overrides"`
	Description    string `yaml:"description"`
}

var tableKinds = map[string]model.DataTypeKind{
	"Structure":                   model.KindStructure,
	"StructureWithOptionalFields": model.KindStructureWithOptionalFields,
	"Union":                       model.KindUnion,
	"Enumeration":                 model.KindEnumeration,
	"Simple":                      model.KindSimple,
	"Abstract":                    model.KindAbstract,
}

// TableValidator checks nodeset tables against the embedded JSON schema.
type TableValidator struct {
	schema *jsonschema.Schema
}

func NewTableValidator() (*TableValidator, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("nodeset-table-v1.json", strings.NewReader(tableSchemaJSON)); err != nil {
		return nil, errors.Wrap(err, "failed to add table schema resource")
	}
	schema, err := compiler.Compile("nodeset-table-v1.json")
	if err != nil {
		return nil, errors.Wrap(err, "failed to compile table schema")
	}
	return &TableValidator{schema: schema}, nil
}

// Validate decodes data as YAML (JSON is accepted too) and validates it.
func (v *TableValidator) Validate(name string, data []byte) error {
	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return &model.MalformedNodesetError{Source: name, Rule: "undecodable table: " + err.Error()}
	}
	buf, err := json.Marshal(raw)
	if err != nil {
		return &model.MalformedNodesetError{Source: name, Rule: "table is not a JSON compatible document: " + err.Error()}
	}
	var doc interface{}
	dec := json.NewDecoder(bytes.NewReader(buf))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return &model.MalformedNodesetError{Source: name, Rule: "table is not a JSON compatible document: " + err.Error()}
	}
	if err := v.schema.Validate(doc); err != nil {
		return &model.MalformedNodesetError{Source: name, Rule: "schema violation: " + err.Error()}
	}
	return nil
}

func decodeTable(src Source, set *model.NodeSet, v *TableValidator) ([]*model.NodeDescriptor, error) {
	if err := v.Validate(src.Name, src.Data); err != nil {
		return nil, err
	}
	var t table
	if err := yaml.Unmarshal(src.Data, &t); err != nil {
		return nil, &model.MalformedNodesetError{Source: src.Name, Rule: "undecodable table: " + err.Error()}
	}
	p := newIDParser(src.Name, set, t.Namespaces, t.Aliases)

	out := make([]*model.NodeDescriptor, 0, len(t.Nodes))
	for _, tn := range t.Nodes {
		n, err := tableNodeDescriptor(p, src.Name, tn)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func tableNodeDescriptor(p *idParser, source string, tn tableNode) (*model.NodeDescriptor, error) {
	id, err := p.nodeID(tn.NodeID, nil, "node id")
	if err != nil {
		return nil, err
	}
	class, _ := model.ParseClassName(tn.NodeClass)
	bn, err := p.browseName(tn.BrowseName, id, true)
	if err != nil {
		return nil, err
	}
	n := &model.NodeDescriptor{
		NodeID:        id,
		BrowseName:    bn,
		NodeClass:     class,
		IsAbstract:    tn.IsAbstract,
		Documentation: strings.TrimSpace(tn.Documentation),
		Source:        source,
	}
	if n.SuperTypeID, err = p.nodeID(tn.SuperType, id, "supertype"); err != nil {
		return nil, err
	}

	switch class {
	case ua.NodeClassDataType:
		n.Kind = tableKinds[tn.Kind]
		for _, f := range tn.Fields {
			dt, err := p.nodeID(f.DataType, id, "field data type")
			if err != nil {
				return nil, err
			}
			n.Fields = append(n.Fields, model.FieldDescriptor{
				Name:        f.Name,
				DataType:    dt,
				ValueRank:   rankOr(f.ValueRank, model.ValueRankScalar),
				IsOptional:  f.Optional,
				Overrides:   f.Overrides,
				Description: f.Description,
			})
		}
		for _, e := range tn.EnumValues {
			n.EnumValues = append(n.EnumValues, model.EnumValue{Name: e.Name, Value: e.Value, Description: e.Description})
		}
		if n.Encodings.Binary, err = p.nodeID(tn.Encodings.Binary, id, "binary encoding"); err != nil {
			return nil, err
		}
		if n.Encodings.XML, err = p.nodeID(tn.Encodings.XML, id, "xml encoding"); err != nil {
			return nil, err
		}
		if n.Encodings.JSON, err = p.nodeID(tn.Encodings.JSON, id, "json encoding"); err != nil {
			return nil, err
		}
	case ua.NodeClassVariableType:
		// dataType and valueRank are inherited together when dataType is omitted
		if n.DataType, err = p.nodeID(tn.DataType, id, "data type"); err != nil {
			return nil, err
		}
		n.ValueRank = rankOr(tn.ValueRank, model.ValueRankScalar)
		fallthrough
	case ua.NodeClassObjectType:
		for _, tc := range tn.Children {
			c, err := tableChildDescriptor(p, id, tc)
			if err != nil {
				return nil, err
			}
			n.Children = append(n.Children, c)
		}
	}
	return n, nil
}

func tableChildDescriptor(p *idParser, owner ua.NodeID, tc tableChild) (model.ChildDescriptor, error) {
	class, _ := model.ParseClassName(tc.NodeClass)
	rule := model.RuleMandatory
	if tc.ModellingRule != "" {
		rule, _ = model.ParseModellingRule(tc.ModellingRule)
	}
	c := model.ChildDescriptor{
		Name:          tc.Name,
		NodeClass:     class,
		ValueRank:     rankOr(tc.ValueRank, model.ValueRankScalar),
		ModellingRule: rule,
		IsOptional:    rule.IsOptional(),
		IsPlaceholder: rule.IsPlaceholder() || model.IsPlaceholderName(tc.Name),
		Overrides:     tc.Overrides,
		Description:   tc.Description,
	}
	var err error
	if c.TypeDefinition, err = p.nodeID(tc.TypeDefinition, owner, "type definition"); err != nil {
		return c, err
	}
	if c.DataType, err = p.nodeID(tc.DataType, owner, "child data type"); err != nil {
		return c, err
	}
	switch class {
	case ua.NodeClassVariable:
		if c.TypeDefinition == nil {
			c.TypeDefinition = model.BaseDataVariableTypeID
		}
		if c.DataType == nil {
			c.DataType = model.BaseDataTypeID
		}
	case ua.NodeClassObject:
		if c.TypeDefinition == nil {
			c.TypeDefinition = model.BaseObjectTypeID
		}
	}
	return c, nil
}

func rankOr(r *int32, def int32) int32 {
	if r == nil {
		return def
	}
	return *r
}
