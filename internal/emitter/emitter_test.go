package emitter

import (
	"bytes"
	"errors"
	"go/ast"
	"go/format"
	"go/parser"
	"go/token"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/amine-amaach/uatypegen/internal/model"
	"github.com/amine-amaach/uatypegen/internal/nodeset"
	"github.com/amine-amaach/uatypegen/internal/resolver"
	"github.com/sirupsen/logrus"
)

const shapesTable = `
namespaces: [urn:example:shapes]
nodes:
  - nodeId: ns=1;i=1
    browseName: Base
    nodeClass: DataType
    isAbstract: true
    superType: i=22
    fields:
      - {name: a, dataType: i=6}
      - {name: b, dataType: i=12}
  - nodeId: ns=1;i=2
    browseName: Derived
    nodeClass: DataType
    superType: ns=1;i=1
    encodings: {binary: ns=1;i=11}
    fields:
      - {name: c, dataType: i=1}
  - nodeId: ns=1;i=3
    browseName: Choice
    nodeClass: DataType
    superType: i=22
    kind: Union
    fields:
      - {name: number, dataType: i=6}
      - {name: text, dataType: i=12}
  - nodeId: ns=1;i=4
    browseName: AlarmMask
    nodeClass: DataType
    superType: i=7
    enumValues:
      - {name: High, value: 0}
      - {name: Low, value: 3}
  - nodeId: ns=1;i=20
    browseName: AnalogType
    nodeClass: VariableType
    superType: i=63
    dataType: i=26
  - nodeId: ns=1;i=30
    browseName: Parent
    nodeClass: ObjectType
    superType: i=58
    children:
      - {name: x, nodeClass: Variable, dataType: i=24}
  - nodeId: ns=1;i=31
    browseName: Child
    nodeClass: ObjectType
    superType: ns=1;i=30
    children:
      - {name: x, nodeClass: Variable, dataType: i=6, overrides: true}
`

func hierarchy(t *testing.T, sources ...nodeset.Source) *resolver.Hierarchy {
	t.Helper()
	log := logrus.New()
	log.Out = io.Discard
	l, err := nodeset.NewLoader(log, true)
	if err != nil {
		t.Fatal(err)
	}
	set, err := l.Load(sources...)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	h, err := resolver.Resolve(set)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	return h
}

func shapes(t *testing.T) *resolver.Hierarchy {
	return hierarchy(t, nodeset.Source{Name: "shapes.yaml", Format: nodeset.FormatYAML, Data: []byte(shapesTable)})
}

func pump(t *testing.T) *resolver.Hierarchy {
	t.Helper()
	src, err := nodeset.ReadSource(filepath.Join("..", "nodeset", "testdata", "pump.NodeSet2.xml"))
	if err != nil {
		t.Fatal(err)
	}
	return hierarchy(t, src)
}

func emit(t *testing.T, h *resolver.Hierarchy, manifest bool) map[string]File {
	t.Helper()
	files, err := New(h, Options{Package: "pumps", Manifest: manifest}).Emit()
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	out := make(map[string]File, len(files))
	for _, f := range files {
		out[f.Name] = f
	}
	return out
}

type goFile struct {
	t    *testing.T
	fset *token.FileSet
	file *ast.File
	src  []byte
}

func parse(t *testing.T, files map[string]File, name string) *goFile {
	t.Helper()
	f, ok := files[name]
	if !ok {
		t.Fatalf("%s was not emitted", name)
	}
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, name, f.Content, parser.ParseComments)
	if err != nil {
		t.Fatalf("%s does not parse: %v\n%s", name, err, f.Content)
	}
	if file.Name.Name != "pumps" {
		t.Fatalf("%s is in package %s", name, file.Name.Name)
	}
	return &goFile{t: t, fset: fset, file: file, src: f.Content}
}

func (g *goFile) expr(e ast.Expr) string {
	var b bytes.Buffer
	if err := format.Node(&b, g.fset, e); err != nil {
		g.t.Fatal(err)
	}
	return b.String()
}

func (g *goFile) typeSpec(name string) *ast.TypeSpec {
	g.t.Helper()
	for _, d := range g.file.Decls {
		gd, ok := d.(*ast.GenDecl)
		if !ok || gd.Tok != token.TYPE {
			continue
		}
		for _, s := range gd.Specs {
			if ts := s.(*ast.TypeSpec); ts.Name.Name == name {
				return ts
			}
		}
	}
	g.t.Fatalf("type %s not declared in\n%s", name, g.src)
	return nil
}

// iface renders the members of an interface type: embedded types as
// written, methods as name and results.
func (g *goFile) iface(name string) string {
	g.t.Helper()
	it, ok := g.typeSpec(name).Type.(*ast.InterfaceType)
	if !ok {
		g.t.Fatalf("%s is not an interface", name)
	}
	var out []string
	for _, m := range it.Methods.List {
		if len(m.Names) == 0 {
			out = append(out, g.expr(m.Type))
			continue
		}
		var results []string
		for _, r := range m.Type.(*ast.FuncType).Results.List {
			results = append(results, g.expr(r.Type))
		}
		res := strings.Join(results, ", ")
		if len(results) > 1 {
			res = "(" + res + ")"
		}
		out = append(out, m.Names[0].Name+" "+res)
	}
	return strings.Join(out, "; ")
}

func (g *goFile) structFields(name string) string {
	g.t.Helper()
	st, ok := g.typeSpec(name).Type.(*ast.StructType)
	if !ok {
		g.t.Fatalf("%s is not a struct", name)
	}
	var out []string
	for _, f := range st.Fields.List {
		s := g.expr(f.Type)
		if len(f.Names) > 0 {
			s = f.Names[0].Name + " " + s
		}
		if f.Tag != nil {
			s += " " + f.Tag.Value
		}
		out = append(out, s)
	}
	return strings.Join(out, "; ")
}

func (g *goFile) consts() []string {
	var out []string
	for _, d := range g.file.Decls {
		gd, ok := d.(*ast.GenDecl)
		if !ok || gd.Tok != token.CONST {
			continue
		}
		for _, s := range gd.Specs {
			for _, n := range s.(*ast.ValueSpec).Names {
				out = append(out, n.Name)
			}
		}
	}
	return out
}

func (g *goFile) contains(s string) bool {
	return bytes.Contains(g.src, []byte(s))
}

func TestEmitStructureInheritance(t *testing.T) {
	files := emit(t, shapes(t), false)

	derived := parse(t, files, "derived.go")
	if got := derived.structFields("Derived"); got != "A int32 `uatype:\"a\"`; B string `uatype:\"b\"`; C bool `uatype:\"c\"`" {
		t.Fatalf("Derived fields: %s", got)
	}
	if got := derived.structFields("DerivedExtensionObject"); got != "Derived" {
		t.Fatalf("envelope fields: %s", got)
	}
	if !derived.contains("func (DerivedExtensionObject) EncodingID() ua.ExpandedNodeID") {
		t.Fatalf("envelope lacks EncodingID:\n%s", derived.src)
	}

	base := parse(t, files, "base.go")
	if got := base.structFields("Base"); got != "A int32 `uatype:\"a\"`; B string `uatype:\"b\"`" {
		t.Fatalf("Base fields: %s", got)
	}
	h, err := ParseHeader(base.src)
	if err != nil {
		t.Fatal(err)
	}
	if !h.IsAbstract || h.Kind != "Structure" || h.NodeID != "nsu=urn:example:shapes;i=1" || h.SuperType != "i=22" {
		t.Fatalf("Base header %+v", h)
	}
	if strings.Contains(string(base.src), "BaseExtensionObject") {
		t.Fatal("abstract structures have no envelope")
	}

	reg := parse(t, files, RegistryFile)
	if !reg.contains("ua.RegisterBinaryEncodingID(reflect.TypeOf(Derived{})") {
		t.Fatalf("Derived is not registered:\n%s", reg.src)
	}
	if reg.contains("reflect.TypeOf(Base{})") {
		t.Fatal("abstract Base registered")
	}
}

func TestEmitOverrideNarrowsChild(t *testing.T) {
	files := emit(t, shapes(t), false)

	parent := parse(t, files, "parent.go")
	if got := parent.iface("ParentBase"); got != "X BaseDataVariableType[ua.Variant, Variant]" {
		t.Fatalf("ParentBase: %s", got)
	}
	if got := parent.iface("Parent"); got != "ParentBase; BaseObjectType" {
		t.Fatalf("Parent: %s", got)
	}

	child := parse(t, files, "child.go")
	if got := child.iface("ChildBase"); got != "X BaseDataVariableType[int32, Int32]" {
		t.Fatalf("ChildBase: %s", got)
	}
	// Parent is not embedded, its X would be reachable
	if got := child.iface("Child"); got != "ChildBase; Object" {
		t.Fatalf("Child: %s", got)
	}
}

func TestEmitUnionOptionSetAndGenericVariableType(t *testing.T) {
	files := emit(t, shapes(t), false)

	choice := parse(t, files, "choice.go")
	if got := choice.structFields("Choice"); got != "SwitchField uint32; Number *int32 `uatype:\"number\"`; Text *string `uatype:\"text\"`" {
		t.Fatalf("Choice: %s", got)
	}

	mask := parse(t, files, "alarm_mask.go")
	if got := mask.expr(mask.typeSpec("AlarmMask").Type); got != "uint32" {
		t.Fatalf("AlarmMask over %s", got)
	}
	if got := strings.Join(mask.consts(), ","); got != "AlarmMaskHigh,AlarmMaskLow" {
		t.Fatalf("AlarmMask consts %s", got)
	}
	if !mask.contains("1 << 3") {
		t.Fatalf("option bits:\n%s", mask.src)
	}

	analog := parse(t, files, "analog_type.go")
	ts := analog.typeSpec("AnalogType")
	if ts.TypeParams == nil || len(ts.TypeParams.List) != 2 {
		t.Fatalf("AnalogType type parameters:\n%s", analog.src)
	}
	if got := analog.iface("AnalogType"); got != "AnalogTypeBase; BaseDataVariableType[T, DT]" {
		t.Fatalf("AnalogType: %s", got)
	}

	bdv := parse(t, files, "base_data_variable_type.go")
	if got := bdv.iface("BaseDataVariableType"); got != "BaseDataVariableTypeBase; BaseVariableType[T, DT]" {
		t.Fatalf("BaseDataVariableType: %s", got)
	}
	root := parse(t, files, "base_variable_type.go")
	if got := root.iface("BaseVariableType"); got != "BaseVariableTypeBase; Variable[T, DT]" {
		t.Fatalf("BaseVariableType: %s", got)
	}
}

func TestEmitPumpNodeset(t *testing.T) {
	files := emit(t, pump(t), true)

	for _, name := range []string{
		"pump_status.go", "reading_base.go", "pump_reading.go", "flow_variable_type.go",
		"rated_flow_type.go", "pump_type.go", "booster_pump_type.go", "base_object_type.go",
		"property_type.go", SupportFile, RegistryFile, ManifestName,
	} {
		if _, ok := files[name]; !ok {
			t.Errorf("%s was not emitted", name)
		}
	}

	p := parse(t, files, "pump_type.go")
	want := "Speed BaseDataVariableType[float64, Double]; " +
		"Status PropertyType[PumpStatus, Int32]; " +
		"SerialNumber (PropertyType[string, String], bool); " +
		"Start Method"
	if got := p.iface("PumpTypeBase"); got != want {
		t.Fatalf("PumpTypeBase:\n got %s\nwant %s", got, want)
	}
	if !p.contains("+uatype:placeholder name=<Sensor> type=BaseObjectType rule=OptionalPlaceholder") {
		t.Fatalf("placeholder marker missing:\n%s", p.src)
	}
	if !p.contains("// Speed Shaft speed in rpm.") || !p.contains("A centrifugal pump.") {
		t.Fatalf("documentation missing:\n%s", p.src)
	}

	b := parse(t, files, "booster_pump_type.go")
	if got := b.iface("BoosterPumpTypeBase"); got != "Speed FlowVariableType; Stages PropertyType[int32, Int32]" {
		t.Fatalf("BoosterPumpTypeBase: %s", got)
	}
	want = "BoosterPumpTypeBase; Object; " +
		"Status PropertyType[PumpStatus, Int32]; " +
		"SerialNumber (PropertyType[string, String], bool); " +
		"Start Method"
	if got := b.iface("BoosterPumpType"); got != want {
		t.Fatalf("BoosterPumpType:\n got %s\nwant %s", got, want)
	}
	if !b.contains("inherited from PumpType, without Speed") {
		t.Fatalf("inherited comment missing:\n%s", b.src)
	}

	flow := parse(t, files, "flow_variable_type.go")
	if got := flow.iface("FlowVariableType"); got != "FlowVariableTypeBase; BaseDataVariableType[float64, Double]" {
		t.Fatalf("FlowVariableType: %s", got)
	}
	fh, _ := ParseHeader(flow.src)
	if fh.DataType != "Double" || fh.ValueRank != "Scalar" || fh.DataTypeNodeID != "i=11" {
		t.Fatalf("FlowVariableType header %+v", fh)
	}
	rated := parse(t, files, "rated_flow_type.go")
	if got := rated.iface("RatedFlowType"); got != "RatedFlowTypeBase; FlowVariableType" {
		t.Fatalf("RatedFlowType: %s", got)
	}

	reading := parse(t, files, "pump_reading.go")
	want = "Source string `uatype:\"Source\"`; Flow float64 `uatype:\"Flow\"`; " +
		"Samples []float64 `uatype:\"Samples\"`; Status *PumpStatus `uatype:\"Status,optional\"`"
	if got := reading.structFields("PumpReading"); got != want {
		t.Fatalf("PumpReading:\n got %s\nwant %s", got, want)
	}
	if !regexp.MustCompile(`NamespaceURI:\s+"http://example.org/UA/Pump/"`).Match(reading.src) {
		t.Fatalf("envelope ids must carry the namespace uri:\n%s", reading.src)
	}

	status := parse(t, files, "pump_status.go")
	if got := strings.Join(status.consts(), ","); got != "PumpStatusStopped,PumpStatusRunning,PumpStatusFault" {
		t.Fatalf("PumpStatus consts %s", got)
	}
	if !status.contains(`return "Fault"`) || !status.contains(`"PumpStatus(%d)"`) || !status.contains("// The pump tripped.") {
		t.Fatalf("PumpStatus String:\n%s", status.src)
	}

	reg := parse(t, files, RegistryFile)
	for _, re := range []string{`BrowseName:\s+"HasPump"`, `GoType:\s+"PumpType"`, `Name:\s+"<Sensor>"`, `return new\(PumpReading\)`} {
		if !regexp.MustCompile(re).Match(reg.src) {
			t.Errorf("registry lacks %s", re)
		}
	}
	if !reg.contains("func LookupNodeID(id ua.NodeID, namespaceURIs []string) (TypeInfo, bool) {") ||
		!reg.contains("ns, n.NamespaceIndex = n.NamespaceIndex, 0") ||
		!reg.contains("NamespaceURI: namespaceURIs[ns]") {
		t.Errorf("registry lacks the index based lookup:\n%s", reg.src)
	}
	if reg.contains("return new(ReadingBase)") {
		t.Error("abstract DataTypes have no constructor")
	}
	parse(t, files, SupportFile)
}

func TestEmitDeterministic(t *testing.T) {
	first := emit(t, pump(t), true)
	second := emit(t, pump(t), true)
	if len(first) != len(second) {
		t.Fatalf("%d files, then %d", len(first), len(second))
	}
	for name, f := range first {
		if !bytes.Equal(f.Content, second[name].Content) {
			t.Errorf("%s differs between runs", name)
		}
	}
}

func TestEmitFilesSorted(t *testing.T) {
	files, err := New(pump(t), Options{}).Emit()
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i < len(files); i++ {
		if files[i-1].Name >= files[i].Name {
			t.Fatalf("%s before %s", files[i-1].Name, files[i].Name)
		}
	}
	for _, f := range files {
		if f.Name == ManifestName {
			t.Fatal("manifest written although disabled")
		}
		if !bytes.Contains(f.Content, []byte("package "+DefaultPackage)) {
			t.Fatalf("%s is not in the default package", f.Name)
		}
	}
}

func TestManifest(t *testing.T) {
	files := emit(t, pump(t), true)
	m, err := ReadManifest(files[ManifestName].Content)
	if err != nil {
		t.Fatal(err)
	}
	if m.Package != "pumps" || len(m.Namespaces) != 2 || len(m.Files) != len(files)-1 {
		t.Fatalf("manifest %+v", m)
	}
	for _, e := range m.Files {
		if e.Digest != Digest(files[e.Name].Content) {
			t.Errorf("%s digest mismatch", e.Name)
		}
	}
	e, ok := m.Entry("pump_type.go")
	if !ok || e.NodeID != "nsu=http://example.org/UA/Pump/;i=1001" || e.TypeName != "PumpType" || e.NodeClass != "ObjectType" {
		t.Fatalf("pump_type.go entry %+v", e)
	}
	if e, _ := m.Entry(SupportFile); e.NodeID != "" {
		t.Fatalf("support.go has node id %s", e.NodeID)
	}
	if _, err := ReadManifest([]byte("generator: other\n")); err == nil {
		t.Fatal("foreign manifests are rejected")
	}
}

func TestParseHeader(t *testing.T) {
	files := emit(t, pump(t), false)
	h, err := ParseHeader(files["booster_pump_type.go"].Content)
	if err != nil {
		t.Fatal(err)
	}
	want := Header{
		Namespace:  "http://example.org/UA/Pump/",
		NodeClass:  "ObjectType",
		BrowseName: "BoosterPumpType",
		TypeName:   "BoosterPumpType",
		NodeID:     "nsu=http://example.org/UA/Pump/;i=1002",
		SuperType:  "nsu=http://example.org/UA/Pump/;i=1001",
	}
	if h != want {
		t.Fatalf("got  %+v\nwant %+v", h, want)
	}
	if id := h.ID(); id.NamespaceURI != want.Namespace || model.FormatNodeID(id.NodeID) != "i=1002" {
		t.Fatalf("ID() = %+v", id)
	}
	if _, err := ParseHeader(files[SupportFile].Content); err == nil {
		t.Fatal("support.go has no type header")
	}
	if _, err := ParseHeader([]byte("// +uatype nodeId\npackage x\n")); err == nil {
		t.Fatal("header line without value accepted")
	}
}

func TestEmitUnemittable(t *testing.T) {
	h := hierarchy(t, nodeset.Source{Name: "clash.yaml", Format: nodeset.FormatYAML, Data: []byte(`
namespaces: [urn:example:clash]
nodes:
  - nodeId: ns=1;i=1
    browseName: Clash
    nodeClass: DataType
    superType: i=22
    fields:
      - {name: a_b, dataType: i=6}
      - {name: aB, dataType: i=6}
`)})
	files, err := New(h, Options{}).Emit()
	var unemittable *model.UnemittableNodeError
	if !errors.As(err, &unemittable) || unemittable.Member != "aB" {
		t.Fatalf("want UnemittableNodeError, got %v", err)
	}
	if files != nil {
		t.Fatal("no files on error")
	}
}

func TestNames(t *testing.T) {
	tests := map[string]string{
		"Default Binary": "DefaultBinary",
		"3DPoint":        "X3DPoint",
		"":               "X",
		"<Sensor>":       "Sensor",
		"pump-status":    "PumpStatus",
	}
	for in, want := range tests {
		if got := exported(in); got != want {
			t.Errorf("exported(%q) = %q, want %q", in, got, want)
		}
	}
	for in, want := range map[string]string{
		"PumpType":   "pump_type",
		"HTTPServer": "http_server",
		"Windows":    "windows_type",
		"NodeTest":   "node_test_type",
		"Ns1Value2":  "ns1_value2",
	} {
		if got := fileStem(in); got != want {
			t.Errorf("fileStem(%q) = %q, want %q", in, got, want)
		}
	}
	if accessorName("Value") != "ValueNode" || accessorName("Flow") != "Flow" {
		t.Error("accessors must not shadow the support methods")
	}

	m := newNamer()
	if got := m.claim("Variable", 1, nil); got != "VariableNs1" {
		t.Fatalf("claim over a support name = %s", got)
	}
	if got := m.claim("Pump", 2, []string{"Base"}); got != "Pump" {
		t.Fatalf("claim = %s", got)
	}
	if got := m.claim("PumpBase", 3, nil); got != "PumpBaseNs3" {
		t.Fatalf("claim of a reserved suffix = %s", got)
	}
	if m.file("Pump") != "pump.go" || m.file("Pump") != "pump_2.go" {
		t.Fatal("file names must be unique")
	}
}
