package model

import (
	"sort"
	"strings"
	"testing"

	"github.com/awcullen/opcua/ua"
	"github.com/google/uuid"
)

func TestCompareNodeID(t *testing.T) {
	g := uuid.MustParse("5ce9dbce-5d79-434c-9ac3-1cfba9a6e92c")
	ids := []ua.NodeID{
		ua.NewNodeIDString(1, "b"),
		ua.NewNodeIDNumeric(1, 7),
		ua.NewNodeIDGUID(1, g),
		ua.NewNodeIDNumeric(0, 85),
		ua.NewNodeIDString(1, "a"),
		ua.NewNodeIDNumeric(0, 24),
		ua.NewNodeIDOpaque(2, ua.ByteString("x")),
	}
	sort.Slice(ids, func(i, j int) bool { return CompareNodeID(ids[i], ids[j]) < 0 })

	var got []string
	for _, id := range ids {
		got = append(got, FormatNodeID(id))
	}
	want := []string{
		"i=24",
		"i=85",
		"ns=1;i=7",
		"ns=1;s=a",
		"ns=1;s=b",
		"ns=1;g=5ce9dbce-5d79-434c-9ac3-1cfba9a6e92c",
		"ns=2;b=eA==",
	}
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Fatalf("order:\n got %v\nwant %v", got, want)
	}
	if CompareNodeID(ua.NewNodeIDNumeric(3, 1), ua.NewNodeIDNumeric(3, 1)) != 0 {
		t.Fatal("equal ids must compare as 0")
	}
}

func TestExpandedString(t *testing.T) {
	tests := []struct {
		uri  string
		id   ua.NodeID
		want string
	}{
		{"http://example.org/", ua.NewNodeIDNumeric(2, 100), "nsu=http://example.org/;i=100"},
		{"http://example.org/", ua.NewNodeIDString(1, "Pump"), "nsu=http://example.org/;s=Pump"},
		{NamespaceURI, ua.NewNodeIDNumeric(0, 58), "i=58"},
		{"", ua.NewNodeIDNumeric(4, 1), "ns=4;i=1"},
	}
	for _, tt := range tests {
		if got := ExpandedString(tt.uri, tt.id); got != tt.want {
			t.Errorf("ExpandedString(%q, %v) = %q, want %q", tt.uri, tt.id, got, tt.want)
		}
	}

	parsed := ua.ParseExpandedNodeID(ExpandedString("http://example.org/", ua.NewNodeIDNumeric(2, 100)))
	if parsed.NamespaceURI != "http://example.org/" || parsed.NodeID != ua.NewNodeIDNumeric(0, 100) {
		t.Fatalf("round trip through ua.ParseExpandedNodeID gave %+v", parsed)
	}
}

func TestWithNamespace(t *testing.T) {
	g := uuid.New()
	if got := WithNamespace(ua.NewNodeIDGUID(1, g), 3); got != ua.NewNodeIDGUID(3, g) {
		t.Fatalf("got %v", got)
	}
	if got := NamespaceOf(WithNamespace(ua.NewNodeIDString(0, "x"), 5)); got != 5 {
		t.Fatalf("namespace %d, want 5", got)
	}
	if NamespaceOf(nil) != 0 || FormatNodeID(nil) != "" {
		t.Fatal("nil ids format empty in namespace 0")
	}
}

func TestIntrinsicHierarchy(t *testing.T) {
	set := NewNodeSet()
	for _, n := range IntrinsicNodes() {
		set.Put(n)
	}

	tests := []struct {
		id   uint32
		want uint32
	}{
		{6, 6},
		{27, 27},
		{24, 24},
		{29, 29},
	}
	for _, tt := range tests {
		if got := set.NearestBuiltin(ua.NewNodeIDNumeric(0, tt.id)); got != tt.want {
			t.Errorf("NearestBuiltin(i=%d) = %d, want %d", tt.id, got, tt.want)
		}
	}

	int32ID := ua.NewNodeIDNumeric(0, 6)
	if !set.IsSubtypeOf(int32ID, NumberID) || !set.IsSubtypeOf(int32ID, BaseDataTypeID) {
		t.Fatal("Int32 derives from Number and BaseDataType")
	}
	if set.IsSubtypeOf(ua.NewNodeIDNumeric(0, 12), NumberID) {
		t.Fatal("String is not a Number")
	}
	if !IsBuiltinDataType(EnumerationID) || IsBuiltinDataType(BaseObjectTypeID) || IsBuiltinDataType(ua.NewNodeIDNumeric(1, 6)) {
		t.Fatal("builtin ids are the namespace 0 ids 1..29")
	}
	if name, ok := BuiltinName(ua.NewNodeIDNumeric(0, 21)); !ok || name != "LocalizedText" {
		t.Fatalf("BuiltinName(21) = %q", name)
	}
	if _, ok := BuiltinName(ua.NewNodeIDNumeric(0, 26)); ok {
		t.Fatal("Number is not a wire type")
	}
	if len(BuiltinNames()) != 25 {
		t.Fatalf("%d builtin names", len(BuiltinNames()))
	}
}

func TestNearestBuiltinOutsideHierarchy(t *testing.T) {
	set := NewNodeSet()
	set.Put(&NodeDescriptor{NodeID: ua.NewNodeIDNumeric(1, 1), NodeClass: ua.NodeClassDataType, BrowseName: ua.NewQualifiedName(1, "Orphan")})
	if got := set.NearestBuiltin(ua.NewNodeIDNumeric(1, 1)); got != 0 {
		t.Fatalf("got %d, want 0", got)
	}
}

func TestNodeSetPutReplacesName(t *testing.T) {
	set := NewNodeSet()
	id := ua.NewNodeIDNumeric(1, 10)
	set.Put(&NodeDescriptor{NodeID: id, BrowseName: ua.NewQualifiedName(1, "Old")})
	set.Put(&NodeDescriptor{NodeID: id, BrowseName: ua.NewQualifiedName(1, "New")})

	if _, ok := set.LookupName(1, "Old"); ok {
		t.Fatal("stale browse name still indexed")
	}
	if n, ok := set.LookupName(1, "New"); !ok || n.NodeID != id {
		t.Fatal("new browse name not indexed")
	}
	if got := set.AddNamespace("urn:a"); got != 1 {
		t.Fatalf("first namespace index %d", got)
	}
	if got := set.AddNamespace("urn:a"); got != 1 {
		t.Fatalf("repeated namespace index %d", got)
	}
	if set.NamespaceURI(7) != "" {
		t.Fatal("unknown index has no uri")
	}
}

func TestNodeSetPutForeignBrowseNamespace(t *testing.T) {
	set := NewNodeSet()
	id := ua.NewNodeIDNumeric(2, 10)
	// the browse name lives in another namespace than the NodeId
	set.Put(&NodeDescriptor{NodeID: id, BrowseName: ua.NewQualifiedName(1, "Old")})
	other := ua.NewNodeIDNumeric(2, 11)
	set.Put(&NodeDescriptor{NodeID: other, BrowseName: ua.NewQualifiedName(2, "Shared")})
	set.Put(&NodeDescriptor{NodeID: id, BrowseName: ua.NewQualifiedName(1, "Shared")})

	if _, ok := set.LookupName(2, "Old"); ok {
		t.Fatal("stale browse name still indexed")
	}
	if n, ok := set.LookupName(2, "Shared"); !ok || n.NodeID != id {
		t.Fatalf("Shared resolves to %v", n)
	}

	set.Put(&NodeDescriptor{NodeID: id, BrowseName: ua.NewQualifiedName(1, "Renamed")})
	if _, ok := set.LookupName(2, "Shared"); ok {
		t.Fatal("replacing the owner of a name must drop it")
	}
}

func TestModellingRule(t *testing.T) {
	r, ok := ParseModellingRule("optionalplaceholder")
	if !ok || r != RuleOptionalPlaceholder || !r.IsOptional() || !r.IsPlaceholder() {
		t.Fatalf("parsed %v", r)
	}
	if ModellingRuleFromID(ua.ObjectIDModellingRuleMandatory) != RuleMandatory {
		t.Fatal("mandatory rule id")
	}
	if ModellingRuleFromID(ua.NewNodeIDNumeric(0, 1)) != RuleNone {
		t.Fatal("unknown rule id")
	}
	for _, name := range []string{"<Name>", "$Sensor$"} {
		if !IsPlaceholderName(name) {
			t.Errorf("%s is a placeholder name", name)
		}
	}
	if IsPlaceholderName("<>") || IsPlaceholderName("Name") {
		t.Error("not placeholder names")
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{
			&MalformedNodesetError{Source: "a.xml", NodeID: ua.NewNodeIDNumeric(1, 5), Rule: "undefined supertype", Ref: "ns=1;i=9"},
			`malformed nodeset a.xml: node ns=1;i=5: undefined supertype "ns=1;i=9"`,
		},
		{
			&DuplicateNodeIDError{NodeID: ua.NewNodeIDNumeric(1, 5), First: "a.xml", Second: "b.yaml"},
			"duplicate node id ns=1;i=5: defined as a.xml and b.yaml",
		},
		{
			&CycleDetectedError{Path: []ua.NodeID{ua.NewNodeIDNumeric(1, 1), ua.NewNodeIDNumeric(1, 2), ua.NewNodeIDNumeric(1, 1)}},
			"supertype cycle detected: ns=1;i=1 -> ns=1;i=2 -> ns=1;i=1",
		},
		{
			&UnemittableNodeError{NodeID: ua.NewNodeIDNumeric(1, 1), Member: "x", Ref: ua.NewNodeIDNumeric(1, 2), Reason: "data type is not defined"},
			`cannot emit node ns=1;i=1 member "x" (ref ns=1;i=2): data type is not defined`,
		},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("got  %s\nwant %s", got, tt.want)
		}
	}
}

func TestClassNames(t *testing.T) {
	for _, c := range []ua.NodeClass{ua.NodeClassDataType, ua.NodeClassObjectType, ua.NodeClassVariableType, ua.NodeClassReferenceType, ua.NodeClassMethod} {
		got, ok := ParseClassName(ClassName(c))
		if !ok || got != c {
			t.Errorf("class %v did not survive its name", c)
		}
	}
	if _, ok := ParseClassName("Unspecified"); ok {
		t.Error("Unspecified is not a class name")
	}
}
