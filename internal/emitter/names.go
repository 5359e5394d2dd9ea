package emitter

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/amine-amaach/uatypegen/internal/model"
	"github.com/amine-amaach/uatypegen/internal/resolver"
	"github.com/awcullen/opcua/ua"
)

// supportNames are declared by support.go and registry.go.
var supportNames = []string{
	"Node", "Object", "Variable", "Method", "Builtin", "ExtensionObject",
	"TypeInfo", "Placeholder", "Types", "LookupType", "LookupEncoding",
}

// coreMethods are the methods of the support contracts. Children whose Go
// name matches one of them get a Node suffix.
var coreMethods = map[string]bool{
	"NodeID":           true,
	"BrowseName":       true,
	"TypeDefinitionID": true,
	"Value":            true,
	"DataTypeID":       true,
	"ValueRank":        true,
	"Call":             true,
}

var reservedFiles = map[string]bool{
	"support.go":  true,
	"registry.go": true,
	"doc.go":      true,
}

// exported turns a browse name into an exported Go identifier: separators are
// dropped and the letter after them is upper cased.
func exported(name string) string {
	var b strings.Builder
	upper := true
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}
	s := b.String()
	if s == "" {
		return "X"
	}
	if r := []rune(s)[0]; unicode.IsDigit(r) || !unicode.IsUpper(r) {
		s = "X" + s
	}
	return s
}

// snake converts a Go identifier to a lower case file name stem.
func snake(name string) string {
	rs := []rune(name)
	var b strings.Builder
	for i, r := range rs {
		if unicode.IsUpper(r) && i > 0 {
			prev := rs[i-1]
			nextLower := i+1 < len(rs) && unicode.IsLower(rs[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				b.WriteByte('_')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// build constraint suffixes the go tool would interpret in a file name
var constraintSuffixes = map[string]bool{
	"test": true, "aix": true, "android": true, "darwin": true, "dragonfly": true,
	"freebsd": true, "hurd": true, "illumos": true, "ios": true, "js": true,
	"linux": true, "nacl": true, "netbsd": true, "openbsd": true, "plan9": true,
	"solaris": true, "wasip1": true, "windows": true, "zos": true, "386": true,
	"amd64": true, "arm": true, "arm64": true, "loong64": true, "mips": true,
	"mipsle": true, "mips64": true, "mips64le": true, "ppc64": true,
	"ppc64le": true, "riscv64": true, "s390x": true, "wasm": true,
}

func fileStem(typeName string) string {
	stem := snake(typeName)
	parts := strings.Split(stem, "_")
	if constraintSuffixes[parts[len(parts)-1]] {
		stem += "_type"
	}
	return stem
}

// namer hands out unique Go identifiers and file names.
type namer struct {
	taken map[string]bool
	files map[string]bool
}

func newNamer() *namer {
	m := &namer{taken: make(map[string]bool), files: make(map[string]bool)}
	for _, s := range supportNames {
		m.taken[s] = true
	}
	for _, s := range tagNames() {
		m.taken[s] = true
	}
	for f := range reservedFiles {
		m.files[f] = true
	}
	return m
}

func (m *namer) free(name string, suffixes []string) bool {
	if m.taken[name] {
		return false
	}
	for _, s := range suffixes {
		if m.taken[name+s] {
			return false
		}
	}
	return true
}

// claim reserves a name derived from base. The types of namespace 0 are
// named first, so companion types that clash get a namespace suffix.
func (m *namer) claim(base string, ns uint16, suffixes []string) string {
	name := base
	if !m.free(name, suffixes) {
		name = fmt.Sprintf("%sNs%d", base, ns)
	}
	for i := 2; !m.free(name, suffixes); i++ {
		name = fmt.Sprintf("%sNs%d_%d", base, ns, i)
	}
	m.taken[name] = true
	for _, s := range suffixes {
		m.taken[name+s] = true
	}
	return name
}

func (m *namer) file(typeName string) string {
	stem := fileStem(typeName)
	name := stem + ".go"
	for i := 2; m.files[name]; i++ {
		name = fmt.Sprintf("%s_%d.go", stem, i)
	}
	m.files[name] = true
	return name
}

// allocateNames names every emitted node and, for enumerations and option
// sets, their constants.
func (e *Emitter) allocateNames(nodes []*resolver.Node) {
	byID := make([]*resolver.Node, len(nodes))
	copy(byID, nodes)
	sort.Slice(byID, func(i, j int) bool {
		return model.CompareNodeID(byID[i].NodeID, byID[j].NodeID) < 0
	})

	m := newNamer()
	for _, n := range byID {
		var suffixes []string
		switch n.NodeClass {
		case ua.NodeClassObjectType, ua.NodeClassVariableType:
			suffixes = []string{"Base"}
		case ua.NodeClassDataType:
			if e.hasEnvelope(n) {
				suffixes = []string{"ExtensionObject"}
			}
		}
		e.names[n.NodeID] = m.claim(exported(n.Name()), model.NamespaceOf(n.NodeID), suffixes)
	}
	for _, n := range byID {
		e.files[n.NodeID] = m.file(e.names[n.NodeID])
	}
	for _, n := range byID {
		if len(n.EnumValues) == 0 || n.NodeClass != ua.NodeClassDataType {
			continue
		}
		consts := make([]string, len(n.EnumValues))
		for i, v := range n.EnumValues {
			c := e.names[n.NodeID] + exported(v.Name)
			if m.taken[c] {
				c += numberSuffix(v.Value)
			}
			for j := 2; m.taken[c]; j++ {
				c = fmt.Sprintf("%s%s_%d", e.names[n.NodeID]+exported(v.Name), numberSuffix(v.Value), j)
			}
			m.taken[c] = true
			consts[i] = c
		}
		e.consts[n.NodeID] = consts
	}
}

// accessorName is the Go name of a child accessor.
func accessorName(name string) string {
	s := exported(name)
	if coreMethods[s] {
		s += "Node"
	}
	return s
}

func numberSuffix(v int64) string {
	if v < 0 {
		return fmt.Sprintf("Minus%d", -v)
	}
	return fmt.Sprintf("%d", v)
}
