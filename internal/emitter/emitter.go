package emitter

import (
	"bytes"
	"sort"
	"strings"

	"github.com/amine-amaach/uatypegen/internal/model"
	"github.com/amine-amaach/uatypegen/internal/resolver"
	"github.com/awcullen/opcua/ua"
	"github.com/dave/jennifer/jen"
	"github.com/pkg/errors"
)

// DefaultPackage names the emitted Go package when Options leaves it empty.
const DefaultPackage = "uatypes"

// Options control what is emitted.
type Options struct {
	// Package is the Go package name of the emitted files.
	Package string
	// Manifest adds uatypes.manifest.yaml to the output.
	Manifest bool
}

// File is one rendered output file.
type File struct {
	Name string
	// NodeID and TypeName are empty for support.go, registry.go and the manifest.
	NodeID    ua.NodeID
	TypeName  string
	NodeClass ua.NodeClass
	Content   []byte
}

// Emitter renders a resolved hierarchy as Go source.
type Emitter struct {
	h      *resolver.Hierarchy
	opts   Options
	names  map[ua.NodeID]string
	files  map[ua.NodeID]string
	consts map[ua.NodeID][]string
}

func New(h *resolver.Hierarchy, opts Options) *Emitter {
	if opts.Package == "" {
		opts.Package = DefaultPackage
	}
	return &Emitter{
		h:      h,
		opts:   opts,
		names:  make(map[ua.NodeID]string),
		files:  make(map[ua.NodeID]string),
		consts: make(map[ua.NodeID][]string),
	}
}

// Emit renders every file in memory. Nothing is returned unless every node
// could be emitted. Files are sorted by name.
func (e *Emitter) Emit() ([]File, error) {
	nodes := e.emittable()
	e.allocateNames(nodes)

	out := make([]File, 0, len(nodes)+3)
	for _, n := range nodes {
		f, err := e.emitNode(n)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}

	support, err := e.emitSupport()
	if err != nil {
		return nil, err
	}
	registry, err := e.emitRegistry(nodes)
	if err != nil {
		return nil, err
	}
	out = append(out, support, registry)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	if e.opts.Manifest {
		m, err := BuildManifest(e.opts.Package, e.h.Set.Namespaces, out)
		if err != nil {
			return nil, err
		}
		out = append(out, File{Name: ManifestName, Content: m})
	}
	return out, nil
}

// TypeName returns the Go name given to the node with id. Valid after Emit.
func (e *Emitter) TypeName(id ua.NodeID) (string, bool) {
	s, ok := e.names[id]
	return s, ok
}

// emittable lists the nodes that get a file: every ObjectType and
// VariableType, and every DataType except the builtin ones. ReferenceTypes
// only appear in the registry.
func (e *Emitter) emittable() []*resolver.Node {
	var out []*resolver.Node
	for _, n := range e.h.Order {
		switch n.NodeClass {
		case ua.NodeClassObjectType, ua.NodeClassVariableType:
			out = append(out, n)
		case ua.NodeClassDataType:
			if !model.IsBuiltinDataType(n.NodeID) {
				out = append(out, n)
			}
		}
	}
	return out
}

// hasEnvelope reports whether a DataType gets an ExtensionObject wrapper.
func (e *Emitter) hasEnvelope(n *resolver.Node) bool {
	return n.Kind.IsStructured() && !n.IsAbstract && n.Encodings.Any()
}

func (e *Emitter) header(n *resolver.Node) Header {
	h := Header{
		Namespace:  e.h.Set.NamespaceURI(model.NamespaceOf(n.NodeID)),
		NodeClass:  model.ClassName(n.NodeClass),
		BrowseName: n.Name(),
		TypeName:   e.names[n.NodeID],
		NodeID:     e.expandedString(n.NodeID),
		IsAbstract: n.IsAbstract,
		SuperType:  e.expandedString(n.SuperTypeID),
	}
	switch n.NodeClass {
	case ua.NodeClassDataType:
		h.Kind = n.Kind.String()
	case ua.NodeClassVariableType:
		if dt, ok := e.h.Set.Lookup(n.DataType); ok {
			h.DataType = dt.Name()
		}
		h.DataTypeNodeID = e.expandedString(n.DataType)
		h.ValueRank = formatRank(n.ValueRank)
	}
	return h
}

func (e *Emitter) newFile(headerLines []string) *jen.File {
	f := jen.NewFile(e.opts.Package)
	for _, l := range headerLines {
		f.HeaderComment(l)
	}
	f.ImportName(uaPath, "ua")
	f.ImportName(uuidPath, "uuid")
	return f
}

func (e *Emitter) emitNode(n *resolver.Node) (File, error) {
	f := e.newFile(e.header(n).lines())
	var err error
	switch n.NodeClass {
	case ua.NodeClassDataType:
		err = e.emitDataType(f, n)
	default:
		err = e.emitInstanceType(f, n)
	}
	if err != nil {
		return File{}, err
	}
	content, err := render(f)
	if err != nil {
		return File{}, errors.Wrapf(err, "rendering %s", n)
	}
	return File{
		Name:      e.files[n.NodeID],
		NodeID:    n.NodeID,
		TypeName:  e.names[n.NodeID],
		NodeClass: n.NodeClass,
		Content:   content,
	}, nil
}

func render(f *jen.File) ([]byte, error) {
	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatRank(rank int32) string {
	switch rank {
	case model.ValueRankScalarOrOneDimension:
		return "ScalarOrOneDimension"
	case model.ValueRankAny:
		return "Any"
	case model.ValueRankScalar:
		return "Scalar"
	case model.ValueRankOneOrMoreDimensions:
		return "OneOrMoreDimensions"
	}
	return "Dimensions" + numberSuffix(int64(rank))
}

// docLines splits node documentation into comment lines prefixed by the
// Go name, as godoc expects.
func docLines(goName, lead, doc string) []string {
	out := []string{goName + " " + lead}
	if doc != "" {
		out = append(out, "")
		for _, l := range strings.Split(doc, "\n") {
			out = append(out, strings.TrimSpace(l))
		}
	}
	return out
}

func comment(f *jen.File, lines []string) {
	for _, l := range lines {
		f.Comment(l)
	}
}
