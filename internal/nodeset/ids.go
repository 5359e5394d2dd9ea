package nodeset

import (
	"strings"

	"github.com/amine-amaach/uatypegen/internal/model"
	"github.com/awcullen/opcua/ua"
)

// idParser turns NodeId and BrowseName strings of one source into global
// ids: aliases are expanded and source namespace indexes are remapped onto
// the namespace table of the NodeSet being built.
type idParser struct {
	source  string
	aliases map[string]string
	nsMap   map[uint16]uint16
}

func newIDParser(source string, set *model.NodeSet, namespaceURIs []string, aliases map[string]string) *idParser {
	p := &idParser{
		source:  source,
		aliases: aliases,
		nsMap:   make(map[uint16]uint16, len(namespaceURIs)+1),
	}
	p.nsMap[0] = 0
	for i, uri := range namespaceURIs {
		p.nsMap[uint16(i+1)] = set.AddNamespace(uri)
	}
	return p
}

func (p *idParser) remap(ns uint16) (uint16, bool) {
	g, ok := p.nsMap[ns]
	return g, ok
}

// nodeID parses s; an empty string yields nil without error.
func (p *idParser) nodeID(s string, owner ua.NodeID, what string) (ua.NodeID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if alias, ok := p.aliases[s]; ok {
		s = strings.TrimSpace(alias)
	}
	id := ua.ParseNodeID(s)
	if id == nil {
		return nil, &model.MalformedNodesetError{Source: p.source, NodeID: owner, Rule: "unparsable " + what, Ref: s}
	}
	ns, ok := p.remap(model.NamespaceOf(id))
	if !ok {
		return nil, &model.MalformedNodesetError{Source: p.source, NodeID: owner, Rule: "undeclared namespace index in " + what, Ref: s}
	}
	return model.WithNamespace(id, ns), nil
}

// browseName parses s. When ownerNS is set, a name without a namespace
// prefix takes the namespace of the owning node instead of 0.
func (p *idParser) browseName(s string, owner ua.NodeID, ownerNS bool) (ua.QualifiedName, error) {
	s = strings.TrimSpace(s)
	qn := ua.ParseQualifiedName(s)
	if qn.Name == "" {
		return qn, &model.MalformedNodesetError{Source: p.source, NodeID: owner, Rule: "empty browse name"}
	}
	if ownerNS && !hasNamespacePrefix(s) {
		qn.NamespaceIndex = model.NamespaceOf(owner)
		return qn, nil
	}
	ns, ok := p.remap(qn.NamespaceIndex)
	if !ok {
		return qn, &model.MalformedNodesetError{Source: p.source, NodeID: owner, Rule: "undeclared namespace index in browse name", Ref: s}
	}
	qn.NamespaceIndex = ns
	return qn, nil
}

func hasNamespacePrefix(s string) bool {
	i := strings.Index(s, ":")
	if i <= 0 {
		return false
	}
	for _, r := range s[:i] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
