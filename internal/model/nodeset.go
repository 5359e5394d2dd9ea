package model

import (
	"sort"

	"github.com/awcullen/opcua/ua"
)

// NodeSet is the normalized result of loading one or more nodeset sources.
// It is built once by the loader and read-only afterwards.
type NodeSet struct {
	// Namespaces is the global namespace table; index 0 is the OPC UA namespace.
	Namespaces []string
	Nodes      map[ua.NodeID]*NodeDescriptor
	// Names indexes browse names by the namespace index of their NodeId.
	Names map[uint16]map[string]ua.NodeID

	sorted []*NodeDescriptor
}

// NewNodeSet returns an empty set with the OPC UA namespace registered.
func NewNodeSet() *NodeSet {
	return &NodeSet{
		Namespaces: []string{NamespaceURI},
		Nodes:      make(map[ua.NodeID]*NodeDescriptor),
		Names:      make(map[uint16]map[string]ua.NodeID),
	}
}

// AddNamespace returns the index of uri, registering it when unknown.
func (s *NodeSet) AddNamespace(uri string) uint16 {
	for i, u := range s.Namespaces {
		if u == uri {
			return uint16(i)
		}
	}
	s.Namespaces = append(s.Namespaces, uri)
	return uint16(len(s.Namespaces) - 1)
}

// NamespaceURI returns the uri registered for index ns.
func (s *NodeSet) NamespaceURI(ns uint16) string {
	if int(ns) < len(s.Namespaces) {
		return s.Namespaces[ns]
	}
	return ""
}

// Put stores n, replacing any node with the same NodeId, and invalidates the
// cached order.
func (s *NodeSet) Put(n *NodeDescriptor) {
	if old, ok := s.Nodes[n.NodeID]; ok {
		if names := s.Names[NamespaceOf(old.NodeID)]; names[old.BrowseName.Name] == old.NodeID {
			delete(names, old.BrowseName.Name)
		}
	}
	s.Nodes[n.NodeID] = n
	ns := NamespaceOf(n.NodeID)
	if s.Names[ns] == nil {
		s.Names[ns] = make(map[string]ua.NodeID)
	}
	s.Names[ns][n.BrowseName.Name] = n.NodeID
	s.sorted = nil
}

// Lookup returns the node with the given id.
func (s *NodeSet) Lookup(id ua.NodeID) (*NodeDescriptor, bool) {
	if id == nil {
		return nil, false
	}
	n, ok := s.Nodes[id]
	return n, ok
}

// LookupName resolves a browse name within namespace ns.
func (s *NodeSet) LookupName(ns uint16, name string) (*NodeDescriptor, bool) {
	id, ok := s.Names[ns][name]
	if !ok {
		return nil, false
	}
	return s.Lookup(id)
}

// Sorted returns all nodes ordered by NodeId.
func (s *NodeSet) Sorted() []*NodeDescriptor {
	if s.sorted != nil {
		return s.sorted
	}
	out := make([]*NodeDescriptor, 0, len(s.Nodes))
	for _, n := range s.Nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		return CompareNodeID(out[i].NodeID, out[j].NodeID) < 0
	})
	s.sorted = out
	return out
}

// IsSubtypeOf reports whether sub equals super or derives from it. Cycles end
// the walk after len(Nodes) steps.
func (s *NodeSet) IsSubtypeOf(sub, super ua.NodeID) bool {
	cur := sub
	for i := 0; cur != nil && i <= len(s.Nodes); i++ {
		if cur == super {
			return true
		}
		n, ok := s.Nodes[cur]
		if !ok {
			return false
		}
		cur = n.SuperTypeID
	}
	return false
}
