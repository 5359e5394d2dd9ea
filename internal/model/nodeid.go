package model

import (
	"bytes"
	"strings"

	"github.com/awcullen/opcua/ua"
)

// NamespaceURI is the namespace of the OPC UA standard nodes.
const NamespaceURI = "http://opcfoundation.org/UA/"

// NamespaceOf returns the namespace index of id.
func NamespaceOf(id ua.NodeID) uint16 {
	switch n := id.(type) {
	case ua.NodeIDNumeric:
		return n.NamespaceIndex
	case ua.NodeIDString:
		return n.NamespaceIndex
	case ua.NodeIDGUID:
		return n.NamespaceIndex
	case ua.NodeIDOpaque:
		return n.NamespaceIndex
	}
	return 0
}

// FormatNodeID returns the canonical string form of id, "" for nil.
func FormatNodeID(id ua.NodeID) string {
	switch n := id.(type) {
	case ua.NodeIDNumeric:
		return n.String()
	case ua.NodeIDString:
		return n.String()
	case ua.NodeIDGUID:
		return n.String()
	case ua.NodeIDOpaque:
		return n.String()
	}
	return ""
}

func idKind(id ua.NodeID) int {
	switch id.(type) {
	case ua.NodeIDNumeric:
		return 0
	case ua.NodeIDString:
		return 1
	case ua.NodeIDGUID:
		return 2
	case ua.NodeIDOpaque:
		return 3
	}
	return 4
}

// CompareNodeID orders ids by namespace, identifier type, then identifier.
func CompareNodeID(a, b ua.NodeID) int {
	if na, nb := NamespaceOf(a), NamespaceOf(b); na != nb {
		if na < nb {
			return -1
		}
		return 1
	}
	if ka, kb := idKind(a), idKind(b); ka != kb {
		if ka < kb {
			return -1
		}
		return 1
	}
	switch x := a.(type) {
	case ua.NodeIDNumeric:
		y := b.(ua.NodeIDNumeric)
		switch {
		case x.ID < y.ID:
			return -1
		case x.ID > y.ID:
			return 1
		}
		return 0
	case ua.NodeIDString:
		return strings.Compare(x.ID, b.(ua.NodeIDString).ID)
	case ua.NodeIDGUID:
		y := b.(ua.NodeIDGUID)
		return bytes.Compare(x.ID[:], y.ID[:])
	case ua.NodeIDOpaque:
		return strings.Compare(string(x.ID), string(b.(ua.NodeIDOpaque).ID))
	}
	return 0
}

// WithNamespace returns id moved to namespace ns.
func WithNamespace(id ua.NodeID, ns uint16) ua.NodeID {
	switch n := id.(type) {
	case ua.NodeIDNumeric:
		n.NamespaceIndex = ns
		return n
	case ua.NodeIDString:
		n.NamespaceIndex = ns
		return n
	case ua.NodeIDGUID:
		n.NamespaceIndex = ns
		return n
	case ua.NodeIDOpaque:
		n.NamespaceIndex = ns
		return n
	}
	return id
}

// ExpandedString renders id with its namespace URI instead of the index, as
// in nsu=http://example.org/;i=100. Ids of namespace 0 keep the short form.
func ExpandedString(uri string, id ua.NodeID) string {
	if NamespaceOf(id) == 0 || uri == "" {
		return FormatNodeID(id)
	}
	return "nsu=" + uri + ";" + FormatNodeID(WithNamespace(id, 0))
}
