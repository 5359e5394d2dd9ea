package model

import (
	"fmt"
	"strings"

	"github.com/awcullen/opcua/ua"
)

// MalformedNodesetError reports input that cannot form a valid node graph,
// such as a reference to an undefined supertype or data type.
type MalformedNodesetError struct {
	Source string
	NodeID ua.NodeID
	Rule   string
	Ref    string
}

func (e *MalformedNodesetError) Error() string {
	var b strings.Builder
	b.WriteString("malformed nodeset")
	if e.Source != "" {
		fmt.Fprintf(&b, " %s", e.Source)
	}
	if e.NodeID != nil {
		fmt.Fprintf(&b, ": node %s", FormatNodeID(e.NodeID))
	}
	fmt.Fprintf(&b, ": %s", e.Rule)
	if e.Ref != "" {
		fmt.Fprintf(&b, " %q", e.Ref)
	}
	return b.String()
}

// DuplicateNodeIDError reports two input nodes sharing one NodeId.
type DuplicateNodeIDError struct {
	NodeID        ua.NodeID
	First, Second string
}

func (e *DuplicateNodeIDError) Error() string {
	return fmt.Sprintf("duplicate node id %s: defined as %s and %s", FormatNodeID(e.NodeID), e.First, e.Second)
}

// CycleDetectedError reports a supertype chain that revisits a node. Path
// starts and ends with the same NodeId.
type CycleDetectedError struct {
	Path []ua.NodeID
}

func (e *CycleDetectedError) Error() string {
	ids := make([]string, len(e.Path))
	for i, id := range e.Path {
		ids[i] = FormatNodeID(id)
	}
	return "supertype cycle detected: " + strings.Join(ids, " -> ")
}

// OverrideTypeConflictError reports a member redeclaration that is not
// compatible with the inherited member it replaces.
type OverrideTypeConflictError struct {
	NodeID     ua.NodeID
	Member     string
	DeclaredBy ua.NodeID
	Inherited  string
	Overriding string
	Rule       string
}

func (e *OverrideTypeConflictError) Error() string {
	return fmt.Sprintf("node %s: member %q overrides %s from %s with %s: %s",
		FormatNodeID(e.NodeID), e.Member, e.Inherited, FormatNodeID(e.DeclaredBy), e.Overriding, e.Rule)
}

// UnemittableNodeError is an internal invariant violation found while
// emitting: a member still points at an unknown type after resolution.
type UnemittableNodeError struct {
	NodeID ua.NodeID
	Member string
	Ref    ua.NodeID
	Reason string
}

func (e *UnemittableNodeError) Error() string {
	msg := fmt.Sprintf("cannot emit node %s", FormatNodeID(e.NodeID))
	if e.Member != "" {
		msg += fmt.Sprintf(" member %q", e.Member)
	}
	if e.Ref != nil {
		msg += fmt.Sprintf(" (ref %s)", FormatNodeID(e.Ref))
	}
	return msg + ": " + e.Reason
}
