package emitter

import (
	"bufio"
	"bytes"
	"strconv"
	"strings"

	"github.com/awcullen/opcua/ua"
	"github.com/pkg/errors"
)

// GeneratedComment opens every emitted file.
const GeneratedComment = "Code generated by uatypegen. DO NOT EDIT."

const headerPrefix = "+uatype "

// Header is the machine readable metadata at the top of an emitted type
// file. NodeIDs are written with the namespace URI, not the index.
type Header struct {
	Namespace  string
	NodeClass  string
	BrowseName string
	TypeName   string
	NodeID     string
	IsAbstract bool
	SuperType  string
	// Kind is set for DataTypes.
	Kind string
	// DataType, DataTypeNodeID and ValueRank are set for VariableTypes.
	DataType       string
	DataTypeNodeID string
	ValueRank      string
}

// ID parses the NodeID entry.
func (h Header) ID() ua.ExpandedNodeID {
	return ua.ParseExpandedNodeID(h.NodeID)
}

type headerEntry struct {
	key   string
	value *string
}

func (h *Header) entries() []headerEntry {
	return []headerEntry{
		{"namespace", &h.Namespace},
		{"nodeClass", &h.NodeClass},
		{"browseName", &h.BrowseName},
		{"typeName", &h.TypeName},
		{"nodeId", &h.NodeID},
		{"superType", &h.SuperType},
		{"kind", &h.Kind},
		{"dataType", &h.DataType},
		{"dataTypeNodeId", &h.DataTypeNodeID},
		{"valueRank", &h.ValueRank},
	}
}

// lines renders the header without comment markers, in a fixed key order.
func (h Header) lines() []string {
	out := []string{GeneratedComment, ""}
	for _, e := range h.entries() {
		if *e.value == "" {
			continue
		}
		out = append(out, headerPrefix+e.key+"="+*e.value)
		if e.key == "nodeId" {
			out = append(out, headerPrefix+"isAbstract="+strconv.FormatBool(h.IsAbstract))
		}
	}
	return out
}

// ParseHeader reads the header of an emitted file back. Scanning stops at the
// package clause.
func ParseHeader(src []byte) (Header, error) {
	var h Header
	found := false
	index := make(map[string]*string)
	for _, e := range h.entries() {
		index[e.key] = e.value
	}

	sc := bufio.NewScanner(bytes.NewReader(src))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if strings.HasPrefix(line, "package ") {
			break
		}
		if !strings.HasPrefix(line, "//") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "//"))
		if !strings.HasPrefix(line, headerPrefix) {
			continue
		}
		key, value, ok := strings.Cut(strings.TrimPrefix(line, headerPrefix), "=")
		if !ok {
			return h, errors.Errorf("malformed header line %q", line)
		}
		found = true
		if key == "isAbstract" {
			b, err := strconv.ParseBool(value)
			if err != nil {
				return h, errors.Wrapf(err, "header isAbstract")
			}
			h.IsAbstract = b
			continue
		}
		if p, ok := index[key]; ok {
			*p = value
		}
	}
	if err := sc.Err(); err != nil {
		return h, errors.Wrap(err, "reading header")
	}
	if !found {
		return h, errors.New("no uatype header")
	}
	if h.NodeID == "" || h.TypeName == "" {
		return h, errors.New("header lacks nodeId or typeName")
	}
	return h, nil
}
