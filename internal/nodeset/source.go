package nodeset

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Format is the encoding of a nodeset source.
type Format string

const (
	FormatXML  Format = "xml"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Source is one nodeset input held in memory.
type Source struct {
	Name   string
	Format Format
	Data   []byte
}

// DetectFormat derives the format from a file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xml":
		return FormatXML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	}
	return "", errors.Errorf("unknown nodeset format for %s", path)
}

// ReadSource reads the file at path into a Source.
func ReadSource(path string) (Source, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return Source{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Source{}, errors.Wrapf(err, "reading nodeset %s", path)
	}
	return Source{Name: path, Format: format, Data: data}, nil
}
