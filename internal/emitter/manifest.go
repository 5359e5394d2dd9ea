package emitter

import (
	"encoding/hex"

	"github.com/amine-amaach/uatypegen/internal/model"
	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"
	"gopkg.in/yaml.v3"
)

// ManifestName is the file the manifest is written to.
const ManifestName = "uatypes.manifest.yaml"

const generatorName = "uatypegen"

// Manifest lists the files of one run with their digests.
type Manifest struct {
	Generator  string          `yaml:"generator"`
	Package    string          `yaml:"package"`
	Namespaces []string        `yaml:"namespaces"`
	Files      []ManifestEntry `yaml:"files"`
}

type ManifestEntry struct {
	Name      string `yaml:"name"`
	NodeID    string `yaml:"nodeId,omitempty"`
	TypeName  string `yaml:"typeName,omitempty"`
	NodeClass string `yaml:"nodeClass,omitempty"`
	Digest    string `yaml:"blake2b"`
}

// Digest is the hex BLAKE2b-256 sum of content.
func Digest(content []byte) string {
	sum := blake2b.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// BuildManifest renders the manifest of files, in the order given.
func BuildManifest(pkg string, namespaces []string, files []File) ([]byte, error) {
	m := Manifest{
		Generator:  generatorName,
		Package:    pkg,
		Namespaces: namespaces,
		Files:      make([]ManifestEntry, 0, len(files)),
	}
	for _, f := range files {
		entry := ManifestEntry{Name: f.Name, Digest: Digest(f.Content)}
		if f.NodeID != nil {
			uri := ""
			if ns := model.NamespaceOf(f.NodeID); int(ns) < len(namespaces) {
				uri = namespaces[ns]
			}
			entry.NodeID = model.ExpandedString(uri, f.NodeID)
			entry.TypeName = f.TypeName
			entry.NodeClass = model.ClassName(f.NodeClass)
		}
		m.Files = append(m.Files, entry)
	}
	out, err := yaml.Marshal(&m)
	if err != nil {
		return nil, errors.Wrap(err, "encoding manifest")
	}
	return out, nil
}

// ReadManifest decodes a manifest written by BuildManifest.
func ReadManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(err, "decoding manifest")
	}
	if m.Generator != generatorName {
		return nil, errors.Errorf("manifest was not written by %s", generatorName)
	}
	return &m, nil
}

// Entry returns the entry of the named file.
func (m *Manifest) Entry(name string) (ManifestEntry, bool) {
	for _, e := range m.Files {
		if e.Name == name {
			return e, true
		}
	}
	return ManifestEntry{}, false
}
