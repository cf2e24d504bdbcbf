package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// ManifestFile is the name of the manifest stored at the sample root.
const ManifestFile = "manifest.yaml"

// Manifest describes how the windows under a sample root were produced.
type Manifest struct {
	Range       int            `yaml:"range"`
	Width       int            `yaml:"width"`
	Classes     int            `yaml:"classes"`
	Channel     int            `yaml:"channel"`
	ClassTable  map[string]int `yaml:"class_table"`
	Databases   []string       `yaml:"databases,omitempty"`
	GeneratedAt time.Time      `yaml:"generated_at"`
}

// AddDatabase records db in the manifest, keeping the list sorted and unique.
func (m *Manifest) AddDatabase(db string) {
	for _, d := range m.Databases {
		if d == db {
			return
		}
	}
	m.Databases = append(m.Databases, db)
	sort.Strings(m.Databases)
}

// WriteManifest writes m to {root}/manifest.yaml
func WriteManifest(root string, m *Manifest) error {
	f, err := os.Create(filepath.Join(root, ManifestFile))
	if err != nil {
		return fmt.Errorf("creating manifest: %w", err)
	}
	defer f.Close()

	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	return enc.Close()
}

// ReadManifest reads {root}/manifest.yaml. A missing file yields an error
// matching fs.ErrNotExist.
func ReadManifest(root string) (*Manifest, error) {
	f, err := os.Open(filepath.Join(root, ManifestFile))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var m Manifest
	if err := yaml.NewDecoder(f).Decode(&m); err != nil {
		return nil, fmt.Errorf("decoding manifest: %w", err)
	}
	return &m, nil
}
