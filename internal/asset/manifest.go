package asset

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Manifest lists the assets to preload, e.g.
//
//	skybox: forest.hdr
//	meshes:
//	  - id: 0
//	    path: Material_Test.glb
//	materials:
//	  - id: 1
//	    name: material_cube
type Manifest struct {
	Skybox    string          `yaml:"skybox"`
	Meshes    []MeshEntry     `yaml:"meshes"`
	Materials []MaterialEntry `yaml:"materials"`
}

type MeshEntry struct {
	ID   int    `yaml:"id"`
	Path string `yaml:"path"`
}

type MaterialEntry struct {
	ID   int    `yaml:"id"`
	Name string `yaml:"name"`
}

// LoadManifest parses a manifest file and rejects duplicate ids.
func LoadManifest(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	meshes := make(map[int]bool, len(m.Meshes))
	for _, e := range m.Meshes {
		if meshes[e.ID] {
			return nil, fmt.Errorf("manifest %s: duplicate mesh id %d", path, e.ID)
		}
		if e.Path == "" {
			return nil, fmt.Errorf("manifest %s: mesh %d has no path", path, e.ID)
		}
		meshes[e.ID] = true
	}
	materials := make(map[int]bool, len(m.Materials))
	for _, e := range m.Materials {
		if materials[e.ID] {
			return nil, fmt.Errorf("manifest %s: duplicate material id %d", path, e.ID)
		}
		if e.Name == "" {
			return nil, fmt.Errorf("manifest %s: material %d has no name", path, e.ID)
		}
		materials[e.ID] = true
	}
	return &m, nil
}

// Count returns the number of assets the manifest names.
func (m *Manifest) Count() int {
	n := len(m.Meshes) + len(m.Materials)
	if m.Skybox != "" {
		n++
	}
	return n
}
