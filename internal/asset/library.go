package asset

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/cartrace/engine/internal/component"
)

var (
	ErrUnknownMesh     = errors.New("unknown mesh")
	ErrUnknownMaterial = errors.New("unknown material")
)

// Loader reads asset payloads from wherever they live.
type Loader interface {
	LoadMesh(path string) (*Mesh, error)
	LoadMaterial(name string) (*Material, error)
	LoadSkybox(path string) (*Skybox, error)
}

// FileLoader resolves relative mesh and skybox paths under MeshDir and
// material names under TextureDir.
type FileLoader struct {
	MeshDir    string
	TextureDir string
}

func (l FileLoader) LoadMesh(path string) (*Mesh, error) {
	return LoadMesh(l.resolve(l.MeshDir, path))
}

func (l FileLoader) LoadMaterial(name string) (*Material, error) {
	return LoadMaterial(l.TextureDir, name)
}

func (l FileLoader) LoadSkybox(path string) (*Skybox, error) {
	return LoadSkybox(l.resolve(l.TextureDir, path))
}

func (l FileLoader) resolve(dir, path string) string {
	if filepath.IsAbs(path) || dir == "" {
		return path
	}
	return filepath.Join(dir, path)
}

// Library owns every loaded mesh and material under its stable id. Entries
// are never freed, so a batch can reference an id for the process lifetime.
// Loading happens before the simulation and render loops start; afterwards
// the library is read-only.
type Library struct {
	loader    Loader
	meshes    map[component.MeshID]*Mesh
	materials map[component.MaterialID]*Material
	skybox    *Skybox
	log       *zap.Logger
}

func NewLibrary(loader Loader, log *zap.Logger) *Library {
	return &Library{
		loader:    loader,
		meshes:    make(map[component.MeshID]*Mesh),
		materials: make(map[component.MaterialID]*Material),
		log:       log,
	}
}

// LoadMesh loads path and stores it under id, replacing any previous mesh.
func (l *Library) LoadMesh(id component.MeshID, path string) error {
	m, err := l.loader.LoadMesh(path)
	if err != nil {
		return fmt.Errorf("load mesh %d: %w", id, err)
	}
	l.meshes[id] = m
	l.log.Info("mesh loaded",
		zap.Int("id", int(id)),
		zap.String("path", path),
		zap.Int("vertices", len(m.Vertices)),
		zap.Int("indices", len(m.Indices)),
	)
	return nil
}

// LoadMaterial loads the named material and stores it under id.
func (l *Library) LoadMaterial(id component.MaterialID, name string) error {
	m, err := l.loader.LoadMaterial(name)
	if err != nil {
		return fmt.Errorf("load material %d: %w", id, err)
	}
	l.materials[id] = m
	l.log.Info("material loaded", zap.Int("id", int(id)), zap.String("name", name))
	return nil
}

func (l *Library) LoadSkybox(path string) error {
	s, err := l.loader.LoadSkybox(path)
	if err != nil {
		return fmt.Errorf("load skybox: %w", err)
	}
	l.skybox = s
	l.log.Info("skybox loaded", zap.String("path", path), zap.Uint32("width", s.Width), zap.Uint32("height", s.Height))
	return nil
}

// LoadManifest loads everything the manifest lists. The first failure
// aborts, naming the offending asset.
func (l *Library) LoadManifest(m *Manifest) error {
	for _, e := range m.Meshes {
		if err := l.LoadMesh(component.MeshID(e.ID), e.Path); err != nil {
			return err
		}
	}
	for _, e := range m.Materials {
		if err := l.LoadMaterial(component.MaterialID(e.ID), e.Name); err != nil {
			return err
		}
	}
	if m.Skybox != "" {
		if err := l.LoadSkybox(m.Skybox); err != nil {
			return err
		}
	}
	return nil
}

func (l *Library) Mesh(id component.MeshID) (*Mesh, error) {
	m, ok := l.meshes[id]
	if !ok {
		return nil, fmt.Errorf("mesh %d: %w", id, ErrUnknownMesh)
	}
	return m, nil
}

func (l *Library) Material(id component.MaterialID) (*Material, error) {
	m, ok := l.materials[id]
	if !ok {
		return nil, fmt.Errorf("material %d: %w", id, ErrUnknownMaterial)
	}
	return m, nil
}

// Skybox returns the loaded skybox, or nil.
func (l *Library) Skybox() *Skybox { return l.skybox }

func (l *Library) HasMesh(id component.MeshID) bool {
	_, ok := l.meshes[id]
	return ok
}

func (l *Library) HasMaterial(id component.MaterialID) bool {
	_, ok := l.materials[id]
	return ok
}

func (l *Library) MeshIDs() []component.MeshID {
	ids := make([]component.MeshID, 0, len(l.meshes))
	for id := range l.meshes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (l *Library) MaterialIDs() []component.MaterialID {
	ids := make([]component.MaterialID, 0, len(l.materials))
	for id := range l.materials {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
