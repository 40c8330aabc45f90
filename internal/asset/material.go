package asset

import (
	"fmt"
	"os"
	"path/filepath"
)

// Material pairs an albedo+AO texture (RGB albedo, A occlusion) with a
// surface texture (RG normal, B roughness, A metallic).
type Material struct {
	Name     string
	AlbedoAO Texture
	Surface  Texture
}

// MaterialPaths returns the two texture files a material name resolves to.
func MaterialPaths(dir, name string) (albedoAO, surface string) {
	return filepath.Join(dir, name+"_albedo_ao.png"), filepath.Join(dir, name+"_material.png")
}

// LoadMaterial reads {name}_albedo_ao.png and {name}_material.png from dir.
func LoadMaterial(dir, name string) (*Material, error) {
	albedoPath, surfacePath := MaterialPaths(dir, name)
	albedo, err := loadTextureFile(albedoPath)
	if err != nil {
		return nil, fmt.Errorf("material %s: %w", name, err)
	}
	surface, err := loadTextureFile(surfacePath)
	if err != nil {
		return nil, fmt.Errorf("material %s: %w", name, err)
	}
	return &Material{Name: name, AlbedoAO: albedo, Surface: surface}, nil
}

func loadTextureFile(path string) (Texture, error) {
	f, err := os.Open(path)
	if err != nil {
		return Texture{}, fmt.Errorf("open texture %s: %w", path, err)
	}
	defer f.Close()
	tex, err := decodeTexture(f)
	if err != nil {
		return Texture{}, fmt.Errorf("texture %s: %w", path, err)
	}
	return tex, nil
}
