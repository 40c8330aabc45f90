// Package render drives a renderer from engine frames. The renderer itself
// sits behind two small interfaces so the loop runs the same against a real
// GPU backend, the websocket viewer or the headless stats sink.
package render

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/cartrace/engine/internal/asset"
	"github.com/cartrace/engine/internal/batch"
	"github.com/cartrace/engine/internal/component"
	"github.com/cartrace/engine/internal/engine"
)

// Handle is an opaque renderer-side resource id.
type Handle uint32

type MaterialHandle struct {
	AlbedoAO Handle
	Surface  Handle
}

// Batch is one instanced draw.
type Batch struct {
	Mesh      Handle
	Material  MaterialHandle
	Instances []batch.DrawInstance
}

// Uploader turns loaded assets into renderer handles. It is only used before
// the render loop starts.
type Uploader interface {
	UploadMesh(id component.MeshID, m *asset.Mesh) (Handle, error)
	UploadTexture(t asset.Texture) (Handle, error)
	UploadSkybox(s *asset.Skybox) (Handle, error)
}

// Renderer presents frames. SetView is called only when the camera moved.
type Renderer interface {
	SetView(view mgl32.Mat4)
	Draw(skybox Handle, batches []Batch) error
}

// FrameSource hands out the latest complete frame.
type FrameSource interface {
	Frame() *engine.Frame
}

// Handles maps library ids to uploaded resources.
type Handles struct {
	Meshes    map[component.MeshID]Handle
	Materials map[component.MaterialID]MaterialHandle
	Skybox    Handle
}

// Preload uploads every mesh, material and the skybox in lib.
func Preload(lib *asset.Library, up Uploader) (*Handles, error) {
	h := &Handles{
		Meshes:    make(map[component.MeshID]Handle),
		Materials: make(map[component.MaterialID]MaterialHandle),
	}
	for _, id := range lib.MeshIDs() {
		m, err := lib.Mesh(id)
		if err != nil {
			return nil, err
		}
		handle, err := up.UploadMesh(id, m)
		if err != nil {
			return nil, fmt.Errorf("upload mesh %d: %w", id, err)
		}
		h.Meshes[id] = handle
	}
	for _, id := range lib.MaterialIDs() {
		m, err := lib.Material(id)
		if err != nil {
			return nil, err
		}
		albedo, err := up.UploadTexture(m.AlbedoAO)
		if err != nil {
			return nil, fmt.Errorf("upload material %d (%s) albedo: %w", id, m.Name, err)
		}
		surface, err := up.UploadTexture(m.Surface)
		if err != nil {
			return nil, fmt.Errorf("upload material %d (%s) surface: %w", id, m.Name, err)
		}
		h.Materials[id] = MaterialHandle{AlbedoAO: albedo, Surface: surface}
	}
	if sky := lib.Skybox(); sky != nil {
		handle, err := up.UploadSkybox(sky)
		if err != nil {
			return nil, fmt.Errorf("upload skybox: %w", err)
		}
		h.Skybox = handle
	}
	return h, nil
}
