package asset

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// Vertex is the per-vertex layout consumed by the geometry pass.
type Vertex struct {
	Position [3]float32
	Normal   [3]float32
	Color    [3]float32
	UV       [2]float32
}

// Mesh is immutable once loaded and shared by every entity that draws it.
type Mesh struct {
	Vertices []Vertex
	Indices  []uint32
	Texture  Texture
}

var defaultColor = [3]float32{1.0, 0.35, 0.137}

// LoadMesh reads every primitive of a glTF/GLB file into one vertex and
// index list. Z is negated on positions and normals to move from glTF's
// coordinate system into the renderer's.
func LoadMesh(path string) (*Mesh, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open mesh %s: %w", path, err)
	}
	m := &Mesh{}
	for _, gm := range doc.Meshes {
		for _, p := range gm.Primitives {
			if err := m.appendPrimitive(doc, p); err != nil {
				return nil, fmt.Errorf("mesh %s: %s: %w", path, gm.Name, err)
			}
		}
	}
	if len(m.Vertices) == 0 {
		return nil, fmt.Errorf("mesh %s: no geometry", path)
	}
	m.Texture, err = firstImage(doc, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("mesh %s: %w", path, err)
	}
	return m, nil
}

func (m *Mesh) appendPrimitive(doc *gltf.Document, p *gltf.Primitive) error {
	posIdx, ok := p.Attributes[gltf.POSITION]
	if !ok {
		return errors.New("primitive has no POSITION attribute")
	}
	acr, err := accessor(doc, posIdx)
	if err != nil {
		return fmt.Errorf("positions: %w", err)
	}
	positions, err := modeler.ReadPosition(doc, acr, nil)
	if err != nil {
		return fmt.Errorf("read positions: %w", err)
	}

	var normals [][3]float32
	if idx, ok := p.Attributes[gltf.NORMAL]; ok {
		if acr, err = accessor(doc, idx); err != nil {
			return fmt.Errorf("normals: %w", err)
		}
		if normals, err = modeler.ReadNormal(doc, acr, nil); err != nil {
			return fmt.Errorf("read normals: %w", err)
		}
	}
	var colors [][4]uint8
	if idx, ok := p.Attributes[gltf.COLOR_0]; ok {
		if acr, err = accessor(doc, idx); err != nil {
			return fmt.Errorf("colors: %w", err)
		}
		if colors, err = modeler.ReadColor(doc, acr, nil); err != nil {
			return fmt.Errorf("read colors: %w", err)
		}
	}
	var uvs [][2]float32
	if idx, ok := p.Attributes[gltf.TEXCOORD_0]; ok {
		if acr, err = accessor(doc, idx); err != nil {
			return fmt.Errorf("uvs: %w", err)
		}
		if uvs, err = modeler.ReadTextureCoord(doc, acr, nil); err != nil {
			return fmt.Errorf("read uvs: %w", err)
		}
	}

	start := uint32(len(m.Vertices))
	for i, pos := range positions {
		v := Vertex{
			Position: [3]float32{pos[0], pos[1], -pos[2]},
			Normal:   [3]float32{0, 1, 0},
			Color:    defaultColor,
		}
		if i < len(normals) {
			n := normals[i]
			v.Normal = [3]float32{n[0], n[1], -n[2]}
		}
		if i < len(colors) {
			c := colors[i]
			v.Color = [3]float32{float32(c[0]) / 255, float32(c[1]) / 255, float32(c[2]) / 255}
		}
		if i < len(uvs) {
			v.UV = uvs[i]
		}
		m.Vertices = append(m.Vertices, v)
	}

	if p.Indices == nil {
		for i := range positions {
			m.Indices = append(m.Indices, start+uint32(i))
		}
		return nil
	}
	if acr, err = accessor(doc, *p.Indices); err != nil {
		return fmt.Errorf("indices: %w", err)
	}
	indices, err := modeler.ReadIndices(doc, acr, nil)
	if err != nil {
		return fmt.Errorf("read indices: %w", err)
	}
	for _, i := range indices {
		if int(i) >= len(positions) {
			return fmt.Errorf("index %d out of range for %d vertices", i, len(positions))
		}
		m.Indices = append(m.Indices, start+i)
	}
	return nil
}

// accessor looks up an accessor and checks that its elements fit inside
// the referenced buffer view before the modeler reads them.
func accessor(doc *gltf.Document, idx uint32) (*gltf.Accessor, error) {
	if int(idx) >= len(doc.Accessors) {
		return nil, fmt.Errorf("accessor %d out of range for %d accessors", idx, len(doc.Accessors))
	}
	acr := doc.Accessors[idx]
	switch {
	case acr.Sparse != nil:
		return nil, fmt.Errorf("accessor %d: sparse accessors are not supported", idx)
	case acr.BufferView == nil:
		return nil, fmt.Errorf("accessor %d has no buffer view", idx)
	}
	view, err := bufferView(doc, *acr.BufferView)
	if err != nil {
		return nil, fmt.Errorf("accessor %d: %w", idx, err)
	}
	need := uint64(acr.ByteOffset)
	if acr.Count > 0 {
		elem := uint64(gltf.SizeOfElement(acr.ComponentType, acr.Type))
		stride := uint64(doc.BufferViews[*acr.BufferView].ByteStride)
		if stride == 0 {
			stride = elem
		}
		need += stride*uint64(acr.Count-1) + elem
	}
	if need > uint64(len(view)) {
		return nil, fmt.Errorf("accessor %d out of range: needs %d bytes, view has %d", idx, need, len(view))
	}
	return acr, nil
}

// bufferView returns the bytes of a buffer view, or an error when the view
// or its buffer does not exist or the range overflows the buffer.
func bufferView(doc *gltf.Document, idx uint32) ([]byte, error) {
	if int(idx) >= len(doc.BufferViews) {
		return nil, fmt.Errorf("buffer view %d out of range for %d views", idx, len(doc.BufferViews))
	}
	bv := doc.BufferViews[idx]
	if int(bv.Buffer) >= len(doc.Buffers) {
		return nil, fmt.Errorf("buffer view %d: buffer %d out of range for %d buffers", idx, bv.Buffer, len(doc.Buffers))
	}
	data := doc.Buffers[bv.Buffer].Data
	if end := uint64(bv.ByteOffset) + uint64(bv.ByteLength); end > uint64(len(data)) {
		return nil, fmt.Errorf("buffer view %d out of range: [%d:%d] over %d bytes", idx, bv.ByteOffset, end, len(data))
	}
	return data[bv.ByteOffset : bv.ByteOffset+bv.ByteLength], nil
}

// firstImage decodes the document's first image, or returns the white
// fallback when there is none.
func firstImage(doc *gltf.Document, dir string) (Texture, error) {
	if len(doc.Images) == 0 {
		return WhiteTexture(), nil
	}
	img := doc.Images[0]
	var raw []byte
	switch {
	case img.BufferView != nil:
		var err error
		if raw, err = bufferView(doc, *img.BufferView); err != nil {
			return Texture{}, fmt.Errorf("image: %w", err)
		}
	case img.IsEmbeddedResource():
		var err error
		if raw, err = img.MarshalData(); err != nil {
			return Texture{}, fmt.Errorf("embedded image: %w", err)
		}
	default:
		var err error
		if raw, err = os.ReadFile(filepath.Join(dir, img.URI)); err != nil {
			return Texture{}, fmt.Errorf("image %s: %w", img.URI, err)
		}
	}
	tex, err := decodeTexture(bytes.NewReader(raw))
	if err != nil {
		return Texture{}, fmt.Errorf("base texture: %w", err)
	}
	return tex, nil
}
