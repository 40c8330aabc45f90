// Package batch compiles the world into per-(mesh, material) instance lists
// ready for instanced drawing.
package batch

import (
	"encoding/binary"
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/cartrace/engine/internal/component"
	"github.com/cartrace/engine/internal/core/ecs"
	"github.com/cartrace/engine/internal/world"
)

// InstanceSize is the byte size of one encoded DrawInstance: two column-major
// 4x4 float32 matrices, no padding.
const InstanceSize = 2 * 16 * 4

// DrawInstance is the per-instance payload of an instanced draw.
type DrawInstance struct {
	Model  mgl32.Mat4
	Normal mgl32.Mat4
}

// AppendBinary appends the little-endian wire form of d to b.
func (d DrawInstance) AppendBinary(b []byte) []byte {
	for _, f := range d.Model {
		b = binary.LittleEndian.AppendUint32(b, math.Float32bits(f))
	}
	for _, f := range d.Normal {
		b = binary.LittleEndian.AppendUint32(b, math.Float32bits(f))
	}
	return b
}

// Key identifies one batch.
type Key struct {
	Mesh     component.MeshID
	Material component.MaterialID
}

// DrawCalls maps every batch key to its instances.
type DrawCalls map[Key][]DrawInstance

// Compile walks every entity that has a Transform, a mesh and a material,
// refreshes stale matrices, and groups the instances by key. dst is reused
// when non-nil; its slices are truncated and keys left empty are removed, so
// the result holds exactly the keys present in the world.
func Compile(w *world.World, dst DrawCalls) DrawCalls {
	if dst == nil {
		dst = make(DrawCalls)
	}
	for k, v := range dst {
		dst[k] = v[:0]
	}
	ecs.Each3(w.Transforms, w.Meshes, w.Materials, func(_ ecs.Entity, tr *component.Transform, mesh *component.MeshRef, mat *component.MaterialRef) {
		tr.UpdateMatrices()
		model, normal := tr.Matrices()
		key := Key{Mesh: mesh.ID, Material: mat.ID}
		dst[key] = append(dst[key], DrawInstance{Model: model, Normal: normal})
	})
	for k, v := range dst {
		if len(v) == 0 {
			delete(dst, k)
		}
	}
	return dst
}

// Clone deep-copies d so the copy shares no backing arrays with it.
func (d DrawCalls) Clone() DrawCalls {
	out := make(DrawCalls, len(d))
	for k, v := range d {
		out[k] = append([]DrawInstance(nil), v...)
	}
	return out
}

// Instances returns the total instance count over all batches.
func (d DrawCalls) Instances() int {
	n := 0
	for _, v := range d {
		n += len(v)
	}
	return n
}

// Keys returns the batch keys ordered by mesh, then material.
func (d DrawCalls) Keys() []Key {
	keys := make([]Key, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Mesh != keys[j].Mesh {
			return keys[i].Mesh < keys[j].Mesh
		}
		return keys[i].Material < keys[j].Material
	})
	return keys
}
