package component

// MeshID and MaterialID are stable asset identifiers chosen by whoever loads
// the asset.
type MeshID int

type MaterialID int

// MeshRef points an entity at a loaded mesh.
type MeshRef struct {
	ID MeshID
}

// MaterialRef points an entity at a loaded material.
type MaterialRef struct {
	ID MaterialID
}
