package render

import (
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/cartrace/engine/internal/asset"
	"github.com/cartrace/engine/internal/component"
)

// Stats summarizes what a Headless renderer has been asked to do.
type Stats struct {
	Uploads     int
	UploadBytes int
	Frames      uint64
	ViewChanges uint64
	Batches     int // in the last frame
	Instances   int // in the last frame
}

// Headless accepts uploads and frames without drawing anything and logs a
// stats line every statsEvery frames. It stands in for a window when the
// engine runs on a server or in CI.
type Headless struct {
	next       Handle
	stats      Stats
	view       mgl32.Mat4
	statsEvery uint64
	log        *zap.Logger
}

func NewHeadless(statsEvery int, log *zap.Logger) *Headless {
	if statsEvery < 0 {
		statsEvery = 0
	}
	return &Headless{statsEvery: uint64(statsEvery), view: mgl32.Ident4(), log: log}
}

func (h *Headless) handle(bytes int) Handle {
	h.next++
	h.stats.Uploads++
	h.stats.UploadBytes += bytes
	return h.next
}

func (h *Headless) UploadMesh(id component.MeshID, m *asset.Mesh) (Handle, error) {
	const vertexSize = 11 * 4
	return h.handle(len(m.Vertices)*vertexSize + len(m.Indices)*4 + len(m.Texture.Data)), nil
}

func (h *Headless) UploadTexture(t asset.Texture) (Handle, error) {
	return h.handle(len(t.Data)), nil
}

func (h *Headless) UploadSkybox(s *asset.Skybox) (Handle, error) {
	return h.handle(len(s.Pixels) * 16), nil
}

func (h *Headless) SetView(view mgl32.Mat4) {
	h.view = view
	h.stats.ViewChanges++
}

func (h *Headless) Draw(skybox Handle, batches []Batch) error {
	h.stats.Frames++
	h.stats.Batches = len(batches)
	h.stats.Instances = 0
	for _, b := range batches {
		h.stats.Instances += len(b.Instances)
	}
	if h.statsEvery > 0 && h.stats.Frames%h.statsEvery == 0 {
		eye := h.view.Inv().Col(3)
		h.log.Info("render stats",
			zap.Uint64("frames", h.stats.Frames),
			zap.Uint64("view_changes", h.stats.ViewChanges),
			zap.Int("batches", h.stats.Batches),
			zap.Int("instances", h.stats.Instances),
			zap.Float32s("eye", []float32{eye.X(), eye.Y(), eye.Z()}),
		)
	}
	return nil
}

func (h *Headless) Stats() Stats { return h.stats }

// View returns the last view matrix set.
func (h *Headless) View() mgl32.Mat4 { return h.view }
