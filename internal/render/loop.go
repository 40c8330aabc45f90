package render

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cartrace/engine/internal/batch"
)

// Loop pulls frames from a FrameSource at a fixed rate and feeds them to a
// Renderer. It is independent of the simulation tick rate.
type Loop struct {
	src     FrameSource
	r       Renderer
	handles *Handles
	rate    time.Duration

	viewVersion uint64
	viewSet     bool
	batches     []Batch
	missing     map[batch.Key]bool

	log *zap.Logger
}

func NewLoop(src FrameSource, r Renderer, handles *Handles, rate time.Duration, log *zap.Logger) *Loop {
	return &Loop{
		src:     src,
		r:       r,
		handles: handles,
		rate:    rate,
		missing: make(map[batch.Key]bool),
		log:     log,
	}
}

// Run renders until ctx ends or the renderer fails.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.rate)
	defer ticker.Stop()
	l.log.Info("render loop started", zap.Duration("frame", l.rate))
	for {
		select {
		case <-ctx.Done():
			l.log.Info("render loop stopping")
			return nil
		case <-ticker.C:
			if err := l.RenderFrame(); err != nil {
				return err
			}
		}
	}
}

// RenderFrame presents the latest frame once.
func (l *Loop) RenderFrame() error {
	f := l.src.Frame()
	if !l.viewSet || f.CameraVersion != l.viewVersion {
		l.r.SetView(f.View)
		l.viewVersion = f.CameraVersion
		l.viewSet = true
	}

	l.batches = l.batches[:0]
	for _, key := range f.DrawCalls.Keys() {
		mesh, okMesh := l.handles.Meshes[key.Mesh]
		mat, okMat := l.handles.Materials[key.Material]
		if !okMesh || !okMat {
			if !l.missing[key] {
				l.missing[key] = true
				l.log.Warn("batch references an asset that was never uploaded, skipping",
					zap.Int("mesh", int(key.Mesh)),
					zap.Int("material", int(key.Material)),
				)
			}
			continue
		}
		l.batches = append(l.batches, Batch{Mesh: mesh, Material: mat, Instances: f.DrawCalls[key]})
	}
	if err := l.r.Draw(l.handles.Skybox, l.batches); err != nil {
		return fmt.Errorf("draw frame of tick %d: %w", f.Tick, err)
	}
	return nil
}
