package asset

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mdouchement/hdr"
	"github.com/mdouchement/hdr/codec/rgbe"
	"github.com/mdouchement/hdr/hdrcolor"
)

// Skybox is a decoded HDR environment image, one RGBA float per channel.
type Skybox struct {
	Pixels [][4]float32
	Width  uint32
	Height uint32
}

const (
	maxSkyboxSide   = 16384
	maxSkyboxPixels = 8192 * 8192
)

var errUnsupportedHDR = errors.New("unsupported hdr layout")

// LoadSkybox decodes a Radiance RGBE (.hdr) image.
func LoadSkybox(path string) (*Skybox, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open skybox %s: %w", path, err)
	}
	defer f.Close()
	sky, err := decodeHDR(f)
	if err != nil {
		return nil, fmt.Errorf("skybox %s: %w", path, err)
	}
	return sky, nil
}

// decodeHDR validates the header before handing the pixels to the rgbe
// codec, which allocates the whole image up front.
func decodeHDR(r io.Reader) (*Skybox, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read hdr: %w", err)
	}
	cfg, err := rgbe.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if cfg.ColorModel != hdrcolor.RGBModel {
		return nil, fmt.Errorf("%w: not 32-bit_rle_rgbe", errUnsupportedHDR)
	}
	w, h := cfg.Width, cfg.Height
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("invalid size %dx%d", w, h)
	}
	// Every scanline costs at least four bytes on disk.
	if w > maxSkyboxSide || h > maxSkyboxSide || w*h > maxSkyboxPixels || h*4 > len(raw) {
		return nil, fmt.Errorf("%w: size %dx%d", errUnsupportedHDR, w, h)
	}

	decoded, err := rgbe.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode pixels: %w", err)
	}
	img, ok := decoded.(hdr.Image)
	if !ok {
		return nil, fmt.Errorf("%w: %T", errUnsupportedHDR, decoded)
	}

	sky := &Skybox{Pixels: make([][4]float32, w*h), Width: uint32(w), Height: uint32(h)}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			cr, cg, cb, _ := img.HDRAt(x, y).HDRRGBA()
			sky.Pixels[y*w+x] = [4]float32{float32(cr), float32(cg), float32(cb), 1}
		}
	}
	return sky, nil
}
