package asset

import (
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"io"
)

// Texture is a decoded RGBA8 image ready for upload.
type Texture struct {
	Data   []byte
	Width  uint32
	Height uint32
}

// WhiteTexture is the 1x1 fallback for meshes without an embedded image.
func WhiteTexture() Texture {
	return Texture{Data: []byte{255, 255, 255, 255}, Width: 1, Height: 1}
}

func decodeTexture(r io.Reader) (Texture, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return Texture{}, fmt.Errorf("decode image: %w", err)
	}
	b := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != 4*b.Dx() || b.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}
	if len(rgba.Pix) == 0 {
		return Texture{}, fmt.Errorf("decode image: empty %s image", format)
	}
	return Texture{Data: rgba.Pix, Width: uint32(b.Dx()), Height: uint32(b.Dy())}, nil
}
