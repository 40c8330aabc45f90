package asset

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/cartrace/engine/internal/component"
)

func writePNG(t *testing.T, path string, c color.RGBA) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, c)
	img.Set(1, 0, c)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestLoadMaterial(t *testing.T) {
	dir := t.TempDir()
	albedo, surface := MaterialPaths(dir, "cube")
	writePNG(t, albedo, color.RGBA{R: 200, G: 100, B: 50, A: 255})
	writePNG(t, surface, color.RGBA{R: 128, G: 128, B: 10, A: 0})

	m, err := LoadMaterial(dir, "cube")
	if err != nil {
		t.Fatal(err)
	}
	if m.AlbedoAO.Width != 2 || m.AlbedoAO.Height != 1 || len(m.AlbedoAO.Data) != 8 {
		t.Fatalf("unexpected albedo texture %dx%d (%d bytes)", m.AlbedoAO.Width, m.AlbedoAO.Height, len(m.AlbedoAO.Data))
	}
	if !bytes.Equal(m.AlbedoAO.Data[:4], []byte{200, 100, 50, 255}) {
		t.Errorf("unexpected albedo pixel %v", m.AlbedoAO.Data[:4])
	}
	if m.Surface.Data[2] != 10 {
		t.Errorf("unexpected surface pixel %v", m.Surface.Data[:4])
	}
}

func TestLoadMaterialNamesMissingFile(t *testing.T) {
	dir := t.TempDir()
	albedo, surface := MaterialPaths(dir, "half")
	writePNG(t, albedo, color.RGBA{A: 255})

	_, err := LoadMaterial(dir, "half")
	if err == nil || !strings.Contains(err.Error(), surface) {
		t.Errorf("expected error naming %s, got %v", surface, err)
	}
}

func TestDecodeHDRFlat(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("#?RADIANCE\nFORMAT=32-bit_rle_rgbe\n\n-Y 1 +X 2\n")
	buf.Write([]byte{128, 64, 0, 129, 255, 255, 255, 0})

	sky, err := decodeHDR(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if sky.Width != 2 || sky.Height != 1 {
		t.Fatalf("expected 2x1, got %dx%d", sky.Width, sky.Height)
	}
	if sky.Pixels[0] != [4]float32{1, 0.5, 0, 1} {
		t.Errorf("unexpected first pixel %v", sky.Pixels[0])
	}
	if sky.Pixels[1] != [4]float32{0, 0, 0, 1} {
		t.Errorf("expected zero exponent to decode as black, got %v", sky.Pixels[1])
	}
}

func TestDecodeHDRRunLength(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("#?RGBE\nFORMAT=32-bit_rle_rgbe\n\n-Y 2 +X 8\n")
	for y := 0; y < 2; y++ {
		buf.Write([]byte{2, 2, 0, 8})
		buf.Write([]byte{128 + 8, 128}) // R run
		buf.Write([]byte{8, 1, 2, 3, 4, 5, 6, 7, 8})
		buf.Write([]byte{128 + 8, 0})   // B run
		buf.Write([]byte{128 + 8, 136}) // E run
	}
	sky, err := decodeHDR(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(sky.Pixels) != 16 {
		t.Fatalf("expected 16 pixels, got %d", len(sky.Pixels))
	}
	for i, p := range sky.Pixels {
		want := [4]float32{128, float32(i%8 + 1), 0, 1}
		if p != want {
			t.Fatalf("pixel %d: expected %v, got %v", i, want, p)
		}
	}
}

func TestDecodeHDRRejectsOtherFormats(t *testing.T) {
	_, err := decodeHDR(strings.NewReader("#?RADIANCE\nFORMAT=32-bit_rle_xyze\n\n-Y 1 +X 1\n"))
	if !errors.Is(err, errUnsupportedHDR) {
		t.Errorf("expected unsupported format error, got %v", err)
	}
	if _, err := decodeHDR(strings.NewReader("P6\n")); err == nil {
		t.Error("expected error for non-hdr input")
	}
}

func TestDecodeHDRRejectsOversizedHeader(t *testing.T) {
	for _, res := range []string{"-Y 2000000000 +X 2000000000", "-Y 100000 +X 100000", "-Y 4096 +X 4096"} {
		hdr := "#?RADIANCE\nFORMAT=32-bit_rle_rgbe\n\n" + res + "\n"
		_, err := decodeHDR(strings.NewReader(hdr + "\x80\x40\x00\x81"))
		if !errors.Is(err, errUnsupportedHDR) {
			t.Errorf("%s: expected unsupported size error, got %v", res, err)
		}
	}
	if _, err := decodeHDR(strings.NewReader("#?RADIANCE\nFORMAT=32-bit_rle_rgbe\n\n-Y 0 +X 4\n")); err == nil {
		t.Error("expected error for empty resolution")
	}
}

func TestLoadMeshTriangle(t *testing.T) {
	var data []byte
	for _, f := range []float32{0, 0, 1, 1, 0, 1, 0, 1, 1} {
		data = binary.LittleEndian.AppendUint32(data, math.Float32bits(f))
	}
	doc := fmt.Sprintf(`{
  "asset": {"version": "2.0"},
  "buffers": [{"byteLength": %d, "uri": "data:application/octet-stream;base64,%s"}],
  "bufferViews": [{"buffer": 0, "byteOffset": 0, "byteLength": %d}],
  "accessors": [{"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3",
                 "min": [0, 0, 1], "max": [1, 1, 1]}],
  "meshes": [{"name": "tri", "primitives": [{"attributes": {"POSITION": 0}}]}]
}`, len(data), base64.StdEncoding.EncodeToString(data), len(data))
	path := filepath.Join(t.TempDir(), "tri.gltf")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := LoadMesh(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Vertices) != 3 {
		t.Fatalf("expected 3 vertices, got %d", len(m.Vertices))
	}
	if m.Vertices[1].Position != [3]float32{1, 0, -1} {
		t.Errorf("expected Z flipped position, got %v", m.Vertices[1].Position)
	}
	if m.Vertices[0].Normal != [3]float32{0, 1, 0} || m.Vertices[0].Color != defaultColor {
		t.Errorf("expected default normal and color, got %+v", m.Vertices[0])
	}
	if len(m.Indices) != 3 || m.Indices[2] != 2 {
		t.Errorf("expected sequential indices, got %v", m.Indices)
	}
	if m.Texture.Width != 1 || !bytes.Equal(m.Texture.Data, []byte{255, 255, 255, 255}) {
		t.Errorf("expected 1x1 white fallback texture, got %+v", m.Texture)
	}
}

func TestLoadMeshMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Cart.glb")
	_, err := LoadMesh(path)
	if err == nil || !strings.Contains(err.Error(), path) {
		t.Errorf("expected error naming %s, got %v", path, err)
	}
}

// gltfFixture packs byte chunks into one embedded buffer, one view each,
// and writes the resulting document to disk.
type gltfFixture struct {
	data      []byte
	views     []map[string]any
	accessors []map[string]any
	images    []map[string]any
	meshes    []map[string]any
}

func (g *gltfFixture) view(chunk []byte) int {
	for len(g.data)%4 != 0 {
		g.data = append(g.data, 0)
	}
	g.views = append(g.views, map[string]any{"buffer": 0, "byteOffset": len(g.data), "byteLength": len(chunk)})
	g.data = append(g.data, chunk...)
	return len(g.views) - 1
}

func (g *gltfFixture) accessor(chunk []byte, componentType, count int, typ string) int {
	g.accessors = append(g.accessors, map[string]any{
		"bufferView": g.view(chunk), "componentType": componentType, "count": count, "type": typ,
	})
	return len(g.accessors) - 1
}

func (g *gltfFixture) write(t *testing.T) string {
	t.Helper()
	doc := map[string]any{
		"asset": map[string]any{"version": "2.0"},
		"buffers": []map[string]any{{
			"byteLength": len(g.data),
			"uri":        "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(g.data),
		}},
		"bufferViews": g.views,
		"accessors":   g.accessors,
		"meshes":      g.meshes,
	}
	if len(g.images) > 0 {
		doc["images"] = g.images
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "fixture.gltf")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func float32Bytes(vals ...float32) []byte {
	var b []byte
	for _, v := range vals {
		b = binary.LittleEndian.AppendUint32(b, math.Float32bits(v))
	}
	return b
}

func uint16Bytes(vals ...uint16) []byte {
	var b []byte
	for _, v := range vals {
		b = binary.LittleEndian.AppendUint16(b, v)
	}
	return b
}

func triangle() []byte {
	return float32Bytes(0, 0, 1, 1, 0, 1, 0, 1, 1)
}

func TestLoadMeshIndexedPrimitivesWithAttributes(t *testing.T) {
	var encoded bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.RGBA{R: 200, G: 100, B: 50, A: 255})
	img.Set(1, 0, color.RGBA{R: 200, G: 100, B: 50, A: 255})
	if err := png.Encode(&encoded, img); err != nil {
		t.Fatal(err)
	}

	g := &gltfFixture{}
	pos := g.accessor(triangle(), 5126, 3, "VEC3")
	nrm := g.accessor(float32Bytes(0, 0, 1, 0, 0, 1, 0, 0, 1), 5126, 3, "VEC3")
	col := g.accessor([]byte{255, 0, 0, 255, 0, 255, 0, 255, 0, 0, 255, 255}, 5121, 3, "VEC4")
	uv := g.accessor(float32Bytes(0, 0, 1, 0, 0.5, 1), 5126, 3, "VEC2")
	idx := g.accessor(uint16Bytes(2, 1, 0), 5123, 3, "SCALAR")
	pos2 := g.accessor(float32Bytes(5, 0, 2, 6, 0, 2, 5, 1, 2), 5126, 3, "VEC3")
	idx2 := g.accessor(uint16Bytes(0, 2, 1), 5123, 3, "SCALAR")
	g.images = []map[string]any{{"bufferView": g.view(encoded.Bytes()), "mimeType": "image/png"}}
	g.meshes = []map[string]any{{
		"name": "cart",
		"primitives": []map[string]any{
			{"attributes": map[string]int{"POSITION": pos, "NORMAL": nrm, "COLOR_0": col, "TEXCOORD_0": uv}, "indices": idx},
			{"attributes": map[string]int{"POSITION": pos2}, "indices": idx2},
		},
	}}

	m, err := LoadMesh(g.write(t))
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Vertices) != 6 {
		t.Fatalf("expected 6 vertices, got %d", len(m.Vertices))
	}
	wantIndices := []uint32{2, 1, 0, 3, 5, 4}
	if len(m.Indices) != len(wantIndices) {
		t.Fatalf("expected indices %v, got %v", wantIndices, m.Indices)
	}
	for i, want := range wantIndices {
		if m.Indices[i] != want {
			t.Fatalf("expected indices %v, got %v", wantIndices, m.Indices)
		}
	}
	if m.Vertices[0].Normal != [3]float32{0, 0, -1} {
		t.Errorf("expected Z flipped normal, got %v", m.Vertices[0].Normal)
	}
	if m.Vertices[1].Color != [3]float32{0, 1, 0} {
		t.Errorf("expected vertex color from COLOR_0, got %v", m.Vertices[1].Color)
	}
	if m.Vertices[2].UV != [2]float32{0.5, 1} {
		t.Errorf("expected uv from TEXCOORD_0, got %v", m.Vertices[2].UV)
	}
	if m.Vertices[4].Position != [3]float32{6, 0, -2} || m.Vertices[4].Color != defaultColor {
		t.Errorf("unexpected second primitive vertex %+v", m.Vertices[4])
	}
	if m.Texture.Width != 2 || m.Texture.Height != 1 || !bytes.Equal(m.Texture.Data[:4], []byte{200, 100, 50, 255}) {
		t.Errorf("expected 2x1 embedded texture, got %dx%d %v", m.Texture.Width, m.Texture.Height, m.Texture.Data)
	}
}

func TestLoadMeshRejectsOutOfRangeIndex(t *testing.T) {
	g := &gltfFixture{}
	pos := g.accessor(triangle(), 5126, 3, "VEC3")
	idx := g.accessor(uint16Bytes(0, 1, 3), 5123, 3, "SCALAR")
	g.meshes = []map[string]any{{"name": "bad", "primitives": []map[string]any{
		{"attributes": map[string]int{"POSITION": pos}, "indices": idx},
	}}}
	path := g.write(t)
	_, err := LoadMesh(path)
	if err == nil || !strings.Contains(err.Error(), path) || !strings.Contains(err.Error(), "index 3 out of range") {
		t.Errorf("expected out of range index error naming %s, got %v", path, err)
	}
}

func TestLoadMeshMalformedReferences(t *testing.T) {
	cases := map[string]func(g *gltfFixture){
		"missing accessor": func(g *gltfFixture) {
			g.accessor(triangle(), 5126, 3, "VEC3")
			g.meshes = []map[string]any{{"primitives": []map[string]any{{"attributes": map[string]int{"POSITION": 5}}}}}
		},
		"missing index accessor": func(g *gltfFixture) {
			pos := g.accessor(triangle(), 5126, 3, "VEC3")
			g.meshes = []map[string]any{{"primitives": []map[string]any{{"attributes": map[string]int{"POSITION": pos}, "indices": 9}}}}
		},
		"accessor past view": func(g *gltfFixture) {
			pos := g.accessor(triangle(), 5126, 4, "VEC3")
			g.meshes = []map[string]any{{"primitives": []map[string]any{{"attributes": map[string]int{"POSITION": pos}}}}}
		},
		"accessor offset past view": func(g *gltfFixture) {
			pos := g.accessor(triangle(), 5126, 0, "VEC3")
			g.accessors[pos]["byteOffset"] = 400
			g.meshes = []map[string]any{{"primitives": []map[string]any{{"attributes": map[string]int{"POSITION": pos}}}}}
		},
		"missing buffer view": func(g *gltfFixture) {
			pos := g.accessor(triangle(), 5126, 3, "VEC3")
			g.accessors[pos]["bufferView"] = 7
			g.meshes = []map[string]any{{"primitives": []map[string]any{{"attributes": map[string]int{"POSITION": pos}}}}}
		},
		"image view past buffer": func(g *gltfFixture) {
			pos := g.accessor(triangle(), 5126, 3, "VEC3")
			g.meshes = []map[string]any{{"primitives": []map[string]any{{"attributes": map[string]int{"POSITION": pos}}}}}
			g.views = append(g.views, map[string]any{"buffer": 0, "byteOffset": 30, "byteLength": 500})
			g.images = []map[string]any{{"bufferView": len(g.views) - 1, "mimeType": "image/png"}}
		},
		"image view on missing buffer": func(g *gltfFixture) {
			pos := g.accessor(triangle(), 5126, 3, "VEC3")
			g.meshes = []map[string]any{{"primitives": []map[string]any{{"attributes": map[string]int{"POSITION": pos}}}}}
			g.views = append(g.views, map[string]any{"buffer": 3, "byteLength": 4})
			g.images = []map[string]any{{"bufferView": len(g.views) - 1, "mimeType": "image/png"}}
		},
	}
	for name, build := range cases {
		t.Run(name, func(t *testing.T) {
			g := &gltfFixture{}
			build(g)
			path := g.write(t)
			_, err := LoadMesh(path)
			if err == nil || !strings.Contains(err.Error(), path) || !strings.Contains(err.Error(), "out of range") {
				t.Errorf("expected out of range error naming %s, got %v", path, err)
			}
		})
	}
}

type fakeLoader struct {
	fail string
}

func (f fakeLoader) LoadMesh(path string) (*Mesh, error) {
	if path == f.fail {
		return nil, fmt.Errorf("open mesh %s: %w", path, os.ErrNotExist)
	}
	return &Mesh{Vertices: make([]Vertex, 3), Indices: []uint32{0, 1, 2}, Texture: WhiteTexture()}, nil
}

func (f fakeLoader) LoadMaterial(name string) (*Material, error) {
	if name == f.fail {
		return nil, fmt.Errorf("material %s: %w", name, os.ErrNotExist)
	}
	return &Material{Name: name, AlbedoAO: WhiteTexture(), Surface: WhiteTexture()}, nil
}

func (f fakeLoader) LoadSkybox(path string) (*Skybox, error) {
	return &Skybox{Pixels: make([][4]float32, 1), Width: 1, Height: 1}, nil
}

func TestLibraryManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.yaml")
	body := `
skybox: forest.hdr
meshes:
  - id: 0
    path: Material_Test.glb
  - id: 3
    path: Cart.glb
materials:
  - id: 0
    name: default
  - id: 1
    name: material_cube
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := LoadManifest(path)
	if err != nil {
		t.Fatal(err)
	}
	if m.Count() != 5 {
		t.Errorf("expected 5 assets, got %d", m.Count())
	}

	lib := NewLibrary(fakeLoader{}, zap.NewNop())
	if err := lib.LoadManifest(m); err != nil {
		t.Fatal(err)
	}
	if ids := lib.MeshIDs(); len(ids) != 2 || ids[1] != 3 {
		t.Errorf("unexpected mesh ids %v", ids)
	}
	if !lib.HasMaterial(1) || lib.HasMaterial(2) {
		t.Error("unexpected material set")
	}
	if _, err := lib.Mesh(7); !errors.Is(err, ErrUnknownMesh) {
		t.Errorf("expected ErrUnknownMesh, got %v", err)
	}
	if _, err := lib.Material(component.MaterialID(9)); !errors.Is(err, ErrUnknownMaterial) {
		t.Errorf("expected ErrUnknownMaterial, got %v", err)
	}
	if lib.Skybox() == nil {
		t.Error("skybox not loaded")
	}

	broken := NewLibrary(fakeLoader{fail: "Cart.glb"}, zap.NewNop())
	err = broken.LoadManifest(m)
	if err == nil || !strings.Contains(err.Error(), "Cart.glb") || !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected failure naming Cart.glb, got %v", err)
	}
}

func TestManifestRejectsDuplicates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.yaml")
	body := "meshes:\n  - id: 1\n    path: a.glb\n  - id: 1\n    path: b.glb\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadManifest(path); err == nil || !strings.Contains(err.Error(), "duplicate mesh id 1") {
		t.Errorf("expected duplicate id error, got %v", err)
	}
}
