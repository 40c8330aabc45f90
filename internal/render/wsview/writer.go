package wsview

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Message opcodes, the first byte of every binary message.
const (
	OpMesh    byte = 1
	OpTexture byte = 2
	OpSkybox  byte = 3
	OpView    byte = 4
	OpFrame   byte = 5
)

// writer builds one binary message. All multi-byte writes are little-endian.
type writer struct {
	buf []byte
}

func newWriter(op byte, size int) *writer {
	w := &writer{buf: make([]byte, 0, size+1)}
	w.writeC(op)
	return w
}

// writeC writes 1 byte.
func (w *writer) writeC(v byte) {
	w.buf = append(w.buf, v)
}

// writeDU writes 4 bytes unsigned.
func (w *writer) writeDU(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

// writeQ writes 8 bytes unsigned.
func (w *writer) writeQ(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

func (w *writer) writeF(v float32) {
	w.writeDU(math.Float32bits(v))
}

// writeMat4 writes 16 floats, column-major.
func (w *writer) writeMat4(m mgl32.Mat4) {
	for _, f := range m {
		w.writeF(f)
	}
}

func (w *writer) writeBytes(b []byte) {
	w.buf = append(w.buf, b...)
}

func (w *writer) bytes() []byte {
	return w.buf
}
