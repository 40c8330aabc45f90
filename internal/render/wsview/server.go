// Package wsview streams rendered frames to browser viewers over websocket
// and takes their key presses as engine input.
//
// Every server message is binary and starts with an opcode byte:
//
//	OpMesh    u32 handle, u32 mesh id, u32 vertices, u32 indices,
//	          vertices x 11 f32 (position, normal, color, uv), indices x u32,
//	          u32 tex width, u32 tex height, RGBA8 texels
//	OpTexture u32 handle, u32 width, u32 height, RGBA8 texels
//	OpSkybox  u32 handle, u32 width, u32 height, width*height x 4 f32
//	OpView    16 f32 view matrix, column-major
//	OpFrame   u64 frame, u32 skybox handle, u32 batches, then per batch
//	          u32 mesh, u32 albedo, u32 surface, u32 instances,
//	          instances x 128 bytes (model then normal matrix)
//
// Uploads and the latest view are replayed to viewers that connect late.
package wsview

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/cartrace/engine/internal/asset"
	"github.com/cartrace/engine/internal/batch"
	"github.com/cartrace/engine/internal/component"
	"github.com/cartrace/engine/internal/input"
	"github.com/cartrace/engine/internal/render"
)

// KeySink receives key transitions from viewers.
type KeySink interface {
	PushKey(ctx context.Context, ev input.Event) error
}

// Server is a render.Renderer and render.Uploader whose output goes to every
// connected viewer.
type Server struct {
	upgrader websocket.Upgrader
	keys     KeySink
	outSize  int

	mu      sync.Mutex
	ctx     context.Context
	clients map[uuid.UUID]*client
	assets  [][]byte
	view    []byte
	next    render.Handle
	frames  uint64

	log *zap.Logger
}

var (
	_ render.Renderer = (*Server)(nil)
	_ render.Uploader = (*Server)(nil)
)

// New creates a viewer server. outSize is the per-viewer frame queue length.
func New(keys KeySink, outSize int, log *zap.Logger) *Server {
	if outSize <= 0 {
		outSize = 8
	}
	return &Server{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		keys:    keys,
		outSize: outSize,
		ctx:     context.Background(),
		clients: make(map[uuid.UUID]*client),
		log:     log,
	}
}

// Handler serves the websocket endpoint at /ws.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	return mux
}

// Serve listens on addr until ctx ends.
func (s *Server) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("viewer listen %s: %w", addr, err)
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener serves on ln until ctx ends, then disconnects every viewer.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	srv := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	s.log.Info("viewer listening", zap.String("addr", ln.Addr().String()))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		s.closeAll()
		return err
	case err := <-errc:
		s.closeAll()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("viewer upgrade failed", zap.Error(err))
		return
	}
	c, base := s.register(conn)
	defer s.unregister(c)
	go c.writeLoop()

	ctx, cancel := context.WithCancel(base)
	defer cancel()
	go func() {
		select {
		case <-c.closeCh:
			cancel()
		case <-ctx.Done():
		}
	}()
	c.readLoop(ctx, s.keys)
}

// register adds a viewer and queues everything it missed.
func (s *Server) register(conn *websocket.Conn) (*client, context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := newClient(uuid.New(), conn, s.outSize+len(s.assets)+1, s.log)
	for _, msg := range s.assets {
		c.out <- msg
	}
	if s.view != nil {
		c.out <- s.view
	}
	s.clients[c.id] = c
	c.log.Info("viewer connected",
		zap.String("remote", conn.RemoteAddr().String()),
		zap.Int("viewers", len(s.clients)),
	)
	return c, s.ctx
}

func (s *Server) unregister(c *client) {
	c.close()
	s.mu.Lock()
	delete(s.clients, c.id)
	n := len(s.clients)
	s.mu.Unlock()
	c.log.Info("viewer disconnected", zap.Int("viewers", n))
}

func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range s.clients {
		c.close()
		delete(s.clients, id)
	}
}

// Clients returns the number of connected viewers.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Server) broadcastLocked(msg []byte) {
	for id, c := range s.clients {
		if !c.send(msg) {
			delete(s.clients, id)
		}
	}
}

func (s *Server) uploadLocked(msg []byte) {
	s.assets = append(s.assets, msg)
	s.broadcastLocked(msg)
}

func checkTexture(t asset.Texture) error {
	if want := int(t.Width) * int(t.Height) * 4; len(t.Data) != want {
		return fmt.Errorf("texture %dx%d has %d bytes, expected %d", t.Width, t.Height, len(t.Data), want)
	}
	return nil
}

func (s *Server) UploadMesh(id component.MeshID, m *asset.Mesh) (render.Handle, error) {
	if len(m.Vertices) == 0 {
		return 0, fmt.Errorf("mesh %d has no vertices", id)
	}
	if err := checkTexture(m.Texture); err != nil {
		return 0, fmt.Errorf("mesh %d: %w", id, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	h := s.next

	w := newWriter(OpMesh, 16+len(m.Vertices)*44+len(m.Indices)*4+8+len(m.Texture.Data))
	w.writeDU(uint32(h))
	w.writeDU(uint32(id))
	w.writeDU(uint32(len(m.Vertices)))
	w.writeDU(uint32(len(m.Indices)))
	for _, v := range m.Vertices {
		for _, f := range v.Position {
			w.writeF(f)
		}
		for _, f := range v.Normal {
			w.writeF(f)
		}
		for _, f := range v.Color {
			w.writeF(f)
		}
		w.writeF(v.UV[0])
		w.writeF(v.UV[1])
	}
	for _, i := range m.Indices {
		w.writeDU(i)
	}
	w.writeDU(m.Texture.Width)
	w.writeDU(m.Texture.Height)
	w.writeBytes(m.Texture.Data)
	s.uploadLocked(w.bytes())
	return h, nil
}

func (s *Server) UploadTexture(t asset.Texture) (render.Handle, error) {
	if err := checkTexture(t); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	h := s.next

	w := newWriter(OpTexture, 12+len(t.Data))
	w.writeDU(uint32(h))
	w.writeDU(t.Width)
	w.writeDU(t.Height)
	w.writeBytes(t.Data)
	s.uploadLocked(w.bytes())
	return h, nil
}

func (s *Server) UploadSkybox(sky *asset.Skybox) (render.Handle, error) {
	if len(sky.Pixels) != int(sky.Width)*int(sky.Height) {
		return 0, fmt.Errorf("skybox %dx%d has %d pixels", sky.Width, sky.Height, len(sky.Pixels))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	h := s.next

	w := newWriter(OpSkybox, 12+len(sky.Pixels)*16)
	w.writeDU(uint32(h))
	w.writeDU(sky.Width)
	w.writeDU(sky.Height)
	for _, p := range sky.Pixels {
		for _, f := range p {
			w.writeF(f)
		}
	}
	s.uploadLocked(w.bytes())
	return h, nil
}

func (s *Server) SetView(view mgl32.Mat4) {
	w := newWriter(OpView, 64)
	w.writeMat4(view)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view = w.bytes()
	s.broadcastLocked(s.view)
}

// Draw encodes the frame once and queues it for every viewer. A slow viewer
// is dropped; that never fails the frame.
func (s *Server) Draw(skybox render.Handle, batches []render.Batch) error {
	size := 16
	for _, b := range batches {
		size += 16 + len(b.Instances)*batch.InstanceSize
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames++
	if len(s.clients) == 0 {
		return nil
	}
	w := newWriter(OpFrame, size)
	w.writeQ(s.frames)
	w.writeDU(uint32(skybox))
	w.writeDU(uint32(len(batches)))
	for _, b := range batches {
		w.writeDU(uint32(b.Mesh))
		w.writeDU(uint32(b.Material.AlbedoAO))
		w.writeDU(uint32(b.Material.Surface))
		w.writeDU(uint32(len(b.Instances)))
		for _, inst := range b.Instances {
			w.buf = inst.AppendBinary(w.buf)
		}
	}
	s.broadcastLocked(w.bytes())
	return nil
}

// Frames returns the number of frames drawn.
func (s *Server) Frames() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}
