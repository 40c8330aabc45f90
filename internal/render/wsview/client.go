package wsview

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/cartrace/engine/internal/input"
)

const (
	writeWait    = 5 * time.Second
	pingInterval = 2 * time.Second
)

// inMessage is the JSON a viewer sends, e.g.
//
//	{"type": "key", "key": "W", "down": true}
type inMessage struct {
	Type string `json:"type"`
	Key  string `json:"key"`
	Down bool   `json:"down"`
}

// client is one connected viewer. Only writeLoop writes to the connection.
type client struct {
	id   uuid.UUID
	conn *websocket.Conn
	out  chan []byte

	closeCh   chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool

	log *zap.Logger
}

func newClient(id uuid.UUID, conn *websocket.Conn, queue int, log *zap.Logger) *client {
	return &client{
		id:      id,
		conn:    conn,
		out:     make(chan []byte, queue),
		closeCh: make(chan struct{}),
		log:     log.With(zap.String("viewer", id.String())),
	}
}

// send queues msg without blocking. A viewer whose queue is full is too slow
// to keep up and gets disconnected.
func (c *client) send(msg []byte) bool {
	if c.closed.Load() {
		return false
	}
	select {
	case c.out <- msg:
		return true
	default:
		c.log.Warn("viewer output queue full, disconnecting")
		c.close()
		return false
	}
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.closeCh)
		c.conn.Close()
	})
}

// readLoop forwards key messages to keys until the connection ends. It blocks
// while the engine's input queue is full rather than drop a key transition.
func (c *client) readLoop(ctx context.Context, keys KeySink) {
	defer c.close()
	for {
		var msg inMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if !c.closed.Load() {
				c.log.Debug("viewer read ended", zap.Error(err))
			}
			return
		}
		switch msg.Type {
		case "key":
			k, err := input.ParseKey(msg.Key)
			if err != nil {
				c.log.Debug("ignoring key", zap.Error(err))
				continue
			}
			if err := keys.PushKey(ctx, input.Event{Key: k, Down: msg.Down}); err != nil {
				c.log.Debug("key not delivered", zap.Error(err))
				return
			}
		default:
			c.log.Debug("unknown viewer message", zap.String("type", msg.Type))
		}
	}
}

func (c *client) writeLoop() {
	defer c.close()
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()
	for {
		select {
		case msg := <-c.out:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.BinaryMessage, msg); err != nil {
				if !c.closed.Load() {
					c.log.Debug("viewer write failed", zap.Error(err))
				}
				return
			}
		case <-ping.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-c.closeCh:
			return
		}
	}
}
