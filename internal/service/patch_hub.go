package service

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/raccommode/P-StreamRec/internal/model"
)

// Renderer consumes ordered patch batches. The engine never assumes what
// the other side does with them; the hub below ships them to browser
// clients, tests substitute an in-memory apply.
type Renderer interface {
	Apply(patches []model.Patch)
}

// RendererConn is one connected renderer (WebSocket client).
type RendererConn struct {
	ID   string
	Conn *websocket.Conn
	Send chan []byte

	mu     sync.Mutex
	closed bool
}

// enqueue queues data without blocking. False means the batch was not
// accepted: the client is gone or its buffer is full.
func (c *RendererConn) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

// shutdown closes Send exactly once. The closed flag keeps a broadcast
// that already copied this client from sending on a closed channel.
func (c *RendererConn) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.Send)
}

// patchBatch is the wire envelope for one reconciliation cycle.
type patchBatch struct {
	Type    string        `json:"type"`
	Patches []model.Patch `json:"patches"`
}

// PatchHub fans reconciliation patches out to every connected renderer.
// Writes go through per-client buffered channels; a slow client drops
// batches rather than stalling the cycle (the next full snapshot on
// reconnect repairs it).
type PatchHub struct {
	mu       sync.RWMutex
	clients  map[*RendererConn]struct{}
	upgrader websocket.Upgrader
	log      *zap.Logger
	sendBuf  int

	// snapshot produces the full current card set for a new client.
	snapshot func() []model.Patch
}

// NewPatchHub creates the hub.
func NewPatchHub(readBuf, writeBuf, sendBuf int, log *zap.Logger) *PatchHub {
	if sendBuf <= 0 {
		sendBuf = 64
	}
	return &PatchHub{
		clients: make(map[*RendererConn]struct{}),
		log:     log,
		sendBuf: sendBuf,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  readBuf,
			WriteBufferSize: writeBuf,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// SetSnapshotSource sets the producer of full-state create patches sent
// to a renderer when it connects.
func (h *PatchHub) SetSnapshotSource(fn func() []model.Patch) { h.snapshot = fn }

// Upgrader returns the WebSocket upgrader for HTTP handlers.
func (h *PatchHub) Upgrader() *websocket.Upgrader { return &h.upgrader }

// Register adds a renderer and returns it with a cleanup function. The
// current full snapshot is queued first so incremental batches always
// land on a complete card set.
func (h *PatchHub) Register(id string, conn *websocket.Conn) (*RendererConn, func()) {
	c := &RendererConn{
		ID:   id,
		Conn: conn,
		Send: make(chan []byte, h.sendBuf),
	}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	h.log.Info("renderer connected", zap.String("client_id", id))

	if h.snapshot != nil {
		if raw, ok := encodeBatch("snapshot", h.snapshot()); ok {
			c.enqueue(raw)
		}
	}

	cleanup := func() { h.unregister(c) }
	return c, cleanup
}

func (h *PatchHub) unregister(c *RendererConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	c.shutdown()
	h.log.Info("renderer disconnected", zap.String("client_id", c.ID))
}

// Apply implements Renderer: one reconciliation batch to every client.
func (h *PatchHub) Apply(patches []model.Patch) {
	if len(patches) == 0 {
		return
	}
	raw, ok := encodeBatch("patches", patches)
	if !ok {
		return
	}

	h.mu.RLock()
	// Copy clients so we don't hold the lock while queueing.
	clients := make([]*RendererConn, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if !c.enqueue(raw) {
			h.log.Warn("renderer dropped batch",
				zap.String("client_id", c.ID))
		}
	}
}

// ClientCount returns the number of connected renderers.
func (h *PatchHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func encodeBatch(kind string, patches []model.Patch) ([]byte, bool) {
	raw, err := json.Marshal(patchBatch{Type: kind, Patches: patches})
	if err != nil {
		return nil, false
	}
	return raw, true
}
