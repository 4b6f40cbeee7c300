package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/raccommode/P-StreamRec/internal/service"
)

// PatchWSHandler handles renderer WebSocket connections on /ws/dashboard.
type PatchWSHandler struct {
	hub    *service.PatchHub
	logger *zap.Logger
}

// NewPatchWSHandler creates the patch stream handler.
func NewPatchWSHandler(hub *service.PatchHub, logger *zap.Logger) *PatchWSHandler {
	return &PatchWSHandler{hub: hub, logger: logger}
}

// ServeWS upgrades the request and streams patch batches until the
// renderer goes away. Renderers do not send anything meaningful back;
// the read loop only watches for close.
func (h *PatchWSHandler) ServeWS(c *gin.Context) {
	conn, err := h.hub.Upgrader().Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	client, cleanup := h.hub.Register(uuid.NewString(), conn)
	defer cleanup()

	go h.writePump(client)
	h.readPump(client)
}

func (h *PatchWSHandler) readPump(c *service.RendererConn) {
	defer func() {
		_ = c.Conn.Close()
	}()
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Debug("read error", zap.Error(err))
			}
			break
		}
	}
}

func (h *PatchWSHandler) writePump(c *service.RendererConn) {
	defer func() {
		_ = c.Conn.Close()
	}()
	for data := range c.Send {
		if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
			break
		}
	}
}
