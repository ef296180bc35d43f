package handlers

import (
	"net/http"

	"kiosk-lottery/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// HandleWebSocket streams draw states to a kiosk display, starting with the current one.
func (h *HTTPHandler) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Infof("websocket upgrade error: %v", err)
		return
	}

	h.hub.AddConnection(conn, &ws.WSMessage{Type: ws.TypeDrawState, Data: h.ctrl.State()})
	defer h.hub.RemoveConnection(conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
