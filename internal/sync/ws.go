package sync

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSHandler subscribes a WebSocket client to the hub for the life of the connection.
func WSHandler(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			hub.logger.Debug("ws upgrade failed")
			return
		}

		_ = ws.WriteMessage(websocket.TextMessage, hub.welcome("websocket"))
		hub.AddWS(ws)

		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				break
			}
		}
		hub.RemoveWS(ws)
	}
}

// StatsHandler reports current subscriber counts.
func StatsHandler(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, hub.Stats())
	}
}
