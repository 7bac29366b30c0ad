package api

import (
	"log"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 64 * 1024,
	// The platform in front of this service owns origin policy; the
	// connection arrives already authorized.
	CheckOrigin: func(_ *http.Request) bool { return true },
}

// handleRecordStream upgrades the connection and runs the message loop.
// Each frame is handled independently; all cross-frame state lives in the
// session store and the connection record.
func handleRecordStream(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WS] upgrade failed: %v", err)
		return
	}
	defer ws.Close()

	// gorilla permits one concurrent writer; the live-transcript goroutine
	// and the read loop both send frames.
	var writeMu sync.Mutex
	send := func(v any) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return ws.WriteJSON(v)
	}

	conn := NewConnection(uuid.NewString(), send)
	log.Printf("[WS] connection %s established", conn.ID)

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("[WS] connection %s closed: %v", conn.ID, err)
			} else {
				log.Printf("[WS] connection %s read error: %v", conn.ID, err)
			}
			wsRouter.HandleDisconnect(c.Request.Context(), conn)
			return
		}
		wsRouter.HandleMessage(c.Request.Context(), conn, raw)
	}
}
