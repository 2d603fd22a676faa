package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development
	},
}

// HandleWebSocket upgrades the connection and streams bus events to it.
func HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Failed to upgrade connection: %v", err)
		return
	}

	env.WS.Register() <- conn

	// Drain the read side so close frames are processed; unregister once
	// the client goes away.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				env.WS.Unregister() <- conn
				return
			}
		}
	}()
}
