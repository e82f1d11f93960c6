package api

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"firext-backend/internal/hub"
	"firext-backend/internal/monitor"
	"firext-backend/internal/session"
	"firext-backend/internal/store"
)

const detailWriteWait = 10 * time.Second

// DashboardSocket attaches the client to the dashboard hub.
func (h *Handler) DashboardSocket(c *gin.Context) {
	h.hub.ServeWS(c.Writer, c.Request)
}

// DockSocket opens a detail session for one dock. The session lasts as
// long as the socket; every change of the dock is pushed as a dock frame.
func (h *Handler) DockSocket(c *gin.Context) {
	id := c.Param("id")
	conn, err := hub.Upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Failed to upgrade WebSocket connection: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// The client never sends anything meaningful; a read error means it left.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	err = h.tracker.Watch(ctx, id, func(v session.View) {
		frame := hub.Frame{
			Type:      hub.FrameDock,
			Data:      monitor.NewDockView(v.Dock, h.now(), h.loc),
			Timestamp: time.Now().Unix(),
		}
		conn.SetWriteDeadline(time.Now().Add(detailWriteWait))
		if err := conn.WriteJSON(frame); err != nil {
			log.Printf("Error writing dock %s to client: %v", id, err)
			cancel()
		}
	})

	var message string
	switch {
	case errors.Is(err, session.ErrDockNotFound):
		message = "Dock not found"
	case errors.Is(err, store.ErrRead):
		message = "Failed to load dock data"
	default:
		return
	}
	conn.SetWriteDeadline(time.Now().Add(detailWriteWait))
	conn.WriteJSON(hub.Frame{Type: hub.FrameError, Data: gin.H{"message": message}, Timestamp: time.Now().Unix()})
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, message))
}
