package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/docutrack/docutrack/internal/dashboard"
	"github.com/docutrack/docutrack/internal/log"
	"github.com/docutrack/docutrack/internal/types"
	"github.com/docutrack/docutrack/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

const (
	messageConnected = "connected"
	messageSnapshot  = "snapshot"
	messageToast     = "toast"
)

type snapshotMessage struct {
	Type string         `json:"type"`
	View dashboard.View `json:"view"`
}

type toastMessage struct {
	Type string `json:"type"`
	dashboard.Toast
}

// WebSocket streams the signed-in user's dashboard. Every change to the view
// is pushed as a full snapshot; text frames from the client are decoded as
// dashboard commands and their outcome comes back as a toast.
func (h *Handlers) WebSocket(c *gin.Context) {
	user, err := utils.GetCurrentUser(c)

	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return types.OriginAllowed(h.origins, r.Header.Get("Origin"))
		},
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket upgrade failed", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	session := dashboard.NewSession(h.store, dashboard.WithLocation(h.loc))
	defer session.Close()

	if err := session.Start(ctx, user.ID); err != nil {
		log.Error("Failed to start dashboard session", err, "user_id", user.ID)
		return
	}
	h.live.add(user.ID)
	defer h.live.remove(user.ID)

	conn.SetReadLimit(maxMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		log.Error("Failed to set initial read deadline", err)
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		defer conn.Close()
		defer cancel()
		h.writePump(ctx, conn, session)
	}()

	h.readPump(ctx, conn, session, user)
	cancel()
	<-writerDone

	log.Debug("WebSocket connection closed", "user_id", user.ID)
}

// readPump decodes commands until the connection fails or ctx ends.
func (h *Handlers) readPump(ctx context.Context, conn *websocket.Conn, session *dashboard.Session, user types.UserResponse) {
	for ctx.Err() == nil {
		var cmd dashboard.Command

		if err := conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("WebSocket read failed", "user_id", user.ID, "error", err)
			}
			return
		}

		if toast, ok := dashboard.Execute(ctx, h.actions, user, cmd); ok {
			session.Notify(toast)
		}
	}
}

// writePump is the only writer on conn.
func (h *Handlers) writePump(ctx context.Context, conn *websocket.Conn, session *dashboard.Session) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	write := func(v interface{}) bool {
		if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			return false
		}
		if err := conn.WriteJSON(v); err != nil {
			log.Debug("WebSocket write failed", "error", err)
			return false
		}
		return true
	}

	if !write(gin.H{"type": messageConnected, "message": "WebSocket connection established"}) {
		return
	}
	if !write(snapshotMessage{Type: messageSnapshot, View: session.View()}) {
		return
	}

	for {
		select {
		case <-ctx.Done():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case <-session.Updates():
			if !write(snapshotMessage{Type: messageSnapshot, View: session.View()}) {
				return
			}
		case toast := <-session.Toasts():
			if !write(toastMessage{Type: messageToast, Toast: toast}) {
				return
			}
		case <-ticker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug("WebSocket ping failed", "error", err)
				return
			}
		}
	}
}
