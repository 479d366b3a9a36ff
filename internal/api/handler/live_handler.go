package handler

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinical-meteor/checklist-manifesto/internal/api/metrics"
)

const (
	liveReadLimit    = 64 * 1024
	liveReadDeadline = 90 * time.Second
)

// LiveHub tracks currently attached live-channel sessions. It implements
// ports.SessionCounter for the diagnostics snapshot.
type LiveHub struct {
	mu       sync.Mutex
	sessions map[*websocket.Conn]string
}

func NewLiveHub() *LiveHub {
	return &LiveHub{sessions: make(map[*websocket.Conn]string)}
}

func (h *LiveHub) add(conn *websocket.Conn, username string) {
	h.mu.Lock()
	h.sessions[conn] = username
	n := len(h.sessions)
	h.mu.Unlock()
	metrics.LiveSessions.Set(float64(n))
}

func (h *LiveHub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.sessions, conn)
	n := len(h.sessions)
	h.mu.Unlock()
	metrics.LiveSessions.Set(float64(n))
}

// Count returns the number of attached sessions.
func (h *LiveHub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// LiveHandler serves GET /api/live, the WebSocket channel clients keep open
// to observe their connection state. The route sits behind the auth
// middleware; claims are already in context when Serve runs.
type LiveHandler struct {
	hub      *LiveHub
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

func NewLiveHandler(hub *LiveHub, log zerolog.Logger) *LiveHandler {
	return &LiveHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Cross-origin policy is enforced at the HTTP layer.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log: log,
	}
}

type liveMessage struct {
	Msg      string `json:"msg"`
	Sessions int    `json:"sessions,omitempty"`
}

func (h *LiveHandler) Serve(c echo.Context) error {
	username, _ := c.Get("username").(string)

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already wrote the failure response.
		return nil
	}
	defer conn.Close()

	h.hub.add(conn, username)
	defer h.hub.remove(conn)

	h.log.Debug().Str("username", username).Msg("live session attached")

	if err := conn.WriteJSON(liveMessage{Msg: "connected", Sessions: h.hub.Count()}); err != nil {
		return nil
	}

	conn.SetReadLimit(liveReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(liveReadDeadline))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(liveReadDeadline))
	})

	for {
		var msg liveMessage
		if err := conn.ReadJSON(&msg); err != nil {
			h.log.Debug().Str("username", username).Msg("live session detached")
			return nil
		}
		if msg.Msg == "ping" {
			_ = conn.SetReadDeadline(time.Now().Add(liveReadDeadline))
			if err := conn.WriteJSON(liveMessage{Msg: "pong"}); err != nil {
				return nil
			}
		}
	}
}
