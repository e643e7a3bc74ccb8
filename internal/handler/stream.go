package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/optimal-sites/planner/internal/mapview"
	"github.com/optimal-sites/planner/internal/search"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// MapMessage is pushed to map stream clients. The first message of a stream
// carries the full scene, later ones only the changed markers.
type MapMessage struct {
	Type  string         `json:"type"`
	Phase string         `json:"phase"`
	Scene *mapview.Scene `json:"scene,omitempty"`
	Patch *mapview.Patch `json:"patch,omitempty"`
}

// StreamMap upgrades to a WebSocket and pushes marker changes on every
// search state change.
func (h *Handler) StreamMap(c *gin.Context) {
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	updates, unsubscribe, err := h.ctl.Subscribe(ctx)
	if err != nil {
		h.unavailable(c, err)
		return
	}
	defer unsubscribe()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("Failed to upgrade map stream", zap.Error(err))
		return
	}
	defer conn.Close()

	// Reading is only needed to notice the client going away.
	go func() {
		defer cancel()
		conn.SetReadLimit(maxMessageSize)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	view := mapview.NewView(h.viewport)
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	h.logger.Debug("Map stream opened", zap.String("remote", c.Request.RemoteAddr))
	first := true
	lastPhase := search.Phase("")

	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-updates:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "session stopped"),
					time.Now().Add(writeWait))
				return
			}

			phase := snap.State.Phase()
			patch := view.Render(search.Locations(snap.State))

			var msg MapMessage
			switch {
			case first:
				scene := view.Scene()
				msg = MapMessage{Type: "scene", Phase: string(phase), Scene: &scene}
				first = false
			case !patch.Empty() || phase != lastPhase:
				msg = MapMessage{Type: "patch", Phase: string(phase), Patch: &patch}
			default:
				continue
			}
			lastPhase = phase

			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Debug("Map stream write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
