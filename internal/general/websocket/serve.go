package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/23NM1A0530/civic-aid-response-now-26/internal/general/contracts"

	"github.com/gorilla/websocket"
)

const (
	readLimit    = 64 << 10 // 64 KiB
	readDeadline = 60 * time.Second
	pingInterval = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// MessageHandler handles one frame sent by the page. msgType is the frame's "type" field.
type MessageHandler func(ctx context.Context, msgType string, payload []byte) error

// Serve upgrades the request and runs the socket of one page until it closes.
// Every frame is routed to onMessage; a handler error is reported back as an error frame.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, sessionID string, onMessage MessageHandler) {
	ctx := r.Context()

	// upgrade HTTP -> WebSocket
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error(ctx, "websocket_upgrade_failed", "Failed to upgrade to WebSocket", err, nil)
		return
	}

	// register; a newer socket for the same page replaces this one
	c := &pageConn{ws: ws}
	h.register(sessionID, c)
	defer func() {
		h.unregister(sessionID, c)
		_ = ws.Close()
	}()

	h.logger.Info(ctx, "ws_connected", "Page WebSocket connected", nil)

	// read limits and keepalive
	ws.SetReadLimit(readLimit)
	_ = ws.SetReadDeadline(time.Now().Add(readDeadline))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(readDeadline))
	})

	// pinger
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := c.ping(); err != nil {
					// closing unblocks the reader
					_ = ws.Close()
					return
				}
			}
		}
	}()

	// reader loop
	for {
		_, payload, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Error(ctx, "ws_unexpected_close", "Page connection closed unexpectedly", err, nil)
			} else {
				h.logger.Info(ctx, "ws_connection_closed", "Page connection closed", nil)
			}
			return
		}
		_ = ws.SetReadDeadline(time.Now().Add(readDeadline))

		// route by the frame type only; the handler decodes the rest
		var env struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(payload, &env); err != nil || env.Type == "" {
			_ = c.writeJSON(contracts.WSFrame{Type: contracts.FrameError, Data: "bad frame"})
			continue
		}

		if err := onMessage(ctx, env.Type, payload); err != nil {
			h.logger.Error(ctx, "page_ws_message_failed", "Failed to handle page frame", err, map[string]any{"type": env.Type})
			_ = c.writeJSON(contracts.WSFrame{Type: contracts.FrameError, Data: err.Error()})
		}
	}
}
