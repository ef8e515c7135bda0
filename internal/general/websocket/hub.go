package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/23NM1A0530/civic-aid-response-now-26/internal/general/logger"
	"github.com/23NM1A0530/civic-aid-response-now-26/internal/ports"

	"github.com/gorilla/websocket"
)

const (
	wsWriteTimeout   = 5 * time.Second
	wsCloseAckWindow = 2 * time.Second
	ctrlTimeout      = 5 * time.Second
)

var ErrNotConnected = errors.New("websocket: page not connected")

// pageConn is one page socket with its own writer lock.
type pageConn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
}

// writeJSON marshals v and writes a single TextMessage.
func (c *pageConn) writeJSON(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return c.ws.WriteMessage(websocket.TextMessage, payload)
}

func (c *pageConn) ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(ctrlTimeout))
}

// writeClose sends a close control frame with the given code and reason.
func (c *pageConn) writeClose(code int, reason string) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(wsCloseAckWindow))
}

// Hub stores the live socket of every connected page, keyed by session ID.
type Hub struct {
	mu     sync.RWMutex
	conns  map[string]*pageConn
	logger *logger.Logger
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{conns: make(map[string]*pageConn), logger: log}
}

// register installs c for sessionID. A previous socket of the same page is closed.
func (h *Hub) register(sessionID string, c *pageConn) {
	h.mu.Lock()
	old := h.conns[sessionID]
	h.conns[sessionID] = c
	h.mu.Unlock()

	if old != nil {
		old.writeClose(websocket.ClosePolicyViolation, "replaced by a newer connection")
		_ = old.ws.Close()
	}
}

// unregister removes c only if it is still the registered socket.
func (h *Hub) unregister(sessionID string, c *pageConn) {
	h.mu.Lock()
	if h.conns[sessionID] == c {
		delete(h.conns, sessionID)
	}
	h.mu.Unlock()
}

// Send transmits a JSON frame to a connected page.
func (h *Hub) Send(sessionID string, msg any) error {
	h.mu.RLock()
	c, ok := h.conns[sessionID]
	h.mu.RUnlock()
	if !ok {
		return ErrNotConnected
	}
	return c.writeJSON(msg)
}

// Connected reports whether the page has a live socket.
func (h *Hub) Connected(sessionID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.conns[sessionID]
	return ok
}

// Count returns the number of live sockets.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Disconnect closes the socket of one page, if any.
func (h *Hub) Disconnect(sessionID string) {
	h.mu.Lock()
	c, ok := h.conns[sessionID]
	delete(h.conns, sessionID)
	h.mu.Unlock()

	if ok {
		c.writeClose(websocket.CloseGoingAway, "session closed")
		_ = c.ws.Close()
	}
}

// CloseAll closes every socket. Used on shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	conns := h.conns
	h.conns = make(map[string]*pageConn)
	h.mu.Unlock()

	for _, c := range conns {
		c.writeClose(websocket.CloseGoingAway, "server shutting down")
		_ = c.ws.Close()
	}
	h.logger.Info(context.Background(), "ws_closed_all", "Closed all page sockets", map[string]any{"count": len(conns)})
}

// Channel returns the push channel of one page.
func (h *Hub) Channel(sessionID string) ports.PageChannel {
	return pageChannel{hub: h, sessionID: sessionID}
}

type pageChannel struct {
	hub       *Hub
	sessionID string
}

func (p pageChannel) Send(msg any) error {
	return p.hub.Send(p.sessionID, msg)
}
