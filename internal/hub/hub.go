// Package hub is the push-notification transport: a websocket fan-out that
// broadcasts named events to every connected viewer. Delivery is
// at-most-once per hop; viewers absorb redelivery after reconnect through
// the idempotent merge rules.
package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// Event names of the synchronization protocol.
const (
	EventOrderCreated      = "orderCreated"
	EventOrderStatusUpdate = "orderStatusUpdate"
	EventSessionUpdated    = "sessionUpdated"
	EventOrdersUpdate      = "ordersUpdate"
)

// Event is the wire envelope for every push message.
type Event struct {
	Name    string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

const (
	_writeWait      = 10 * time.Second
	_pongWait       = 60 * time.Second
	_pingPeriod     = (_pongWait * 9) / 10
	_sendBufferSize = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The API already runs behind a permissive CORS policy.
	CheckOrigin: func(*http.Request) bool { return true },
}

type Hub struct {
	logger *slog.Logger

	register    chan *subscriber
	unregister  chan *subscriber
	broadcast   chan []byte
	subscribers map[*subscriber]struct{}
}

func New(logger *slog.Logger) *Hub {
	return &Hub{
		logger:      logger.With("module", "hub"),
		register:    make(chan *subscriber),
		unregister:  make(chan *subscriber),
		broadcast:   make(chan []byte, _sendBufferSize),
		subscribers: make(map[*subscriber]struct{}),
	}
}

// Run owns the subscriber set until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for sub := range h.subscribers {
				sub.close()
			}
			return
		case sub := <-h.register:
			h.subscribers[sub] = struct{}{}
			h.logger.Debug("viewer connected", "viewers", len(h.subscribers))
		case sub := <-h.unregister:
			if _, ok := h.subscribers[sub]; ok {
				delete(h.subscribers, sub)
				sub.close()
				h.logger.Debug("viewer disconnected", "viewers", len(h.subscribers))
			}
		case frame := <-h.broadcast:
			for sub := range h.subscribers {
				select {
				case sub.send <- frame:
				default:
					// Slow consumer: drop it, the resync on its
					// reconnect corrects whatever it missed.
					delete(h.subscribers, sub)
					sub.close()
					h.logger.Warn("dropped slow viewer", "viewers", len(h.subscribers))
				}
			}
		}
	}
}

// Broadcast fans an event out to all connected viewers. Fire and forget:
// marshal errors are logged, never surfaced.
func (h *Hub) Broadcast(name string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("marshal event payload", "event", name, "error", err)
		return
	}

	frame, err := json.Marshal(Event{Name: name, Payload: raw})
	if err != nil {
		h.logger.Error("marshal event", "event", name, "error", err)
		return
	}

	h.broadcast <- frame
}

// Subscribe upgrades the request and attaches the connection to the hub.
func (h *Hub) Subscribe(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	sub := &subscriber{
		hub:  h,
		conn: conn,
		send: make(chan []byte, _sendBufferSize),
	}
	h.register <- sub

	go sub.writePump()
	go sub.readPump()
}

type subscriber struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

func (s *subscriber) close() {
	close(s.send)
}

// readPump discards inbound frames (the protocol is server-to-viewer only)
// and keeps the pong deadline fresh. Exits, and unregisters, on any error.
func (s *subscriber) readPump() {
	defer func() { s.hub.unregister <- s }()

	s.conn.SetReadLimit(512)
	_ = s.conn.SetReadDeadline(time.Now().Add(_pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(_pongWait))
	})

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *subscriber) writePump() {
	ticker := time.NewTicker(_pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(_writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(_writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
