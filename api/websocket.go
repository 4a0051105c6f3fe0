// Package api provides the HTTP and WebSocket surface for the Sentinel
// dashboard: event submission, queries, and real-time push.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"sentinel/metrics"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WebSocket configuration constants
const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// pingPeriod sends pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize is the maximum message size allowed from peer.
	maxMessageSize = 512

	// sendChannelSize is the per-subscriber buffer. A subscriber whose
	// buffer fills is evicted rather than allowed to stall broadcasts.
	sendChannelSize = 256
)

// Envelope is the wire format for every pushed message.
type Envelope struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// subscriber represents a single WebSocket client connection.
type subscriber struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub maintains the set of active WebSocket subscribers and fans out
// messages. Implements correlate.Sink so the correlator can publish
// without knowing about WebSockets.
type Hub struct {
	subscribers map[*subscriber]bool

	broadcast  chan []byte
	register   chan *subscriber
	unregister chan *subscriber

	mu sync.RWMutex

	logger *zap.SugaredLogger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// upgrader configures WebSocket connection upgrades. Origin checks are
// handled by corsMiddleware before the upgrade reaches this handler.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// NewHub creates a hub. Start must be called before broadcasting.
func NewHub(ctx context.Context, logger *zap.SugaredLogger) *Hub {
	hubCtx, cancel := context.WithCancel(ctx)
	return &Hub{
		subscribers: make(map[*subscriber]bool),
		broadcast:   make(chan []byte, 256),
		register:    make(chan *subscriber),
		unregister:  make(chan *subscriber),
		logger:      logger,
		ctx:         hubCtx,
		cancel:      cancel,
		done:        make(chan struct{}),
	}
}

// Start runs the hub's event loop. Must be called exactly once, in its
// own goroutine.
func (h *Hub) Start() {
	defer close(h.done)

	h.logger.Info("WebSocket hub started")

	for {
		select {
		case <-h.ctx.Done():
			h.mu.Lock()
			for sub := range h.subscribers {
				close(sub.send)
				sub.conn.Close()
			}
			h.subscribers = make(map[*subscriber]bool)
			h.mu.Unlock()
			metrics.SubscribersConnected.Set(0)
			h.logger.Info("WebSocket hub stopped")
			return

		case sub := <-h.register:
			h.mu.Lock()
			h.subscribers[sub] = true
			total := len(h.subscribers)
			h.mu.Unlock()
			metrics.SubscribersConnected.Set(float64(total))
			h.logger.Debugw("WebSocket subscriber registered",
				"subscriber_id", sub.id,
				"total_subscribers", total)

		case sub := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.subscribers[sub]; ok {
				delete(h.subscribers, sub)
				close(sub.send)
				total := len(h.subscribers)
				h.mu.Unlock()
				metrics.SubscribersConnected.Set(float64(total))
				h.logger.Debugw("WebSocket subscriber unregistered",
					"subscriber_id", sub.id,
					"total_subscribers", total)
			} else {
				h.mu.Unlock()
			}

		case message := <-h.broadcast:
			h.mu.RLock()
			for sub := range h.subscribers {
				select {
				case sub.send <- message:
				default:
					// Full buffer means a slow or dead subscriber.
					// Evict it so one bad connection cannot stall
					// delivery to the rest.
					metrics.SubscribersDropped.Inc()
					go func(slow *subscriber) {
						h.unregister <- slow
						slow.conn.Close()
					}(sub)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Publish satisfies correlate.Sink. Marshal failures and full broadcast
// queues are logged and dropped; live push is best-effort.
func (h *Hub) Publish(messageType string, payload interface{}) {
	msg := Envelope{
		Type:      messageType,
		Data:      payload,
		Timestamp: time.Now().UTC(),
	}

	jsonData, err := json.Marshal(msg)
	if err != nil {
		h.logger.Errorw("Failed to marshal WebSocket message",
			"type", messageType,
			"error", err)
		return
	}

	select {
	case h.broadcast <- jsonData:
	case <-time.After(1 * time.Second):
		h.logger.Warnw("WebSocket broadcast queue saturated, message dropped",
			"type", messageType)
	}
}

// SubscriberCount returns the number of connected subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Stop shuts the hub down and waits for the event loop to exit.
func (h *Hub) Stop() {
	h.cancel()
	<-h.done
}

// readPump drains the connection to detect disconnects. Subscribers are
// push-only; inbound frames are discarded.
func (s *subscriber) readPump() {
	defer func() {
		s.hub.unregister <- s
		s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, _, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.hub.logger.Debugw("WebSocket unexpected close",
					"subscriber_id", s.id,
					"error", err)
			}
			break
		}
	}
}

// writePump delivers queued messages in FIFO order and keeps the
// connection alive with pings.
func (s *subscriber) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case message, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := s.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Flush any queued messages into the same frame batch.
			n := len(s.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-s.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// serveWs upgrades the request and starts the subscriber pumps.
func serveWs(hub *Hub, logger *zap.SugaredLogger, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Errorw("WebSocket upgrade failed", "error", err)
		return
	}

	sub := &subscriber{
		id:   uuid.New().String(),
		hub:  hub,
		conn: conn,
		send: make(chan []byte, sendChannelSize),
	}
	sub.hub.register <- sub

	go sub.writePump()
	go sub.readPump()
}
