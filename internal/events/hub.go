// Package events fans alert lifecycle events out to websocket subscribers.
// Each client subscribes to a single subject's stream; delivery is best
// effort and slow clients are disconnected rather than allowed to block
// the publisher.
package events

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/pulsewatch/internal/alert"
)

const (
	// writeTimeout is the deadline for a single write to a client.
	writeTimeout = 10 * time.Second

	// pongWait is how long to wait for a pong response before treating the
	// connection as dead.
	pongWait = 60 * time.Second

	// pingPeriod controls how often the server sends WebSocket ping frames.
	// Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// sendBufSize is the per-client outgoing message buffer depth.
	sendBufSize = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Allow all origins; callers should apply CORS at the reverse-proxy level.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Message is the JSON envelope sent to subscribers.
type Message struct {
	Event     string       `json:"event"`
	SubjectID string       `json:"subject_id"`
	AlertID   string       `json:"alert_id,omitempty"`
	Alert     *alert.Alert `json:"alert,omitempty"`
}

// Hub manages websocket subscriptions keyed by subject id and publishes
// alert lifecycle events to them.
type Hub struct {
	logger log.Logger

	mu      sync.RWMutex
	clients map[string]map[*client]struct{}
}

// client represents one connected websocket subscriber. send is never
// closed; shutdown is signalled through done so that a publisher racing a
// disconnect can never write to a closed channel.
type client struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

// shutdown signals writePump to close the connection. Safe to call from any
// goroutine, any number of times.
func (c *client) shutdown() {
	c.once.Do(func() { close(c.done) })
}

// New creates an event hub. logger may be nil.
func New(logger log.Logger) *Hub {
	if logger == nil {
		logger = log.Nop()
	}
	return &Hub{
		logger:  logger,
		clients: make(map[string]map[*client]struct{}),
	}
}

// Run blocks until ctx is cancelled, then closes all active connections.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// PublishNewAlert notifies the alert's subject subscribers of a new alert.
func (h *Hub) PublishNewAlert(ctx context.Context, al *alert.Alert) {
	h.publish(ctx, al.SubjectID, Message{
		Event:     "new_alert",
		SubjectID: al.SubjectID,
		AlertID:   al.ID,
		Alert:     al,
	})
}

// PublishAcknowledged notifies the subject's subscribers that an alert was
// acknowledged.
func (h *Hub) PublishAcknowledged(ctx context.Context, subjectID, alertID string) {
	h.publish(ctx, subjectID, Message{
		Event:     "alert_acknowledged",
		SubjectID: subjectID,
		AlertID:   alertID,
	})
}

// HandleWS upgrades the HTTP connection and serves the client's subscription
// to subjectID's stream. Blocks until the connection closes.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request, subjectID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader has already written the error response.
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, sendBufSize),
		done: make(chan struct{}),
	}
	h.register(subjectID, c)
	defer h.unregister(subjectID, c)

	go c.writePump()
	c.readPump() // blocks until connection closes
}

// Count returns the number of connected subscribers for a subject.
func (h *Hub) Count(subjectID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[subjectID])
}

func (h *Hub) publish(ctx context.Context, subjectID string, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error(ctx, err, "event marshal failed", "event", msg.Event)
		return
	}

	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients[subjectID]))
	for c := range h.clients[subjectID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		select {
		case c.send <- data:
		case <-c.done:
			// Client is already disconnecting.
		default:
			// Client's outgoing buffer is full; disconnect it.
			h.unregister(subjectID, c)
		}
	}
}

func (h *Hub) register(subjectID string, c *client) {
	h.mu.Lock()
	if h.clients[subjectID] == nil {
		h.clients[subjectID] = make(map[*client]struct{})
	}
	h.clients[subjectID][c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(subjectID string, c *client) {
	h.mu.Lock()
	if set, ok := h.clients[subjectID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, subjectID)
		}
	}
	h.mu.Unlock()
	c.shutdown()
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for subjectID, set := range h.clients {
		for c := range set {
			c.shutdown()
		}
		delete(h.clients, subjectID)
	}
}

// writePump drains the client's send channel and forwards messages to the
// websocket connection. It also sends periodic ping frames. Runs in its own
// goroutine per client.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-c.done:
			// Hub shutdown or client removed.
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck
			return

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump reads frames from the connection to process control messages
// (pong, close) and detect disconnects. Blocks until the connection closes.
func (c *client) readPump() {
	defer c.conn.Close()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}
