package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/pratik-mahalle/satwatch/internal/api/dto"
	"github.com/pratik-mahalle/satwatch/internal/pkg/logger"
	"github.com/pratik-mahalle/satwatch/internal/pkg/metrics"
	"github.com/pratik-mahalle/satwatch/internal/pkg/utils"
	"github.com/pratik-mahalle/satwatch/internal/state"
	"github.com/pratik-mahalle/satwatch/internal/view"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024
	sendBuffer     = 8
)

// StreamHub pushes the derived dashboard to every connected stream client
// whenever the store changes. Each client derives with its own filter.
type StreamHub struct {
	store   *state.Store
	logger  *logger.Logger
	clients map[*streamClient]bool
	changes <-chan struct{}
	cancel  func()
	closed  bool
	mu      sync.RWMutex
	now     func() time.Time
}

type streamClient struct {
	id     string
	conn   *websocket.Conn
	send   chan []byte
	mu     sync.Mutex
	filter view.FilterState
}

func (c *streamClient) Filter() view.FilterState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filter
}

func (c *streamClient) setFilter(f view.FilterState) {
	c.mu.Lock()
	c.filter = f
	c.mu.Unlock()
}

// NewStreamHub creates a hub; call Run to start delivering updates
func NewStreamHub(store *state.Store, log *logger.Logger) *StreamHub {
	changes, cancel := store.Subscribe()
	return &StreamHub{
		store:   store,
		logger:  log,
		clients: make(map[*streamClient]bool),
		changes: changes,
		cancel:  cancel,
		now:     time.Now,
	}
}

// Run delivers store changes to clients until ctx is cancelled
func (h *StreamHub) Run(ctx context.Context) {
	defer h.cancel()

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			h.closed = true
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
				metrics.DecStreamClients()
			}
			h.mu.Unlock()
			return

		case <-h.changes:
			snap := h.store.Snapshot()
			h.mu.RLock()
			clients := make([]*streamClient, 0, len(h.clients))
			for c := range h.clients {
				clients = append(clients, c)
			}
			h.mu.RUnlock()
			for _, c := range clients {
				h.push(c, snap)
			}
		}
	}
}

// ClientCount returns the number of connected clients
func (h *StreamHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// add registers a client and queues its first dashboard
func (h *StreamHub) add(c *streamClient) bool {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return false
	}
	h.clients[c] = true
	h.mu.Unlock()

	metrics.IncStreamClients()
	h.logger.WithFields(map[string]interface{}{
		"client_id": c.id,
		"remote":    c.conn.RemoteAddr().String(),
	}).Info("Stream client connected")
	h.push(c, h.store.Snapshot())
	return true
}

func (h *StreamHub) drop(c *streamClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	metrics.DecStreamClients()
	h.logger.WithFields(map[string]interface{}{
		"client_id": c.id,
	}).Info("Stream client disconnected")
}

// push derives the dashboard for one client and queues it. A client whose
// buffer is full is disconnected.
func (h *StreamHub) push(c *streamClient, snap state.Snapshot) {
	msg := dto.StreamMessage{
		Type:      dto.StreamTypeDashboard,
		Data:      view.Derive(snap, c.Filter(), h.now()),
		Timestamp: h.now().UTC(),
	}
	h.send(c, msg)
}

func (h *StreamHub) send(c *streamClient, msg dto.StreamMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.ErrorWithErr(err, "Failed to encode stream message")
		return
	}

	h.mu.RLock()
	_, ok := h.clients[c]
	full := false
	if ok {
		select {
		case c.send <- data:
		default:
			full = true
		}
	}
	h.mu.RUnlock()

	if full {
		h.logger.WithFields(map[string]interface{}{
			"client_id": c.id,
		}).Warn("Stream client too slow, dropping")
		h.drop(c)
	}
}

// StreamHandler upgrades HTTP requests to dashboard streams
type StreamHandler struct {
	hub      *StreamHub
	upgrader websocket.Upgrader
	logger   *logger.Logger
}

// NewStreamHandler creates a stream handler. An empty allowedOrigins list
// accepts same-host requests only.
func NewStreamHandler(hub *StreamHub, allowedOrigins []string, log *logger.Logger) *StreamHandler {
	allowed := make(map[string]bool, len(allowedOrigins))
	anyOrigin := false
	for _, o := range allowedOrigins {
		if o == "*" {
			anyOrigin = true
		}
		allowed[o] = true
	}

	return &StreamHandler{
		hub:    hub,
		logger: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || anyOrigin || allowed[origin] {
					return true
				}
				return origin == "http://"+r.Host || origin == "https://"+r.Host
			},
		},
	}
}

// Stream handles dashboard stream connections
// @Summary Dashboard stream
// @Description WebSocket that pushes the derived dashboard on every change. Send {"type":"filter","filter":{...}} to change the selection.
// @Tags Dashboard
// @Param satellite_id query string false "Satellite id or 'all'"
// @Param from query string false "Inclusive start date (YYYY-MM-DD)"
// @Param to query string false "Inclusive end date (YYYY-MM-DD)"
// @Router /api/v1/stream [get]
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	f, appErr := parseFilter(r)
	if appErr != nil {
		_ = utils.WriteError(w, appErr)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response
		h.logger.WithError(err).Warn("Stream upgrade failed")
		return
	}

	c := &streamClient{
		id:     uuid.New().String(),
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		filter: f,
	}

	hello, _ := json.Marshal(dto.StreamMessage{
		Type:      dto.StreamTypeConnected,
		Data:      map[string]string{"client_id": c.id},
		Timestamp: time.Now().UTC(),
	})
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, hello); err != nil {
		conn.Close()
		return
	}

	if !h.hub.add(c) {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		conn.Close()
		return
	}
	go h.writePump(c)
	h.readPump(c)
}

// readPump applies filter commands from the client until the connection closes
func (h *StreamHandler) readPump(c *streamClient) {
	defer func() {
		h.hub.drop(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.WithError(err).Debug("Stream read error")
			}
			return
		}

		var cmd dto.StreamCommand
		if err := json.Unmarshal(message, &cmd); err != nil || cmd.Type != dto.StreamTypeFilter {
			h.hub.send(c, dto.StreamMessage{
				Type:      dto.StreamTypeError,
				Data:      map[string]string{"message": "expected a filter command"},
				Timestamp: time.Now().UTC(),
			})
			continue
		}

		f := cmd.Filter.Normalize()
		if errs := f.Validate(); len(errs) > 0 {
			h.hub.send(c, dto.StreamMessage{
				Type:      dto.StreamTypeError,
				Data:      errs,
				Timestamp: time.Now().UTC(),
			})
			continue
		}

		c.setFilter(f)
		h.hub.push(c, h.hub.store.Snapshot())
	}
}

// writePump writes queued frames and keeps the connection alive with pings
func (h *StreamHandler) writePump(c *streamClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
