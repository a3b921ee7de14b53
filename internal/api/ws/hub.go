package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Richard-Rogalski/PrisonLauncher/internal/domain/instance"
	"github.com/Richard-Rogalski/PrisonLauncher/internal/infrastructure/monitoring"
	"github.com/Richard-Rogalski/PrisonLauncher/internal/shared/id"
	"github.com/Richard-Rogalski/PrisonLauncher/internal/shared/types"
)

const (
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = (pongWait * 9) / 10
	maxMessageSize    = 4096
	defaultBufferSize = 64
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // The API is read-only and credential free
	},
}

// inbound is a message sent by a stream client
type inbound struct {
	Type string `json:"type"`
}

// client is one connected stream subscriber
type client struct {
	id   id.SubscriberID
	conn *websocket.Conn
	send chan types.EventMessage

	closeOnce sync.Once
	done      chan struct{}
	reason    string
}

func newClient(conn *websocket.Conn, buffer int) *client {
	return &client{
		id:   id.NewSubscriberID(),
		conn: conn,
		send: make(chan types.EventMessage, buffer),
		done: make(chan struct{}),
	}
}

func (cl *client) close(reason string) {
	cl.closeOnce.Do(func() {
		cl.reason = reason
		close(cl.done)
	})
}

// Hub fans instance list events out to websocket clients.
// Each client has a bounded queue; a client that falls behind is
// disconnected instead of slowing down list mutations.
type Hub struct {
	list       *instance.List
	logger     *zap.Logger
	metrics    *monitoring.Metrics
	bufferSize int

	mu      sync.RWMutex
	clients map[*client]struct{}
	detach  func()
}

// NewHub creates a hub subscribed to list
func NewHub(list *instance.List, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hub{
		list:       list,
		logger:     logger,
		bufferSize: defaultBufferSize,
		clients:    make(map[*client]struct{}),
	}
	h.detach = list.Subscribe(h.broadcast)
	return h
}

// WithMetrics adds connection and message metrics
func (h *Hub) WithMetrics(metrics *monitoring.Metrics) *Hub {
	h.metrics = metrics
	return h
}

// WithBufferSize sets the per-client queue length
func (h *Hub) WithBufferSize(size int) *Hub {
	if size > 0 {
		h.bufferSize = size
	}
	return h
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close unsubscribes from the list and disconnects every client
func (h *Hub) Close() {
	h.detach()

	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()

	for cl := range clients {
		cl.close("server shutting down")
	}
}

// HandleConnection upgrades the request and streams list events until the
// client disconnects
func (h *Hub) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	cl := newClient(conn, h.bufferSize)
	h.register(cl)
	if h.metrics != nil {
		h.metrics.IncWSConnections()
		defer h.metrics.DecWSConnections()
	}
	h.logger.Debug("Stream client connected", zap.String("subscriber", cl.id.String()))

	go h.writePump(cl)
	h.readPump(cl)

	h.logger.Debug("Stream client disconnected",
		zap.String("subscriber", cl.id.String()),
		zap.String("reason", cl.reason))
}

// register adds cl and queues its hello message. Holding the write lock
// keeps broadcasts from interleaving with the hello.
func (h *Hub) register(cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	count := h.list.Len()
	hello := types.NewEventMessage(types.MessageHello, -1, h.list.Generation())
	hello.Count = &count
	hello.Message = cl.id.String()
	cl.send <- hello

	h.clients[cl] = struct{}{}
}

func (h *Hub) unregister(cl *client, reason string) {
	h.mu.Lock()
	delete(h.clients, cl)
	h.mu.Unlock()
	cl.close(reason)
}

// broadcast runs on the list's mutating goroutine and must not block
func (h *Hub) broadcast(event instance.Event) {
	msg := event.Message()

	var slow []*client
	h.mu.RLock()
	for cl := range h.clients {
		select {
		case cl.send <- msg:
		default:
			slow = append(slow, cl)
		}
	}
	h.mu.RUnlock()

	for _, cl := range slow {
		h.logger.Warn("Disconnecting slow stream client", zap.String("subscriber", cl.id.String()))
		h.unregister(cl, "client too slow")
	}
}

func (h *Hub) enqueue(cl *client, msg types.EventMessage) {
	select {
	case cl.send <- msg:
	default:
		h.unregister(cl, "client too slow")
	}
}

func (h *Hub) readPump(cl *client) {
	defer func() {
		h.unregister(cl, "read closed")
		cl.conn.Close()
	}()

	cl.conn.SetReadLimit(maxMessageSize)
	_ = cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg inbound
		if err := cl.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("WebSocket read error", zap.Error(err))
			}
			return
		}
		h.recordMessage("in", msg.Type)

		switch msg.Type {
		case "ping":
			h.enqueue(cl, types.NewEventMessage(types.MessagePong, -1, h.list.Generation()))
		default:
			errMsg := types.NewEventMessage(types.MessageError, -1, "")
			errMsg.Message = "unknown message type"
			h.enqueue(cl, errMsg)
		}
	}
}

func (h *Hub) writePump(cl *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		cl.conn.Close()
	}()

	for {
		select {
		case msg := <-cl.send:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteJSON(msg); err != nil {
				h.unregister(cl, "write failed")
				return
			}
			h.recordMessage("out", msg.Type)

		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.unregister(cl, "ping failed")
				return
			}

		case <-cl.done:
			_ = cl.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, cl.reason),
				time.Now().Add(writeWait))
			return
		}
	}
}

func (h *Hub) recordMessage(direction, msgType string) {
	if h.metrics != nil {
		h.metrics.RecordWSMessage(direction, msgType)
	}
}
