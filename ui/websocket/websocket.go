package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	domainHealth "github.com/AzielCF/az-eight/domains/health"
	domainOffline "github.com/AzielCF/az-eight/domains/offline"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

const (
	CodeConnectionStatus = "CONNECTION_STATUS"
	CodeHealthReport     = "HEALTH_REPORT"
	CodeHealthCheck      = "HEALTH_CHECK"
)

type BroadcastMessage struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Result   any    `json:"result"`
	SenderID string `json:"sender_id,omitempty"`
}

// Conn is the part of a websocket connection the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Fanout relays broadcasts between servers. *valkey.Client implements it.
type Fanout interface {
	Publish(ctx context.Context, channel, message string) error
	Subscribe(ctx context.Context, channel string, fn func(message string)) error
}

// Hub owns the connected clients; only Run touches the client set.
type Hub struct {
	clients    map[Conn]struct{}
	register   chan Conn
	unregister chan Conn
	broadcast  chan BroadcastMessage
	remote     chan BroadcastMessage
	done       chan struct{}
	doneOnce   sync.Once
	count      int32

	fanout  Fanout
	channel string
	localID string
}

type HubOption func(*Hub)

// WithFanout propagates broadcasts to other servers over channel.
func WithFanout(f Fanout, channel, serverID string) HubOption {
	return func(h *Hub) {
		h.fanout = f
		h.channel = channel
		h.localID = serverID
	}
}

func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		clients:    make(map[Conn]struct{}),
		register:   make(chan Conn),
		unregister: make(chan Conn),
		broadcast:  make(chan BroadcastMessage, 64),
		remote:     make(chan BroadcastMessage, 64),
		done:       make(chan struct{}),
		channel:    "azeight:ws_broadcast",
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register adds conn to the hub. Once Run has returned the connection is
// closed instead.
func (h *Hub) Register(conn Conn) {
	select {
	case h.register <- conn:
	case <-h.done:
		_ = conn.Close()
	}
}

// Unregister is a no-op after Run has returned.
func (h *Hub) Unregister(conn Conn) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

func (h *Hub) ClientCount() int {
	return int(atomic.LoadInt32(&h.count))
}

// Broadcast queues msg for local clients and other servers. It drops the
// message when the queue is full.
func (h *Hub) Broadcast(msg BroadcastMessage) {
	select {
	case h.broadcast <- msg:
	default:
		logrus.Warnf("[WS] Broadcast queue full, dropping %s", msg.Code)
	}
}

// Attach pushes online/offline flips and every recorded health report to clients.
func (h *Hub) Attach(offline domainOffline.IOfflineUsecase, health domainHealth.IHealthUsecase) {
	if offline != nil {
		offline.OnStatusChange(func(online bool, message string) {
			h.Broadcast(BroadcastMessage{
				Code:    CodeConnectionStatus,
				Message: message,
				Result:  map[string]bool{"online": online},
			})
		})
	}
	if health != nil {
		health.OnReport(func(r domainHealth.Report) {
			h.Broadcast(BroadcastMessage{
				Code:    CodeHealthReport,
				Message: fmt.Sprintf("Health %s (score %d)", r.Status, r.OverallScore),
				Result:  r,
			})
		})
	}
}

func (h *Hub) Run(ctx context.Context) {
	if h.fanout != nil {
		h.startSubscriber(ctx)
	}
	defer h.doneOnce.Do(func() { close(h.done) })

	for {
		select {
		case <-ctx.Done():
			for conn := range h.clients {
				h.closeConnection(conn)
			}
			return
		case conn := <-h.register:
			h.clients[conn] = struct{}{}
			atomic.StoreInt32(&h.count, int32(len(h.clients)))
			logrus.Debug("[WS] Connection registered")
		case conn := <-h.unregister:
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				atomic.StoreInt32(&h.count, int32(len(h.clients)))
				logrus.Debug("[WS] Connection unregistered")
			}
		case msg := <-h.broadcast:
			h.broadcastToLocal(msg)
			h.publish(ctx, msg)
		case msg := <-h.remote:
			h.broadcastToLocal(msg)
		}
	}
}

func (h *Hub) broadcastToLocal(msg BroadcastMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		logrus.Errorf("[WS] Marshal error: %v", err)
		return
	}
	for conn := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			logrus.Errorf("[WS] Write error: %v", err)
			h.closeConnection(conn)
		}
	}
}

func (h *Hub) closeConnection(conn Conn) {
	_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
	_ = conn.Close()
	delete(h.clients, conn)
	atomic.StoreInt32(&h.count, int32(len(h.clients)))
}

func (h *Hub) publish(ctx context.Context, msg BroadcastMessage) {
	if h.fanout == nil {
		return
	}
	msg.SenderID = h.localID
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	if err := h.fanout.Publish(ctx, h.channel, string(data)); err != nil {
		logrus.Errorf("[WS] Failed to publish to Valkey: %v", err)
	}
}

func (h *Hub) startSubscriber(ctx context.Context) {
	logrus.Info("[WS] Starting Valkey Pub/Sub subscriber for distributed events")
	go func() {
		err := h.fanout.Subscribe(ctx, h.channel, func(message string) {
			var msg BroadcastMessage
			if err := json.Unmarshal([]byte(message), &msg); err != nil {
				return
			}
			// ignore our own publications
			if msg.SenderID == h.localID {
				return
			}
			select {
			case h.remote <- msg:
			case <-ctx.Done():
			}
		})
		if err != nil && ctx.Err() == nil {
			logrus.Errorf("[WS] Valkey subscriber failed: %v", err)
		}
	}()
}

// RegisterRoutes mounts /ws. Clients may send {"code":"HEALTH_CHECK"} to
// trigger a check or {"code":"CONNECTION_STATUS"} to get the current attributes.
func RegisterRoutes(app fiber.Router, hub *Hub, health domainHealth.IHealthUsecase) {
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})

	app.Get("/ws", websocket.New(func(conn *websocket.Conn) {
		defer func() {
			hub.Unregister(conn)
			_ = conn.Close()
		}()

		hub.Register(conn)

		for {
			messageType, message, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					logrus.Warnf("[WS] Read error: %v", err)
				}
				return
			}
			if messageType != websocket.TextMessage {
				logrus.Debugf("[WS] Unsupported message type: %d", messageType)
				continue
			}
			var request BroadcastMessage
			if err := json.Unmarshal(message, &request); err != nil {
				logrus.Warnf("[WS] Unmarshal error: %v", err)
				return
			}
			handleRequest(context.Background(), hub, health, request)
		}
	}))
}

func handleRequest(ctx context.Context, hub *Hub, health domainHealth.IHealthUsecase, request BroadcastMessage) {
	if health == nil {
		return
	}
	switch request.Code {
	case CodeHealthCheck:
		// the report reaches clients through the OnReport listener
		health.PerformHealthCheck(ctx, false)
	case CodeConnectionStatus:
		attrs := health.ConnectionAttributes()
		hub.Broadcast(BroadcastMessage{Code: CodeConnectionStatus, Message: attrs.StatusMessage, Result: attrs})
	}
}
