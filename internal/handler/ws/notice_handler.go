package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"meetdesk-backend/pkg/constants"
	"meetdesk-backend/pkg/logger"
)

// NoticeSource streams the published notices of one user
type NoticeSource interface {
	Listen(ctx context.Context, userID uuid.UUID, deliver func(payload []byte)) error
}

// ConnectionRecorder tracks open websocket connections
type ConnectionRecorder interface {
	IncrementWebSocketConnections()
	DecrementWebSocketConnections()
}

// NoticeHub pushes desk notices to every open websocket of a user
type NoticeHub struct {
	// Registered clients per user
	users map[uuid.UUID]map[*NoticeClient]bool

	// Cancel functions for user subscriptions
	subscriptionCancels map[uuid.UUID]context.CancelFunc

	source   NoticeSource
	recorder ConnectionRecorder
	upgrader websocket.Upgrader

	// Channels
	register   chan *NoticeClient
	unregister chan *NoticeClient
	broadcast  chan *noticePayload

	// Concurrency limit: maxConnections is the maximum number of concurrent WebSocket connections
	maxConnections int
	semaphore      chan struct{}

	once sync.Once
	done chan struct{}
}

// NoticeClient represents one websocket connection
type NoticeClient struct {
	hub     *NoticeHub
	conn    *websocket.Conn
	send    chan []byte
	userID  uuid.UUID
	release func()
}

type noticePayload struct {
	userID uuid.UUID
	data   []byte
}

// NewNoticeHub creates a new notice hub. Run must be started before ServeWS is used.
func NewNoticeHub(source NoticeSource, recorder ConnectionRecorder, maxConnections int, allowOrigin func(origin string) bool) *NoticeHub {
	if maxConnections <= 0 {
		maxConnections = 1000
	}
	return &NoticeHub{
		users:               make(map[uuid.UUID]map[*NoticeClient]bool),
		subscriptionCancels: make(map[uuid.UUID]context.CancelFunc),
		source:              source,
		recorder:            recorder,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return allowOrigin == nil || allowOrigin(r.Header.Get("Origin"))
			},
		},
		register:       make(chan *NoticeClient),
		unregister:     make(chan *NoticeClient),
		broadcast:      make(chan *noticePayload, 256),
		maxConnections: maxConnections,
		semaphore:      make(chan struct{}, maxConnections),
		done:           make(chan struct{}),
	}
}

// Run handles hub operations until ctx is done
func (h *NoticeHub) Run(ctx context.Context) error {
	defer h.once.Do(func() { close(h.done) })

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return ctx.Err()

		case client := <-h.register:
			if h.users[client.userID] == nil {
				h.users[client.userID] = make(map[*NoticeClient]bool)

				subCtx, cancel := context.WithCancel(ctx)
				h.subscriptionCancels[client.userID] = cancel
				go h.subscribe(subCtx, client.userID)
			}
			h.users[client.userID][client] = true
			if h.recorder != nil {
				h.recorder.IncrementWebSocketConnections()
			}

		case client := <-h.unregister:
			h.remove(client)

		case message := <-h.broadcast:
			for client := range h.users[message.userID] {
				select {
				case client.send <- message.data:
				default:
					h.remove(client)
				}
			}
		}
	}
}

// remove must only be called from Run
func (h *NoticeHub) remove(client *NoticeClient) {
	clients, ok := h.users[client.userID]
	if !ok {
		return
	}
	if _, exists := clients[client]; !exists {
		return
	}

	delete(clients, client)
	close(client.send)
	if h.recorder != nil {
		h.recorder.DecrementWebSocketConnections()
	}

	if len(clients) == 0 {
		if cancel, ok := h.subscriptionCancels[client.userID]; ok {
			cancel()
			delete(h.subscriptionCancels, client.userID)
		}
		delete(h.users, client.userID)
	}
}

func (h *NoticeHub) shutdown() {
	for _, clients := range h.users {
		for client := range clients {
			h.remove(client)
		}
	}
}

// subscribe forwards the user's notices to the hub
func (h *NoticeHub) subscribe(ctx context.Context, userID uuid.UUID) {
	err := h.source.Listen(ctx, userID, func(payload []byte) {
		select {
		case h.broadcast <- &noticePayload{userID: userID, data: payload}:
		case <-ctx.Done():
		}
	})
	if err != nil {
		logger.Error("Failed to listen for notices",
			zap.String("user_id", userID.String()),
			zap.Error(err))
	}
}

// ServeWS upgrades the request and streams notices to the client
// GET /v1/desk/ws
func (h *NoticeHub) ServeWS(c *gin.Context) {
	select {
	case h.semaphore <- struct{}{}:
	default:
		logger.Warn("WebSocket connection rejected: max connections reached",
			zap.Int("max_connections", h.maxConnections))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Server at capacity, please try again later"})
		return
	}
	var once sync.Once
	release := func() { once.Do(func() { <-h.semaphore }) }

	userIDVal, exists := c.Get("user_id")
	if !exists {
		release()
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	userID, ok := userIDVal.(uuid.UUID)
	if !ok {
		release()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "invalid user_id"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		release()
		logger.Warn("WebSocket upgrade failed",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		return
	}

	client := &NoticeClient{
		hub:     h,
		conn:    conn,
		send:    make(chan []byte, 64),
		userID:  userID,
		release: release,
	}

	select {
	case h.register <- client:
	case <-h.done:
		release()
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// readPump only drains control frames; clients do not send notices
func (c *NoticeClient) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
		c.release()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Debug("WebSocket connection closed",
					zap.String("user_id", c.userID.String()),
					zap.Error(err))
			}
			return
		}
	}
}

// writePump writes notices and pings to the websocket
func (c *NoticeClient) writePump() {
	ticker := time.NewTicker(constants.WebSocketPingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

const (
	writeWait = 10 * time.Second
	pongWait  = constants.WebSocketPingInterval + writeWait
)
