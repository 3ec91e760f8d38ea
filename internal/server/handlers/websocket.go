// internal/server/handlers/websocket.go

package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"trendlens/internal/metrics"
)

// EventSubscriber delivers event payloads published on a subject
type EventSubscriber interface {
	Subscribe(subject string, handle func(data []byte)) (unsubscribe func(), err error)
}

// WebSocketConfig contains configuration for WebSocket connections
type WebSocketConfig struct {
	// Time allowed to write a message to the peer
	WriteWait time.Duration

	// Time allowed to read the next pong message from the peer
	PongWait time.Duration

	// Send pings to peer with this period
	PingPeriod time.Duration

	// Maximum message size allowed from peer
	MaxMessageSize int64

	// Pending events per client before new ones are dropped
	SendBuffer int
}

// DefaultWebSocketConfig returns the default WebSocket configuration
func DefaultWebSocketConfig() WebSocketConfig {
	return WebSocketConfig{
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		PingPeriod:     (60 * time.Second * 9) / 10,
		MaxMessageSize: 4 * 1024,
		SendBuffer:     64,
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// streamClient is one connected consumer of explanation events
type streamClient struct {
	conn        *websocket.Conn
	send        chan []byte
	done        chan struct{}
	once        sync.Once
	unsubscribe func()
	config      WebSocketConfig
	logger      *slog.Logger
}

// ExplanationStreamHandler relays explanation events from subject to
// WebSocket clients. Clients only receive; anything they send is ignored.
func ExplanationStreamHandler(subscriber EventSubscriber, subject string, config WebSocketConfig, logger *slog.Logger) http.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "websocket")
	if config.SendBuffer <= 0 {
		config.SendBuffer = DefaultWebSocketConfig().SendBuffer
	}

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("failed to upgrade to WebSocket", "error", err)
			return
		}

		client := &streamClient{
			conn:   conn,
			send:   make(chan []byte, config.SendBuffer),
			done:   make(chan struct{}),
			config: config,
			logger: logger,
		}
		metrics.WebsocketClients.Inc()

		unsubscribe, err := subscriber.Subscribe(subject, client.enqueue)
		if err != nil {
			logger.Error("failed to subscribe to explanation events", "subject", subject, "error", err)
			client.closeConnection()
			return
		}
		client.unsubscribe = unsubscribe

		welcome, _ := json.Marshal(map[string]any{
			"type":    "welcome",
			"subject": subject,
			"time":    time.Now().UTC(),
		})
		client.enqueue(welcome)

		go client.writePump()
		go client.readPump()

		logger.Debug("websocket client connected", "remote", r.RemoteAddr)
	}
}

// enqueue queues data for the client, dropping it when the client lags
func (c *streamClient) enqueue(data []byte) {
	select {
	case <-c.done:
	case c.send <- data:
	default:
		c.logger.Warn("dropping event for slow websocket client")
	}
}

// readPump drains control frames until the peer goes away
func (c *streamClient) readPump() {
	defer c.closeConnection()

	c.conn.SetReadLimit(c.config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("websocket error", "error", err)
			}
			return
		}
	}
}

// writePump sends queued events and keepalive pings
func (c *streamClient) writePump() {
	ticker := time.NewTicker(c.config.PingPeriod)
	defer func() {
		ticker.Stop()
		c.closeConnection()
	}()

	for {
		select {
		case <-c.done:
			return

		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// closeConnection releases the subscription and the socket exactly once
func (c *streamClient) closeConnection() {
	c.once.Do(func() {
		close(c.done)
		if c.unsubscribe != nil {
			c.unsubscribe()
		}
		c.conn.Close()
		metrics.WebsocketClients.Dec()
	})
}
