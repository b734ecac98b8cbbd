// internal/server/handlers/websocket.go

package handlers

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	"mediaintel/internal/adapter/events"
)

// WebSocketClient is a browser listening for dataset events
type WebSocketClient struct {
	conn         *websocket.Conn
	send         chan []byte
	done         chan struct{}
	closeOnce    sync.Once
	subscription *nats.Subscription
	config       WebSocketConfig
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
}

// DefaultWebSocketConfig returns the default WebSocket configuration
func DefaultWebSocketConfig() WebSocketConfig {
	return WebSocketConfig{
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		PingPeriod:     (60 * time.Second * 9) / 10,
		MaxMessageSize: 4096,
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// DatasetWebSocketHandler forwards every dataset event published under topic
// to the connected client. It answers 503 when events are disabled.
func DatasetWebSocketHandler(natsConn *nats.Conn, topic string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if natsConn == nil {
			respondWithError(w, http.StatusServiceUnavailable, "Live updates are not configured", nil)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("Failed to upgrade to WebSocket: %v", err)
			return
		}

		client := &WebSocketClient{
			conn:   conn,
			send:   make(chan []byte, 64),
			done:   make(chan struct{}),
			config: DefaultWebSocketConfig(),
		}

		sub, err := natsConn.Subscribe(events.Wildcard(topic), func(msg *nats.Msg) {
			client.enqueue(msg.Data)
		})
		if err != nil {
			log.Printf("Failed to subscribe to %s: %v", events.Wildcard(topic), err)
			client.closeConnection()
			return
		}
		client.subscription = sub

		go client.writePump()
		go client.readPump()

		welcome, _ := json.Marshal(map[string]interface{}{
			"type":    "welcome",
			"subject": events.Wildcard(topic),
			"time":    time.Now(),
		})
		client.enqueue(welcome)

		log.WithField("remote", r.RemoteAddr).Info("WebSocket client connected")
	}
}

// enqueue queues a message, dropping it when the client is slow or gone
func (c *WebSocketClient) enqueue(message []byte) {
	select {
	case <-c.done:
	case c.send <- message:
	default:
		log.Printf("Dropping event for slow WebSocket client")
	}
}

// readPump discards client messages and watches for the connection to close
func (c *WebSocketClient) readPump() {
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
				log.Printf("WebSocket error: %v", err)
			}
			return
		}
	}
}

// writePump sends queued events and pings to the connection
func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(c.config.PingPeriod)
	defer func() {
		ticker.Stop()
		c.closeConnection()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
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

// closeConnection unsubscribes and closes the connection once
func (c *WebSocketClient) closeConnection() {
	c.closeOnce.Do(func() {
		if c.subscription != nil {
			c.subscription.Unsubscribe()
		}
		close(c.done)
		c.conn.Close()
		log.Printf("WebSocket connection closed")
	})
}
