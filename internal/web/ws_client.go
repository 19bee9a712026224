package web

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512

	// Size of the client send buffer.
	sendBufferSize = 16
)

// WSClient represents a single WebSocket connection.
type WSClient struct {
	// The WebSocket connection.
	conn *websocket.Conn

	// Session the stream belongs to, for logging.
	sessionID string

	// Buffered channel of outbound messages.
	send chan *WSMessage

	// Mutex for thread-safe connection operations.
	mu sync.Mutex

	// Closed flag.
	closed bool
}

// NewWSClient creates a new WebSocket client.
func NewWSClient(conn *websocket.Conn, sessionID string) *WSClient {
	return &WSClient{
		conn:      conn,
		sessionID: sessionID,
		send:      make(chan *WSMessage, sendBufferSize),
	}
}

// Send queues a message to be sent to the client.
func (c *WSClient) Send(msg *WSMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	select {
	case c.send <- msg:
	default:
		// Buffer full, drop message.
		log.Warnf("WebSocket: send buffer full for session %s, "+
			"dropping message", c.sessionID)
	}
}

// Close closes the outbound queue. The write pump then sends a close frame
// and closes the connection.
func (c *WSClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.closed = true
	close(c.send)
}

// readPump reads until the peer goes away. The stream is one way, so the
// only message handled is an application level ping.
func (c *WSClient) readPump() {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure) {

				log.Warnf("WebSocket: read error for session %s: %v",
					c.sessionID, err)
			}
			return
		}

		var msg WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.Send(&WSMessage{
				Type:    WSMsgTypeError,
				Payload: "invalid message",
			})
			continue
		}
		if msg.Type == "ping" {
			c.Send(&WSMessage{Type: WSMsgTypePong})
		}
	}
}

// writePump pumps queued messages to the WebSocket connection.
func (c *WSClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The queue was closed.
				_ = c.conn.WriteMessage(
					websocket.CloseMessage,
					websocket.FormatCloseMessage(
						websocket.CloseNormalClosure, "",
					),
				)
				return
			}

			data, err := json.Marshal(msg)
			if err != nil {
				log.Errorf("WebSocket: marshal error: %v", err)
				continue
			}

			if err := c.conn.WriteMessage(
				websocket.TextMessage, data,
			); err != nil {
				log.Warnf("WebSocket: write error for session %s: %v",
					c.sessionID, err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(
				websocket.PingMessage, nil,
			); err != nil {
				return
			}
		}
	}
}
