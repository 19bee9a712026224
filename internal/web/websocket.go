package web

import (
	"net/http"
	"net/url"

	"github.com/finreveal/site/internal/contact"
	"github.com/gorilla/websocket"
)

// WebSocket message types sent on the contact stream.
const (
	WSMsgTypeSnapshot  = "snapshot"
	WSMsgTypeConnected = "connected"
	WSMsgTypePong      = "pong"
	WSMsgTypeError     = "error"
)

// WSMessage represents a WebSocket message sent to clients.
type WSMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// upgrader specifies parameters for upgrading an HTTP connection to
// WebSocket.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,

	// Only pages served by this site may open the stream.
	CheckOrigin: sameOrigin,
}

// sameOrigin reports whether a request carries no Origin or one naming the
// host it was sent to.
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	u, err := url.Parse(origin)
	if err != nil {
		return false
	}

	return u.Host == r.Host
}

// handleContactStream handles GET /ws/contact. It pushes a snapshot of the
// visitor's form on every state change, which is how a page learns that a
// delivery resolved.
func (s *Server) handleContactStream(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Lookup(r)
	if sess == nil {
		w.Header().Set("Content-Type", "application/json")
		writeError(w, http.StatusUnauthorized, "no_session",
			"Open the contact page before subscribing")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("WebSocket upgrade failed: %v", err)
		return
	}

	updates, unsubscribe := sess.form.Subscribe()
	client := NewWSClient(conn, sess.id)

	s.metrics.Streams.Inc()
	log.Debugf("WebSocket: stream opened for session %s", sess.id)

	client.Send(&WSMessage{
		Type:    WSMsgTypeConnected,
		Payload: map[string]string{"session": sess.id},
	})
	client.Send(&WSMessage{
		Type:    WSMsgTypeSnapshot,
		Payload: sess.form.Snapshot(),
	})

	go client.writePump()
	go forwardSnapshots(client, updates)

	// The read pump returns once the peer goes away.
	client.readPump()

	unsubscribe()
	client.Close()
	s.metrics.Streams.Dec()

	log.Debugf("WebSocket: stream closed for session %s", sess.id)
}

// forwardSnapshots copies form updates to the client until the
// subscription ends.
func forwardSnapshots(client *WSClient, updates <-chan contact.Snapshot) {
	for snap := range updates {
		client.Send(&WSMessage{Type: WSMsgTypeSnapshot, Payload: snap})
	}

	// A closed subscription means the form was closed.
	client.Close()
}
