package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/wricardo/crate-pusher/game/engine"
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

	// Snapshots waiting for the hub loop before new ones are dropped.
	broadcastBuffer = 256
)

// Client events
const (
	EventPress      = "press"
	EventRelease    = "release"
	EventReleaseAll = "release_all"
)

// Server events
const (
	EventStateUpdate = "state_update"
	EventError       = "error"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message is what the hub sends to clients
type Message struct {
	SessionID string           `json:"session_id"`
	Snapshot  *engine.Snapshot `json:"snapshot,omitempty"`
	HUD       string           `json:"hud,omitempty"`
	Event     string           `json:"event,omitempty"`
	Data      interface{}      `json:"data,omitempty"`
}

// InputMessage is a key event sent by a client
type InputMessage struct {
	Event     string `json:"event"`
	Direction string `json:"direction,omitempty"`
}

// InputHandler receives key events for the client's session. When a client
// disconnects, each direction it still holds is reported as EventRelease.
type InputHandler func(event, direction string) error

// Client represents a WebSocket client
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	sessionID string
	onInput   InputHandler

	// directions this client pressed and has not released; readPump only
	held map[engine.Direction]bool
}

type reply struct {
	client *Client
	data   []byte
}

type countQuery struct {
	sessionID string
	result    chan int
}

// Hub maintains the set of active clients and broadcasts snapshots. Only
// the Run loop touches the sessions map.
type Hub struct {
	// Registered clients by session ID
	sessions map[string]map[*Client]bool

	broadcast  chan *Message
	register   chan *Client
	unregister chan *Client
	replies    chan reply
	counts     chan countQuery
	done       chan struct{}
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	return &Hub{
		sessions:   make(map[string]map[*Client]bool),
		broadcast:  make(chan *Message, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		replies:    make(chan reply),
		counts:     make(chan countQuery),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's event loop. It returns when ctx is done, after
// disconnecting every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)

		case r := <-h.replies:
			if h.sessions[r.client.sessionID][r.client] {
				h.deliver(r.client, r.data)
			}

		case q := <-h.counts:
			q.result <- len(h.sessions[q.sessionID])

		case <-ctx.Done():
			for _, clients := range h.sessions {
				for client := range clients {
					h.unregisterClient(client)
				}
			}
			return
		}
	}
}

// ServeWS upgrades the request and attaches the connection to sessionID.
// Key events read from the client are passed to onInput, which may be nil.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, sessionID string, onInput InputHandler) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	client := &Client{
		hub:       h,
		conn:      conn,
		send:      make(chan []byte, 256),
		sessionID: sessionID,
		onInput:   onInput,
		held:      make(map[engine.Direction]bool),
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	// Start client goroutines
	go client.writePump()
	go client.readPump()
}

// BroadcastToSession queues a snapshot for every client of a session. It
// never blocks; when the hub is saturated the snapshot is dropped, since a
// newer one always follows.
func (h *Hub) BroadcastToSession(sessionID string, snap *engine.Snapshot) {
	message := &Message{
		SessionID: sessionID,
		Snapshot:  snap,
		Event:     EventStateUpdate,
	}
	if snap != nil {
		message.HUD = snap.HUD.Text()
	}

	select {
	case h.broadcast <- message:
	default:
		log.WithField("session", sessionID).Warn("Dropping snapshot, hub is saturated")
	}
}

// ClientCount returns the number of clients attached to a session
func (h *Hub) ClientCount(sessionID string) int {
	q := countQuery{sessionID: sessionID, result: make(chan int, 1)}
	select {
	case h.counts <- q:
		return <-q.result
	case <-h.done:
		return 0
	}
}

// registerClient adds a client to a session
func (h *Hub) registerClient(client *Client) {
	if h.sessions[client.sessionID] == nil {
		h.sessions[client.sessionID] = make(map[*Client]bool)
	}
	h.sessions[client.sessionID][client] = true

	log.WithFields(log.Fields{
		"session": client.sessionID,
		"clients": len(h.sessions[client.sessionID]),
	}).Debug("Client registered")
}

// unregisterClient removes a client from a session
func (h *Hub) unregisterClient(client *Client) {
	clients, ok := h.sessions[client.sessionID]
	if !ok || !clients[client] {
		return
	}
	delete(clients, client)
	close(client.send)

	// Clean up empty sessions
	if len(clients) == 0 {
		delete(h.sessions, client.sessionID)
	}

	log.WithFields(log.Fields{
		"session": client.sessionID,
		"clients": len(clients),
	}).Debug("Client unregistered")
}

// broadcastMessage sends a message to all clients in a session
func (h *Hub) broadcastMessage(message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		log.WithError(err).Error("Failed to marshal broadcast message")
		return
	}

	for client := range h.sessions[message.SessionID] {
		h.deliver(client, data)
	}
}

// deliver hands data to one client, dropping the client if it cannot keep up
func (h *Hub) deliver(client *Client, data []byte) {
	select {
	case client.send <- data:
	default:
		h.unregisterClient(client)
	}
}

// handleInput passes one client frame to the input handler
func (c *Client) handleInput(data []byte) {
	var msg InputMessage
	err := json.Unmarshal(data, &msg)
	if err == nil && c.onInput != nil {
		err = c.onInput(msg.Event, msg.Direction)
		c.track(msg, err)
	}
	if err == nil {
		return
	}

	payload, _ := json.Marshal(&Message{SessionID: c.sessionID, Event: EventError, Data: err.Error()})
	select {
	case c.hub.replies <- reply{client: c, data: payload}:
	case <-c.hub.done:
	}
}

// track records which directions this client holds
func (c *Client) track(msg InputMessage, err error) {
	if msg.Event == EventReleaseAll {
		c.held = make(map[engine.Direction]bool)
		return
	}
	dir, perr := engine.ParseDirection(msg.Direction)
	if perr != nil {
		return
	}
	switch msg.Event {
	case EventPress:
		if err == nil {
			c.held[dir] = true
		}
	case EventRelease:
		delete(c.held, dir)
	}
}

// releaseHeld releases the directions this client still holds, leaving
// keys held by other clients of the session alone
func (c *Client) releaseHeld() {
	held := make([]engine.Direction, 0, len(c.held))
	for dir := range c.held {
		held = append(held, dir)
	}
	sort.Slice(held, func(i, j int) bool { return held[i] < held[j] })

	for _, dir := range held {
		if err := c.onInput(EventRelease, string(dir)); err != nil {
			log.WithError(err).WithField("session", c.sessionID).Debug("Release on disconnect failed")
		}
	}
	c.held = make(map[engine.Direction]bool)
}

// readPump pumps key events from the WebSocket connection to the input handler
func (c *Client) readPump() {
	defer func() {
		if c.onInput != nil {
			c.releaseHeld()
		}
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.WithError(err).Warn("WebSocket error")
			}
			break
		}
		c.handleInput(data)
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
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
