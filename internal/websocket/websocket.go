package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/abrezinsky/kioskfeedback/internal/logger"
	"github.com/abrezinsky/kioskfeedback/internal/models"
	"github.com/abrezinsky/kioskfeedback/internal/services"
	"github.com/abrezinsky/kioskfeedback/internal/store"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // the shell is served from the same kiosk
	},
}

// StateSource provides the snapshot sent to newly connected shells
type StateSource interface {
	Snapshot() store.Snapshot
}

// ScreenPayload is the payload of navigate, reset and screen messages
type ScreenPayload struct {
	Screen models.Screen `json:"screen"`
}

// Hub maintains the set of connected shells, broadcasts messages to them and
// tracks which screen the shell is showing
type Hub struct {
	log        logger.Logger
	clients    map[*Client]bool
	broadcast  chan models.WSMessage
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex

	screenMu sync.RWMutex
	screen   models.Screen
	source   StateSource
	onScreen func(models.Screen)
}

// Client is a middleman between the websocket connection and the hub
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan models.WSMessage
}

// New creates a new Hub showing the idle screen
func New(log logger.Logger) *Hub {
	return &Hub{
		log:        log,
		clients:    make(map[*Client]bool),
		broadcast:  make(chan models.WSMessage),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		screen:     models.ScreenIdle,
	}
}

// SetStateSource sets where the initial state for new clients comes from
func (h *Hub) SetStateSource(src StateSource) {
	h.screenMu.Lock()
	defer h.screenMu.Unlock()
	h.source = src
}

// SetScreenListener registers a callback for screens reported by the shell
func (h *Hub) SetScreenListener(fn func(models.Screen)) {
	h.screenMu.Lock()
	defer h.screenMu.Unlock()
	h.onScreen = fn
}

// Start begins the hub's main loop in a goroutine
func (h *Hub) Start() {
	go h.run()
}

// run handles client registration/unregistration and message broadcasting
func (h *Hub) run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mutex.Unlock()
			h.log.Debug("Client connected", "total_clients", total)

			// A new shell syncs to the current screen and state
			for _, msg := range h.welcome() {
				client.send <- msg
			}

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mutex.Unlock()
			h.log.Debug("Client disconnected", "total_clients", total)

		case message := <-h.broadcast:
			h.mutex.RLock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Client's send channel is full, unregister
					go func(c *Client) {
						h.unregister <- c
					}(client)
				}
			}
			h.mutex.RUnlock()
		}
	}
}

func (h *Hub) welcome() []models.WSMessage {
	h.screenMu.RLock()
	screen := h.screen
	src := h.source
	h.screenMu.RUnlock()

	msgs := []models.WSMessage{{Type: models.WSTypeReset, Payload: ScreenPayload{Screen: screen}}}
	if src != nil {
		msgs = append(msgs, models.WSMessage{Type: models.WSTypeState, Payload: src.Snapshot()})
	}
	return msgs
}

// BroadcastMessage sends a message to all connected clients
func (h *Hub) BroadcastMessage(msgType string, payload interface{}) {
	h.broadcast <- models.WSMessage{
		Type:    msgType,
		Payload: payload,
	}
}

// NavigateTo pushes screen onto the shell's navigation stack
func (h *Hub) NavigateTo(screen models.Screen) {
	h.setScreen(screen)
	h.log.Debug("Navigate", "screen", screen)
	h.BroadcastMessage(models.WSTypeNavigate, ScreenPayload{Screen: screen})
}

// ResetTo replaces the shell's navigation stack with screen
func (h *Hub) ResetTo(screen models.Screen) {
	h.setScreen(screen)
	h.log.Debug("Reset navigation", "screen", screen)
	h.BroadcastMessage(models.WSTypeReset, ScreenPayload{Screen: screen})
}

// CurrentScreen returns the screen the shell was last told to show or
// last reported
func (h *Hub) CurrentScreen() models.Screen {
	h.screenMu.RLock()
	defer h.screenMu.RUnlock()
	return h.screen
}

// SetCurrentScreen records a screen reported by the shell. Unknown screens
// are ignored. Reports whether the screen was accepted.
func (h *Hub) SetCurrentScreen(screen models.Screen) bool {
	if !screen.Valid() {
		return false
	}
	h.setScreen(screen)

	h.screenMu.RLock()
	fn := h.onScreen
	h.screenMu.RUnlock()
	if fn != nil {
		fn(screen)
	}
	return true
}

func (h *Hub) setScreen(screen models.Screen) {
	h.screenMu.Lock()
	defer h.screenMu.Unlock()
	h.screen = screen
}

// ClientCount returns the number of connected shells
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// handleMessage processes a message sent by the shell
func (h *Hub) handleMessage(data []byte) {
	var msg struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		h.log.Debug("Ignoring malformed message", "error", err)
		return
	}
	h.log.Debug("Received message", "type", msg.Type)

	switch msg.Type {
	case models.WSTypeScreen:
		var p ScreenPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return
		}
		if !h.SetCurrentScreen(p.Screen) {
			h.log.Debug("Ignoring unknown screen", "screen", p.Screen)
		}
	}
}

// readPump pumps messages from the websocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug("WebSocket error", "error", err)
			}
			break
		}
		c.hub.handleMessage(message)
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}

			msgBytes, err := json.Marshal(message)
			if err != nil {
				c.hub.log.Error("Failed to encode message", "type", message.Type, "error", err)
			} else {
				w.Write(msgBytes)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWs handles websocket requests from the shell
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("WebSocket upgrade error", "error", err)
		return
	}

	client := &Client{
		hub:  h,
		conn: conn,
		send: make(chan models.WSMessage, 256),
	}
	h.register <- client

	go client.writePump()
	go client.readPump()
}

var (
	_ services.Navigator   = (*Hub)(nil)
	_ services.Broadcaster = (*Hub)(nil)
)
