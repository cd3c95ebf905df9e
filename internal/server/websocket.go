package server

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/avatarsync/avatarsync/internal/core/movement"
	"github.com/avatarsync/avatarsync/internal/core/observability/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// keyboardFrame is the inbound wire format: one KeyboardEvent.code transition.
type keyboardFrame struct {
	Type string `json:"type"` // "down" or "up"
	Code string `json:"code"`
}

// client is one websocket session: keyboard ingress for a single avatar and
// diagnostics egress for all of them.
type client struct {
	conn     *websocket.Conn
	avatarID string
	send     chan []byte
}

// hub tracks connected clients for diagnostic fan-out.
type hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	logger  log.Log
}

func newHub(logger log.Log) *hub {
	return &hub{
		clients: make(map[*client]struct{}),
		logger:  logger,
	}
}

func (h *hub) add(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *hub) remove(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// broadcast queues a frame for every client, dropping it for clients whose
// send buffer is full rather than blocking the publisher.
func (h *hub) broadcast(frame []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- frame:
		default:
			h.logger.Warn("client send buffer full, dropping frame",
				log.String("avatar_id", c.avatarID))
		}
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
		_ = c.conn.Close()
	}
}

// handleWebSocket upgrades the connection, binds it to the avatar named in
// the query and runs the read and write pumps.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	avatarID := r.URL.Query().Get("avatar")
	if avatarID == "" {
		http.Error(w, "avatar query parameter required", http.StatusBadRequest)
		return
	}
	if !s.loop.Knows(avatarID) {
		s.logger.Warn("rejecting client for unmanaged avatar",
			log.String("avatar_id", avatarID),
			log.Error(ErrUnknownAvatar))
		http.Error(w, ErrUnknownAvatar.Error(), http.StatusNotFound)
		return
	}

	if s.cfg.MaxClients > 0 && s.hub.count() >= s.cfg.MaxClients {
		http.Error(w, "too many clients", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", log.Error(err))
		return
	}

	c := &client{
		conn:     conn,
		avatarID: avatarID,
		send:     make(chan []byte, 64),
	}
	s.hub.add(c)

	s.logger.Info("client connected",
		log.String("avatar_id", avatarID),
		log.String("remote_addr", conn.RemoteAddr().String()),
		log.Int("total_clients", s.hub.count()))

	go s.writePump(c)
	s.readPump(c)
}

// readPump parses keyboard frames and forwards them to the tick loop. It
// returns when the connection drops.
func (s *Server) readPump(c *client) {
	defer func() {
		s.hub.remove(c)
		_ = c.conn.Close()
		s.logger.Info("client disconnected",
			log.String("avatar_id", c.avatarID),
			log.Int("total_clients", s.hub.count()))
	}()

	for {
		if s.cfg.ReadTimeout > 0 {
			_ = c.conn.SetReadDeadline(timeNow().Add(s.cfg.ReadTimeout))
		}
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read failed", log.Error(err))
			}
			return
		}

		var frame keyboardFrame
		if err = json.Unmarshal(data, &frame); err != nil {
			s.logger.Warn("malformed keyboard frame", log.Error(err))
			continue
		}

		switch frame.Type {
		case "down":
			s.loop.Push(c.avatarID, movement.Key(frame.Code), true)
		case "up":
			s.loop.Push(c.avatarID, movement.Key(frame.Code), false)
		default:
			s.logger.Warn("unknown frame type", log.String("type", frame.Type))
		}
	}
}

// writePump forwards queued diagnostic frames onto the wire.
func (s *Server) writePump(c *client) {
	for frame := range c.send {
		if s.cfg.WriteTimeout > 0 {
			_ = c.conn.SetWriteDeadline(timeNow().Add(s.cfg.WriteTimeout))
		}
		if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			s.logger.Warn("websocket write failed", log.Error(err))
			s.hub.remove(c)
			_ = c.conn.Close()
			return
		}
	}
}
