package api

import (
	"encoding/json"
	"net/http"
	"sync"

	"nhooyr.io/websocket"

	"github.com/anikkhan0099/moviehubbd/internal/auth"
	"github.com/anikkhan0099/moviehubbd/internal/models"
)

// ──────────────────── WebSocket Hub ────────────────────

type WSHub struct {
	mu          sync.RWMutex
	clients     map[*WSClient]bool
	activeTasks map[string]json.RawMessage // task_id → last task:update payload
	tasksMu     sync.RWMutex
}

type WSClient struct {
	conn   *websocket.Conn
	userID string
	send   chan []byte
}

type WSMessage struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

func NewWSHub() *WSHub {
	return &WSHub{
		clients:     make(map[*WSClient]bool),
		activeTasks: make(map[string]json.RawMessage),
	}
}

func (h *WSHub) Broadcast(event string, data interface{}) {
	msg, err := json.Marshal(WSMessage{Event: event, Data: data})
	if err != nil {
		return
	}

	// Track active task state for new client sync
	if event == "task:update" {
		h.trackTask(data, msg)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.send <- msg:
		default:
		}
	}
}

// trackTask keeps a snapshot of each running task so new clients get current state.
func (h *WSHub) trackTask(data interface{}, raw []byte) {
	m, ok := data.(map[string]interface{})
	if !ok {
		return
	}
	taskID, _ := m["task_id"].(string)
	status, _ := m["status"].(string)
	if taskID == "" {
		return
	}

	h.tasksMu.Lock()
	defer h.tasksMu.Unlock()
	if status == "complete" || status == "failed" {
		delete(h.activeTasks, taskID)
	} else {
		h.activeTasks[taskID] = json.RawMessage(raw)
	}
}

// sendActiveTasks replays current task state to a newly connected client.
func (h *WSHub) sendActiveTasks(client *WSClient) {
	h.tasksMu.RLock()
	defer h.tasksMu.RUnlock()
	for _, msg := range h.activeTasks {
		select {
		case client.send <- msg:
		default:
		}
	}
}

func (h *WSHub) addClient(c *WSClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = true
}

func (h *WSHub) removeClient(c *WSClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		close(c.send)
		delete(h.clients, c)
	}
}

func (h *WSHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ──────────────────── WebSocket Handler ────────────────────

// handleWebSocket streams task:update events to admins. Browsers cannot set
// headers on the upgrade request so the token may come as ?token=.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = auth.BearerToken(r)
	}
	if token == "" {
		s.respondError(w, http.StatusUnauthorized, "missing authorization")
		return
	}
	claims, err := s.issuer.Parse(token, auth.AccessToken)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	if !claims.Role.AtLeast(models.RoleAdmin) {
		s.respondError(w, http.StatusForbidden, "insufficient permissions")
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: !s.config.Production(),
	})
	if err != nil {
		s.log.WithError(err).Warn("websocket accept failed")
		return
	}

	client := &WSClient{
		conn:   conn,
		userID: claims.UserID.String(),
		send:   make(chan []byte, 64),
	}
	log := s.log.WithField("user_id", client.userID)

	s.wsHub.addClient(client)
	s.wsHub.sendActiveTasks(client)
	log.Info("websocket client connected")

	ctx := r.Context()

	go func() {
		defer conn.Close(websocket.StatusNormalClosure, "")
		for msg := range client.send {
			if err := conn.Write(ctx, websocket.MessageText, msg); err != nil {
				return
			}
		}
	}()

	// Reads only keep the connection alive; clients send nothing we act on.
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			break
		}
	}

	s.wsHub.removeClient(client)
	log.Info("websocket client disconnected")
}
