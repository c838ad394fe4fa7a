// Package chat runs per-anime discussion rooms over WebSocket. Each room keeps
// a bounded history that new members receive on join.
package chat

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	defaultHistorySize = 50
	writeWait          = 5 * time.Second
)

const (
	TypeMessage = "message"
	TypeJoin    = "user_join"
	TypeLeave   = "user_leave"
)

type Message struct {
	ID      string    `json:"id,omitempty"`
	Type    string    `json:"type"`
	AnimeID string    `json:"anime_id"`
	User    string    `json:"user"`
	Text    string    `json:"text,omitempty"`
	At      time.Time `json:"at"`
}

type room struct {
	members map[*websocket.Conn]string
	history []Message
}

type Hub struct {
	mu          sync.Mutex
	rooms       map[string]*room
	historySize int
	logger      *zap.Logger
}

func NewHub(historySize int, logger *zap.Logger) *Hub {
	if historySize <= 0 {
		historySize = defaultHistorySize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		rooms:       make(map[string]*room),
		historySize: historySize,
		logger:      logger.Named("chat"),
	}
}

// Join replays the room history for animeID to ws, oldest first, then adds
// ws to the room. The replay happens under the hub lock so it cannot
// interleave with a broadcast.
func (h *Hub) Join(animeID string, ws *websocket.Conn, user string) int {
	h.mu.Lock()
	r := h.roomLocked(animeID)
	for _, msg := range r.history {
		_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
		if err := ws.WriteJSON(msg); err != nil {
			break
		}
	}
	r.members[ws] = user
	replayed := len(r.history)
	h.mu.Unlock()

	h.logger.Debug("join", zap.String("anime_id", animeID), zap.String("user", user))
	h.Broadcast(Message{Type: TypeJoin, AnimeID: animeID, User: user})
	return replayed
}

func (h *Hub) Leave(animeID string, ws *websocket.Conn) {
	h.mu.Lock()
	var user string
	if r, ok := h.rooms[animeID]; ok {
		user = r.members[ws]
		delete(r.members, ws)
	}
	h.mu.Unlock()

	_ = ws.Close()

	if user != "" {
		h.logger.Debug("leave", zap.String("anime_id", animeID), zap.String("user", user))
		h.Broadcast(Message{Type: TypeLeave, AnimeID: animeID, User: user})
	}
}

// Broadcast sends msg to every member of its room. Chat messages are kept in
// the room history; join and leave notices are not.
func (h *Hub) Broadcast(msg Message) Message {
	if msg.At.IsZero() {
		msg.At = time.Now().UTC()
	}
	if msg.Type == TypeMessage && msg.ID == "" {
		msg.ID = uuid.NewString()
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal message", zap.Error(err))
		return msg
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	r, ok := h.rooms[msg.AnimeID]
	if !ok {
		return msg
	}

	if msg.Type == TypeMessage {
		r.history = append(r.history, msg)
		if len(r.history) > h.historySize {
			r.history = r.history[len(r.history)-h.historySize:]
		}
	}

	for ws := range r.members {
		_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
		if err := ws.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.logger.Debug("drop member", zap.String("anime_id", msg.AnimeID), zap.Error(err))
			_ = ws.Close()
			delete(r.members, ws)
		}
	}
	return msg
}

func (h *Hub) History(animeID string) []Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	if r, ok := h.rooms[animeID]; ok {
		return append([]Message{}, r.history...)
	}
	return []Message{}
}

// Members is the number of open connections in the room.
func (h *Hub) Members(animeID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if r, ok := h.rooms[animeID]; ok {
		return len(r.members)
	}
	return 0
}

func (h *Hub) user(animeID string, ws *websocket.Conn) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if r, ok := h.rooms[animeID]; ok {
		return r.members[ws]
	}
	return ""
}

func (h *Hub) roomLocked(animeID string) *room {
	r, ok := h.rooms[animeID]
	if !ok {
		r = &room{members: make(map[*websocket.Conn]string)}
		h.rooms[animeID] = r
	}
	return r
}

// CloseAll disconnects every member of every room. History is kept.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, r := range h.rooms {
		for ws := range r.members {
			_ = ws.Close()
			delete(r.members, ws)
		}
	}
}
