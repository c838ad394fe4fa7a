package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"animehub/internal/auth"
	"animehub/pkg/models"
)

const maxMessageRunes = 2000

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Catalog confirms a room belongs to a real anime.
type Catalog interface {
	GetByID(ctx context.Context, id string) (*models.Anime, error)
}

// TokenParser resolves the ?token= query parameter to a user.
type TokenParser interface {
	Parse(token string) (*auth.Claims, error)
}

type Handler struct {
	Hub     *Hub
	Catalog Catalog
	Tokens  TokenParser
}

func NewHandler(hub *Hub, catalog Catalog, tokens TokenParser) *Handler {
	return &Handler{Hub: hub, Catalog: catalog, Tokens: tokens}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/anime/:id/discussion", h.history)
	rg.GET("/anime/:id/discussion/ws", h.ws)
}

type incomingMessage struct {
	Text string `json:"text"`
}

func (h *Handler) room(c *gin.Context) (string, bool) {
	animeID := strings.TrimSpace(c.Param("id"))
	if h.Catalog == nil {
		return animeID, animeID != ""
	}
	a, err := h.Catalog.GetByID(c.Request.Context(), animeID)
	if err != nil {
		h.Hub.logger.Error("catalog lookup failed", zap.String("anime_id", animeID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return "", false
	}
	if a == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "anime not found"})
		return "", false
	}
	return animeID, true
}

func (h *Handler) history(c *gin.Context) {
	animeID, ok := h.room(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"anime_id": animeID,
		"members":  h.Hub.Members(animeID),
		"items":    h.Hub.History(animeID),
	})
}

// userFor names the sender: the token's username when one is valid,
// otherwise "anon".
func (h *Handler) userFor(c *gin.Context) string {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" || h.Tokens == nil {
		return "anon"
	}
	claims, err := h.Tokens.Parse(token)
	if err != nil || claims.Username == "" {
		return "anon"
	}
	return claims.Username
}

func (h *Handler) ws(c *gin.Context) {
	animeID, ok := h.room(c)
	if !ok {
		return
	}
	user := h.userFor(c)

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Hub.logger.Debug("ws upgrade failed", zap.Error(err))
		return
	}

	h.Hub.Join(animeID, ws, user)

	for {
		_, payload, err := ws.ReadMessage()
		if err != nil {
			break
		}

		text := strings.TrimSpace(string(payload))
		var incoming incomingMessage
		if json.Unmarshal(payload, &incoming) == nil {
			text = strings.TrimSpace(incoming.Text)
		}
		if text == "" || utf8.RuneCountInString(text) > maxMessageRunes {
			continue
		}

		h.Hub.Broadcast(Message{
			Type:    TypeMessage,
			AnimeID: animeID,
			User:    h.Hub.user(animeID, ws),
			Text:    text,
		})
	}

	h.Hub.Leave(animeID, ws)
}
