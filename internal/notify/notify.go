// Package notify delivers new-episode alerts as UDP datagrams. Clients
// announce themselves with a register datagram and are dropped after a
// failed send.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	animesync "animehub/internal/sync"
)

const (
	RegisterMessageType   = "register"
	UnregisterMessageType = "unregister"
	NewEpisodeMessageType = "new_episode"
)

type RegisterMessage struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
}

type NewEpisodeMessage struct {
	Type     string    `json:"type"`
	AnimeID  string    `json:"anime_id"`
	Title    string    `json:"title"`
	Episodes int       `json:"episodes"`
	Previous int       `json:"previous"`
	At       time.Time `json:"at"`
}

type Client struct {
	UserID string
	Addr   *net.UDPAddr
}

type Registry struct {
	mu      sync.RWMutex
	clients map[string]Client
}

func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]Client)}
}

func (r *Registry) Register(userID string, addr *net.UDPAddr) {
	if userID == "" || addr == nil {
		return
	}
	r.mu.Lock()
	r.clients[userID] = Client{UserID: userID, Addr: addr}
	r.mu.Unlock()
}

func (r *Registry) Remove(userID string) {
	r.mu.Lock()
	delete(r.clients, userID)
	r.mu.Unlock()
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

func (r *Registry) Snapshot() []Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	clients := make([]Client, 0, len(r.clients))
	for _, client := range r.clients {
		clients = append(clients, client)
	}
	return clients
}

// Audience narrows a notification to the users following an anime.
type Audience interface {
	Watchers(ctx context.Context, animeID string) ([]string, error)
}

type Server struct {
	addr     string
	registry *Registry
	audience Audience
	logger   *zap.Logger

	mu   sync.RWMutex
	conn *net.UDPConn
}

// NewServer builds a notifier on addr. With a nil audience every registered
// client hears about every anime.
func NewServer(addr string, registry *Registry, audience Audience, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if registry == nil {
		registry = NewRegistry()
	}
	return &Server{addr: addr, registry: registry, audience: audience, logger: logger.Named("notify")}
}

// Run listens on the configured address until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	udpAddr, err := net.ResolveUDPAddr("udp", s.addr)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", s.addr, err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	return s.Serve(ctx, conn)
}

// Serve reads register datagrams from conn until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, conn *net.UDPConn) error {
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()
	defer func() {
		s.mu.Lock()
		s.conn = nil
		s.mu.Unlock()
		_ = conn.Close()
	}()

	s.logger.Info("udp notify listening", zap.Stringer("addr", conn.LocalAddr()))

	buffer := make([]byte, 2048)
	for {
		n, addr, err := conn.ReadFromUDP(buffer)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("read udp: %w", err)
		}
		msg, err := parseRegisterMessage(buffer[:n])
		if err != nil {
			s.logger.Debug("invalid datagram", zap.Stringer("from", addr), zap.Error(err))
			continue
		}
		switch msg.Type {
		case RegisterMessageType:
			s.registry.Register(msg.UserID, addr)
			s.logger.Info("client registered", zap.String("user_id", msg.UserID), zap.Stringer("addr", addr))
		case UnregisterMessageType:
			s.registry.Remove(msg.UserID)
			s.logger.Info("client unregistered", zap.String("user_id", msg.UserID))
		}
	}
}

// NotifyEpisodes sends ev to every registered client in its audience and
// reports how many datagrams went out.
func (s *Server) NotifyEpisodes(ctx context.Context, ev animesync.EpisodeEvent) int {
	s.mu.RLock()
	conn := s.conn
	s.mu.RUnlock()
	if conn == nil {
		s.logger.Warn("notify server not running")
		return 0
	}

	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	payload, err := json.Marshal(NewEpisodeMessage{
		Type:     NewEpisodeMessageType,
		AnimeID:  ev.AnimeID,
		Title:    ev.Title,
		Episodes: ev.Episodes,
		Previous: ev.Previous,
		At:       ev.At,
	})
	if err != nil {
		s.logger.Error("marshal notification", zap.Error(err))
		return 0
	}

	clients := s.registry.Snapshot()
	if s.audience != nil {
		users, err := s.audience.Watchers(ctx, ev.AnimeID)
		if err != nil {
			s.logger.Error("audience lookup failed", zap.String("anime_id", ev.AnimeID), zap.Error(err))
			return 0
		}
		clients = only(clients, users)
	}

	sent := 0
	for _, client := range clients {
		if s.sendWithRetry(conn, client, payload) {
			sent++
		}
	}
	return sent
}

func only(clients []Client, userIDs []string) []Client {
	keep := make(map[string]struct{}, len(userIDs))
	for _, id := range userIDs {
		keep[id] = struct{}{}
	}
	out := clients[:0]
	for _, c := range clients {
		if _, ok := keep[c.UserID]; ok {
			out = append(out, c)
		}
	}
	return out
}

func (s *Server) sendWithRetry(conn *net.UDPConn, client Client, payload []byte) bool {
	if err := sendOnce(conn, client, payload); err == nil {
		return true
	}
	if err := sendOnce(conn, client, payload); err != nil {
		s.logger.Warn("notify failed",
			zap.String("user_id", client.UserID), zap.Stringer("addr", client.Addr), zap.Error(err))
		s.registry.Remove(client.UserID)
		return false
	}
	return true
}

func sendOnce(conn *net.UDPConn, client Client, payload []byte) error {
	if client.Addr == nil {
		return errors.New("missing client address")
	}
	_, err := conn.WriteToUDP(payload, client.Addr)
	return err
}

func parseRegisterMessage(data []byte) (RegisterMessage, error) {
	var msg RegisterMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return msg, err
	}
	if msg.UserID == "" || msg.Type == "" {
		return msg, errors.New("missing required fields")
	}
	return msg, nil
}
