package notify

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	animesync "animehub/internal/sync"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type staticAudience []string

func (a staticAudience) Watchers(context.Context, string) ([]string, error) { return a, nil }

func startServer(t *testing.T, audience Audience) (*Server, *net.UDPAddr) {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)

	srv := NewServer("", NewRegistry(), audience, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, conn) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})
	return srv, conn.LocalAddr().(*net.UDPAddr)
}

func register(t *testing.T, srv *Server, server *net.UDPAddr, userID string) *net.UDPConn {
	t.Helper()
	client, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	before := srv.registry.Len()
	payload, _ := json.Marshal(RegisterMessage{Type: RegisterMessageType, UserID: userID})
	_, err = client.WriteToUDP(payload, server)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return srv.registry.Len() > before }, 2*time.Second, 10*time.Millisecond)
	return client
}

func receive(t *testing.T, c *net.UDPConn) (NewEpisodeMessage, error) {
	t.Helper()
	_ = c.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	buf := make([]byte, 2048)
	n, _, err := c.ReadFromUDP(buf)
	var msg NewEpisodeMessage
	if err == nil {
		err = json.Unmarshal(buf[:n], &msg)
	}
	return msg, err
}

func TestNotifyEpisodesReachesRegisteredClients(t *testing.T) {
	srv, addr := startServer(t, nil)
	client := register(t, srv, addr, "u1")

	sent := srv.NotifyEpisodes(context.Background(), animesync.EpisodeEvent{AnimeID: "frieren", Title: "Frieren", Episodes: 12, Previous: 11})
	assert.Equal(t, 1, sent)

	msg, err := receive(t, client)
	require.NoError(t, err)
	assert.Equal(t, NewEpisodeMessageType, msg.Type)
	assert.Equal(t, "frieren", msg.AnimeID)
	assert.Equal(t, 12, msg.Episodes)
	assert.Equal(t, 11, msg.Previous)
}

func TestNotifyEpisodesHonorsAudience(t *testing.T) {
	srv, addr := startServer(t, staticAudience{"u2"})
	c1 := register(t, srv, addr, "u1")
	c2 := register(t, srv, addr, "u2")

	assert.Equal(t, 1, srv.NotifyEpisodes(context.Background(), animesync.EpisodeEvent{AnimeID: "x", Episodes: 2}))

	_, err := receive(t, c2)
	require.NoError(t, err)
	_, err = receive(t, c1)
	assert.Error(t, err)
}

func TestNotifyWithoutListener(t *testing.T) {
	srv := NewServer(":0", nil, nil, nil)
	assert.Zero(t, srv.NotifyEpisodes(context.Background(), animesync.EpisodeEvent{AnimeID: "x"}))
}

func TestParseRegisterMessage(t *testing.T) {
	_, err := parseRegisterMessage([]byte(`{"type":"register"}`))
	assert.Error(t, err)
	_, err = parseRegisterMessage([]byte(`nope`))
	assert.Error(t, err)
	msg, err := parseRegisterMessage([]byte(`{"type":"register","user_id":"u1"}`))
	require.NoError(t, err)
	assert.Equal(t, "u1", msg.UserID)
}
