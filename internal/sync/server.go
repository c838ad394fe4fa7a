package sync

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"go.uber.org/zap"
)

// Server accepts TCP subscribers for the hub's newline-delimited JSON stream.
type Server struct {
	Addr string
	Hub  *Hub
}

func NewServer(addr string, hub *Hub) *Server {
	return &Server{Addr: addr, Hub: hub}
}

// Run listens on Addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts on ln until ctx is cancelled, then disconnects every client
// and waits for their readers to exit.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	log := s.Hub.logger.With(zap.Stringer("addr", ln.Addr()))
	log.Info("tcp sync listening")

	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	var wg sync.WaitGroup
	defer func() {
		s.Hub.CloseAll()
		wg.Wait()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			log.Warn("accept failed", zap.Error(err))
			continue
		}

		_, _ = conn.Write(s.Hub.welcome("tcp"))
		s.Hub.Add(conn)
		log.Debug("client connected", zap.Stringer("remote", conn.RemoteAddr()))

		wg.Add(1)
		go func(c net.Conn) {
			defer wg.Done()
			defer func() {
				s.Hub.Remove(c)
				log.Debug("client disconnected", zap.Stringer("remote", c.RemoteAddr()))
			}()

			// subscribers never send anything meaningful; drain until EOF
			sc := bufio.NewScanner(c)
			for sc.Scan() {
			}
		}(conn)
	}
}
