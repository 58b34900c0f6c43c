package server

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/eternalApril/moonkv/internal/config"
	"github.com/eternalApril/moonkv/internal/metrics"
	"github.com/eternalApril/moonkv/internal/resp"
)

// acceptBackoff is the pause after a failed Accept before trying again
const acceptBackoff = 10 * time.Millisecond

// Server accepts client connections and serves each one on its own goroutine
type Server struct {
	engine  *Engine
	cfg     *config.Config
	metrics *metrics.Registry // May be nil
	logger  *zap.Logger

	wg    sync.WaitGroup
	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

// NewServer creates a server executing commands on engine
func NewServer(engine *Engine, cfg *config.Config, logger *zap.Logger, m *metrics.Registry) *Server {
	return &Server{
		engine:  engine,
		cfg:     cfg,
		metrics: m,
		logger:  logger,
		conns:   make(map[net.Conn]struct{}),
	}
}

// Serve accepts connections on ln until ctx is cancelled or ln is closed.
// It returns once the listener is closed; connections keep running, see Wait
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() {
		ln.Close() //nolint:errcheck
	})
	defer stop()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logger.Error("Accept error", zap.Error(err))
			time.Sleep(acceptBackoff)
			continue
		}

		s.track(conn)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.untrack(conn)
			s.handleConnection(ctx, conn)
		}()
	}
}

// Wait blocks until every connection is finished. When ctx expires first,
// the remaining connections are closed and ctx.Err() is returned
func (s *Server) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
	}

	s.mu.Lock()
	for conn := range s.conns {
		conn.Close() //nolint:errcheck
	}
	s.mu.Unlock()

	<-done
	return ctx.Err()
}

func (s *Server) track(conn net.Conn) {
	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}

// handleConnection handles a connection for a single user
func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	peer := NewPeer(conn)

	if s.logger.Core().Enabled(zap.DebugLevel) {
		s.logger.Debug("client connected", zap.String("addr", peer.RemoteAddr()))
	}
	if s.metrics != nil {
		s.metrics.ConnectionOpened()
	}

	defer func() {
		peer.Close() //nolint:errcheck
		if s.metrics != nil {
			s.metrics.ConnectionClosed()
		}
		// log connection close
		if s.logger.Core().Enabled(zap.DebugLevel) {
			s.logger.Debug("client disconnected", zap.String("addr", peer.RemoteAddr()))
		}
	}()

	engine := s.engine
	if s.cfg.Storage.Scope == config.ScopeConnection {
		engine = s.engine.Isolated()
	}

	var limiter *rate.Limiter
	if n := s.cfg.Server.RateLimit; n > 0 {
		limiter = rate.NewLimiter(rate.Limit(n), n)
	}

	for {
		cmdValue, err := peer.ReadCommand()

		var result resp.Value
		switch {
		case err == nil:
			if limiter != nil {
				if err := limiter.Wait(ctx); err != nil {
					return
				}
			}
			result = engine.Handle(cmdValue)

		case resp.IsProtocolError(err):
			if s.metrics != nil {
				s.metrics.ProtocolError()
			}
			s.logger.Debug("protocol error", zap.String("addr", peer.RemoteAddr()), zap.Error(err))
			result = resp.MakeError("protocol error: " + err.Error())

		default:
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				s.logger.Warn("read command failed", zap.Error(err))
			}
			return
		}

		if err = peer.Send(result); err != nil {
			s.logger.Error("error writing response:", zap.Error(err))
			return
		}

		if !peer.Pending() {
			if err := peer.Flush(); err != nil {
				return
			}
		}
	}
}
