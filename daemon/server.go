// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"syscall"
	"time"

	"github.com/poiesic/smartsearch/core"
	"github.com/poiesic/smartsearch/session"
)

// Defaults for the loopback listener.
const (
	DefaultHost = "127.0.0.1"
	DefaultPort = 5555
)

const (
	connTimeout   = 30 * time.Second
	shutdownGrace = 5 * time.Second
)

// Server answers search protocol requests over a loopback TCP listener.
// Each connection carries exactly one JSON request and one JSON response.
//
// A stop command and an OS signal share the same shutdown path: the
// listener closes, in-flight connections get a bounded grace period, and
// the session is marked stopping so late requests fail fast.
type Server struct {
	session *session.Session
	addr    string
	logger  *slog.Logger

	mu       sync.Mutex
	listener net.Listener
	conns    sync.WaitGroup
	stopOnce sync.Once
	stopped  chan struct{}
}

// Option configures a Server.
type Option func(*Server)

// WithAddr sets the listen address.
// Default is 127.0.0.1:5555.
func WithAddr(host string, port int) Option {
	return func(s *Server) {
		s.addr = net.JoinHostPort(host, fmt.Sprintf("%d", port))
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
	}
}

// New creates a daemon server around a started session.
func New(sess *session.Session, opts ...Option) (*Server, error) {
	if sess == nil {
		return nil, ErrSessionRequired
	}
	s := &Server{
		session: sess,
		addr:    net.JoinHostPort(DefaultHost, fmt.Sprintf("%d", DefaultPort)),
		logger:  slog.Default(),
		stopped: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Addr returns the listener address once ListenAndServe has bound it.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// ListenAndServe binds the listener and serves until the context is
// canceled or a stop command arrives. Returns core.ErrAlreadyRunning if
// the address is taken, which almost always means another daemon holds it.
func (s *Server) ListenAndServe(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		if errors.Is(err, syscall.EADDRINUSE) {
			return fmt.Errorf("%w: %s", core.ErrAlreadyRunning, s.addr)
		}
		return err
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()
	s.logger.Info("daemon listening", "addr", s.Addr(), "indices", s.session.Loaded())

	go func() {
		select {
		case <-ctx.Done():
			s.Shutdown()
		case <-s.stopped:
		}
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-s.stopped:
				return s.drain()
			default:
				return err
			}
		}
		s.conns.Add(1)
		go func() {
			defer s.conns.Done()
			s.handleConn(ctx, conn)
		}()
	}
}

// Shutdown stops accepting connections and marks the session stopping.
// Safe to call more than once and from any goroutine.
func (s *Server) Shutdown() {
	s.stopOnce.Do(func() {
		s.logger.Info("daemon shutting down")
		s.session.Stop()
		close(s.stopped)
		s.mu.Lock()
		if s.listener != nil {
			s.listener.Close()
		}
		s.mu.Unlock()
	})
}

// drain waits for in-flight connections, bounded by the grace period.
func (s *Server) drain() error {
	done := make(chan struct{})
	go func() {
		s.conns.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(shutdownGrace):
		s.logger.Warn("shutdown grace period elapsed with connections open")
	}
	return nil
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(connTimeout))

	var req Request
	decoder := json.NewDecoder(io.LimitReader(conn, maxRequestBytes))
	if err := decoder.Decode(&req); err != nil {
		s.respond(conn, &Response{Status: StatusError, Error: "malformed request: " + err.Error()})
		return
	}

	s.respond(conn, s.dispatch(ctx, &req))

	if req.Command == CommandStop {
		s.Shutdown()
	}
}

func (s *Server) dispatch(ctx context.Context, req *Request) *Response {
	switch req.Command {
	case CommandPing:
		return &Response{
			Status:  StatusOK,
			State:   s.session.State().String(),
			Indices: s.session.Loaded(),
		}

	case CommandSearch:
		results, err := s.session.Search(ctx, req.ToQuery())
		if err != nil {
			s.logger.Warn("search failed", "err", err)
			return &Response{Status: StatusError, Error: err.Error()}
		}
		return &Response{Status: StatusOK, Results: results}

	case CommandReload:
		if err := s.session.Reload(ctx); err != nil {
			s.logger.Error("reload failed", "err", err)
			return &Response{Status: StatusError, Error: err.Error()}
		}
		return &Response{Status: StatusOK, Indices: s.session.Loaded()}

	case CommandStop:
		return &Response{Status: StatusOK}

	default:
		return &Response{Status: StatusError, Error: fmt.Sprintf("unknown command %q", req.Command)}
	}
}

func (s *Server) respond(conn net.Conn, resp *Response) {
	if err := json.NewEncoder(conn).Encode(resp); err != nil {
		s.logger.Debug("write response failed", "err", err)
	}
}

// maxRequestBytes bounds one request. Generous next to the query length
// limit so the cap never bites a legal request.
const maxRequestBytes = 4 * core.MaxQueryLength
