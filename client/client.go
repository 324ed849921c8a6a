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

package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/poiesic/smartsearch/core"
	"github.com/poiesic/smartsearch/daemon"
)

// Timeouts for talking to the daemon. The probe is short so a missing
// daemon costs almost nothing before falling back to the cold path.
const (
	DefaultProbeTimeout  = 200 * time.Millisecond
	DefaultSearchTimeout = 30 * time.Second
)

// Searcher answers queries. Both a local warm session and a
// RemoteSession satisfy it, so callers pick a path once and search the
// same way either side of the socket.
type Searcher interface {
	Search(ctx context.Context, q *core.Query) ([]core.Result, error)
}

// RemoteSession talks to a running daemon over its loopback protocol.
// The zero value is not usable; use New.
type RemoteSession struct {
	addr          string
	probeTimeout  time.Duration
	searchTimeout time.Duration
	logger        *slog.Logger
}

// Option configures a RemoteSession.
type Option func(*RemoteSession)

// WithProbeTimeout sets the availability probe timeout.
func WithProbeTimeout(d time.Duration) Option {
	return func(r *RemoteSession) {
		if d > 0 {
			r.probeTimeout = d
		}
	}
}

// WithSearchTimeout sets the timeout for search, reload, and stop calls.
func WithSearchTimeout(d time.Duration) Option {
	return func(r *RemoteSession) {
		if d > 0 {
			r.searchTimeout = d
		}
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *RemoteSession) {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
	}
}

// New creates a client for the daemon at host:port.
func New(host string, port int, opts ...Option) *RemoteSession {
	r := &RemoteSession{
		addr:          net.JoinHostPort(host, fmt.Sprintf("%d", port)),
		probeTimeout:  DefaultProbeTimeout,
		searchTimeout: DefaultSearchTimeout,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Available reports whether a daemon answers a ping within the probe
// timeout. Unreachable is an expected state, not an error.
func (r *RemoteSession) Available(ctx context.Context) bool {
	_, err := r.Ping(ctx)
	if err != nil {
		r.logger.Debug("daemon not available", "addr", r.addr, "err", err)
		return false
	}
	return true
}

// Ping returns the daemon's state and loaded index names.
func (r *RemoteSession) Ping(ctx context.Context) (*daemon.Response, error) {
	return r.roundTrip(ctx, &daemon.Request{Command: daemon.CommandPing}, r.probeTimeout)
}

// Search runs a query on the daemon.
func (r *RemoteSession) Search(ctx context.Context, q *core.Query) ([]core.Result, error) {
	hybrid := q.Hybrid
	resp, err := r.roundTrip(ctx, &daemon.Request{
		Command:   daemon.CommandSearch,
		Query:     q.Text,
		Scope:     q.Scope,
		Index:     q.Index,
		Hybrid:    &hybrid,
		Limit:     q.Limit,
		Threshold: q.Threshold,
	}, r.searchTimeout)
	if err != nil {
		return nil, err
	}
	if resp.Results == nil {
		return []core.Result{}, nil
	}
	return resp.Results, nil
}

// Reload asks the daemon to re-read its indices from disk.
func (r *RemoteSession) Reload(ctx context.Context) error {
	_, err := r.roundTrip(ctx, &daemon.Request{Command: daemon.CommandReload}, r.searchTimeout)
	return err
}

// Stop asks the daemon to shut down gracefully.
func (r *RemoteSession) Stop(ctx context.Context) error {
	_, err := r.roundTrip(ctx, &daemon.Request{Command: daemon.CommandStop}, r.searchTimeout)
	return err
}

// roundTrip performs one request/response exchange on a fresh connection.
// Transport failures wrap core.ErrDaemonUnreachable; a daemon-side error
// response comes back as a plain error with the daemon's message.
func (r *RemoteSession) roundTrip(ctx context.Context, req *daemon.Request, timeout time.Duration) (*daemon.Response, error) {
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", r.addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrDaemonUnreachable, err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(timeout))

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrDaemonUnreachable, err)
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		tc.CloseWrite()
	}

	var resp daemon.Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrDaemonUnreachable, err)
	}
	if resp.Status != daemon.StatusOK {
		return nil, errors.New(resp.Error)
	}
	return &resp, nil
}
