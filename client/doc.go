// Package client talks to a running daemon and decides between the warm
// and cold search paths.
//
// A short availability probe keeps the common case fast: if a daemon
// answers within the probe timeout the query runs against its warm
// indices; otherwise the caller falls back to loading indices in
// process. Transport failures wrap core.ErrDaemonUnreachable so callers
// can treat an absent daemon as routine rather than fatal.
package client
