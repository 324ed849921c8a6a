// Package daemon exposes a warm session over a loopback TCP listener.
//
// The protocol is deliberately small: each connection carries one JSON
// request and one JSON response, then closes. Commands are search,
// reload, ping, and stop. Binding only to 127.0.0.1 keeps the daemon
// private to the machine; there is no authentication layer.
package daemon
