package daemon

import "github.com/poiesic/smartsearch/core"

// Commands understood by the daemon.
const (
	CommandSearch = "search"
	CommandReload = "reload"
	CommandPing   = "ping"
	CommandStop   = "stop"
)

// Response statuses.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Request is one client command. The protocol is one JSON request and one
// JSON response per connection; the client half-closes after writing.
type Request struct {
	Command   string  `json:"command"`
	Query     string  `json:"query,omitempty"`
	Scope     string  `json:"scope,omitempty"`
	Index     string  `json:"index,omitempty"`
	Hybrid    *bool   `json:"hybrid,omitempty"` // nil means hybrid on
	Limit     int     `json:"limit,omitempty"`
	Threshold float32 `json:"threshold,omitempty"`
}

// ToQuery converts a search request to a query.
func (r *Request) ToQuery() *core.Query {
	hybrid := true
	if r.Hybrid != nil {
		hybrid = *r.Hybrid
	}
	return &core.Query{
		Text:      r.Query,
		Scope:     r.Scope,
		Index:     r.Index,
		Hybrid:    hybrid,
		Limit:     r.Limit,
		Threshold: r.Threshold,
	}
}

// Response is the daemon's answer to one request.
type Response struct {
	Status  string        `json:"status"`
	Error   string        `json:"error,omitempty"`
	Results []core.Result `json:"results,omitempty"`
	State   string        `json:"state,omitempty"`   // ping only
	Indices []string      `json:"indices,omitempty"` // ping only
}
