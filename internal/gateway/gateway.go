// Package gateway implements the connect/send/heartbeat/disconnect
// protocol state machine described in spec §4.D-G: the orchestration
// layer that sits on top of internal/registry (storage), internal/callback
// (controller I/O), and internal/eventformat (wire framing).
//
// The package mirrors the shape of the teacher's sse package (Broker +
// Handler, one mutex-guarded map, one select loop per connection) but
// replaces its session-replay/reconnection semantics with the gateway's
// callback-driven accept/reject protocol.
package gateway

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/johnjansen/sse-gateway/internal/callback"
	"github.com/johnjansen/sse-gateway/internal/registry"
)

// Gateway wires the registry, the controller callback client, and the
// heartbeat interval into the three HTTP-facing operations: Connect,
// Send, and the disconnect unifier they both eventually call into.
//
// There are no package-level globals; every request-scoped handler
// closes over a *Gateway built once at startup (spec §9's "single
// immutable record... no globals", applied to the core's own wiring).
type Gateway struct {
	reg                *registry.Registry
	cb                 *callback.Client
	log                *slog.Logger
	heartbeatInterval  time.Duration
	callbackConfigured bool
}

// New builds a Gateway. cb may be nil iff callbackConfigured is false,
// matching the "no callback URL configured" guard of spec §4.D step 1 and
// §6's health/readiness contract.
func New(reg *registry.Registry, cb *callback.Client, log *slog.Logger, heartbeatInterval time.Duration, callbackConfigured bool) *Gateway {
	return &Gateway{
		reg:                reg,
		cb:                 cb,
		log:                log,
		heartbeatInterval:  heartbeatInterval,
		callbackConfigured: callbackConfigured,
	}
}

// Len reports the current registry size, for stats reporting (the
// process logs it at shutdown).
func (g *Gateway) Len() int {
	return g.reg.Len()
}

// snapshotHeaders copies r's headers into the lowercase-keyed,
// nil-filtered shape spec §3 requires for request.headers: multi-value
// headers are preserved, but a key with no values is dropped entirely
// rather than forwarded as an empty slice.
func snapshotHeaders(h http.Header) map[string][]string {
	out := make(map[string][]string, len(h))
	for name, values := range h {
		if len(values) == 0 {
			continue
		}
		out[httpHeaderKeyLower(name)] = append([]string(nil), values...)
	}
	return out
}

func httpHeaderKeyLower(name string) string {
	b := []byte(name)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// requestURL returns the byte-verbatim path+query for req, falling back
// to "/sse/unknown" per spec §3/§4.D step 3.
func requestURL(r *http.Request) string {
	if r.URL == nil || r.URL.RequestURI() == "" {
		return "/sse/unknown"
	}
	return r.URL.RequestURI()
}

// writeJSONError writes a {"error": "..."} body at the given status, the
// uniform failure shape for both client-facing endpoints (spec §6).
func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
