package gateway

import (
	"context"

	"github.com/johnjansen/sse-gateway/internal/callback"
	"github.com/johnjansen/sse-gateway/internal/registry"
)

// unify is the single disconnect code path (spec §4.G), reachable from
// the stream-close listener ("client_closed"), the send handler's write
// failure path ("error"), and the send handler's explicit close path
// ("server_closed"). The heartbeat is cancelled before the registry
// removal (invariant I3; CancelHeartbeat is idempotent, so a losing
// caller cancelling again is harmless). Exactly one caller ever gets
// past the Remove check for a given token, because Remove is the dedup
// barrier (invariant I4, P2).
func (g *Gateway) unify(rec *registry.Record, reason callback.Reason) {
	rec.CancelHeartbeat()

	if !g.reg.Remove(rec.Token) {
		return
	}

	_ = rec.Writer.Close()

	info := callback.RequestInfo{URL: rec.Request.URL, Headers: rec.Request.Headers}
	result := g.cb.Disconnect(context.Background(), rec.Token, reason, info)
	if !result.Success {
		g.log.Error("disconnect callback failed",
			"token", rec.Token, "reason", reason, "error_type", result.ErrorType)
	}
}
