package gateway

import (
	"errors"
	"sync"
	"time"

	"github.com/johnjansen/sse-gateway/internal/registry"
)

// startHeartbeat arms the periodic keep-alive loop for rec (spec §4.F).
// It is started once, right after the record is inserted (§4.D step
// 7.e), and stops the moment rec.CancelHeartbeat is called by the
// disconnect unifier — never on its own initiative.
func (g *Gateway) startHeartbeat(rec *registry.Record) {
	stop := make(chan struct{})
	var stopOnce sync.Once
	rec.SetHeartbeatCancel(func() { stopOnce.Do(func() { close(stop) }) })

	go func() {
		ticker := time.NewTicker(g.heartbeatInterval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				g.heartbeatTick(rec.Token)
			}
		}
	}()
}

// heartbeatTick runs one tick of spec §4.F: look the record up fresh
// (it may have been removed since the ticker last fired), write the
// heartbeat comment, and never escalate a write problem into a
// disconnect — the stream's own close will reach the listener on its
// own.
func (g *Gateway) heartbeatTick(token string) {
	rec, ok := g.reg.Get(token)
	if !ok {
		return
	}

	switch err := rec.Writer.WriteHeartbeat(); {
	case err == nil:
		// Deliberately not logged: one line per connection per interval
		// would dominate the log (spec §4.F design rationale).
	case errors.Is(err, errBackpressure):
		g.log.Warn("heartbeat backpressured, continuing", "token", token)
	default:
		g.log.Error("heartbeat write failed", "token", token, "error", err)
	}
}
