package gateway

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/johnjansen/sse-gateway/internal/callback"
	"github.com/johnjansen/sse-gateway/internal/registry"
)

// Connect handles GET /sse/* (spec §4.D). It is the only place a
// ConnectionRecord is created, and the only place it is inserted into
// the registry.
func (g *Gateway) Connect(w http.ResponseWriter, r *http.Request) {
	// Step 1: guard.
	if !g.callbackConfigured {
		writeJSONError(w, http.StatusServiceUnavailable, "callback url not configured")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSONError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	// Steps 2-4: token, request snapshot, transient record.
	token := uuid.NewString()
	url := requestURL(r)
	headers := snapshotHeaders(r.Header)

	sw := NewStreamWriter(w, flusher)
	rec := registry.NewRecord(token, sw, registry.RequestSnapshot{URL: url, Headers: headers})

	// Step 5: arm the disconnect listener before issuing the callback.
	go g.armDisconnectListener(r.Context(), rec)

	// Step 6: connect callback. Deliberately context.Background() rather
	// than r.Context(): an aborting client must not cancel a callback
	// already in flight (spec §8 scenario 6 — "connect callback
	// eventually succeeds"). The deadline (CALLBACK_TIMEOUT_SECONDS, 5s
	// by default) lives inside the client.
	result := g.cb.Connect(context.Background(), token, callback.RequestInfo{URL: url, Headers: headers})

	// Step 7: dispatch on result.
	switch result.ErrorType {
	case callback.ErrorTimeout:
		writeJSONError(w, http.StatusGatewayTimeout, "connect callback timed out")
		return
	case callback.ErrorNetwork:
		writeJSONError(w, http.StatusServiceUnavailable, "connect callback unreachable")
		return
	case callback.ErrorHTTPError:
		w.WriteHeader(result.StatusCode)
		return
	}

	// 7.a: re-check disconnected before doing anything observable.
	var abandoned bool
	rec.Guard(func(gd *registry.Guarded) {
		abandoned = gd.Disconnected()
	})
	if abandoned {
		g.log.Info("client disconnected during callback", "token", token)
		return
	}

	// 7.b: SSE headers, flushed immediately so EventSource sees the
	// connection as open.
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// 7.c/d: second re-check, made atomic with the registry insert via
	// Guarded.TryInsert so the disconnect listener cannot observe a
	// record that is neither disconnected nor yet inMap.
	var inserted bool
	var insertErr error
	rec.Guard(func(gd *registry.Guarded) {
		if gd.Disconnected() {
			return
		}
		insertErr = gd.TryInsert(g.reg)
		inserted = insertErr == nil
	})
	if !inserted {
		if insertErr != nil {
			g.log.Error("failed to insert connection record", "token", token, "error", insertErr)
		} else {
			g.log.Info("client disconnected during callback", "token", token)
		}
		return
	}

	// 7.e: start the heartbeat loop.
	g.startHeartbeat(rec)

	// 7.f: apply an optional first event/close piggy-backed on the
	// callback response, via the same routine /internal/send uses.
	if body := result.ResponseBody; body != nil && (body.Event != nil || body.Close) {
		var evt *eventSpec
		if body.Event != nil {
			evt = &eventSpec{Name: body.Event.Name, Data: body.Event.Data}
		}
		_ = g.applyEventThenClose(rec, evt, body.Close)
	}

	// Step 8: hold the response open until the listener or a later
	// send/close handler ends it.
	<-sw.Done()
}

// armDisconnectListener implements spec §4.D step 5: it blocks until the
// underlying request context is done (the client went away, or this same
// handler goroutine returned), then decides between running the unifier
// and simply marking the transient record disconnected, depending on
// whether the record ever made it into the registry.
func (g *Gateway) armDisconnectListener(ctx context.Context, rec *registry.Record) {
	<-ctx.Done()

	var runUnifier bool
	rec.Guard(func(gd *registry.Guarded) {
		if gd.InMap() {
			runUnifier = true
			return
		}
		gd.MarkDisconnected()
	})

	if runUnifier {
		g.unify(rec, callback.ReasonClientClosed)
	}
}
