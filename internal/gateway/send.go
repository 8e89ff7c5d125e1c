package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/johnjansen/sse-gateway/internal/callback"
	"github.com/johnjansen/sse-gateway/internal/eventformat"
	"github.com/johnjansen/sse-gateway/internal/registry"
)

// eventSpec is the parsed, type-checked (name?, data) pair shared between
// the send handler and the connect handler's callback-response
// first-event step (spec §4.D.7.f and §4.E).
type eventSpec struct {
	Name string
	Data string
}

// sendRequestBody mirrors the JSON shape of spec §4.E. Event.Data is
// decoded as raw JSON first so a wrong type (number, object, ...) can be
// rejected with a specific message instead of falling through to the
// generic "malformed body" response.
type sendRequestBody struct {
	Token string `json:"token"`
	Event *struct {
		Name string          `json:"name"`
		Data json.RawMessage `json:"data"`
	} `json:"event"`
	Close *bool `json:"close"`
}

// Send handles POST /internal/send (spec §4.E).
func (g *Gateway) Send(w http.ResponseWriter, r *http.Request) {
	if !g.callbackConfigured {
		writeJSONError(w, http.StatusServiceUnavailable, "callback url not configured")
		return
	}

	var body sendRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSONError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if body.Token == "" {
		writeJSONError(w, http.StatusBadRequest, "missing token")
		return
	}

	var evt *eventSpec
	if body.Event != nil {
		if len(body.Event.Data) == 0 {
			writeJSONError(w, http.StatusBadRequest, "event.data is required when event is present")
			return
		}
		var data string
		if err := json.Unmarshal(body.Event.Data, &data); err != nil {
			writeJSONError(w, http.StatusBadRequest, "event.data must be a string")
			return
		}
		evt = &eventSpec{Name: body.Event.Name, Data: data}
	}

	rec, ok := g.reg.Get(body.Token)
	if !ok {
		writeJSONError(w, http.StatusNotFound, "unknown token")
		return
	}

	doClose := body.Close != nil && *body.Close
	if err := g.applyEventThenClose(rec, evt, doClose); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "write failure")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// applyEventThenClose is the shared "event-then-close" routine of spec
// §4.E, reused verbatim by the connect handler for a callback response
// that piggy-backs a first event/close (§4.D.7.f). The event, if any,
// always reaches the writer before any close action — satisfying the
// ordering contract of §4.E and property P3 — because the close branch
// is unreachable until the write above it returns without error.
func (g *Gateway) applyEventThenClose(rec *registry.Record, evt *eventSpec, doClose bool) error {
	if evt != nil {
		framed := eventformat.Format(evt.Name, evt.Data)
		if err := rec.Writer.WriteEvent(framed); err != nil {
			g.log.Error("event write failed", "token", rec.Token, "error", err)
			g.unify(rec, callback.ReasonError)
			return err
		}
	}

	if doClose {
		g.unify(rec, callback.ReasonServerClosed)
	}

	return nil
}
