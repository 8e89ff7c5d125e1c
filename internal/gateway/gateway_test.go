package gateway

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/johnjansen/sse-gateway/internal/callback"
	"github.com/johnjansen/sse-gateway/internal/registry"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeController is a minimal stand-in for the trusted backend: it
// answers every connect POST with a pre-set status/body and every
// disconnect POST with a bare 200 (both after the pre-set delay), and
// records every payload it receives for assertions.
type fakeController struct {
	srv *httptest.Server

	mu              sync.Mutex
	connectStatus   int
	connectBody     string
	connectDelay    time.Duration
	received        []map[string]any
}

func newFakeController() *fakeController {
	fc := &fakeController{connectStatus: http.StatusOK, connectBody: "{}"}
	fc.srv = httptest.NewServer(http.HandlerFunc(fc.handle))
	return fc
}

func (fc *fakeController) handle(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	_ = json.NewDecoder(r.Body).Decode(&payload)

	fc.mu.Lock()
	fc.received = append(fc.received, payload)
	delay := fc.connectDelay
	status := fc.connectStatus
	body := fc.connectBody
	fc.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	if payload["action"] == "disconnect" {
		w.WriteHeader(http.StatusOK)
		return
	}

	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func (fc *fakeController) setConnectResponse(status int, body string) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.connectStatus = status
	fc.connectBody = body
}

func (fc *fakeController) setConnectDelay(d time.Duration) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.connectDelay = d
}

func (fc *fakeController) payloads() []map[string]any {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	out := make([]map[string]any, len(fc.received))
	copy(out, fc.received)
	return out
}

func (fc *fakeController) lastOfAction(action string) map[string]any {
	all := fc.payloads()
	for i := len(all) - 1; i >= 0; i-- {
		if all[i]["action"] == action {
			return all[i]
		}
	}
	return nil
}

func (fc *fakeController) Close() { fc.srv.Close() }

func newTestGateway(fc *fakeController, timeout, heartbeatInterval time.Duration) *Gateway {
	reg := registry.New()
	cb := callback.New(fc.srv.URL, timeout, discardLogger())
	return New(reg, cb, discardLogger(), heartbeatInterval, true)
}
