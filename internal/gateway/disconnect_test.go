package gateway

import (
	"testing"
	"time"

	"github.com/johnjansen/sse-gateway/internal/callback"
	"github.com/johnjansen/sse-gateway/internal/registry"
)

func TestUnify_IdempotentDedupBarrier(t *testing.T) {
	fc := newFakeController()
	defer fc.Close()
	g := newTestGateway(fc, time.Second, time.Minute)

	w := &recordingWriter{}
	rec := registry.NewRecord("tok-unify", w, registry.RequestSnapshot{URL: "/sse/x"})
	_ = g.reg.Add(rec)

	g.unify(rec, callback.ReasonClientClosed)
	g.unify(rec, callback.ReasonError) // must be a no-op: Remove already returned false

	discs := 0
	for _, p := range fc.payloads() {
		if p["action"] == "disconnect" {
			discs++
		}
	}
	if discs != 1 {
		t.Errorf("expected exactly one disconnect callback, got %d", discs)
	}
	if !w.closed {
		t.Error("expected writer closed")
	}
}

func TestUnify_CancelsHeartbeatBeforeRemoval(t *testing.T) {
	fc := newFakeController()
	defer fc.Close()
	g := newTestGateway(fc, time.Second, time.Minute)

	w := &recordingWriter{}
	rec := registry.NewRecord("tok-unify-2", w, registry.RequestSnapshot{URL: "/sse/x"})
	_ = g.reg.Add(rec)

	cancelled := false
	registeredAtCancel := false
	rec.SetHeartbeatCancel(func() {
		cancelled = true
		registeredAtCancel = g.reg.Has(rec.Token)
	})

	g.unify(rec, callback.ReasonServerClosed)

	if !cancelled {
		t.Error("expected heartbeat cancel to run as part of the unifier")
	}
	if !registeredAtCancel {
		t.Error("expected heartbeat cancel to run before the record left the registry")
	}
}
