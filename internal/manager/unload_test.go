package manager

import (
	"context"
	"testing"
	"time"

	"litertlm/internal/native/nativetest"
)

func TestUnload_RemovesInstanceAndUpdatesAccounting(t *testing.T) {
	f := nativetest.New()
	m := newTestManager(t, f, ManagerConfig{MaxQueueDepth: 2, DrainTimeout: 200 * time.Millisecond})
	if err := m.EnsureInstance(context.Background(), "m"); err != nil {
		t.Fatalf("EnsureInstance: %v", err)
	}
	if err := m.Unload("m"); err != nil {
		t.Fatalf("Unload: %v", err)
	}
	m.mu.RLock()
	_, exists := m.instances["m"]
	used := m.usedEstMB
	m.mu.RUnlock()
	if exists {
		t.Fatalf("instance still exists after unload")
	}
	if used != 0 {
		t.Fatalf("usedEstMB not released: %d", used)
	}
	if f.Live("") != 0 {
		t.Fatalf("engine not released: %d live handles", f.Live(""))
	}
	if m.Snapshot().State != StateIdle {
		t.Fatalf("expected idle after last unload, got %s", m.Snapshot().State)
	}
}

func TestUnload_UnknownModel(t *testing.T) {
	m := newTestManager(t, nativetest.New(), ManagerConfig{})
	if err := m.Unload(""); !IsModelNotFound(err) {
		t.Fatalf("expected not found for empty id, got %v", err)
	}
	if err := m.Unload("m"); !IsModelNotFound(err) {
		t.Fatalf("expected not found for unloaded model, got %v", err)
	}
}

func TestUnload_WaitsForInflightAndRejectsNewWork(t *testing.T) {
	f := nativetest.New()
	m := newTestManager(t, f, ManagerConfig{DrainTimeout: time.Second})
	if err := m.EnsureInstance(context.Background(), "m"); err != nil {
		t.Fatalf("EnsureInstance: %v", err)
	}
	rel, err := m.beginGeneration(context.Background(), "m")
	if err != nil {
		t.Fatalf("beginGeneration: %v", err)
	}
	done := make(chan error, 1)
	go func() { done <- m.Unload("m") }()

	waitFor(t, "draining", func() bool { return m.Status().DrainingCount == 1 })
	if _, err := m.beginGeneration(context.Background(), "m"); !IsTooBusy(err) {
		t.Fatalf("expected draining instance to reject work, got %v", err)
	}
	if f.Count(nativetest.EngineDelete) != 0 {
		t.Fatalf("engine deleted while a generation was in flight")
	}
	rel()
	if err := <-done; err != nil {
		t.Fatalf("Unload: %v", err)
	}
	if f.Count(nativetest.EngineDelete) != 1 {
		t.Fatalf("expected engine deleted once, got %d", f.Count(nativetest.EngineDelete))
	}
}

func TestUnload_ClosesConversationSessions(t *testing.T) {
	f := nativetest.New()
	m := newTestManager(t, f, ManagerConfig{})
	s, err := m.OpenSession(context.Background(), "m")
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	if err := m.Unload("m"); err != nil {
		t.Fatalf("Unload: %v", err)
	}
	if _, err := m.SessionGenerate(context.Background(), s.ID, "hi"); !IsSessionNotFound(err) {
		t.Fatalf("expected session not found after unload, got %v", err)
	}
	calls := f.Calls()
	tail := calls[len(calls)-3:]
	want := []string{nativetest.SessionDelete, nativetest.EngineDelete, nativetest.EngineSettingsDelete}
	for i := range want {
		if tail[i] != want[i] {
			t.Fatalf("teardown order: got %v want %v", tail, want)
		}
	}
}
