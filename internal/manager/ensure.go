package manager

import (
	"context"
	"time"
)

// EnsureInstance loads modelID (or the default model) if it is not already
// serving. Concurrent callers for the same model share one load.
func (m *Manager) EnsureInstance(ctx context.Context, modelID string) error {
	startTs := time.Now()
	modelID, err := m.resolveModelID(modelID)
	if err != nil {
		return err
	}
	m.emit("ensure_start", modelID, nil)

	for {
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return ErrDependencyUnavailable("manager is shut down")
		}
		inst := m.instances[modelID]
		if inst == nil {
			m.mu.Unlock()
			break
		}
		switch inst.State {
		case StateReady:
			inst.LastUsed = time.Now()
			m.mu.Unlock()
			return nil
		case StateDraining:
			m.mu.Unlock()
			return tooBusyError{modelID: modelID}
		}
		loaded := inst.loaded
		m.mu.Unlock()
		// Another caller is loading this model; wait and re-check.
		select {
		case <-loaded:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	mdl, ok := m.getModelByID(modelID)
	if !ok {
		m.emit("ensure_model_not_found", modelID, nil)
		return ErrModelNotFound(modelID)
	}
	reqMB := m.estimateMB(mdl)

	// Evict until it fits budget + margin, if budget configured
	if m.budgetMB > 0 {
		if err := m.evictUntilFits(reqMB); err != nil {
			m.emit("ensure_budget_fail", modelID, map[string]any{"error": err.Error()})
			return err
		}
	}

	m.mu.Lock()
	if _, raced := m.instances[modelID]; raced {
		m.mu.Unlock()
		return m.EnsureInstance(ctx, modelID)
	}
	inst := &Instance{
		ID:       modelID,
		State:    StateLoading,
		LastUsed: time.Now(),
		EstMB:    reqMB,
		Backend:  m.backend,
		loaded:   make(chan struct{}),
		genCh:    make(chan struct{}, m.maxConcurrent),
		queueCh:  make(chan struct{}, m.maxQueueDepth),
	}
	m.instances[modelID] = inst
	// Reserve the estimate now so concurrent loads of other models see it.
	m.usedEstMB += reqMB
	m.state = StateLoading
	m.err = ""
	m.mu.Unlock()

	eng, err := m.loadEngine(ctx, mdl)
	if err != nil {
		m.mu.Lock()
		delete(m.instances, modelID)
		m.usedEstMB -= reqMB
		m.state = StateError
		m.err = err.Error()
		close(inst.loaded)
		m.mu.Unlock()
		m.emit("ensure_load_error", modelID, map[string]any{"error": err.Error()})
		return err
	}

	m.mu.Lock()
	if m.closed {
		// Close ran while we were loading and could not unload us.
		if m.instances[modelID] == inst {
			delete(m.instances, modelID)
			m.usedEstMB -= reqMB
		}
		close(inst.loaded)
		m.mu.Unlock()
		closeEngine(eng)
		m.emit("ensure_closed", modelID, nil)
		return ErrDependencyUnavailable("manager is shut down")
	}
	inst.engine = eng
	inst.State = StateReady
	inst.LastUsed = time.Now()
	m.cur = &ModelInfo{ID: mdl.ID, Name: mdl.Name, Path: mdl.Path, Format: mdl.Format}
	m.state = StateReady
	m.err = ""
	close(inst.loaded)
	m.mu.Unlock()
	m.loadsTotal.Add(1)
	loadsCounter.Inc()
	m.emit("ensure_ready", modelID, map[string]any{
		"dur_ms":  int(time.Since(startTs) / time.Millisecond),
		"backend": m.backend.String(),
		"est_mb":  reqMB,
	})
	return nil
}
