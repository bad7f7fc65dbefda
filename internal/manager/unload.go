package manager

import (
	"time"

	"go.uber.org/multierr"
)

// Unload initiates a graceful drain of a model instance and removes it.
//   - Sets instance state to draining to reject new enqueues.
//   - Waits up to drainTimeout for in-flight and queued requests to finish.
//   - Closes the model's conversation sessions, then its engine.
func (m *Manager) Unload(modelID string) error {
	if modelID == "" {
		return ErrModelNotFound("(unspecified)")
	}
	m.mu.Lock()
	inst := m.instances[modelID]
	if inst == nil || inst.State == StateLoading {
		m.mu.Unlock()
		return ErrModelNotFound(modelID)
	}
	if inst.State == StateDraining {
		m.mu.Unlock()
		return tooBusyError{modelID: modelID}
	}
	inst.State = StateDraining
	m.mu.Unlock()
	m.emit("unload_start", modelID, nil)

	deadline := time.Now().Add(m.drainTimeout)
	for {
		qlen := len(inst.queueCh)
		inflight := len(inst.genCh)
		if inflight == 0 && qlen == 0 {
			break
		}
		if time.Now().After(deadline) {
			m.emit("unload_timeout", modelID, map[string]any{"inflight": inflight, "queue": qlen})
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	var err error
	for _, cs := range m.takeSessions(modelID) {
		err = multierr.Append(err, cs.sess.Close())
	}

	m.mu.Lock()
	if m.instances[modelID] == inst {
		delete(m.instances, modelID)
		m.usedEstMB -= inst.EstMB
		if m.usedEstMB < 0 {
			m.usedEstMB = 0
		}
	}
	if m.cur != nil && m.cur.ID == modelID {
		m.cur = nil
	}
	if len(m.instances) == 0 && m.state == StateReady {
		m.state = StateIdle
	}
	m.mu.Unlock()

	// Sessions still running an abandoned call keep the native engine alive
	// until they finish; Close only drops the manager's reference.
	closeEngine(inst.engine)
	m.emit("unload_done", modelID, nil)
	return err
}
