package manager

import "litertlm/internal/litert"

// evictUntilFits closes LRU idle engines until requiredMB fits budget + margin.
// Instances that are loading, busy, queued or holding conversation sessions
// are never evicted.
func (m *Manager) evictUntilFits(requiredMB int) error {
	for {
		m.mu.Lock()
		if m.usedEstMB+requiredMB+m.marginMB <= m.budgetMB {
			m.mu.Unlock()
			return nil
		}
		var lru *Instance
		for _, inst := range m.instances {
			if inst.State != StateReady || !inst.idle() {
				continue
			}
			if lru == nil || inst.LastUsed.Before(lru.LastUsed) {
				lru = inst
			}
		}
		if lru == nil {
			err := budgetExceededError{requiredMB: requiredMB, usedMB: m.usedEstMB, budgetMB: m.budgetMB}
			m.mu.Unlock()
			return err
		}
		delete(m.instances, lru.ID)
		m.usedEstMB -= lru.EstMB
		if m.cur != nil && m.cur.ID == lru.ID {
			m.cur = nil
		}
		eng := lru.engine
		m.mu.Unlock()

		closeEngine(eng)
		m.evictionsTotal.Add(1)
		evictionsCounter.Inc()
		m.emit("evict", lru.ID, map[string]any{"freed_mb": lru.EstMB})
	}
}

func closeEngine(e *litert.Engine) {
	if e != nil {
		_ = e.Close()
	}
}
