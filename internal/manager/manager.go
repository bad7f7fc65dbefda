package manager

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/multierr"

	"litertlm/internal/litert"
	"litertlm/pkg/types"
)

type Manager struct {
	mu           sync.RWMutex
	state        State
	cur          *ModelInfo
	err          string
	closed       bool
	registry     []types.Model
	backend      litert.Backend
	budgetMB     int
	marginMB     int
	defaultModel string

	instances map[string]*Instance
	sessions  map[string]*convSession
	usedEstMB int

	// Queue config
	maxQueueDepth int
	maxConcurrent int
	maxWait       time.Duration
	drainTimeout  time.Duration

	loader      Loader
	loadRetries int
	retryBase   time.Duration

	lruPath string
	lruMeta map[string]lruRecord

	publisher EventPublisher
	log       zerolog.Logger

	startTime      time.Time
	loadsTotal     atomic.Uint64
	evictionsTotal atomic.Uint64
}

// Ready reports whether at least one engine is loaded and serving.
func (m *Manager) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed || m.state == StateError {
		return false
	}
	for _, inst := range m.instances {
		if inst.State == StateReady {
			return true
		}
	}
	return false
}

func (m *Manager) ListModels() []types.Model {
	m.mu.RLock()
	defer m.mu.RUnlock()
	// return a shallow copy to avoid external mutation
	out := make([]types.Model, len(m.registry))
	copy(out, m.registry)
	return out
}

// Backend returns the backend new engines are built for.
func (m *Manager) Backend() litert.Backend { return m.backend }

// Close persists LRU state, then drains and unloads every instance. After
// Close no new instance is loaded.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	ids := make([]string, 0, len(m.instances))
	for id := range m.instances {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	err := m.saveLRUMetadata()
	for _, id := range ids {
		if uerr := m.Unload(id); uerr != nil && !IsModelNotFound(uerr) {
			err = multierr.Append(err, uerr)
		}
	}
	m.log.Info().Int("instances", len(ids)).Msg("manager closed")
	return err
}
