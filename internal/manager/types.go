package manager

import (
	"time"

	"litertlm/internal/litert"
)

// State represents lifecycle state of the manager/instances.
type State string

const (
	StateIdle     State = "idle"
	StateReady    State = "ready"
	StateLoading  State = "loading"
	StateDraining State = "draining"
	StateError    State = "error"
)

// ModelInfo is a minimal view of the most recently loaded model.
type ModelInfo struct {
	ID     string
	Name   string
	Path   string
	Format string
}

// Snapshot is a read-only projection of the manager state.
type Snapshot struct {
	State        State
	CurrentModel *ModelInfo
	Err          string
}

// Instance is one loaded engine (one per model id).
type Instance struct {
	ID       string
	State    State
	LastUsed time.Time
	EstMB    int
	Backend  litert.Backend

	engine *litert.Engine
	// open conversation sessions; an instance with sessions is never evicted
	sessions int
	// closed once loading finished, successfully or not
	loaded chan struct{}
	// Queueing primitives
	genCh   chan struct{} // buffered: concurrent generation slots
	queueCh chan struct{} // buffered: queue slots
}

func (inst *Instance) idle() bool {
	return len(inst.genCh) == 0 && len(inst.queueCh) == 0 && inst.sessions == 0
}
