package manager

import (
	"time"

	"github.com/rs/zerolog"

	"litertlm/internal/litert"
	"litertlm/pkg/types"
)

// Defaults applied when corresponding ManagerConfig fields are unset.
const (
	defaultMaxQueueDepth = 32
	defaultMaxConcurrent = 1
	defaultMaxWait       = 30 * time.Second
	defaultDrainTimeout  = 5 * time.Second
	defaultRetryBase     = 200 * time.Millisecond
)

// ManagerConfig encapsulates all tunables for Manager construction.
type ManagerConfig struct {
	Registry     []types.Model
	Backend      litert.Backend
	BudgetMB     int
	MarginMB     int
	DefaultModel string

	MaxQueueDepth int
	// Generations allowed to run at once on one engine.
	MaxConcurrent int
	MaxWait       time.Duration
	DrainTimeout  time.Duration

	// Extra attempts when engine construction returns a null handle.
	LoadRetries int
	// First backoff between load attempts; doubles each time.
	LoadRetryBase time.Duration

	// LRU state file; empty disables persistence.
	StateFile string

	// Loader builds engines. Defaults to litert.Load on the linked library.
	Loader Loader
	Logger *zerolog.Logger
}

// NewWithConfig constructs a Manager from ManagerConfig.
func NewWithConfig(cfg ManagerConfig) *Manager {
	m := &Manager{
		state:        StateIdle,
		registry:     cfg.Registry,
		backend:      cfg.Backend,
		budgetMB:     cfg.BudgetMB,
		marginMB:     cfg.MarginMB,
		defaultModel: cfg.DefaultModel,
		instances:    make(map[string]*Instance),
		sessions:     make(map[string]*convSession),
		loadRetries:  cfg.LoadRetries,
		lruPath:      cfg.StateFile,
		publisher:    noopPublisher{},
		startTime:    time.Now(),
	}
	if m.loadRetries < 0 {
		m.loadRetries = 0
	}
	// Apply defaults if unset
	if cfg.MaxQueueDepth <= 0 {
		m.maxQueueDepth = defaultMaxQueueDepth
	} else {
		m.maxQueueDepth = cfg.MaxQueueDepth
	}
	if cfg.MaxConcurrent <= 0 {
		m.maxConcurrent = defaultMaxConcurrent
	} else {
		m.maxConcurrent = cfg.MaxConcurrent
	}
	if cfg.MaxWait <= 0 {
		m.maxWait = defaultMaxWait
	} else {
		m.maxWait = cfg.MaxWait
	}
	if cfg.DrainTimeout <= 0 {
		m.drainTimeout = defaultDrainTimeout
	} else {
		m.drainTimeout = cfg.DrainTimeout
	}
	if cfg.LoadRetryBase <= 0 {
		m.retryBase = defaultRetryBase
	} else {
		m.retryBase = cfg.LoadRetryBase
	}
	if cfg.Logger != nil {
		m.log = cfg.Logger.With().Str("component", "manager").Logger()
	} else {
		m.log = zerolog.Nop()
	}
	if cfg.Loader != nil {
		m.loader = cfg.Loader
	} else {
		m.loader = defaultLoader(m.log)
	}
	m.loadLRUMetadata()
	return m
}
