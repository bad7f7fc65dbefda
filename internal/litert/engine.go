package litert

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"litertlm/internal/native"
)

// Option configures Load.
type Option func(*options)

type options struct {
	api native.API
	log zerolog.Logger
}

// WithAPI overrides the native boundary (tests, alternative bindings).
// Without it Load uses native.Default.
func WithAPI(api native.API) Option {
	return func(o *options) { o.api = api }
}

// WithLogger installs a logger for lifecycle events (debug level).
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.log = l }
}

// engineCore holds the engine and settings handles and counts the owners
// that keep them alive: the Engine itself plus every open Session.
type engineCore struct {
	api      native.API
	engine   native.Handle
	settings native.Handle
	refs     atomic.Int64
	log      zerolog.Logger
}

// tryAcquire takes a reference unless the core was already released.
func (c *engineCore) tryAcquire() bool {
	for {
		n := c.refs.Load()
		if n <= 0 {
			return false
		}
		if c.refs.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// release drops one reference. The last one deletes the engine, then the
// settings it was built from.
func (c *engineCore) release() {
	switch n := c.refs.Add(-1); {
	case n == 0:
		c.api.EngineDelete(c.engine)
		c.api.EngineSettingsDelete(c.settings)
		c.log.Debug().Msg("engine released")
	case n < 0:
		panic("litert: engine core released more often than acquired")
	}
}

// ownerRef is the Engine's own reference on the core. drop is idempotent.
type ownerRef struct {
	once   sync.Once
	closed atomic.Bool
	core   *engineCore
}

func (r *ownerRef) drop() {
	r.once.Do(func() {
		r.closed.Store(true)
		r.core.release()
	})
}

// Engine owns a loaded model and its settings. Safe for concurrent use; the
// only operation besides Close is CreateSession, which only reads the handle.
// An Engine must not be copied.
type Engine struct {
	_         noCopy
	owner     *ownerRef
	modelPath string
	backend   Backend
	log       zerolog.Logger
	cleanup   runtime.Cleanup
}

// Load creates the settings object and the engine for modelPath. On failure
// nothing is left allocated on the native side.
func Load(modelPath string, backend Backend, opts ...Option) (*Engine, error) {
	const op = "load"
	o := options{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	if err := nativeText(op, "model path", modelPath); err != nil {
		return nil, err
	}
	if !backend.Valid() {
		return nil, newError(KindInvalidArgument, op, "unknown backend %d", int(backend))
	}
	backendText := backend.String()
	if err := nativeText(op, "backend", backendText); err != nil {
		return nil, err
	}
	api := o.api
	if api == nil {
		var err error
		if api, err = native.Default(); err != nil {
			return nil, newError(KindUnavailable, op, "%v", err)
		}
	}

	settings := api.EngineSettingsCreate(modelPath, backendText)
	if settings == nil {
		return nil, newError(KindNativeConstructionFailed, op, "failed to create engine settings for %q", modelPath)
	}
	engine := api.EngineCreate(settings)
	if engine == nil {
		api.EngineSettingsDelete(settings)
		return nil, newError(KindNativeConstructionFailed, op, "failed to create engine for %q", modelPath)
	}

	log := o.log.With().Str("model_path", modelPath).Str("backend", backendText).Logger()
	core := &engineCore{api: api, engine: engine, settings: settings, log: log}
	core.refs.Store(1)
	e := &Engine{
		owner:     &ownerRef{core: core},
		modelPath: modelPath,
		backend:   backend,
		log:       log,
	}
	e.cleanup = runtime.AddCleanup(e, (*ownerRef).drop, e.owner)
	log.Debug().Msg("engine loaded")
	return e, nil
}

// ModelPath returns the path the engine was loaded from.
func (e *Engine) ModelPath() string { return e.modelPath }

// Backend returns the backend the engine was loaded with.
func (e *Engine) Backend() Backend { return e.backend }

// CreateSession mints a new independent session. It may be called from any
// number of goroutines at once.
func (e *Engine) CreateSession() (*Session, error) {
	const op = "create_session"
	if e.owner.closed.Load() || !e.owner.core.tryAcquire() {
		return nil, newError(KindClosed, op, "engine is closed")
	}
	core := e.owner.core
	h := core.api.EngineCreateSession(core.engine)
	if h == nil {
		core.release()
		return nil, newError(KindNativeConstructionFailed, op, "failed to create session")
	}
	s := &Session{ref: &sessionRef{core: core, handle: h}, log: e.log}
	s.cleanup = runtime.AddCleanup(s, (*sessionRef).release, s.ref)
	e.log.Debug().Msg("session created")
	return s, nil
}

// Close drops the engine's reference. The native engine is deleted now if no
// session is open, otherwise when the last session closes. Close is
// idempotent and always returns nil.
func (e *Engine) Close() error {
	e.cleanup.Stop()
	e.owner.drop()
	return nil
}

// noCopy lets go vet's copylocks check flag accidental copies.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
