// Package nativetest provides an in-memory native.API for tests.
//
// The Fake records every boundary call in order and tracks each handle it
// hands out, so tests can assert exactly-once deletion, call ordering and
// the absence of use-after-delete without linking the real library.
package nativetest

import (
	"fmt"
	"sync"
	"unsafe"

	"litertlm/internal/native"
)

// Call names as recorded by the Fake.
const (
	EngineSettingsCreate      = "EngineSettingsCreate"
	EngineSettingsDelete      = "EngineSettingsDelete"
	EngineCreate              = "EngineCreate"
	EngineDelete              = "EngineDelete"
	EngineCreateSession       = "EngineCreateSession"
	SessionDelete             = "SessionDelete"
	SessionGenerateContent    = "SessionGenerateContent"
	SessionBenchmarkInfo      = "SessionBenchmarkInfo"
	ResponsesTextAt           = "ResponsesTextAt"
	ResponsesDelete           = "ResponsesDelete"
	BenchmarkTimeToFirstToken = "BenchmarkTimeToFirstToken"
	BenchmarkNumPrefillTurns  = "BenchmarkNumPrefillTurns"
	BenchmarkNumDecodeTurns   = "BenchmarkNumDecodeTurns"
	BenchmarkInfoDelete       = "BenchmarkInfoDelete"
)

// Handle kinds, for Live.
const (
	KindSettings  = "settings"
	KindEngine    = "engine"
	KindSession   = "session"
	KindResponses = "responses"
	KindBenchmark = "benchmark"
)

// Benchmark holds the values reported by benchmark-info accessors.
type Benchmark struct {
	TimeToFirstToken float64
	NumPrefillTurns  int
	NumDecodeTurns   int
}

type object struct {
	kind    string
	id      int
	deleted bool
	text    string
	textOK  bool
	bench   Benchmark
}

// Fake implements native.API. Zero value is ready to use; knobs may be set
// before the first call and must not change while calls are in flight.
type Fake struct {
	// Nil* make the corresponding construction call return a nil handle.
	NilSettings  bool
	NilEngine    bool
	NilSession   bool
	NilResponses bool
	NilBenchmark bool

	// Reply computes the first response for a prompt. ok=false models a null
	// text pointer. Defaults to echoing the prompt.
	Reply func(prompt string) (text string, ok bool)

	// Bench is reported by every benchmark-info buffer.
	Bench Benchmark

	// OnGenerate runs inside SessionGenerateContent, outside the Fake's lock.
	// Tests use it to block or to observe concurrency.
	OnGenerate func(prompt string)

	// OnCreateSession runs after a session handle is minted, outside the
	// Fake's lock.
	OnCreateSession func()

	mu         sync.Mutex
	nextID     int
	objs       map[native.Handle]*object
	calls      []string
	inputs     [][]native.Input
	violations []string
}

var _ native.API = (*Fake)(nil)

// New returns a Fake with default behavior.
func New() *Fake { return &Fake{} }

func (f *Fake) newHandle(kind string) native.Handle {
	if f.objs == nil {
		f.objs = make(map[native.Handle]*object)
	}
	f.nextID++
	o := &object{kind: kind, id: f.nextID}
	h := native.Handle(unsafe.Pointer(o))
	f.objs[h] = o
	return h
}

// use validates that h is a live handle of the given kind. Caller holds mu.
func (f *Fake) use(call string, h native.Handle, kind string) *object {
	o, ok := f.objs[h]
	switch {
	case h == nil:
		f.violations = append(f.violations, fmt.Sprintf("%s: nil handle", call))
		return nil
	case !ok:
		f.violations = append(f.violations, fmt.Sprintf("%s: unknown handle", call))
		return nil
	case o.kind != kind:
		f.violations = append(f.violations, fmt.Sprintf("%s: %s handle passed, want %s", call, o.kind, kind))
		return nil
	case o.deleted:
		f.violations = append(f.violations, fmt.Sprintf("%s: %s #%d used after delete", call, kind, o.id))
		return nil
	}
	return o
}

func (f *Fake) del(call string, h native.Handle, kind string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	if o := f.use(call, h, kind); o != nil {
		o.deleted = true
	}
}

func (f *Fake) EngineSettingsCreate(modelPath, backend string) native.Handle {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, EngineSettingsCreate)
	if f.NilSettings {
		return nil
	}
	return f.newHandle(KindSettings)
}

func (f *Fake) EngineSettingsDelete(settings native.Handle) {
	f.del(EngineSettingsDelete, settings, KindSettings)
}

func (f *Fake) EngineCreate(settings native.Handle) native.Handle {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, EngineCreate)
	if f.use(EngineCreate, settings, KindSettings) == nil || f.NilEngine {
		return nil
	}
	return f.newHandle(KindEngine)
}

func (f *Fake) EngineDelete(engine native.Handle) {
	f.del(EngineDelete, engine, KindEngine)
}

func (f *Fake) EngineCreateSession(engine native.Handle) native.Handle {
	h := f.createSession(engine)
	if h != nil && f.OnCreateSession != nil {
		f.OnCreateSession()
	}
	return h
}

func (f *Fake) createSession(engine native.Handle) native.Handle {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, EngineCreateSession)
	if f.use(EngineCreateSession, engine, KindEngine) == nil || f.NilSession {
		return nil
	}
	return f.newHandle(KindSession)
}

func (f *Fake) SessionDelete(session native.Handle) {
	f.del(SessionDelete, session, KindSession)
}

func (f *Fake) SessionGenerateContent(session native.Handle, inputs []native.Input) native.Handle {
	var prompt string
	if len(inputs) > 0 {
		prompt = string(inputs[0].Data)
	}
	f.mu.Lock()
	f.calls = append(f.calls, SessionGenerateContent)
	cp := make([]native.Input, len(inputs))
	for i, in := range inputs {
		cp[i] = native.Input{Kind: in.Kind, Data: append([]byte(nil), in.Data...)}
	}
	f.inputs = append(f.inputs, cp)
	live := f.use(SessionGenerateContent, session, KindSession) != nil
	hook := f.OnGenerate
	f.mu.Unlock()

	if hook != nil {
		hook(prompt)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if !live || f.NilResponses {
		return nil
	}
	text, ok := "echo: "+prompt, true
	if f.Reply != nil {
		text, ok = f.Reply(prompt)
	}
	h := f.newHandle(KindResponses)
	o := f.objs[h]
	o.text, o.textOK = text, ok
	return h
}

func (f *Fake) SessionBenchmarkInfo(session native.Handle) native.Handle {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, SessionBenchmarkInfo)
	if f.use(SessionBenchmarkInfo, session, KindSession) == nil || f.NilBenchmark {
		return nil
	}
	h := f.newHandle(KindBenchmark)
	f.objs[h].bench = f.Bench
	return h
}

func (f *Fake) ResponsesTextAt(responses native.Handle, index int) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, ResponsesTextAt)
	o := f.use(ResponsesTextAt, responses, KindResponses)
	if o == nil || index != 0 || !o.textOK {
		return "", false
	}
	return o.text, true
}

func (f *Fake) ResponsesDelete(responses native.Handle) {
	f.del(ResponsesDelete, responses, KindResponses)
}

func (f *Fake) BenchmarkTimeToFirstToken(info native.Handle) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, BenchmarkTimeToFirstToken)
	if o := f.use(BenchmarkTimeToFirstToken, info, KindBenchmark); o != nil {
		return o.bench.TimeToFirstToken
	}
	return 0
}

func (f *Fake) BenchmarkNumPrefillTurns(info native.Handle) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, BenchmarkNumPrefillTurns)
	if o := f.use(BenchmarkNumPrefillTurns, info, KindBenchmark); o != nil {
		return o.bench.NumPrefillTurns
	}
	return 0
}

func (f *Fake) BenchmarkNumDecodeTurns(info native.Handle) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, BenchmarkNumDecodeTurns)
	if o := f.use(BenchmarkNumDecodeTurns, info, KindBenchmark); o != nil {
		return o.bench.NumDecodeTurns
	}
	return 0
}

func (f *Fake) BenchmarkInfoDelete(info native.Handle) {
	f.del(BenchmarkInfoDelete, info, KindBenchmark)
}

// Calls returns the recorded call names in order.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Count returns how many times the named call was made.
func (f *Fake) Count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == name {
			n++
		}
	}
	return n
}

// Live returns the number of handles of kind that were created and not yet
// deleted. An empty kind counts all kinds.
func (f *Fake) Live(kind string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, o := range f.objs {
		if !o.deleted && (kind == "" || o.kind == kind) {
			n++
		}
	}
	return n
}

// Inputs returns a copy of the input chunks passed to each generate call.
func (f *Fake) Inputs() [][]native.Input {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]native.Input(nil), f.inputs...)
}

// Violations lists every double delete, use-after-delete, nil or foreign
// handle seen so far. A correct caller leaves it empty.
func (f *Fake) Violations() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.violations...)
}
