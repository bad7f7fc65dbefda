// Package native is the raw boundary to the LiteRT-LM C API.
//
// Every method maps one-to-one onto a C entry point. Construction calls
// signal failure with a nil Handle and carry no further detail; nothing in
// this package frees anything on its own. Ownership rules (who deletes what,
// and when) live one level up in internal/litert, which is the only package
// that should hold a Handle.
//
// Build tags:
//
//   - litertlm: links libengine through cgo (cgo_litertlm.go).
//   - default: a stub whose Default() reports ErrUnavailable (stub.go).
package native

import (
	"errors"
	"unsafe"
)

// Handle is an opaque native pointer. It has no meaning on the Go side other
// than being passed back across the boundary; nil is the failure sentinel.
type Handle unsafe.Pointer

// InputKind tags an input chunk for session-generate.
type InputKind int

const (
	// InputText is a UTF-8 text chunk.
	InputText InputKind = iota
)

// Input is one chunk passed to SessionGenerateContent. Data is borrowed for
// the duration of the call only.
type Input struct {
	Kind InputKind
	Data []byte
}

// API is the set of C entry points the safety layer consumes.
//
// Settings, engine and session handles must each be deleted exactly once.
// Responses and benchmark-info handles are transient: data read through their
// accessors is valid only until the matching delete call.
type API interface {
	EngineSettingsCreate(modelPath, backend string) Handle
	EngineSettingsDelete(settings Handle)

	EngineCreate(settings Handle) Handle
	EngineDelete(engine Handle)
	EngineCreateSession(engine Handle) Handle

	SessionDelete(session Handle)
	SessionGenerateContent(session Handle, inputs []Input) Handle
	SessionBenchmarkInfo(session Handle) Handle

	// ResponsesTextAt copies the text at index out of the responses buffer.
	// ok is false when the native accessor returned a null pointer.
	ResponsesTextAt(responses Handle, index int) (text string, ok bool)
	ResponsesDelete(responses Handle)

	BenchmarkTimeToFirstToken(info Handle) float64
	BenchmarkNumPrefillTurns(info Handle) int
	BenchmarkNumDecodeTurns(info Handle) int
	BenchmarkInfoDelete(info Handle)
}

// ErrUnavailable is returned by Default when the binary was built without the
// native library.
var ErrUnavailable = errors.New("litert-lm native library not built (missing 'litertlm' build tag)")
