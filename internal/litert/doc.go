// Package litert is the ownership layer over the LiteRT-LM C API.
//
// Three owners wrap the three categories of native resource:
//
//   - Engine: a loaded model plus the settings object it was built from.
//     Created by Load; shared read-only across goroutines.
//   - Session: one conversation context minted by Engine.CreateSession.
//     Calls on one Session are serialized internally.
//   - responses / benchmark buffers: never leave this package. They are read
//     inside a scope that copies everything out and deletes the buffer exactly
//     once on every exit path (scope.go).
//
// Lifetime rules:
//
//   - Every native handle has exactly one owner and is deleted exactly once.
//     Close is idempotent on both Engine and Session; a runtime cleanup drops
//     the reference of an owner that is garbage collected without Close.
//   - Sessions keep the engine's native resources alive. Closing an Engine
//     while sessions are open only drops the engine's own reference; the
//     engine and its settings are deleted (engine first, then settings) when
//     the last session is closed.
//   - No Handle is ever returned to callers.
//
// All calls block until the native call returns. Nothing here is cancellable;
// Session.GenerateContext stops waiting but cannot stop the engine.
//
// Every boundary failure is an *Error carrying a Kind (see errors.go).
package litert
