// Package manager provides lifecycle, admission, and inference coordination for
// LiteRT-LM engines. It is structured into small files by concern:
//
//   - manager.go: core Manager type, constructor, simple getters, Close.
//   - config.go: ManagerConfig and package defaults; NewWithConfig applies defaults.
//   - types.go: internal state types (State, ModelInfo, Instance, Snapshot).
//   - errors.go: error types and helpers (IsTooBusy, IsModelNotFound, ...).
//   - helpers.go: small utilities (model lookup, memory estimation).
//   - loader.go: the Loader seam and load retries.
//   - admission.go: per-instance queueing and generation admission.
//   - ensure.go: EnsureInstance lifecycle and loading.
//   - evict.go: eviction logic to fit within the memory budget.
//   - infer.go: one-shot inference on an ephemeral session.
//   - sessions.go: long-lived conversation sessions.
//   - unload.go: graceful drain and engine release.
//   - status.go: Status/Snapshot reporting helpers.
//   - lru_persist.go: LRU state file and Warm.
//
// Each loaded model is one *litert.Engine. Requests never touch native handles
// directly; every session is created from, and closed before, the engine that
// owns it.
package manager
