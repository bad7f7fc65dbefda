package types

// InferRequest represents a one-shot inference request payload.
type InferRequest struct {
	// Optional model identifier. If empty, the server default is used.
	// example: gemma3-1b-it-int4.litertlm
	Model string `json:"model,omitempty" example:"gemma3-1b-it-int4.litertlm"`
	// Required prompt text to generate a response for.
	// example: What is the capital of France?
	Prompt string `json:"prompt" example:"What is the capital of France?"`
	// Include benchmark counters in the final line.
	// example: true
	Benchmark bool `json:"benchmark,omitempty" example:"true"`
}

// InferDone is the final NDJSON line written by POST /infer.
type InferDone struct {
	Done    bool   `json:"done"`
	Model   string `json:"model"`
	Content string `json:"content"`
	// Present only when requested and available.
	Benchmark *Benchmark `json:"benchmark,omitempty"`
}

// SessionRequest opens a conversation session (POST /sessions).
type SessionRequest struct {
	// example: gemma3-1b-it-int4.litertlm
	Model string `json:"model,omitempty" example:"gemma3-1b-it-int4.litertlm"`
}

// SessionResponse describes an open conversation session.
type SessionResponse struct {
	// example: 3f0c5a52-6a3f-4d7e-9a55-cc0b6a1f2e11
	ID string `json:"id" example:"3f0c5a52-6a3f-4d7e-9a55-cc0b6a1f2e11"`
	// example: gemma3-1b-it-int4.litertlm
	Model string `json:"model" example:"gemma3-1b-it-int4.litertlm"`
	// Creation time (unix seconds).
	CreatedUnix int64 `json:"created_unix"`
}

// GenerateRequest is the body of POST /sessions/{id}/generate.
type GenerateRequest struct {
	// example: And of Germany?
	Prompt string `json:"prompt" example:"And of Germany?"`
}

// GenerateResponse is returned by POST /sessions/{id}/generate.
type GenerateResponse struct {
	SessionID string `json:"session_id"`
	Content   string `json:"content"`
}

// ModelsResponse wraps the list of models returned by GET /models.
type ModelsResponse struct {
	// List of available models.
	Models []Model `json:"models"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// InstanceStatus summarizes a loaded engine for /status.
type InstanceStatus struct {
	// ID of the model this instance serves.
	ModelID string `json:"model_id"`
	// Backend the engine was built for (cpu, gpu).
	// example: cpu
	Backend string `json:"backend" example:"cpu"`
	// Lifecycle state (loading, ready, draining).
	// example: ready
	State string `json:"state" example:"ready"`
	// Last time this instance served a request (unix seconds).
	LastUsed int64 `json:"last_used_unix"`
	// Estimated memory footprint in MB (file size based).
	// example: 560
	EstMB int `json:"est_mb" example:"560"`
	// Requests waiting for a generation slot.
	QueueLen int `json:"queue_len"`
	// Requests currently generating.
	Inflight int `json:"inflight"`
	// Open conversation sessions on this engine.
	Sessions int `json:"sessions"`
	// Maximum queued requests allowed before backpressure triggers.
	// example: 32
	MaxQueueDepth int `json:"max_queue_depth" example:"32"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	Instances []InstanceStatus `json:"instances"`
	// Memory budget in MB across all engines.
	// example: 8192
	BudgetMB int `json:"budget_mb" example:"8192"`
	// Estimated used memory in MB.
	UsedMB int `json:"used_est_mb"`
	// Reserved memory margin in MB.
	MarginMB int `json:"margin_mb"`
	// Whether this binary was linked against the native library.
	NativeAvailable bool `json:"native_available"`
	// Last error observed by the manager (if any).
	LastError string `json:"last_error,omitempty"`
	// example: 3600
	UptimeSeconds  int64  `json:"uptime_seconds" example:"3600"`
	ServerTimeUnix int64  `json:"server_time_unix"`
	EvictionsTotal uint64 `json:"evictions_total"`
	LoadsTotal     uint64 `json:"loads_total"`
	// Overall manager state (idle, loading, ready, error).
	// example: ready
	State             string `json:"state" example:"ready"`
	WarmupsInProgress int    `json:"warmups_in_progress"`
	DrainingCount     int    `json:"draining_count"`
}
