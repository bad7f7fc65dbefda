package types

// Model is a LiteRT-LM model file discovered on disk.
type Model struct {
	// Stable identifier for the model (the file name).
	// example: gemma3-1b-it-int4.litertlm
	ID string `json:"id" example:"gemma3-1b-it-int4.litertlm"`
	// Human-friendly name.
	// example: gemma3-1b-it-int4
	Name string `json:"name" example:"gemma3-1b-it-int4"`
	// Absolute path to the model file on disk.
	// example: /home/user/models/gemma3-1b-it-int4.litertlm
	Path string `json:"path" example:"/home/user/models/gemma3-1b-it-int4.litertlm"`
	// Container format derived from the extension (litertlm, tflite, task).
	// example: litertlm
	Format string `json:"format" example:"litertlm"`
	// Size of the model file in bytes.
	// example: 584056832
	SizeBytes int64 `json:"size_bytes" example:"584056832"`
}

// Benchmark mirrors the per-session counters reported by the engine.
type Benchmark struct {
	// Seconds from the start of generation to the first token.
	// example: 0.042
	TimeToFirstTokenSeconds float64 `json:"time_to_first_token_s" example:"0.042"`
	// example: 1
	NumPrefillTurns int `json:"num_prefill_turns" example:"1"`
	// example: 7
	NumDecodeTurns int `json:"num_decode_turns" example:"7"`
}
