package litert

import "time"

// BenchmarkInfo is a copied snapshot of a session's benchmark counters.
type BenchmarkInfo struct {
	// Time to first token, in seconds.
	TimeToFirstToken float64 `json:"time_to_first_token_s"`
	NumPrefillTurns  int     `json:"num_prefill_turns"`
	NumDecodeTurns   int     `json:"num_decode_turns"`
}

// TTFT returns TimeToFirstToken as a Duration.
func (b BenchmarkInfo) TTFT() time.Duration {
	return time.Duration(b.TimeToFirstToken * float64(time.Second))
}
