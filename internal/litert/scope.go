package litert

import "litertlm/internal/native"

// Transient buffers (responses, benchmark info) are only ever read through
// these scopes. The delete is deferred the moment the scope opens, so it runs
// exactly once on every exit path, panics included. The views are only valid
// inside fn; fn must copy what it needs into Go values.

type responsesView struct {
	api native.API
	h   native.Handle
}

// textAt copies the text at index i. ok is false for a null text pointer.
func (r responsesView) textAt(i int) (string, bool) {
	return r.api.ResponsesTextAt(r.h, i)
}

func withResponses(api native.API, h native.Handle, fn func(responsesView) error) error {
	defer api.ResponsesDelete(h)
	return fn(responsesView{api: api, h: h})
}

type benchmarkView struct {
	api native.API
	h   native.Handle
}

func (b benchmarkView) snapshot() BenchmarkInfo {
	return BenchmarkInfo{
		TimeToFirstToken: b.api.BenchmarkTimeToFirstToken(b.h),
		NumPrefillTurns:  b.api.BenchmarkNumPrefillTurns(b.h),
		NumDecodeTurns:   b.api.BenchmarkNumDecodeTurns(b.h),
	}
}

func withBenchmark(api native.API, h native.Handle, fn func(benchmarkView) error) error {
	defer api.BenchmarkInfoDelete(h)
	return fn(benchmarkView{api: api, h: h})
}
