package litert

import (
	"context"
	"runtime"
	"sync"

	"github.com/rs/zerolog"

	"litertlm/internal/native"
)

// sessionRef owns the native session handle and one reference on the engine
// core. release is idempotent.
type sessionRef struct {
	once   sync.Once
	core   *engineCore
	handle native.Handle
}

func (r *sessionRef) release() {
	r.once.Do(func() {
		r.core.api.SessionDelete(r.handle)
		r.core.release()
	})
}

// Session is one conversation context. It may be handed between goroutines;
// concurrent calls on the same Session are serialized.
type Session struct {
	mu      sync.Mutex
	closed  bool
	ref     *sessionRef
	log     zerolog.Logger
	cleanup runtime.Cleanup
}

// Generate sends prompt as a single text chunk and returns a copy of the
// first response.
func (s *Session) Generate(prompt string) (string, error) {
	const op = "generate"
	if err := nativeText(op, "prompt", prompt); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", newError(KindClosed, op, "session is closed")
	}
	api := s.ref.core.api
	inputs := []native.Input{{Kind: native.InputText, Data: []byte(prompt)}}
	resp := api.SessionGenerateContent(s.ref.handle, inputs)
	if resp == nil {
		return "", newError(KindGenerationFailed, op, "failed to generate content")
	}
	var out string
	err := withResponses(api, resp, func(r responsesView) error {
		text, ok := r.textAt(0)
		if !ok {
			return newError(KindEmptyResponse, op, "no response generated")
		}
		out = lossyUTF8(text)
		return nil
	})
	if err != nil {
		return "", err
	}
	return out, nil
}

// GenerateContext is Generate that stops waiting when ctx is done. The native
// call keeps running to completion; its result is dropped and the session
// stays busy until then.
func (s *Session) GenerateContext(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	type result struct {
		text string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		text, err := s.Generate(prompt)
		ch <- result{text: text, err: err}
	}()
	select {
	case r := <-ch:
		return r.text, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// BenchmarkInfo fetches and copies the session's benchmark counters.
// Returns KindMetricsUnavailable when the engine was not built with
// benchmarking enabled.
func (s *Session) BenchmarkInfo() (BenchmarkInfo, error) {
	const op = "benchmark_info"
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return BenchmarkInfo{}, newError(KindClosed, op, "session is closed")
	}
	api := s.ref.core.api
	h := api.SessionBenchmarkInfo(s.ref.handle)
	if h == nil {
		return BenchmarkInfo{}, newError(KindMetricsUnavailable, op, "failed to get benchmark info")
	}
	var info BenchmarkInfo
	if err := withBenchmark(api, h, func(b benchmarkView) error {
		info = b.snapshot()
		return nil
	}); err != nil {
		return BenchmarkInfo{}, err
	}
	return info, nil
}

// Close deletes the native session and releases its hold on the engine. It
// waits for an in-flight call on this session. Idempotent; always nil.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.cleanup.Stop()
	s.ref.release()
	s.log.Debug().Msg("session closed")
	return nil
}
