package manager

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"litertlm/internal/litert"
	"litertlm/pkg/types"
)

// Infer answers one prompt on a fresh session that is closed afterwards, and
// writes a single NDJSON line:
//
//	{"done":true,"model":"...","content":"...","benchmark":{...}}
//
// The benchmark object is present only when requested and available.
func (m *Manager) Infer(ctx context.Context, req types.InferRequest, w io.Writer, flusher func()) error {
	modelID, err := m.resolveModelID(req.Model)
	if err != nil {
		return err
	}
	if err := m.EnsureInstance(ctx, modelID); err != nil {
		return err
	}
	release, err := m.beginGeneration(ctx, modelID)
	if err != nil {
		generationsTotal.WithLabelValues(modelID, outcomeOf(err)).Inc()
		return err
	}
	eng, err := m.engineFor(modelID)
	if err != nil {
		release()
		return err
	}
	sess, err := eng.CreateSession()
	if err != nil {
		release()
		return err
	}

	start := time.Now()
	done, err := runDetached(ctx, func() (types.InferDone, error) {
		text, gerr := sess.Generate(req.Prompt)
		if gerr != nil {
			return types.InferDone{}, gerr
		}
		out := types.InferDone{Done: true, Model: modelID, Content: text}
		if req.Benchmark {
			out.Benchmark = m.benchmark(modelID, sess)
		}
		return out, nil
	}, func() {
		_ = sess.Close()
		release()
	})
	generationsTotal.WithLabelValues(modelID, outcomeOf(err)).Inc()
	if err != nil {
		if isContextErr(err) {
			m.emit("infer_abandoned", modelID, map[string]any{"error": err.Error()})
		}
		return err
	}
	generationDuration.WithLabelValues(modelID).Observe(time.Since(start).Seconds())

	b, err := json.Marshal(done)
	if err != nil {
		return err
	}
	if _, err := w.Write(append(b, '\n')); err != nil {
		return err
	}
	if flusher != nil {
		flusher()
	}
	return nil
}

// engineFor returns the serving engine of a ready instance.
func (m *Manager) engineFor(modelID string) (*litert.Engine, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	inst := m.instances[modelID]
	if inst == nil || inst.engine == nil {
		return nil, modelNotFoundError{id: modelID}
	}
	return inst.engine, nil
}

// benchmark reads the session's counters, or nil when benchmarking is off.
func (m *Manager) benchmark(modelID string, sess *litert.Session) *types.Benchmark {
	info, err := sess.BenchmarkInfo()
	if err != nil {
		if !errors.Is(err, litert.ErrMetricsUnavailable) {
			m.log.Warn().Err(err).Str("model", modelID).Msg("benchmark info")
		}
		return nil
	}
	timeToFirstToken.WithLabelValues(modelID).Observe(info.TimeToFirstToken)
	return toBenchmark(info)
}

func toBenchmark(info litert.BenchmarkInfo) *types.Benchmark {
	return &types.Benchmark{
		TimeToFirstTokenSeconds: info.TimeToFirstToken,
		NumPrefillTurns:         info.NumPrefillTurns,
		NumDecodeTurns:          info.NumDecodeTurns,
	}
}
