package manager

import (
	"context"
	"time"

	"github.com/google/uuid"

	"litertlm/internal/litert"
	"litertlm/pkg/types"
)

// convSession is a long-lived conversation bound to one instance.
type convSession struct {
	id      string
	modelID string
	created time.Time
	sess    *litert.Session
}

// OpenSession loads the model if needed and opens a conversation session on
// it. The instance is pinned (never evicted) until the session is closed.
func (m *Manager) OpenSession(ctx context.Context, modelID string) (types.SessionResponse, error) {
	modelID, err := m.resolveModelID(modelID)
	if err != nil {
		return types.SessionResponse{}, err
	}
	if err := m.EnsureInstance(ctx, modelID); err != nil {
		return types.SessionResponse{}, err
	}

	m.mu.Lock()
	inst := m.instances[modelID]
	if inst == nil || inst.State != StateReady {
		m.mu.Unlock()
		return types.SessionResponse{}, tooBusyError{modelID: modelID}
	}
	inst.sessions++
	eng := inst.engine
	m.mu.Unlock()

	sess, err := eng.CreateSession()
	if err != nil {
		m.mu.Lock()
		inst.sessions--
		m.mu.Unlock()
		m.emit("session_open_error", modelID, map[string]any{"error": err.Error()})
		return types.SessionResponse{}, err
	}
	cs := &convSession{id: uuid.NewString(), modelID: modelID, created: time.Now(), sess: sess}
	m.mu.Lock()
	if m.closed || m.instances[modelID] != inst || inst.State != StateReady {
		// Unloaded or draining while the session was being created.
		if m.instances[modelID] == inst && inst.sessions > 0 {
			inst.sessions--
		}
		m.mu.Unlock()
		_ = sess.Close()
		return types.SessionResponse{}, tooBusyError{modelID: modelID}
	}
	m.sessions[cs.id] = cs
	m.mu.Unlock()
	openSessionsGauge.Inc()
	m.emit("session_open", modelID, map[string]any{"session": cs.id})
	return cs.response(), nil
}

// SessionGenerate sends prompt to an open conversation session. Turns on
// one session run in order; admission is shared with Infer.
func (m *Manager) SessionGenerate(ctx context.Context, id, prompt string) (types.GenerateResponse, error) {
	cs, err := m.lookupSession(id)
	if err != nil {
		return types.GenerateResponse{}, err
	}
	release, err := m.beginGeneration(ctx, cs.modelID)
	if err != nil {
		generationsTotal.WithLabelValues(cs.modelID, outcomeOf(err)).Inc()
		return types.GenerateResponse{}, err
	}
	start := time.Now()
	text, err := runDetached(ctx, func() (string, error) {
		return cs.sess.Generate(prompt)
	}, release)
	generationsTotal.WithLabelValues(cs.modelID, outcomeOf(err)).Inc()
	if err != nil {
		if litert.IsKind(err, litert.KindClosed) {
			return types.GenerateResponse{}, sessionNotFoundError{id: id}
		}
		return types.GenerateResponse{}, err
	}
	generationDuration.WithLabelValues(cs.modelID).Observe(time.Since(start).Seconds())
	return types.GenerateResponse{SessionID: id, Content: text}, nil
}

// SessionBenchmark returns the counters of an open conversation session.
func (m *Manager) SessionBenchmark(id string) (types.Benchmark, error) {
	cs, err := m.lookupSession(id)
	if err != nil {
		return types.Benchmark{}, err
	}
	info, err := cs.sess.BenchmarkInfo()
	if err != nil {
		if litert.IsKind(err, litert.KindClosed) {
			return types.Benchmark{}, sessionNotFoundError{id: id}
		}
		return types.Benchmark{}, err
	}
	timeToFirstToken.WithLabelValues(cs.modelID).Observe(info.TimeToFirstToken)
	return *toBenchmark(info), nil
}

// CloseSession closes and forgets a conversation session. It waits for a
// turn that is still running on it.
func (m *Manager) CloseSession(id string) error {
	m.mu.Lock()
	cs := m.sessions[id]
	if cs == nil {
		m.mu.Unlock()
		return sessionNotFoundError{id: id}
	}
	delete(m.sessions, id)
	if inst := m.instances[cs.modelID]; inst != nil && inst.sessions > 0 {
		inst.sessions--
	}
	m.mu.Unlock()
	openSessionsGauge.Dec()
	err := cs.sess.Close()
	m.emit("session_close", cs.modelID, map[string]any{"session": id})
	return err
}

// Sessions lists open conversation sessions.
func (m *Manager) Sessions() []types.SessionResponse {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.SessionResponse, 0, len(m.sessions))
	for _, cs := range m.sessions {
		out = append(out, cs.response())
	}
	return out
}

func (m *Manager) lookupSession(id string) (*convSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cs := m.sessions[id]
	if cs == nil {
		return nil, sessionNotFoundError{id: id}
	}
	return cs, nil
}

// takeSessions removes and returns every session bound to modelID.
func (m *Manager) takeSessions(modelID string) []*convSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*convSession
	for id, cs := range m.sessions {
		if cs.modelID == modelID {
			out = append(out, cs)
			delete(m.sessions, id)
		}
	}
	if inst := m.instances[modelID]; inst != nil {
		inst.sessions = 0
	}
	openSessionsGauge.Sub(float64(len(out)))
	return out
}

func (cs *convSession) response() types.SessionResponse {
	return types.SessionResponse{ID: cs.id, Model: cs.modelID, CreatedUnix: cs.created.Unix()}
}
