package manager

// Event represents a manager lifecycle event.
// Minimal and stable: name + model ID and optional fields via key/values.
type Event struct {
	Name    string
	ModelID string
	Fields  map[string]any
}

// EventPublisher receives events from the manager. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}

// SetEventPublisher replaces the event sink. nil restores the no-op publisher.
func (m *Manager) SetEventPublisher(p EventPublisher) {
	if p == nil {
		p = noopPublisher{}
	}
	m.mu.Lock()
	m.publisher = p
	m.mu.Unlock()
}

// emit logs the event and hands it to the publisher.
func (m *Manager) emit(name, modelID string, fields map[string]any) {
	if fields == nil {
		fields = map[string]any{}
	}
	ev := m.log.Debug()
	if _, failed := fields["error"]; failed {
		ev = m.log.Warn()
	}
	ev.Str("event", name).Str("model", modelID).Fields(fields).Msg("manager event")
	m.mu.RLock()
	p := m.publisher
	m.mu.RUnlock()
	p.Publish(Event{Name: name, ModelID: modelID, Fields: fields})
}
