package manager

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/multierr"
)

type lruRecord struct {
	LastUsedUnix int64 `json:"last_used_unix"`
	EstMB        int   `json:"est_mb"`
}

func (m *Manager) loadLRUMetadata() {
	if m.lruPath == "" {
		return
	}
	f, err := os.Open(m.lruPath)
	if err != nil {
		return
	}
	defer f.Close()
	var data map[string]lruRecord
	if err := json.NewDecoder(f).Decode(&data); err != nil {
		m.log.Warn().Err(err).Str("path", m.lruPath).Msg("ignoring unreadable state file")
		return
	}
	m.lruMeta = data
}

// saveLRUMetadata writes the loaded instances to the state file atomically.
func (m *Manager) saveLRUMetadata() error {
	if m.lruPath == "" {
		return nil
	}
	m.mu.RLock()
	snap := make(map[string]lruRecord, len(m.instances))
	for id, inst := range m.instances {
		if inst.State != StateReady {
			continue
		}
		snap[id] = lruRecord{LastUsedUnix: inst.LastUsed.Unix(), EstMB: inst.EstMB}
	}
	m.mu.RUnlock()
	b, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(m.lruPath), ".lru-*.json")
	if err != nil {
		return err
	}
	_, werr := tmp.Write(b)
	err = multierr.Combine(werr, tmp.Close())
	if err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), m.lruPath)
}

// Warm preloads the models recorded in the state file, most recently used
// first, for as long as they fit the budget without evicting each other.
// It returns the ids that were loaded.
func (m *Manager) Warm(ctx context.Context) ([]string, error) {
	type entry struct {
		id  string
		rec lruRecord
	}
	var entries []entry
	for id, rec := range m.lruMeta {
		if _, ok := m.getModelByID(id); ok {
			entries = append(entries, entry{id: id, rec: rec})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].rec.LastUsedUnix > entries[j].rec.LastUsedUnix })

	var (
		loaded []string
		err    error
	)
	for _, e := range entries {
		if m.budgetMB > 0 {
			mdl, _ := m.getModelByID(e.id)
			m.mu.RLock()
			fits := m.usedEstMB+m.estimateMB(mdl)+m.marginMB <= m.budgetMB
			m.mu.RUnlock()
			if !fits {
				continue
			}
		}
		if lerr := m.EnsureInstance(ctx, e.id); lerr != nil {
			err = multierr.Append(err, lerr)
			if isContextErr(lerr) {
				break
			}
			continue
		}
		loaded = append(loaded, e.id)
	}
	if len(entries) > 0 {
		m.emit("warm_done", "", map[string]any{"loaded": len(loaded), "recorded": len(entries)})
	}
	return loaded, err
}
