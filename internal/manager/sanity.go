package manager

import (
	"fmt"

	"github.com/shirou/gopsutil/v3/mem"

	"litertlm/internal/native"
)

// SanityReport describes runtime checks for the native library and host.
type SanityReport struct {
	NativeAvailable bool     `json:"native_available"`
	Backend         string   `json:"backend"`
	ModelsFound     int      `json:"models_found"`
	MemTotalMB      uint64   `json:"mem_total_mb,omitempty"`
	MemAvailableMB  uint64   `json:"mem_available_mb,omitempty"`
	BudgetMB        int      `json:"budget_mb"`
	Warnings        []string `json:"warnings,omitempty"`
	Error           string   `json:"error,omitempty"`
}

// SanityCheck validates that the native library is linked and the configured
// budget and default model make sense on this host. It does not mutate state
// and is safe to call at any time.
func (m *Manager) SanityCheck() SanityReport {
	m.mu.RLock()
	r := SanityReport{
		NativeAvailable: native.Built,
		Backend:         m.backend.String(),
		ModelsFound:     len(m.registry),
		BudgetMB:        m.budgetMB,
	}
	defaultModel := m.defaultModel
	m.mu.RUnlock()

	if !r.NativeAvailable {
		r.Error = "binary built without the litertlm tag; inference is unavailable"
	}
	if r.ModelsFound == 0 {
		r.Warnings = append(r.Warnings, "no model files found")
	}
	if defaultModel != "" {
		if _, ok := m.getModelByID(defaultModel); !ok {
			r.Warnings = append(r.Warnings, fmt.Sprintf("default model %q not in registry", defaultModel))
		}
	}
	vm, err := mem.VirtualMemory()
	if err != nil {
		r.Warnings = append(r.Warnings, "host memory: "+err.Error())
		return r
	}
	r.MemTotalMB = vm.Total / (1024 * 1024)
	r.MemAvailableMB = vm.Available / (1024 * 1024)
	if r.BudgetMB > 0 && uint64(r.BudgetMB) > r.MemTotalMB {
		r.Warnings = append(r.Warnings, fmt.Sprintf("budget %dMB exceeds host memory %dMB", r.BudgetMB, r.MemTotalMB))
	}
	return r
}
