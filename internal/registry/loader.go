package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"litertlm/internal/common/fsutil"
	"litertlm/pkg/types"
)

// Extensions recognised as LiteRT-LM model files, mapped to their format name.
var Extensions = map[string]string{
	".litertlm": "litertlm",
	".tflite":   "tflite",
	".task":     "task",
}

// ModelScanner discovers model files in a directory.
type ModelScanner struct{}

// NewModelScanner returns a scanner for the formats in Extensions.
func NewModelScanner() ModelScanner { return ModelScanner{} }

// Scan lists model files directly inside dir, sorted by ID. A leading '~' is
// expanded. ID is the full filename; Path is absolute.
func (ModelScanner) Scan(dir string) ([]types.Model, error) {
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var models []types.Model
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		ext := strings.ToLower(filepath.Ext(name))
		format, ok := Extensions[ext]
		if !ok {
			continue
		}
		m := types.Model{
			ID:     name,
			Name:   strings.TrimSuffix(name, filepath.Ext(name)),
			Path:   filepath.Join(abs, name),
			Format: format,
		}
		if info, err := e.Info(); err == nil {
			m.SizeBytes = info.Size()
		}
		models = append(models, m)
	}
	sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })
	return models, nil
}

// LoadDir scans dir with the default scanner.
func LoadDir(dir string) ([]types.Model, error) {
	return NewModelScanner().Scan(dir)
}
