package manager

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"litertlm/internal/litert"
	"litertlm/internal/native/nativetest"
	"litertlm/pkg/types"
)

// createModelFile creates a file of approximately sizeMB megabytes and returns its path.
func createModelFile(t *testing.T, dir, name string, sizeMB int) string {
	t.Helper()
	if sizeMB <= 0 {
		sizeMB = 1
	}
	p := filepath.Join(dir, name)
	f, err := os.Create(p)
	if err != nil {
		t.Fatalf("create file: %v", err)
	}
	defer f.Close()
	// write sizeMB megabytes (use 1MiB blocks)
	block := make([]byte, 1024*1024)
	for i := 0; i < sizeMB; i++ {
		if _, err := f.Write(block); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := f.Sync(); err != nil {
		t.Fatalf("sync: %v", err)
	}
	return p
}

// fakeLoader builds real litert engines on top of an in-memory native fake.
func fakeLoader(f *nativetest.Fake) Loader {
	return func(path string, backend litert.Backend) (*litert.Engine, error) {
		return litert.Load(path, backend, litert.WithAPI(f))
	}
}

// newTestManager wires cfg to f and closes the manager on cleanup. A nil
// Registry gets a single 1MB model "m".
func newTestManager(t *testing.T, f *nativetest.Fake, cfg ManagerConfig) *Manager {
	t.Helper()
	if cfg.Registry == nil {
		p := createModelFile(t, t.TempDir(), "m.litertlm", 1)
		cfg.Registry = []types.Model{{ID: "m", Path: p}}
		if cfg.DefaultModel == "" {
			cfg.DefaultModel = "m"
		}
	}
	if cfg.Loader == nil {
		cfg.Loader = fakeLoader(f)
	}
	m := NewWithConfig(cfg)
	t.Cleanup(func() {
		_ = m.Close()
		if v := f.Violations(); len(v) != 0 {
			t.Errorf("native handle violations: %v", v)
		}
	})
	return m
}

// errWriter writes once, then returns an error on subsequent writes.
type errWriter struct{ wrote int }

func (e *errWriter) Write(p []byte) (int, error) {
	if e.wrote == 0 {
		e.wrote += len(p)
		return len(p), nil
	}
	return 0, errors.New("write fail")
}

// failWriter fails every write.
type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("write fail") }

// testCtx returns a context with a short timeout, canceled on test cleanup.
func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return c
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
