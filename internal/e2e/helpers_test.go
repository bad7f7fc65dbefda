package e2e

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"litertlm/internal/httpapi"
	"litertlm/internal/litert"
	"litertlm/internal/manager"
	"litertlm/internal/native/nativetest"
	"litertlm/internal/registry"
)

// createTempModelsDir creates a temporary directory holding tiny model files
// and returns the directory path and the model IDs (file names).
func createTempModelsDir(t *testing.T, names ...string) (string, []string) {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		p := filepath.Join(dir, n)
		if err := os.WriteFile(p, []byte("weights"), 0o644); err != nil {
			t.Fatalf("write temp model %s: %v", p, err)
		}
	}
	return dir, names
}

// newServer starts the full HTTP stack over a manager whose engines sit on
// the native fake f. On cleanup the server stops, the manager closes, and f
// must hold no live handle and no ownership violation.
func newServer(t *testing.T, f *nativetest.Fake, modelsDir string, cfg manager.ManagerConfig) (*httptest.Server, *manager.Manager) {
	t.Helper()
	reg, err := registry.NewModelScanner().Scan(modelsDir)
	if err != nil {
		t.Fatalf("scan models: %v", err)
	}
	cfg.Registry = reg
	cfg.Loader = func(path string, backend litert.Backend) (*litert.Engine, error) {
		return litert.Load(path, backend, litert.WithAPI(f))
	}
	mgr := manager.NewWithConfig(cfg)
	srv := httptest.NewServer(httpapi.NewMux(mgr))
	t.Cleanup(func() {
		srv.Close()
		if err := mgr.Close(); err != nil {
			t.Errorf("manager close: %v", err)
		}
		if n := f.Live(""); n != 0 {
			t.Errorf("%d native handles still live after shutdown", n)
		}
		if v := f.Violations(); len(v) != 0 {
			t.Errorf("native handle violations: %v", v)
		}
	})
	return srv, mgr
}

func httpDo(t *testing.T, method, url string, payload []byte) (*http.Response, []byte) {
	t.Helper()
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, url, body)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	out, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, out
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	return httpDo(t, http.MethodGet, url, nil)
}

func httpPostJSON(t *testing.T, url string, payload []byte) (*http.Response, []byte) {
	t.Helper()
	return httpDo(t, http.MethodPost, url, payload)
}
