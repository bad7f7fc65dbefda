package e2e

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"litertlm/internal/manager"
	"litertlm/internal/native/nativetest"
	"litertlm/pkg/types"
)

func decodeDone(t *testing.T, body []byte) types.InferDone {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	require.Len(t, lines, 1, "one NDJSON line expected: %s", body)
	var done types.InferDone
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &done))
	return done
}

func TestE2E_InferWithBenchmark(t *testing.T) {
	f := &nativetest.Fake{
		Reply: func(p string) (string, bool) { return "The capital of France is Paris.", true },
		Bench: nativetest.Benchmark{TimeToFirstToken: 0.042, NumPrefillTurns: 1, NumDecodeTurns: 9},
	}
	dir, models := createTempModelsDir(t, "gemma.litertlm")
	srv, _ := newServer(t, f, dir, manager.ManagerConfig{DefaultModel: models[0]})

	resp, body := httpPostJSON(t, srv.URL+"/infer", []byte(`{"prompt":"What is the capital of France?","benchmark":true}`))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	require.Equal(t, "application/x-ndjson", resp.Header.Get("Content-Type"))

	done := decodeDone(t, body)
	require.True(t, done.Done)
	require.Equal(t, "gemma.litertlm", done.Model)
	require.Contains(t, done.Content, "Paris")
	require.NotNil(t, done.Benchmark)
	require.Equal(t, 9, done.Benchmark.NumDecodeTurns)
	require.InDelta(t, 0.042, done.Benchmark.TimeToFirstTokenSeconds, 1e-9)

	// the one-shot session is gone, the engine stays loaded
	require.Zero(t, f.Live(nativetest.KindSession))
	require.Equal(t, 1, f.Live(nativetest.KindEngine))
}

func TestE2E_SessionConversation(t *testing.T) {
	f := nativetest.New()
	dir, models := createTempModelsDir(t, "gemma.litertlm")
	srv, _ := newServer(t, f, dir, manager.ManagerConfig{})

	resp, body := httpPostJSON(t, srv.URL+"/sessions", []byte(`{"model":"`+models[0]+`"}`))
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var sess types.SessionResponse
	require.NoError(t, json.Unmarshal(body, &sess))
	require.NotEmpty(t, sess.ID)
	require.Equal(t, models[0], sess.Model)

	for _, prompt := range []string{"What is the capital of France?", "And of Germany?"} {
		resp, body = httpPostJSON(t, srv.URL+"/sessions/"+sess.ID+"/generate", []byte(`{"prompt":"`+prompt+`"}`))
		require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
		var gen types.GenerateResponse
		require.NoError(t, json.Unmarshal(body, &gen))
		require.Equal(t, sess.ID, gen.SessionID)
		require.Equal(t, "echo: "+prompt, gen.Content)
	}
	// both turns ran on one native session
	require.Equal(t, 1, f.Count(nativetest.EngineCreateSession))

	resp, body = httpGet(t, srv.URL+"/sessions/"+sess.ID+"/benchmark")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	resp, body = httpGet(t, srv.URL+"/sessions")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), sess.ID)

	resp, _ = httpDo(t, http.MethodDelete, srv.URL+"/sessions/"+sess.ID, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Equal(t, 1, f.Count(nativetest.SessionDelete))

	resp, _ = httpPostJSON(t, srv.URL+"/sessions/"+sess.ID+"/generate", []byte(`{"prompt":"again"}`))
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestE2E_ErrorStatuses(t *testing.T) {
	tests := []struct {
		name   string
		fake   *nativetest.Fake
		path   string
		body   string
		status int
	}{
		{"unknown model", nativetest.New(), "/infer", `{"model":"nope.litertlm","prompt":"hi"}`, http.StatusNotFound},
		{"interior NUL", nativetest.New(), "/infer", `{"prompt":"a\u0000b"}`, http.StatusBadRequest},
		{"no response text", &nativetest.Fake{Reply: func(string) (string, bool) { return "", false }}, "/infer", `{"prompt":"hi"}`, http.StatusInternalServerError},
		{"no responses", &nativetest.Fake{NilResponses: true}, "/infer", `{"prompt":"hi"}`, http.StatusInternalServerError},
		{"engine construction fails", &nativetest.Fake{NilEngine: true}, "/infer", `{"prompt":"hi"}`, http.StatusInternalServerError},
		{"session construction fails", &nativetest.Fake{NilSession: true}, "/sessions", `{}`, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir, models := createTempModelsDir(t, "gemma.litertlm")
			srv, _ := newServer(t, tt.fake, dir, manager.ManagerConfig{DefaultModel: models[0]})
			resp, body := httpPostJSON(t, srv.URL+tt.path, []byte(tt.body))
			require.Equal(t, tt.status, resp.StatusCode, string(body))
			var e types.ErrorResponse
			require.NoError(t, json.Unmarshal(body, &e))
			require.Equal(t, tt.status, e.Code)
			require.NotEmpty(t, e.Error)
		})
	}
}

func TestE2E_InteriorNULNeverReachesNative(t *testing.T) {
	f := nativetest.New()
	dir, models := createTempModelsDir(t, "gemma.litertlm")
	srv, _ := newServer(t, f, dir, manager.ManagerConfig{DefaultModel: models[0]})

	resp, _ := httpPostJSON(t, srv.URL+"/infer", []byte(`{"prompt":"a\u0000b"}`))
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Zero(t, f.Count(nativetest.SessionGenerateContent))
}

func TestE2E_BenchmarkUnavailable(t *testing.T) {
	f := &nativetest.Fake{NilBenchmark: true}
	dir, models := createTempModelsDir(t, "gemma.litertlm")
	srv, _ := newServer(t, f, dir, manager.ManagerConfig{DefaultModel: models[0]})

	resp, body := httpPostJSON(t, srv.URL+"/sessions", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var sess types.SessionResponse
	require.NoError(t, json.Unmarshal(body, &sess))

	resp, _ = httpPostJSON(t, srv.URL+"/sessions/"+sess.ID+"/generate", []byte(`{"prompt":"hi"}`))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, body = httpGet(t, srv.URL+"/sessions/"+sess.ID+"/benchmark")
	require.Equal(t, http.StatusNotFound, resp.StatusCode, string(body))

	// infer still answers, just without counters
	resp, body = httpPostJSON(t, srv.URL+"/infer", []byte(`{"prompt":"hi","benchmark":true}`))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	require.Nil(t, decodeDone(t, body).Benchmark)

	resp, _ = httpDo(t, http.MethodDelete, srv.URL+"/sessions/"+sess.ID, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestE2E_NoDefaultModel(t *testing.T) {
	dir, _ := createTempModelsDir(t, "gemma.litertlm")
	srv, _ := newServer(t, nativetest.New(), dir, manager.ManagerConfig{})
	resp, body := httpPostJSON(t, srv.URL+"/infer", []byte(`{"prompt":"hi"}`))
	require.Equal(t, http.StatusNotFound, resp.StatusCode, string(body))
}

func TestE2E_ReadyzFollowsLoad(t *testing.T) {
	dir, models := createTempModelsDir(t, "gemma.litertlm")
	srv, _ := newServer(t, nativetest.New(), dir, manager.ManagerConfig{DefaultModel: models[0]})

	resp, _ := httpGet(t, srv.URL+"/readyz")
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, body := httpPostJSON(t, srv.URL+"/infer", []byte(`{"prompt":"warm"}`))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	resp, body = httpGet(t, srv.URL+"/readyz")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ready", strings.TrimSpace(string(body)))
}

func TestE2E_Backpressure429(t *testing.T) {
	started := make(chan struct{}, 1)
	unblock := make(chan struct{})
	f := &nativetest.Fake{OnGenerate: func(p string) {
		if p == "slow" {
			started <- struct{}{}
			<-unblock
		}
	}}
	dir, models := createTempModelsDir(t, "gemma.litertlm")
	srv, _ := newServer(t, f, dir, manager.ManagerConfig{
		DefaultModel:  models[0],
		MaxQueueDepth: 1,
		MaxConcurrent: 1,
		MaxWait:       50 * time.Millisecond,
	})

	var wg sync.WaitGroup
	var slowStatus int
	wg.Add(1)
	go func() {
		defer wg.Done()
		resp, _ := httpPostJSON(t, srv.URL+"/infer", []byte(`{"prompt":"slow"}`))
		slowStatus = resp.StatusCode
	}()
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		close(unblock)
		t.Fatal("first generation never started")
	}

	resp, body := httpPostJSON(t, srv.URL+"/infer", []byte(`{"prompt":"fast"}`))
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode, string(body))

	close(unblock)
	wg.Wait()
	require.Equal(t, http.StatusOK, slowStatus)

	// slots are free again
	resp, body = httpPostJSON(t, srv.URL+"/infer", []byte(`{"prompt":"fast"}`))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
}

func TestE2E_EvictionUnderBudget(t *testing.T) {
	f := nativetest.New()
	dir, _ := createTempModelsDir(t, "alpha.litertlm", "beta.litertlm")
	srv, mgr := newServer(t, f, dir, manager.ManagerConfig{BudgetMB: 1})

	infer := func(model string) int {
		resp, _ := httpPostJSON(t, srv.URL+"/infer", []byte(`{"model":"`+model+`","prompt":"hi"}`))
		return resp.StatusCode
	}

	require.Equal(t, http.StatusOK, infer("alpha.litertlm"))
	require.Equal(t, http.StatusOK, infer("beta.litertlm"))
	require.Equal(t, 1, f.Count(nativetest.EngineDelete), "alpha evicted to fit beta")
	require.Equal(t, uint64(1), mgr.Status().EvictionsTotal)
	require.Equal(t, 1, f.Live(nativetest.KindEngine))

	// an open session pins beta
	resp, body := httpPostJSON(t, srv.URL+"/sessions", []byte(`{"model":"beta.litertlm"}`))
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var sess types.SessionResponse
	require.NoError(t, json.Unmarshal(body, &sess))
	require.Equal(t, http.StatusServiceUnavailable, infer("alpha.litertlm"))

	resp, _ = httpDo(t, http.MethodDelete, srv.URL+"/sessions/"+sess.ID, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Equal(t, http.StatusOK, infer("alpha.litertlm"))
	require.Equal(t, uint64(2), mgr.Status().EvictionsTotal)
}
