package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"litertlm/internal/litert"
	"litertlm/internal/manager"
	"litertlm/pkg/types"
)

func TestSessionLifecycle(t *testing.T) {
	svc := &mockService{}
	h := NewMux(svc)

	rec := postJSON(t, h, "/sessions", `{"model":"gemma"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("open status=%d body=%s", rec.Code, rec.Body.String())
	}
	var sess types.SessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &sess); err != nil {
		t.Fatalf("json: %v", err)
	}
	if sess.ID == "" || sess.Model != "gemma" {
		t.Fatalf("unexpected session: %+v", sess)
	}

	rec = postJSON(t, h, "/sessions/"+sess.ID+"/generate", `{"prompt":"And of Germany?"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("generate status=%d body=%s", rec.Code, rec.Body.String())
	}
	var gen types.GenerateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &gen); err != nil {
		t.Fatalf("json: %v", err)
	}
	if gen.SessionID != sess.ID || gen.Content != "echo: And of Germany?" {
		t.Fatalf("unexpected generate response: %+v", gen)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions", nil))
	var list []types.SessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 open session, got %d", len(list))
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/sessions/"+sess.ID, nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("close status=%d", rec.Code)
	}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/sessions/"+sess.ID, nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second close status=%d", rec.Code)
	}
}

func TestOpenSession_EmptyBodyUsesDefault(t *testing.T) {
	h := NewMux(&mockService{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sessions", nil))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
}

func TestOpenSession_ErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{manager.ErrModelNotFound("nope"), http.StatusNotFound},
		{manager.ErrDependencyUnavailable("runtime not linked"), http.StatusServiceUnavailable},
		{litert.ErrNativeConstructionFailed, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := postJSON(t, NewMux(&mockService{sessErr: tc.err}), "/sessions", `{}`)
		if rec.Code != tc.want {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.want, rec.Code)
		}
	}
}

func TestSessionGenerate_Validation(t *testing.T) {
	h := NewMux(&mockService{})
	if rec := postJSON(t, h, "/sessions/s1/generate", `{"prompt":""}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("empty prompt status=%d", rec.Code)
	}
	if rec := postJSON(t, h, "/sessions/unknown/generate", `{"prompt":"hi"}`); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown session status=%d", rec.Code)
	}
}

func TestSessionBenchmark(t *testing.T) {
	svc := &mockService{benchmark: types.Benchmark{TimeToFirstTokenSeconds: 0.042, NumPrefillTurns: 1, NumDecodeTurns: 7}}
	rec := httptest.NewRecorder()
	NewMux(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions/s1/benchmark", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	var b types.Benchmark
	if err := json.Unmarshal(rec.Body.Bytes(), &b); err != nil {
		t.Fatalf("json: %v", err)
	}
	if b != svc.benchmark {
		t.Fatalf("benchmark=%+v", b)
	}

	rec = httptest.NewRecorder()
	NewMux(&mockService{sessErr: litert.ErrMetricsUnavailable}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions/s1/benchmark", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("metrics unavailable status=%d", rec.Code)
	}
}

func TestSessionTooBusyCountsBackpressure(t *testing.T) {
	svc := &mockService{sessErr: mockHTTPError{msg: "too busy", code: http.StatusTooManyRequests}}
	before := backpressureCount("queue")
	rec := postJSON(t, NewMux(svc), "/sessions", `{}`)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status=%d", rec.Code)
	}
	if got := backpressureCount("queue"); got < before+1 {
		t.Fatalf("backpressure counter not incremented: before=%v after=%v", before, got)
	}
}
