package httpapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"litertlm/pkg/types"
)

func openSessionHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.SessionRequest
		if !decodeJSON(w, r, &req, true) {
			return
		}
		rl := beginRequestLog(r, "session_open", req.Model)
		ctx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		resp, err := svc.OpenSession(ctx, req.Model)
		if err != nil {
			if callerGone(r.Context()) {
				rl.end(499, err)
				return
			}
			rl.end(writeServiceError(w, err), err)
			return
		}
		writeJSON(w, http.StatusCreated, resp)
		rl.end(http.StatusCreated, nil)
	}
}

func sessionGenerateHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var req types.GenerateRequest
		if !decodeJSON(w, r, &req, false) {
			return
		}
		if strings.TrimSpace(req.Prompt) == "" {
			writeJSONError(w, http.StatusBadRequest, "prompt is required")
			return
		}
		rl := beginRequestLog(r, "session_generate", "")
		ctx, cancel := generationContext(r.Context())
		defer cancel()
		resp, err := svc.SessionGenerate(ctx, id, req.Prompt)
		if err != nil {
			if callerGone(r.Context()) {
				rl.end(499, err)
				return
			}
			rl.end(writeServiceError(w, err), err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
		rl.end(http.StatusOK, nil)
	}
}

func sessionBenchmarkHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := svc.SessionBenchmark(chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, b)
	}
}

func closeSessionHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.CloseSession(chi.URLParam(r, "id")); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
