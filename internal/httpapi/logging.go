package httpapi

import (
	"bytes"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// logger is the HTTP layer's structured logger. Defaults to the global one.
var logger = log.Logger

// SetLogger installs the structured logger used by the HTTP layer.
func SetLogger(l zerolog.Logger) { logger = l }

// LogLevel controls per-request logging of generation endpoints.
type LogLevel int

const (
	LevelOff LogLevel = iota
	LevelError
	LevelInfo
	LevelDebug
)

func parseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "":
		return LevelOff
	case "error":
		return LevelError
	case "info":
		return LevelInfo
	case "debug":
		return LevelDebug
	default:
		return LevelInfo
	}
}

// defaultLogLevel is read once from LITERTLM_LOG_LEVEL.
var defaultLogLevel = parseLevel(os.Getenv("LITERTLM_LOG_LEVEL"))

// SetRequestLogLevel overrides the default request log level.
func SetRequestLogLevel(s string) { defaultLogLevel = parseLevel(s) }

// requestLogLevel honors ?log= and X-Log-Level overrides.
func requestLogLevel(r *http.Request) LogLevel {
	if v := r.URL.Query().Get("log"); v != "" {
		if v == "1" {
			return LevelDebug
		}
		return parseLevel(v)
	}
	if v := r.Header.Get("X-Log-Level"); v != "" {
		return parseLevel(v)
	}
	return defaultLogLevel
}

// requestLog carries what the start and end lines of one request share.
type requestLog struct {
	lvl   LogLevel
	op    string
	rid   string
	start time.Time
}

func beginRequestLog(r *http.Request, op, model string) requestLog {
	rl := requestLog{
		lvl:   requestLogLevel(r),
		op:    op,
		rid:   middleware.GetReqID(r.Context()),
		start: time.Now(),
	}
	if rl.lvl >= LevelInfo {
		logger.Info().Str("path", r.URL.Path).Str("model", model).Str("request_id", rl.rid).Msg(op + " start")
	}
	return rl
}

// end logs the outcome. Failures are logged at LevelError and above,
// successes only at LevelInfo and above.
func (rl requestLog) end(status int, err error) {
	if rl.lvl == LevelOff || (err == nil && rl.lvl < LevelInfo) {
		return
	}
	ev := logger.Info()
	if err != nil {
		ev = logger.Warn().Err(err)
	}
	ev.Int("status", status).Dur("dur", time.Since(rl.start)).Str("request_id", rl.rid).Msg(rl.op + " end")
}

// loggingLineWriter logs each complete NDJSON line written to it.
type loggingLineWriter struct {
	buf []byte
	rid string
}

func (lw *loggingLineWriter) Write(p []byte) (int, error) {
	lw.buf = append(lw.buf, p...)
	for {
		idx := bytes.IndexByte(lw.buf, '\n')
		if idx < 0 {
			break
		}
		if idx > 0 {
			logger.Debug().Str("request_id", lw.rid).RawJSON("line", lw.buf[:idx]).Msg("infer>")
		}
		lw.buf = lw.buf[idx+1:]
	}
	return len(p), nil
}
