package httpapi

import (
	"bytes"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// zlog is the structured logger used by the HTTP layer.
var zlog = zerolog.Nop()

// SetLogger installs a structured logger used by the HTTP layer.
func SetLogger(l zerolog.Logger) { zlog = l }

// LogLevel controls per-request logging behavior.
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

// defaultLogLevel is read once from GPTLOCAL_LOG_LEVEL.
var defaultLogLevel = parseLevel(os.Getenv("GPTLOCAL_LOG_LEVEL"))

// SetRequestLogLevel overrides the default per-request log level.
func SetRequestLogLevel(s string) { defaultLogLevel = parseLevel(s) }

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

// reqEvent starts a log event tagged with the request id, if any.
func reqEvent(ev *zerolog.Event, r *http.Request) *zerolog.Event {
	ev = ev.Str("path", r.URL.Path)
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		ev = ev.Str("request_id", rid)
	}
	return ev
}

// loggingLineWriter logs complete NDJSON lines at debug level.
type loggingLineWriter struct {
	log zerolog.Logger
	buf []byte
}

func (lw *loggingLineWriter) Write(p []byte) (int, error) {
	lw.buf = append(lw.buf, p...)
	for {
		idx := bytes.IndexByte(lw.buf, '\n')
		if idx < 0 {
			break
		}
		if line := string(lw.buf[:idx]); line != "" {
			lw.log.Debug().Str("line", line).Msg("generate>")
		}
		lw.buf = lw.buf[idx+1:]
	}
	return len(p), nil
}
