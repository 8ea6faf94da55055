// Package logger wraps zerolog.Logger with the constructors and context
// helpers used across the service.
//
// Logger embeds zerolog.Logger, so Debug, Info, Warn and Error are available
// directly. Request-scoped loggers are attached by the HTTP middleware and
// recovered with FromContext or FromRequest.
package logger

import (
	"context"
	"io"
	"net/http"
	"os"
	"runtime"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger is a thin wrapper around zerolog.Logger.
type Logger struct {
	zerolog.Logger
}

// NewLogger builds a JSON logger on stdout tagged with role. Every entry gets
// a timestamp and a "func" caller field holding the function name.
func NewLogger(role string) *Logger {
	return newLogger(os.Stdout, role)
}

func newLogger(w io.Writer, role string) *Logger {
	zerolog.CallerMarshalFunc = func(pc uintptr, file string, line int) string {
		return runtime.FuncForPC(pc).Name()
	}
	zerolog.CallerFieldName = "func"

	logger := zerolog.New(w).With().
		Str("role", role).
		Timestamp().
		Caller().
		Logger()

	return &Logger{logger}
}

// SetLevel parses level ("debug", "info", ...) and applies it globally.
// Unknown values fall back to info.
func SetLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	return lvl
}

// Nop returns a logger that discards everything. Used in tests.
func Nop() *Logger {
	return &Logger{zerolog.Nop()}
}

// GetChildLogger returns a logger inheriting the receiver's fields.
func (l *Logger) GetChildLogger() *Logger {
	return &Logger{l.With().Logger()}
}

// Component returns a child logger with a "component" field.
func (l *Logger) Component(name string) *Logger {
	return &Logger{l.With().Str("component", name).Logger()}
}

// FromRequest returns the logger attached to the request context.
func FromRequest(r *http.Request) *Logger {
	return FromContext(r.Context())
}

// FromContext returns the logger stored in ctx by zerolog's WithContext.
// When none is attached zerolog's fallback is returned, never nil.
func FromContext(ctx context.Context) *Logger {
	return &Logger{*log.Ctx(ctx)}
}
