package http

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"vibetorrent/internal/logger"
)

const traceIDHeader = "X-Trace-ID"

// withTraceID attaches a request logger carrying trace_id. An incoming
// X-Trace-ID is reused, otherwise a new UUID is generated.
func (h *Handler) withTraceID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get(traceIDHeader)
		if traceID == "" {
			traceID = uuid.NewString()
		}

		l := h.logger.GetChildLogger()
		l.UpdateContext(func(c zerolog.Context) zerolog.Context {
			return c.Str("trace_id", traceID)
		})
		r = r.WithContext(l.WithContext(r.Context()))

		w.Header().Set(traceIDHeader, traceID)
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromRequest(r)
		start := time.Now()

		lw := &responseWriter{ResponseWriter: w}
		next.ServeHTTP(lw, r)

		log.Info().
			Str("uri", r.RequestURI).
			Str("method", r.Method).
			Int("status", lw.status).
			Dur("duration", time.Since(start)).
			Int("size", lw.size).
			Send()
	})
}

// responseWriter records status and size. It forwards Flush so event
// streams keep working behind the logging middleware.
type responseWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
	size        int
}

func (w *responseWriter) WriteHeader(status int) {
	if w.wroteHeader {
		return
	}
	w.status = status
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(status)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(b)
	w.size += n
	return n, err
}

func (w *responseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *responseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
