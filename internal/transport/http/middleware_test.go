package http

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vibetorrent/internal/logger"
)

func TestWithTraceID(t *testing.T) {
	tests := []struct {
		name          string
		header        string
		wantSame      bool
		wantValidUUID bool
	}{
		{name: "incoming header is reused", header: "my-trace", wantSame: true},
		{name: "missing header gets a uuid", header: "", wantValidUUID: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &Handler{logger: logger.Nop()}
			var called bool
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				assert.NotNil(t, logger.FromRequest(r))
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			if tt.header != "" {
				req.Header.Set(traceIDHeader, tt.header)
			}
			rr := httptest.NewRecorder()
			h.withTraceID(next).ServeHTTP(rr, req)

			require.True(t, called)
			got := rr.Header().Get(traceIDHeader)
			if tt.wantSame {
				assert.Equal(t, tt.header, got)
			}
			if tt.wantValidUUID {
				_, err := uuid.Parse(got)
				assert.NoError(t, err)
			}
		})
	}
}

func TestWithLogging_RecordsStatusAndSize(t *testing.T) {
	var buf bytes.Buffer
	h := &Handler{logger: &logger.Logger{Logger: zerolog.New(&buf)}}
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short"))
	})

	rr := httptest.NewRecorder()
	h.withTraceID(h.withLogging(next)).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/brew", nil))

	assert.Equal(t, http.StatusTeapot, rr.Code)
	out := buf.String()
	assert.Contains(t, out, `"status":418`)
	assert.Contains(t, out, `"size":5`)
	assert.Contains(t, out, `"uri":"/brew"`)
	assert.Contains(t, out, `"trace_id"`)
}

func TestResponseWriter_FlushAndSingleHeader(t *testing.T) {
	rr := httptest.NewRecorder()
	w := &responseWriter{ResponseWriter: rr}

	w.WriteHeader(http.StatusAccepted)
	w.WriteHeader(http.StatusInternalServerError)
	w.Flush()

	assert.Equal(t, http.StatusAccepted, rr.Code)
	assert.True(t, rr.Flushed)
	var _ http.Flusher = w
}

func TestRecoverer(t *testing.T) {
	torrents := &fakeTorrents{}
	h := NewHandler(torrents, fakeLive{}, logger.Nop(), 0)
	router := NewRouter(h)
	router.HandleFunc("/boom", func(http.ResponseWriter, *http.Request) { panic("boom") })

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}
