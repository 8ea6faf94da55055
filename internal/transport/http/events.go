package http

import (
	"errors"
	"fmt"
	"net/http"
	"sync"

	"vibetorrent/internal/logger"
)

// ErrSlowConsumer is returned by an event sink whose buffer is full. The
// synchronizer drops the subscriber in response.
var ErrSlowConsumer = errors.New("event stream: subscriber too slow")

// DefaultEventBuffer is the number of undelivered events a subscriber may
// fall behind before it is dropped.
const DefaultEventBuffer = 64

type sseMessage struct {
	event string
	data  []byte
}

// sseSink queues events for one SSE connection. Send never blocks; once it
// fails the sink is done and the handler ends the response.
type sseSink struct {
	ch   chan sseMessage
	done chan struct{}
	once sync.Once
}

func newSSESink(buffer int) *sseSink {
	if buffer <= 0 {
		buffer = DefaultEventBuffer
	}
	return &sseSink{
		ch:   make(chan sseMessage, buffer),
		done: make(chan struct{}),
	}
}

func (s *sseSink) Send(event string, data []byte) error {
	select {
	case <-s.done:
		return ErrSlowConsumer
	default:
	}
	select {
	case s.ch <- sseMessage{event: event, data: data}:
		return nil
	default:
		s.once.Do(func() { close(s.done) })
		return ErrSlowConsumer
	}
}

// Events handles GET /api/events. The first event is always init; patch and
// heartbeat events follow until the client goes away or falls behind.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, errors.New("streaming unsupported"))
		return
	}

	sink := newSSESink(h.eventBuffer)
	id, err := h.live.Register(r.Context(), sink)
	if err != nil {
		log.Warn().Err(err).Msg("event stream registration failed")
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	defer h.live.Unregister(id)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-sink.done:
			// the stream has a gap now; the client reconnects and gets a fresh init
			log.Info().Str("subscriber", id).Msg("event stream closed for slow consumer")
			return
		case msg := <-sink.ch:
			if err := writeEvent(w, msg); err != nil {
				log.Debug().Err(err).Str("subscriber", id).Msg("event stream write failed")
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, msg sseMessage) error {
	_, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.event, msg.data)
	return err
}
