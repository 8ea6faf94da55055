package livesync

import (
	"context"
	"errors"

	"github.com/looplab/fsm"

	"vibetorrent/internal/logger"
)

// Subscriber lifecycle states.
const (
	StateConnecting = "connecting"
	StateStreaming  = "streaming"
	StateClosed     = "closed"
)

const (
	eventStream = "stream"
	eventClose  = "close"
)

var errConnectionClosed = errors.New("livesync: connection closed")

// connection is one registered subscriber. Its lifecycle is
// connecting -> streaming -> closed, and closed is terminal.
type connection struct {
	id   string
	sink Sink
	fsm  *fsm.FSM
}

func newConnection(id string, sink Sink, log *logger.Logger) *connection {
	c := &connection{id: id, sink: sink}
	c.fsm = fsm.NewFSM(
		StateConnecting,
		fsm.Events{
			{Name: eventStream, Src: []string{StateConnecting}, Dst: StateStreaming},
			{Name: eventClose, Src: []string{StateConnecting, StateStreaming}, Dst: StateClosed},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				log.Debug().
					Str("subscriber", id).
					Str("from", e.Src).
					Str("to", e.Dst).
					Msg("subscriber state changed")
			},
		},
	)
	return c
}

func (c *connection) state() string {
	return c.fsm.Current()
}

func (c *connection) send(event string, data []byte) error {
	if c.fsm.Is(StateClosed) {
		return errConnectionClosed
	}
	return c.sink.Send(event, data)
}

// stream marks the initial snapshot as delivered.
func (c *connection) stream() error {
	return c.fsm.Event(context.Background(), eventStream)
}

func (c *connection) close() {
	if c.fsm.Can(eventClose) {
		_ = c.fsm.Event(context.Background(), eventClose)
	}
}
