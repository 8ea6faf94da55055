package scgi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"vibetorrent/internal/metrics"
)

// DefaultTimeout bounds a whole call: connect, write and read.
const DefaultTimeout = 10 * time.Second

// Client issues XML-RPC calls over SCGI. It opens one connection per call and
// keeps no state between calls, so it is safe for concurrent use.
type Client struct {
	network string
	address string
	timeout time.Duration
}

// NewClient creates a client for address. "unix:///path" and absolute paths
// dial a unix socket; "tcp://host:port" and bare "host:port" dial TCP.
func NewClient(address string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	network, addr := parseAddress(address)
	return &Client{network: network, address: addr, timeout: timeout}
}

func parseAddress(address string) (string, string) {
	address = strings.TrimSpace(address)
	switch {
	case strings.HasPrefix(address, "unix://"):
		return "unix", strings.TrimPrefix(address, "unix://")
	case strings.HasPrefix(address, "/"):
		return "unix", address
	case strings.HasPrefix(address, "tcp://"):
		return "tcp", strings.TrimPrefix(address, "tcp://")
	default:
		return "tcp", address
	}
}

// Address returns the dialed endpoint in "network://address" form.
func (c *Client) Address() string {
	return c.network + "://" + c.address
}

// Call invokes method with args and returns the decoded result: string,
// int64, float64, bool, []byte, []any, map[string]any or nil.
func (c *Client) Call(ctx context.Context, method string, args ...any) (any, error) {
	start := time.Now()
	result, err := c.call(ctx, method, args)
	metrics.ObserveCall(method, time.Since(start), errorKind(err))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return result, nil
}

func (c *Client) call(ctx context.Context, method string, args []any) (any, error) {
	body, err := encodeCall(method, args)
	if err != nil {
		return nil, err
	}

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	dialer := net.Dialer{Deadline: deadline}
	conn, err := dialer.DialContext(ctx, c.network, c.address)
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, fmt.Errorf("%w: dial %s", ErrTimeout, c.Address())
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrConnect, err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(deadline); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnect, err)
	}
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	if _, err := conn.Write(frame(body)); err != nil {
		return nil, c.ioError(ctx, "write request", err)
	}

	raw, complete, err := readResponse(conn)
	if err != nil {
		return nil, c.ioError(ctx, "read response", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrMalformedResponse)
	}

	value, err := decodeResponse(raw)
	if err != nil && !complete && errors.Is(err, ErrMalformedResponse) {
		return nil, fmt.Errorf("connection closed before response finished: %w", err)
	}
	return value, err
}

func (c *Client) ioError(ctx context.Context, op string, err error) error {
	if isTimeout(ctx, err) {
		return fmt.Errorf("%w: %s", ErrTimeout, op)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return fmt.Errorf("%w: %s: %v", ErrConnect, op, err)
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	if ctx.Err() != nil {
		return false
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
