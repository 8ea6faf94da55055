package scgi

import (
	"errors"
	"fmt"
)

var (
	// ErrConnect means the daemon socket could not be reached or dropped mid-call.
	ErrConnect = errors.New("scgi: connection failed")
	// ErrTimeout means the call did not finish before its deadline.
	ErrTimeout = errors.New("scgi: call timed out")
	// ErrMalformedResponse means the reply could not be decoded.
	ErrMalformedResponse = errors.New("scgi: malformed response")
	// ErrUnsupportedType means an argument has no XML-RPC representation.
	ErrUnsupportedType = errors.New("scgi: unsupported argument type")
)

// FaultError is an XML-RPC fault returned by the daemon.
type FaultError struct {
	Code    int64
	Message string
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("XML-RPC fault: %s (code %d)", e.Message, e.Code)
}

func errorKind(err error) string {
	var fault *FaultError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &fault):
		return "fault"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrConnect):
		return "connect"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed"
	default:
		return "other"
	}
}
