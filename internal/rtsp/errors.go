package rtsp

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

const (
	ReasonOptionsRejected   = "options-rejected"
	ReasonDescribeRejected  = "describe-rejected"
	ReasonSetupRejected     = "setup-rejected"
	ReasonPlayRejected      = "play-rejected"
	ReasonMissingSession    = "missing-session"
	ReasonMissingTerminator = "missing-terminator"
	ReasonConnectionClosed  = "connection-closed"
	ReasonMalformedStatus   = "malformed-status"
	ReasonBadContentLength  = "bad-content-length"
	ReasonAuthFailed        = "auth-failed"
	ReasonCancelled         = "cancelled"
	ReasonTimeout           = "timeout"
)

// ProtocolError reports an RTSP peer that answered, but not in a way the
// handshake can continue from.
type ProtocolError struct {
	Reason     string
	Method     string
	StatusCode int
	Err        error
}

func newProtocolError(reason, method string, status int) *ProtocolError {
	return &ProtocolError{Reason: reason, Method: method, StatusCode: status}
}

func (e *ProtocolError) Error() string {
	msg := "rtsp protocol error: " + e.Reason
	if e.Method != "" {
		msg += " (" + e.Method
		if e.StatusCode != 0 {
			msg += fmt.Sprintf(" %d", e.StatusCode)
		}
		msg += ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// TransportError reports a failed read or write on the camera connection or
// on the output sink.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return "rtsp transport " + e.Op + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() error { return e.Err }

func IsProtocolError(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}

func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsCancelled reports whether err is the result of the caller cancelling the
// handshake.
func IsCancelled(err error) bool {
	var pe *ProtocolError
	if errors.As(err, &pe) {
		return pe.Reason == ReasonCancelled
	}
	return false
}

func contextError(err error) *ProtocolError {
	pe := newProtocolError(ReasonCancelled, "", 0)
	if errors.Is(err, context.DeadlineExceeded) {
		pe.Reason = ReasonTimeout
	}
	pe.Err = err
	return pe
}
