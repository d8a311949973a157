package oracle

import (
	"errors"
	"fmt"
)

// ErrTimeout is returned when a prover call exceeds the configured
// per-call timeout.
var ErrTimeout = errors.New("oracle: prover call timed out")

// EnvironmentError reports a missing or unsupported prover.
type EnvironmentError struct {
	Path   string
	Reason string
	Err    error
}

func (e *EnvironmentError) Error() string {
	msg := fmt.Sprintf("prover %s: %s", e.Path, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *EnvironmentError) Unwrap() error { return e.Err }

// ProtocolError reports a reply whose shape does not match the queries
// that were issued. Request and Response hold the raw exchange.
type ProtocolError struct {
	Reason   string
	Request  string
	Response string
	Stderr   string
}

func (e *ProtocolError) Error() string {
	return "oracle protocol error: " + e.Reason
}

func protocolError(reason, request, response, stderr string) *ProtocolError {
	return &ProtocolError{
		Reason:   reason,
		Request:  request,
		Response: response,
		Stderr:   stderr,
	}
}
