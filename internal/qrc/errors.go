package qrc

import (
	"errors"
	"fmt"
)

// Domain errors for the qrc package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, qrc.ErrMethodUnsupported) {
//	    // handle capability error
//	}
var (
	// ErrNotConnected is returned when an operation requires a connection
	// but the client is not connected to the core.
	ErrNotConnected = errors.New("qrc: not connected to core")

	// ErrConnectionClosed is returned for calls in flight when the
	// connection is torn down.
	ErrConnectionClosed = errors.New("qrc: connection closed")

	// ErrMethodUnsupported is returned when a method outside the fixed
	// QRC vocabulary is requested.
	ErrMethodUnsupported = errors.New("qrc: method not supported")

	// ErrTimeout is returned when the core does not answer a request
	// within the response timeout.
	ErrTimeout = errors.New("qrc: response timed out")
)

// RPCError is an explicit JSON-RPC error object returned by the core.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *RPCError) Error() string {
	return fmt.Sprintf("qrc: rpc error %d: %s", e.Code, e.Message)
}
