package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/avlogic/qsys-bridge/internal/changegroup"
	"github.com/avlogic/qsys-bridge/internal/control"
	"github.com/avlogic/qsys-bridge/internal/eventcache"
	"github.com/avlogic/qsys-bridge/internal/qrc"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest     = "bad_request"
	ErrCodeNotFound       = "not_found"
	ErrCodeUnauthorized   = "unauthorised"
	ErrCodeInternal       = "internal_error"
	ErrCodeInvalidFormat  = "invalid_format"
	ErrCodeRateOutOfRange = "rate_out_of_range"
	ErrCodeCapability     = "capability_unsupported"
	ErrCodeQueryTimeout   = "query_timeout"
	ErrCodeTransport      = "transport_error"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeUnauthorized writes a 401 error response.
func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeDomainError maps domain errors onto HTTP responses. Unknown errors
// become 500s with the error text preserved.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, control.ErrInvalidFormat):
		writeError(w, http.StatusBadRequest, ErrCodeInvalidFormat, err.Error())
	case errors.Is(err, control.ErrEmptyBatch):
		writeBadRequest(w, err.Error())
	case errors.Is(err, changegroup.ErrGroupNotFound):
		writeNotFound(w, err.Error())
	case errors.Is(err, changegroup.ErrRateOutOfRange):
		writeError(w, http.StatusBadRequest, ErrCodeRateOutOfRange, err.Error())
	case errors.Is(err, qrc.ErrMethodUnsupported):
		writeError(w, http.StatusNotImplemented, ErrCodeCapability, err.Error())
	case errors.Is(err, eventcache.ErrQueryTimeout):
		writeError(w, http.StatusGatewayTimeout, ErrCodeQueryTimeout, err.Error())
	case errors.Is(err, eventcache.ErrInvalidRange):
		writeBadRequest(w, err.Error())
	case errors.Is(err, control.ErrTransport),
		errors.Is(err, changegroup.ErrTransport),
		errors.Is(err, qrc.ErrNotConnected),
		errors.Is(err, qrc.ErrConnectionClosed),
		errors.Is(err, qrc.ErrTimeout):
		writeError(w, http.StatusBadGateway, ErrCodeTransport, err.Error())
	default:
		writeInternalError(w, err.Error())
	}
}
