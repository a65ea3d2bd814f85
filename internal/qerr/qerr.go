// Package qerr defines the error categories used by the query engine.
// Request errors carry messages safe to return to clients; everything
// else is treated as an internal error by the transport layer.
package qerr

import (
	"errors"
	"fmt"
)

// ErrUnsupportedRelationship indicates the entity configuration declares a
// relationship cardinality the engine cannot build a join for. This is a
// configuration defect, not a request error.
var ErrUnsupportedRelationship = errors.New("unsupported relationship cardinality")

// RequestError is a client-correctable error. Its message is safe to
// surface verbatim in an API response.
type RequestError struct {
	Message string
}

func (e *RequestError) Error() string {
	return e.Message
}

// BadRequest creates a client-facing request error.
func BadRequest(format string, args ...interface{}) error {
	return &RequestError{Message: fmt.Sprintf(format, args...)}
}

// IsBadRequest reports whether err (or anything it wraps) is a request error.
func IsBadRequest(err error) bool {
	var re *RequestError
	return errors.As(err, &re)
}
