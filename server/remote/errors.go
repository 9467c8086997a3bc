package remote

import (
	"errors"
	"fmt"
)

// Error taxonomy for calls to the inference service. The orchestrator decides
// severity from these: ErrStopped is informational, ErrTransient means the
// service is unreachable (the heartbeat will notice recovery), and a
// RequestError carries the service's own message verbatim.

// ErrTransient means the service could not be reached at all.
var ErrTransient = errors.New("inference service unreachable")

// ErrStopped is returned when the service reports STOPPEDPROCESS: the running
// video inference was killed at the user's request. Not a failure.
var ErrStopped = errors.New("inference stopped by user")

// stoppedProcessCode is the distinguished error code the service returns for a
// user-initiated kill.
const stoppedProcessCode = "STOPPEDPROCESS"

// RequestError is a 4xx/5xx response from the inference service.
type RequestError struct {
	StatusCode int
	Code       string // Service error code, eg "INVALIDFILEPATH"
	Message    string
}

func (e *RequestError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("inference service returned status %v", e.StatusCode)
}

// errorBody is the JSON error payload the service sends with non-2xx statuses.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
