package wire

import "fmt"

// Status represents a response status code.
type Status uint8

const (
	// StatusOK indicates the operation completed successfully.
	StatusOK Status = 0

	// StatusIOError indicates the probe failed to access the target.
	StatusIOError Status = 1

	// StatusBadRequest indicates a malformed or out-of-order request.
	StatusBadRequest Status = 2

	// StatusUnsupportedVersion indicates the hello version was rejected.
	StatusUnsupportedVersion Status = 3
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusIOError:
		return "IO_ERROR"
	case StatusBadRequest:
		return "BAD_REQUEST"
	case StatusUnsupportedVersion:
		return "UNSUPPORTED_VERSION"
	default:
		return "UNKNOWN"
	}
}

// IsSuccess returns true if the status indicates success.
func (s Status) IsSuccess() bool {
	return s == StatusOK
}

// StatusError is the error form of a non-OK response.
type StatusError struct {
	Status  Status
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("probe server: %s", e.Status)
	}
	return fmt.Sprintf("probe server: %s: %s", e.Status, e.Message)
}
