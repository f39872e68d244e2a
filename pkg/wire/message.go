package wire

import (
	"errors"
	"fmt"
)

// CBOR map keys for message encoding.
const (
	KeyID      = 1
	KeyOp      = 2 // Operation (request) or Status (response)
	KeyAddr    = 3 // Address (request) or Value (response)
	KeyValue   = 4 // Value (request) or Message (response)
	KeyVersion = 5
)

// ErrInvalidMessage indicates a message that decodes but is not usable.
var ErrInvalidMessage = errors.New("invalid message")

// Request represents a remote probe request.
//
// CBOR encoding:
//
//	{
//	  1: id,        // uint32, non-zero, echoed in the response
//	  2: operation, // uint8: 1=Hello, 2=Read32, 3=Write32, 4=Flush
//	  3: address,   // uint64 (Read32, Write32)
//	  4: value,     // uint32 (Write32)
//	  5: version    // string (Hello), e.g. "ccmobs/1"
//	}
type Request struct {
	ID      uint32    `cbor:"1,keyasint"`
	Op      Operation `cbor:"2,keyasint"`
	Addr    uint64    `cbor:"3,keyasint,omitempty"`
	Value   uint32    `cbor:"4,keyasint,omitempty"`
	Version string    `cbor:"5,keyasint,omitempty"`
}

// Validate checks if the request is valid.
func (r *Request) Validate() error {
	if r.ID == 0 {
		return fmt.Errorf("%w: id 0 is reserved", ErrInvalidMessage)
	}
	if !r.Op.IsValid() {
		return fmt.Errorf("%w: operation %d", ErrInvalidMessage, r.Op)
	}
	if r.Op == OpHello && r.Version == "" {
		return fmt.Errorf("%w: hello without version", ErrInvalidMessage)
	}
	return nil
}

// Response represents a remote probe response.
//
// CBOR encoding:
//
//	{
//	  1: id,      // uint32: matches request
//	  2: status,  // uint8: 0=ok, 1=io-error, 2=bad-request, 3=unsupported-version
//	  3: value,   // uint32 (Read32), absent otherwise
//	  4: message  // string, error detail or server version on Hello
//	}
type Response struct {
	ID      uint32 `cbor:"1,keyasint"`
	Status  Status `cbor:"2,keyasint"`
	Value   uint32 `cbor:"3,keyasint,omitempty"`
	Message string `cbor:"4,keyasint,omitempty"`
}

// Validate checks if the response is valid.
func (r *Response) Validate() error {
	if r.ID == 0 {
		return fmt.Errorf("%w: response without id", ErrInvalidMessage)
	}
	return nil
}

// IsSuccess returns true if the response indicates success.
func (r *Response) IsSuccess() bool {
	return r.Status.IsSuccess()
}

// Err returns nil for a successful response and a *StatusError otherwise.
func (r *Response) Err() error {
	if r.IsSuccess() {
		return nil
	}
	return &StatusError{Status: r.Status, Message: r.Message}
}

// NewErrorResponse creates a failed response for the given request ID.
func NewErrorResponse(id uint32, status Status, message string) *Response {
	return &Response{ID: id, Status: status, Message: message}
}
