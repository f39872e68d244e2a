package wire

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Probe messages are small, flat maps; MaxMapPairs bounds what a peer can
// make the decoder allocate.
var (
	encMode = mustEncMode(cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
	})
	decMode = mustDecMode(cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyQuiet,
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone, // unknown keys are skipped
		MaxMapPairs:       16,
	})
)

func mustEncMode(opts cbor.EncOptions) cbor.EncMode {
	m, err := opts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("wire: CBOR encoder mode: %v", err))
	}
	return m
}

func mustDecMode(opts cbor.DecOptions) cbor.DecMode {
	m, err := opts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("wire: CBOR decoder mode: %v", err))
	}
	return m
}

// Marshal encodes a value to CBOR bytes.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR bytes into a value.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// message is implemented by *Request and *Response.
type message[T any] interface {
	*T
	Validate() error
}

func encode[T any, M message[T]](m M, kind string) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", kind, err)
	}
	return Marshal(m)
}

func decode[T any, M message[T]](data []byte, kind string) (M, error) {
	var none M
	m := M(new(T))
	if err := Unmarshal(data, m); err != nil {
		return none, fmt.Errorf("failed to decode %s: %w", kind, err)
	}
	if err := m.Validate(); err != nil {
		return none, fmt.Errorf("invalid %s: %w", kind, err)
	}
	return m, nil
}

// EncodeRequest validates and encodes a request.
func EncodeRequest(req *Request) ([]byte, error) {
	return encode(req, "request")
}

// DecodeRequest decodes and validates a request.
func DecodeRequest(data []byte) (*Request, error) {
	return decode[Request](data, "request")
}

// EncodeResponse validates and encodes a response.
func EncodeResponse(resp *Response) ([]byte, error) {
	return encode(resp, "response")
}

// DecodeResponse decodes and validates a response.
func DecodeResponse(data []byte) (*Response, error) {
	return decode[Response](data, "response")
}

// PeekID returns the message ID of a request that failed to decode, so the
// server can still answer it. ok is false when no usable ID is present.
func PeekID(data []byte) (id uint32, ok bool) {
	var peek struct {
		ID uint32 `cbor:"1,keyasint"`
	}
	if Unmarshal(data, &peek) != nil || peek.ID == 0 {
		return 0, false
	}
	return peek.ID, true
}
