// Package codec decodes ABI-encoded call payloads and encodes return values.
// It carries no knowledge of HTTP or handler invocation.
package codec

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// DecodeError reports a payload that does not match the declared input types.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("abi decode: %v", e.Err) }

func (e *DecodeError) Unwrap() error { return e.Err }

// EncodeError reports return values that cannot be encoded as the declared output types.
type EncodeError struct {
	Err error
}

func (e *EncodeError) Error() string { return fmt.Sprintf("abi encode: %v", e.Err) }

func (e *EncodeError) Unwrap() error { return e.Err }

// Decode unpacks payload, the call data after the 4-byte selector, positionally against inputs.
func Decode(inputs abi.Arguments, payload []byte) (values []any, err error) {
	if len(inputs) == 0 {
		return []any{}, nil
	}
	// the packer can panic on some malformed offsets in older releases.
	defer func() {
		if r := recover(); r != nil {
			values, err = nil, &DecodeError{Err: fmt.Errorf("%v", r)}
		}
	}()
	values, err = inputs.Unpack(payload)
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	return values, nil
}

// Encode packs values against outputs. Empty outputs encode to an empty byte string.
func Encode(outputs abi.Arguments, values []any) ([]byte, error) {
	if len(outputs) == 0 {
		return []byte{}, nil
	}
	if len(values) != len(outputs) {
		return nil, &EncodeError{Err: fmt.Errorf("expected %d values, got %d", len(outputs), len(values))}
	}
	data, err := outputs.Pack(values...)
	if err != nil {
		return nil, &EncodeError{Err: err}
	}
	return data, nil
}
