package ccip

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies why a call failed.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindDecode
	KindHandler
	KindEncode
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindDecode:
		return "decode"
	case KindHandler:
		return "handler"
	case KindEncode:
		return "encode"
	default:
		return "unknown"
	}
}

// Status is the HTTP status a failure of this kind is reported with.
// Decode failures of registered selectors are server faults.
func (k Kind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

type CallError struct {
	Kind     Kind
	Selector Selector
	Err      error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("%s error for selector %s: %v", e.Kind, e.Selector, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }

// Message is the caller-visible message. Server faults never expose their cause.
func (e *CallError) Message() string {
	switch e.Kind {
	case KindNotFound:
		return "No implementation for function with selector " + e.Selector.String()
	case KindValidation:
		return e.Err.Error()
	default:
		return http.StatusText(e.Kind.Status())
	}
}

var (
	errInvalidSender   = errors.New("invalid sender address")
	errInvalidCallData = errors.New("invalid call data")
)
