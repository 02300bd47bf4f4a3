// Package apperr defines the error taxonomy that crosses the search core
// boundary and its mapping to spoken messages and HTTP statuses
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure
type Kind uint8

const (
	// KindUnknown is for unclassified errors
	KindUnknown Kind = iota
	// KindValidation is for malformed caller input
	KindValidation
	// KindAuth is for a failed credential exchange with the provider
	KindAuth
	// KindProviderRequest is for parameters the provider rejected
	KindProviderRequest
	// KindProviderUnavailable is for timeouts, transport failures and other upstream errors
	KindProviderUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindProviderRequest:
		return "provider_request"
	case KindProviderUnavailable:
		return "provider_unavailable"
	default:
		return "unknown"
	}
}

const retryLater = "I'm having trouble searching for flights right now. Please try again."

// Error is the tagged error returned by the search core
type Error struct {
	kind     Kind
	msg      string
	upstream int
	timeout  bool
	orig     error
}

// Wire is the JSON form returned to HTTP callers
type Wire struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	s := e.kind.String() + ": " + e.msg
	if e.upstream != 0 {
		s = fmt.Sprintf("%s (upstream status %d)", s, e.upstream)
	}
	if e.orig != nil {
		s += ": " + e.orig.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.orig }

// Kind returns the error class
func (e *Error) Kind() Kind { return e.kind }

// Message returns the developer-facing detail
func (e *Error) Message() string { return e.msg }

// Upstream returns the provider HTTP status, or 0 when none was received
func (e *Error) Upstream() int { return e.upstream }

// Timeout reports whether the failure was a deadline
func (e *Error) Timeout() bool { return e.timeout }

// Spoken returns the sentence a voice agent should read back
func (e *Error) Spoken() string {
	switch e.kind {
	case KindValidation:
		return "I need valid flight information: " + e.msg
	case KindProviderRequest:
		return "I couldn't search with those details: " + e.msg + ". Please check the airport codes and dates."
	default:
		return retryLater
	}
}

// Validation returns a caller-input error
func Validation(reason string) error {
	return &Error{kind: KindValidation, msg: reason}
}

// Auth returns a credential exchange error carrying the upstream status
func Auth(status int, msg string) error {
	return &Error{kind: KindAuth, msg: msg, upstream: status}
}

// ProviderRequest returns a provider rejection the caller can correct
func ProviderRequest(status int, detail string) error {
	return &Error{kind: KindProviderRequest, msg: detail, upstream: status}
}

// ProviderUnavailable returns a transient upstream failure
func ProviderUnavailable(status int, msg string) error {
	return &Error{kind: KindProviderUnavailable, msg: msg, upstream: status}
}

// Transport wraps a transport or context failure as ProviderUnavailable,
// flagging deadlines
func Transport(op string, err error) error {
	return &Error{
		kind:    KindProviderUnavailable,
		msg:     op,
		timeout: isTimeout(err),
		orig:    err,
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}

// As unwraps err into *Error
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the Kind of err, KindUnknown for foreign errors
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.kind
	}
	return KindUnknown
}

// Spoken returns the voice message for any error
func Spoken(err error) string {
	if e, ok := As(err); ok {
		return e.Spoken()
	}
	return "Sorry, something went wrong with your flight search. Please try again."
}

// HTTPStatus maps err to the status used by JSON endpoints
func HTTPStatus(err error) int {
	e, ok := As(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch e.kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindProviderRequest:
		return http.StatusUnprocessableEntity
	case KindAuth:
		return http.StatusBadGateway
	case KindProviderUnavailable:
		if e.timeout {
			return http.StatusGatewayTimeout
		}
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// HTTP bundles status and wire payload for handlers
func HTTP(err error) (int, Wire) {
	w := Wire{Error: Spoken(err)}
	if k := KindOf(err); k != KindUnknown {
		w.Kind = k.String()
	}
	return HTTPStatus(err), w
}
