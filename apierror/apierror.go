// Package apierror classifies failures from the WorkNest backend services.
// The classification happens once, at the HTTP-client boundary, so call sites
// branch on a Kind instead of inspecting response payloads ad hoc.
package apierror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Kind is the failure class of an API call.
type Kind int

const (
	// KindUnknown covers HTTP error codes with no dedicated class.
	KindUnknown Kind = iota
	// KindUnauthorized is the authorization class: HTTP 400, 401 and 403 are
	// treated uniformly as "current token rejected".
	KindUnauthorized
	// KindNotFound is HTTP 404.
	KindNotFound
	// KindServer is any 5xx response.
	KindServer
	// KindTransport is a network-level failure; the underlying error is
	// preserved via Unwrap.
	KindTransport
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not_found"
	case KindServer:
		return "server"
	case KindTransport:
		return "transport"
	}
	return "unknown"
}

var (
	// ErrNoSession signals the missing-token precondition: no access token is
	// present in storage, so no network call was attempted.
	ErrNoSession = errors.New("no active session")
)

// genericMessage is shown when the server's error payload lacks a message.
const genericMessage = "Something went wrong. Please try again."

// Error is a classified failure from a backend service.
type Error struct {
	Kind       Kind
	StatusCode int    // zero for transport errors
	Message    string // server-provided, or a generic fallback
	cause      error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (%d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// errorBody is the error payload shape shared by all three backend services.
// Some endpoints use "message", older ones "error".
type errorBody struct {
	Message string `json:"message"`
	Err     string `json:"error"`
}

// FromResponse builds an Error from a non-2xx HTTP response body.
func FromResponse(statusCode int, body []byte) *Error {
	var eb errorBody
	_ = json.Unmarshal(body, &eb)

	msg := eb.Message
	if msg == "" {
		msg = eb.Err
	}
	if msg == "" {
		msg = genericMessage
	}

	return &Error{
		Kind:       kindForStatus(statusCode),
		StatusCode: statusCode,
		Message:    msg,
	}
}

// Transport wraps a network-level failure.
func Transport(err error) *Error {
	return &Error{
		Kind:    KindTransport,
		Message: err.Error(),
		cause:   err,
	}
}

func kindForStatus(statusCode int) Kind {
	switch {
	case statusCode == http.StatusBadRequest,
		statusCode == http.StatusUnauthorized,
		statusCode == http.StatusForbidden:
		return KindUnauthorized
	case statusCode == http.StatusNotFound:
		return KindNotFound
	case statusCode >= 500:
		return KindServer
	}
	return KindUnknown
}

// IsUnauthorized reports whether err is an authorization-class failure.
func IsUnauthorized(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == KindUnauthorized
}

// MessageOf extracts the user-facing message from err, falling back to a
// generic message for errors that did not come from a backend response.
func MessageOf(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return genericMessage
}
