// Package apierrors maps the server's specification §7 error taxonomy
// onto a single wrapped-error type so REST handlers and gateway close
// codes can be derived from whatever a core package returned, instead of
// every caller re-deriving a status code from scratch.
//
// This generalizes the teacher's habit of package-level sentinel errors
// (session.go: ErrWSAlreadyOpen, ErrInvalidToken, ErrWSShardBounds) into
// one small taxonomy, following the Rust original's one-variant-per-kind
// CoreError/AuthError enums (original_source/crates/paracord-core/src/error.rs)
// translated into Go's wrapped-error idiom.
package apierrors

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the purpose of surfacing it to a REST
// response code or a gateway close code.
type Kind int

const (
	// KindInternal covers anything unexpected: DB, I/O, wall-clock faults.
	KindInternal Kind = iota
	KindInvalidCredentials
	KindMissingPermission
	KindNotFound
	KindConflict
	KindValidation
	KindLagged
)

// Error wraps an underlying cause with a Kind, so callers can both match
// on Kind (for HTTP/close-code translation) and unwrap to the real cause
// (for logging).
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// New constructs an *Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs an *Error of the given kind wrapping cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf extracts the Kind of err if it is (or wraps) an *Error,
// defaulting to KindInternal for anything else -- an unclassified error is
// always treated as an internal error per spec §7's propagation policy
// ("only internal errors are logged verbosely").
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindInternal
}

// HTTPStatus maps a Kind to the REST status code spec §7 assigns it.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindInvalidCredentials:
		return 401
	case KindMissingPermission:
		return 403
	case KindNotFound:
		return 404
	case KindConflict:
		return 409
	case KindValidation:
		return 400
	default:
		return 500
	}
}

// CloseReason names the failure condition a gateway session observed.
// GatewayCloseCode maps it to the close code spec §4.5/§7 assigns, since
// several distinct conditions (auth failure vs timeout vs heartbeat miss)
// share that function's signature but not its code.
type CloseReason int

const (
	CloseReasonTokenInvalid CloseReason = iota
	CloseReasonIdentifyTimeout
	CloseReasonHeartbeatMiss
	CloseReasonLagged
	CloseReasonPayloadDecode
)

// GatewayCloseCode returns the numeric WebSocket close code for reason,
// per spec §4.5's failure-mode table.
func GatewayCloseCode(reason CloseReason) int {
	switch reason {
	case CloseReasonTokenInvalid:
		return 4004
	case CloseReasonIdentifyTimeout:
		return 4008
	case CloseReasonHeartbeatMiss:
		return 4009
	case CloseReasonLagged:
		return 4000
	case CloseReasonPayloadDecode:
		return 4002
	default:
		return 4000
	}
}
