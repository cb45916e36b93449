// Package erruser provides structured errors for the pipeline: a machine
// Kind, a user-facing message, and an optional cause. Error() returns only
// the message; the cause is available via Unwrap() for Details or logs.
// Kind drives exit-code mapping and retry policy without string matching.
package erruser

import "errors"

// Kind classifies an error for exit codes and retry decisions.
type Kind int

const (
	// KindUnknown is the zero value; unclassified failures.
	KindUnknown Kind = iota
	// KindConfiguration covers missing credential, bad config file, invalid flag values.
	KindConfiguration
	// KindUnknownModel is a caller-input error: model id outside the enumeration.
	KindUnknownModel
	// KindVcsUnavailable means the git subprocess could not run or failed (e.g. not a repository).
	KindVcsUnavailable
	// KindNoChanges means the filtered change set is empty; nothing to summarize.
	KindNoChanges
	// KindTransient covers network errors, HTTP 429 and 5xx. Retried internally;
	// surfaced only after the retry budget is exhausted.
	KindTransient
	// KindAuth covers HTTP 401/403 from the generation service.
	KindAuth
	// KindRejected covers other non-retryable 4xx responses.
	KindRejected
	// KindTimeout means the total generation deadline elapsed.
	KindTimeout
	// KindMalformedResponse means the service replied without the expected text field.
	KindMalformedResponse
	// KindInvalidMessage means the model output failed conventional-commit validation.
	KindInvalidMessage
)

// String returns a short stable name for the kind (used in logs).
func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindUnknownModel:
		return "unknown-model"
	case KindVcsUnavailable:
		return "vcs-unavailable"
	case KindNoChanges:
		return "no-changes"
	case KindTransient:
		return "transient"
	case KindAuth:
		return "auth"
	case KindRejected:
		return "rejected"
	case KindTimeout:
		return "timeout"
	case KindMalformedResponse:
		return "malformed-response"
	case KindInvalidMessage:
		return "invalid-message"
	default:
		return "unknown"
	}
}

// Err holds a kind, a user-facing message, and an optional cause for debugging.
// Error() returns only Msg so the primary line never contains command names,
// exit codes, or credentials; use Unwrap() for technical detail.
type Err struct {
	Kind Kind
	Msg  string
	Err  error
}

// Error returns the user-facing message only.
func (e *Err) Error() string {
	if e == nil {
		return ""
	}
	return e.Msg
}

// Unwrap returns the underlying error for Details or logging.
// Handles nil receiver (method call on nil *Err is valid in Go).
func (e *Err) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New returns an error of the given kind with a user-facing message. If err
// is non-nil it is wrapped and available via Unwrap() so callers can print
// "Details: %v".
func New(kind Kind, msg string, err error) error {
	return &Err{Kind: kind, Msg: msg, Err: err}
}

// KindOf returns the kind of err, walking the wrap chain. Errors that do not
// carry an *Err anywhere in the chain report KindUnknown.
func KindOf(err error) Kind {
	var e *Err
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err (or anything it wraps) carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
