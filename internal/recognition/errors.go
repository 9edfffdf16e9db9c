package recognition

import (
	"errors"
	"fmt"
)

// ErrorKind classifies provider failures.
type ErrorKind int

const (
	ErrNetwork ErrorKind = iota + 1
	ErrProtocol
	ErrRateLimit
	ErrCredentials
	ErrFingerprint
)

func (k ErrorKind) String() string {
	switch k {
	case ErrNetwork:
		return "network"
	case ErrProtocol:
		return "protocol"
	case ErrRateLimit:
		return "rate limit"
	case ErrCredentials:
		return "credentials"
	case ErrFingerprint:
		return "fingerprint"
	default:
		return "unknown"
	}
}

// Error is the structured failure returned by provider clients.
// Msg is the short diagnostic shown to the user in place of a match.
type Error struct {
	Provider string
	Kind     ErrorKind
	Msg      string
	Err      error
}

// NewError builds a provider error.
func NewError(provider string, kind ErrorKind, msg string, err error) *Error {
	return &Error{Provider: provider, Kind: kind, Msg: msg, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s error: %s: %v", e.Provider, e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s %s error: %s", e.Provider, e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is a provider Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var re *Error
	return errors.As(err, &re) && re.Kind == kind
}

// FromError converts any error into an Unknown result. Provider errors keep
// their diagnostic; anything else falls back to the provider name.
func FromError(provider string, err error) Result {
	var re *Error
	if errors.As(err, &re) && re.Msg != "" {
		return UnknownResult(re.Msg)
	}
	return UnknownResult(provider)
}
