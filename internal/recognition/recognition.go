// Package recognition defines the result model shared by every recognition
// provider: the ternary status, the Provider interface the pipeline dispatches
// through, and the fingerprint cache.
//
// Provider implementations live under internal/provider. Each one owns its own
// classification policy.
package recognition

import (
	"context"
	"fmt"
	"strings"
)

// Status is the ternary copyright classification of a task.
type Status int

const (
	// Unknown is the zero value: a provider must justify anything else.
	Unknown Status = iota
	Copyrighted
	Free
)

// Code returns the single-letter code used in output lines.
func (s Status) Code() string {
	switch s {
	case Copyrighted:
		return "C"
	case Free:
		return "F"
	default:
		return "U"
	}
}

func (s Status) String() string {
	switch s {
	case Copyrighted:
		return "copyrighted"
	case Free:
		return "free"
	default:
		return "unknown"
	}
}

// Result is the uniform outcome of one recognition attempt.
type Result struct {
	Status     Status
	Service    string // human-readable service / match description
	Confidence string // provider-reported confidence, empty when not given
}

// UnknownResult returns an Unknown result carrying the given description.
func UnknownResult(service string) Result {
	return Result{Status: Unknown, Service: service}
}

// Fingerprint is an opaque acoustic signature plus the duration it covers.
type Fingerprint struct {
	Encoded  string
	Duration int // seconds
}

// Observer receives progress notifications while a provider works on a sample.
type Observer interface {
	Stage(text string)
	Sent(sent, total int64)
}

type nopObserver struct{}

func (nopObserver) Stage(string)      {}
func (nopObserver) Sent(int64, int64) {}

// NopObserver discards all notifications.
var NopObserver Observer = nopObserver{}

// Sample is the prepared audio handed to a provider.
type Sample struct {
	Path     string
	Size     int64
	Observer Observer
}

// Notify returns the sample's observer, never nil.
func (s Sample) Notify() Observer {
	if s.Observer == nil {
		return NopObserver
	}
	return s.Observer
}

// Kind identifies a provider variant.
type Kind string

const (
	KindAcoustID Kind = "acoustid"
	KindACRCloud Kind = "acr"
	KindAudioTag Kind = "audiotag"
	KindAudD     Kind = "audd"
)

// Kinds lists every supported provider in default dispatch order.
var Kinds = []Kind{KindAudD, KindAudioTag, KindAcoustID, KindACRCloud}

// ParseKind maps a configured provider name to its Kind.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "acoustid":
		return KindAcoustID, nil
	case "acr", "acrcloud":
		return KindACRCloud, nil
	case "audiotag":
		return KindAudioTag, nil
	case "audd", "audioo":
		return KindAudD, nil
	}
	return "", fmt.Errorf("unknown provider %q, valid providers: audd, audiotag, acoustid, acr", name)
}

// Provider converts a prepared sample into a classified result.
//
// Recognize must not return errors: every failure becomes an Unknown result
// whose Service explains what went wrong.
type Provider interface {
	Kind() Kind
	Name() string
	Recognize(ctx context.Context, sample Sample) Result
}
