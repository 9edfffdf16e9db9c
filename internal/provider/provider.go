// Package provider contains recognition provider implementations
// (AcoustID, ACRCloud, AudioTag, AudD) and the upload plumbing they share.
//
// The Provider interface is defined in internal/recognition
// (recognition.Provider). Each sub-package here implements it for one
// service and owns that service's classification policy.
package provider

import (
	"net/http"
	"time"
)

// UserAgent is sent with every provider request.
const UserAgent = "rcheck/0.2"

// NewHTTPClient returns a client with the given overall request timeout.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &http.Client{Timeout: timeout}
}
