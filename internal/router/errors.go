package router

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"unicode/utf8"
)

// ErrorKind classifies provider failures.
type ErrorKind string

const (
	KindAuth            ErrorKind = "auth"
	KindRateLimit       ErrorKind = "rateLimit"
	KindNetwork         ErrorKind = "network"
	KindInvalidResponse ErrorKind = "invalidResponse"
)

var (
	ErrMissingCredential = errors.New("missing credential")
	ErrNoAdapter         = errors.New("no adapter registered")
	ErrInvalidRequest    = errors.New("invalid chat request")
)

// ProviderError is returned for every failure that happened while talking to
// a provider.
type ProviderError struct {
	ProviderID string
	Kind       ErrorKind
	Message    string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.ProviderID, e.Kind, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Retryable reports whether the caller may retry. The router never retries on
// its own.
func (e *ProviderError) Retryable() bool {
	return e.Kind == KindRateLimit || e.Kind == KindNetwork
}

// MissingCredentialError is returned before any network call when a provider
// needs a credential and none was supplied or stored.
type MissingCredentialError struct {
	ProviderID string
}

func (e *MissingCredentialError) Error() string {
	return fmt.Sprintf("%s: %s", e.ProviderID, ErrMissingCredential)
}

func (e *MissingCredentialError) Is(target error) bool { return target == ErrMissingCredential }

// kindForStatus maps an HTTP status code to an error kind.
func kindForStatus(code int) ErrorKind {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return KindAuth
	case code == http.StatusTooManyRequests:
		return KindRateLimit
	case code == http.StatusRequestTimeout || code >= 500:
		return KindNetwork
	default:
		return KindInvalidResponse
	}
}

func statusError(providerID string, code int, err error) *ProviderError {
	return &ProviderError{
		ProviderID: providerID,
		Kind:       kindForStatus(code),
		Message:    fmt.Sprintf("status %d: %s", code, truncate(err.Error(), 300)),
		StatusCode: code,
		Err:        err,
	}
}

func invalidResponse(providerID, msg string) *ProviderError {
	return &ProviderError{ProviderID: providerID, Kind: KindInvalidResponse, Message: msg}
}

// asProviderError normalizes an adapter error. Anything not already
// classified is a transport failure.
func asProviderError(providerID string, err error) *ProviderError {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe
	}
	msg := err.Error()
	var netErr net.Error
	var urlErr *url.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		msg = "request timed out"
	case errors.Is(err, context.Canceled):
		msg = "request cancelled"
	case errors.As(err, &urlErr), errors.As(err, &netErr):
		msg = truncate(msg, 300)
	}
	return &ProviderError{ProviderID: providerID, Kind: KindNetwork, Message: msg, Err: err}
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "…"
}
