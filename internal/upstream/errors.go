package upstream

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorType classifies fetch errors for reporting.
type ErrorType int

const (
	// ErrTypeNetwork is a generic network failure.
	ErrTypeNetwork ErrorType = iota
	// ErrTypeNotFound is an HTTP 404 or similar.
	ErrTypeNotFound
	// ErrTypeParsing is a malformed or incomplete response body.
	ErrTypeParsing
	// ErrTypeTimeout is a request deadline or network timeout.
	ErrTypeTimeout
	// ErrTypeDNS is a hostname resolution failure.
	ErrTypeDNS
)

// FetchError provides structured information about a failed upstream call.
type FetchError struct {
	Type     ErrorType
	Endpoint string // short endpoint name, e.g. "update-api", "aur"
	Message  string
	Err      error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Endpoint, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Endpoint, e.Message)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Suggestion returns an actionable hint for the user, or "".
func (e *FetchError) Suggestion() string {
	switch e.Type {
	case ErrTypeTimeout:
		return "Check your internet connection and try again"
	case ErrTypeDNS:
		return "Check your DNS settings and internet connection"
	case ErrTypeNotFound:
		return "The endpoint may have moved; check the configured URLs"
	case ErrTypeParsing:
		return "The upstream response format may have changed"
	case ErrTypeNetwork:
		return "Check your internet connection and try again"
	default:
		return ""
	}
}

// classify maps an underlying error onto the most specific ErrorType.
func classify(err error) ErrorType {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTypeTimeout
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return ErrTypeTimeout
		}
		return ErrTypeDNS
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTypeTimeout
	}
	return ErrTypeNetwork
}

// wrapNetwork builds a FetchError with a classified type.
func wrapNetwork(err error, endpoint, message string) *FetchError {
	return &FetchError{
		Type:     classify(err),
		Endpoint: endpoint,
		Message:  message,
		Err:      err,
	}
}
