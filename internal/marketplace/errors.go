package marketplace

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for the failure taxonomy. Credential errors are fatal to a
// job and never retried; transport errors are retried with backoff at the
// per-item level; data errors are recorded per item without retry.
var (
	// ErrInvalidCredentials signals a 401-equivalent: the credential bundle is
	// wrong, expired, or revoked.
	ErrInvalidCredentials = errors.New("marketplace credentials invalid or expired")

	// ErrInsufficientScope signals a 403-equivalent: credentials are valid but
	// lack the required API scope.
	ErrInsufficientScope = errors.New("marketplace credentials lack required scope")

	// ErrNotFound signals the requested resource no longer exists remotely.
	ErrNotFound = errors.New("marketplace resource not found")

	// ErrUnknownMarketplace is returned by the registry for an unregistered type.
	ErrUnknownMarketplace = errors.New("unknown marketplace type")
)

// TransportError wraps a network-level or 5xx failure. Transport errors are
// transient and eligible for retry.
type TransportError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: transport failure (status %d): %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: transport failure: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// DataError wraps a malformed or partially missing marketplace response.
// Data errors are recorded per item and never retried.
type DataError struct {
	Op  string
	Err error
}

func (e *DataError) Error() string {
	return fmt.Sprintf("%s: malformed marketplace response: %v", e.Op, e.Err)
}

func (e *DataError) Unwrap() error {
	return e.Err
}

// IsCredentialError reports whether err is a credential-class failure.
func IsCredentialError(err error) bool {
	return errors.Is(err, ErrInvalidCredentials) || errors.Is(err, ErrInsufficientScope)
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// ClassifyStatus converts an HTTP status code into the matching error kind,
// or nil for success statuses.
func ClassifyStatus(op string, code int, cause error) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusUnauthorized:
		return fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	case code == http.StatusForbidden:
		return fmt.Errorf("%s: %w", op, ErrInsufficientScope)
	case code == http.StatusNotFound:
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case code >= 500 || code == http.StatusTooManyRequests:
		return &TransportError{Op: op, StatusCode: code, Err: cause}
	default:
		return &DataError{Op: op, Err: fmt.Errorf("unexpected status %d", code)}
	}
}
