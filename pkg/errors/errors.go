package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents the failure classes a download run can hit
type ErrorType string

const (
	ErrorTypeFetch              ErrorType = "fetch"
	ErrorTypeParse              ErrorType = "parse"
	ErrorTypeIdentifierNotFound ErrorType = "identifier_not_found"
	ErrorTypeResolution         ErrorType = "resolution"
	ErrorTypeDownloadIncomplete ErrorType = "download_incomplete"
)

// Error is a typed error carrying the failure class and, for HTTP failures,
// the status code (0 for transport errors)
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	URL     string
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s error", e.Type)
	if e.Code != 0 {
		msg = fmt.Sprintf("%s (code %d)", msg, e.Code)
	}
	msg += ": " + e.Message
	if e.URL != "" {
		msg += " [" + e.URL + "]"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewFetchError reports a network or HTTP status failure
func NewFetchError(url string, code int, err error) *Error {
	msg := "request failed"
	if code != 0 {
		msg = fmt.Sprintf("unexpected status %d", code)
	}
	return &Error{Type: ErrorTypeFetch, Message: msg, Code: code, URL: url, Err: err}
}

// NewParseError reports expected markup missing from a page
func NewParseError(url, message string) *Error {
	return &Error{Type: ErrorTypeParse, Message: message, URL: url}
}

// NewIdentifierNotFoundError reports an episode page without a video host pointer
func NewIdentifierNotFoundError(url string) *Error {
	return &Error{Type: ErrorTypeIdentifierNotFound, Message: "no video identifier on page", URL: url}
}

// NewResolutionError reports a failed de-obfuscation step
func NewResolutionError(message string, err error) *Error {
	return &Error{Type: ErrorTypeResolution, Message: message, Err: err}
}

// NewDownloadIncompleteError reports a file still under the size threshold
// after the attempt budget was spent
func NewDownloadIncompleteError(path string, attempts int, size, minSize int64, err error) *Error {
	return &Error{
		Type:    ErrorTypeDownloadIncomplete,
		Message: fmt.Sprintf("%s is %d bytes after %d attempts (need %d)", path, size, attempts, minSize),
		Err:     err,
	}
}

// IsType reports whether err wraps an *Error of the given type
func IsType(err error, t ErrorType) bool {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type == t
	}
	return false
}

// IsRetryable checks if an error type should be retried
func IsRetryable(err error) bool {
	var e *Error
	if !stderrors.As(err, &e) {
		return false
	}
	switch e.Type {
	case ErrorTypeFetch:
		return IsRetryableStatusCode(e.Code)
	case ErrorTypeDownloadIncomplete:
		return true
	default:
		return false
	}
}

// IsRetryableStatusCode checks if an HTTP status code indicates a retryable error
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0: // Network error
		return true
	case 408, 429:
		return true
	case 401, 403, 404, 410:
		return false
	default:
		return statusCode >= 500
	}
}
