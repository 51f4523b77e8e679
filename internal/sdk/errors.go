package sdk

import (
	"errors"
	"fmt"
)

// Error codes reported through AdError.
const (
	CodeNetworkError      = 1000
	CodeNoFill            = 1001
	CodeLoadTooFrequently = 1002
	CodeServerError       = 2000
	CodeInternalError     = 2001
)

// AdError is delivered to listeners when an ad fails to load.
type AdError struct {
	Code    int
	Message string
}

func (e *AdError) Error() string {
	return fmt.Sprintf("%s (code %d)", e.Message, e.Code)
}

func newAdError(code int, format string, args ...any) *AdError {
	return &AdError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// ErrNoFill is the error delivered when the network has no ad for the request.
var ErrNoFill = &AdError{Code: CodeNoFill, Message: "No fill"}

// Show misuse.
var (
	ErrNotLoaded     = errors.New("ad is not loaded")
	ErrAlreadyShown  = errors.New("ad was already shown")
	ErrDestroyed     = errors.New("ad was destroyed")
	ErrNotRegistered = errors.New("native ad is not registered for interaction")
)

// asAdError converts arbitrary errors into an AdError, keeping AdErrors as is.
func asAdError(err error) *AdError {
	var adErr *AdError
	if errors.As(err, &adErr) {
		return adErr
	}
	return &AdError{Code: CodeInternalError, Message: err.Error()}
}
