package provider

import (
	"errors"
	"strings"
)

var (
	// ErrQuotaExceeded is returned when a single credential hit a quota or rate limit
	ErrQuotaExceeded = errors.New("quota exceeded")

	// ErrProviderExhausted is returned when every credential of a provider failed with a quota error
	ErrProviderExhausted = errors.New("provider exhausted")

	// ErrNoCredentials is returned when a provider has no configured keys
	ErrNoCredentials = errors.New("no credentials configured")

	// ErrUnknownProvider is returned for a provider name outside the supported pair
	ErrUnknownProvider = errors.New("unknown provider")
)

// quotaMarkers are matched case-insensitively against provider error text
var quotaMarkers = []string{
	"quota",
	"rate limit",
	"resource exhausted",
	"429",
	"insufficient_quota",
}

// IsQuotaMessage reports whether an error message looks like a quota or rate limit failure
func IsQuotaMessage(msg string) bool {
	if msg == "" {
		return false
	}
	m := strings.ToLower(msg)
	for _, marker := range quotaMarkers {
		if strings.Contains(m, marker) {
			return true
		}
	}
	return false
}

// FatalError wraps a provider failure that must not be retried on another key or provider
type FatalError struct {
	Provider string
	Err      error
}

func (e *FatalError) Error() string {
	return e.Provider + ": " + e.Err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// NewFatalError creates a new fatal provider error
func NewFatalError(provider string, err error) error {
	return &FatalError{Provider: provider, Err: err}
}

// ExhaustedError reports that a provider ran out of usable credentials
type ExhaustedError struct {
	Provider string
	Tried    int
	Last     error
}

func (e *ExhaustedError) Error() string {
	msg := e.Provider + ": " + ErrProviderExhausted.Error()
	if e.Last != nil {
		msg += ": " + e.Last.Error()
	}
	return msg
}

func (e *ExhaustedError) Is(target error) bool {
	return target == ErrProviderExhausted
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

// ShouldFailover reports whether err permits a retry on the other provider.
// Typed adapter errors decide first; untyped errors fall back to the quota vocabulary.
func ShouldFailover(err error) bool {
	if err == nil {
		return false
	}

	var fatal *FatalError
	if errors.As(err, &fatal) {
		return false
	}

	if errors.Is(err, ErrProviderExhausted) || errors.Is(err, ErrQuotaExceeded) {
		return true
	}

	return IsQuotaMessage(err.Error())
}
