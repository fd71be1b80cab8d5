package model

import (
	"errors"
	"fmt"
)

// ConfigError marks invalid or unsupported input. It is fatal and never
// retried: re-running the same payload can only fail the same way.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return "config error: " + e.Message
	}
	return fmt.Sprintf("config error: %s: %s", e.Field, e.Message)
}

// ProviderError captures an upstream call failure (TTS, storage) verbatim so
// the job's failure detail can later distinguish transient from permanent
// causes. Currently still terminal.
type ProviderError struct {
	Provider   string
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("provider error: %s %s", e.Provider, e.Op)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Body != "" {
		msg += ": " + e.Body
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProviderError) Unwrap() error { return e.Err }

// IsConfigError reports whether err is (or wraps) a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// IsProviderError reports whether err is (or wraps) a ProviderError.
func IsProviderError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}

// FailureMessage renders the human-readable message stored on a failed job.
// Anything that is neither a config nor a provider error is an internal error.
func FailureMessage(err error) string {
	var ce *ConfigError
	if errors.As(err, &ce) {
		return ce.Error()
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Error()
	}
	return "internal error: " + err.Error()
}
