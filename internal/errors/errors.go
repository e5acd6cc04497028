// Package errors defines the error-kind taxonomy used across the pipeline.
// Workers convert low-level failures into one of these kinds at their
// boundary and forward them on the diagnostics channel; no kind propagates
// across an utterance boundary.
package errors

import (
	"errors"
	"fmt"
)

// Kind is a category of pipeline failure, not an identifier for a specific
// error value.
type Kind int

const (
	// DeviceError covers audio input device failures: cannot open, or the
	// device vanished mid-run. Fatal to the voice path.
	DeviceError Kind = iota
	// ModelLoadError covers ASR or classifier model initialisation failures.
	ModelLoadError
	// TranscriptionError covers a per-call transcription failure or timeout.
	// Always non-fatal.
	TranscriptionError
	// IOError covers failure to write an artifact or log file.
	IOError
	// ConfigError covers an invalid configuration value, fatal before the
	// pipeline starts.
	ConfigError
)

func (k Kind) String() string {
	switch k {
	case DeviceError:
		return "DeviceError"
	case ModelLoadError:
		return "ModelLoadError"
	case TranscriptionError:
		return "TranscriptionError"
	case IOError:
		return "IOError"
	case ConfigError:
		return "ConfigError"
	default:
		return "UnknownError"
	}
}

// Error is a pipeline error tagged with a Kind, the originating component,
// and the wrapped low-level cause.
type Error struct {
	Kind      Kind
	Component string
	Cause     error
}

func (e *Error) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("%s[%s]: %v", e.Kind, e.Component, e.Cause)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// New wraps cause as a pipeline Error of the given kind, originating from
// component.
func New(kind Kind, component string, cause error) *Error {
	return &Error{Kind: kind, Component: component, Cause: cause}
}

// Newf is a convenience wrapper building the cause from a format string.
func Newf(kind Kind, component, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Component: component, Cause: fmt.Errorf(format, args...)}
}

// KindOf reports the Kind of err if it is (or wraps) a *Error, and ok=false
// otherwise.
func KindOf(err error) (Kind, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind, true
	}
	return 0, false
}

// Is reports whether err is (or wraps) a *Error of the given kind.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
