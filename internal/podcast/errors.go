package podcast

import (
	"errors"
	"fmt"
)

// Kind classifies pipeline errors.
type Kind string

const (
	KindConfiguration Kind = "configuration"
	KindGeneration    Kind = "generation"
	KindParse         Kind = "parse"
	KindSynthesis     Kind = "synthesis"
	KindAssembly      Kind = "assembly"
	KindCanceled      Kind = "canceled"
)

// Error is a classified pipeline error with the underlying cause attached.
type Error struct {
	Kind    Kind
	Message string

	// Index is the turn ordinal for per-turn synthesis errors, -1 otherwise.
	Index int

	Cause error
}

func (e *Error) Error() string {
	msg := string(e.Kind) + " error"
	if e.Index >= 0 {
		msg += fmt.Sprintf(" (turn %d)", e.Index)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

func newError(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Index: -1, Cause: cause}
}

// ConfigurationError reports an invalid or unmapped configuration. It signals a
// programming-contract violation and is never retried.
func ConfigurationError(cause error, format string, args ...any) *Error {
	return newError(KindConfiguration, cause, format, args...)
}

// GenerationError reports a failed call to the script generation service.
func GenerationError(cause error, format string, args ...any) *Error {
	return newError(KindGeneration, cause, format, args...)
}

// ParseError reports a script that contained no usable dialogue.
func ParseError(format string, args ...any) *Error {
	return newError(KindParse, nil, format, args...)
}

// SynthesisError reports a failed synthesis. Index is the turn ordinal, or -1
// when the error covers the whole turn set.
func SynthesisError(index int, cause error, format string, args ...any) *Error {
	e := newError(KindSynthesis, cause, format, args...)
	e.Index = index
	return e
}

// AssemblyError reports audio the assembler could not normalize or combine.
func AssemblyError(cause error, format string, args ...any) *Error {
	return newError(KindAssembly, cause, format, args...)
}

// KindOf returns the Kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// CanceledError reports a run stopped by its caller.
func CanceledError(cause error, format string, args ...any) *Error {
	return newError(KindCanceled, cause, format, args...)
}
