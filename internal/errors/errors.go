// Package errors defines typed errors with categories for user-friendly reporting.
// Every pipeline stage returns an *E (or wraps one) so that the outermost
// boundary can map a failure to a stable exit status without string matching.
//
// The package supports wrapping underlying errors while maintaining error kind information,
// making it easier to handle different types of failures appropriately.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind is a machine-readable error category.
type Kind string

const (
	// InputError indicates an empty or missing script, or a malformed request.
	InputError Kind = "input"
	// ResolutionError indicates a reference specifier could not be resolved.
	ResolutionError Kind = "resolution"
	// FetchError indicates an I/O or network failure while obtaining source text.
	FetchError Kind = "fetch"
	// CompileError indicates one or more error-severity diagnostics, or a broken toolchain.
	CompileError Kind = "compile"
	// ExecutionError indicates the compiled program failed at runtime.
	ExecutionError Kind = "execution"
	// UnhandledPanic indicates the compiled program crashed with an unrecovered panic.
	UnhandledPanic Kind = "unhandled_panic"
	// CancelledError indicates cooperative cancellation was observed.
	CancelledError Kind = "cancelled"
	// ConfigError indicates a broken profile, token store or local setting.
	ConfigError Kind = "config"
)

// E wraps an error with kind and human-friendly message.
type E struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *E) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *E) Unwrap() error { return e.Err }

func Wrap(kind Kind, msg string, err error) *E { return &E{Kind: kind, Message: msg, Err: err} }
func New(kind Kind, msg string) *E             { return &E{Kind: kind, Message: msg} }

// Newf is New with a format string.
func Newf(kind Kind, format string, args ...any) *E {
	return &E{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the outermost *E in err's chain, or "" when
// err carries no kind.
func KindOf(err error) Kind {
	var e *E
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// ProcessFail reports whether err describes a failure of the snippet process
// itself (runtime error, panic or cancellation) rather than a failure of the
// tool while preparing it.
func ProcessFail(err error) bool {
	switch KindOf(err) {
	case ExecutionError, UnhandledPanic, CancelledError:
		return true
	}
	return false
}
